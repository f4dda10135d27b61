// Package htmllink extracts outbound links and the page title from an
// HTML document, resolving relative hrefs against the page's final
// URL — the parser half of §4.4's contract ("extracts links (resolving
// relative URLs against the final URL)... calls back into the
// frontier's add_urls_batch").
//
// Grounded on the teacher's internal/parser/parser.go, generalized
// from a single flat function into an API the parse worker calls before
// handing the raw links to the frontier's AddURLsBatch, which applies
// internal/urlnorm normalization.
package htmllink

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ExtractResult holds everything one parsed HTML document yields.
type ExtractResult struct {
	Links []string
	Title string
}

// Extract parses htmlContent and resolves every discovered link
// against baseURL (the fetch's final URL after redirects). Links are
// returned as absolute, de-tracking-param'd, fragment-stripped URL
// strings — still raw, not yet passed through urlnorm.Normalize; that
// step happens inside the frontier's AddURLsBatch, which the parse
// worker feeds these links to, so normalization stays a single uniform
// contract (SPEC_FULL.md Open Question decision 1).
func Extract(htmlContent, baseURL string) (ExtractResult, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ExtractResult{}, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return ExtractResult{}, err
	}

	var result ExtractResult
	visited := make(map[string]bool)

	add := func(href string) {
		resolved := resolveLink(base, href)
		if resolved == "" || visited[resolved] {
			return
		}
		visited[resolved] = true
		result.Links = append(result.Links, resolved)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if href, ok := attr(n, "href"); ok {
					add(href)
				}
			case "link":
				href, hasHref := attr(n, "href")
				rel, _ := attr(n, "rel")
				if hasHref && (rel == "alternate" || rel == "canonical") {
					add(href)
				}
			case "title":
				if result.Title == "" && n.FirstChild != nil {
					result.Title = n.FirstChild.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// resolveLink turns a (possibly relative) href into an absolute URL,
// dropping non-navigable schemes and the fragment, and stripping
// common tracking parameters. Returns "" for anything not worth
// queuing.
func resolveLink(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(u)
	resolved.Fragment = ""
	stripTrackingParams(resolved)

	return resolved.String()
}

var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid", "mc_cid", "mc_eid",
}

func stripTrackingParams(u *url.URL) {
	if u.RawQuery == "" {
		return
	}
	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
}

// ExtractSitemapURLs extracts every <loc> entry from a sitemap XML
// document. The seed-file sitemap enrichment (internal/seedloader)
// does not call it; it extracts <loc> entries with goquery instead.
func ExtractSitemapURLs(xmlContent string) []string {
	doc, err := html.Parse(strings.NewReader(xmlContent))
	if err != nil {
		return nil
	}

	var urls []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "loc" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			urls = append(urls, n.FirstChild.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return urls
}
