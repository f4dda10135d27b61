// Package renderer provides a headless-Chrome rendering escape hatch.
//
// JavaScript rendering is an explicit Non-goal of this crawler. The
// ChromeRenderer type below exists so the dependency and the idiom are
// both present, but nothing in the default fetch/parse pipeline invokes
// Render: config.Validate rejects EnableJSRendering outright. The one
// piece of this package the pipeline does use is ShouldRender, a pure
// heuristic that flags pages which likely needed JS execution, so their
// count can be surfaced in metrics without ever launching a browser.
package renderer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer renders pages with headless Chrome. Not reachable from
// the default crawl pipeline; see the package comment.
type ChromeRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer creates a new Chrome renderer.
func NewChromeRenderer(userAgent string) (*ChromeRenderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeRenderer{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Render renders a URL and returns the final HTML.
func (cr *ChromeRenderer) Render(ctx context.Context, url string, timeout time.Duration) (string, error) {
	runCtx, cancel := chromedp.NewContext(cr.allocCtx)
	defer cancel()

	runCtx, timeoutCancel := context.WithTimeout(runCtx, timeout)
	defer timeoutCancel()

	var htmlContent string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}

	return htmlContent, nil
}

// Close releases the underlying browser allocator.
func (cr *ChromeRenderer) Close() {
	if cr.allocCancel != nil {
		cr.allocCancel()
	}
}

// jsIndicators are substrings that suggest a page's body is a JS
// framework shell rather than rendered content.
var jsIndicators = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	"<noscript>you need to enable javascript",
	"javascript is required",
	"please enable javascript",
	"__next_data__",
	"ng-app",
	"v-app",
	"data-reactroot",
}

// ShouldRender reports whether htmlContent looks like it needed
// client-side JavaScript to produce real content. It never renders
// anything; callers use it purely to count likely-empty fetches.
func ShouldRender(htmlContent string) bool {
	if len(htmlContent) < 500 {
		return true
	}

	lower := strings.ToLower(htmlContent)
	for _, indicator := range jsIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}

	return false
}
