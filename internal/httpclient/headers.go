package httpclient

import (
	"math/rand"
	"net/http"
	"time"
)

// browserProfile is one realistic browser header fingerprint, used to
// avoid trivially identifying every request as the same client when
// UseHeaderRotation is enabled. The crawler's actual identity is
// always sent via the configured User-Agent string regardless (see
// Client.Fetch) — header rotation only varies the surrounding Accept*/
// Sec-* headers, it never hides who is crawling.
type browserProfile struct {
	acceptLanguage  string
	acceptEncoding  string
	accept          string
	secChUA         string
	secChUAPlatform string
	secChUAMobile   string
	secFetchSite    string
	secFetchMode    string
	secFetchDest    string
	upgradeInsecure string
}

var browserProfiles = []browserProfile{
	{ // Chrome on Windows
		acceptLanguage:  "en-US,en;q=0.9",
		acceptEncoding:  "gzip, deflate, br",
		accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		secChUA:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		secChUAPlatform: `"Windows"`,
		secChUAMobile:   "?0",
		secFetchSite:    "none",
		secFetchMode:    "navigate",
		secFetchDest:    "document",
		upgradeInsecure: "1",
	},
	{ // Firefox on Windows
		acceptLanguage:  "en-US,en;q=0.5",
		acceptEncoding:  "gzip, deflate, br",
		accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		secFetchSite:    "none",
		secFetchMode:    "navigate",
		secFetchDest:    "document",
		upgradeInsecure: "1",
	},
	{ // Safari on macOS
		acceptLanguage: "en-US,en;q=0.9",
		acceptEncoding: "gzip, deflate, br",
		accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		secFetchSite:   "none",
		secFetchMode:   "navigate",
		secFetchDest:   "document",
	},
	{ // Edge on Windows
		acceptLanguage:  "en-US,en;q=0.9",
		acceptEncoding:  "gzip, deflate, br",
		accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		secChUA:         `"Microsoft Edge";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		secChUAPlatform: `"Windows"`,
		secChUAMobile:   "?0",
		secFetchSite:    "none",
		secFetchMode:    "navigate",
		secFetchDest:    "document",
		upgradeInsecure: "1",
	},
}

// headerRotator picks a random non-identity browser header profile per
// request.
type headerRotator struct {
	rnd *rand.Rand
}

func newHeaderRotator() *headerRotator {
	return &headerRotator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (hr *headerRotator) apply(req *http.Request) {
	p := browserProfiles[hr.rnd.Intn(len(browserProfiles))]

	req.Header.Set("Accept", p.accept)
	req.Header.Set("Accept-Language", p.acceptLanguage)
	req.Header.Set("Accept-Encoding", p.acceptEncoding)
	if p.secChUA != "" {
		req.Header.Set("Sec-Ch-Ua", p.secChUA)
	}
	if p.secChUAPlatform != "" {
		req.Header.Set("Sec-Ch-Ua-Platform", p.secChUAPlatform)
	}
	if p.secChUAMobile != "" {
		req.Header.Set("Sec-Ch-Ua-Mobile", p.secChUAMobile)
	}
	if p.secFetchSite != "" {
		req.Header.Set("Sec-Fetch-Site", p.secFetchSite)
	}
	if p.secFetchMode != "" {
		req.Header.Set("Sec-Fetch-Mode", p.secFetchMode)
	}
	if p.secFetchDest != "" {
		req.Header.Set("Sec-Fetch-Dest", p.secFetchDest)
	}
	if p.upgradeInsecure != "" {
		req.Header.Set("Upgrade-Insecure-Requests", p.upgradeInsecure)
	}
}
