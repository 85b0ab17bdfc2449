package analytics

import (
	"path"
	"strings"
)

var botMarkers = []string{
	"bot", "crawl", "spider", "slurp", "scrape", "fetch",
	"headless", "phantomjs", "puppeteer", "playwright", "selenium", "lighthouse",
	"curl/", "wget", "python-requests", "python-urllib", "go-http-client", "java/", "okhttp",
	"facebookexternalhit", "embedly", "preview", "monitor", "uptime", "pingdom",
}

var untrackedPrefixes = []string{"/admin", "/api", "/metrics", "/healthz"}

var assetExtensions = map[string]struct{}{
	".js": {}, ".mjs": {}, ".css": {}, ".map": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".ico": {}, ".webp": {}, ".avif": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
	".xml": {}, ".txt": {}, ".json": {}, ".webmanifest": {},
}

// IsBot reports whether a user agent belongs to a crawler, a headless browser or a script.
// An empty agent counts as a bot.
func IsBot(userAgent string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return true
	}
	for _, m := range botMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// NormalizePath drops the query and fragment and any trailing slash except the root's.
func NormalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

// ShouldTrack is false for admin and api paths and for static assets.
func ShouldTrack(p string) bool {
	p = strings.ToLower(NormalizePath(p))
	for _, prefix := range untrackedPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return false
		}
	}
	if _, ok := assetExtensions[path.Ext(p)]; ok {
		return false
	}
	return true
}
