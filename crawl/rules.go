// Package crawl holds URL helpers shared by the source adapters: resolving
// relative links, filtering out assets and deduplicating discovered pages.
package crawl

import (
	"net/url"
	"path"
	"strings"
)

// staticExtensions mark URLs that point at assets rather than tutorial pages.
var staticExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true, ".bmp": true,
	".css": true, ".js": true, ".mjs": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp4": true, ".webm": true, ".mp3": true, ".wav": true,
	".zip": true, ".tar": true, ".gz": true, ".hex": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

// IsSameDomain checks if the given URL belongs to the specified host.
func IsSameDomain(rawURL string, domain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Host == domain
}

// IsStaticAsset checks if a URL points to a static asset (image, CSS, JS, etc.).
func IsStaticAsset(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return staticExtensions[strings.ToLower(path.Ext(parsed.Path))]
}

// NormalizeURL strips fragments and trailing slashes for deduplication.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String()
}

// Resolve makes href absolute against base. Protocol-relative references get
// https. Non-navigational schemes and pure fragments resolve to "".
func Resolve(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "",
		strings.HasPrefix(href, "#"),
		strings.HasPrefix(href, "mailto:"),
		strings.HasPrefix(href, "javascript:"),
		strings.HasPrefix(href, "tel:"),
		strings.HasPrefix(href, "data:"):
		return ""
	case strings.HasPrefix(href, "//"):
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if !parsed.IsAbs() {
			return ""
		}
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}
