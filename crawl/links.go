package crawl

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is an anchor found on a page.
type Link struct {
	Href string
	Text string
}

// Links returns every anchor under sel with its href resolved against
// baseURL. Fragments are stripped; unresolvable anchors are skipped.
func Links(sel *goquery.Selection, baseURL string) []Link {
	base, _ := url.Parse(baseURL)
	var links []Link
	sel.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := Resolve(href, base)
		if resolved == "" {
			return
		}
		if u, err := url.Parse(resolved); err == nil {
			u.Fragment = ""
			resolved = u.String()
		}
		links = append(links, Link{Href: resolved, Text: strings.Join(strings.Fields(s.Text()), " ")})
	})
	return links
}
