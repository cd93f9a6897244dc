package source

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/crawl"
)

var sectionLevels = map[string]int{"h2": 2, "h3": 3, "h4": 4}

// splitSections turns the direct children of container into sections.
// h2 to h4 open a new section, h1 is dropped and sections without content
// are discarded. Blocks before the first heading form the preamble.
func splitSections(container *goquery.Selection) []core.Section {
	root := unwrap(container.Get(0))

	var (
		sections []core.Section
		cur      core.Section
	)
	flush := func() {
		if len(cur.Elements) > 0 {
			sections = append(sections, cur)
		}
	}
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		switch {
		case n.Type == html.CommentNode:
			continue
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) == "":
			continue
		case n.Type == html.ElementNode && n.Data == "h1":
			continue
		case n.Type == html.ElementNode && sectionLevels[n.Data] > 0:
			flush()
			cur = core.Section{Heading: nodeText(n), Level: sectionLevels[n.Data]}
		default:
			cur.Elements = append(cur.Elements, n)
		}
	}
	flush()
	return sections
}

// unwrap descends through single-child wrappers that hide the headings one
// level deeper.
func unwrap(n *html.Node) *html.Node {
	for {
		var only *html.Node
		count := 0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				only = c
				count++
			} else if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
				return n
			}
		}
		if count != 1 || only.Data != "div" && only.Data != "section" {
			return n
		}
		n = only
	}
}

// collectImages resolves every image source under container in place and
// returns one record per distinct source, in document order.
func collectImages(container *goquery.Selection, pageURL string) []core.ImageRecord {
	base, _ := url.Parse(pageURL)
	seen := map[string]bool{}
	var images []core.ImageRecord
	container.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" || strings.HasPrefix(src, "data:") {
			if lazy, ok := s.Attr("data-src"); ok {
				src = lazy
			}
		}
		abs := crawl.Resolve(src, base)
		if abs == "" {
			return
		}
		s.SetAttr("src", abs)
		if seen[abs] {
			return
		}
		seen[abs] = true
		alt, _ := s.Attr("alt")
		title, _ := s.Attr("title")
		images = append(images, core.ImageRecord{
			SourceURL: abs,
			AltText:   strings.TrimSpace(alt),
			TitleText: strings.TrimSpace(title),
		})
	})
	return images
}

func nodeText(n *html.Node) string {
	return strings.Join(strings.Fields(goquery.NewDocumentFromNode(n).Text()), " ")
}

// metaDescription reads <meta name="description"> or og:description.
func metaDescription(doc *goquery.Document) string {
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
