package crawl

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	base, _ := url.Parse("https://wiki.example.com/docs/kit/index")
	tests := map[string]string{
		"case-01":                     "https://wiki.example.com/docs/kit/case-01",
		"/img/a.png":                  "https://wiki.example.com/img/a.png",
		"//cdn.example.com/a.png":     "https://cdn.example.com/a.png",
		"https://other.example.com/x": "https://other.example.com/x",
		"#top":                        "",
		"mailto:me@example.com":       "",
		"javascript:void(0)":          "",
		"data:image/png;base64,AAAA":  "",
		"   ":                         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Resolve(in, base), in)
	}
	assert.Equal(t, "", Resolve("relative", nil))
	assert.Equal(t, "https://x.example.com/a", Resolve("https://x.example.com/a", nil))
}

func TestRules(t *testing.T) {
	assert.True(t, IsSameDomain("https://a.example.com/x", "a.example.com"))
	assert.False(t, IsSameDomain("https://b.example.com/x", "a.example.com"))
	assert.True(t, IsStaticAsset("https://a.example.com/x/photo.JPG"))
	assert.False(t, IsStaticAsset("https://a.example.com/x/case-01"))
	assert.Equal(t, "https://a.example.com/x", NormalizeURL("https://a.example.com/x/#part"))
	assert.Equal(t, "https://a.example.com/", NormalizeURL("https://a.example.com/"))
}

func TestQueue(t *testing.T) {
	q := NewQueue()
	assert.True(t, q.Add("https://a.example.com/case-1"))
	assert.False(t, q.Add("https://a.example.com/case-1/"))
	assert.True(t, q.Add("https://a.example.com/case-2"))
	assert.False(t, q.Add("https://a.example.com/case-2#x"))
}

func TestLinks(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div>
<a href="case-01#wiring">  Case
  01 </a>
<a href="#top">top</a>
<a href="https://other.example.com/">ext</a>
</div>`))
	require.NoError(t, err)

	links := Links(doc.Selection, "https://wiki.example.com/kit/")
	assert.Equal(t, []Link{
		{Href: "https://wiki.example.com/kit/case-01", Text: "Case 01"},
		{Href: "https://other.example.com/", Text: "ext"},
	}, links)
}
