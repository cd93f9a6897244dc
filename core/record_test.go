package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func parseFragment(t *testing.T, s string) []*html.Node {
	t.Helper()
	ctx := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	require.NoError(t, err)
	return nodes
}

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, html.Render(&b, n))
	return b.String()
}

func TestContentRecordClone(t *testing.T) {
	rec := NewContentRecord("Case 01")
	rec.Metadata[MetaURL] = "https://example.com/case-01"
	rec.Images = []ImageRecord{{SourceURL: "https://example.com/a.png"}}
	rec.Sections = []Section{{
		Heading:  "Intro",
		Level:    2,
		Elements: parseFragment(t, `<p>hello <img src="https://example.com/a.png"></p>`),
	}}

	c := rec.Clone()
	require.NotSame(t, rec, c)

	t.Run("metadata is independent", func(t *testing.T) {
		c.Metadata[MetaLanguage] = "nl"
		_, ok := rec.Metadata[MetaLanguage]
		assert.False(t, ok)
	})

	t.Run("images are independent", func(t *testing.T) {
		c.Images[0].LocalPath = "case-01/images/a.png"
		assert.Empty(t, rec.Images[0].LocalPath)
	})

	t.Run("nodes are independent", func(t *testing.T) {
		p := c.Sections[0].Elements[0]
		p.FirstChild.Data = "changed "
		assert.Equal(t, `<p>hello <img src="https://example.com/a.png"/></p>`, render(t, rec.Sections[0].Elements[0]))
		assert.Equal(t, `<p>changed <img src="https://example.com/a.png"/></p>`, render(t, p))
		assert.Nil(t, p.Parent)
	})
}

func TestCloneNil(t *testing.T) {
	var rec *ContentRecord
	assert.Nil(t, rec.Clone())

	empty := (&ContentRecord{}).Clone()
	assert.NotNil(t, empty.Metadata)
}

func TestImageLookup(t *testing.T) {
	rec := NewContentRecord("x")
	rec.Images = []ImageRecord{{SourceURL: "a"}, {SourceURL: "b", LocalPath: "x/images/b.png"}}

	img := rec.Image("b")
	require.NotNil(t, img)
	img.EnhancedPath = "x/images/b_enhanced.png"
	assert.Equal(t, "x/images/b_enhanced.png", rec.Images[1].EnhancedPath)
	assert.Nil(t, rec.Image("missing"))
	assert.True(t, rec.HasLocalImages())
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("get: %w", ErrFetch), "FetchError"},
		{&StageError{Stage: "extract", Critical: true, Err: fmt.Errorf("%w: no body", ErrExtraction)}, "ExtractionError"},
		{ErrNoAdapter, "ExtractionError"},
		{fmt.Errorf("%w: disk full", ErrPersist), "PersistError"},
		{errors.New("plain"), "*errors.errorString"},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorType(tt.err))
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	err := error(&StageError{Stage: "persist", Critical: true, Err: fmt.Errorf("%w: read-only", ErrPersist)})

	var se *StageError
	require.True(t, errors.As(fmt.Errorf("item: %w", err), &se))
	assert.Equal(t, "persist", se.Stage)
	assert.True(t, errors.Is(err, ErrPersist))
	assert.Contains(t, err.Error(), "stage persist")
}
