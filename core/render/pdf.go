package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/guidepipe/core"
)

const (
	qrWidthMM     = 25.0
	maxImageRatio = 0.45 // of the page height
)

var (
	imageRegex    = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)
	italicRegex   = regexp.MustCompile(`(?:^|\s)\*([^*]+)\*(?:\s|$)`)
	codeSpanRegex = regexp.MustCompile("`([^`]+)`")
	linkTextRegex = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
	headingAnchor = regexp.MustCompile(`\s*\{#[^}]+\}$`)
)

// PDFRenderer renders a Markdown guide as a printable PDF. Local images and
// QR codes are embedded; remote images are replaced by their alt text.
type PDFRenderer struct {
	// BaseDir resolves relative image paths, normally the output directory.
	BaseDir     string
	PageSize    string
	Orientation string
}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer(baseDir, pageSize, orientation string) *PDFRenderer {
	if pageSize == "" {
		pageSize = "A4"
	}
	if orientation == "" {
		orientation = "P"
	}
	return &PDFRenderer{BaseDir: baseDir, PageSize: pageSize, Orientation: orientation}
}

type pdfWriter struct {
	pdf     *gofpdf.Fpdf
	tr      func(string) string
	baseDir string
}

// Render converts Markdown into PDF bytes.
func (r *PDFRenderer) Render(markdown string, meta core.PageMetadata) ([]byte, error) {
	pdf := gofpdf.New(r.Orientation, "mm", r.PageSize, "")
	pdf.SetTitle(meta.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), baseDir: r.BaseDir}

	if meta.URL != "" {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 4, w.tr("Source: "+meta.URL), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	lines := strings.Split(markdown, "\n")
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			pdf.Ln(2)
			continue
		}

		if inCodeBlock {
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.MultiCell(0, 4.5, w.tr(line), "", "L", true)
			continue
		}

		if strings.TrimSpace(line) == "" {
			pdf.Ln(3)
			continue
		}

		if strings.HasPrefix(line, "#") {
			level := len(line) - len(strings.TrimLeft(line, "#"))
			w.heading(headingAnchor.ReplaceAllString(strings.TrimSpace(line[level:]), ""), level)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "---" {
			pdf.AddPage()
			continue
		}
		if strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">") {
			continue
		}
		if strings.HasPrefix(trimmed, "> ") {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(80, 80, 80)
			pdf.MultiCell(0, 5, w.tr(cleanInlineMarkdown(trimmed[2:])), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
			continue
		}

		text, images := splitImages(trimmed)
		if text != "" {
			pdf.SetFont("Helvetica", "", 10)
			if strings.HasPrefix(text, "- ") || strings.HasPrefix(text, "* ") {
				text = "• " + strings.TrimSpace(text[2:])
			}
			pdf.MultiCell(0, 5, w.tr(cleanInlineMarkdown(text)), "", "L", false)
		}
		for _, img := range images {
			w.image(img[0], img[1])
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: writing PDF: %v", core.ErrGeneration, err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// splitImages separates image markup from the rest of a line. Each image is
// returned as {alt, src}.
func splitImages(line string) (string, [][2]string) {
	var images [][2]string
	for _, m := range imageRegex.FindAllStringSubmatch(line, -1) {
		images = append(images, [2]string{m[1], m[2]})
	}
	if len(images) == 0 {
		return line, nil
	}
	return strings.TrimSpace(imageRegex.ReplaceAllString(line, "")), images
}

// heading sets the font size based on heading level and writes text.
func (w *pdfWriter) heading(text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}
	size, ok := sizes[level]
	if !ok {
		size = 10
	}
	w.pdf.Ln(4)
	w.pdf.SetFont("Helvetica", "B", size)
	w.pdf.MultiCell(0, size*0.6, w.tr(cleanInlineMarkdown(text)), "", "L", false)
	w.pdf.Ln(2)
}

func isQR(alt, src string) bool {
	return alt == "QR" || strings.HasPrefix(filepath.Base(src), "qr_")
}

// image embeds a local image scaled to the printable width. Images that
// cannot be loaded are replaced by their alt text.
func (w *pdfWriter) image(alt, src string) {
	pdf := w.pdf
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		w.placeholder(alt)
		return
	}
	path := src
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.baseDir, filepath.FromSlash(src))
	}

	opts := gofpdf.ImageOptions{ReadDpi: true}
	info := pdf.RegisterImageOptions(path, opts)
	if pdf.Err() || info == nil || info.Width() == 0 {
		pdf.ClearError()
		w.placeholder(alt)
		return
	}

	pageW, pageH := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	maxW := pageW - left - right
	width := min(info.Width(), maxW)
	if isQR(alt, src) {
		width = qrWidthMM
	}
	height := width * info.Height() / info.Width()
	if limit := pageH * maxImageRatio; height > limit {
		width = width * limit / height
		height = limit
	}

	pdf.ImageOptions(path, left, 0, width, height, true, opts, 0, "")
	pdf.Ln(2)
}

func (w *pdfWriter) placeholder(alt string) {
	if alt == "" {
		alt = "image"
	}
	w.pdf.SetFont("Helvetica", "I", 9)
	w.pdf.SetTextColor(120, 120, 120)
	w.pdf.MultiCell(0, 5, w.tr("["+alt+"]"), "", "L", false)
	w.pdf.SetTextColor(0, 0, 0)
}

// cleanInlineMarkdown strips inline Markdown formatting for PDF rendering.
func cleanInlineMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = italicRegex.ReplaceAllString(text, " $1 ")
	text = codeSpanRegex.ReplaceAllString(text, "$1")
	text = linkTextRegex.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, `\`, "")
	return strings.TrimSpace(text)
}
