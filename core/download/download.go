// Package download stores the images of a record on disk and records where
// each one went.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/guidepipe/core"
)

const (
	minAltSlug = 4
	maxAltSlug = 50
	defaultExt = ".png"
)

var (
	altInvalid = regexp.MustCompile(`[^a-z0-9]+`)
	knownExt   = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true, ".bmp": true}
)

// HTTPDownloader fetches assets over HTTP, pausing between requests.
type HTTPDownloader struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPDownloader creates a downloader with the given per-request timeout
// and minimum delay between requests.
func NewHTTPDownloader(timeout, delay time.Duration, userAgent string) *HTTPDownloader {
	lim := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		lim = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &HTTPDownloader{
		client:    &http.Client{Timeout: timeout},
		limiter:   lim,
		userAgent: userAgent,
	}
}

// Download writes the body at rawURL to dest.
func (d *HTTPDownloader) Download(ctx context.Context, rawURL, dest string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", core.ErrDownload, err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching %s: %v", core.ErrDownload, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %d for %s", core.ErrDownload, resp.StatusCode, rawURL)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "application/octet-stream") {
		return fmt.Errorf("%w: %s is %s, not an image", core.ErrDownload, rawURL, ct)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrDownload, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: reading %s: %v", core.ErrDownload, rawURL, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", core.ErrDownload, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("%w: %v", core.ErrDownload, err)
	}
	return nil
}

// FileName picks the local file name for the index-th image: a slug of the
// alt text when it is descriptive enough, otherwise image_NNN.
func FileName(img core.ImageRecord, index int) string {
	ext := extension(img.SourceURL)
	slug := strings.Trim(altInvalid.ReplaceAllString(strings.ToLower(img.AltText), "_"), "_")
	if len(slug) > maxAltSlug {
		slug = strings.TrimRight(slug[:maxAltSlug], "_")
	}
	if len(slug) < minAltSlug {
		return fmt.Sprintf("image_%03d%s", index+1, ext)
	}
	return fmt.Sprintf("%s_%03d%s", slug, index+1, ext)
}

func extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExt
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == ".jpeg" {
		return ".jpg"
	}
	if knownExt[ext] {
		return ext
	}
	return defaultExt
}

// Assets downloads every image of rec that has no local copy yet into dir
// and sets LocalPath to refPrefix/<file>. Individual failures are logged and
// leave the image remote. It returns how many images were stored.
func Assets(ctx context.Context, rec *core.ContentRecord, d core.Downloader, dir, refPrefix string, logger *slog.Logger) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrDownload, err)
	}
	stored := 0
	for i := range rec.Images {
		img := &rec.Images[i]
		if img.LocalPath != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		name := FileName(*img, i)
		dest := filepath.Join(dir, name)
		if _, err := os.Stat(dest); err != nil {
			if err := d.Download(ctx, img.SourceURL, dest); err != nil {
				logger.WarnContext(ctx, "image download failed", "src", img.SourceURL, "error", err)
				continue
			}
		}
		img.LocalPath = path.Join(refPrefix, name)
		stored++
	}
	return stored, nil
}
