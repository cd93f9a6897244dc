package enhance

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/guidepipe/core"
)

// Options control which images are enhanced and how many at once.
type Options struct {
	// BaseDir resolves the relative LocalPath of each image.
	BaseDir string
	Workers int
	// MinSize skips images smaller than this many bytes.
	MinSize int64
}

// EnhancedName returns the output file name for a local image.
func EnhancedName(local string) string {
	ext := path.Ext(local)
	return strings.TrimSuffix(local, ext) + "_enhanced" + ext
}

// eligible reports whether img should be sent to the enhancer.
func eligible(img core.ImageRecord, opts Options) bool {
	if img.LocalPath == "" || img.EnhancedPath != "" || img.ReplacedWithLocalizedVariant {
		return false
	}
	if strings.EqualFold(path.Ext(img.LocalPath), ".gif") {
		return false
	}
	info, err := os.Stat(filepath.Join(opts.BaseDir, filepath.FromSlash(img.LocalPath)))
	if err != nil {
		return false
	}
	return info.Size() >= opts.MinSize
}

// Assets enhances the eligible images of rec using a bounded worker pool and
// sets EnhancedPath on each success. Failures are logged per image. It
// returns the number of images enhanced.
func Assets(ctx context.Context, rec *core.ContentRecord, enh core.Enhancer, opts Options, logger *slog.Logger) int {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	var (
		mu      sync.Mutex
		results = map[string]string{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, img := range rec.Images {
		if !eligible(img, opts) {
			continue
		}
		g.Go(func() error {
			rel := EnhancedName(img.LocalPath)
			in := filepath.Join(opts.BaseDir, filepath.FromSlash(img.LocalPath))
			out := filepath.Join(opts.BaseDir, filepath.FromSlash(rel))
			if err := enh.Enhance(gctx, in, out); err != nil {
				logger.WarnContext(ctx, "image enhancement failed", "image", img.LocalPath, "error", err)
				return nil
			}
			mu.Lock()
			results[img.SourceURL] = rel
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i := range rec.Images {
		if rel, ok := results[rec.Images[i].SourceURL]; ok {
			rec.Images[i].EnhancedPath = rel
		}
	}
	return len(results)
}
