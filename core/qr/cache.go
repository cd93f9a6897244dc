// Package qr generates QR code images for hyperlinks in a guide and injects
// references to them next to each link.
//
// Artifacts are content-addressed: the file name is derived from the encoded
// URL alone, so repeated links share one file and reruns reuse what is
// already on disk.
package qr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	qrcode "github.com/skip2/go-qrcode"
)

// hashWidth is the number of hex characters kept from the URL digest.
const hashWidth = 12

// Artifact is one generated QR image.
type Artifact struct {
	EncodedURL   string
	ContentHash  string
	RelativePath string
}

// Cache generates and memoizes artifacts for one output directory.
type Cache struct {
	// Dir is where image files are written.
	Dir string
	// RelDir is the directory prefix used in document references.
	RelDir string
	// Size is the PNG edge length in pixels.
	Size int

	mu        sync.Mutex
	memo      map[string]*Artifact
	generated int
}

// NewCache creates a Cache writing into dir and referencing files as relDir/<name>.
func NewCache(dir, relDir string, size int) *Cache {
	if size <= 0 {
		size = 256
	}
	return &Cache{Dir: dir, RelDir: relDir, Size: size, memo: make(map[string]*Artifact)}
}

// FileName returns the artifact file name for rawURL.
func FileName(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return "qr_" + hex.EncodeToString(sum[:])[:hashWidth] + ".png"
}

// Valid reports whether rawURL has both a scheme and a host.
func Valid(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Generate returns the artifact for rawURL, creating the image if needed.
// Invalid URLs yield a nil artifact and no error.
func (c *Cache) Generate(rawURL string) (*Artifact, error) {
	if !Valid(rawURL) {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.memo[rawURL]; ok {
		return a, nil
	}

	name := FileName(rawURL)
	a := &Artifact{
		EncodedURL:   rawURL,
		ContentHash:  name[len("qr_") : len(name)-len(".png")],
		RelativePath: path.Join(c.RelDir, name),
	}

	dest := filepath.Join(c.Dir, name)
	if _, err := os.Stat(dest); err != nil {
		if err := c.write(rawURL, dest); err != nil {
			return nil, err
		}
		c.generated++
	}

	c.memo[rawURL] = a
	return a, nil
}

// Generated returns how many image files this cache has written.
func (c *Cache) Generated() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generated
}

func (c *Cache) write(rawURL, dest string) error {
	code, err := qrcode.New(rawURL, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("encoding qr for %s: %w", rawURL, err)
	}
	png, err := code.PNG(c.Size)
	if err != nil {
		return fmt.Errorf("rendering qr for %s: %w", rawURL, err)
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("creating qr directory: %w", err)
	}
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, png, 0644); err != nil {
		return fmt.Errorf("writing qr %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("writing qr %s: %w", dest, err)
	}
	return nil
}
