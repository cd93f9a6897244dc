// Package enhance upscales downloaded images with an external binary.
package enhance

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/gaurav-prasanna/guidepipe/core"
)

// Upscayl drives the upscayl-bin command line tool.
type Upscayl struct {
	Binary    string
	ModelsDir string
	Model     string
	Scale     int
	GPU       string
	Threads   string
}

// binaryPath resolves Binary via PATH when it is not a path itself.
func (u *Upscayl) binaryPath() (string, error) {
	if filepath.IsAbs(u.Binary) || filepath.Base(u.Binary) != u.Binary {
		if _, err := os.Stat(u.Binary); err != nil {
			return "", err
		}
		return filepath.Abs(u.Binary)
	}
	return exec.LookPath(u.Binary)
}

// Available reports whether the binary and the model files exist.
func (u *Upscayl) Available() bool {
	if _, err := u.binaryPath(); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(u.ModelsDir, u.Model+".param")); err != nil {
		return false
	}
	return true
}

// Args builds the command line for one image.
func (u *Upscayl) Args(in, out string) []string {
	args := []string{"-i", in, "-o", out, "-z", strconv.Itoa(u.Scale), "-n", u.Model}
	if u.GPU != "" {
		args = append(args, "-g", u.GPU)
	}
	if u.Threads != "" {
		args = append(args, "-j", u.Threads)
	}
	return args
}

// Enhance upscales in into out.
func (u *Upscayl) Enhance(ctx context.Context, in, out string) error {
	bin, err := u.binaryPath()
	if err != nil {
		return fmt.Errorf("%w: upscaler not found: %v", core.ErrEnhancement, err)
	}
	// The binary looks for ./models relative to its working directory.
	if in, err = filepath.Abs(in); err != nil {
		return fmt.Errorf("%w: %v", core.ErrEnhancement, err)
	}
	if out, err = filepath.Abs(out); err != nil {
		return fmt.Errorf("%w: %v", core.ErrEnhancement, err)
	}
	cmd := exec.CommandContext(ctx, bin, u.Args(in, out)...)
	cmd.Dir = filepath.Dir(u.ModelsDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v: %s", core.ErrEnhancement, filepath.Base(in), err, bytes.TrimSpace(stderr.Bytes()))
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("%w: no output for %s", core.ErrEnhancement, filepath.Base(in))
	}
	return nil
}
