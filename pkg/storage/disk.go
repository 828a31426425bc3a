package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Disk stores blobs under a root directory. The content type is kept in a
// small sidecar file next to the blob so Get can report it.
type Disk struct {
	root   string
	logger *zap.Logger
}

// NewDisk creates a disk-backed blob store rooted at root.
func NewDisk(root string, logger *zap.Logger) (*Disk, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	return &Disk{root: abs, logger: logger}, nil
}

// path maps an object key to a file path under the root. Keys containing
// path traversal are rejected.
func (d *Disk) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(d.root, clean), nil
}

// Put writes the blob to a temp file first and renames into place, so a
// failed upload never leaves a partial object behind.
func (d *Disk) Put(_ context.Context, key, contentType string, body io.Reader, size int64) error {
	dst, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	written, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && size > 0 && written != size {
		err = fmt.Errorf("short write: got %d bytes, want %d", written, size)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename blob: %w", err)
	}
	if contentType != "" {
		if err := os.WriteFile(dst+".ct", []byte(contentType), 0o644); err != nil {
			d.logger.Warn("failed to write content-type sidecar", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// Get opens the blob for reading. Caller closes the body.
func (d *Disk) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, "", fmt.Errorf("open blob: %w", err)
	}
	contentType := "application/octet-stream"
	if ct, err := os.ReadFile(p + ".ct"); err == nil && len(ct) > 0 {
		contentType = string(ct)
	}
	return f, contentType, nil
}

// Delete removes the blob and its sidecar. Missing objects are not an error.
func (d *Disk) Delete(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	_ = os.Remove(p + ".ct")
	return nil
}

// SignedURL reports ok=false: disk blobs are streamed by the server.
func (d *Disk) SignedURL(_ context.Context, _ string, _ time.Duration) (string, bool, error) {
	return "", false, nil
}
