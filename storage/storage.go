// Package storage keeps check-in proof photos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cppla/gymchallenge/calendar"
)

// ErrTooLarge is returned when the photo exceeds the configured limit.
var ErrTooLarge = errors.New("proof exceeds size limit")

// Stored describes a saved proof.
type Stored struct {
	Path string // filesystem path, used for removal
	URL  string // public URL served to clients
	Size int64
}

// ProofStorage saves and removes proof photos.
type ProofStorage interface {
	Save(ctx context.Context, userID uint, day calendar.Day, r io.Reader, contentType string) (Stored, error)
	Remove(ctx context.Context, path string) error
}

// Local stores proofs under Dir/yyyy/mm/dd and serves them below BaseURL.
type Local struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

// NewLocal creates a disk-backed ProofStorage.
func NewLocal(dir, baseURL string, maxBytes int64) *Local {
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), MaxBytes: maxBytes}
}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

func extFor(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ext, ok := extByType[ct]; ok {
		return ext
	}
	return ".img"
}

func (l *Local) Save(ctx context.Context, userID uint, day calendar.Day, r io.Reader, contentType string) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	year := fmt.Sprintf("%04d", day.Year())
	month := fmt.Sprintf("%02d", int(day.Month()))
	dd := day.String()[8:]
	baseDir := filepath.Join(l.Dir, year, month, dd)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return Stored{}, fmt.Errorf("create proof directory: %w", err)
	}

	name := fmt.Sprintf("%d_%s%s", userID, uuid.NewString(), extFor(contentType))
	dstPath := filepath.Join(baseDir, name)
	out, err := os.Create(dstPath)
	if err != nil {
		return Stored{}, fmt.Errorf("create proof file: %w", err)
	}

	src := r
	if l.MaxBytes > 0 {
		src = &io.LimitedReader{R: r, N: l.MaxBytes + 1}
	}
	written, err := io.Copy(out, src)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return Stored{}, fmt.Errorf("write proof file: %w", err)
	}
	if l.MaxBytes > 0 && written > l.MaxBytes {
		_ = os.Remove(dstPath)
		return Stored{}, ErrTooLarge
	}

	return Stored{
		Path: dstPath,
		URL:  l.BaseURL + "/" + path.Join(year, month, dd, name),
		Size: written,
	}, nil
}

// Remove deletes a stored proof. A missing file is not an error.
func (l *Local) Remove(_ context.Context, p string) error {
	if p == "" {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
