// Package media stores uploaded images on local disk and maps the stored
// references to public URLs.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Directories uploads are grouped under.
const (
	EquipmentDir = "equipment_images"
	ProfileDir   = "user_profiles"
)

var (
	// ErrTooLarge is returned by Validate when the upload exceeds the size cap.
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupportedType is returned when the content is not an accepted image.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrInvalidReference is returned for references escaping the media root.
	ErrInvalidReference = errors.New("invalid media reference")
)

// allowedTypes maps accepted MIME types to the extension the stored file
// receives.
var allowedTypes = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

// Upload is a file received with a request.  Open may be called more than
// once; every call returns a fresh reader positioned at the start.
type Upload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// LocalStorage keeps files below Root and serves them under PublicPrefix.
type LocalStorage struct {
	Root         string
	PublicPrefix string
	BaseURL      string
	MaxBytes     int64
}

func NewLocalStorage(root, publicPrefix, baseURL string, maxBytes int64) *LocalStorage {
	return &LocalStorage{
		Root:         root,
		PublicPrefix: "/" + strings.Trim(publicPrefix, "/"),
		BaseURL:      strings.TrimRight(baseURL, "/"),
		MaxBytes:     maxBytes,
	}
}

// Validate checks size and sniffed content type without writing anything.
func (s *LocalStorage) Validate(u Upload) error {
	_, err := s.detect(u)
	return err
}

func (s *LocalStorage) detect(u Upload) (string, error) {
	if s.MaxBytes > 0 && u.Size > s.MaxBytes {
		return "", ErrTooLarge
	}
	if u.Open == nil {
		return "", ErrUnsupportedType
	}
	rc, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	mt, err := mimetype.DetectReader(rc)
	if err != nil {
		return "", fmt.Errorf("sniff upload: %w", err)
	}
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowedTypes[m.String()]; ok {
			return ext, nil
		}
	}
	return "", ErrUnsupportedType
}

// Store validates u and writes it to <dir>/<uuid><ext>.  The content is
// copied into a temp file first and renamed into place once complete, so a
// failed copy never leaves a partial image behind.  The returned reference
// is relative to Root and uses forward slashes.
func (s *LocalStorage) Store(ctx context.Context, dir string, u Upload) (string, error) {
	ext, err := s.detect(u)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir = strings.Trim(path.Clean("/"+dir), "/")
	target := filepath.Join(s.Root, filepath.FromSlash(dir))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", err
	}

	rc, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(target, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	src := io.Reader(rc)
	if s.MaxBytes > 0 {
		src = io.LimitReader(rc, s.MaxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	if s.MaxBytes > 0 && n > s.MaxBytes {
		return "", ErrTooLarge
	}

	name := uuid.NewString() + ext
	if err := os.Rename(tmpPath, filepath.Join(target, name)); err != nil {
		return "", err
	}
	return path.Join(dir, name), nil
}

// Delete removes the file behind ref.  Missing files are not an error.
func (s *LocalStorage) Delete(_ context.Context, ref string) error {
	rel, err := s.Normalize(ref)
	if err != nil {
		return err
	}
	if rel == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

// URL returns the public address of ref, or "" for an empty reference.
func (s *LocalStorage) URL(ref string) string {
	rel, err := s.Normalize(ref)
	if err != nil || rel == "" {
		return ""
	}
	return s.BaseURL + s.PublicPrefix + "/" + rel
}

// Normalize reduces the stored forms seen in older rows ("/storage/x",
// "storage/x", "http://host/storage/x") to the bare relative reference.
func (s *LocalStorage) Normalize(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", ErrInvalidReference
		}
		ref = u.Path
	}
	ref = strings.TrimLeft(ref, "/")
	prefix := strings.Trim(s.PublicPrefix, "/") + "/"
	ref = strings.TrimPrefix(ref, prefix)

	for _, seg := range strings.Split(ref, "/") {
		if seg == ".." {
			return "", ErrInvalidReference
		}
	}
	clean := path.Clean(ref)
	if clean == "." || clean == "/" {
		return "", ErrInvalidReference
	}
	return clean, nil
}
