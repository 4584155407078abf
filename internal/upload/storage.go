// Package upload stores multipart image uploads on disk and returns their public paths.
package upload

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
)

// Kind is the entity folder an upload belongs to
type Kind string

const (
	KindTemples Kind = "temples"
	KindUsers   Kind = "users"
)

// PublicPrefix is the URL prefix under which stored files are served
const PublicPrefix = "/uploads"

// MaxFileSize bounds a single image upload
const MaxFileSize = 5 << 20

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// Storage saves an uploaded file and returns the path clients use to fetch it. Remove
// deletes a file previously returned by Save.
type Storage interface {
	Save(ctx context.Context, kind Kind, fh *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, publicPath string) error
}

// DiskStorage writes files under <root>/<kind>/<ulid><ext>
type DiskStorage struct {
	root    string
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewDiskStorage creates a DiskStorage rooted at dir
func NewDiskStorage(dir string) *DiskStorage {
	return &DiskStorage{
		root:    dir,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Root returns the directory files are stored under
func (s *DiskStorage) Root() string { return s.root }

// Save copies the upload to disk. Only image extensions are accepted.
func (s *DiskStorage) Save(ctx context.Context, kind Kind, fh *multipart.FileHeader) (string, error) {
	if kind != KindTemples && kind != KindUsers {
		return "", fmt.Errorf("unknown upload kind %q", kind)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExt[ext] {
		return "", apperr.Validation("Only jpeg, png, webp or gif images are allowed")
	}
	if fh.Size > MaxFileSize {
		return "", apperr.Validation("Image is larger than 5MB")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(s.root, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := s.newID() + ext
	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}

	return path.Join(PublicPrefix, string(kind), name), nil
}

// Remove deletes the file behind a public path. Paths outside the upload root are rejected
// and a missing file is not an error.
func (s *DiskStorage) Remove(_ context.Context, publicPath string) error {
	cleaned := path.Clean(publicPath)
	rel := strings.TrimPrefix(cleaned, PublicPrefix+"/")
	if rel == cleaned {
		return fmt.Errorf("not an upload path: %q", publicPath)
	}
	kind, _, ok := strings.Cut(rel, "/")
	if !ok || (Kind(kind) != KindTemples && Kind(kind) != KindUsers) {
		return fmt.Errorf("not an upload path: %q", publicPath)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

func (s *DiskStorage) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}
