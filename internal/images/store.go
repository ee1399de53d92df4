// Package images stores bottle image attachments on the local filesystem and
// serves them back.
package images

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/nyashahama/bottled/internal/bottle"
)

// MaxSize is the largest accepted upload in bytes.
const MaxSize = 2 << 20

// uploadDir is the key prefix every stored image gets.
const uploadDir = "uploads"

var (
	// ErrTooLarge is returned for uploads over MaxSize.
	ErrTooLarge = fmt.Errorf("%w: image must be 2MB or smaller", bottle.ErrValidation)

	// ErrUnsupportedType is returned when the sniffed content is not PNG,
	// JPEG or WebP.
	ErrUnsupportedType = fmt.Errorf("%w: image must be PNG, JPG or WebP", bottle.ErrValidation)
)

// allowed maps sniffed MIME types to the extension used in the stored key.
var allowed = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// Image describes a stored upload.
type Image struct {
	Key         string `json:"key"` // uploads/<unix-millis>-<random>.<ext>
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Store writes images under basePath and builds public URLs from publicURL.
type Store struct {
	basePath  string
	publicURL string
	now       func() time.Time
}

// NewStore creates basePath/uploads if needed. publicURL is the URL prefix the
// stored keys are served under, e.g. "https://api.bottled.to/images".
func NewStore(basePath, publicURL string) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: IMAGE_DIR is not set", bottle.ErrConfiguration)
	}
	if err := os.MkdirAll(filepath.Join(basePath, uploadDir), 0o755); err != nil {
		return nil, fmt.Errorf("images: create base directory: %w", err)
	}
	return &Store{
		basePath:  basePath,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}, nil
}

// Save reads r fully (up to MaxSize), checks the content type by sniffing
// the bytes, and writes the file. The client-declared type is ignored.
func (s *Store) Save(r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return Image{}, fmt.Errorf("images: read upload: %w", err)
	}
	if len(data) > MaxSize {
		return Image{}, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	var ext, ctype string
	for m := mt; m != nil; m = m.Parent() {
		if e, ok := allowed[m.String()]; ok {
			ext, ctype = e, m.String()
			break
		}
	}
	if ext == "" {
		return Image{}, fmt.Errorf("%w (got %s)", ErrUnsupportedType, mt.String())
	}

	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	name := fmt.Sprintf("%d-%s.%s", s.now().UnixMilli(), random, ext)
	key := path.Join(uploadDir, name)

	if err := writeFileAtomic(filepath.Join(s.basePath, uploadDir, name), data); err != nil {
		return Image{}, err
	}

	return Image{
		Key:         key,
		URL:         s.publicURL + "/" + key,
		ContentType: ctype,
		Size:        len(data),
	}, nil
}

// Handler serves stored images. Mount it with the same prefix as publicURL's
// path, e.g. http.StripPrefix("/images", store.Handler()).
func (s *Store) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.basePath))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Directory listings are never served.
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	})
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place so readers never see a partial image.
func writeFileAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("images: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return fmt.Errorf("images: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("images: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("images: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("images: rename: %w", err)
	}
	return nil
}
