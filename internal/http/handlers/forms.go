package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
	"github.com/ShivpalBellway/DevBhakti/internal/upload"
)

// maxFormMemory bounds the in-memory part of a multipart form; larger parts spill to disk.
const maxFormMemory = 32 << 20

// maxHeroImages is the number of hero images accepted in one request
const maxHeroImages = 10

// Body limits for multipart requests: every allowed file at full size plus room for fields.
const (
	maxTempleFormBody  = (maxHeroImages+1)*upload.MaxFileSize + 1<<20
	maxProfileFormBody = upload.MaxFileSize + 1<<20
)

// decodeJSON decodes a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// form wraps a parsed multipart or urlencoded form
type form struct {
	values map[string][]string
	files  map[string][]*multipart.FileHeader
}

// parseForm reads a multipart or urlencoded body of at most limit bytes.
func parseForm(w http.ResponseWriter, r *http.Request, limit int64) (*form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, formError(err, "Invalid multipart form")
		}
		return &form{values: r.MultipartForm.Value, files: r.MultipartForm.File}, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, formError(err, "Invalid form")
	}
	return &form{values: r.PostForm}, nil
}

func formError(err error, msg string) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return apperr.TooLarge("Request body is too large")
	}
	return apperr.Validation(msg)
}

func (f *form) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *form) get(key string) string {
	if v := f.values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// str returns a pointer to the field value, or nil when the field was not sent
func (f *form) str(key string) *string {
	if !f.has(key) {
		return nil
	}
	v := strings.TrimSpace(f.get(key))
	return &v
}

// nonEmpty is like str but treats an empty value as absent
func (f *form) nonEmpty(key string) *string {
	v := f.str(key)
	if v == nil || *v == "" {
		return nil
	}
	return v
}

func (f *form) boolean(key string) (*bool, error) {
	v := f.nonEmpty(key)
	if v == nil {
		return nil, nil
	}
	b, err := strconv.ParseBool(*v)
	if err != nil {
		return nil, apperr.Validation(key + " must be true or false")
	}
	return &b, nil
}

func (f *form) float(key string) (*float64, error) {
	v := f.nonEmpty(key)
	if v == nil {
		return nil, nil
	}
	n, err := strconv.ParseFloat(*v, 64)
	if err != nil {
		return nil, apperr.Validation(key + " must be a number")
	}
	return &n, nil
}

func (f *form) integer(key string) (*int, error) {
	v := f.nonEmpty(key)
	if v == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(*v)
	if err != nil {
		return nil, apperr.Validation(key + " must be an integer")
	}
	return &n, nil
}

// jsonValue decodes a JSON-encoded field into dst and reports whether the field was sent.
func (f *form) jsonValue(key string, dst any) (bool, error) {
	if !f.has(key) {
		return false, nil
	}
	raw := strings.TrimSpace(f.get(key))
	if raw == "" {
		return true, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, apperr.Validation(key + " must be valid JSON")
	}
	return true, nil
}

func (f *form) fileList(key string) []*multipart.FileHeader {
	if f.files == nil {
		return nil
	}
	return f.files[key]
}

// saveFiles stores every upload and returns their public paths in order. On failure the
// files already stored are removed.
func saveFiles(ctx context.Context, storage upload.Storage, kind upload.Kind, files []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, fh := range files {
		p, err := storage.Save(ctx, kind, fh)
		if err != nil {
			for _, saved := range paths {
				_ = storage.Remove(ctx, saved)
			}
			var typed *apperr.Error
			if errors.As(err, &typed) {
				return nil, err
			}
			return nil, apperr.Internal(err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// saveSingle stores the first file under key, returning nil when none was sent.
func saveSingle(ctx context.Context, storage upload.Storage, kind upload.Kind, f *form, key string) (*string, error) {
	files := f.fileList(key)
	if len(files) == 0 {
		return nil, nil
	}
	paths, err := saveFiles(ctx, storage, kind, files[:1])
	if err != nil {
		return nil, err
	}
	return &paths[0], nil
}

// discard removes uploads stored for a request that then failed
func discard(ctx context.Context, storage upload.Storage, logger *zap.Logger, image *string, paths []string) {
	if image != nil {
		paths = append(paths, *image)
	}
	for _, p := range paths {
		if err := storage.Remove(context.WithoutCancel(ctx), p); err != nil {
			logger.Warn("failed to remove upload", zap.String("path", p), zap.Error(err))
		}
	}
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid id")
	}
	return id, nil
}
