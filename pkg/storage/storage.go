package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

// URLPrefix is the static root every stored reference lives under.
const URLPrefix = "/uploads/"

var (
	ErrNotFound   = errors.New("storage: object not found")
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Object is an opened stored file.
type Object interface {
	io.ReadSeekCloser
}

// Info describes a stored object.
type Info struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store persists evidence blobs under slash-separated keys such as
// "cases/case-<unique>.pdf".
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (Object, Info, error)
	Delete(ctx context.Context, key string) error
}

// Reference converts a key into the relative path embedded in records.
func Reference(key string) string {
	return URLPrefix + key
}

// KeyFromReference is the inverse of Reference.
func KeyFromReference(ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, URLPrefix)
	if !ok {
		return "", ErrInvalidKey
	}
	return key, validateKey(key)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return ErrInvalidKey
		}
	}
	return nil
}

// Handler serves stored objects read-only. Mount it behind
// http.StripPrefix(URLPrefix, ...).
func Handler(store Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		key := strings.TrimPrefix(r.URL.Path, "/")
		if validateKey(key) != nil {
			http.NotFound(w, r)
			return
		}

		obj, info, err := store.Open(r.Context(), key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to read file", http.StatusInternalServerError)
			return
		}
		defer obj.Close()

		if info.ContentType != "" {
			w.Header().Set("Content-Type", info.ContentType)
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if !inlineSafe(info.ContentType) {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
			w.Header().Set("Content-Disposition", "attachment")
		}
		http.ServeContent(w, r, path.Base(key), info.ModTime, obj)
	})
}

// inlineSafe reports whether a browser can render the type without running
// script. Everything else is served as a sandboxed download.
func inlineSafe(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case ct == "image/svg+xml":
		return false
	case strings.HasPrefix(ct, "image/"), strings.HasPrefix(ct, "video/"), strings.HasPrefix(ct, "audio/"):
		return true
	case ct == "application/pdf":
		return true
	}
	return false
}
