package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"resolveit/pkg/apperror"
)

const (
	// multipartMemory is held in memory per request; larger parts spill to disk.
	multipartMemory = 8 << 20

	// maxFormBody bounds any multipart request. It sits well above every
	// upload policy so per-file size limits are reported after the text
	// fields have been validated.
	maxFormBody   = 64 << 20
	jsonBodyLimit = 1 << 20
)

// parseForm reads a multipart form of at most maxFormBody bytes. A
// non-multipart body is parsed as a plain form with no files.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	err := r.ParseMultipartForm(multipartMemory)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			return apperror.Validation("Invalid form payload")
		}
		return nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.Validation("Request body exceeds the maximum allowed size")
		}
		return apperror.Validation("Invalid form payload")
	}
}

// formFile returns the first file uploaded under field, or nil.
func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// decodeJSON reads a JSON object body into a loose field map. An empty body
// yields an empty map.
func decodeJSON(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	fields := map[string]any{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, jsonBodyLimit))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperror.Validation("Invalid request payload")
	}
	return fields, nil
}

func stringField(fields map[string]any, name string) (string, bool) {
	s, ok := fields[name].(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

// boolField accepts JSON booleans, their string spellings and the numbers 0
// and 1.
func boolField(fields map[string]any, name string) (bool, bool) {
	switch v := fields[name].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	case json.Number:
		switch v.String() {
		case "1":
			return true, true
		case "0":
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}

// intField accepts integral JSON numbers and numeric strings within
// [min, max].
func intField(fields map[string]any, name string, min, max int) (int, bool) {
	var raw string
	switch v := fields[name].(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = v
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f != math.Trunc(f) || f < float64(min) || f > float64(max) {
		return 0, false
	}
	return int(f), true
}

// idField validates the case id. Ids that cannot name a stored case are
// reported as missing cases rather than bad input.
func idField(fields map[string]any) (string, error) {
	id, ok := stringField(fields, "id")
	if !ok {
		return "", apperror.Validation("id is required")
	}
	if !primitive.IsValidObjectID(id) {
		return "", apperror.New(apperror.KindNotFound, "Case not found")
	}
	return id, nil
}
