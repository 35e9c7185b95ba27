package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrTooLarge       = errors.New("storage: file exceeds size limit")
	ErrTypeNotAllowed = errors.New("storage: file type not allowed")
)

// Policy constrains one kind of upload.
type Policy struct {
	Dir        string
	NamePrefix string
	MaxBytes   int64
	// Allowed holds media types; entries ending in "/" match a whole family.
	Allowed []string
	// Denied wins over Allowed.
	Denied []string
}

// activeContent lists types a browser may execute script from.
var activeContent = []string{"image/svg+xml", "text/html", "application/xhtml+xml", "text/xml", "application/xml"}

var (
	PhotoPolicy = Policy{
		Dir:        "users",
		NamePrefix: "user",
		MaxBytes:   5 << 20,
		Allowed:    []string{"image/"},
		Denied:     activeContent,
	}

	EvidencePolicy = Policy{
		Dir:        "cases",
		NamePrefix: "case",
		MaxBytes:   10 << 20,
		Allowed: []string{
			"image/",
			"video/",
			"audio/",
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
		Denied: activeContent,
	}
)

// Accepts reports whether the detected media type is allowed by the policy.
func (p Policy) Accepts(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		for _, d := range p.Denied {
			if m.Is(d) {
				return false
			}
		}
	}
	for m := mt; m != nil; m = m.Parent() {
		base := strings.ToLower(strings.SplitN(m.String(), ";", 2)[0])
		for _, a := range p.Allowed {
			if strings.HasSuffix(a, "/") && strings.HasPrefix(base, a) {
				return true
			}
			if base == a {
				return true
			}
		}
	}
	return false
}

// Intake validates uploads against a policy and hands them to a Store.
type Intake struct {
	store Store
	now   func() time.Time
}

func NewIntake(store Store) *Intake {
	return &Intake{store: store, now: time.Now}
}

// Save stores the file and returns the relative reference to embed in a record.
// The media type is detected from content, not from the client header.
func (in *Intake) Save(ctx context.Context, p Policy, fh *multipart.FileHeader) (string, error) {
	if fh.Size > p.MaxBytes {
		return "", ErrTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detect upload type: %w", err)
	}
	if !p.Accepts(mt) {
		return "", ErrTypeNotAllowed
	}
	if _, err := f.Seek(0, 0); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	ext := mt.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(fh.Filename))
	}
	name := fmt.Sprintf("%s-%d-%s%s", p.NamePrefix, in.now().UnixMilli(), uuid.NewString()[:8], ext)
	key := p.Dir + "/" + name

	if err := in.store.Put(ctx, key, f, fh.Size, mt.String()); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return Reference(key), nil
}

// Discard removes a previously saved reference. Used to roll back an upload
// whose owning record failed to persist.
func (in *Intake) Discard(ctx context.Context, ref string) error {
	key, err := KeyFromReference(ref)
	if err != nil {
		return err
	}
	return in.store.Delete(ctx, key)
}
