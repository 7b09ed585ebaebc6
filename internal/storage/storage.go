// Package storage keeps uploaded application documents outside the database.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"bloodlink-backend/internal/apperror"

	"github.com/google/uuid"
)

// MaxDocumentSize bounds a single upload.
const MaxDocumentSize = 10 << 20

// Object is where an uploaded document ended up.
type Object struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// DocumentStore uploads documents and hands out time-limited links to them.
type DocumentStore interface {
	Upload(ctx context.Context, fileName, contentType string, body io.Reader) (Object, error)
	SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectPath builds a collision-free key under documents/<yyyy>/<mm>/.
func objectPath(fileName string, now time.Time) (string, error) {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "", apperror.Validation("file", "file name is empty")
	}
	return fmt.Sprintf("documents/%s/%s-%s", now.UTC().Format("2006/01"), uuid.NewString(), base), nil
}

var allowedTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// CheckContentType rejects anything other than PDF, JPEG or PNG.
func CheckContentType(contentType string) error {
	ct := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if !allowedTypes[ct] {
		return apperror.Validation("file", "only PDF, JPEG and PNG documents are accepted")
	}
	return nil
}

func readLimited(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, apperror.Validation("file", "document exceeds 10 MB")
	}
	if len(data) == 0 {
		return nil, apperror.Validation("file", "document is empty")
	}
	return data, nil
}
