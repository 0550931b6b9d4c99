// Package storage keeps quote attachments in a private object store and
// issues time-limited links to them.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// PutObjectInput describes one upload.
type PutObjectInput struct {
	Path        string
	Body        io.Reader
	Size        int64
	ContentType string
}

// ObjectStore is a private, write-once blob store.
type ObjectStore interface {
	// Put stores the object and returns ErrObjectExists instead of overwriting.
	Put(ctx context.Context, in PutObjectInput) error
	// SignedURL returns a credential-less link that stops working after ttl.
	SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

// Opener is implemented by stores that serve their own downloads.
type Opener interface {
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
}

// ValidatePath accepts relative slash separated paths without dot segments.
func ValidatePath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) || strings.ContainsRune(p, 0) {
		return ErrInvalidPath
	}
	if path.Clean(p) != p {
		return ErrInvalidPath
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}
