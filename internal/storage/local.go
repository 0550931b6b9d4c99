package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore persists objects on disk and hands out links to the signed
// download route. Used for single-host deployments and development.
type LocalStore struct {
	baseDir string
	baseURL string
	signer  *Signer
}

// NewLocalStore ensures the base directory exists. baseURL is the public
// origin that serves /files/{token}.
func NewLocalStore(baseDir, baseURL string, signer *Signer) (*LocalStore, error) {
	if signer == nil {
		return nil, errors.New("storage: signer required")
	}
	if baseDir == "" {
		baseDir = "./data/quote-uploads"
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/"), signer: signer}, nil
}

// Put writes the object with O_EXCL so existing files are never replaced.
func (s *LocalStore) Put(ctx context.Context, in PutObjectInput) error {
	target, err := s.resolve(in.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return fmt.Errorf("storage: prepare directory: %w", err)
	}
	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrObjectExists
		}
		return fmt.Errorf("storage: create %s: %w", in.Path, err)
	}
	_, copyErr := io.Copy(file, readerWithContext(ctx, in.Body))
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(target)
		return fmt.Errorf("storage: write %s: %w", in.Path, errors.Join(copyErr, closeErr))
	}
	return nil
}

// SignedURL returns {baseURL}/files/{token}.
func (s *LocalStore) SignedURL(_ context.Context, objectPath string, ttl time.Duration) (string, error) {
	if err := ValidatePath(objectPath); err != nil {
		return "", err
	}
	token, _, err := s.signer.Generate(objectPath, ttl)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/files/" + token, nil
}

// Open returns a read handle for objectPath.
func (s *LocalStore) Open(_ context.Context, objectPath string) (io.ReadCloser, error) {
	target, err := s.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("storage: open %s: %w", objectPath, err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStore) Delete(_ context.Context, objectPath string) error {
	target, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", objectPath, err)
	}
	return nil
}

func (s *LocalStore) resolve(objectPath string) (string, error) {
	if err := ValidatePath(objectPath); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(objectPath)), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
