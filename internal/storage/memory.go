package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps objects in a map. Useful for tests and local runs
// without a disk or bucket.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	baseURL string
	signer  *Signer
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// WithSignedLinks makes SignedURL return {baseURL}/files/{token} links that
// a DownloadHandler built on the same signer can serve.
func (s *MemoryStore) WithSignedLinks(baseURL string, signer *Signer) *MemoryStore {
	s.baseURL = strings.TrimRight(baseURL, "/")
	s.signer = signer
	return s
}

// Put implements ObjectStore.
func (s *MemoryStore) Put(ctx context.Context, in PutObjectInput) error {
	if err := ValidatePath(in.Path); err != nil {
		return err
	}
	data, err := io.ReadAll(readerWithContext(ctx, in.Body))
	if err != nil {
		return fmt.Errorf("storage: read body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[in.Path]; ok {
		return ErrObjectExists
	}
	s.objects[in.Path] = memoryObject{data: data, contentType: in.ContentType}
	return nil
}

// SignedURL implements ObjectStore. Without WithSignedLinks the link uses
// the memory:// scheme, which only identifies the object; html/template
// rewrites it to #ZgotmplZ inside href attributes.
func (s *MemoryStore) SignedURL(_ context.Context, objectPath string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[objectPath]
	s.mu.RUnlock()
	if !ok {
		return "", ErrObjectNotFound
	}
	if s.signer != nil {
		token, _, err := s.signer.Generate(objectPath, ttl)
		if err != nil {
			return "", err
		}
		return s.baseURL + "/files/" + token, nil
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("memory://%s?expires=%d", url.PathEscape(objectPath), expires), nil
}

// Open implements Opener.
func (s *MemoryStore) Open(_ context.Context, objectPath string) (io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[objectPath]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete implements ObjectStore.
func (s *MemoryStore) Delete(_ context.Context, objectPath string) error {
	s.mu.Lock()
	delete(s.objects, objectPath)
	s.mu.Unlock()
	return nil
}

// Paths lists stored object paths.
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.objects))
	for p := range s.objects {
		out = append(out, p)
	}
	return out
}
