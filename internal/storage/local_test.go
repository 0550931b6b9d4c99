package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "https://example.com/", NewSigner("secret"))
	require.NoError(t, err)
	return store, dir
}

func TestLocalStore_PutOpenDelete(t *testing.T) {
	store, dir := newLocalStore(t)
	ctx := context.Background()

	err := store.Put(ctx, PutObjectInput{Path: "lead-1/1-a.png", Body: strings.NewReader("png-bytes"), ContentType: "image/png"})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "lead-1", "1-a.png"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	rc, err := store.Open(ctx, "lead-1/1-a.png")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, "lead-1/1-a.png"))
	_, err = store.Open(ctx, "lead-1/1-a.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.NoError(t, store.Delete(ctx, "lead-1/1-a.png"))
}

func TestLocalStore_NeverOverwrites(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, PutObjectInput{Path: "l/x.jpg", Body: strings.NewReader("first")}))
	err := store.Put(ctx, PutObjectInput{Path: "l/x.jpg", Body: strings.NewReader("second")})
	assert.ErrorIs(t, err, ErrObjectExists)

	rc, err := store.Open(ctx, "l/x.jpg")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "first", string(data))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, _ := newLocalStore(t)
	err := store.Put(context.Background(), PutObjectInput{Path: "../escape.jpg", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLocalStore_SignedURL(t *testing.T) {
	store, _ := newLocalStore(t)
	link, err := store.SignedURL(context.Background(), "lead-1/a.jpg", 24*time.Hour)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "https://example.com/files/"))

	token := strings.TrimPrefix(link, "https://example.com/files/")
	objectPath, _, err := store.signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "lead-1/a.jpg", objectPath)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, PutObjectInput{Path: "a/b.jpg", Body: strings.NewReader("x")}))
	assert.ErrorIs(t, store.Put(ctx, PutObjectInput{Path: "a/b.jpg", Body: strings.NewReader("y")}), ErrObjectExists)

	link, err := store.SignedURL(ctx, "a/b.jpg", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "memory://"))

	_, err = store.SignedURL(ctx, "missing.jpg", time.Hour)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, store.Delete(ctx, "a/b.jpg"))
	assert.Empty(t, store.Paths())
}

func TestMemoryStoreSignedLinksAreServable(t *testing.T) {
	signer := NewSigner("secret")
	store := NewMemoryStore().WithSignedLinks("http://localhost:8080/", signer)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, PutObjectInput{Path: "lead-1/a.png", Body: strings.NewReader("png")}))

	link, err := store.SignedURL(ctx, "lead-1/a.png", time.Hour)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "http://localhost:8080/files/"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, strings.TrimPrefix(link, "http://localhost:8080"), nil)
	newDownloadRouter(store, signer).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
}
