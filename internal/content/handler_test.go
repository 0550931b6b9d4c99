package content

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjstoneservices/site-api/internal/http/middleware"
	"github.com/fjstoneservices/site-api/pkg/logging"
)

const testSecret = "content-secret"

func newTestRouter(store Store) http.Handler {
	h := NewHandler(NewService(store, nil, logging.Discard()), logging.Discard())
	r := chi.NewRouter()
	r.With(middleware.AdminJWT(testSecret), middleware.RequireAdmin([]string{"owner@example.com"})).
		Post("/api/admin/content/update", h.Update)
	return r
}

func bearer(t *testing.T, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func postUpdate(t *testing.T, router http.Handler, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/content/update", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerUpdate_AuthErrors(t *testing.T) {
	router := newTestRouter(&fakeStore{})
	body := `{"key":"home.title","block_type":"text","value":{"text":"Hi"}}`

	assert.Equal(t, http.StatusUnauthorized, postUpdate(t, router, "", body).Code)
	assert.Equal(t, http.StatusForbidden, postUpdate(t, router, bearer(t, "visitor@example.com"), body).Code)
}

func TestHandlerUpdate_Success(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(store)

	rec := postUpdate(t, router, bearer(t, "owner@example.com"), `{"key":"about.intro","block_type":"text","value":{"text":"Family owned"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool  `json:"success"`
		Block   Block `json:"block"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "about", resp.Block.Page)
	assert.Equal(t, "Family owned", store.value.Text)
}

func TestHandlerUpdate_BadRequests(t *testing.T) {
	router := newTestRouter(&fakeStore{})
	auth := bearer(t, "owner@example.com")

	rec := postUpdate(t, router, auth, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postUpdate(t, router, auth, `{"key":"home.title","block_type":"video"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"details"`)
}

func TestHandlerUpdate_StoreFailureIsGeneric(t *testing.T) {
	router := newTestRouter(&fakeStore{err: errors.New(`pq: relation "content_blocks" does not exist`)})

	rec := postUpdate(t, router, bearer(t, "owner@example.com"), `{"key":"home.title","block_type":"text","value":{"text":"Hi"}}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "content_blocks")
}
