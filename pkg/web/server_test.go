package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftql/sift/internal/cache"
	"github.com/siftql/sift/internal/fixture"
)

func get(t *testing.T, srv *Server, target string, header http.Header) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vs := range header {
		req.Header[k] = vs
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandleQuery(t *testing.T) {
	srv := NewServer(fixture.Store())

	rec, body := get(t, srv, "/river?length=%3E2000&c:count=1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["status"])
	assert.Equal(t, float64(3), body["count"])
	assert.Len(t, body["rows"], 3)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHandleQueryFailure(t *testing.T) {
	srv := NewServer(fixture.Store())

	rec, body := get(t, srv, "/country?altitude=12", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["status"])
	assert.Equal(t, "UNKNOWN_ATTRIBUTE", body["code"])
}

func TestHandleUnknownEntity(t *testing.T) {
	srv := NewServer(fixture.Store())

	rec, body := get(t, srv, "/planet", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_ENTITY", body["code"])
}

func TestHealth(t *testing.T) {
	srv := NewServer(fixture.Store())
	rec, body := get(t, srv, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["status"])
}

func TestCachedQuery(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	srv := NewServer(fixture.Store(),
		WithCache(cache.New(client, time.Minute, nil)))

	rec, _ := get(t, srv, "/country?name=France", nil)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	rec, body := get(t, srv, "/country?name=France", nil)
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, true, body["status"])
	assert.Len(t, body["rows"], 1)
}

// Failure envelopes are never cached.
func TestFailureNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	srv := NewServer(fixture.Store(),
		WithCache(cache.New(client, time.Minute, nil)))

	get(t, srv, "/country?altitude=1", nil)
	rec, _ := get(t, srv, "/country?altitude=1", nil)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

type denyRivers struct{}

func (denyRivers) CanView(user interface{}, entity string) bool {
	return user == "admin" || entity != "river"
}

func bearer(t *testing.T, key []byte, sub string) http.Header {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + signed}}
}

func TestPermissionsViaBearerToken(t *testing.T) {
	key := []byte("test-key")
	srv := NewServer(fixture.Store(),
		WithJWTKey(key),
		WithPermissions(denyRivers{}))

	// Anonymous callers may not traverse into rivers.
	rec, body := get(t, srv, "/country?rivers.length=%3E2000", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_ATTRIBUTE", body["code"])

	rec, _ = get(t, srv, "/country?rivers.length=%3E2000", bearer(t, key, "admin"))
	assert.Equal(t, http.StatusOK, rec.Code)

	// A token signed with the wrong key stays anonymous.
	rec, _ = get(t, srv, "/country?rivers.length=%3E2000", bearer(t, []byte("other"), "admin"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
