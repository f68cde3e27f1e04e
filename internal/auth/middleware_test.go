package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoPrincipal writes the principal's id, or "anonymous".
func echoPrincipal(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		w.Write([]byte("anonymous"))
		return
	}
	json.NewEncoder(w).Encode(p)
}

func requestWithToken(t *testing.T, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, err := ts.Generate(testPrincipal)
	require.NoError(t, err)
	expired, err := ts.GenerateWithDuration(testPrincipal, -time.Minute)
	require.NoError(t, err)

	h := RequireAuth(ts)(http.HandlerFunc(echoPrincipal))

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"no cookie", "", http.StatusUnauthorized},
		{"garbage", "garbage", http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"valid", valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestWithToken(t, tt.token))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error":"unauthorized"`)
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRequireAuth_PrincipalReachesHandler(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(testPrincipal)
	rec := httptest.NewRecorder()

	RequireAuth(ts)(http.HandlerFunc(echoPrincipal)).ServeHTTP(rec, requestWithToken(t, token))

	assert.JSONEq(t,
		`{"id":42,"name":"Ann Lee","email":"ann@example.com","image":"https://example.com/ann.png"}`,
		rec.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(testPrincipal)
	h := OptionalAuth(ts)(http.HandlerFunc(echoPrincipal))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken(t, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken(t, "garbage"))
	assert.Equal(t, "anonymous", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken(t, token))
	assert.Contains(t, rec.Body.String(), `"id":42`)
}
