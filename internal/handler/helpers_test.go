package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/coursehub/internal/auth"
	"github.com/sakif/coursehub/internal/handler"
	"github.com/sakif/coursehub/internal/model"
	sqliteRepo "github.com/sakif/coursehub/internal/repository/sqlite"
	"github.com/sakif/coursehub/internal/server"
	"github.com/sakif/coursehub/internal/service"
	"github.com/sakif/coursehub/internal/storage"
)

const testSecret = "handler-test-secret-0123456789"

// testApp is the full router over an in-memory SQLite database.
type testApp struct {
	t       *testing.T
	router  http.Handler
	db      *sqliteRepo.DB
	tokens  *auth.TokenService
	avatars *fakeAvatarStore
}

type appOption func(*appConfig)

type appConfig struct {
	avatars   *fakeAvatarStore
	providers []auth.Provider
}

func withAvatars(s *fakeAvatarStore) appOption {
	return func(c *appConfig) { c.avatars = s }
}

func withProviders(p ...auth.Provider) appOption {
	return func(c *appConfig) { c.providers = p }
}

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()
	var cfg appConfig
	for _, o := range opts {
		o(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	var avatars storage.AvatarStore
	if cfg.avatars != nil {
		avatars = cfg.avatars
	}

	router, err := server.NewRouter(server.Deps{
		Gateway: db,
		Tokens:  tokens,
		Reviews: service.NewReviewService(db, nil, nil, logger),
		Users:   service.NewUserService(db, passwords, avatars, logger),
		Auth:    service.NewAuthService(db, tokens, passwords, cfg.providers, logger),
		Cookies: handler.SessionCookies{TTL: tokens.TTL()},
	}, logger)
	require.NoError(t, err)

	return &testApp{t: t, router: router, db: db, tokens: tokens, avatars: cfg.avatars}
}

// do sends a request; body is JSON-encoded unless it is already a string.
func (a *testApp) do(method, path string, body any, cookie *http.Cookie, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

// signUp registers a user through the API and returns the principal and
// session cookie.
func (a *testApp) signUp(name, email string) (model.Principal, *http.Cookie) {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"name": name, "email": email, "password": "correct horse",
	}, nil)
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())

	var p model.Principal
	decode(a.t, rr, &p)
	return p, sessionCookie(a.t, rr)
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.CookieName)
	return nil
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(dst), "body: %s", rr.Body.String())
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var e handler.ErrorResponse
	decode(t, rr, &e)
	return e
}

type fakeAvatarStore struct {
	keys []string
	err  error
}

func (f *fakeAvatarStore) PutAvatar(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	io.Copy(io.Discard, body)
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key, nil
}
