package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/auth"
	"github.com/sakif/coursehub/internal/handler"
	sqliteRepo "github.com/sakif/coursehub/internal/repository/sqlite"
	"github.com/sakif/coursehub/internal/server"
	"github.com/sakif/coursehub/internal/service"
)

// newAPIServer runs the real router over an in-memory database.
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("client-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	router, err := server.NewRouter(server.Deps{
		Gateway: db,
		Tokens:  tokens,
		Reviews: service.NewReviewService(db, nil, nil, logger),
		Users:   service.NewUserService(db, passwords, nil, logger),
		Auth:    service.NewAuthService(db, tokens, passwords, nil, logger),
		Cookies: handler.SessionCookies{TTL: tokens.TTL()},
	}, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "://nope"} {
		_, err := New(raw)
		assert.Error(t, err, "New(%q)", raw)
	}
}

func TestClient_ReviewLifecycle(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()
	c := newClient(t, srv.URL)

	me, err := c.SignUp(ctx, "Ann", "ann@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Token())

	session, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, me, session)

	r, err := c.CreateReview(ctx, me.ID, "Algorithms", 7, "Great", "key-1")
	require.NoError(t, err)
	assert.Equal(t, 5, r.Rating)

	again, err := c.CreateReview(ctx, me.ID, "Algorithms", 7, "Great", "key-1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, again.ID)

	updated, err := c.UpdateReview(ctx, me.ID, r.ID, 3, "Good")
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Rating)

	mine, err := c.ListReviewsByUser(ctx, me.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	courses, err := c.ListAllCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Algorithms", courses[0].Name)

	require.NoError(t, c.DeleteReview(ctx, me.ID, r.ID))
	all, err := c.ListAllReviews(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, c.SignOut(ctx))
	assert.Empty(t, c.Token())
	_, err = c.Session(ctx)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestClient_ErrorKindsSurviveTheWire(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()

	ann := newClient(t, srv.URL)
	annP, err := ann.SignUp(ctx, "Ann", "ann@example.com", "correct horse")
	require.NoError(t, err)
	r, err := ann.CreateReview(ctx, annP.ID, "Databases", 3, "ok", "")
	require.NoError(t, err)

	bob := newClient(t, srv.URL)
	bobP, err := bob.SignUp(ctx, "Bob", "bob@example.com", "correct horse")
	require.NoError(t, err)

	_, err = bob.CreateReview(ctx, bobP.ID, "", 3, "ok", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "course_name is required", err.Error())

	err = bob.DeleteReview(ctx, bobP.ID, r.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = bob.UpdateReview(ctx, bobP.ID, 9999, 1, "x")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = bob.SignUp(ctx, "Ann again", "ann@example.com", "correct horse")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = bob.SignIn(ctx, "ann@example.com", "wrong horse")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestClient_RestoresSavedToken(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()

	first := newClient(t, srv.URL)
	me, err := first.SignUp(ctx, "Ann", "ann@example.com", "correct horse")
	require.NoError(t, err)

	second := newClient(t, srv.URL)
	second.SetToken(first.Token())
	got, err := second.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, me.ID, got.ID)
}

func TestClient_UserProfile(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()
	c := newClient(t, srv.URL)
	me, err := c.SignUp(ctx, "Ann", "ann@example.com", "correct horse")
	require.NoError(t, err)

	u, err := c.UpdateUser(ctx, me.ID, "Annabel", "")
	require.NoError(t, err)
	assert.Equal(t, "Annabel", u.Name)

	got, err := c.GetUser(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	session, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Annabel", session.Name, "profile update reissues the session")
}

func TestClient_ServerErrorsAreUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"storage unavailable", http.StatusServiceUnavailable, `{"error":"storage_unavailable","message":"storage is unavailable, please try again"}`},
		{"internal error", http.StatusInternalServerError, `{"error":"internal_error","message":"An internal error occurred"}`},
		{"proxy page", http.StatusBadGateway, `<html>bad gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL).ListAllReviews(context.Background())
			assert.True(t, IsUnavailable(err), "got %v", err)

			var status *StatusError
			require.True(t, errors.As(err.(*apperror.AppError).Cause, &status))
			assert.Equal(t, tt.status, status.Code)
		})
	}
}

func TestClient_PlainTextErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).ListAllCourses(context.Background())
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "invalid OAuth state", err.Error())
}

func TestClient_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newClient(t, srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.ListAllReviews(context.Background())
	assert.True(t, IsUnavailable(err), "got %v", err)
}

func TestClient_ConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url).ListAllReviews(context.Background())
	assert.True(t, IsUnavailable(err))
}
