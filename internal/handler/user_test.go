package handler_test

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/coursehub/internal/model"
)

func userPath(id int64) string {
	return fmt.Sprintf("/api/user/%d", id)
}

func TestUserHandler_GetIsPublicView(t *testing.T) {
	app := newTestApp(t)
	ann, _ := app.signUp("Ann", "ann@example.com")

	rr := app.do(http.MethodGet, userPath(ann.ID), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"name":"Ann"}`, ann.ID), rr.Body.String())

	rr = app.do(http.MethodGet, "/api/user/404", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = app.do(http.MethodGet, "/api/user/-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserHandler_List(t *testing.T) {
	app := newTestApp(t)
	app.signUp("Ann", "ann@example.com")
	app.signUp("Bob", "bob@example.com")

	rr := app.do(http.MethodGet, "/api/user", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "email")

	var users []model.PublicUser
	decode(t, rr, &users)
	assert.Len(t, users, 2)
}

func TestUserHandler_UpdateReissuesSession(t *testing.T) {
	app := newTestApp(t)
	ann, cookie := app.signUp("Ann", "ann@example.com")

	rr := app.do(http.MethodPut, userPath(ann.ID), map[string]string{
		"name": "Annabel", "image": "https://img.example.com/a.png",
	}, cookie)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var u model.PublicUser
	decode(t, rr, &u)
	assert.Equal(t, "Annabel", u.Name)
	assert.Equal(t, "https://img.example.com/a.png", u.Image)

	p, err := app.tokens.Validate(sessionCookie(t, rr).Value)
	require.NoError(t, err)
	assert.Equal(t, "Annabel", p.Name)
	assert.Equal(t, "https://img.example.com/a.png", p.Image)
}

func TestUserHandler_UpdateErrors(t *testing.T) {
	app := newTestApp(t)
	ann, annCookie := app.signUp("Ann", "ann@example.com")
	bob, _ := app.signUp("Bob", "bob@example.com")

	tests := []struct {
		name   string
		path   string
		body   map[string]string
		cookie *http.Cookie
		status int
	}{
		{"anonymous", userPath(ann.ID), map[string]string{"name": "X"}, nil, http.StatusUnauthorized},
		{"someone else", userPath(bob.ID), map[string]string{"name": "X"}, annCookie, http.StatusForbidden},
		{"empty name", userPath(ann.ID), map[string]string{"name": ""}, annCookie, http.StatusBadRequest},
		{"relative image", userPath(ann.ID), map[string]string{"name": "Ann", "image": "/me.png"}, annCookie, http.StatusBadRequest},
		{"ftp image", userPath(ann.ID), map[string]string{"name": "Ann", "image": "ftp://x/me.png"}, annCookie, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.do(http.MethodPut, tt.path, tt.body, tt.cookie)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestUserHandler_ChangePassword(t *testing.T) {
	app := newTestApp(t)
	ann, cookie := app.signUp("Ann", "ann@example.com")

	rr := app.do(http.MethodPut, userPath(ann.ID)+"/password", map[string]string{"password": "short"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.do(http.MethodPut, userPath(ann.ID)+"/password", map[string]string{"password": "battery staple"}, cookie)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = app.do(http.MethodPost, "/api/auth/signin", map[string]string{
		"email": "ann@example.com", "password": "battery staple",
	}, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func uploadRequest(t *testing.T, path string, content []byte, cookie *http.Cookie) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestUserHandler_UploadAvatar(t *testing.T) {
	store := &fakeAvatarStore{}
	app := newTestApp(t, withAvatars(store))
	ann, cookie := app.signUp("Ann", "ann@example.com")

	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, uploadRequest(t, userPath(ann.ID)+"/image", pngHeader, cookie))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var u model.PublicUser
	decode(t, rr, &u)
	require.Len(t, store.keys, 1)
	assert.Equal(t, "https://cdn.example.com/"+store.keys[0], u.Image)
	assert.Regexp(t, fmt.Sprintf(`^%d/\w+\.png$`, ann.ID), store.keys[0])
}

func TestUserHandler_UploadAvatarErrors(t *testing.T) {
	store := &fakeAvatarStore{}
	app := newTestApp(t, withAvatars(store))
	ann, cookie := app.signUp("Ann", "ann@example.com")

	t.Run("not an image", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.router.ServeHTTP(rr, uploadRequest(t, userPath(ann.ID)+"/image", []byte("plain text"), cookie))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		rr := app.do(http.MethodPost, userPath(ann.ID)+"/image", nil, cookie)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("storage down", func(t *testing.T) {
		store.err = errors.New("s3 unreachable")
		defer func() { store.err = nil }()
		rr := httptest.NewRecorder()
		app.router.ServeHTTP(rr, uploadRequest(t, userPath(ann.ID)+"/image", pngHeader, cookie))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "storage_unavailable", errorBody(t, rr).Error)
	})
}

func TestUserHandler_UploadAvatarDisabled(t *testing.T) {
	app := newTestApp(t)
	ann, cookie := app.signUp("Ann", "ann@example.com")

	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, uploadRequest(t, userPath(ann.ID)+"/image", pngHeader, cookie))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
