package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/auth"
	"github.com/sakif/coursehub/internal/model"
	"github.com/sakif/coursehub/internal/service"
)

// avatarFormField is the multipart field holding the uploaded picture.
const avatarFormField = "image"

// UserHandler serves /api/user. Profile changes reissue the session cookie
// so the principal carries the new name and image.
type UserHandler struct {
	users   *service.UserService
	auth    *service.AuthService
	cookies SessionCookies
	logger  *slog.Logger
}

func NewUserHandler(users *service.UserService, authService *service.AuthService, cookies SessionCookies, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:   users,
		auth:    authService,
		cookies: cookies,
		logger:  logger,
	}
}

type updateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Image string `json:"image" validate:"omitempty,http_url"`
}

type changePasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// HandleList returns the public view of every user.
//
// HTTP: GET /api/user
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleGet returns {id, name, image}.
//
// HTTP: GET /api/user/{userId}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate changes the caller's name and picture URL.
//
// HTTP: PUT /api/user/{userId}  {"name","image"}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, id, err := h.principalFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateUser(r.Context(), p, id, req.Name, req.Image)
	if err != nil {
		writeError(w, err)
		return
	}
	h.refreshSession(w, user)
	writeJSON(w, http.StatusOK, user.Public())
}

// HandleChangePassword sets a new password.
//
// HTTP: PUT /api/user/{userId}/password  {"password"} → 204
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, id, err := h.principalFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), p, id, req.Password); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadAvatar stores an uploaded picture and points the profile at it.
//
// HTTP: POST /api/user/{userId}/image  multipart/form-data, field "image"
func (h *UserHandler) HandleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	if !h.users.AvatarsEnabled() {
		writeError(w, apperror.NotFound("route", r.URL.Path))
		return
	}

	p, id, err := h.principalFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// Leave room for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarBytes+64<<10)
	file, _, err := r.FormFile(avatarFormField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, apperror.ValidationFailed(avatarFormField, "image must be 5 MiB or smaller"))
			return
		}
		writeError(w, apperror.ValidationFailed(avatarFormField, "an image file is required"))
		return
	}
	defer file.Close()

	user, err := h.users.UploadAvatar(r.Context(), p, id, file)
	if err != nil {
		writeError(w, err)
		return
	}
	h.refreshSession(w, user)
	writeJSON(w, http.StatusOK, user.Public())
}

func (h *UserHandler) principalFor(r *http.Request) (model.Principal, int64, error) {
	id, err := pathID(r, "userId")
	if err != nil {
		return model.Principal{}, 0, err
	}
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return model.Principal{}, 0, apperror.Unauthorized("sign in required")
	}
	return p, id, nil
}

// refreshSession reissues the cookie after a profile change. On failure the
// old token stays valid and shows the previous name until it expires.
func (h *UserHandler) refreshSession(w http.ResponseWriter, user *model.User) {
	token, err := h.auth.Token(user)
	if err != nil {
		h.logger.Warn("reissuing session token",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	h.cookies.set(w, token)
}
