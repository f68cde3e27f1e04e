package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/auth"
	"github.com/sakif/coursehub/internal/model"
	"github.com/sakif/coursehub/internal/repository"
	"github.com/sakif/coursehub/internal/storage"
)

// MaxAvatarBytes caps uploaded profile pictures.
const MaxAvatarBytes = 5 << 20

// avatarTypes maps the sniffed content type to the stored file extension.
var avatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UserService reads public profiles and lets users edit their own.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	avatars   storage.AvatarStore // nil when uploads are not configured
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, avatars storage.AvatarStore, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		passwords: passwords,
		avatars:   avatars,
		logger:    logger,
	}
}

// AvatarsEnabled reports whether UploadAvatar can store files.
func (s *UserService) AvatarsEnabled() bool {
	return s.avatars != nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (model.PublicUser, error) {
	if id <= 0 {
		return model.PublicUser{}, apperror.ValidationFailed("userId", "user id must be a positive integer")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, gatewayErr(s.logger, "get user", err)
	}
	return user.Public(), nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, gatewayErr(s.logger, "list users", err)
	}
	out := make([]model.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

// UpdateUser changes the caller's own name and image. image may be empty
// (no picture) or an absolute http(s) URL.
func (s *UserService) UpdateUser(ctx context.Context, p model.Principal, id int64, name, image string) (*model.User, error) {
	if err := requireOwner(p, id, "profile"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	image = strings.TrimSpace(image)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateImageURL(image); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, gatewayErr(s.logger, "get user", err)
	}
	user.Name = name
	user.Image = image
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, gatewayErr(s.logger, "update profile", err)
	}

	s.logger.Info("profile updated", slog.Int64("userID", id))
	return user, nil
}

// ChangePassword sets a new password on the caller's own account. OAuth-only
// accounts gain credentials sign-in this way.
func (s *UserService) ChangePassword(ctx context.Context, p model.Principal, id int64, password string) error {
	if err := requireOwner(p, id, "password"); err != nil {
		return err
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		if apperror.IsDomain(err) {
			return err
		}
		return fmt.Errorf("service/user: hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return gatewayErr(s.logger, "update password", err)
	}

	s.logger.Info("password changed", slog.Int64("userID", id))
	return nil
}

// UploadAvatar stores an image as the caller's profile picture and points
// image at it. The type is sniffed from the bytes, not taken from the client.
func (s *UserService) UploadAvatar(ctx context.Context, p model.Principal, id int64, body io.Reader) (*model.User, error) {
	if err := requireOwner(p, id, "picture"); err != nil {
		return nil, err
	}
	if s.avatars == nil {
		return nil, apperror.Unavailable(errors.New("avatar storage is not configured"))
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxAvatarBytes+1))
	if err != nil {
		return nil, apperror.ValidationFailed("image", "could not read upload")
	}
	if len(data) == 0 {
		return nil, apperror.ValidationFailed("image", "image is empty")
	}
	if len(data) > MaxAvatarBytes {
		return nil, apperror.ValidationFailed("image", "image must be 5 MiB or smaller")
	}
	contentType := http.DetectContentType(data)
	ext, ok := avatarTypes[contentType]
	if !ok {
		return nil, apperror.ValidationFailed("image", "image must be a JPEG, PNG, GIF or WebP file")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, gatewayErr(s.logger, "get user", err)
	}

	key := fmt.Sprintf("%d/%s%s", id, xid.New().String(), ext)
	location, err := s.avatars.PutAvatar(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		s.logger.Error("avatar upload failed", slog.Int64("userID", id), slog.String("error", err.Error()))
		return nil, apperror.Unavailable(err)
	}

	user.Image = location
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, gatewayErr(s.logger, "update profile", err)
	}

	s.logger.Info("avatar uploaded",
		slog.Int64("userID", id),
		slog.Int("bytes", len(data)),
		slog.String("contentType", contentType),
	)
	return user, nil
}

func validateImageURL(image string) error {
	if image == "" {
		return nil
	}
	u, err := url.Parse(image)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.ValidationFailed("image", "image must be an http or https URL")
	}
	return nil
}
