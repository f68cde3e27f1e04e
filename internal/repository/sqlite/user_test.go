package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "$2a$04$hash"}
	require.NoError(t, db.CreateUser(context.Background(), user))

	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := db.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "$2a$04$hash", got.PasswordHash)
}

func TestCreateUser_DuplicateEmailIsConflict(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "Ann", "ann@example.com")

	err := db.CreateUser(context.Background(), &model.User{Name: "Other", Email: "ANN@example.com"})

	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), 999)

	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "Ann", "ann@example.com")

	got, err := db.GetUserByEmail(context.Background(), "Ann@Example.COM")

	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestUpdateProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "Ann", "ann@example.com")

	user.Name = "Ann B."
	user.Image = "https://example.com/ann.png"
	require.NoError(t, db.UpdateProfile(ctx, user))

	got, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", got.Name)
	assert.Equal(t, "https://example.com/ann.png", got.Image)
	assert.Equal(t, "ann@example.com", got.Email)
}

func TestUpdateProfile_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateProfile(context.Background(), &model.User{ID: 42, Name: "Ghost"})

	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "Ann", "ann@example.com")

	require.NoError(t, db.UpdatePassword(ctx, user.ID, "$2a$04$newhash"))

	got, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.HasPassword())
	assert.Equal(t, "$2a$04$newhash", got.PasswordHash)
}

func TestListUsers(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "Ann", "ann@example.com")
	createTestUser(t, db, "Bob", "bob@example.com")

	users, err := db.ListUsers(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Ann", users[0].Name)
	assert.Equal(t, "Bob", users[1].Name)
}

func TestLinkAccount_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "Ann", "ann@example.com")

	require.NoError(t, db.LinkAccount(ctx, model.OAuthAccount{
		Provider: "google", ProviderAccountID: "sub-123", UserID: user.ID,
	}))

	got, err := db.GetUserByAccount(ctx, "google", "sub-123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = db.GetUserByAccount(ctx, "github", "sub-123")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestLinkAccount_DuplicateIsConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "Ann", "ann@example.com")
	account := model.OAuthAccount{Provider: "google", ProviderAccountID: "sub-123", UserID: user.ID}
	require.NoError(t, db.LinkAccount(ctx, account))

	err := db.LinkAccount(ctx, account)

	assert.ErrorIs(t, err, apperror.ErrConflict)
}
