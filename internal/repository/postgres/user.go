package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/model"
	"gorm.io/gorm"
)

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	row := userRow{
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Image:        user.Image,
	}
	if err := db.gorm.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.Conflict("email is already registered")
		}
		return fmt.Errorf("postgres: inserting user (email=%s): %w", user.Email, err)
	}
	*user = *row.toModel()
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var row userRow
	if err := db.gorm.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return row.toModel(), nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var row userRow
	err := db.gorm.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&row).Error
	if err != nil {
		return nil, notFoundOr(err, "user with email", email)
	}
	return row.toModel(), nil
}

func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	if err := db.gorm.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing users: %w", err)
	}
	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, *r.toModel())
	}
	return users, nil
}

func (db *DB) UpdateProfile(ctx context.Context, user *model.User) error {
	tx := db.gorm.WithContext(ctx).Model(&userRow{ID: user.ID}).
		Updates(map[string]any{"name": user.Name, "image": user.Image})
	return expectOneRow(tx, "user", user.ID)
}

func (db *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tx := db.gorm.WithContext(ctx).Model(&userRow{ID: id}).Update("password_hash", passwordHash)
	return expectOneRow(tx, "user", id)
}

func (db *DB) LinkAccount(ctx context.Context, account model.OAuthAccount) error {
	row := oauthAccountRow{
		Provider:          account.Provider,
		ProviderAccountID: account.ProviderAccountID,
		UserID:            account.UserID,
	}
	if err := db.gorm.WithContext(ctx).Omit("User").Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.Conflict("account is already linked")
		}
		return fmt.Errorf("postgres: linking %s account for user %d: %w", account.Provider, account.UserID, err)
	}
	return nil
}

func (db *DB) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*model.User, error) {
	var row userRow
	err := db.gorm.WithContext(ctx).
		Joins("JOIN oauth_accounts a ON a.user_id = users.id").
		Where("a.provider = ? AND a.provider_account_id = ?", provider, providerAccountID).
		First(&row).Error
	if err != nil {
		return nil, notFoundOr(err, provider+" account", providerAccountID)
	}
	return row.toModel(), nil
}
