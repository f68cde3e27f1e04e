package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/model"
	"github.com/sakif/coursehub/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, email, password_hash, image, created_at, updated_at`

// CreateUser inserts a new user and fills in ID and timestamps.
// A duplicate email (case-insensitive) is reported as a Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Image,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email is already registered")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: user last insert id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row, "user", id)
}

// GetUserByEmail matches the email case-insensitively (column collation).
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row, "user with email", email)
}

func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// UpdateProfile writes name and image. Email and password are untouched.
func (db *DB) UpdateProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, image = ?, updated_at = ? WHERE id = ?`,
		user.Name,
		user.Image,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %d: %w", user.ID, err)
	}
	return expectOneRow(result, "user", user.ID)
}

func (db *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %d: %w", id, err)
	}
	return expectOneRow(result, "user", id)
}

// LinkAccount records an external identity for a user. Linking the same
// identity twice is a Conflict.
func (db *DB) LinkAccount(ctx context.Context, account model.OAuthAccount) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO oauth_accounts (provider, provider_account_id, user_id) VALUES (?, ?, ?)`,
		account.Provider,
		account.ProviderAccountID,
		account.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account is already linked")
		}
		return fmt.Errorf("sqlite: linking %s account for user %d: %w", account.Provider, account.UserID, err)
	}
	return nil
}

func (db *DB) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT u.id, u.name, u.email, u.password_hash, u.image, u.created_at, u.updated_at
		 FROM oauth_accounts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.provider = ? AND a.provider_account_id = ?`,
		provider, providerAccountID,
	)
	return scanUser(row, provider+" account", providerAccountID)
}

func scanUser(row *sql.Row, resource string, key any) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(resource, key)
		}
		return nil, fmt.Errorf("sqlite: scanning %s %v: %w", resource, key, err)
	}
	return &u, nil
}

// expectOneRow turns "0 rows affected" into NotFound.
func expectOneRow(result sql.Result, resource string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
