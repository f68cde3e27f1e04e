// Package repository declares the persistence gateway used by the services.
//
// Implementations (sqlite, postgres) own durable storage of users, courses
// and reviews and provide single-row atomicity; services hold no state of
// their own. Lookups that find nothing return an apperror NotFound.
package repository

import (
	"context"

	"github.com/sakif/coursehub/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	// UpdateProfile persists name and image only.
	UpdateProfile(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// LinkAccount records (provider, providerAccountID) → user.
	LinkAccount(ctx context.Context, account model.OAuthAccount) error
	// GetUserByAccount returns the user linked to an external identity.
	GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*model.User, error)
}

type CourseRepository interface {
	// ResolveCourse returns the course whose name matches name
	// case-insensitively, creating it first if none exists. Concurrent calls
	// with the same name yield the same row.
	ResolveCourse(ctx context.Context, name string) (*model.Course, error)
	ListCourses(ctx context.Context) ([]model.Course, error)
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *model.Review) error
	// GetReview returns the review joined with its course and author.
	GetReview(ctx context.Context, id int64) (*model.Review, error)
	ListReviews(ctx context.Context) ([]model.Review, error)
	ListReviewsByUser(ctx context.Context, userID int64) ([]model.Review, error)
	// UpdateReview persists rating and comment only.
	UpdateReview(ctx context.Context, review *model.Review) error
	DeleteReview(ctx context.Context, id int64) error
}

// Gateway bundles every repository a backend provides, plus lifecycle.
type Gateway interface {
	UserRepository
	CourseRepository
	ReviewRepository
	Ping(ctx context.Context) error
	Close() error
}
