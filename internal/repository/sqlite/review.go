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

var _ repository.ReviewRepository = (*DB)(nil)

// selectReviews joins each review with its course name and author.
const selectReviews = `
	SELECT r.id, r.user_id, r.course_id, r.rating, r.comment, r.created_at,
	       c.name, u.name, u.image
	FROM reviews r
	JOIN courses c ON c.id = r.course_id
	JOIN users u ON u.id = r.user_id`

// CreateReview inserts review and fills in ID and CreatedAt. The caller is
// responsible for clamping the rating; the CHECK constraint rejects
// anything outside [0,5].
func (db *DB) CreateReview(ctx context.Context, review *model.Review) error {
	review.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO reviews (user_id, course_id, rating, comment, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		review.UserID,
		review.CourseID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting review (user=%d course=%d): %w", review.UserID, review.CourseID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: review last insert id: %w", err)
	}
	review.ID = id
	return nil
}

// GetReview returns apperror.ErrNotFound if no review exists with that ID.
func (db *DB) GetReview(ctx context.Context, id int64) (*model.Review, error) {
	row := db.conn.QueryRowContext(ctx, selectReviews+` WHERE r.id = ?`, id)

	r, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("review", id)
		}
		return nil, fmt.Errorf("sqlite: getting review %d: %w", id, err)
	}
	return r, nil
}

// ListReviews returns every review, newest first.
func (db *DB) ListReviews(ctx context.Context) ([]model.Review, error) {
	return db.queryReviews(ctx, selectReviews+` ORDER BY r.created_at DESC, r.id DESC`)
}

// ListReviewsByUser returns an empty slice (not an error) when the user has
// written nothing.
func (db *DB) ListReviewsByUser(ctx context.Context, userID int64) ([]model.Review, error) {
	return db.queryReviews(ctx,
		selectReviews+` WHERE r.user_id = ? ORDER BY r.created_at DESC, r.id DESC`, userID)
}

// UpdateReview writes rating and comment. user_id, course_id and
// created_at are never part of the SET clause.
func (db *DB) UpdateReview(ctx context.Context, review *model.Review) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, comment = ? WHERE id = ?`,
		review.Rating,
		review.Comment,
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating review %d: %w", review.ID, err)
	}
	return expectOneRow(result, "review", review.ID)
}

func (db *DB) DeleteReview(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %d: %w", id, err)
	}
	return expectOneRow(result, "review", id)
}

func (db *DB) queryReviews(ctx context.Context, query string, args ...any) ([]model.Review, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews: %w", err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		reviews = append(reviews, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}
	return reviews, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReview(s scanner) (*model.Review, error) {
	var r model.Review
	if err := s.Scan(
		&r.ID, &r.UserID, &r.CourseID, &r.Rating, &r.Comment, &r.CreatedAt,
		&r.Course.Name, &r.User.Name, &r.User.Image,
	); err != nil {
		return nil, err
	}
	r.Course.ID = r.CourseID
	r.User.ID = r.UserID
	return &r, nil
}
