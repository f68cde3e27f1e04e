package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/model"
	"gorm.io/gorm"
)

// ResolveCourse inserts name unless a course with the same model.CourseKey
// exists, then reads the surviving row. Two concurrent callers race on the
// unique name_key index and both end up with the same id.
func (db *DB) ResolveCourse(ctx context.Context, name string) (*model.Course, error) {
	g := db.gorm.WithContext(ctx)
	key := model.CourseKey(name)

	err := g.Exec(
		`INSERT INTO courses (name, name_key) VALUES (?, ?) ON CONFLICT (name_key) DO NOTHING`, name, key,
	).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: creating course %q: %w", name, err)
	}

	var row courseRow
	if err := g.Where("name_key = ?", key).First(&row).Error; err != nil {
		return nil, fmt.Errorf("postgres: resolving course %q: %w", name, err)
	}
	return &model.Course{ID: row.ID, Name: row.Name}, nil
}

func (db *DB) ListCourses(ctx context.Context) ([]model.Course, error) {
	var rows []courseRow
	if err := db.gorm.WithContext(ctx).Order("name_key, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing courses: %w", err)
	}
	courses := make([]model.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, model.Course{ID: r.ID, Name: r.Name})
	}
	return courses, nil
}

func (db *DB) CreateReview(ctx context.Context, review *model.Review) error {
	row := reviewRow{
		UserID:    review.UserID,
		CourseID:  review.CourseID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.gorm.WithContext(ctx).Omit("User", "Course").Create(&row).Error; err != nil {
		return fmt.Errorf("postgres: inserting review (user=%d course=%d): %w", review.UserID, review.CourseID, err)
	}
	review.ID = row.ID
	review.CreatedAt = row.CreatedAt
	return nil
}

const joinedReviewColumns = `reviews.id, reviews.user_id, reviews.course_id, reviews.rating,
	reviews.comment, reviews.created_at,
	courses.name AS course_name, users.name AS user_name, users.image AS user_image`

func (db *DB) joinedReviews(ctx context.Context) *gorm.DB {
	return db.gorm.WithContext(ctx).
		Table("reviews").
		Select(joinedReviewColumns).
		Joins("JOIN courses ON courses.id = reviews.course_id").
		Joins("JOIN users ON users.id = reviews.user_id")
}

func (db *DB) GetReview(ctx context.Context, id int64) (*model.Review, error) {
	var row reviewJoinRow
	tx := db.joinedReviews(ctx).Where("reviews.id = ?", id).Limit(1).Scan(&row)
	if tx.Error != nil {
		return nil, fmt.Errorf("postgres: getting review %d: %w", id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, apperror.NotFound("review", id)
	}
	r := row.toModel()
	return &r, nil
}

func (db *DB) ListReviews(ctx context.Context) ([]model.Review, error) {
	return db.scanReviews(db.joinedReviews(ctx))
}

func (db *DB) ListReviewsByUser(ctx context.Context, userID int64) ([]model.Review, error) {
	return db.scanReviews(db.joinedReviews(ctx).Where("reviews.user_id = ?", userID))
}

func (db *DB) UpdateReview(ctx context.Context, review *model.Review) error {
	tx := db.gorm.WithContext(ctx).Model(&reviewRow{ID: review.ID}).
		Updates(map[string]any{"rating": review.Rating, "comment": review.Comment})
	return expectOneRow(tx, "review", review.ID)
}

func (db *DB) DeleteReview(ctx context.Context, id int64) error {
	tx := db.gorm.WithContext(ctx).Delete(&reviewRow{}, id)
	return expectOneRow(tx, "review", id)
}

func (db *DB) scanReviews(q *gorm.DB) ([]model.Review, error) {
	var rows []reviewJoinRow
	if err := q.Order("reviews.created_at DESC, reviews.id DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing reviews: %w", err)
	}
	reviews := make([]model.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, r.toModel())
	}
	return reviews, nil
}
