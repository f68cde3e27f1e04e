// Package service holds the business rules. Handlers call it with plain Go
// values (the principal is always an explicit argument) and it talks to
// storage only through repository.Gateway.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/events"
	"github.com/sakif/coursehub/internal/idempotency"
	"github.com/sakif/coursehub/internal/model"
	"github.com/sakif/coursehub/internal/repository"
)

const (
	MaxCourseNameLength = 200
	MaxCommentLength    = 5000
)

// ReviewStore is the part of the gateway the review service needs.
type ReviewStore interface {
	repository.CourseRepository
	repository.ReviewRepository
}

type ReviewService struct {
	repo   ReviewStore
	idem   idempotency.Store
	events events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewReviewService(repo ReviewStore, idem idempotency.Store, pub events.Publisher, logger *slog.Logger) *ReviewService {
	if idem == nil {
		idem = idempotency.NewMemoryStore(idempotency.DefaultTTL)
	}
	if pub == nil {
		pub = events.Noop{}
	}
	return &ReviewService{
		repo:   repo,
		idem:   idem,
		events: pub,
		logger: logger,
		now:    time.Now,
	}
}

// ListAllReviews returns every review joined with its course and author.
// Callers must not rely on the order; sorting is up to the view.
func (s *ReviewService) ListAllReviews(ctx context.Context) ([]model.Review, error) {
	reviews, err := s.repo.ListReviews(ctx)
	if err != nil {
		return nil, gatewayErr(s.logger, "list reviews", err)
	}
	return reviews, nil
}

// ListReviewsByUser returns an empty slice when the user has no reviews.
func (s *ReviewService) ListReviewsByUser(ctx context.Context, userID int64) ([]model.Review, error) {
	if userID <= 0 {
		return nil, apperror.ValidationFailed("userId", "user id must be a positive integer")
	}
	reviews, err := s.repo.ListReviewsByUser(ctx, userID)
	if err != nil {
		return nil, gatewayErr(s.logger, "list user reviews", err)
	}
	return reviews, nil
}

func (s *ReviewService) ListAllCourses(ctx context.Context) ([]model.Course, error) {
	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		return nil, gatewayErr(s.logger, "list courses", err)
	}
	return courses, nil
}

// CreateReview resolves courseName to a course (case-insensitive, created
// on first use), clamps the rating into [0,5] and stores the review.
//
// A non-empty idempotencyKey makes retries safe: the first request with a
// given key for this author creates the review, later ones get the same
// review back, and one arriving while the first is still running gets a
// Conflict.
func (s *ReviewService) CreateReview(ctx context.Context, authorID int64, courseName string, rating int, comment, idempotencyKey string) (*model.Review, error) {
	if authorID <= 0 {
		return nil, apperror.Unauthorized("sign in required")
	}
	courseName = strings.TrimSpace(courseName)
	comment = strings.TrimSpace(comment)
	if err := validateCourseName(courseName); err != nil {
		return nil, err
	}
	if err := validateComment(comment); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(idempotencyKey)
	if key != "" {
		key = fmt.Sprintf("review:%d:%s", authorID, key)
		existingID, err := s.idem.Reserve(ctx, key)
		switch {
		case errors.Is(err, idempotency.ErrInFlight):
			return nil, apperror.Conflict("an identical request is already being processed")
		case err != nil:
			// Dedup is best-effort; a broken store must not block writes.
			s.logger.Warn("idempotency store unavailable, creating without dedup",
				slog.String("error", err.Error()))
			key = ""
		case existingID != 0:
			s.logger.Info("replaying review create", slog.Int64("reviewID", existingID))
			review, err := s.repo.GetReview(ctx, existingID)
			if err != nil {
				return nil, gatewayErr(s.logger, "get review", err)
			}
			return review, nil
		}
	}

	review, err := s.insertReview(ctx, authorID, courseName, rating, comment)
	if err != nil {
		if key != "" {
			if relErr := s.idem.Release(context.WithoutCancel(ctx), key); relErr != nil {
				s.logger.Warn("releasing idempotency key", slog.String("error", relErr.Error()))
			}
		}
		return nil, err
	}
	if key != "" {
		if err := s.idem.Complete(ctx, key, review.ID); err != nil {
			s.logger.Warn("completing idempotency key", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("review created",
		slog.Int64("reviewID", review.ID),
		slog.Int64("userID", authorID),
		slog.String("course", review.Course.Name),
		slog.Int("rating", review.Rating),
	)
	s.publish(ctx, events.ReviewCreated, review)
	return review, nil
}

func (s *ReviewService) insertReview(ctx context.Context, authorID int64, courseName string, rating int, comment string) (*model.Review, error) {
	course, err := s.repo.ResolveCourse(ctx, courseName)
	if err != nil {
		return nil, gatewayErr(s.logger, "resolve course", err)
	}

	review := &model.Review{
		UserID:   authorID,
		CourseID: course.ID,
		Rating:   model.ClampRating(rating),
		Comment:  comment,
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		return nil, gatewayErr(s.logger, "create review", err)
	}

	joined, err := s.repo.GetReview(ctx, review.ID)
	if err != nil {
		return nil, gatewayErr(s.logger, "get review", err)
	}
	return joined, nil
}

// UpdateReview changes rating and comment of the author's own review. The
// course, author and creation time never change.
func (s *ReviewService) UpdateReview(ctx context.Context, authorID, reviewID int64, rating int, comment string) (*model.Review, error) {
	review, err := s.ownedReview(ctx, authorID, reviewID)
	if err != nil {
		return nil, err
	}

	comment = strings.TrimSpace(comment)
	if err := validateComment(comment); err != nil {
		return nil, err
	}

	review.Rating = model.ClampRating(rating)
	review.Comment = comment
	if err := s.repo.UpdateReview(ctx, review); err != nil {
		return nil, gatewayErr(s.logger, "update review", err)
	}

	s.logger.Info("review updated",
		slog.Int64("reviewID", review.ID),
		slog.Int("rating", review.Rating),
	)
	s.publish(ctx, events.ReviewUpdated, review)
	return review, nil
}

// DeleteReview permanently removes the author's own review.
func (s *ReviewService) DeleteReview(ctx context.Context, authorID, reviewID int64) error {
	review, err := s.ownedReview(ctx, authorID, reviewID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteReview(ctx, reviewID); err != nil {
		return gatewayErr(s.logger, "delete review", err)
	}

	s.logger.Info("review deleted", slog.Int64("reviewID", reviewID))
	s.publish(ctx, events.ReviewDeleted, review)
	return nil
}

// ownedReview loads reviewID and checks it belongs to authorID.
func (s *ReviewService) ownedReview(ctx context.Context, authorID, reviewID int64) (*model.Review, error) {
	if authorID <= 0 {
		return nil, apperror.Unauthorized("sign in required")
	}
	if reviewID <= 0 {
		return nil, apperror.ValidationFailed("reviewId", "review id must be a positive integer")
	}

	review, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return nil, gatewayErr(s.logger, "get review", err)
	}
	if review.UserID != authorID {
		s.logger.Warn("review ownership mismatch",
			slog.Int64("reviewID", reviewID),
			slog.Int64("ownerID", review.UserID),
			slog.Int64("callerID", authorID),
		)
		return nil, apperror.Forbidden("you can only change your own reviews")
	}
	return review, nil
}

func (s *ReviewService) publish(ctx context.Context, typ events.Type, r *model.Review) {
	err := s.events.Publish(ctx, events.ReviewEvent{
		Type:       typ,
		ReviewID:   r.ID,
		UserID:     r.UserID,
		CourseID:   r.CourseID,
		Rating:     r.Rating,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("publishing review event",
			slog.String("type", string(typ)),
			slog.Int64("reviewID", r.ID),
			slog.String("error", err.Error()),
		)
	}
}

func validateCourseName(name string) error {
	if name == "" {
		return apperror.ValidationFailed("course_name", "course name is required")
	}
	if utf8.RuneCountInString(name) > MaxCourseNameLength {
		return apperror.ValidationFailed("course_name",
			fmt.Sprintf("course name must be %d characters or less", MaxCourseNameLength))
	}
	return nil
}

func validateComment(comment string) error {
	if comment == "" {
		return apperror.ValidationFailed("comment", "comment is required")
	}
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return apperror.ValidationFailed("comment",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}
	return nil
}
