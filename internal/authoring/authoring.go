// Package authoring drives the add/edit/delete review workflow on the
// client side.
//
// A Page holds the signed-in user's cached reviews and the course list used
// for autocomplete. Every successful mutation reloads both from the server;
// the cache is never patched in place. Each Form (the create form, or one
// per Edit) is an independent state machine:
//
//	Idle ──edit──▶ Editing ──Submit──▶ Submitting ──ok──▶ Idle
//	                  ▲                     │
//	                  └──────error──────────┘
package authoring

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sakif/coursehub/internal/model"
)

// ConfirmationPeriod is how long the "review saved" notice stays up. It is
// advisory only and never blocks further actions.
const ConfirmationPeriod = 3 * time.Second

// ErrSubmitInFlight is returned by Submit while an earlier submit of the
// same form has not finished.
var ErrSubmitInFlight = errors.New("authoring: a submit is already in progress")

// API is the server surface the workflow needs. *client.Client satisfies it.
type API interface {
	ListReviewsByUser(ctx context.Context, userID int64) ([]model.Review, error)
	ListAllCourses(ctx context.Context) ([]model.Course, error)
	CreateReview(ctx context.Context, userID int64, courseName string, rating int, comment, idempotencyKey string) (*model.Review, error)
	UpdateReview(ctx context.Context, userID, reviewID int64, rating int, comment string) (*model.Review, error)
	DeleteReview(ctx context.Context, userID, reviewID int64) error
}

type Option func(*Page)

// WithClock replaces time.Now, for the confirmation countdown.
func WithClock(now func() time.Time) Option {
	return func(p *Page) { p.now = now }
}

// WithTokenSource replaces the idempotency token generator.
func WithTokenSource(next func() string) Option {
	return func(p *Page) { p.newToken = next }
}

// Page is the "my reviews" screen of one signed-in user.
type Page struct {
	api      API
	userID   int64
	logger   *slog.Logger
	now      func() time.Time
	newToken func() string

	mu        sync.Mutex
	reviews   []model.Review
	courses   []model.Course
	deleteErr error
	reloadErr error
	create    *Form
}

func NewPage(api API, userID int64, logger *slog.Logger, opts ...Option) *Page {
	p := &Page{
		api:      api,
		userID:   userID,
		logger:   logger,
		now:      time.Now,
		newToken: newIdempotencyToken,
	}
	for _, o := range opts {
		o(p)
	}
	p.create = newForm(p, 0, Draft{})
	return p
}

// Load fetches the user's reviews and the course list. On failure the
// previous cache is kept and the error is also available from ReloadErr.
func (p *Page) Load(ctx context.Context) error {
	reviews, err := p.api.ListReviewsByUser(ctx, p.userID)
	if err == nil {
		var courses []model.Course
		courses, err = p.api.ListAllCourses(ctx)
		if err == nil {
			p.mu.Lock()
			p.reviews = reviews
			p.courses = courses
			p.reloadErr = nil
			p.mu.Unlock()
			return nil
		}
	}

	p.logger.Warn("reloading reviews", slog.Int64("userID", p.userID), slog.String("error", err.Error()))
	p.mu.Lock()
	p.reloadErr = err
	p.mu.Unlock()
	return err
}

// Reviews returns a copy of the cached list.
func (p *Page) Reviews() []model.Review {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.reviews)
}

func (p *Page) Courses() []model.Course {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.courses)
}

// ReloadErr is the error from the most recent failed reload, cleared by the
// next successful one.
func (p *Page) ReloadErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloadErr
}

// CreateForm is the page's single add-review form.
func (p *Page) CreateForm() *Form {
	return p.create
}

// Edit opens a new form seeded with review. Course and author cannot be
// changed, only rating and comment.
func (p *Page) Edit(review model.Review) *Form {
	return newForm(p, review.ID, Draft{
		CourseName: review.Course.Name,
		Comment:    review.Comment,
		Rating:     review.Rating,
	})
}

// Delete removes a review without asking for confirmation and reloads on
// success. A failure leaves the cached list as it was and is kept in
// DeleteErr until the next delete or ClearDeleteErr.
func (p *Page) Delete(ctx context.Context, reviewID int64) error {
	if err := p.api.DeleteReview(ctx, p.userID, reviewID); err != nil {
		p.logger.Error("deleting review",
			slog.Int64("reviewID", reviewID),
			slog.String("error", err.Error()),
		)
		p.mu.Lock()
		p.deleteErr = err
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.deleteErr = nil
	p.mu.Unlock()
	p.logger.Info("review deleted", slog.Int64("reviewID", reviewID))

	// The delete itself succeeded; a failed reload is reported by ReloadErr.
	_ = p.Load(ctx)
	return nil
}

// DeleteErr is the last delete failure, or nil.
func (p *Page) DeleteErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deleteErr
}

// DeleteMessage is DeleteErr phrased for display, or "".
func (p *Page) DeleteMessage() string {
	err := p.DeleteErr()
	if err == nil {
		return ""
	}
	return Message(err)
}

func (p *Page) ClearDeleteErr() {
	p.mu.Lock()
	p.deleteErr = nil
	p.mu.Unlock()
}
