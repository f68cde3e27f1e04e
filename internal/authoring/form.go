package authoring

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/model"
)

// State is where a form is in its lifecycle.
type State int

const (
	Idle State = iota
	Editing
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	}
	return "unknown"
}

// RetryMessage is shown when the server or the network failed rather than
// the input.
const RetryMessage = "please try again"

// Draft is what the user has typed so far.
type Draft struct {
	CourseName string
	Comment    string
	Rating     int
}

// Form is one add or edit form. Its methods are safe to call from several
// goroutines; Submit releases the lock while the request is in flight.
type Form struct {
	page     *Page
	reviewID int64 // 0 for the create form

	mu          sync.Mutex
	state       State
	draft       Draft
	suggestions []string
	token       string
	message     string
	confirmedAt time.Time
}

func newForm(p *Page, reviewID int64, seed Draft) *Form {
	seed.Rating = model.ClampRating(seed.Rating)
	return &Form{
		page:     p,
		reviewID: reviewID,
		draft:    seed,
		token:    p.newToken(),
	}
}

// IsEdit reports whether the form updates an existing review.
func (f *Form) IsEdit() bool { return f.reviewID != 0 }

func (f *Form) ReviewID() int64 { return f.reviewID }

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Message is the inline error from the last failed submit, or "".
func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Token is the idempotency key the next create submit will send.
func (f *Form) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// touch moves Idle to Editing. Must hold f.mu.
func (f *Form) touch() {
	if f.state == Idle {
		f.state = Editing
	}
}

// SetCourseName updates the draft and recomputes suggestions from the
// page's cached course list. Edit forms ignore it: a review's course is
// fixed.
func (f *Form) SetCourseName(name string) {
	if f.IsEdit() {
		return
	}
	courses := f.page.Courses()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()
	f.draft.CourseName = name
	f.suggestions = Suggest(courses, name)
}

// Suggestions returns course names matching the draft, or nil when the
// course name is blank.
func (f *Form) Suggestions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.suggestions...)
}

// SelectSuggestion replaces the course name and hides the suggestions.
func (f *Form) SelectSuggestion(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()
	f.draft.CourseName = name
	f.suggestions = nil
}

func (f *Form) SetComment(comment string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()
	f.draft.Comment = comment
}

// SetRating selects one of the five star positions. Out-of-range values are
// clamped into [0,5].
func (f *Form) SetRating(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()
	f.draft.Rating = model.ClampRating(n)
}

// ClearRating sets the rating back to 0.
func (f *Form) ClearRating() {
	f.SetRating(0)
}

// Submit sends the draft. On success the page reloads its caches, the draft
// resets, a new idempotency token is drawn and the confirmation countdown
// starts. On failure the form stays in Editing with the draft intact and
// Message explains what went wrong; calling Submit again retries with the
// same token.
func (f *Form) Submit(ctx context.Context) (*model.Review, error) {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	draft := f.draft
	draft.Rating = model.ClampRating(draft.Rating)
	if err := f.checkDraft(draft); err != nil {
		f.state = Editing
		f.message = Message(err)
		f.mu.Unlock()
		return nil, err
	}
	f.state = Submitting
	f.message = ""
	token := f.token
	f.mu.Unlock()

	p := f.page
	var (
		review *model.Review
		err    error
	)
	if f.IsEdit() {
		review, err = p.api.UpdateReview(ctx, p.userID, f.reviewID, draft.Rating, draft.Comment)
	} else {
		review, err = p.api.CreateReview(ctx, p.userID, draft.CourseName, draft.Rating, draft.Comment, token)
	}

	if err != nil {
		p.logger.Warn("submitting review",
			slog.Bool("edit", f.IsEdit()),
			slog.String("error", err.Error()),
		)
		f.mu.Lock()
		f.state = Editing
		f.message = Message(err)
		f.mu.Unlock()
		return nil, err
	}

	// Reload in full; the cache is never patched from the response.
	_ = p.Load(ctx)

	f.mu.Lock()
	f.state = Idle
	f.draft = Draft{}
	f.suggestions = nil
	f.token = p.newToken()
	f.confirmedAt = p.now()
	f.mu.Unlock()

	return review, nil
}

func (f *Form) checkDraft(d Draft) error {
	if !f.IsEdit() && strings.TrimSpace(d.CourseName) == "" {
		return apperror.ValidationFailed("course_name", "course name is required")
	}
	if strings.TrimSpace(d.Comment) == "" {
		return apperror.ValidationFailed("comment", "comment is required")
	}
	return nil
}

// ConfirmationRemaining is how much of the "saved" notice is left at now,
// or 0 when none is showing.
func (f *Form) ConfirmationRemaining(now time.Time) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmedAt.IsZero() {
		return 0
	}
	left := ConfirmationPeriod - now.Sub(f.confirmedAt)
	if left < 0 {
		return 0
	}
	return left
}

// DismissConfirmation hides the notice early.
func (f *Form) DismissConfirmation() {
	f.mu.Lock()
	f.confirmedAt = time.Time{}
	f.mu.Unlock()
}

// Suggest returns the names of courses containing query, ignoring case, in
// list order. A blank query returns nil.
func Suggest(courses []model.Course, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []string
	for _, c := range courses {
		if strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c.Name)
		}
	}
	return out
}

// Message turns a submit or delete error into the inline text shown next
// to the form. Input and permission problems show the server's message;
// outages and transport failures ask the user to retry.
func Message(err error) string {
	var appErr *apperror.AppError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, apperror.ErrUnavailable):
		return RetryMessage
	case errors.As(err, &appErr) && appErr.Message != "":
		return appErr.Message
	}
	return RetryMessage
}

func newIdempotencyToken() string {
	return uuid.NewString()
}
