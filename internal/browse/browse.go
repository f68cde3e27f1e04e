// Package browse filters and sorts a cached list of reviews for display.
//
// Filter and Sort are pure; View adds the state a page keeps between
// keystrokes (the cached list, the current query and the sort order).
package browse

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/coursehub/internal/model"
)

// Order is the rating sort direction.
type Order string

const (
	Descending Order = "desc"
	Ascending  Order = "asc"
)

// ParseOrder reads an order from a query string value. Anything other than
// "asc" is Descending, the default on the browse page.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(Ascending)) {
		return Ascending
	}
	return Descending
}

// Reverse returns the opposite direction.
func (o Order) Reverse() Order {
	if o == Ascending {
		return Descending
	}
	return Ascending
}

// Filter returns the reviews whose course name contains q, ignoring case.
// q is matched as typed, spaces included; only an empty or all-blank query
// matches everything. The input slice is not modified.
func Filter(reviews []model.Review, q string) []model.Review {
	all := strings.TrimSpace(q) == ""
	q = strings.ToLower(q)
	out := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		if all || strings.Contains(strings.ToLower(r.Course.Name), q) {
			out = append(out, r)
		}
	}
	return out
}

// Sort returns a copy of reviews ordered by rating. Reviews with equal
// ratings keep their relative order, so toggling back and forth is
// deterministic.
func Sort(reviews []model.Review, order Order) []model.Review {
	out := slices.Clone(reviews)
	if out == nil {
		out = []model.Review{}
	}
	slices.SortStableFunc(out, func(a, b model.Review) int {
		if order == Ascending {
			return a.Rating - b.Rating
		}
		return b.Rating - a.Rating
	})
	return out
}

// Apply filters first and sorts the filtered subset.
func Apply(reviews []model.Review, q string, order Order) []model.Review {
	return Sort(Filter(reviews, q), order)
}

// Source loads the full review list. *client.Client satisfies it.
type Source interface {
	ListAllReviews(ctx context.Context) ([]model.Review, error)
}

// View is the client-side browse state. It is not safe for concurrent use;
// one view belongs to one page.
type View struct {
	src     Source
	logger  *slog.Logger
	reviews []model.Review
	query   string
	order   Order
}

func NewView(src Source, logger *slog.Logger) *View {
	return &View{src: src, logger: logger, order: Descending}
}

// Reload replaces the cached list. On error the previous list is kept.
func (v *View) Reload(ctx context.Context) error {
	reviews, err := v.src.ListAllReviews(ctx)
	if err != nil {
		v.logger.Warn("reloading reviews", slog.String("error", err.Error()))
		return err
	}
	v.reviews = reviews
	v.logger.Debug("reviews reloaded", slog.Int("count", len(reviews)))
	return nil
}

// SetQuery updates the search text; results are recomputed on every call
// to Results.
func (v *View) SetQuery(q string) { v.query = q }

func (v *View) Query() string { return v.query }

func (v *View) SetOrder(o Order) { v.order = o }

func (v *View) Order() Order { return v.order }

// Toggle flips the sort direction and returns the new one.
func (v *View) Toggle() Order {
	v.order = v.order.Reverse()
	return v.order
}

// Results is the cached list filtered by the query and sorted by rating.
func (v *View) Results() []model.Review {
	return Apply(v.reviews, v.query, v.order)
}
