// Package events announces review changes to other systems. Publishing is
// best-effort: the review service logs a failed publish and carries on.
package events

import (
	"context"
	"time"
)

type Type string

const (
	ReviewCreated Type = "review.created"
	ReviewUpdated Type = "review.updated"
	ReviewDeleted Type = "review.deleted"
)

// ReviewEvent is the message body, encoded as JSON.
type ReviewEvent struct {
	Type       Type      `json:"type"`
	ReviewID   int64     `json:"reviewId"`
	UserID     int64     `json:"userId"`
	CourseID   int64     `json:"courseId,omitempty"`
	Rating     int       `json:"rating"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event ReviewEvent) error
	Close() error
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, ReviewEvent) error { return nil }
func (Noop) Close() error                              { return nil }
