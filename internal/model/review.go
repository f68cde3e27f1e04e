package model

import "time"

// Rating bounds. Every persisted rating lies in [MinRating, MaxRating].
const (
	MinRating = 0
	MaxRating = 5
)

// ClampRating forces r into [MinRating, MaxRating].
func ClampRating(r int) int {
	if r > MaxRating {
		return MaxRating
	}
	if r < MinRating {
		return MinRating
	}
	return r
}

// Review is a user's star rating and comment for one course.
//
// UserID, CourseID and CreatedAt never change after creation; only Rating
// and Comment are editable. Course and User are filled by the list queries
// (joined), so the JSON shape matches what the pages render:
//
//	{"id":1,"rating":4,"comment":"...","course":{"name":"Algorithms"},"user":{"name":"Ann"}}
type Review struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	CourseID  int64      `json:"courseId"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	CreatedAt time.Time  `json:"createdAt"`
	Course    Course     `json:"course"`
	User      PublicUser `json:"user"`
}
