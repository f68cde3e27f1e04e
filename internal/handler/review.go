package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/auth"
	"github.com/sakif/coursehub/internal/model"
	"github.com/sakif/coursehub/internal/service"
)

// IdempotencyHeader carries the client's per-draft token on review creation.
const IdempotencyHeader = "Idempotency-Key"

// ReviewHandler serves /api/review and /api/course.
type ReviewHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		logger:  logger,
	}
}

// createReviewRequest keeps the field names the browser form has always
// sent: course_name and content.
type createReviewRequest struct {
	CourseName string `json:"course_name" validate:"required"`
	Rating     int    `json:"rating"`
	Content    string `json:"content" validate:"required"`
}

type updateReviewRequest struct {
	ReviewID int64  `json:"reviewId" validate:"required,gt=0"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment" validate:"required"`
}

// HandleList returns every review joined with its course and author.
//
// HTTP: GET /api/review
func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListAllReviews(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleListByUser returns one user's reviews.
//
// HTTP: GET /api/review/{userId}
func (h *ReviewHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	reviews, err := h.reviews.ListReviewsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleCreate stores a review for the signed-in user.
//
// HTTP: POST /api/review/{userId}  {"course_name","rating","content"} → 201
//
// The rating is clamped, never rejected. An Idempotency-Key header makes a
// retried submit return the first review instead of a duplicate.
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, err := pathOwner(r, "reviews")
	if err != nil {
		writeError(w, err)
		return
	}

	var req createReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.CreateReview(r.Context(), p.ID,
		req.CourseName, req.Rating, req.Content, r.Header.Get(IdempotencyHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// HandleUpdate changes rating and comment of one of the caller's reviews.
//
// HTTP: PUT /api/review/{userId}  {"reviewId","rating","comment"}
func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := pathOwner(r, "reviews")
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.UpdateReview(r.Context(), p.ID, req.ReviewID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// HandleDelete removes one of the caller's reviews.
//
// HTTP: DELETE /api/review/{userId}?reviewId={id} → 204
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := pathOwner(r, "reviews")
	if err != nil {
		writeError(w, err)
		return
	}

	reviewID, err := parseID(r.URL.Query().Get("reviewId"), "reviewId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.reviews.DeleteReview(r.Context(), p.ID, reviewID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListCourses returns the course catalog for autocomplete.
//
// HTTP: GET /api/course
func (h *ReviewHandler) HandleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.reviews.ListAllCourses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

// pathOwner returns the principal when the {userId} path parameter names
// the signed-in user. what names the resource in the Forbidden message.
func pathOwner(r *http.Request, what string) (model.Principal, error) {
	id, err := pathID(r, "userId")
	if err != nil {
		return model.Principal{}, err
	}
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return model.Principal{}, apperror.Unauthorized("sign in required")
	}
	if p.ID != id {
		return model.Principal{}, apperror.Forbidden("you can only change your own " + what)
	}
	return p, nil
}
