// Package handler turns HTTP requests into service calls and service results
// into JSON (or, for the browse page, HTML). Handlers hold no business rules.
package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/coursehub/internal/auth"
	"github.com/sakif/coursehub/internal/browse"
	"github.com/sakif/coursehub/internal/model"
	"github.com/sakif/coursehub/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageHandler renders the server-side browse page. Templates are parsed once
// at startup.
type PageHandler struct {
	templates *template.Template
	reviews   *service.ReviewService
	logger    *slog.Logger
}

func NewPageHandler(reviews *service.ReviewService, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"stars": stars,
	}).ParseFS(templateFS, "templates/base.html", "templates/reviews.html")
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		templates: tmpl,
		reviews:   reviews,
		logger:    logger,
	}, nil
}

type reviewsPage struct {
	Title       string
	Query       string
	Order       browse.Order
	ToggleOrder browse.Order
	Reviews     []model.Review
	Total       int
	Principal   *model.Principal
	Error       string
}

// HandleReviews lists every review filtered by ?q= (course name substring)
// and sorted by rating per ?order=asc|desc.
//
// HTTP: GET /  and  GET /reviews
func (h *PageHandler) HandleReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	order := browse.ParseOrder(r.URL.Query().Get("order"))

	data := reviewsPage{
		Title:       "CourseHub reviews",
		Query:       q,
		Order:       order,
		ToggleOrder: order.Reverse(),
	}
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		data.Principal = &p
	}

	status := http.StatusOK
	all, err := h.reviews.ListAllReviews(r.Context())
	if err != nil {
		h.logger.Error("browse page: listing reviews", slog.String("error", err.Error()))
		status = http.StatusServiceUnavailable
		data.Error = "Reviews are unavailable right now, please try again."
	}
	data.Total = len(all)
	data.Reviews = browse.Apply(all, q, order)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
	}
}

// stars renders a 0..5 rating as filled and empty stars.
func stars(rating int) string {
	rating = model.ClampRating(rating)
	return strings.Repeat("★", rating) + strings.Repeat("☆", model.MaxRating-rating)
}
