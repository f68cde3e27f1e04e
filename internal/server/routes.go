package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/coursehub/internal/auth"
	"github.com/sakif/coursehub/internal/handler"
	"github.com/sakif/coursehub/internal/middleware"
	"github.com/sakif/coursehub/internal/repository"
	"github.com/sakif/coursehub/internal/service"
)

// Deps is everything the router needs. Tests build it around an in-memory
// gateway.
type Deps struct {
	Gateway        repository.Gateway
	Tokens         *auth.TokenService
	Reviews        *service.ReviewService
	Users          *service.UserService
	Auth           *service.AuthService
	Cookies        handler.SessionCookies
	CORSOrigins    []string
	RequestTimeout time.Duration // 0 means the 10s default
}

// DefaultRequestTimeout bounds every request, gateway calls included.
const DefaultRequestTimeout = 10 * time.Second

// NewRouter builds the route table.
//
//	GET    /                              browse page (HTML)
//	GET    /reviews?q=&order=asc|desc     browse page (HTML)
//	GET    /healthz                       database ping
//	GET    /auth/{provider}/login         OAuth redirect
//	GET    /auth/{provider}/callback      OAuth code exchange
//	GET    /api/review                    all reviews
//	GET    /api/review/{userId}           one user's reviews       (signed in)
//	POST   /api/review/{userId}           create review            (owner)
//	PUT    /api/review/{userId}           update review            (owner)
//	DELETE /api/review/{userId}?reviewId= delete review            (owner)
//	GET    /api/course                    all courses
//	GET    /api/user                      all users (public view)
//	GET    /api/user/{userId}             one user (public view)
//	PUT    /api/user/{userId}             update profile           (owner)
//	PUT    /api/user/{userId}/password    change password          (owner)
//	POST   /api/user/{userId}/image       upload avatar            (owner, S3 only)
//	POST   /api/auth/signup|signin|signout
//	GET    /api/auth/session              current principal        (signed in)
//	GET    /api/auth/providers            configured OAuth providers
func NewRouter(d Deps, logger *slog.Logger) (*chi.Mux, error) {
	if d.Gateway == nil || d.Tokens == nil || d.Reviews == nil || d.Users == nil || d.Auth == nil {
		return nil, errors.New("server: incomplete router dependencies")
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()

	// Order matters: the request ID must exist before the logger reads it,
	// and Recoverer must sit inside the logger so panics are logged as 500s.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", handler.IdempotencyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.OptionalAuth(d.Tokens))

	pages, err := handler.NewPageHandler(d.Reviews, logger)
	if err != nil {
		return nil, err
	}
	reviews := handler.NewReviewHandler(d.Reviews, logger)
	users := handler.NewUserHandler(d.Users, d.Auth, d.Cookies, logger)
	sessions := handler.NewAuthHandler(d.Auth, d.Cookies, logger)

	r.Get("/", pages.HandleReviews)
	r.Get("/reviews", pages.HandleReviews)
	r.Get("/healthz", handler.HealthHandler(d.Gateway))

	r.Get("/auth/{provider}/login", sessions.HandleOAuthLogin)
	r.Get("/auth/{provider}/callback", sessions.HandleOAuthCallback)

	r.Route("/api", func(r chi.Router) {
		r.Get("/review", reviews.HandleList)
		r.Get("/course", reviews.HandleListCourses)
		r.Get("/user", users.HandleList)
		r.Get("/user/{userId}", users.HandleGet)

		r.Post("/auth/signup", sessions.HandleSignUp)
		r.Post("/auth/signin", sessions.HandleSignIn)
		r.Post("/auth/signout", sessions.HandleSignOut)
		r.Get("/auth/providers", sessions.HandleProviders)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.Tokens))

			r.Get("/auth/session", sessions.HandleSession)

			r.Get("/review/{userId}", reviews.HandleListByUser)
			r.Post("/review/{userId}", reviews.HandleCreate)
			r.Put("/review/{userId}", reviews.HandleUpdate)
			r.Delete("/review/{userId}", reviews.HandleDelete)

			r.Put("/user/{userId}", users.HandleUpdate)
			r.Put("/user/{userId}/password", users.HandleChangePassword)
			if d.Users.AvatarsEnabled() {
				r.Post("/user/{userId}/image", users.HandleUploadAvatar)
			}
		})
	})

	return r, nil
}
