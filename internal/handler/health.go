package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sakif/coursehub/internal/apperror"
)

// Pinger is satisfied by every repository.Gateway.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the database answers.
//
// HTTP: GET /healthz → 200 {"status":"ok"} or 503 storage_unavailable
func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			writeError(w, apperror.Unavailable(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
