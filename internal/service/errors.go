package service

import (
	"errors"
	"log/slog"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/model"
)

// gatewayErr passes domain errors through and turns everything else (a
// broken connection, an expired deadline, a constraint the service did not
// anticipate) into StorageUnavailable, logging the cause.
func gatewayErr(logger *slog.Logger, op string, err error) error {
	if apperror.IsDomain(err) {
		return err
	}
	logger.Error("gateway failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.Unavailable(err)
}

// requireOwner allows the call only when p is signed in as user id.
func requireOwner(p model.Principal, id int64, what string) error {
	if p.ID <= 0 {
		return apperror.Unauthorized("sign in required")
	}
	if p.ID != id {
		return apperror.Forbidden("you can only change your own " + what)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
