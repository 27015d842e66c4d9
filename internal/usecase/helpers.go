package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/gabfadel/gab-health/internal/delivery/http/middleware"
	"github.com/gabfadel/gab-health/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrIdentityMissing = apperror.Unauthorized("user not found in context")

// callerFromContext returns the authenticated caller placed in ctx by the
// auth middleware
func callerFromContext(ctx context.Context) (middleware.Identity, error) {
	identity, ok := middleware.GetIdentityFromContext(ctx)
	if !ok {
		return middleware.Identity{}, ErrIdentityMissing
	}
	return identity, nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}
