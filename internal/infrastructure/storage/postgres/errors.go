package postgres

import (
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sipdah/internal/core/apperror"
)

// SQLSTATE codes handled explicitly.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err)
}

// mapError converts a driver error into the application taxonomy.
// pgx.ErrNoRows is passed through so repositories decide between
// NotFound and "absent".
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNoRows(err) {
		return fmt.Errorf("%s: %w", op, pgx.ErrNoRows)
	}

	var pgErr *pgconn.PgError
	if !apperror.IsAppError(err) && errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperror.NewConflict("record already exists").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case codeForeignKeyViolation:
			return apperror.NewBadRequest("referenced record does not exist").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
	}

	return apperror.Wrap(op, err)
}
