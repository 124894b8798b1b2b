package postgres

import (
	"errors"
	"strings"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateCheckViolation       = "23514"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// sqlState extracts the SQLSTATE and server message from either driver's
// error type.
func sqlState(err error) (code, message string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Message
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message
	}
	return "", ""
}

// referencedRowViolation reports a foreign key violation raised on the
// referenced side ("update or delete on table ..."): the row is still in use.
func referencedRowViolation(message string) bool {
	return strings.HasPrefix(message, "update or delete on table")
}

// translate maps driver errors onto the domain taxonomy. Errors that already
// carry a domain kind pass through untouched.
func translate(err error) error {
	if err == nil || domain.KindOf(err) != "" {
		return err
	}

	code, message := sqlState(err)
	switch code {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
		return domain.ConcurrencyFailure(err)
	case sqlStateUniqueViolation:
		return &domain.Error{Kind: domain.KindConflict, Message: "duplicate record", Err: err}
	case sqlStateForeignKeyViolation:
		if referencedRowViolation(message) {
			return &domain.Error{Kind: domain.KindConflict, Message: "record is still referenced", Err: err}
		}
		return &domain.Error{Kind: domain.KindNotFound, Message: "referenced record does not exist", Err: err}
	case sqlStateCheckViolation:
		return &domain.Error{Kind: domain.KindValidation, Message: "value out of range", Err: err}
	}
	return err
}
