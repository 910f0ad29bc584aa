package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"projectwatch/internal/apperror"
)

// MySQL server errors that mean the submitted data was rejected.
const (
	mysqlBadNull       = 1048
	mysqlIncorrectType = 1366
	mysqlDataTooLong   = 1406
)

// fail classifies a driver or gorm error into the apperror taxonomy. Errors
// that are already classified pass through unchanged.
func (s *Store[T, PT]) fail(op string, id any, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && id != nil {
		return apperror.NotFound(s.kind, id)
	}
	classified := Translate(s.kind+" "+op, err)
	if apperror.Is(classified, apperror.ErrStore) || apperror.Is(classified, apperror.ErrStoreUnavailable) {
		log.WithError(err).WithFields(log.Fields{"entity": s.kind, "op": op}).Error("Store operation failed")
	}
	return classified
}

// Translate maps a database error to an *apperror.Error.
func Translate(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Conflict("Resource already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return withCause(apperror.Validation("", "reference", "Referenced resource does not exist"), err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrInvalidData):
		return withCause(apperror.Validation("", "integrity", "Invalid data"), err)
	case isUnavailable(err):
		return apperror.StoreUnavailable(op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return apperror.Conflict("Resource already exists", err)
		case strings.HasPrefix(pgErr.Code, "22"), strings.HasPrefix(pgErr.Code, "23"):
			return withCause(apperror.Validation("", "integrity", "Invalid data"), err)
		case strings.HasPrefix(pgErr.Code, "08"):
			return apperror.StoreUnavailable(op, err)
		}
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return apperror.Conflict("Resource already exists", err)
		case mysqlBadNull, mysqlIncorrectType, mysqlDataTooLong:
			return withCause(apperror.Validation("", "integrity", "Invalid data"), err)
		}
	}

	return apperror.Store(op, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysqldriver.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func withCause(e *apperror.Error, cause error) *apperror.Error {
	e.Err = cause
	return e
}
