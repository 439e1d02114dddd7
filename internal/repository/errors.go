package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// isUniqueViolation recognises the unique_violation SQLSTATE from either driver.
func isUniqueViolation(err error) bool {
	return sqlState(err) == uniqueViolation
}

// notFoundOnBadID maps a malformed uuid key to sql.ErrNoRows: no row can carry such an id.
func notFoundOnBadID(err error) error {
	if sqlState(err) == invalidTextRepresentation {
		return sql.ErrNoRows
	}
	return err
}

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// validUUIDs drops ids that cannot match a uuid column.
func validUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// expectAffected maps a zero-row update to sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
