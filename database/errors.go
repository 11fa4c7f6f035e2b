package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/memograph/helper"
)

// notFoundOrScan maps the signals coming back from the SQL layer to
// typed errors for the given resource: sql.ErrNoRows from empty result
// sets, P0002 raised by the plpgsql functions and foreign key
// violations on referenced ids become a NotFoundError, 40001 raised on
// stale lineage state becomes a ConflictError. Everything else stays a
// scan error.
func notFoundOrScan(err error, resource string, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return helper.NewNotFoundError(resource, id)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "P0002", "23503":
			return helper.NewNotFoundError(resource, id)
		case "40001":
			return helper.NewConflictError(resource, pqErr.Message)
		}
	}

	return helper.NewError("scan", err)
}

// nullableVector scans a vector column that may be NULL.
type nullableVector struct {
	vec   pgvector.Vector
	valid bool
}

func (v *nullableVector) Scan(src interface{}) error {
	if src == nil {
		v.valid = false
		return nil
	}
	v.valid = true
	return v.vec.Scan(src)
}

// Slice returns the scanned embedding or nil for a NULL column.
func (v *nullableVector) Slice() []float32 {
	if !v.valid {
		return nil
	}
	return v.vec.Slice()
}
