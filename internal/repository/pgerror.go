package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// capacityConstraint is the CHECK constraint bounding available_capacity.
const capacityConstraint = "slot_capacity_bounds"

// translate maps PostgreSQL constraint failures onto repository sentinels.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return ErrSlotExists
	case pgerrcode.CheckViolation:
		if pgErr.ConstraintName == capacityConstraint {
			return ErrInsufficientCapacity
		}
	case pgerrcode.ForeignKeyViolation:
		return ErrNotFound
	}
	return err
}
