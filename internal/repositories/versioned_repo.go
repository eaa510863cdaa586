package repositories

import (
	"context"
	"fmt"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

const maxVersionRetries = 3

// EntityWithVersion is a pointer entity carrying a row_version column.
type EntityWithVersion interface {
	comparable
	GetRowVersion() int64
	SetRowVersion(int64)
}

type UpdateIfVersionFunc[T EntityWithVersion] func(
	ctx context.Context,
	entity T,
	expectedVersion int64,
) (pgconn.CommandTag, error)

type GetByIDFunc[T EntityWithVersion] func(ctx context.Context, id uuid.UUID) (T, error)

// WithRetry runs a read-mutate-update loop with optimistic locking. A
// missing row yields utils.ErrNotFound; losing every attempt yields
// utils.ErrRowVersionConflict.
func WithRetry[T EntityWithVersion](
	ctx context.Context,
	id uuid.UUID,
	getByID GetByIDFunc[T],
	updateIfVersion UpdateIfVersionFunc[T],
	mutate func(T) error,
) error {
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		current, err := getByID(ctx, id)
		if err != nil {
			return err
		}
		var zero T
		if current == zero {
			return fmt.Errorf("%w: %s", utils.ErrNotFound, id)
		}

		oldVersion := current.GetRowVersion()
		if err := mutate(current); err != nil {
			return err
		}

		tag, err := updateIfVersion(ctx, current, oldVersion)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			current.SetRowVersion(oldVersion + 1)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", utils.ErrRowVersionConflict, id)
}

// versionedRepo gives a concrete repository GetByID and UpdateWithRetry from
// a select-by-id statement and a row scanner.
type versionedRepo[T EntityWithVersion] struct {
	db         DB
	selectByID string
	scan       func(row pgx.Row) (T, error)
}

func newVersionedRepo[T EntityWithVersion](db DB, selectByID string, scan func(pgx.Row) (T, error)) versionedRepo[T] {
	return versionedRepo[T]{db: db, selectByID: selectByID, scan: scan}
}

func (b versionedRepo[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	return b.scan(b.db.QueryRow(ctx, b.selectByID, id))
}

func (b versionedRepo[T]) updateWithRetry(
	ctx context.Context,
	id uuid.UUID,
	mutate func(T) error,
	updateIfVersion UpdateIfVersionFunc[T],
) error {
	return WithRetry(ctx, id, b.GetByID, updateIfVersion, mutate)
}
