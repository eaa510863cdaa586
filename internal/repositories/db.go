package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

// DB is satisfied by *pgxpool.Pool and pgx.Tx, so every repository works
// the same inside and outside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Page bounds a keyset-paginated listing.
type Page struct {
	After *uuid.UUID
	Limit int
}

// Cursor is the position of the last row of a page ordered by
// (created_at, id).
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// TimePage bounds a listing ordered by (created_at, id). The listing's own
// direction decides whether rows after the cursor are newer or older.
type TimePage struct {
	After *Cursor
	Limit int
}
