package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Repositories bundles every Ledger Store repository bound to one DB handle.
type Repositories struct {
	Units         UnitRepository
	Tenants       TenantRepository
	Occupations   OccupationRepository
	Bookings      BookingRepository
	Notices       NoticeRepository
	Receivables   ReceivableRepository
	Invoices      InvoiceRepository
	Transactions  OccupationTransactionRepository
	Payments      PaymentRepository
	MpesaPayments MpesaPaymentRepository
	Receipts      ReceiptRepository
	Notifications NotificationRepository
}

// TxFunc receives repositories bound to the running transaction. Returning
// an error rolls everything back.
type TxFunc func(ctx context.Context, repos *Repositories) error

// Store is the Ledger Store: the only shared mutable resource between jobs.
type Store interface {
	Repos() *Repositories
	WithTx(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
}

func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Units:         NewUnitRepository(db),
		Tenants:       NewTenantRepository(db),
		Occupations:   NewOccupationRepository(db),
		Bookings:      NewBookingRepository(db),
		Notices:       NewNoticeRepository(db),
		Receivables:   NewReceivableRepository(db),
		Invoices:      NewInvoiceRepository(db),
		Transactions:  NewOccupationTransactionRepository(db),
		Payments:      NewPaymentRepository(db),
		MpesaPayments: NewMpesaPaymentRepository(db),
		Receipts:      NewReceiptRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

type pgStore struct {
	pool  *pgxpool.Pool
	repos *Repositories
}

func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, repos: NewRepositories(pool)}
}

func (s *pgStore) Repos() *Repositories { return s.repos }

func (s *pgStore) WithTx(ctx context.Context, fn TxFunc) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
