// Package memory is an in-process Ledger Store used by tests and the
// "memory" store driver. It enforces the same uniqueness rules as the SQL
// schema so service behaviour matches across drivers.
package memory

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type state struct {
	units         map[uuid.UUID]models.Unit
	tenants       map[uuid.UUID]models.Tenant
	occupations   map[uuid.UUID]models.Occupation
	bookings      map[uuid.UUID]models.Booking
	notices       map[uuid.UUID]models.Notice
	receivables   map[uuid.UUID]models.Receivable
	invoices      map[uuid.UUID]models.Invoice
	transactions  map[uuid.UUID]models.OccupationTransaction
	payments      map[uuid.UUID]models.Payment
	mpesa         map[uuid.UUID]models.MpesaPayment
	receipts      map[uuid.UUID]models.Receipt
	notifications map[uuid.UUID]models.Notification
}

func newState() *state {
	return &state{
		units:         map[uuid.UUID]models.Unit{},
		tenants:       map[uuid.UUID]models.Tenant{},
		occupations:   map[uuid.UUID]models.Occupation{},
		bookings:      map[uuid.UUID]models.Booking{},
		notices:       map[uuid.UUID]models.Notice{},
		receivables:   map[uuid.UUID]models.Receivable{},
		invoices:      map[uuid.UUID]models.Invoice{},
		transactions:  map[uuid.UUID]models.OccupationTransaction{},
		payments:      map[uuid.UUID]models.Payment{},
		mpesa:         map[uuid.UUID]models.MpesaPayment{},
		receipts:      map[uuid.UUID]models.Receipt{},
		notifications: map[uuid.UUID]models.Notification{},
	}
}

func (s *state) clone() *state {
	c := newState()
	copyMap(c.units, s.units)
	copyMap(c.tenants, s.tenants)
	copyMap(c.occupations, s.occupations)
	copyMap(c.bookings, s.bookings)
	copyMap(c.notices, s.notices)
	copyMap(c.transactions, s.transactions)
	copyMap(c.payments, s.payments)
	copyMap(c.mpesa, s.mpesa)
	copyMap(c.receipts, s.receipts)
	for id, r := range s.receivables {
		r.OtherAmounts = copyAmounts(r.OtherAmounts)
		c.receivables[id] = r
	}
	for id, inv := range s.invoices {
		inv.OtherAmounts = copyAmounts(inv.OtherAmounts)
		c.invoices[id] = inv
	}
	for id, n := range s.notifications {
		n.Data = copyData(n.Data)
		c.notifications[id] = n
	}
	return c
}

func copyMap[V any](dst, src map[uuid.UUID]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func copyAmounts(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyData(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Store implements repositories.Store. Transactions run one at a time on a
// copy of the state that replaces the live state on commit.
type Store struct {
	txMu        sync.Mutex
	mu          sync.RWMutex
	st          *state
	unavailable atomic.Bool
	repos       *repositories.Repositories
}

func NewStore() *Store {
	s := &Store{st: newState()}
	s.repos = newRepositories(liveView{s: s})
	return s
}

// SetUnavailable makes every call fail with repositories.ErrStoreUnavailable.
func (s *Store) SetUnavailable(down bool) {
	s.unavailable.Store(down)
}

func (s *Store) Repos() *repositories.Repositories { return s.repos }

func (s *Store) Ping(ctx context.Context) error {
	return s.check(ctx)
}

// WithTx must not be re-entered from fn, and fn must only use the
// repositories it is given.
func (s *Store) WithTx(ctx context.Context, fn repositories.TxFunc) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()

	if err := fn(ctx, newRepositories(txView{s: s, st: work})); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.unavailable.Load() {
		return repositories.ErrStoreUnavailable
	}
	return nil
}

// view hides whether a repository runs against the live state or a
// transaction's working copy.
type view interface {
	read(ctx context.Context, fn func(st *state) error) error
	write(ctx context.Context, fn func(st *state) error) error
}

type liveView struct {
	s *Store
}

func (v liveView) read(ctx context.Context, fn func(st *state) error) error {
	if err := v.s.check(ctx); err != nil {
		return err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return fn(v.s.st)
}

func (v liveView) write(ctx context.Context, fn func(st *state) error) error {
	if err := v.s.check(ctx); err != nil {
		return err
	}
	v.s.txMu.Lock()
	defer v.s.txMu.Unlock()
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}

type txView struct {
	s  *Store
	st *state
}

func (v txView) read(ctx context.Context, fn func(st *state) error) error {
	if err := v.s.check(ctx); err != nil {
		return err
	}
	return fn(v.st)
}

func (v txView) write(ctx context.Context, fn func(st *state) error) error {
	if err := v.s.check(ctx); err != nil {
		return err
	}
	return fn(v.st)
}

func newRepositories(v view) *repositories.Repositories {
	return &repositories.Repositories{
		Units:         &unitRepo{v: v},
		Tenants:       &tenantRepo{v: v},
		Occupations:   &occupationRepo{v: v},
		Bookings:      &bookingRepo{v: v},
		Notices:       &noticeRepo{v: v},
		Receivables:   &receivableRepo{v: v},
		Invoices:      &invoiceRepo{v: v},
		Transactions:  &transactionRepo{v: v},
		Payments:      &paymentRepo{v: v},
		MpesaPayments: &mpesaRepo{v: v},
		Receipts:      &receiptRepo{v: v},
		Notifications: &notificationRepo{v: v},
	}
}

// stamp fills created_at the way the SQL default would, keeping a value the
// caller already set.
func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

// compareCursor orders a row against a cursor by (created_at, id).
func compareCursor(createdAt time.Time, id uuid.UUID, c repositories.Cursor) int {
	switch {
	case createdAt.Before(c.CreatedAt):
		return -1
	case createdAt.After(c.CreatedAt):
		return 1
	}
	return bytes.Compare(id[:], c.ID[:])
}

// limitPage trims a sorted listing to the page size.
func limitPage[T any](out []T, limit int) []T {
	if limit > 0 && len(out) > limit {
		return out[:limit]
	}
	return out
}

var _ repositories.Store = (*Store)(nil)
