package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
)

/* ---------- payments ---------- */

type paymentRepo struct{ v view }

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	return r.v.write(ctx, func(st *state) error {
		for _, other := range st.payments {
			if other.ID == p.ID || other.TransactionID == p.TransactionID {
				return fmt.Errorf("%w: payment transaction %s", utils.ErrConflict, p.TransactionID)
			}
		}
		stamp(&p.CreatedAt)
		p.UpdatedAt = p.CreatedAt
		p.RowVersion = 1
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var out *models.Payment
	err := r.v.read(ctx, func(st *state) error {
		if p, ok := st.payments[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *paymentRepo) ListByStatusAndType(
	ctx context.Context,
	status models.PaymentStatus,
	pType models.PaymentType,
	page repositories.TimePage,
) ([]*models.Payment, error) {
	var out []*models.Payment
	err := r.v.read(ctx, func(st *state) error {
		for _, p := range st.payments {
			if p.Status != status || p.Type != pType {
				continue
			}
			if page.After != nil && compareCursor(p.CreatedAt, p.ID, *page.After) <= 0 {
				continue
			}
			p := p
			out = append(out, &p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return limitPage(out, page.Limit), err
}

func (r *paymentRepo) MarkClaimed(ctx context.Context, id uuid.UUID) (bool, error) {
	var claimed bool
	err := r.v.write(ctx, func(st *state) error {
		p, ok := st.payments[id]
		if !ok || p.Status != models.PaymentStatusUnclaimed {
			return nil
		}
		p.Status = models.PaymentStatusClaimed
		p.RowVersion++
		p.UpdatedAt = time.Now().UTC()
		st.payments[id] = p
		claimed = true
		return nil
	})
	return claimed, err
}

/* ---------- mpesa payments ---------- */

type mpesaRepo struct{ v view }

func (r *mpesaRepo) Create(ctx context.Context, m *models.MpesaPayment) error {
	return r.v.write(ctx, func(st *state) error {
		for _, other := range st.mpesa {
			if other.TransactionID == m.TransactionID {
				return fmt.Errorf("%w: mpesa transaction %s", utils.ErrConflict, m.TransactionID)
			}
		}
		stamp(&m.CreatedAt)
		st.mpesa[m.ID] = *m
		return nil
	})
}

func (r *mpesaRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.MpesaPayment, error) {
	var out *models.MpesaPayment
	err := r.v.read(ctx, func(st *state) error {
		for _, m := range st.mpesa {
			if m.TransactionID == transactionID {
				m := m
				out = &m
				return nil
			}
		}
		return nil
	})
	return out, err
}

/* ---------- receipts ---------- */

type receiptRepo struct{ v view }

func (r *receiptRepo) Create(ctx context.Context, rc *models.Receipt) error {
	return r.v.write(ctx, func(st *state) error {
		for _, other := range st.receipts {
			if other.PaymentID == rc.PaymentID || other.Number == rc.Number {
				return fmt.Errorf("%w: receipt for payment %s", utils.ErrConflict, rc.PaymentID)
			}
		}
		stamp(&rc.CreatedAt)
		st.receipts[rc.ID] = *rc
		return nil
	})
}

func (r *receiptRepo) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Receipt, error) {
	var out *models.Receipt
	err := r.v.read(ctx, func(st *state) error {
		for _, rc := range st.receipts {
			if rc.PaymentID == paymentID {
				rc := rc
				out = &rc
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *receiptRepo) GetLatestByOccupationID(ctx context.Context, occupationID uuid.UUID) (*models.Receipt, error) {
	var out *models.Receipt
	err := r.v.read(ctx, func(st *state) error {
		for _, rc := range st.receipts {
			if rc.OccupationID != occupationID {
				continue
			}
			if out == nil || rc.CreatedAt.After(out.CreatedAt) ||
				(rc.CreatedAt.Equal(out.CreatedAt) && receiptNumberAfter(rc.Number, out.Number)) {
				rc := rc
				out = &rc
			}
		}
		return nil
	})
	return out, err
}

/* ---------- notifications ---------- */

type notificationRepo struct{ v view }

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return r.v.write(ctx, func(st *state) error {
		if _, ok := st.notifications[n.ID]; ok {
			return fmt.Errorf("%w: notification %s", utils.ErrConflict, n.ID)
		}
		stamp(&n.CreatedAt)
		n.UpdatedAt = n.CreatedAt
		n.RowVersion = 1
		stored := *n
		stored.Data = copyData(n.Data)
		st.notifications[n.ID] = stored
		return nil
	})
}

func (r *notificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var out *models.Notification
	err := r.v.read(ctx, func(st *state) error {
		if n, ok := st.notifications[id]; ok {
			n.Data = copyData(n.Data)
			out = &n
		}
		return nil
	})
	return out, err
}

func (r *notificationRepo) ListByStatus(ctx context.Context, status models.NotificationStatus, limit int) ([]*models.Notification, error) {
	var out []*models.Notification
	err := r.v.read(ctx, func(st *state) error {
		for _, n := range st.notifications {
			if n.Status == status {
				n.Data = copyData(n.Data)
				out = append(out, &n)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *notificationRepo) UpdateIfVersion(ctx context.Context, n *models.Notification, expected int64) (pgconn.CommandTag, error) {
	tag := pgconn.CommandTag("UPDATE 0")
	err := r.v.write(ctx, func(st *state) error {
		cur, ok := st.notifications[n.ID]
		if !ok || cur.RowVersion != expected {
			return nil
		}
		cur.Status = n.Status
		cur.Attempts = n.Attempts
		cur.LastError = n.LastError
		cur.SentAt = n.SentAt
		cur.RowVersion = expected + 1
		cur.UpdatedAt = time.Now().UTC()
		st.notifications[n.ID] = cur
		tag = pgconn.CommandTag("UPDATE 1")
		return nil
	})
	return tag, err
}

func (r *notificationRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Notification) error) error {
	return repositories.WithRetry(ctx, id, r.GetByID, r.UpdateIfVersion, mutate)
}

// receiptNumberAfter compares receipt numbers of one occupation, where a
// longer counter is always the later one.
func receiptNumberAfter(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
