package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
)

/* ---------- receivables ---------- */

type receivableRepo struct{ v view }

func (r *receivableRepo) CreateIfNotExists(ctx context.Context, rec *models.Receivable) (bool, error) {
	var created bool
	err := r.v.write(ctx, func(st *state) error {
		for _, other := range st.receivables {
			if other.OccupationID == rec.OccupationID &&
				other.Type == rec.Type &&
				utils.DateOnly(other.Period).Equal(utils.DateOnly(rec.Period)) {
				return nil
			}
		}
		stamp(&rec.CreatedAt)
		stored := *rec
		stored.OtherAmounts = copyAmounts(rec.OtherAmounts)
		st.receivables[rec.ID] = stored
		created = true
		return nil
	})
	return created, err
}

func (r *receivableRepo) GetByKey(
	ctx context.Context,
	occupationID uuid.UUID,
	recType models.ReceivableType,
	period time.Time,
) (*models.Receivable, error) {
	var out *models.Receivable
	err := r.v.read(ctx, func(st *state) error {
		for _, rec := range st.receivables {
			if rec.OccupationID == occupationID && rec.Type == recType &&
				utils.DateOnly(rec.Period).Equal(utils.DateOnly(period)) {
				rec.OtherAmounts = copyAmounts(rec.OtherAmounts)
				out = &rec
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *receivableRepo) ListByOccupationID(ctx context.Context, occupationID uuid.UUID) ([]*models.Receivable, error) {
	var out []*models.Receivable
	err := r.v.read(ctx, func(st *state) error {
		for _, rec := range st.receivables {
			if rec.OccupationID == occupationID {
				rec.OtherAmounts = copyAmounts(rec.OtherAmounts)
				out = append(out, &rec)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Period.Equal(out[j].Period) {
			return out[i].Period.Before(out[j].Period)
		}
		return out[i].Type < out[j].Type
	})
	return out, err
}

/* ---------- invoices ---------- */

type invoiceRepo struct{ v view }

func (r *invoiceRepo) CreateIfNotExists(ctx context.Context, inv *models.Invoice) (bool, error) {
	var created bool
	err := r.v.write(ctx, func(st *state) error {
		for _, other := range st.invoices {
			if other.OccupationID == inv.OccupationID && other.Type == inv.Type &&
				utils.DateOnly(other.StartDate).Equal(utils.DateOnly(inv.StartDate)) {
				return nil
			}
		}
		for _, other := range st.invoices {
			if other.Number == inv.Number {
				return fmt.Errorf("%w: invoice number %s", utils.ErrConflict, inv.Number)
			}
		}
		stamp(&inv.CreatedAt)
		stored := *inv
		stored.OtherAmounts = copyAmounts(inv.OtherAmounts)
		st.invoices[inv.ID] = stored
		created = true
		return nil
	})
	return created, err
}

func (r *invoiceRepo) GetLatestByOccupationID(ctx context.Context, occupationID uuid.UUID) (*models.Invoice, error) {
	list, err := r.ListByOccupationID(ctx, occupationID)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	latest := list[0]
	for _, inv := range list[1:] {
		if inv.CreatedAt.After(latest.CreatedAt) ||
			(inv.CreatedAt.Equal(latest.CreatedAt) && inv.Number > latest.Number) {
			latest = inv
		}
	}
	return latest, nil
}

func (r *invoiceRepo) ListByOccupationID(ctx context.Context, occupationID uuid.UUID) ([]*models.Invoice, error) {
	var out []*models.Invoice
	err := r.v.read(ctx, func(st *state) error {
		for _, inv := range st.invoices {
			if inv.OccupationID == occupationID {
				inv.OtherAmounts = copyAmounts(inv.OtherAmounts)
				out = append(out, &inv)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, err
}

/* ---------- occupation transactions ---------- */

type transactionRepo struct{ v view }

func (r *transactionRepo) Create(ctx context.Context, t *models.OccupationTransaction) error {
	return r.v.write(ctx, func(st *state) error {
		for _, other := range st.transactions {
			if other.OccupationID == t.OccupationID && other.Sequence == t.Sequence {
				return fmt.Errorf("%w: occupation %s sequence %d", utils.ErrLedgerChainConflict, t.OccupationID, t.Sequence)
			}
		}
		stamp(&t.CreatedAt)
		st.transactions[t.ID] = *t
		return nil
	})
}

func (r *transactionRepo) GetLatestByOccupationID(ctx context.Context, occupationID uuid.UUID) (*models.OccupationTransaction, error) {
	var out *models.OccupationTransaction
	err := r.v.read(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if t.OccupationID != occupationID {
				continue
			}
			if out == nil || t.Sequence > out.Sequence {
				t := t
				out = &t
			}
		}
		return nil
	})
	return out, err
}

func (r *transactionRepo) ListByOccupationID(ctx context.Context, occupationID uuid.UUID) ([]*models.OccupationTransaction, error) {
	var out []*models.OccupationTransaction
	err := r.v.read(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if t.OccupationID == occupationID {
				t := t
				out = append(out, &t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, err
}
