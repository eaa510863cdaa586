package services

import (
	"context"
	"fmt"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/constants"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BillingService owns the ledger: receivables and the per-occupation chain
// of OccupationTransactions.
type BillingService struct {
	cfg   *config.Config
	store repositories.Store
}

func NewBillingService(cfg *config.Config, store repositories.Store) *BillingService {
	return &BillingService{cfg: cfg, store: store}
}

// GeneratePeriodCharges bills every CURRENT or BOOKED occupation once for the
// period starting at periodStart. Re-running for the same period skips
// occupations that already have the RENT receivable.
func (s *BillingService) GeneratePeriodCharges(ctx context.Context, periodStart, periodEnd time.Time) (*BatchResult, error) {
	period := utils.DateOnly(periodStart)
	utils.Logger.WithFields(logrus.Fields{
		"period_start": period.Format("2006-01-02"),
		"period_end":   utils.DateOnly(periodEnd).Format("2006-01-02"),
	}).Info("Generating period charges")

	return forEachOccupationPage(ctx, s.store, s.cfg, constants.JobPeriodBilling, models.BillableOccupationStatuses,
		func(ctx context.Context, occ *models.Occupation) error {
			return s.chargeOccupation(ctx, occ, period)
		})
}

func (s *BillingService) chargeOccupation(ctx context.Context, occ *models.Occupation, period time.Time) error {
	return s.store.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
		if err := r.Occupations.LockOccupation(ctx, occ.ID); err != nil {
			return err
		}
		unit, err := r.Units.GetByID(ctx, occ.UnitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return skipf("unit %s for occupation %s not found", occ.UnitID, occ.ID)
		}

		rec := models.NewRentReceivable(occ.ID, period, unit)
		created, err := r.Receivables.CreateIfNotExists(ctx, rec)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("%w: occupation %s period %s", utils.ErrDuplicatePeriodCharge, occ.Number, period.Format("2006-01-02"))
		}

		_, err = appendToChain(ctx, r, occ.ID, models.TransactionTypeDebit, rec.Total(), func(t *models.OccupationTransaction) {
			t.ReceivableID = &rec.ID
		})
		return err
	})
}

// GeneratePenalties adds a PENALTY receivable and DEBIT for every CURRENT
// occupation whose balance is still positive. A zero percentage disables it.
func (s *BillingService) GeneratePenalties(ctx context.Context, periodStart time.Time) (*BatchResult, error) {
	if s.cfg.PenaltyPercentage <= 0 {
		utils.Logger.Info("Penalty percentage is zero; skipping penalty billing")
		return newBatchResult(constants.JobPenaltyBilling), nil
	}
	period := utils.DateOnly(periodStart)
	return forEachOccupationPage(ctx, s.store, s.cfg, constants.JobPenaltyBilling,
		[]models.OccupationStatus{models.OccupationStatusCurrent},
		func(ctx context.Context, occ *models.Occupation) error {
			return s.penalizeOccupation(ctx, occ, period)
		})
}

func (s *BillingService) penalizeOccupation(ctx context.Context, occ *models.Occupation, period time.Time) error {
	return s.store.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
		if err := r.Occupations.LockOccupation(ctx, occ.ID); err != nil {
			return err
		}
		tail, err := r.Transactions.GetLatestByOccupationID(ctx, occ.ID)
		if err != nil {
			return err
		}
		if tail == nil || !tail.TotalAmountCarriedForward.IsPositive() {
			return skipf("occupation %s has no outstanding balance", occ.Number)
		}
		unit, err := r.Units.GetByID(ctx, occ.UnitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return skipf("unit %s for occupation %s not found", occ.UnitID, occ.ID)
		}

		rec := models.NewPenaltyReceivable(occ.ID, period, models.PenaltyFor(unit.RentPerMonth, s.cfg.PenaltyPercentage))
		created, err := r.Receivables.CreateIfNotExists(ctx, rec)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("%w: penalty for occupation %s period %s", utils.ErrDuplicatePeriodCharge, occ.Number, period.Format("2006-01-02"))
		}

		_, err = appendToChain(ctx, r, occ.ID, models.TransactionTypeDebit, rec.Total(), func(t *models.OccupationTransaction) {
			t.ReceivableID = &rec.ID
		})
		return err
	})
}

// PostCredit appends a CREDIT for a claimed payment. It must run inside the
// caller's transaction so the credit commits with the claim.
func (s *BillingService) PostCredit(
	ctx context.Context,
	r *repositories.Repositories,
	occupationID, paymentID uuid.UUID,
	amount decimal.Decimal,
) (*models.OccupationTransaction, error) {
	return appendToChain(ctx, r, occupationID, models.TransactionTypeCredit, amount, func(t *models.OccupationTransaction) {
		t.PaymentID = &paymentID
	})
}

// Balance returns the carried-forward total of the chain tail.
func (s *BillingService) Balance(ctx context.Context, occupationID uuid.UUID) (decimal.Decimal, error) {
	tail, err := s.store.Repos().Transactions.GetLatestByOccupationID(ctx, occupationID)
	if err != nil || tail == nil {
		return decimal.Zero, err
	}
	return tail.TotalAmountCarriedForward, nil
}

// appendToChain reads the chain tail and appends the next entry. Callers
// hold the occupation lock, so the tail cannot move underneath; the unique
// sequence rejects the append if it somehow did.
func appendToChain(
	ctx context.Context,
	r *repositories.Repositories,
	occupationID uuid.UUID,
	txType models.TransactionType,
	amount decimal.Decimal,
	link func(*models.OccupationTransaction),
) (*models.OccupationTransaction, error) {
	tail, err := r.Transactions.GetLatestByOccupationID(ctx, occupationID)
	if err != nil {
		return nil, err
	}
	entry := models.NextTransaction(tail, occupationID, txType, amount)
	link(entry)
	if err := r.Transactions.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// forEachOccupationPage walks all occupations in statuses page by page and
// runs handle for each through processBatch, keyed by occupation.
func forEachOccupationPage(
	ctx context.Context,
	store repositories.Store,
	cfg *config.Config,
	job string,
	statuses []models.OccupationStatus,
	handle func(context.Context, *models.Occupation) error,
) (*BatchResult, error) {
	total := newBatchResult(job)
	page := repositories.Page{Limit: cfg.BatchSize}
	if page.Limit <= 0 {
		page.Limit = constants.DefaultBatchSize
	}
	for {
		occs, err := store.Repos().Occupations.ListByStatuses(ctx, statuses, page)
		if err != nil {
			return total, fmt.Errorf("list occupations: %w", err)
		}
		res, err := processBatch(ctx, job, occs, cfg.JobWorkers,
			func(o *models.Occupation) string { return o.ID.String() },
			occupationFields,
			handle,
		)
		total.merge(res)
		if err != nil {
			return total, err
		}
		if len(occs) < page.Limit {
			return total, nil
		}
		last := occs[len(occs)-1].ID
		page.After = &last
	}
}

func occupationFields(o *models.Occupation) logrus.Fields {
	return logrus.Fields{"occupation_id": o.ID, "occupation_number": o.Number}
}
