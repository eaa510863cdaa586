package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/constants"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/sirupsen/logrus"
)

// ReconciliationService matches unclaimed mobile payments to occupations.
// It is the only writer of Payment.status and of receipts.
type ReconciliationService struct {
	cfg           *config.Config
	store         repositories.Store
	billing       *BillingService
	notifications *NotificationService
}

func NewReconciliationService(
	cfg *config.Config,
	store repositories.Store,
	billing *BillingService,
	notifications *NotificationService,
) *ReconciliationService {
	return &ReconciliationService{cfg: cfg, store: store, billing: billing, notifications: notifications}
}

// ReconcileMobilePayments walks every UNCLAIMED mobile payment, oldest
// first, one page of BatchSize at a time. A payment whose reference matches
// no open occupation stays UNCLAIMED and is tried again on the next run
// without holding back the payments behind it.
func (s *ReconciliationService) ReconcileMobilePayments(ctx context.Context) (*BatchResult, error) {
	return processTimePages(ctx, constants.JobPaymentReconciliation, s.cfg.JobWorkers, s.cfg.BatchSize,
		func(ctx context.Context, page repositories.TimePage) ([]*models.Payment, error) {
			payments, err := s.store.Repos().Payments.ListByStatusAndType(ctx,
				models.PaymentStatusUnclaimed, models.PaymentTypeMobile, page)
			if err != nil {
				return nil, fmt.Errorf("list unclaimed payments: %w", err)
			}
			return payments, nil
		},
		func(p *models.Payment) repositories.Cursor {
			return repositories.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
		},
		func(p *models.Payment) string { return p.ReferenceNumber },
		func(p *models.Payment) logrus.Fields {
			return logrus.Fields{"payment_id": p.ID, "reference_number": p.ReferenceNumber}
		},
		s.reconcile,
	)
}

func (s *ReconciliationService) reconcile(ctx context.Context, payment *models.Payment) error {
	occ, err := s.store.Repos().Occupations.GetByNumber(ctx, payment.ReferenceNumber)
	if err != nil {
		return err
	}
	if occ == nil {
		return skipf("no occupation matches reference %q", payment.ReferenceNumber)
	}
	if !slices.Contains(models.BillableOccupationStatuses, occ.Status) {
		return skipf("occupation %s matching reference %q is %s", occ.Number, payment.ReferenceNumber, occ.Status)
	}

	var (
		receipt *models.Receipt
		unit    *models.Unit
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
		if err := r.Occupations.LockOccupation(ctx, occ.ID); err != nil {
			return err
		}
		locked, err := r.Occupations.GetByID(ctx, occ.ID)
		if err != nil {
			return err
		}
		if locked == nil || !slices.Contains(models.BillableOccupationStatuses, locked.Status) {
			return skipf("occupation %s closed before payment %s was claimed", occ.Number, payment.ID)
		}
		claimed, err := r.Payments.MarkClaimed(ctx, payment.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return skipf("payment %s was already claimed", payment.ID)
		}

		previous, err := r.Receipts.GetLatestByOccupationID(ctx, occ.ID)
		if err != nil {
			return err
		}
		number, err := models.NextReceiptNumber(previous, occ.Number)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrInvalidNumber, err)
		}
		rc := models.NewReceipt(number, occ.ID, payment.ID)
		if err := r.Receipts.Create(ctx, rc); err != nil {
			return err
		}
		if _, err := s.billing.PostCredit(ctx, r, occ.ID, payment.ID, payment.Amount); err != nil {
			return err
		}

		if unit, err = r.Units.GetByID(ctx, occ.UnitID); err != nil {
			return err
		}
		receipt = rc
		return nil
	})
	if err != nil {
		return err
	}

	utils.Logger.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"occupation_id":  occ.ID,
		"receipt_number": receipt.Number,
	}).Info("Payment claimed")

	// Notification failures never undo the claim.
	s.notifications.NotifyPaymentReceived(ctx, occ, unit, payment, receipt)
	return nil
}
