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
)

// InvoiceService issues the periodic RENT invoice per CURRENT occupation.
// Invoices are documents and leave the ledger alone.
type InvoiceService struct {
	cfg           *config.Config
	store         repositories.Store
	notifications *NotificationService
}

func NewInvoiceService(cfg *config.Config, store repositories.Store, notifications *NotificationService) *InvoiceService {
	return &InvoiceService{cfg: cfg, store: store, notifications: notifications}
}

func (s *InvoiceService) GenerateInvoices(ctx context.Context, periodStart, periodEnd time.Time) (*BatchResult, error) {
	start, end := utils.DateOnly(periodStart), utils.DateOnly(periodEnd)
	if end.Before(start) {
		return nil, fmt.Errorf("period end %s is before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return forEachOccupationPage(ctx, s.store, s.cfg, constants.JobInvoiceGeneration,
		[]models.OccupationStatus{models.OccupationStatusCurrent},
		func(ctx context.Context, occ *models.Occupation) error {
			return s.invoiceOccupation(ctx, occ, start, end)
		})
}

func (s *InvoiceService) invoiceOccupation(ctx context.Context, occ *models.Occupation, start, end time.Time) error {
	var invoice *models.Invoice
	err := s.store.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
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

		// An occupation that starts mid-period is invoiced from its start date.
		from := start
		if occ.StartDate.After(from) {
			from = utils.DateOnly(occ.StartDate)
		}
		if from.After(end) {
			return skipf("occupation %s starts after the period", occ.Number)
		}

		previous, err := r.Invoices.GetLatestByOccupationID(ctx, occ.ID)
		if err != nil {
			return err
		}
		number, err := models.NextInvoiceNumber(previous, occ.Number)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrInvalidNumber, err)
		}

		inv := models.NewRentInvoice(number, occ.ID, unit, from, end)
		created, err := r.Invoices.CreateIfNotExists(ctx, inv)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("%w: invoice for occupation %s from %s", utils.ErrDuplicatePeriodCharge, occ.Number, from.Format("2006-01-02"))
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return err
	}

	s.notifications.NotifyInvoiceCreated(ctx, occ, invoice)
	return nil
}
