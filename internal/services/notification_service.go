package services

import (
	"context"
	"fmt"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/constants"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotificationService queues notification requests in the store and
// dispatches pending ones through the configured senders.
type NotificationService struct {
	cfg     *config.Config
	store   repositories.Store
	clock   utils.Clock
	senders map[models.NotificationChannel]Sender
}

func NewNotificationService(
	cfg *config.Config,
	store repositories.Store,
	clock utils.Clock,
	senders ...Sender,
) *NotificationService {
	byChannel := make(map[models.NotificationChannel]Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	return &NotificationService{cfg: cfg, store: store, clock: clock, senders: byChannel}
}

// Enqueue stores n as PENDING for the dispatch job.
func (s *NotificationService) Enqueue(ctx context.Context, n *models.Notification) (uuid.UUID, error) {
	n.Status = models.NotificationStatusPending
	if err := s.store.Repos().Notifications.Create(ctx, n); err != nil {
		return uuid.Nil, err
	}
	return n.ID, nil
}

// enqueueBestEffort never fails the caller: a notification that cannot be
// queued is logged and dropped.
func (s *NotificationService) enqueueBestEffort(ctx context.Context, n *models.Notification, fields logrus.Fields) {
	if _, err := s.Enqueue(ctx, n); err != nil {
		utils.Logger.WithError(err).WithFields(fields).
			Warnf("Failed to enqueue %s notification", n.Channel)
	}
}

func (s *NotificationService) tenantEmail(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, bool) {
	tenant, err := s.store.Repos().Tenants.GetByID(ctx, tenantID)
	if err != nil {
		utils.Logger.WithError(err).Warnf("Failed to load tenant %s for notification", tenantID)
		return nil, false
	}
	if tenant == nil || tenant.EmailAddress == "" {
		utils.Logger.Debugf("Tenant %s has no email address; skipping email", tenantID)
		return nil, false
	}
	return tenant, true
}

func (s *NotificationService) NotifyOccupationConfirmed(ctx context.Context, occ *models.Occupation, unit *models.Unit) {
	tenant, ok := s.tenantEmail(ctx, occ.TenantID)
	if !ok {
		return
	}
	data := map[string]string{
		"name":              tenant.FullName(),
		"occupation_number": occ.Number,
		"unit_number":       unit.Number,
		"start_date":        occ.StartDate.Format("2006-01-02"),
		"organization":      s.cfg.OrganizationName,
	}
	msg := fmt.Sprintf("Hello %s, your occupation %s of house %s starts on %s.",
		tenant.FullName(), occ.Number, unit.Number, data["start_date"])
	n := models.NewEmailNotification(tenant.EmailAddress, constants.EmailSubjectOccupationConfirmed,
		constants.TemplateOccupationConfirmed, msg, data)
	s.enqueueBestEffort(ctx, n, logrus.Fields{"occupation_id": occ.ID})
}

func (s *NotificationService) NotifyInvoiceCreated(ctx context.Context, occ *models.Occupation, inv *models.Invoice) {
	tenant, ok := s.tenantEmail(ctx, occ.TenantID)
	if !ok {
		return
	}
	total := inv.Total().StringFixed(2)
	data := map[string]string{
		"name":           tenant.FullName(),
		"invoice_number": inv.Number,
		"start_date":     inv.StartDate.Format("2006-01-02"),
		"end_date":       inv.EndDate.Format("2006-01-02"),
		"currency":       inv.Currency,
		"total":          total,
		"organization":   s.cfg.OrganizationName,
	}
	msg := fmt.Sprintf("Invoice %s for %s to %s: %s %s.",
		inv.Number, data["start_date"], data["end_date"], inv.Currency, total)
	n := models.NewEmailNotification(tenant.EmailAddress, fmt.Sprintf(constants.EmailSubjectInvoiceCreated, inv.Number),
		constants.TemplateInvoiceCreated, msg, data)
	s.enqueueBestEffort(ctx, n, logrus.Fields{"occupation_id": occ.ID, "invoice_id": inv.ID})
}

// NotifyPaymentReceived queues the receipt email and, when SMS is enabled,
// an SMS to the payer's number from the raw gateway record.
func (s *NotificationService) NotifyPaymentReceived(
	ctx context.Context,
	occ *models.Occupation,
	unit *models.Unit,
	payment *models.Payment,
	receipt *models.Receipt,
) {
	fields := logrus.Fields{"payment_id": payment.ID, "occupation_id": occ.ID}
	amount := payment.Amount.StringFixed(2)
	houseNumber := occ.Number
	if unit != nil {
		houseNumber = unit.Number
	}

	if s.cfg.LDFlag_SendSMS {
		if to := s.payerMobileNumber(ctx, payment); to != "" {
			msg := fmt.Sprintf(constants.SMSPaymentReceivedFormat, payment.Currency, amount, payment.TransactionID, houseNumber)
			s.enqueueBestEffort(ctx, models.NewSMSNotification(to, msg), fields)
		}
	}

	tenant, ok := s.tenantEmail(ctx, occ.TenantID)
	if !ok {
		return
	}
	data := map[string]string{
		"name":           tenant.FullName(),
		"receipt_number": receipt.Number,
		"reference":      payment.TransactionID,
		"currency":       payment.Currency,
		"amount":         amount,
		"house_number":   houseNumber,
		"organization":   s.cfg.OrganizationName,
	}
	msg := fmt.Sprintf("We received %s %s for house %s. Receipt %s.", payment.Currency, amount, houseNumber, receipt.Number)
	n := models.NewEmailNotification(tenant.EmailAddress, fmt.Sprintf(constants.EmailSubjectPaymentReceived, receipt.Number),
		constants.TemplatePaymentReceived, msg, data)
	s.enqueueBestEffort(ctx, n, fields)
}

func (s *NotificationService) payerMobileNumber(ctx context.Context, payment *models.Payment) string {
	raw, err := s.store.Repos().MpesaPayments.GetByTransactionID(ctx, payment.TransactionID)
	if err != nil {
		utils.Logger.WithError(err).Warnf("Failed to look up gateway record %s", payment.TransactionID)
	}
	if raw != nil && raw.MobileNumber != "" {
		return raw.MobileNumber
	}
	if payment.MobileNumber != nil && *payment.MobileNumber != "" {
		return *payment.MobileNumber
	}
	utils.Logger.Warnf("No mobile number for payment %s; skipping SMS", payment.ID)
	return ""
}

// DispatchPending delivers one bounded batch of PENDING notifications and
// marks each SENT or FAILED. Failed notifications stay FAILED.
func (s *NotificationService) DispatchPending(ctx context.Context) (*BatchResult, error) {
	pending, err := s.store.Repos().Notifications.ListByStatus(ctx, models.NotificationStatusPending, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return processBatch(ctx, constants.JobNotificationDispatch, pending, s.cfg.JobWorkers,
		func(n *models.Notification) string { return n.ID.String() },
		func(n *models.Notification) logrus.Fields {
			return logrus.Fields{"notification_id": n.ID, "channel": n.Channel}
		},
		s.deliver,
	)
}

func (s *NotificationService) deliver(ctx context.Context, n *models.Notification) error {
	var sendErr error
	if sender, ok := s.senders[n.Channel]; ok {
		sendErr = sender.Send(ctx, n)
	} else {
		sendErr = fmt.Errorf("%w: %s", utils.ErrNoSenderForChannel, n.Channel)
	}

	now := s.clock.Now().UTC()
	err := s.store.Repos().Notifications.UpdateWithRetry(ctx, n.ID, func(cur *models.Notification) error {
		if cur.Status != models.NotificationStatusPending {
			return skipf("notification %s is already %s", cur.ID, cur.Status)
		}
		cur.Attempts++
		if sendErr != nil {
			cur.Status = models.NotificationStatusFailed
			cur.LastError = utils.Ptr(sendErr.Error())
			return nil
		}
		cur.Status = models.NotificationStatusSent
		cur.SentAt = &now
		return nil
	})
	if err != nil {
		return err
	}
	return sendErr
}
