package services

import (
	"testing"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/constants"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories/memory"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func (f *fixture) mobilePayment(transactionID, reference string, amount int64, at time.Time) *models.Payment {
	f.t.Helper()
	p := models.NewMobilePayment(transactionID, reference, "KES", dec(amount))
	p.CreatedAt = at
	require.NoError(f.t, f.repos().Payments.Create(f.ctx, p))
	return p
}

func (f *fixture) reloadPayment(p *models.Payment) *models.Payment {
	f.t.Helper()
	got, err := f.repos().Payments.GetByID(f.ctx, p.ID)
	require.NoError(f.t, err)
	require.NotNil(f.t, got)
	return got
}

func TestReconcileClaimsMatchingPayment(t *testing.T) {
	f := newFixture(t)
	u := f.unit("H-1", models.UnitStatusOccupied)
	tn := f.tenant("jane@example.com")
	o := f.occupation("U1", u, tn, models.OccupationStatusCurrent, june.AddDate(0, -2, 0), june.AddDate(0, -2, 0))

	_, end := utils.MonthBounds(june)
	_, err := f.billing.GeneratePeriodCharges(f.ctx, june, end)
	require.NoError(t, err)

	p := f.mobilePayment("QGH7XK2", "U1", 1000, testToday)
	res, err := f.reconciliation.ReconcileMobilePayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)

	require.Equal(t, models.PaymentStatusClaimed, f.reloadPayment(p).Status)

	receipt, err := f.repos().Receipts.GetByPaymentID(f.ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	require.Equal(t, "RCT100000U1", receipt.Number)
	require.Equal(t, o.ID, receipt.OccupationID)

	chain := f.chain(o.ID)
	require.Len(t, chain, 2)
	require.Equal(t, models.TransactionTypeCredit, chain[1].Type)
	require.Equal(t, p.ID, *chain[1].PaymentID)
	requireDecimal(t, 250, chain[1].TotalAmountCarriedForward)
	requireConsistentChain(t, chain)

	pending := f.pendingNotifications()
	require.Len(t, pending, 1)
	require.Equal(t, constants.TemplatePaymentReceived, pending[0].Template)
	require.Equal(t, "H-1", pending[0].Data["house_number"])
}

func TestReconcileNumbersReceiptsInOrder(t *testing.T) {
	f := newFixture(t)
	u := f.unit("H-1", models.UnitStatusOccupied)
	tn := f.tenant("jane@example.com")
	o := f.occupation("U1", u, tn, models.OccupationStatusCurrent, june, june)

	first := f.mobilePayment("TX1", "U1", 500, testToday)
	second := f.mobilePayment("TX2", "U1", 700, testToday.Add(time.Minute))

	res, err := f.reconciliation.ReconcileMobilePayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Succeeded)

	r1, err := f.repos().Receipts.GetByPaymentID(f.ctx, first.ID)
	require.NoError(t, err)
	r2, err := f.repos().Receipts.GetByPaymentID(f.ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, "RCT100000U1", r1.Number)
	require.Equal(t, "RCT100001U1", r2.Number)

	balance, err := f.billing.Balance(f.ctx, o.ID)
	require.NoError(t, err)
	requireDecimal(t, -1200, balance)
}

func TestReconcileLeavesUnmatchedPaymentForNextRun(t *testing.T) {
	f := newFixture(t)
	p := f.mobilePayment("TX1", "NOPE", 500, testToday)

	res, err := f.reconciliation.ReconcileMobilePayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, models.PaymentStatusUnclaimed, f.reloadPayment(p).Status)

	// the occupation shows up later and the payment is picked up
	u := f.unit("H-1", models.UnitStatusOccupied)
	tn := f.tenant("jane@example.com")
	o := f.occupation("NOPE", u, tn, models.OccupationStatusCurrent, june, june)

	res, err = f.reconciliation.ReconcileMobilePayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)
	require.Equal(t, models.PaymentStatusClaimed, f.reloadPayment(p).Status)
	require.Len(t, f.chain(o.ID), 1)
}

func TestReconcileDoesNotStallBehindUnmatchedPayments(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 3
	f := newFixtureWithStore(t, memory.NewStore(), cfg)
	u := f.unit("H-1", models.UnitStatusOccupied)
	tn := f.tenant("jane@example.com")
	f.occupation("U1", u, tn, models.OccupationStatusCurrent, june, june)

	var unmatched []*models.Payment
	for i, tx := range []string{"TX1", "TX2", "TX3"} {
		unmatched = append(unmatched, f.mobilePayment(tx, "NOPE", 100, testToday.Add(time.Duration(i)*time.Minute)))
	}
	valid := f.mobilePayment("TX4", "U1", 500, testToday.Add(time.Hour))

	res, err := f.reconciliation.ReconcileMobilePayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 4, res.Processed)
	require.Equal(t, 3, res.Skipped)
	require.Equal(t, 1, res.Succeeded)
	require.Equal(t, models.PaymentStatusClaimed, f.reloadPayment(valid).Status)
	for _, p := range unmatched {
		require.Equal(t, models.PaymentStatusUnclaimed, f.reloadPayment(p).Status)
	}

	// the unmatched ones are still attempted on every later run
	res, err = f.reconciliation.ReconcileMobilePayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 3, res.Processed)
	require.Equal(t, 3, res.Skipped)
}

func TestReconcileIgnoresClosedOccupations(t *testing.T) {
	f := newFixture(t)
	u := f.unit("H-1", models.UnitStatusVacant)
	tn := f.tenant("jane@example.com")
	o := f.occupation("U1", u, tn, models.OccupationStatusPrevious, june.AddDate(-1, 0, 0), june.AddDate(-1, 0, 0))

	p := f.mobilePayment("QGH7XK2", "U1", 1000, testToday)
	res, err := f.reconciliation.ReconcileMobilePayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, 0, res.Succeeded)

	require.Equal(t, models.PaymentStatusUnclaimed, f.reloadPayment(p).Status)
	receipt, err := f.repos().Receipts.GetByPaymentID(f.ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, receipt)
	require.Empty(t, f.chain(o.ID))
	require.Empty(t, f.pendingNotifications())
}

func TestReconcileSendsSMSToGatewayNumber(t *testing.T) {
	cfg := testConfig()
	cfg.LDFlag_SendSMS = true
	f := newFixtureWithStore(t, memory.NewStore(), cfg)
	u := f.unit("H-1", models.UnitStatusOccupied)
	tn := f.tenant("jane@example.com")
	f.occupation("U1", u, tn, models.OccupationStatusCurrent, june, june)

	require.NoError(t, f.repos().MpesaPayments.Create(f.ctx, &models.MpesaPayment{
		ID:            uuid.New(),
		TransactionID: "QGH7XK2",
		MobileNumber:  "+254722000111",
		Amount:        dec(1500),
	}))
	f.mobilePayment("QGH7XK2", "U1", 1500, testToday)

	_, err := f.reconciliation.ReconcileMobilePayments(f.ctx)
	require.NoError(t, err)

	var sms []*models.Notification
	for _, n := range f.pendingNotifications() {
		if n.Channel == models.NotificationChannelSMS {
			sms = append(sms, n)
		}
	}
	require.Len(t, sms, 1)
	require.Equal(t, "+254722000111", sms[0].To)
	require.Equal(t, "Payment of KES 1500.00 received. Ref: QGH7XK2. House: H-1. Thank you.", sms[0].Message)
}

func TestReconcileSkipsSMSWhenDisabled(t *testing.T) {
	f := newFixture(t)
	u := f.unit("H-1", models.UnitStatusOccupied)
	tn := f.tenant("jane@example.com")
	f.occupation("U1", u, tn, models.OccupationStatusCurrent, june, june)
	p := models.NewMobilePayment("TX1", "U1", "KES", dec(100))
	p.MobileNumber = utils.Ptr("+254722000111")
	require.NoError(t, f.repos().Payments.Create(f.ctx, p))

	_, err := f.reconciliation.ReconcileMobilePayments(f.ctx)
	require.NoError(t, err)
	for _, n := range f.pendingNotifications() {
		require.NotEqual(t, models.NotificationChannelSMS, n.Channel)
	}
}
