package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newUnit(status models.UnitStatus) *models.Unit {
	return &models.Unit{
		ID:               uuid.New(),
		Number:           "U-" + uuid.NewString()[:8],
		Status:           status,
		Currency:         "KES",
		RentPerMonth:     decimal.NewFromInt(1000),
		SecurityPerMonth: decimal.NewFromInt(200),
		GarbagePerMonth:  decimal.NewFromInt(50),
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := newUnit(models.UnitStatusOccupied)
	require.NoError(t, s.Repos().Units.Create(ctx, u))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
		moved, err := r.Units.TransitionStatus(ctx, u.ID, models.UnitStatusOccupied, models.UnitStatusVacant)
		require.NoError(t, err)
		require.True(t, moved)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Repos().Units.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, models.UnitStatusOccupied, got.Status)
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := newUnit(models.UnitStatusVacant)
	require.NoError(t, s.Repos().Units.Create(ctx, u))

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
		_, err := r.Units.TransitionStatus(ctx, u.ID, models.UnitStatusVacant, models.UnitStatusOccupied)
		return err
	}))

	got, err := s.Repos().Units.GetByIDAndStatus(ctx, u.ID, models.UnitStatusOccupied)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.EqualValues(t, 2, got.RowVersion)
}

func TestReceivableKeyIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	occID := uuid.New()
	period := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	unit := newUnit(models.UnitStatusOccupied)

	created, err := s.Repos().Receivables.CreateIfNotExists(ctx, models.NewRentReceivable(occID, period, unit))
	require.NoError(t, err)
	require.True(t, created)

	created, err = s.Repos().Receivables.CreateIfNotExists(ctx, models.NewRentReceivable(occID, period, unit))
	require.NoError(t, err)
	require.False(t, created)

	created, err = s.Repos().Receivables.CreateIfNotExists(ctx, models.NewPenaltyReceivable(occID, period, decimal.NewFromInt(50)))
	require.NoError(t, err)
	require.True(t, created)
}

func TestTransactionSequenceIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	occID := uuid.New()

	first := models.NextTransaction(nil, occID, models.TransactionTypeDebit, decimal.NewFromInt(10))
	require.NoError(t, s.Repos().Transactions.Create(ctx, first))

	fork := models.NextTransaction(nil, occID, models.TransactionTypeDebit, decimal.NewFromInt(20))
	require.ErrorIs(t, s.Repos().Transactions.Create(ctx, fork), utils.ErrLedgerChainConflict)

	tail, err := s.Repos().Transactions.GetLatestByOccupationID(ctx, occID)
	require.NoError(t, err)
	require.Equal(t, first.ID, tail.ID)
}

func TestOnlyOneCurrentOccupationPerUnit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	unitID := uuid.New()
	a := &models.Occupation{ID: uuid.New(), Number: "A", Status: models.OccupationStatusCurrent, UnitID: unitID}
	b := &models.Occupation{ID: uuid.New(), Number: "B", Status: models.OccupationStatusPendingOccupation, UnitID: unitID}
	require.NoError(t, s.Repos().Occupations.Create(ctx, a))
	require.NoError(t, s.Repos().Occupations.Create(ctx, b))

	_, err := s.Repos().Occupations.TransitionStatus(ctx, b.ID,
		models.OccupationStatusPendingOccupation, models.OccupationStatusCurrent, nil)
	require.ErrorIs(t, err, utils.ErrConflict)
}

func TestUnavailableStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.SetUnavailable(true)

	_, err := s.Repos().Payments.ListByStatusAndType(ctx, models.PaymentStatusUnclaimed, models.PaymentTypeMobile, repositories.TimePage{Limit: 10})
	require.ErrorIs(t, err, repositories.ErrStoreUnavailable)
	require.True(t, repositories.IsUnavailable(err))
}

func TestNotificationUpdateWithRetry(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	n := models.NewSMSNotification("+254700000000", "hello")
	require.NoError(t, s.Repos().Notifications.Create(ctx, n))

	require.NoError(t, s.Repos().Notifications.UpdateWithRetry(ctx, n.ID, func(cur *models.Notification) error {
		cur.Status = models.NotificationStatusSent
		cur.Attempts++
		return nil
	}))

	got, err := s.Repos().Notifications.GetByID(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, models.NotificationStatusSent, got.Status)
	require.Equal(t, 1, got.Attempts)
	require.EqualValues(t, 2, got.RowVersion)

	err = s.Repos().Notifications.UpdateWithRetry(ctx, uuid.New(), func(*models.Notification) error { return nil })
	require.ErrorIs(t, err, utils.ErrNotFound)
}

func TestPaymentPagesWalkTiesOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	at := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	want := map[uuid.UUID]bool{}
	for i := 0; i < 5; i++ {
		p := models.NewMobilePayment(uuid.NewString(), "U1", "KES", decimal.NewFromInt(100))
		p.CreatedAt = at
		require.NoError(t, s.Repos().Payments.Create(ctx, p))
		want[p.ID] = true
	}

	seen := map[uuid.UUID]bool{}
	page := repositories.TimePage{Limit: 2}
	for {
		list, err := s.Repos().Payments.ListByStatusAndType(ctx, models.PaymentStatusUnclaimed, models.PaymentTypeMobile, page)
		require.NoError(t, err)
		for _, p := range list {
			require.False(t, seen[p.ID], "payment %s returned twice", p.ID)
			seen[p.ID] = true
		}
		if len(list) < page.Limit {
			break
		}
		last := list[len(list)-1]
		page.After = &repositories.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	require.Equal(t, want, seen)
}
