package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories/memory"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// failingNotices breaks Deactivate so a vacate fails after the unit and
// occupation writes.
type failingNotices struct {
	repositories.NoticeRepository
}

func (failingNotices) Deactivate(context.Context, uuid.UUID) (bool, error) {
	return false, errors.New("notice write failed")
}

type faultyStore struct {
	*memory.Store
}

func (s faultyStore) WithTx(ctx context.Context, fn repositories.TxFunc) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
		wrapped := *r
		wrapped.Notices = failingNotices{r.Notices}
		return fn(ctx, &wrapped)
	})
}

func TestPromotePendingOccupation(t *testing.T) {
	f := newFixture(t)
	u := f.unit("U1", models.UnitStatusVacant)
	tn := f.tenant("jane@example.com")
	o := f.occupation("O1", u, tn, models.OccupationStatusPendingOccupation, testToday, testToday.Add(-48*time.Hour))

	res, err := f.occupancy.PromotePendingOccupations(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)

	require.Equal(t, models.UnitStatusOccupied, f.reloadUnit(u.ID).Status)
	require.Equal(t, models.OccupationStatusCurrent, f.reloadOccupation(o.ID).Status)

	pending := f.pendingNotifications()
	require.Len(t, pending, 1)
	require.Equal(t, "jane@example.com", pending[0].To)
	require.Equal(t, models.NotificationChannelEmail, pending[0].Channel)
}

func TestPromoteIgnoresOtherStartDates(t *testing.T) {
	f := newFixture(t)
	u := f.unit("U1", models.UnitStatusVacant)
	tn := f.tenant("jane@example.com")
	o := f.occupation("O1", u, tn, models.OccupationStatusPendingOccupation, testToday.AddDate(0, 0, 1), testToday)

	res, err := f.occupancy.PromotePendingOccupations(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 0, res.Processed)
	require.Equal(t, models.OccupationStatusPendingOccupation, f.reloadOccupation(o.ID).Status)
	require.Equal(t, models.UnitStatusVacant, f.reloadUnit(u.ID).Status)
}

func TestPromoteNewestOccupationWinsTheUnit(t *testing.T) {
	f := newFixture(t)
	u := f.unit("U1", models.UnitStatusVacant)
	tn := f.tenant("jane@example.com")
	older := f.occupation("O1", u, tn, models.OccupationStatusPendingOccupation, testToday, testToday.Add(-72*time.Hour))
	newer := f.occupation("O2", u, tn, models.OccupationStatusPendingOccupation, testToday, testToday.Add(-24*time.Hour))

	res, err := f.occupancy.PromotePendingOccupations(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 2, res.Processed)
	require.Equal(t, 1, res.Succeeded)
	require.Equal(t, 1, res.Skipped)

	require.Equal(t, models.OccupationStatusCurrent, f.reloadOccupation(newer.ID).Status)
	require.Equal(t, models.OccupationStatusPendingOccupation, f.reloadOccupation(older.ID).Status)
}

func TestPromoteSkipsOccupiedUnit(t *testing.T) {
	f := newFixture(t)
	u := f.unit("U1", models.UnitStatusOccupied)
	tn := f.tenant("jane@example.com")
	o := f.occupation("O1", u, tn, models.OccupationStatusPendingOccupation, testToday, testToday)

	res, err := f.occupancy.PromotePendingOccupations(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, models.OccupationStatusPendingOccupation, f.reloadOccupation(o.ID).Status)
	require.Empty(t, f.pendingNotifications())
}

func TestPromoteConsumesItsOwnBooking(t *testing.T) {
	f := newFixture(t)
	u := f.unit("U1", models.UnitStatusVacant)
	tn := f.tenant("jane@example.com")
	o := f.occupation("O1", u, tn, models.OccupationStatusBooked, testToday, testToday)

	_, err := f.occupancy.BookUnit(f.ctx, u.ID, &o.ID, nil, testToday)
	require.NoError(t, err)
	require.Equal(t, models.UnitStatusBooked, f.reloadUnit(u.ID).Status)

	res, err := f.occupancy.PromotePendingOccupations(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)
	require.Equal(t, models.OccupationStatusCurrent, f.reloadOccupation(o.ID).Status)
	require.Equal(t, models.UnitStatusOccupied, f.reloadUnit(u.ID).Status)

	bookings, err := f.repos().Bookings.ListByUnitID(f.ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, bookings)
}

func TestPromoteLeavesUnitBookedForSomeoneElse(t *testing.T) {
	f := newFixture(t)
	u := f.unit("U1", models.UnitStatusVacant)
	booking, err := f.occupancy.BookUnit(f.ctx, u.ID, nil, nil, testToday)
	require.NoError(t, err)

	other := f.unit("U2", models.UnitStatusVacant)
	tn := f.tenant("jane@example.com")
	heldElsewhere := f.occupation("O9", other, tn, models.OccupationStatusBooked, testToday.AddDate(0, 1, 0), testToday)
	_, err = f.occupancy.BookUnit(f.ctx, other.ID, &heldElsewhere.ID, nil, testToday)
	require.NoError(t, err)

	unrelated := f.occupation("O1", u, tn, models.OccupationStatusPendingOccupation, testToday, testToday)
	wrongHolder := f.occupation("O2", other, tn, models.OccupationStatusPendingOccupation, testToday, testToday)

	res, err := f.occupancy.PromotePendingOccupations(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 2, res.Processed)
	require.Equal(t, 2, res.Skipped)
	require.Equal(t, 0, res.Succeeded)

	require.Equal(t, models.OccupationStatusPendingOccupation, f.reloadOccupation(unrelated.ID).Status)
	require.Equal(t, models.OccupationStatusPendingOccupation, f.reloadOccupation(wrongHolder.ID).Status)
	require.Equal(t, models.UnitStatusBooked, f.reloadUnit(u.ID).Status)
	require.Equal(t, models.UnitStatusBooked, f.reloadUnit(other.ID).Status)

	kept, err := f.repos().Bookings.GetByID(f.ctx, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	require.Empty(t, f.pendingNotifications())
}

func TestPromotePagesThroughCandidates(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 2
	f := newFixtureWithStore(t, memory.NewStore(), cfg)
	tn := f.tenant("jane@example.com")

	var promoted []*models.Occupation
	for i, number := range []string{"U1", "U2", "U3", "U4", "U5"} {
		u := f.unit(number, models.UnitStatusVacant)
		promoted = append(promoted, f.occupation("O"+number, u, tn,
			models.OccupationStatusPendingOccupation, testToday, testToday.Add(-time.Duration(i+1)*time.Hour)))
	}
	// three candidates for one unit straddle a page boundary
	shared := f.unit("U6", models.UnitStatusVacant)
	newest := f.occupation("O6c", shared, tn, models.OccupationStatusPendingOccupation, testToday, testToday.Add(-10*time.Hour))
	f.occupation("O6b", shared, tn, models.OccupationStatusPendingOccupation, testToday, testToday.Add(-11*time.Hour))
	f.occupation("O6a", shared, tn, models.OccupationStatusPendingOccupation, testToday, testToday.Add(-12*time.Hour))

	res, err := f.occupancy.PromotePendingOccupations(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 8, res.Processed)
	require.Equal(t, 6, res.Succeeded)
	require.Equal(t, 2, res.Skipped)

	for _, o := range promoted {
		require.Equal(t, models.OccupationStatusCurrent, f.reloadOccupation(o.ID).Status)
	}
	require.Equal(t, models.OccupationStatusCurrent, f.reloadOccupation(newest.ID).Status)
}

func TestPromoteAbortsWhenStoreIsDown(t *testing.T) {
	f := newFixture(t)
	u := f.unit("U1", models.UnitStatusVacant)
	tn := f.tenant("jane@example.com")
	f.occupation("O1", u, tn, models.OccupationStatusPendingOccupation, testToday, testToday)

	f.store.SetUnavailable(true)
	_, err := f.occupancy.PromotePendingOccupations(f.ctx, testToday)
	require.ErrorIs(t, err, repositories.ErrStoreUnavailable)
}

func currentOccupationWithNotice(f *fixture, vacating time.Time) (*models.Unit, *models.Occupation, *models.Notice) {
	f.t.Helper()
	u := f.unit("U1", models.UnitStatusOccupied)
	tn := f.tenant("jane@example.com")
	o := f.occupation("O1", u, tn, models.OccupationStatusCurrent, testToday.AddDate(0, -6, 0), testToday.AddDate(0, -7, 0))
	n, err := f.occupancy.GiveNotice(f.ctx, o.ID, vacating.AddDate(0, -1, 0), vacating)
	require.NoError(f.t, err)
	return u, o, n
}

func TestVacateExpiredNotice(t *testing.T) {
	f := newFixture(t)
	yesterday := testToday.AddDate(0, 0, -1)
	u, o, n := currentOccupationWithNotice(f, yesterday)

	res, err := f.occupancy.VacateExpiredNotices(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)

	require.Equal(t, models.UnitStatusVacant, f.reloadUnit(u.ID).Status)
	occ := f.reloadOccupation(o.ID)
	require.Equal(t, models.OccupationStatusPrevious, occ.Status)
	require.NotNil(t, occ.EndDate)
	require.True(t, occ.EndDate.Equal(yesterday))

	notice, err := f.repos().Notices.GetByID(f.ctx, n.ID)
	require.NoError(t, err)
	require.False(t, notice.IsActive)

	// a second run finds nothing to do
	res, err = f.occupancy.VacateExpiredNotices(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 0, res.Processed)
}

func TestVacatePagesThroughNotices(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 1
	f := newFixtureWithStore(t, memory.NewStore(), cfg)
	tn := f.tenant("jane@example.com")
	yesterday := testToday.AddDate(0, 0, -1)

	var occs []*models.Occupation
	for _, number := range []string{"1", "2", "3"} {
		u := f.unit("U"+number, models.UnitStatusOccupied)
		o := f.occupation("O"+number, u, tn, models.OccupationStatusCurrent, testToday.AddDate(0, -6, 0), testToday.AddDate(0, -7, 0))
		_, err := f.occupancy.GiveNotice(f.ctx, o.ID, yesterday.AddDate(0, -1, 0), yesterday)
		require.NoError(t, err)
		occs = append(occs, o)
	}

	res, err := f.occupancy.VacateExpiredNotices(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 3, res.Processed)
	require.Equal(t, 3, res.Succeeded)
	for _, o := range occs {
		require.Equal(t, models.OccupationStatusPrevious, f.reloadOccupation(o.ID).Status)
	}
}

func TestVacateIgnoresFutureNotices(t *testing.T) {
	f := newFixture(t)
	u, o, _ := currentOccupationWithNotice(f, testToday.AddDate(0, 0, 10))

	res, err := f.occupancy.VacateExpiredNotices(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 0, res.Processed)
	require.Equal(t, models.UnitStatusOccupied, f.reloadUnit(u.ID).Status)
	require.Equal(t, models.OccupationStatusCurrent, f.reloadOccupation(o.ID).Status)
}

func TestVacateIsAllOrNothing(t *testing.T) {
	mem := memory.NewStore()
	f := newFixtureWith(t, mem, faultyStore{mem}, testConfig())
	u, o, n := currentOccupationWithNotice(f, testToday.AddDate(0, 0, -1))

	res, err := f.occupancy.VacateExpiredNotices(f.ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)

	require.Equal(t, models.UnitStatusOccupied, f.reloadUnit(u.ID).Status)
	require.Equal(t, models.OccupationStatusCurrent, f.reloadOccupation(o.ID).Status)
	notice, err := f.repos().Notices.GetByID(f.ctx, n.ID)
	require.NoError(t, err)
	require.True(t, notice.IsActive)
}

func TestGiveNoticeValidation(t *testing.T) {
	f := newFixture(t)
	u := f.unit("U1", models.UnitStatusOccupied)
	tn := f.tenant("jane@example.com")
	o := f.occupation("O1", u, tn, models.OccupationStatusCurrent, testToday, testToday)

	_, err := f.occupancy.GiveNotice(f.ctx, o.ID, testToday, testToday)
	require.ErrorIs(t, err, utils.ErrInvalidTransition)

	_, err = f.occupancy.GiveNotice(f.ctx, uuid.New(), testToday, testToday.AddDate(0, 1, 0))
	require.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.occupancy.GiveNotice(f.ctx, o.ID, testToday, testToday.AddDate(0, 1, 0))
	require.NoError(t, err)
	_, err = f.occupancy.GiveNotice(f.ctx, o.ID, testToday, testToday.AddDate(0, 2, 0))
	require.ErrorIs(t, err, utils.ErrConflict)

	pendingUnit := f.unit("U2", models.UnitStatusVacant)
	pendingOcc := f.occupation("O2", pendingUnit, tn, models.OccupationStatusPendingOccupation, testToday.AddDate(0, 0, 5), testToday)
	_, err = f.occupancy.GiveNotice(f.ctx, pendingOcc.ID, testToday, testToday.AddDate(0, 1, 0))
	require.ErrorIs(t, err, utils.ErrInvalidTransition)
}

func TestBookUnitRequiresVacantUnit(t *testing.T) {
	f := newFixture(t)
	u := f.unit("U1", models.UnitStatusOccupied)

	_, err := f.occupancy.BookUnit(f.ctx, u.ID, nil, nil, testToday)
	require.ErrorIs(t, err, utils.ErrInvalidTransition)

	bookings, err := f.repos().Bookings.ListByUnitID(f.ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, bookings)
}
