package services

import (
	"testing"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/constants"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/stretchr/testify/require"
)

func (f *fixture) scheduler() *SchedulerService {
	return NewSchedulerService(f.cfg, f.clock, f.occupancy, f.billing, f.invoices, f.reconciliation, f.notifications)
}

func TestSchedulerRegistersEveryJob(t *testing.T) {
	f := newFixture(t)
	jobs := f.scheduler().Jobs()

	var names []string
	for _, j := range jobs {
		names = append(names, j.Name)
		require.NotEmpty(t, j.Spec)
		require.Positive(t, j.Timeout)
	}
	require.Equal(t, []string{
		constants.JobNotificationDispatch,
		constants.JobPaymentReconciliation,
		constants.JobOccupancyPromotion,
		constants.JobNoticeVacate,
		constants.JobPeriodBilling,
		constants.JobInvoiceGeneration,
		constants.JobPenaltyBilling,
	}, names)
}

func TestRunJobUsesClockForToday(t *testing.T) {
	f := newFixture(t)
	u := f.unit("U1", models.UnitStatusVacant)
	tn := f.tenant("jane@example.com")
	o := f.occupation("O1", u, tn, models.OccupationStatusPendingOccupation, testToday, testToday.Add(-time.Hour))

	res, err := f.scheduler().RunJob(f.ctx, constants.JobOccupancyPromotion)
	require.NoError(t, err)
	require.Equal(t, constants.JobOccupancyPromotion, res.Job)
	require.Equal(t, 1, res.Succeeded)
	require.Equal(t, models.OccupationStatusCurrent, f.reloadOccupation(o.ID).Status)
}

func TestRunJobBillsTheClockMonth(t *testing.T) {
	f := newFixture(t)
	o := f.currentOccupation("O1")

	_, err := f.scheduler().RunJob(f.ctx, constants.JobPeriodBilling)
	require.NoError(t, err)

	recs, err := f.repos().Receivables.ListByOccupationID(f.ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].Period.Equal(june))
}

func TestRunJobUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.scheduler().RunJob(f.ctx, "does-not-exist")
	require.ErrorIs(t, err, utils.ErrUnknownJob)
}

func TestRunJobRefusesOverlap(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler()
	job := s.jobs[constants.JobNotificationDispatch]
	job.running.Lock()

	_, err := s.RunJob(f.ctx, constants.JobNotificationDispatch)
	require.ErrorIs(t, err, utils.ErrJobAlreadyRunning)

	job.running.Unlock()
	_, err = s.RunJob(f.ctx, constants.JobNotificationDispatch)
	require.NoError(t, err)
}

func TestRunJobReportsAbort(t *testing.T) {
	f := newFixture(t)
	f.store.SetUnavailable(true)
	res, err := f.scheduler().RunJob(f.ctx, constants.JobPaymentReconciliation)
	require.Error(t, err)
	require.NotNil(t, res)
}

func TestSchedulerStartAndStop(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler()
	require.NoError(t, s.Start())
	<-s.Stop().Done()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	f := newFixture(t)
	f.cfg.BillingCronSpec = "not a cron spec"
	require.Error(t, f.scheduler().Start())
}
