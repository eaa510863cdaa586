package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/constants"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one periodic task. Run receives the single "today" for the run.
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context, today time.Time) (*BatchResult, error)
}

type scheduledJob struct {
	Job
	running sync.Mutex
}

// SchedulerService registers every job on cron and runs them on demand.
// A job never overlaps itself in this process; separate processes rely on
// the store's constraints.
type SchedulerService struct {
	cfg   *config.Config
	clock utils.Clock
	cron  *cron.Cron
	order []string
	jobs  map[string]*scheduledJob
}

func NewSchedulerService(
	cfg *config.Config,
	clock utils.Clock,
	occupancy *OccupancyService,
	billing *BillingService,
	invoices *InvoiceService,
	reconciliation *ReconciliationService,
	notifications *NotificationService,
) *SchedulerService {
	logger := utils.NewCronLogger()
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	s := &SchedulerService{
		cfg:   cfg,
		clock: clock,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs: map[string]*scheduledJob{},
	}

	s.register(Job{
		Name:    constants.JobNotificationDispatch,
		Spec:    constants.NotificationDispatchCronSpec,
		Timeout: constants.NotificationDispatchJobTimeout,
		Run: func(ctx context.Context, _ time.Time) (*BatchResult, error) {
			return notifications.DispatchPending(ctx)
		},
	})
	s.register(Job{
		Name:    constants.JobPaymentReconciliation,
		Spec:    constants.PaymentReconciliationCronSpec,
		Timeout: constants.PaymentReconciliationJobTimeout,
		Run: func(ctx context.Context, _ time.Time) (*BatchResult, error) {
			return reconciliation.ReconcileMobilePayments(ctx)
		},
	})
	s.register(Job{
		Name:    constants.JobOccupancyPromotion,
		Spec:    constants.OccupancyPromotionCronSpec,
		Timeout: constants.OccupancyPromotionJobTimeout,
		Run:     occupancy.PromotePendingOccupations,
	})
	s.register(Job{
		Name:    constants.JobNoticeVacate,
		Spec:    constants.NoticeVacateCronSpec,
		Timeout: constants.NoticeVacateJobTimeout,
		Run:     occupancy.VacateExpiredNotices,
	})
	s.register(Job{
		Name:    constants.JobPeriodBilling,
		Spec:    cfg.BillingCronSpec,
		Timeout: constants.PeriodBillingJobTimeout,
		Run: func(ctx context.Context, today time.Time) (*BatchResult, error) {
			start, end := utils.MonthBounds(today)
			return billing.GeneratePeriodCharges(ctx, start, end)
		},
	})
	s.register(Job{
		Name:    constants.JobInvoiceGeneration,
		Spec:    constants.InvoiceGenerationCronSpec,
		Timeout: constants.InvoiceGenerationJobTimeout,
		Run: func(ctx context.Context, today time.Time) (*BatchResult, error) {
			start, end := utils.MonthBounds(today)
			return invoices.GenerateInvoices(ctx, start, end)
		},
	})
	s.register(Job{
		Name:    constants.JobPenaltyBilling,
		Spec:    cfg.PenaltyCronSpec,
		Timeout: constants.PenaltyBillingJobTimeout,
		Run: func(ctx context.Context, today time.Time) (*BatchResult, error) {
			start, _ := utils.MonthBounds(today)
			return billing.GeneratePenalties(ctx, start)
		},
	})
	return s
}

func (s *SchedulerService) register(job Job) {
	s.jobs[job.Name] = &scheduledJob{Job: job}
	s.order = append(s.order, job.Name)
}

// Jobs lists the registered jobs in registration order.
func (s *SchedulerService) Jobs() []Job {
	out := make([]Job, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.jobs[name].Job)
	}
	return out
}

// Start adds every job to cron and starts the scheduler.
func (s *SchedulerService) Start() error {
	for _, name := range s.order {
		job := s.jobs[name]
		_, err := s.cron.AddFunc(job.Spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), job.Timeout)
			defer cancel()
			_, _ = s.execute(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}
		utils.Logger.Infof("Scheduled %s at '%s'", job.Name, job.Spec)
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling. The returned context is done once running jobs finish.
func (s *SchedulerService) Stop() context.Context {
	return s.cron.Stop()
}

// RunJob runs a job now, bounded by the job's timeout.
func (s *SchedulerService) RunJob(ctx context.Context, name string) (*BatchResult, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", utils.ErrUnknownJob, name)
	}
	ctx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()
	return s.execute(ctx, job)
}

func (s *SchedulerService) execute(ctx context.Context, job *scheduledJob) (*BatchResult, error) {
	if !job.running.TryLock() {
		utils.Logger.Warnf("%s is still running; skipping this trigger", job.Name)
		return nil, fmt.Errorf("%w: %s", utils.ErrJobAlreadyRunning, job.Name)
	}
	defer job.running.Unlock()

	today := utils.Today(s.clock)
	started := time.Now()
	utils.Logger.WithFields(logrus.Fields{
		"job":   job.Name,
		"today": today.Format("2006-01-02"),
	}).Info("Starting job")

	res, err := job.Run(ctx, today)
	if res == nil {
		res = newBatchResult(job.Name)
	}
	entry := utils.Logger.WithFields(res.Fields()).WithField("duration", time.Since(started).String())
	if err != nil {
		entry.WithError(err).Error("Job aborted; remaining records wait for the next trigger")
		return res, err
	}
	entry.Info("Job finished")
	return res, nil
}
