package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories/memory"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testToday = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		AppName:                    "tenancy-service",
		OrganizationName:           "Qwangu",
		StoreDriver:                config.StoreDriverMemory,
		Location:                   time.UTC,
		BatchSize:                  50,
		JobWorkers:                 4,
		BillingCronSpec:            "0 0 1 * *",
		PenaltyCronSpec:            "0 0 6 * *",
		LDFlag_SendgridFromEmail:   "no-reply@qwangu.co.ke",
		LDFlag_SendgridSandboxMode: true,
	}
}

// fakeSender records deliveries and fails for recipients in failFor.
type fakeSender struct {
	channel models.NotificationChannel
	mu      sync.Mutex
	sent    []*models.Notification
	failFor map[string]bool
}

func newFakeSender(channel models.NotificationChannel) *fakeSender {
	return &fakeSender{channel: channel, failFor: map[string]bool{}}
}

func (f *fakeSender) Channel() models.NotificationChannel { return f.channel }

func (f *fakeSender) Send(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.To] {
		return errors.Join(utils.ErrDeliveryFailed, errors.New("recipient rejected"))
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fixture struct {
	t              *testing.T
	ctx            context.Context
	cfg            *config.Config
	store          *memory.Store
	clock          utils.FixedClock
	email          *fakeSender
	sms            *fakeSender
	notifications  *NotificationService
	occupancy      *OccupancyService
	billing        *BillingService
	invoices       *InvoiceService
	reconciliation *ReconciliationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.NewStore(), testConfig())
}

func newFixtureWithStore(t *testing.T, store *memory.Store, cfg *config.Config) *fixture {
	return newFixtureWith(t, store, store, cfg)
}

// newFixtureWith wires services against svcStore while keeping direct access
// to the underlying memory store for setup and assertions.
func newFixtureWith(t *testing.T, mem *memory.Store, svcStore repositories.Store, cfg *config.Config) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		cfg:   cfg,
		store: mem,
		clock: utils.FixedClock{At: testToday.Add(8 * time.Hour)},
		email: newFakeSender(models.NotificationChannelEmail),
		sms:   newFakeSender(models.NotificationChannelSMS),
	}
	f.notifications = NewNotificationService(cfg, svcStore, f.clock, f.email, f.sms)
	f.occupancy = NewOccupancyService(cfg, svcStore, f.notifications)
	f.billing = NewBillingService(cfg, svcStore)
	f.invoices = NewInvoiceService(cfg, svcStore, f.notifications)
	f.reconciliation = NewReconciliationService(cfg, svcStore, f.billing, f.notifications)
	return f
}

func (f *fixture) repos() *repositories.Repositories {
	return f.store.Repos()
}

func (f *fixture) unit(number string, status models.UnitStatus) *models.Unit {
	f.t.Helper()
	u := &models.Unit{
		ID:               uuid.New(),
		Number:           number,
		Status:           status,
		Currency:         "KES",
		RentPerMonth:     decimal.NewFromInt(1000),
		SecurityPerMonth: decimal.NewFromInt(200),
		GarbagePerMonth:  decimal.NewFromInt(50),
	}
	require.NoError(f.t, f.repos().Units.Create(f.ctx, u))
	return u
}

func (f *fixture) tenant(email string) *models.Tenant {
	f.t.Helper()
	tn := &models.Tenant{
		ID:           uuid.New(),
		FirstName:    "Jane",
		Surname:      "Wanjiku",
		EmailAddress: email,
		MobileNumber: "+254711000000",
	}
	require.NoError(f.t, f.repos().Tenants.Create(f.ctx, tn))
	return tn
}

func (f *fixture) occupation(
	number string,
	unit *models.Unit,
	tenant *models.Tenant,
	status models.OccupationStatus,
	start time.Time,
	createdAt time.Time,
) *models.Occupation {
	f.t.Helper()
	o := &models.Occupation{
		ID:        uuid.New(),
		Number:    number,
		Status:    status,
		StartDate: start,
		TenantID:  tenant.ID,
		UnitID:    unit.ID,
		CreatedAt: createdAt,
	}
	require.NoError(f.t, f.repos().Occupations.Create(f.ctx, o))
	return o
}

func (f *fixture) reloadUnit(id uuid.UUID) *models.Unit {
	f.t.Helper()
	u, err := f.repos().Units.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, u)
	return u
}

func (f *fixture) reloadOccupation(id uuid.UUID) *models.Occupation {
	f.t.Helper()
	o, err := f.repos().Occupations.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, o)
	return o
}

func (f *fixture) pendingNotifications() []*models.Notification {
	f.t.Helper()
	list, err := f.repos().Notifications.ListByStatus(f.ctx, models.NotificationStatusPending, 0)
	require.NoError(f.t, err)
	return list
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func requireDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got)
}
