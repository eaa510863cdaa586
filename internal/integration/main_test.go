//go:build integration

package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/app"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	_ "time/tzdata"
)

var (
	cfg   *config.Config
	appDB *app.App
	store repositories.Store
)

// TestMain migrates the database at DATABASE_URL once for the package.
func TestMain(m *testing.M) {
	utils.InitLogger("tenancy-service-integration")
	if os.Getenv("DATABASE_URL") == "" {
		log.Println("DATABASE_URL not set; skipping integration tests")
		os.Exit(0)
	}

	os.Setenv("STORE_DRIVER", config.StoreDriverPostgres)
	os.Setenv("RUN_MIGRATIONS", "true")

	var err error
	if cfg, err = config.Load(); err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Location = time.UTC
	if appDB, err = app.NewApp(cfg); err != nil {
		log.Fatalf("connect: %v", err)
	}
	store = appDB.Store

	code := m.Run()
	appDB.Close()
	os.Exit(code)
}

func truncateAll(t *testing.T) {
	t.Helper()
	_, err := appDB.DB.Exec(context.Background(), `
		TRUNCATE notifications, receipts, mpesa_payments, payments,
			occupation_transactions, invoices, receivables, notices,
			bookings, occupations, tenants, units
	`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
