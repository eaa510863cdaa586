package app

import (
	"context"
	"fmt"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories/memory"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/jackc/pgtype"
	shopspring "github.com/jackc/pgtype/ext/shopspring-numeric"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	maxRetries     = 5
	connectTimeout = 5 * time.Second
	initialBackoff = 500 * time.Millisecond
)

type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
	Store  repositories.Store
}

// NewApp opens the Ledger Store selected by cfg.StoreDriver. The postgres
// driver retries the first connection with exponential backoff and applies
// migrations when RunMigrations is set.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		utils.Logger.Warn("Using in-memory store; data is lost on exit")
		return &App{Config: cfg, Store: memory.NewStore()}, nil
	}

	if cfg.RunMigrations {
		if err := Migrate(cfg.DBUrl); err != nil {
			return nil, err
		}
	}

	var (
		dbPool  *pgxpool.Pool
		err     error
		backoff = initialBackoff
	)

	for i := 1; i <= maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		dbPool, err = newDBPool(ctx, cfg.DBUrl)
		cancel()
		if err == nil {
			utils.Logger.Infof("%s connected to DB on attempt %d", cfg.AppName, i)
			break
		}

		utils.Logger.WithError(err).Warnf(
			"Failed DB connect on attempt %d/%d. Retrying in %v...",
			i, maxRetries, backoff,
		)

		if i == maxRetries {
			return nil, fmt.Errorf("unable to connect after %d attempts: %w", maxRetries, err)
		}
		time.Sleep(backoff)
		backoff *= 2
	}

	return &App{
		Config: cfg,
		DB:     dbPool,
		Store:  repositories.NewPostgresStore(dbPool),
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		utils.Logger.Infof("%s DB connection closed.", a.Config.AppName)
	}
}

func newDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnIdleTime = 2 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.AfterConnect = registerDecimal
	return pgxpool.ConnectConfig(ctx, cfg)
}

// registerDecimal makes NUMERIC columns scan into and encode from
// decimal.Decimal.
func registerDecimal(_ context.Context, conn *pgx.Conn) error {
	conn.ConnInfo().RegisterDataType(pgtype.DataType{
		Value: &shopspring.Numeric{},
		Name:  "numeric",
		OID:   pgtype.NumericOID,
	})
	return nil
}
