package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/constants"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	LDConnectionTimeout = 5 * time.Second
	templateEnvPrefix   = "SENDGRID_TEMPLATE_"
)

// build-time overrides
var (
	AppName             string
	LDServerContextKey  = "tenancy-service"
	LDServerContextKind = "service"
)

type Config struct {
	AppName          string `validate:"required"`
	AppPort          string `validate:"required,numeric"`
	Env              string `validate:"required"`
	OrganizationName string `validate:"required"`
	AppUrl           string `validate:"omitempty,url"`

	// Store
	StoreDriver   string `validate:"oneof=postgres memory"`
	DBUrl         string `validate:"required_if=StoreDriver postgres"`
	RunMigrations bool

	// Scheduling
	BusinessTimezone  string `validate:"required"`
	Location          *time.Location `validate:"-"`
	BatchSize         int `validate:"min=1,max=5000"`
	JobWorkers        int `validate:"min=1,max=64"`
	BillingCronSpec   string `validate:"required"`
	PenaltyCronSpec   string `validate:"required"`
	PenaltyPercentage int    `validate:"min=0,max=100"`

	// Twilio / SendGrid
	TwilioAccountSID string
	TwilioAuthToken  string
	SendGridAPIKey   string
	SMSSenderID      string

	// SendGrid dynamic template ids by notification template name
	EmailTemplateIDs map[string]string

	// LaunchDarkly flags, or their env fallbacks when LD_SDK_KEY is unset
	LDFlag_SendSMS                bool
	LDFlag_TwilioFromPhone        string
	LDFlag_SendgridFromEmail      string `validate:"omitempty,email"`
	LDFlag_SendgridSandboxMode    bool
	LDFlag_EnableJobTriggerRoutes bool
	LDFlag_CORSHighSecurity       bool
}

// LoadConfig is Load for process start-up: any error is fatal.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to load config")
	}
	return cfg
}

// Load reads the environment, applies LaunchDarkly flags when an SDK key is
// present, and validates the result.
func Load() (*Config, error) {
	appName := AppName
	if v := os.Getenv("APP_NAME"); v != "" {
		appName = v
	}
	if appName == "" {
		appName = "tenancy-service"
	}
	utils.Logger.Info("Loading config for app: ", appName)

	cfg := &Config{
		AppName:          appName,
		AppPort:          envOr("APP_PORT", "8080"),
		Env:              envOr("ENV", "dev"),
		OrganizationName: envOr("ORGANIZATION_NAME", "Qwangu"),
		AppUrl:           os.Getenv("APP_URL"),

		StoreDriver:   envOr("STORE_DRIVER", StoreDriverPostgres),
		DBUrl:         os.Getenv("DATABASE_URL"),
		RunMigrations: envBool("RUN_MIGRATIONS", true),

		BusinessTimezone:  envOr("BUSINESS_TIMEZONE", constants.DefaultBusinessTimezone),
		BatchSize:         envInt("BATCH_SIZE", constants.DefaultBatchSize),
		JobWorkers:        envInt("JOB_WORKERS", constants.DefaultJobWorkers),
		BillingCronSpec:   envOr("BILLING_CRON_SPEC", constants.PeriodBillingCronSpec),
		PenaltyCronSpec:   envOr("PENALTY_CRON_SPEC", constants.PenaltyBillingCronSpec),
		PenaltyPercentage: envInt("PENALTY_PERCENTAGE_OF_RENT", 0),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		SMSSenderID:      os.Getenv("SMS_SENDER_ID"),
		EmailTemplateIDs: templateIDsFromEnv(os.Environ()),

		LDFlag_SendSMS:                envBool("SEND_SMS", false),
		LDFlag_TwilioFromPhone:        os.Getenv("TWILIO_FROM_PHONE"),
		LDFlag_SendgridFromEmail:      os.Getenv("SENDGRID_FROM_EMAIL"),
		LDFlag_SendgridSandboxMode:    envBool("SENDGRID_SANDBOX_MODE", true),
		LDFlag_EnableJobTriggerRoutes: envBool("ENABLE_JOB_TRIGGER_ROUTES", false),
		LDFlag_CORSHighSecurity:       envBool("CORS_HIGH_SECURITY", true),
	}

	if key := os.Getenv("LD_SDK_KEY"); key != "" {
		if err := applyLaunchDarklyFlags(cfg, key); err != nil {
			return nil, err
		}
	} else {
		utils.Logger.Info("LD_SDK_KEY not set; using env values for feature flags")
	}

	if cfg.LDFlag_SendgridFromEmail == "" {
		utils.Logger.Warn("sendgrid_from_email flag is empty, defaulting to no-reply@qwangu.co.ke")
		cfg.LDFlag_SendgridFromEmail = "no-reply@qwangu.co.ke"
	}

	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", cfg.BusinessTimezone, err)
	}
	cfg.Location = loc

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyLaunchDarklyFlags(cfg *Config, sdkKey string) error {
	ldClient, err := ld.MakeClient(sdkKey, LDConnectionTimeout)
	if err != nil {
		return fmt.Errorf("create LaunchDarkly client: %w", err)
	}
	defer ldClient.Close()
	if !ldClient.Initialized() {
		return fmt.Errorf("LaunchDarkly client failed to initialize")
	}

	ctx := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey)

	if cfg.LDFlag_SendSMS, err = ldClient.BoolVariation("send_sms", ctx, cfg.LDFlag_SendSMS); err != nil {
		return fmt.Errorf("send_sms flag: %w", err)
	}
	utils.Logger.Debugf("send_sms flag: %t", cfg.LDFlag_SendSMS)

	if cfg.LDFlag_TwilioFromPhone, err = ldClient.StringVariation("twilio_from_phone", ctx, cfg.LDFlag_TwilioFromPhone); err != nil {
		return fmt.Errorf("twilio_from_phone flag: %w", err)
	}
	utils.Logger.Debugf("twilio_from_phone flag: %s", cfg.LDFlag_TwilioFromPhone)

	if cfg.LDFlag_SendgridFromEmail, err = ldClient.StringVariation("sendgrid_from_email", ctx, cfg.LDFlag_SendgridFromEmail); err != nil {
		return fmt.Errorf("sendgrid_from_email flag: %w", err)
	}
	utils.Logger.Debugf("sendgrid_from_email flag: %s", cfg.LDFlag_SendgridFromEmail)

	if cfg.LDFlag_SendgridSandboxMode, err = ldClient.BoolVariation("sendgrid_sandbox_mode", ctx, cfg.LDFlag_SendgridSandboxMode); err != nil {
		return fmt.Errorf("sendgrid_sandbox_mode flag: %w", err)
	}
	utils.Logger.Debugf("sendgrid_sandbox_mode flag: %t", cfg.LDFlag_SendgridSandboxMode)

	if cfg.LDFlag_EnableJobTriggerRoutes, err = ldClient.BoolVariation("enable_job_trigger_routes", ctx, cfg.LDFlag_EnableJobTriggerRoutes); err != nil {
		return fmt.Errorf("enable_job_trigger_routes flag: %w", err)
	}
	utils.Logger.Debugf("enable_job_trigger_routes flag: %t", cfg.LDFlag_EnableJobTriggerRoutes)

	if cfg.LDFlag_CORSHighSecurity, err = ldClient.BoolVariation("cors_high_security", ctx, cfg.LDFlag_CORSHighSecurity); err != nil {
		return fmt.Errorf("cors_high_security flag: %w", err)
	}
	utils.Logger.Debugf("cors_high_security flag: %t", cfg.LDFlag_CORSHighSecurity)
	return nil
}

// templateIDsFromEnv maps SENDGRID_TEMPLATE_PAYMENT_RECEIVED=d-123 to
// "payment-received" -> "d-123".
func templateIDsFromEnv(environ []string) map[string]string {
	out := map[string]string{}
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || val == "" || !strings.HasPrefix(key, templateEnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, templateEnvPrefix), "_", "-"))
		out[name] = val
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		utils.Logger.Warnf("Invalid %s '%s', defaulting to %d", key, v, fallback)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		utils.Logger.Warnf("Invalid %s '%s', defaulting to %t", key, v, fallback)
		return fallback
	}
	return b
}
