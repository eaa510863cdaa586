package main

import (
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/app"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/services"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
)

type engine struct {
	app       *app.App
	scheduler *services.SchedulerService
	occupancy *services.OccupancyService
}

// buildEngine loads config, opens the store and wires every service the
// scheduler drives.
func buildEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		return nil, err
	}

	clock := utils.NewClock(cfg.Location)
	notifications := services.NewNotificationService(cfg, application.Store, clock, senders(cfg)...)
	occupancy := services.NewOccupancyService(cfg, application.Store, notifications)
	billing := services.NewBillingService(cfg, application.Store)
	invoices := services.NewInvoiceService(cfg, application.Store, notifications)
	reconciliation := services.NewReconciliationService(cfg, application.Store, billing, notifications)
	scheduler := services.NewSchedulerService(cfg, clock, occupancy, billing, invoices, reconciliation, notifications)

	return &engine{app: application, scheduler: scheduler, occupancy: occupancy}, nil
}

// senders builds a Sender per channel whose credentials are configured.
// Notifications on a channel without one are marked FAILED at dispatch.
func senders(cfg *config.Config) []services.Sender {
	var out []services.Sender
	if cfg.SendGridAPIKey != "" {
		out = append(out, services.NewSendGridSender(
			cfg.SendGridAPIKey,
			cfg.OrganizationName,
			cfg.LDFlag_SendgridFromEmail,
			cfg.LDFlag_SendgridSandboxMode,
			cfg.EmailTemplateIDs,
		))
	} else {
		utils.Logger.Warn("SENDGRID_API_KEY not set; email notifications will fail")
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		out = append(out, services.NewTwilioSender(
			cfg.TwilioAccountSID,
			cfg.TwilioAuthToken,
			cfg.LDFlag_TwilioFromPhone,
			cfg.SMSSenderID,
		))
	} else if cfg.LDFlag_SendSMS {
		utils.Logger.Warn("send_sms is on but Twilio credentials are missing; SMS notifications will fail")
	}
	return out
}
