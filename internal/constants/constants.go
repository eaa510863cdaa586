package constants

import "time"

// Job names, used for cron registration, logs and manual triggers.
const (
	JobNotificationDispatch  = "notification-dispatch"
	JobPaymentReconciliation = "payment-reconciliation"
	JobOccupancyPromotion    = "occupancy-promotion"
	JobNoticeVacate          = "notice-vacate"
	JobPeriodBilling         = "period-billing"
	JobInvoiceGeneration     = "invoice-generation"
	JobPenaltyBilling        = "penalty-billing"
)

// Job scheduling, evaluated in the business timezone.
const (
	NotificationDispatchCronSpec  = "@every 5m"
	PaymentReconciliationCronSpec = "@every 10m"
	OccupancyPromotionCronSpec    = "0 8 * * *" // 08:00 daily
	NoticeVacateCronSpec          = "0 0 * * *" // midnight daily
	PeriodBillingCronSpec         = "0 0 1 * *" // midnight on the 1st
	InvoiceGenerationCronSpec     = "30 0 1 * *"
	PenaltyBillingCronSpec        = "0 0 6 * *" // after the grace period
)

// Job timeouts
const (
	NotificationDispatchJobTimeout  = 4 * time.Minute
	PaymentReconciliationJobTimeout = 8 * time.Minute
	OccupancyPromotionJobTimeout    = 15 * time.Minute
	NoticeVacateJobTimeout          = 15 * time.Minute
	PeriodBillingJobTimeout         = 1 * time.Hour
	InvoiceGenerationJobTimeout     = 1 * time.Hour
	PenaltyBillingJobTimeout        = 30 * time.Minute
)

// Batch processing
const (
	DefaultBatchSize  = 200
	DefaultJobWorkers = 4
)

// Business defaults
const (
	DefaultBusinessTimezone = "Africa/Nairobi"
	DefaultCurrency         = "KES"
)

// Notification templates
const (
	TemplateOccupationConfirmed = "occupation-confirmed"
	TemplateInvoiceCreated      = "invoice-created"
	TemplatePaymentReceived     = "payment-received"
)

// Email subjects
const (
	EmailSubjectOccupationConfirmed = "Welcome home: your occupation is confirmed"
	EmailSubjectInvoiceCreated      = "Your invoice %s is ready"
	EmailSubjectPaymentReceived     = "Payment received: receipt %s"
)

// SMSPaymentReceivedFormat takes currency, amount, transaction id and house number.
const SMSPaymentReceivedFormat = "Payment of %s %s received. Ref: %s. House: %s. Thank you."

// CORSLowSecurityAllowedOriginLocalhost is allowed in addition to APP_URL
// when the cors_high_security flag is off.
const CORSLowSecurityAllowedOriginLocalhost = "http://localhost:*"
