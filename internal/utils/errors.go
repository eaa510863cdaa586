package utils

import "errors"

var (
	// ErrSkipped marks a record that was missing or in the wrong state.
	// The batch logs it and moves on.
	ErrSkipped = errors.New("skipped")

	ErrNotFound              = errors.New("not_found")
	ErrConflict              = errors.New("conflict")
	ErrDuplicatePeriodCharge = errors.New("duplicate_period_charge")
	ErrLedgerChainConflict   = errors.New("ledger_chain_conflict")
	ErrRowVersionConflict    = errors.New("row_version_conflict")
	ErrInvalidTransition     = errors.New("invalid_transition")
	ErrInvalidNumber         = errors.New("invalid_number")
	ErrDeliveryFailed        = errors.New("delivery_failed")
	ErrNoSenderForChannel    = errors.New("no_sender_for_channel")
	ErrUnknownJob            = errors.New("unknown_job")
	ErrJobAlreadyRunning     = errors.New("job_already_running")
)
