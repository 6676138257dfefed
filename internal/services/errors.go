// Package services defines the business logic for gift reporting, CSV export,
// reminders, and the weekly digest. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes should be performed at the
// handler layer.
package services

import "errors"

var (
	// ErrNoGiftIDs is returned when a bulk resend request names no gift
	// transaction ids.
	ErrNoGiftIDs = errors.New("no gift ids supplied")

	// ErrNoResendableGifts is returned when none of the requested ids map to
	// an unclaimed, qualifying gift with an addressable purchaser.
	ErrNoResendableGifts = errors.New("no resendable gifts for the given ids")

	// ErrRemindersDisabled is returned when a reminder run is requested while
	// the reminder engine is disabled by configuration.
	ErrRemindersDisabled = errors.New("reminders are disabled")

	// ErrEmptySchedule is returned when a reminder run is requested with no
	// configured schedule rules.
	ErrEmptySchedule = errors.New("reminder schedule is empty")

	// ErrNoDigestRecipient is returned when the weekly digest has nowhere to
	// be delivered.
	ErrNoDigestRecipient = errors.New("no digest recipient configured")
)
