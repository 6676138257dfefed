// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants are mapped to HTTP responses via the fail()
// helper and give clients a stable, machine-readable error taxonomy
// supplementing the human-readable messages. Codes are lowercase snake_case;
// generic codes mirror common HTTP status semantics, domain-specific codes
// cover business outcomes a status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeReportFailed      = "report_failed"
	ErrCodeExportFailed      = "export_failed"
	ErrCodeResendFailed      = "resend_failed"
	ErrCodeRemindersDisabled = "reminders_disabled"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
)
