package domain

import "time"

// ReportFilters narrows the gift reconciliation query. Every field is
// optional; the zero value applies no constraint. Date bounds follow
// half-open semantics: From is inclusive, To is exclusive (the service layer
// converts an inclusive calendar date into the following midnight).
//
// String fields are substring matches; GiftStatus must be one of the
// GiftStatus* constants (the service layer discards anything else).
type ReportFilters struct {
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	GiftStatus string `json:"gift_status,omitempty"`
	ProductID  uint64 `json:"product_id,omitempty"`

	GifterEmail    string `json:"gifter_email,omitempty"`
	RecipientEmail string `json:"recipient_email,omitempty"`

	TransactionNumber           string `json:"transaction_number,omitempty"`
	RedemptionTransactionNumber string `json:"redemption_transaction_number,omitempty"`

	RedemptionFrom *time.Time `json:"redemption_from,omitempty"`
	RedemptionTo   *time.Time `json:"redemption_to,omitempty"`
}
