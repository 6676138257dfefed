// Package report turns reconciled gift records into presentation rows shared
// by the JSON, HTML, and CSV output paths. Centralizing the mapping here
// guarantees the three paths agree on deleted-entity sentinels, derived
// display status, and currency formatting.
//
// The package is deliberately free of transport and persistence concerns:
// it maps domain values to strings and nothing else.
package report

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/averos/go-gift-report/internal/domain"
)

// Sentinel labels substituted when a referenced entity no longer exists.
// These are values, not errors: a deleted purchaser account must never break
// the report.
const (
	SentinelDeletedUser    = "Deleted User"
	SentinelDeletedCoupon  = "Deleted Coupon"
	SentinelDeletedProduct = "Deleted Product"
)

// Account status labels for the purchaser-account column.
const (
	AccountActive  = "Active"
	AccountDeleted = "Deleted"
)

// Derived display-status strings for the coalesced gift status.
const (
	DisplayClaimed   = "Claimed"
	DisplayUnclaimed = "Unclaimed"
	DisplayRefunded  = "Invalid (Refunded)"
	DisplayUnknown   = "Unknown"
)

// timeLayout is the timestamp format used in table cells and CSV fields.
const timeLayout = "2006-01-02 15:04:05"

// CurrencySettings drives locale-aware money formatting: symbol text and
// position, and whether the currency is zero-decimal (no fraction digits,
// e.g. JPY).
type CurrencySettings struct {
	Code        string
	Symbol      string
	SymbolAfter bool
	ZeroDecimal bool
	Locale      language.Tag
}

// Format renders an amount with grouped digits per the configured locale,
// the configured fraction digits, and the symbol in its configured position.
func (c CurrencySettings) Format(v float64) string {
	loc := c.Locale
	if loc == (language.Tag{}) {
		loc = language.English
	}
	p := message.NewPrinter(loc)

	var num string
	if c.ZeroDecimal {
		num = p.Sprint(number.Decimal(math.Round(v), number.MaxFractionDigits(0)))
	} else {
		num = p.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	}

	if c.SymbolAfter {
		return num + c.Symbol
	}
	return c.Symbol + num
}

// DisplayStatus derives the human-readable status from the coalesced gift
// status metadata and the purchase transaction's payment status. An explicit
// claim wins; a refunded payment invalidates an otherwise-unclaimed gift;
// unrecognized metadata values surface as "Unknown" rather than guessing.
func DisplayStatus(giftStatus, paymentStatus string) string {
	switch {
	case giftStatus == domain.GiftStatusClaimed:
		return DisplayClaimed
	case paymentStatus == domain.TxnStatusRefunded:
		return DisplayRefunded
	case giftStatus == "" || giftStatus == domain.GiftStatusUnclaimed:
		return DisplayUnclaimed
	default:
		return DisplayUnknown
	}
}

// Row is one fully-formatted report line. Every field is a display string;
// absent values (no redemption yet) are empty, deleted references carry
// sentinels. Unclaimed is presentation metadata for the HTML path's
// bulk-selection tagging and is not a CSV column.
type Row struct {
	GiftID                      string `json:"gift_id"`
	PurchaseDate                string `json:"purchase_date"`
	TransactionNumber           string `json:"transaction_number"`
	Amount                      string `json:"amount"`
	Total                       string `json:"total"`
	GifterUserID                string `json:"gifter_user_id"`
	GifterUsername              string `json:"gifter_username"`
	GifterEmail                 string `json:"gifter_email"`
	GifterFirstName             string `json:"gifter_first_name"`
	GifterLastName              string `json:"gifter_last_name"`
	ProductID                   string `json:"product_id"`
	ProductName                 string `json:"product_name"`
	CouponID                    string `json:"coupon_id"`
	CouponCode                  string `json:"coupon_code"`
	GiftStatus                  string `json:"gift_status"`
	RedemptionTransactionID     string `json:"redemption_transaction_id"`
	RedemptionDate              string `json:"redemption_date"`
	RedemptionTransactionNumber string `json:"redemption_transaction_number"`
	RecipientUserID             string `json:"recipient_user_id"`
	RecipientUsername           string `json:"recipient_username"`
	RecipientEmail              string `json:"recipient_email"`
	RecipientFirstName          string `json:"recipient_first_name"`
	RecipientLastName           string `json:"recipient_last_name"`
	DisplayStatus               string `json:"display_status"`
	GifterAccountStatus         string `json:"gifter_account_status"`

	Unclaimed bool `json:"-"`
}

// BuildRow formats one reconciled record for display. The same row feeds the
// JSON, HTML, and CSV paths.
func BuildRow(rec domain.GiftRecord, cur CurrencySettings) Row {
	row := Row{
		GiftID:            strconv.FormatUint(rec.GiftTransactionID, 10),
		PurchaseDate:      rec.PurchaseDate.Format(timeLayout),
		TransactionNumber: rec.TransactionNumber,
		Amount:            cur.Format(rec.Amount),
		Total:             cur.Format(rec.Total),
		GiftStatus:        rec.GiftStatus,
		DisplayStatus:     DisplayStatus(rec.GiftStatus, rec.PaymentStatus),
	}

	if rec.GifterUserID != nil {
		row.GifterUserID = strconv.FormatUint(*rec.GifterUserID, 10)
		row.GifterUsername = strOr(rec.GifterUsername, "")
		row.GifterEmail = strOr(rec.GifterEmail, "")
		row.GifterFirstName = strOr(rec.GifterFirstName, "")
		row.GifterLastName = strOr(rec.GifterLastName, "")
		row.GifterAccountStatus = AccountActive
	} else {
		row.GifterUsername = SentinelDeletedUser
		row.GifterEmail = SentinelDeletedUser
		row.GifterAccountStatus = AccountDeleted
	}

	if rec.ProductID != nil {
		row.ProductID = strconv.FormatUint(*rec.ProductID, 10)
		row.ProductName = strOr(rec.ProductName, "")
	} else {
		row.ProductName = SentinelDeletedProduct
	}

	if rec.CouponID != nil {
		row.CouponID = strconv.FormatUint(*rec.CouponID, 10)
		row.CouponCode = strOr(rec.CouponCode, "")
	} else {
		row.CouponCode = SentinelDeletedCoupon
	}

	if rec.RedemptionTransactionID != nil {
		row.RedemptionTransactionID = strconv.FormatUint(*rec.RedemptionTransactionID, 10)
		if rec.RedemptionDate != nil {
			row.RedemptionDate = rec.RedemptionDate.Format(timeLayout)
		}
		row.RedemptionTransactionNumber = strOr(rec.RedemptionTransactionNumber, "")

		if rec.RecipientUserID != nil {
			row.RecipientUserID = strconv.FormatUint(*rec.RecipientUserID, 10)
			row.RecipientUsername = strOr(rec.RecipientUsername, "")
			row.RecipientEmail = strOr(rec.RecipientEmail, "")
			row.RecipientFirstName = strOr(rec.RecipientFirstName, "")
			row.RecipientLastName = strOr(rec.RecipientLastName, "")
		} else {
			// Redemption happened but the recipient account is gone.
			row.RecipientUsername = SentinelDeletedUser
			row.RecipientEmail = SentinelDeletedUser
		}
	}

	row.Unclaimed = row.DisplayStatus == DisplayUnclaimed
	return row
}

// BuildRows formats a batch of records.
func BuildRows(recs []domain.GiftRecord, cur CurrencySettings) []Row {
	out := make([]Row, 0, len(recs))
	for _, rec := range recs {
		out = append(out, BuildRow(rec, cur))
	}
	return out
}

// csvColumns is the fixed CSV header, in column order.
var csvColumns = []string{
	"Gift ID",
	"Purchase Date",
	"Transaction Number",
	"Amount",
	"Total",
	"Gifter User ID",
	"Gifter Username",
	"Gifter Email",
	"Gifter First Name",
	"Gifter Last Name",
	"Product ID",
	"Product Name",
	"Coupon ID",
	"Coupon Code",
	"Gift Status",
	"Redemption Transaction ID",
	"Redemption Date",
	"Redemption Transaction Number",
	"Recipient User ID",
	"Recipient Username",
	"Recipient Email",
	"Recipient First Name",
	"Recipient Last Name",
	"Gift Status Display",
	"Gifter Account Status",
}

// CSVHeader returns a copy of the fixed export header row.
func CSVHeader() []string {
	out := make([]string, len(csvColumns))
	copy(out, csvColumns)
	return out
}

// CSVRecord returns the row's fields in CSV column order.
func (r Row) CSVRecord() []string {
	return []string{
		r.GiftID,
		r.PurchaseDate,
		r.TransactionNumber,
		r.Amount,
		r.Total,
		r.GifterUserID,
		r.GifterUsername,
		r.GifterEmail,
		r.GifterFirstName,
		r.GifterLastName,
		r.ProductID,
		r.ProductName,
		r.CouponID,
		r.CouponCode,
		r.GiftStatus,
		r.RedemptionTransactionID,
		r.RedemptionDate,
		r.RedemptionTransactionNumber,
		r.RecipientUserID,
		r.RecipientUsername,
		r.RecipientEmail,
		r.RecipientFirstName,
		r.RecipientLastName,
		r.DisplayStatus,
		r.GifterAccountStatus,
	}
}

// strOr dereferences s, returning def when nil.
func strOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
