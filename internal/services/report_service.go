// Package services – ReportService
//
// This file implements the ReportService, which turns raw filter input into a
// validated filter set and produces bounded pages of formatted gift rows plus
// the aggregate summary block. Malformed filter values are discarded rather
// than rejected: a bad date in the query string must never break the report.
package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/averos/go-gift-report/internal/domain"
	"github.com/averos/go-gift-report/internal/repo"
	"github.com/averos/go-gift-report/internal/report"
)

// Page-size bounds for the report table.
const (
	DefaultPerPage = 25
	MaxPerPage     = 1000
)

// filterDateLayout is the calendar-date form accepted in filter parameters.
const filterDateLayout = "2006-01-02"

// RawFilters carries the unvalidated filter parameters exactly as they arrive
// on the query string. ParseFilters converts them into a typed filter set.
type RawFilters struct {
	DateFrom       string
	DateTo         string
	GiftStatus     string
	Product        string
	GifterEmail    string
	RecipientEmail string

	// TransactionID and ClaimTransactionID are substring matches on the
	// gateway transaction numbers of the purchase and redemption rows.
	TransactionID      string
	ClaimTransactionID string

	RedemptionFrom string
	RedemptionTo   string
}

// ParseFilters validates raw filter input into a typed filter set.
//
// Policy: a malformed value means that one filter is silently dropped, never
// an error. Calendar dates must parse as YYYY-MM-DD; an upper date bound is
// widened to the following midnight so the named day is included under the
// half-open range semantics. gift_status accepts only the claimed/unclaimed
// pair; product must be a positive integer.
func ParseFilters(raw RawFilters) domain.ReportFilters {
	var f domain.ReportFilters

	if t, ok := parseDate(raw.DateFrom); ok {
		f.DateFrom = &t
	}
	if t, ok := parseDate(raw.DateTo); ok {
		end := t.Add(24 * time.Hour)
		f.DateTo = &end
	}
	if t, ok := parseDate(raw.RedemptionFrom); ok {
		f.RedemptionFrom = &t
	}
	if t, ok := parseDate(raw.RedemptionTo); ok {
		end := t.Add(24 * time.Hour)
		f.RedemptionTo = &end
	}

	switch strings.ToLower(strings.TrimSpace(raw.GiftStatus)) {
	case domain.GiftStatusClaimed:
		f.GiftStatus = domain.GiftStatusClaimed
	case domain.GiftStatusUnclaimed:
		f.GiftStatus = domain.GiftStatusUnclaimed
	}

	if id, err := strconv.ParseUint(strings.TrimSpace(raw.Product), 10, 64); err == nil && id > 0 {
		f.ProductID = id
	}

	f.GifterEmail = strings.TrimSpace(raw.GifterEmail)
	f.RecipientEmail = strings.TrimSpace(raw.RecipientEmail)
	f.TransactionNumber = strings.TrimSpace(raw.TransactionID)
	f.RedemptionTransactionNumber = strings.TrimSpace(raw.ClaimTransactionID)

	return f
}

// parseDate parses a YYYY-MM-DD value in UTC, reporting whether it was valid.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(filterDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ReportPage is one bounded page of the gift report plus its pagination
// metadata and the aggregate summary for the full filtered set.
type ReportPage struct {
	Rows       []report.Row `json:"rows"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalPages int64        `json:"total_pages"`
	Summary    repo.Summary `json:"summary"`
}

// ReportService produces pages of reconciled, formatted gift rows.
type ReportService struct {
	// DB is the database handle used for all report queries.
	DB *gorm.DB

	// Currency drives money formatting in the produced rows.
	Currency report.CurrencySettings
}

// GetPage returns one page of the filtered report together with the total
// count and summary block for the same filter set.
//
// page is 1-based and clamped to >= 1; perPage is clamped to
// [1, MaxPerPage] with DefaultPerPage substituted for non-positive input.
//
// Errors:
//   - Underlying store failures propagate unwrapped; nothing is partially
//     rendered on failure.
func (s *ReportService) GetPage(ctx context.Context, f domain.ReportFilters, page, perPage int) (ReportPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	out := ReportPage{Page: page, PerPage: perPage}

	total, err := repo.CountGifts(ctx, s.DB, f)
	if err != nil {
		return out, err
	}
	out.Total = total
	out.TotalPages = (total + int64(perPage) - 1) / int64(perPage)

	recs, err := repo.ListGifts(ctx, s.DB, f, perPage, (page-1)*perPage)
	if err != nil {
		return out, err
	}
	out.Rows = report.BuildRows(recs, s.Currency)

	sum, err := repo.GiftSummary(ctx, s.DB, f)
	if err != nil {
		return out, err
	}
	out.Summary = sum

	return out, nil
}

// Summary returns only the aggregate block for the filter set, without
// materializing any rows.
func (s *ReportService) Summary(ctx context.Context, f domain.ReportFilters) (repo.Summary, error) {
	return repo.GiftSummary(ctx, s.DB, f)
}
