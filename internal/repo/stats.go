// Package repo implements the data persistence layer for the gift reporting
// backend, backed by GORM. This file provides aggregate queries: the report
// summary block and the weekly digest breakdowns. Aggregation happens in SQL
// so the summary never materializes the underlying rows.
package repo

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/averos/go-gift-report/internal/domain"
)

// Summary holds the aggregate statistics shown above the report table and in
// the weekly digest. ClaimRate is a percentage rounded to two decimals.
type Summary struct {
	TotalGifts     int64   `json:"total_gifts"`
	ClaimedGifts   int64   `json:"claimed_gifts"`
	UnclaimedGifts int64   `json:"unclaimed_gifts"`
	ClaimRate      float64 `json:"claim_rate"`
	TotalRevenue   float64 `json:"total_revenue"`
}

// ProductStat is the weekly digest's per-product breakdown row.
type ProductStat struct {
	ProductName string  `json:"product_name"`
	Total       int64   `json:"total"`
	Claimed     int64   `json:"claimed"`
	Unclaimed   int64   `json:"unclaimed"`
	Revenue     float64 `json:"revenue"`
}

// DayStat is the weekly digest's per-day breakdown row. Day is an ISO
// calendar date (YYYY-MM-DD).
type DayStat struct {
	Day       string  `json:"day"`
	Total     int64   `json:"total"`
	Claimed   int64   `json:"claimed"`
	Unclaimed int64   `json:"unclaimed"`
	Revenue   float64 `json:"revenue"`
}

// WeekData bundles everything the weekly digest email renders.
type WeekData struct {
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
	Summary        Summary       `json:"summary"`
	ClaimedRevenue float64       `json:"claimed_revenue"`
	Products       []ProductStat `json:"products"`
	Days           []DayStat     `json:"days"`
}

// claimedCase counts a row when its coalesced gift status is "claimed".
const claimedCase = `SUM(CASE WHEN COALESCE(status_meta.meta_value, 'unclaimed') = 'claimed' THEN 1 ELSE 0 END)`

// GiftSummary aggregates the qualifying gifts matching the filter set.
func GiftSummary(ctx context.Context, db *gorm.DB, f domain.ReportFilters) (Summary, error) {
	var row struct {
		Total   int64
		Claimed int64
		Revenue float64
	}
	err := giftQuery(ctx, db, f).
		Select(`COUNT(gift_txn.id) AS total, ` + claimedCase + ` AS claimed, COALESCE(SUM(gift_txn.total), 0) AS revenue`).
		Scan(&row).Error
	if err != nil {
		return Summary{}, err
	}
	return buildSummary(row.Total, row.Claimed, row.Revenue), nil
}

// buildSummary derives the unclaimed count and claim rate from raw totals.
func buildSummary(total, claimed int64, revenue float64) Summary {
	s := Summary{
		TotalGifts:     total,
		ClaimedGifts:   claimed,
		UnclaimedGifts: total - claimed,
		TotalRevenue:   revenue,
	}
	if total > 0 {
		s.ClaimRate = math.Round(float64(claimed)/float64(total)*100*100) / 100
	}
	return s
}

// WeekStats aggregates gift activity for [from, to): overall summary, claimed
// revenue, and per-product / per-day breakdowns for the digest email.
func WeekStats(ctx context.Context, db *gorm.DB, from, to time.Time) (WeekData, error) {
	f := domain.ReportFilters{DateFrom: &from, DateTo: &to}

	out := WeekData{StartDate: from, EndDate: to}

	sum, err := GiftSummary(ctx, db, f)
	if err != nil {
		return out, err
	}
	out.Summary = sum

	var claimedRev struct{ Revenue float64 }
	err = giftQuery(ctx, db, f).
		Where("COALESCE(status_meta.meta_value, 'unclaimed') = ?", domain.GiftStatusClaimed).
		Select(`COALESCE(SUM(gift_txn.total), 0) AS revenue`).
		Scan(&claimedRev).Error
	if err != nil {
		return out, err
	}
	out.ClaimedRevenue = claimedRev.Revenue

	err = giftQuery(ctx, db, f).
		Select(`COALESCE(product.name, 'Deleted Product') AS product_name,
			COUNT(gift_txn.id) AS total,
			`+claimedCase+` AS claimed,
			COUNT(gift_txn.id) - `+claimedCase+` AS unclaimed,
			COALESCE(SUM(gift_txn.total), 0) AS revenue`).
		Group("COALESCE(product.name, 'Deleted Product')").
		Order("total DESC, product_name ASC").
		Scan(&out.Products).Error
	if err != nil {
		return out, err
	}

	// substr keeps the grouping independent of the driver's timestamp format;
	// the first ten bytes of any stored value are the ISO date.
	err = giftQuery(ctx, db, f).
		Select(`substr(gift_txn.created_at, 1, 10) AS day,
			COUNT(gift_txn.id) AS total,
			`+claimedCase+` AS claimed,
			COUNT(gift_txn.id) - `+claimedCase+` AS unclaimed,
			COALESCE(SUM(gift_txn.total), 0) AS revenue`).
		Group("substr(gift_txn.created_at, 1, 10)").
		Order("day ASC").
		Scan(&out.Days).Error
	return out, err
}
