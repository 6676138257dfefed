// Package repo implements the data persistence layer for the gift reporting
// backend, backed by GORM. This file provides the gift reconciliation query:
// the outer-join chain that maps each qualifying purchase transaction to its
// purchaser, product, coupon, gift status, and (when claimed) the redemption
// transaction and recipient.
//
// Qualification invariant: a row surfaces only when the transaction carries a
// "_gift_coupon_id" metadata marker AND its charged amount is strictly
// positive. Zero-amount claim transactions never appear as gifts.
//
// Error semantics:
//   - These functions are read-only. On DB errors (connectivity, malformed
//     schema, etc.) the raw gorm error is propagated; the service layer
//     surfaces it as a failed operation without partial rendering.
//   - Deleted foreign entities (purchaser, recipient, coupon, product) are not
//     errors: the LEFT JOINs yield NULL columns which scan into nil pointers.
//
// Functions:
//
//   - ListGifts(ctx, db, filters, limit, offset) -> []domain.GiftRecord, error
//     One page of reconciled gifts, ordered purchase time DESC, id DESC.
//
//   - CountGifts(ctx, db, filters) -> (int64, error)
//     Total qualifying gifts for the same filter set.
//
//   - ListDueGifts(ctx, db, cutoff, limit) -> []domain.DueGift, error
//     Unclaimed gifts at least as old as cutoff, for the reminder engine.
//
//   - GetResendGifts(ctx, db, ids) -> []domain.DueGift, error
//     The subset of ids that are still unclaimed, qualifying gifts.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/averos/go-gift-report/internal/domain"
)

// giftSelect is the reconciliation projection. Aliases match the snake_case
// field mapping of domain.GiftRecord so gorm can scan rows directly.
const giftSelect = `
gift_txn.id AS gift_transaction_id,
gift_txn.created_at AS purchase_date,
gift_txn.trans_num AS transaction_number,
gift_txn.amount AS amount,
gift_txn.total AS total,
gift_txn.status AS payment_status,
gifter.id AS gifter_user_id,
gifter.login AS gifter_username,
gifter.email AS gifter_email,
gifter.first_name AS gifter_first_name,
gifter.last_name AS gifter_last_name,
product.id AS product_id,
product.name AS product_name,
coupon.id AS coupon_id,
coupon.code AS coupon_code,
COALESCE(status_meta.meta_value, 'unclaimed') AS gift_status,
claim_txn.id AS redemption_transaction_id,
claim_txn.created_at AS redemption_date,
claim_txn.trans_num AS redemption_transaction_number,
recipient.id AS recipient_user_id,
recipient.login AS recipient_username,
recipient.email AS recipient_email,
recipient.first_name AS recipient_first_name,
recipient.last_name AS recipient_last_name`

// giftQuery builds the shared join chain and filter predicates for the
// reconciliation query. The redemption join picks the earliest complete
// transaction carrying the gift's coupon, excluding the purchase itself, so
// each gift yields exactly one row (stable pagination depends on this).
func giftQuery(ctx context.Context, db *gorm.DB, f domain.ReportFilters) *gorm.DB {
	q := db.WithContext(ctx).
		Table("transactions AS gift_txn").
		Joins(`INNER JOIN transaction_meta AS coupon_meta
			ON coupon_meta.transaction_id = gift_txn.id
			AND coupon_meta.meta_key = ?`, domain.MetaKeyGiftCoupon).
		Joins(`LEFT JOIN members AS gifter ON gifter.id = gift_txn.user_id`).
		Joins(`LEFT JOIN products AS product ON product.id = gift_txn.product_id`).
		Joins(`LEFT JOIN coupons AS coupon ON coupon.id = CAST(coupon_meta.meta_value AS INTEGER)`).
		Joins(`LEFT JOIN transaction_meta AS status_meta
			ON status_meta.transaction_id = gift_txn.id
			AND status_meta.meta_key = ?`, domain.MetaKeyGiftStatus).
		Joins(`LEFT JOIN transactions AS claim_txn ON claim_txn.id = (
			SELECT MIN(ct.id) FROM transactions AS ct
			WHERE ct.coupon_id = CAST(coupon_meta.meta_value AS INTEGER)
			AND ct.id <> gift_txn.id
			AND ct.status = ?)`, domain.TxnStatusComplete).
		Joins(`LEFT JOIN members AS recipient ON recipient.id = claim_txn.user_id`).
		Where("gift_txn.status IN ?", []string{
			domain.TxnStatusComplete, domain.TxnStatusConfirmed, domain.TxnStatusRefunded,
		}).
		Where("gift_txn.amount > 0")

	if f.DateFrom != nil {
		q = q.Where("gift_txn.created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("gift_txn.created_at < ?", *f.DateTo)
	}
	if f.GiftStatus != "" {
		q = q.Where("COALESCE(status_meta.meta_value, 'unclaimed') = ?", f.GiftStatus)
	}
	if f.ProductID != 0 {
		q = q.Where("gift_txn.product_id = ?", f.ProductID)
	}
	if f.GifterEmail != "" {
		q = q.Where(`gifter.email LIKE ? ESCAPE '\'`, likePattern(f.GifterEmail))
	}
	if f.RecipientEmail != "" {
		q = q.Where(`recipient.email LIKE ? ESCAPE '\'`, likePattern(f.RecipientEmail))
	}
	if f.TransactionNumber != "" {
		q = q.Where(`gift_txn.trans_num LIKE ? ESCAPE '\'`, likePattern(f.TransactionNumber))
	}
	if f.RedemptionTransactionNumber != "" {
		q = q.Where(`claim_txn.trans_num LIKE ? ESCAPE '\'`, likePattern(f.RedemptionTransactionNumber))
	}
	if f.RedemptionFrom != nil {
		q = q.Where("claim_txn.created_at >= ?", *f.RedemptionFrom)
	}
	if f.RedemptionTo != nil {
		q = q.Where("claim_txn.created_at < ?", *f.RedemptionTo)
	}

	return q
}

// likePattern wraps a substring filter in % wildcards, escaping any wildcard
// characters in the user-supplied value.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// ListGifts returns one page of reconciled gift records matching the filter
// set, ordered by purchase time descending with id descending as tiebreaker.
// The compound order is total, so fixed-size pages concatenate into the full
// result set with no duplicates and no gaps.
func ListGifts(ctx context.Context, db *gorm.DB, f domain.ReportFilters, limit, offset int) ([]domain.GiftRecord, error) {
	var out []domain.GiftRecord
	q := giftQuery(ctx, db, f).
		Select(giftSelect).
		Order("gift_txn.created_at DESC, gift_txn.id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Scan(&out).Error
	return out, err
}

// CountGifts returns the total number of qualifying gifts for the filter set,
// for pagination metadata.
func CountGifts(ctx context.Context, db *gorm.DB, f domain.ReportFilters) (int64, error) {
	var total int64
	err := giftQuery(ctx, db, f).
		Distinct("gift_txn.id").
		Count(&total).Error
	return total, err
}

// dueGiftSelect is the reminder projection; aliases match domain.DueGift.
const dueGiftSelect = `
gift_txn.id AS gift_transaction_id,
gift_txn.created_at AS purchase_date,
gift_txn.user_id AS gifter_user_id,
gifter.login AS gifter_login,
gifter.email AS gifter_email,
gifter.first_name AS gifter_first_name,
gifter.last_name AS gifter_last_name,
gift_txn.product_id AS product_id,
product.name AS product_name,
product.url AS product_url,
coupon.code AS coupon_code`

// dueGiftQuery builds the unclaimed-gift join chain shared by the reminder
// batch query and the manual resend lookup. Refunded purchases are excluded:
// a voided gift never gets a reminder.
func dueGiftQuery(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).
		Table("transactions AS gift_txn").
		Select(dueGiftSelect).
		Joins(`INNER JOIN transaction_meta AS coupon_meta
			ON coupon_meta.transaction_id = gift_txn.id
			AND coupon_meta.meta_key = ?`, domain.MetaKeyGiftCoupon).
		Joins(`LEFT JOIN members AS gifter ON gifter.id = gift_txn.user_id`).
		Joins(`LEFT JOIN products AS product ON product.id = gift_txn.product_id`).
		Joins(`LEFT JOIN coupons AS coupon ON coupon.id = CAST(coupon_meta.meta_value AS INTEGER)`).
		Joins(`LEFT JOIN transaction_meta AS status_meta
			ON status_meta.transaction_id = gift_txn.id
			AND status_meta.meta_key = ?`, domain.MetaKeyGiftStatus).
		Where("gift_txn.status IN ?", []string{domain.TxnStatusComplete, domain.TxnStatusConfirmed}).
		Where("gift_txn.amount > 0").
		Where("COALESCE(status_meta.meta_value, 'unclaimed') = ?", domain.GiftStatusUnclaimed).
		Where("gifter.email IS NOT NULL AND gifter.email <> ''")
}

// ListDueGifts returns up to limit unclaimed gifts purchased at or before
// cutoff, oldest first. The caller derives cutoff from the shortest configured
// reminder delay so every gift that could be due for any rule is included.
func ListDueGifts(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.DueGift, error) {
	var out []domain.DueGift
	err := dueGiftQuery(ctx, db).
		Where("gift_txn.created_at <= ?", cutoff).
		Order("gift_txn.created_at ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// GetResendGifts returns the subset of the given transaction ids that are
// still unclaimed, qualifying gift purchases with an addressable purchaser.
// Ids that do not qualify are simply absent from the result.
func GetResendGifts(ctx context.Context, db *gorm.DB, ids []uint64) ([]domain.DueGift, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.DueGift
	err := dueGiftQuery(ctx, db).
		Where("gift_txn.id IN ?", ids).
		Order("gift_txn.id ASC").
		Scan(&out).Error
	return out, err
}
