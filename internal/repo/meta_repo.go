// Package repo implements the data persistence layer for the gift reporting
// backend, backed by GORM. This file exposes the narrow key/value capability
// over the transaction_meta table that the reminder engine depends on, plus
// typed helpers for the reminder delivery state it persists there.
//
// The write path is a single idempotent upsert keyed on
// (transaction_id, meta_key); callers never need to probe for row existence.
package repo

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/averos/go-gift-report/internal/domain"
)

// GetTransactionMeta returns the metadata value stored for (txnID, key).
// The second return value reports presence; an absent row is not an error.
func GetTransactionMeta(ctx context.Context, db *gorm.DB, txnID uint64, key string) (string, bool, error) {
	var row domain.TransactionMeta
	err := db.WithContext(ctx).
		Where("transaction_id = ? AND meta_key = ?", txnID, key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.MetaValue, true, nil
}

// UpsertTransactionMeta writes value under (txnID, key), inserting or
// updating in one statement via the unique index on the pair.
func UpsertTransactionMeta(ctx context.Context, db *gorm.DB, txnID uint64, key, value string) error {
	row := domain.TransactionMeta{
		TransactionID: txnID,
		MetaKey:       key,
		MetaValue:     value,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}, {Name: "meta_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"meta_value": value}),
		}).
		Create(&row).Error
}

// LoadDeliveryState reads the reminder bookkeeping for one gift transaction.
// Missing or malformed rows read as the zero state (nothing sent yet).
func LoadDeliveryState(ctx context.Context, db *gorm.DB, txnID uint64) (domain.DeliveryState, error) {
	var st domain.DeliveryState

	raw, ok, err := GetTransactionMeta(ctx, db, txnID, domain.MetaKeyReminderSentCount)
	if err != nil {
		return st, err
	}
	if ok {
		if n, perr := strconv.Atoi(raw); perr == nil && n > 0 {
			st.SentCount = n
		}
	}

	raw, ok, err = GetTransactionMeta(ctx, db, txnID, domain.MetaKeyLastReminderTS)
	if err != nil {
		return st, err
	}
	if ok {
		if ts, perr := strconv.ParseInt(raw, 10, 64); perr == nil && ts > 0 {
			st.LastSentAt = ts
		}
	}

	return st, nil
}

// SaveDeliveryState persists both reminder counters for one gift transaction.
// Called only after the dispatcher reports a successful send, so a delivery
// failure leaves the previous state untouched and the rule retries next tick.
func SaveDeliveryState(ctx context.Context, db *gorm.DB, txnID uint64, st domain.DeliveryState) error {
	if err := UpsertTransactionMeta(ctx, db, txnID,
		domain.MetaKeyReminderSentCount, strconv.Itoa(st.SentCount)); err != nil {
		return err
	}
	return UpsertTransactionMeta(ctx, db, txnID,
		domain.MetaKeyLastReminderTS, strconv.FormatInt(st.LastSentAt, 10))
}
