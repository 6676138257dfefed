package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdempotency_CreateGetAndDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "admin", "k1", `{"success_count":2}`, 200, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("record id not assigned")
	}

	got, err := GetIdempotency(ctx, db, "admin", "k1", time.Now().UTC())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != 200 || got.ResultJSON != `{"success_count":2}` {
		t.Fatalf("record = %+v", got)
	}

	if _, err := CreateIdempotency(ctx, db, "admin", "k1", `{}`, 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate create: %v", err)
	}

	// Same key under a different client is a distinct record.
	if _, err := CreateIdempotency(ctx, db, "other", "k1", `{}`, 200, time.Hour); err != nil {
		t.Fatalf("other client: %v", err)
	}
}

func TestIdempotency_ExpiryAndMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "admin", "short", `{}`, 200, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Reading past the TTL behaves as not found.
	if _, err := GetIdempotency(ctx, db, "admin", "short", time.Now().UTC().Add(2*time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired get: %v", err)
	}

	if _, err := GetIdempotency(ctx, db, "admin", "absent", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing get: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "admin", "  ", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank key get: %v", err)
	}
}
