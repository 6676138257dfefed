package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/averos/go-gift-report/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("gift_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// giftFixture seeds one gift purchase with its member, product, and coupon.
type giftFixture struct {
	Gifter  domain.Member
	Product domain.Product
	Coupon  domain.Coupon
	Txn     domain.Transaction
}

func seedGift(t *testing.T, db *gorm.DB, email string, amount float64, status string, purchasedAt time.Time) giftFixture {
	t.Helper()

	fx := giftFixture{
		Gifter:  domain.Member{Login: "buyer_" + email, Email: email, FirstName: "Ann", LastName: "Lee"},
		Product: domain.Product{Name: "Gold Membership", URL: "https://example.com/gold"},
		Coupon:  domain.Coupon{Code: "GIFT-" + email},
	}
	for _, m := range []any{&fx.Gifter, &fx.Product, &fx.Coupon} {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed entity: %v", err)
		}
	}

	fx.Txn = domain.Transaction{
		UserID:    fx.Gifter.ID,
		ProductID: fx.Product.ID,
		TransNum:  "tx-" + email,
		Amount:    amount,
		Total:     amount,
		Status:    status,
		CreatedAt: purchasedAt,
	}
	if err := db.Create(&fx.Txn).Error; err != nil {
		t.Fatalf("seed txn: %v", err)
	}

	meta := domain.TransactionMeta{
		TransactionID: fx.Txn.ID,
		MetaKey:       domain.MetaKeyGiftCoupon,
		MetaValue:     strconv.FormatUint(fx.Coupon.ID, 10),
	}
	if err := db.Create(&meta).Error; err != nil {
		t.Fatalf("seed coupon meta: %v", err)
	}
	return fx
}

// seedClaim marks the gift claimed and creates the redemption transaction.
func seedClaim(t *testing.T, db *gorm.DB, fx giftFixture, recipientEmail string, claimedAt time.Time) domain.Transaction {
	t.Helper()

	recipient := domain.Member{Login: "rcpt_" + recipientEmail, Email: recipientEmail}
	if err := db.Create(&recipient).Error; err != nil {
		t.Fatalf("seed recipient: %v", err)
	}

	claim := domain.Transaction{
		UserID:    recipient.ID,
		ProductID: fx.Product.ID,
		CouponID:  fx.Coupon.ID,
		TransNum:  "claim-" + recipientEmail,
		Amount:    0,
		Total:     0,
		Status:    domain.TxnStatusComplete,
		CreatedAt: claimedAt,
	}
	if err := db.Create(&claim).Error; err != nil {
		t.Fatalf("seed claim txn: %v", err)
	}

	status := domain.TransactionMeta{
		TransactionID: fx.Txn.ID,
		MetaKey:       domain.MetaKeyGiftStatus,
		MetaValue:     domain.GiftStatusClaimed,
	}
	if err := db.Create(&status).Error; err != nil {
		t.Fatalf("seed status meta: %v", err)
	}
	return claim
}

func TestListGifts_ExcludesZeroAmountAndUnmarked(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seedGift(t, db, "real@example.com", 49.99, domain.TxnStatusComplete, now)

	// Zero-amount transaction carrying gift metadata must never surface.
	seedGift(t, db, "zero@example.com", 0, domain.TxnStatusComplete, now)

	// Ordinary transaction without gift metadata.
	plain := domain.Transaction{
		UserID: 999, ProductID: 999, TransNum: "plain",
		Amount: 10, Total: 10, Status: domain.TxnStatusComplete, CreatedAt: now,
	}
	if err := db.Create(&plain).Error; err != nil {
		t.Fatalf("seed plain txn: %v", err)
	}

	// Pending gift purchases do not qualify either.
	seedGift(t, db, "pending@example.com", 20, domain.TxnStatusPending, now)

	recs, err := ListGifts(context.Background(), db, domain.ReportFilters{}, 0, 0)
	if err != nil {
		t.Fatalf("ListGifts: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(recs), recs)
	}
	if got := recs[0].GifterEmail; got == nil || *got != "real@example.com" {
		t.Fatalf("unexpected gifter email: %v", got)
	}
	if recs[0].GiftStatus != domain.GiftStatusUnclaimed {
		t.Fatalf("coalesced status = %q", recs[0].GiftStatus)
	}
}

func TestListGifts_RedemptionJoin(t *testing.T) {
	db := newTestDB(t)
	purchased := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	claimed := purchased.Add(48 * time.Hour)

	fx := seedGift(t, db, "gifter@example.com", 30, domain.TxnStatusComplete, purchased)
	claim := seedClaim(t, db, fx, "friend@example.com", claimed)

	recs, err := ListGifts(context.Background(), db, domain.ReportFilters{}, 0, 0)
	if err != nil {
		t.Fatalf("ListGifts: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.GiftStatus != domain.GiftStatusClaimed {
		t.Fatalf("status = %q", rec.GiftStatus)
	}
	if rec.RedemptionTransactionID == nil || *rec.RedemptionTransactionID != claim.ID {
		t.Fatalf("redemption id = %v, want %d", rec.RedemptionTransactionID, claim.ID)
	}
	if rec.RecipientEmail == nil || *rec.RecipientEmail != "friend@example.com" {
		t.Fatalf("recipient email = %v", rec.RecipientEmail)
	}
	if rec.GiftTransactionID == claim.ID {
		t.Fatal("purchase row must never be its own redemption")
	}
}

func TestListGifts_DeletedEntitiesScanAsNil(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	fx := seedGift(t, db, "gone@example.com", 15, domain.TxnStatusComplete, now)
	if err := db.Delete(&fx.Gifter).Error; err != nil {
		t.Fatalf("delete member: %v", err)
	}
	if err := db.Delete(&fx.Product).Error; err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if err := db.Delete(&fx.Coupon).Error; err != nil {
		t.Fatalf("delete coupon: %v", err)
	}

	recs, err := ListGifts(context.Background(), db, domain.ReportFilters{}, 0, 0)
	if err != nil {
		t.Fatalf("ListGifts: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("deleted references must not drop the row; got %d", len(recs))
	}
	rec := recs[0]
	if rec.GifterUserID != nil || rec.ProductID != nil || rec.CouponID != nil {
		t.Fatalf("expected nil foreign fields, got %+v", rec)
	}
}

func TestListGifts_PaginationIsStableAndTotal(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		seedGift(t, db, fmt.Sprintf("p%d@example.com", i), 10, domain.TxnStatusComplete,
			base.Add(time.Duration(i)*time.Hour))
	}

	full, err := ListGifts(context.Background(), db, domain.ReportFilters{}, 0, 0)
	if err != nil {
		t.Fatalf("ListGifts full: %v", err)
	}
	if len(full) != 10 {
		t.Fatalf("full = %d rows", len(full))
	}
	// Descending by purchase time.
	for i := 1; i < len(full); i++ {
		if full[i].PurchaseDate.After(full[i-1].PurchaseDate) {
			t.Fatalf("order violated at %d", i)
		}
	}

	var pages []domain.GiftRecord
	for offset := 0; offset < 12; offset += 3 {
		page, err := ListGifts(context.Background(), db, domain.ReportFilters{}, 3, offset)
		if err != nil {
			t.Fatalf("ListGifts page: %v", err)
		}
		pages = append(pages, page...)
	}
	if len(pages) != len(full) {
		t.Fatalf("concatenated pages = %d rows, want %d", len(pages), len(full))
	}
	seen := map[uint64]bool{}
	for i, rec := range pages {
		if seen[rec.GiftTransactionID] {
			t.Fatalf("duplicate row %d in paged output", rec.GiftTransactionID)
		}
		seen[rec.GiftTransactionID] = true
		if rec.GiftTransactionID != full[i].GiftTransactionID {
			t.Fatalf("page order diverges at index %d", i)
		}
	}

	total, err := CountGifts(context.Background(), db, domain.ReportFilters{})
	if err != nil {
		t.Fatalf("CountGifts: %v", err)
	}
	if total != 10 {
		t.Fatalf("CountGifts = %d", total)
	}
}

func TestListGifts_Filters(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	fxA := seedGift(t, db, "alice@example.com", 25, domain.TxnStatusComplete, now)
	seedGift(t, db, "bob@example.com", 25, domain.TxnStatusComplete, now.Add(time.Hour))
	seedClaim(t, db, fxA, "carol@example.com", now.Add(2*time.Hour))

	ctx := context.Background()

	claimed, err := ListGifts(ctx, db, domain.ReportFilters{GiftStatus: domain.GiftStatusClaimed}, 0, 0)
	if err != nil {
		t.Fatalf("claimed filter: %v", err)
	}
	if len(claimed) != 1 || *claimed[0].GifterEmail != "alice@example.com" {
		t.Fatalf("claimed filter rows: %+v", claimed)
	}

	byEmail, err := ListGifts(ctx, db, domain.ReportFilters{GifterEmail: "bob@"}, 0, 0)
	if err != nil {
		t.Fatalf("email filter: %v", err)
	}
	if len(byEmail) != 1 || *byEmail[0].GifterEmail != "bob@example.com" {
		t.Fatalf("email filter rows: %+v", byEmail)
	}

	// LIKE wildcards in user input are escaped, not interpreted.
	none, err := ListGifts(ctx, db, domain.ReportFilters{GifterEmail: "%bob%"}, 0, 0)
	if err != nil {
		t.Fatalf("wildcard filter: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("wildcard should not match, got %d rows", len(none))
	}

	from := now.Add(30 * time.Minute)
	late, err := ListGifts(ctx, db, domain.ReportFilters{DateFrom: &from}, 0, 0)
	if err != nil {
		t.Fatalf("date filter: %v", err)
	}
	if len(late) != 1 || *late[0].GifterEmail != "bob@example.com" {
		t.Fatalf("date filter rows: %+v", late)
	}
}

func TestListDueGifts_CutoffAndExclusions(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	old := seedGift(t, db, "due@example.com", 40, domain.TxnStatusComplete, now.Add(-10*24*time.Hour))
	seedGift(t, db, "fresh@example.com", 40, domain.TxnStatusComplete, now.Add(-time.Hour))
	seedGift(t, db, "refunded@example.com", 40, domain.TxnStatusRefunded, now.Add(-10*24*time.Hour))

	claimedFx := seedGift(t, db, "done@example.com", 40, domain.TxnStatusComplete, now.Add(-10*24*time.Hour))
	seedClaim(t, db, claimedFx, "lucky@example.com", now.Add(-5*24*time.Hour))

	cutoff := now.Add(-7 * 24 * time.Hour)
	due, err := ListDueGifts(context.Background(), db, cutoff, 100)
	if err != nil {
		t.Fatalf("ListDueGifts: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due = %d rows, want 1: %+v", len(due), due)
	}
	if due[0].GiftTransactionID != old.Txn.ID {
		t.Fatalf("due gift = %d, want %d", due[0].GiftTransactionID, old.Txn.ID)
	}
	if due[0].CouponCode == nil || *due[0].CouponCode != old.Coupon.Code {
		t.Fatalf("coupon code = %v", due[0].CouponCode)
	}
}

func TestGetResendGifts_FiltersToUnclaimed(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	a := seedGift(t, db, "a@example.com", 10, domain.TxnStatusComplete, now)
	b := seedGift(t, db, "b@example.com", 10, domain.TxnStatusComplete, now)
	seedClaim(t, db, b, "rcpt@example.com", now.Add(time.Hour))

	got, err := GetResendGifts(context.Background(), db, []uint64{a.Txn.ID, b.Txn.ID, 424242})
	if err != nil {
		t.Fatalf("GetResendGifts: %v", err)
	}
	if len(got) != 1 || got[0].GiftTransactionID != a.Txn.ID {
		t.Fatalf("resendable = %+v", got)
	}

	empty, err := GetResendGifts(context.Background(), db, nil)
	if err != nil || empty != nil {
		t.Fatalf("empty ids: %v %v", empty, err)
	}
}
