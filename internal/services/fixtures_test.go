package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/averos/go-gift-report/internal/domain"
	"github.com/averos/go-gift-report/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type giftFixture struct {
	Gifter  domain.Member
	Product domain.Product
	Coupon  domain.Coupon
	Txn     domain.Transaction
}

func seedGift(t *testing.T, db *gorm.DB, email string, amount float64, purchasedAt time.Time) giftFixture {
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
		Status:    domain.TxnStatusComplete,
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

func seedClaim(t *testing.T, db *gorm.DB, fx giftFixture, recipientEmail string, claimedAt time.Time) {
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
}

// sentMail is one captured delivery attempt.
type sentMail struct {
	To      string
	Subject string
	HTML    string
}

// fakeMailer captures deliveries and fails while failing is set.
type fakeMailer struct {
	mu      sync.Mutex
	failing bool
	Sent    []sentMail
}

func (f *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("relay unavailable")
	}
	f.Sent = append(f.Sent, sentMail{To: to, Subject: subject, HTML: htmlBody})
	return nil
}

func (f *fakeMailer) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}
