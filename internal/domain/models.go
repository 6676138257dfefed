// Package domain defines the persistence models for the gift reporting
// backend: payment transactions, their key/value metadata, and the foreign
// entities a gift purchase references (members, products, coupons). These
// types are mapped with GORM and form the core data layer of the application.
package domain

import "time"

// Transaction payment statuses as stored by the transaction store.
const (
	TxnStatusComplete  = "complete"
	TxnStatusConfirmed = "confirmed"
	TxnStatusRefunded  = "refunded"
	TxnStatusPending   = "pending"
)

// Metadata keys carried in the transaction_meta table. The gift markers are
// written by the host store when a gift purchase completes; the reminder keys
// are owned by this system's reminder engine.
const (
	MetaKeyGiftCoupon        = "_gift_coupon_id"
	MetaKeyGiftStatus        = "_gift_status"
	MetaKeyReminderSentCount = "_mpgr_reminder_sent_count"
	MetaKeyLastReminderTS    = "_mpgr_last_reminder_ts"
)

// Gift status values stored under MetaKeyGiftStatus. An absent row is treated
// as GiftStatusUnclaimed; this system never writes this key (claiming is the
// host store's responsibility).
const (
	GiftStatusClaimed   = "claimed"
	GiftStatusUnclaimed = "unclaimed"
)

// Transaction represents one payment transaction in the store. A transaction
// qualifies as a gift purchase when it carries a MetaKeyGiftCoupon metadata
// row and has a strictly positive amount; zero-amount rows are claim
// transactions created when a recipient redeems a coupon.
//
// Fields:
//   - ID: auto-increment primary key.
//   - UserID: purchasing member; the member row may have been deleted.
//   - ProductID: purchased product; the product row may have been deleted.
//   - CouponID: coupon applied to this transaction. Zero on purchase rows;
//     set on claim rows, which is how a redemption links back to its gift.
//   - TransNum: gateway transaction number shown in reports.
//   - Amount / Total: charged amount and total including fees.
//   - Status: payment status (complete, confirmed, refunded, pending).
//   - CreatedAt: purchase time; the reminder engine's due-date anchor.
type Transaction struct {
	ID        uint64    `json:"id"         gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `json:"user_id"    gorm:"not null;index"`
	ProductID uint64    `json:"product_id" gorm:"not null;index"`
	CouponID  uint64    `json:"coupon_id"  gorm:"index"`
	TransNum  string    `json:"trans_num"  gorm:"type:varchar(64);not null"`
	Amount    float64   `json:"amount"     gorm:"not null"`
	Total     float64   `json:"total"      gorm:"not null"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for Transaction.
func (Transaction) TableName() string { return "transactions" }

// TransactionMeta is a generic per-transaction key/value row. The pair
// (transaction_id, meta_key) is unique, which lets writes be expressed as a
// single idempotent upsert instead of an exists-then-insert dance.
type TransactionMeta struct {
	ID            uint64 `json:"id"             gorm:"primaryKey;autoIncrement"`
	TransactionID uint64 `json:"transaction_id" gorm:"not null;uniqueIndex:ux_txn_meta,priority:1"`
	MetaKey       string `json:"meta_key"       gorm:"type:varchar(255);not null;uniqueIndex:ux_txn_meta,priority:2"`
	MetaValue     string `json:"meta_value"     gorm:"type:text;not null"`
}

// TableName returns the database table name for TransactionMeta.
func (TransactionMeta) TableName() string { return "transaction_meta" }

// Member is a site account referenced by transactions as purchaser or
// recipient. Rows can be deleted out from under a transaction; the report
// renders sentinels in that case rather than failing.
type Member struct {
	ID        uint64    `json:"id"         gorm:"primaryKey;autoIncrement"`
	Login     string    `json:"login"      gorm:"type:varchar(64);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null;index"`
	FirstName string    `json:"first_name" gorm:"type:varchar(128)"`
	LastName  string    `json:"last_name"  gorm:"type:varchar(128)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Member.
func (Member) TableName() string { return "members" }

// Product is a purchasable membership. URL, when set, is the page a gift
// recipient visits to redeem; the reminder email appends the coupon code to it.
type Product struct {
	ID   uint64 `json:"id"   gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"type:varchar(255);not null"`
	URL  string `json:"url"  gorm:"type:varchar(2048)"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Coupon is the gift voucher minted at purchase time. A redemption transaction
// carries this coupon's ID, which is the join key between a gift purchase and
// its claim.
type Coupon struct {
	ID   uint64 `json:"id"   gorm:"primaryKey;autoIncrement"`
	Code string `json:"code" gorm:"type:varchar(64);not null;index"`
}

// TableName returns the database table name for Coupon.
func (Coupon) TableName() string { return "coupons" }

// GiftRecord is the reconciled projection produced by the gift report query:
// one purchase transaction enriched with its purchaser, product, coupon, gift
// status, and (when claimed) the redemption transaction and recipient.
//
// Pointer fields are nil when the referenced entity was deleted or when no
// redemption exists yet; the formatter maps those to sentinel labels, never to
// errors. GiftStatus is already coalesced ("unclaimed" when no explicit
// metadata row exists). This struct is scan-only; it has no table.
type GiftRecord struct {
	GiftTransactionID uint64    `json:"gift_transaction_id"`
	PurchaseDate      time.Time `json:"purchase_date"`
	TransactionNumber string    `json:"transaction_number"`
	Amount            float64   `json:"amount"`
	Total             float64   `json:"total"`
	PaymentStatus     string    `json:"payment_status"`

	GifterUserID    *uint64 `json:"gifter_user_id"`
	GifterUsername  *string `json:"gifter_username"`
	GifterEmail     *string `json:"gifter_email"`
	GifterFirstName *string `json:"gifter_first_name"`
	GifterLastName  *string `json:"gifter_last_name"`

	ProductID   *uint64 `json:"product_id"`
	ProductName *string `json:"product_name"`

	CouponID   *uint64 `json:"coupon_id"`
	CouponCode *string `json:"coupon_code"`

	GiftStatus string `json:"gift_status"`

	RedemptionTransactionID     *uint64    `json:"redemption_transaction_id"`
	RedemptionDate              *time.Time `json:"redemption_date"`
	RedemptionTransactionNumber *string    `json:"redemption_transaction_number"`

	RecipientUserID    *uint64 `json:"recipient_user_id"`
	RecipientUsername  *string `json:"recipient_username"`
	RecipientEmail     *string `json:"recipient_email"`
	RecipientFirstName *string `json:"recipient_first_name"`
	RecipientLastName  *string `json:"recipient_last_name"`
}

// Claimed reports whether this gift's coalesced status is "claimed".
func (g *GiftRecord) Claimed() bool { return g.GiftStatus == GiftStatusClaimed }

// DueGift is the slimmer projection the reminder engine works on: an unclaimed
// gift purchase with everything needed to render and address a reminder email.
type DueGift struct {
	GiftTransactionID uint64    `json:"gift_transaction_id"`
	PurchaseDate      time.Time `json:"purchase_date"`
	GifterUserID      uint64    `json:"gifter_user_id"`
	GifterLogin       *string   `json:"gifter_login"`
	GifterEmail       *string   `json:"gifter_email"`
	GifterFirstName   *string   `json:"gifter_first_name"`
	GifterLastName    *string   `json:"gifter_last_name"`
	ProductID         uint64    `json:"product_id"`
	ProductName       *string   `json:"product_name"`
	ProductURL        *string   `json:"product_url"`
	CouponCode        *string   `json:"coupon_code"`
}
