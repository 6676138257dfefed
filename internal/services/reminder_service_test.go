package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/averos/go-gift-report/internal/domain"
	"github.com/averos/go-gift-report/internal/mail"
	"github.com/averos/go-gift-report/internal/repo"
)

func mustSchedule(t *testing.T, s string) domain.Schedule {
	t.Helper()
	sched, err := domain.ParseSchedule(s)
	if err != nil {
		t.Fatalf("ParseSchedule(%q): %v", s, err)
	}
	return sched
}

func TestDecide_RulesFireInOrderOnePerTick(t *testing.T) {
	sched := mustSchedule(t, "7d,14d")
	now := time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)
	purchased := now.Add(-20 * 24 * time.Hour)

	// Both rules are overdue, but only the first fires on this pass.
	idx, fire := Decide(now, sched, purchased, domain.DeliveryState{})
	if !fire || idx != 0 {
		t.Fatalf("first pass = (%d, %v), want (0, true)", idx, fire)
	}

	// With rule 0 recorded, the next pass advances to rule 1.
	st := domain.DeliveryState{SentCount: 1, LastSentAt: now.Unix()}
	idx, fire = Decide(now, sched, purchased, st)
	if !fire || idx != 1 {
		t.Fatalf("second pass = (%d, %v), want (1, true)", idx, fire)
	}

	// All rules consumed.
	st = domain.DeliveryState{SentCount: 2, LastSentAt: now.Unix()}
	if _, fire = Decide(now, sched, purchased, st); fire {
		t.Fatal("exhausted schedule must not fire")
	}
}

func TestDecide_NotYetDue(t *testing.T) {
	sched := mustSchedule(t, "7d,14d")
	now := time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)
	purchased := now.Add(-3 * 24 * time.Hour)

	if _, fire := Decide(now, sched, purchased, domain.DeliveryState{}); fire {
		t.Fatal("gift 3 days old must not fire a 7d rule")
	}
}

func TestDecide_SingleRuleFiresOnceThenStops(t *testing.T) {
	sched := mustSchedule(t, "7d")
	now := time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)
	purchased := now.Add(-8 * 24 * time.Hour)

	idx, fire := Decide(now, sched, purchased, domain.DeliveryState{})
	if !fire || idx != 0 {
		t.Fatalf("fresh state = (%d, %v), want (0, true)", idx, fire)
	}

	st := domain.DeliveryState{SentCount: 1, LastSentAt: now.Unix()}
	if _, fire = Decide(now.Add(time.Hour), sched, purchased, st); fire {
		t.Fatal("rule must fire at most once")
	}
}

func TestDecide_ZeroDelayFiresOnNextTick(t *testing.T) {
	sched := mustSchedule(t, "0h,3d")
	now := time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)
	purchased := now.Add(-time.Minute)

	// No time-window check applies to a zero-delay rule.
	idx, fire := Decide(now, sched, purchased, domain.DeliveryState{})
	if !fire || idx != 0 {
		t.Fatalf("zero-delay rule = (%d, %v), want (0, true)", idx, fire)
	}

	// Just fired: the tight window around the purchase instant suppresses a
	// second send from an overlapping pass.
	st := domain.DeliveryState{SentCount: 1, LastSentAt: now.Unix()}
	if _, fire = Decide(now.Add(time.Minute), sched, purchased, st); fire {
		t.Fatal("overlapping pass must not resend the zero-delay rule")
	}
}

func TestDecide_DedupGuardStopsRacingTick(t *testing.T) {
	sched := mustSchedule(t, "7d,14d")
	now := time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)
	purchased := now.Add(-7*24*time.Hour - time.Hour)

	// A racing tick sent rule 0 thirty minutes ago. This pass must stop
	// entirely rather than cascade into rule 1.
	st := domain.DeliveryState{SentCount: 1, LastSentAt: now.Add(-30 * time.Minute).Unix()}
	if _, fire := Decide(now, sched, purchased, st); fire {
		t.Fatal("dedup guard should suppress this pass")
	}
}

func TestRunTick_SendsAndAdvancesState(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	fx := seedGift(t, db, "due@example.com", 40, now.Add(-8*24*time.Hour))
	seedGift(t, db, "fresh@example.com", 40, now.Add(-time.Hour))

	fm := &fakeMailer{}
	svc := &ReminderService{
		DB:            db,
		Dispatcher:    mail.NewDispatcher(fm, 0, zerolog.Nop()),
		SiteName:      "Example Shop",
		RedeemBaseURL: "https://example.com/redeem",
		Log:           zerolog.Nop(),
	}
	cfg := domain.ReminderConfig{Enabled: true, Schedule: mustSchedule(t, "7d")}

	res, err := svc.RunTick(context.Background(), cfg, now)
	if err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if res.Scanned != 1 || res.Sent != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}

	if len(fm.Sent) != 1 {
		t.Fatalf("sent = %d messages", len(fm.Sent))
	}
	msg := fm.Sent[0]
	if msg.To != "due@example.com" {
		t.Fatalf("to = %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "Gold Membership") {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "coupon="+fx.Coupon.Code) {
		t.Fatalf("redemption link missing coupon code:\n%s", msg.HTML)
	}

	st, err := repo.LoadDeliveryState(context.Background(), db, fx.Txn.ID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if st.SentCount != 1 || st.LastSentAt != now.Unix() {
		t.Fatalf("state = %+v", st)
	}

	// The schedule is exhausted for this gift; a later tick only skips it.
	res, err = svc.RunTick(context.Background(), cfg, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second RunTick: %v", err)
	}
	if res.Sent != 0 || res.Skipped != 1 {
		t.Fatalf("second result = %+v", res)
	}
}

func TestRunTick_FailedSendLeavesStateUntouched(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	fx := seedGift(t, db, "retry@example.com", 40, now.Add(-8*24*time.Hour))

	fm := &fakeMailer{}
	fm.setFailing(true)
	svc := &ReminderService{
		DB:            db,
		Dispatcher:    mail.NewDispatcher(fm, 0, zerolog.Nop()),
		SiteName:      "Example Shop",
		RedeemBaseURL: "https://example.com/redeem",
		Log:           zerolog.Nop(),
	}
	cfg := domain.ReminderConfig{Enabled: true, Schedule: mustSchedule(t, "7d")}

	res, err := svc.RunTick(context.Background(), cfg, now)
	if err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if res.Failed != 1 || res.Sent != 0 {
		t.Fatalf("result = %+v", res)
	}

	st, err := repo.LoadDeliveryState(context.Background(), db, fx.Txn.ID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if st.SentCount != 0 || st.LastSentAt != 0 {
		t.Fatalf("failed send advanced state: %+v", st)
	}

	// Relay recovers: the same rule is retried on the next tick.
	fm.setFailing(false)
	res, err = svc.RunTick(context.Background(), cfg, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("retry RunTick: %v", err)
	}
	if res.Sent != 1 {
		t.Fatalf("retry result = %+v", res)
	}
}

func TestRunTick_ConfigGates(t *testing.T) {
	svc := &ReminderService{DB: newTestDB(t), Log: zerolog.Nop()}
	now := time.Now().UTC()

	_, err := svc.RunTick(context.Background(), domain.ReminderConfig{Enabled: false}, now)
	if !errors.Is(err, ErrRemindersDisabled) {
		t.Fatalf("disabled: %v", err)
	}

	_, err = svc.RunTick(context.Background(), domain.ReminderConfig{Enabled: true}, now)
	if !errors.Is(err, ErrEmptySchedule) {
		t.Fatalf("empty schedule: %v", err)
	}
}

func TestResend_OnlyUnclaimedAndNoCounterAdvance(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	a := seedGift(t, db, "open@example.com", 10, now)
	b := seedGift(t, db, "claimed@example.com", 10, now)
	seedClaim(t, db, b, "rcpt@example.com", now.Add(time.Hour))

	fm := &fakeMailer{}
	svc := &ReminderService{
		DB:            db,
		Dispatcher:    mail.NewDispatcher(fm, 0, zerolog.Nop()),
		SiteName:      "Example Shop",
		RedeemBaseURL: "https://example.com/redeem",
		Log:           zerolog.Nop(),
	}
	cfg := domain.ReminderConfig{Enabled: true, Schedule: mustSchedule(t, "7d")}

	res, err := svc.Resend(context.Background(), []uint64{a.Txn.ID, b.Txn.ID}, cfg)
	if err != nil {
		t.Fatalf("Resend: %v", err)
	}
	if res.SuccessCount != 1 || res.FailedCount != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(fm.Sent) != 1 || fm.Sent[0].To != "open@example.com" {
		t.Fatalf("sent = %+v", fm.Sent)
	}

	// A manual resend is out of band of the schedule.
	st, err := repo.LoadDeliveryState(context.Background(), db, a.Txn.ID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if st.SentCount != 0 {
		t.Fatalf("resend advanced delivery state: %+v", st)
	}
}

func TestResend_Errors(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	b := seedGift(t, db, "claimed@example.com", 10, now)
	seedClaim(t, db, b, "rcpt@example.com", now.Add(time.Hour))

	svc := &ReminderService{
		DB:         db,
		Dispatcher: mail.NewDispatcher(&fakeMailer{}, 0, zerolog.Nop()),
		Log:        zerolog.Nop(),
	}
	cfg := domain.ReminderConfig{Enabled: true}

	if _, err := svc.Resend(context.Background(), nil, cfg); !errors.Is(err, ErrNoGiftIDs) {
		t.Fatalf("empty ids: %v", err)
	}
	if _, err := svc.Resend(context.Background(), []uint64{b.Txn.ID}, cfg); !errors.Is(err, ErrNoResendableGifts) {
		t.Fatalf("claimed-only ids: %v", err)
	}
}
