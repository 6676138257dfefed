// Package services – ReminderService
//
// This file implements the reminder due-date engine and the manual resend
// path. The engine walks unclaimed gifts old enough to be due for the
// shortest configured delay, decides per gift which schedule rule (if any)
// fires on this tick, sends through the throttled dispatcher, and persists
// the per-gift delivery counters only after a confirmed send.
//
// Delivery rules:
//   - Rules fire monotonically and in order: rule 0 before rule 1, at most
//     one rule per gift per tick.
//   - A zero-delay rule is due on the next tick for any unclaimed gift; its
//     time window is not checked at all.
//   - A failed send leaves the counters untouched, so the same rule is
//     retried on the next tick.
//   - Overlapping ticks are not mutually excluded; a de-duplication window
//     around each rule's due instant is the only double-send guard. This is
//     an accepted heuristic, not a lock.
package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/averos/go-gift-report/internal/domain"
	"github.com/averos/go-gift-report/internal/mail"
	"github.com/averos/go-gift-report/internal/repo"
)

// De-duplication windows around a rule's due instant. Zero-delay rules use
// the tighter window since their due instant is the purchase time itself.
const (
	dedupWindow     = 24 * time.Hour
	dedupWindowZero = time.Hour
)

// TickBatchLimit caps how many due gifts one tick processes.
const TickBatchLimit = 500

// TickResult summarizes one reminder run.
type TickResult struct {
	Scanned int `json:"scanned"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// ReminderService runs the due-date engine and the manual resend path.
type ReminderService struct {
	// DB is the database handle used for due-gift queries and delivery state.
	DB *gorm.DB

	// Dispatcher delivers the rendered notifications.
	Dispatcher *mail.Dispatcher

	// SiteName fills the site_name and blogname template variables.
	SiteName string

	// RedeemBaseURL is the fallback redemption page used when the purchased
	// product has no URL of its own.
	RedeemBaseURL string

	// Log is the service logger.
	Log zerolog.Logger
}

// Decide determines whether a reminder fires for one gift on this tick, and
// which rule index. It is a pure function of its inputs.
//
// The schedule must be sorted ascending. The first rule whose index has not
// already fired (state.SentCount <= index) and whose delay has elapsed wins;
// later rules wait for later ticks. The de-duplication guard suppresses a
// rule whose counters show it just fired, which matters when two overlapping
// ticks race between loading state and sending.
func Decide(now time.Time, schedule domain.Schedule, purchasedAt time.Time, st domain.DeliveryState) (int, bool) {
	for i, rule := range schedule {
		delay := rule.Delay()
		dueAt := purchasedAt.Add(delay)

		// Counters showing this exact rule just fired near its due instant
		// mean a racing tick beat us to it. Stop entirely rather than
		// cascading into the next rule on the same pass.
		if st.SentCount == i+1 && st.LastSentAt > 0 {
			window := dedupWindow
			if delay == 0 {
				window = dedupWindowZero
			}
			last := time.Unix(st.LastSentAt, 0)
			if last.After(dueAt.Add(-window)) && last.Before(dueAt.Add(window)) {
				return 0, false
			}
		}

		if st.SentCount > i {
			continue
		}

		if delay > 0 && now.Before(dueAt) {
			// Schedule is ascending, so no later rule can be due either.
			return 0, false
		}

		return i, true
	}
	return 0, false
}

// RunTick executes one reminder pass with the given configuration and clock.
//
// Gifts are selected with purchase time at or before now minus the shortest
// configured delay, so every gift that could be due for any rule is in the
// batch; Decide then gates each one individually. Counters advance only
// after the dispatcher confirms delivery.
//
// Errors:
//   - ErrRemindersDisabled when cfg.Enabled is false.
//   - ErrEmptySchedule when no rules are configured.
//   - Store errors on the batch query propagate; per-gift state and send
//     failures are counted and logged but do not abort the tick.
func (s *ReminderService) RunTick(ctx context.Context, cfg domain.ReminderConfig, now time.Time) (TickResult, error) {
	var res TickResult

	if !cfg.Enabled {
		return res, ErrRemindersDisabled
	}
	if len(cfg.Schedule) == 0 {
		return res, ErrEmptySchedule
	}
	if err := cfg.Schedule.Validate(); err != nil {
		return res, err
	}

	cutoff := now.Add(-cfg.Schedule.MinDelay())
	gifts, err := repo.ListDueGifts(ctx, s.DB, cutoff, TickBatchLimit)
	if err != nil {
		return res, err
	}
	res.Scanned = len(gifts)

	for i := range gifts {
		gift := &gifts[i]

		st, err := repo.LoadDeliveryState(ctx, s.DB, gift.GiftTransactionID)
		if err != nil {
			res.Failed++
			s.Log.Error().Err(err).
				Uint64("gift_id", gift.GiftTransactionID).
				Msg("loading reminder delivery state failed")
			continue
		}
		if st.SentCount >= len(cfg.Schedule) {
			res.Skipped++
			continue
		}

		idx, fire := Decide(now, cfg.Schedule, gift.PurchaseDate, st)
		if !fire {
			res.Skipped++
			continue
		}

		msg := s.buildMessage(gift, cfg)
		if err := s.Dispatcher.Send(ctx, msg); err != nil {
			res.Failed++
			s.Log.Warn().Err(err).
				Uint64("gift_id", gift.GiftTransactionID).
				Int("rule_index", idx).
				Msg("reminder send failed; state not advanced")
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			continue
		}

		st.SentCount = idx + 1
		st.LastSentAt = now.Unix()
		if err := repo.SaveDeliveryState(ctx, s.DB, gift.GiftTransactionID, st); err != nil {
			res.Failed++
			s.Log.Error().Err(err).
				Uint64("gift_id", gift.GiftTransactionID).
				Msg("persisting reminder delivery state failed")
			continue
		}

		res.Sent++
		s.Log.Info().
			Uint64("gift_id", gift.GiftTransactionID).
			Int("rule_index", idx).
			Str("rule", cfg.Schedule[idx].String()).
			Msg("reminder sent")
	}

	return res, nil
}

// Resend re-delivers the gift notification for the named transactions,
// regardless of schedule position. Delivery counters are not advanced: a
// manual resend is out of band of the schedule and must not consume a rule.
//
// Errors:
//   - ErrNoGiftIDs when ids is empty.
//   - ErrNoResendableGifts when none of the ids are unclaimed, qualifying
//     gifts with an addressable purchaser.
//   - Store errors on the lookup propagate.
func (s *ReminderService) Resend(ctx context.Context, ids []uint64, cfg domain.ReminderConfig) (mail.BatchResult, error) {
	if len(ids) == 0 {
		return mail.BatchResult{}, ErrNoGiftIDs
	}

	gifts, err := repo.GetResendGifts(ctx, s.DB, ids)
	if err != nil {
		return mail.BatchResult{}, err
	}
	if len(gifts) == 0 {
		return mail.BatchResult{}, ErrNoResendableGifts
	}

	msgs := make([]mail.Message, 0, len(gifts))
	for i := range gifts {
		msgs = append(msgs, s.buildMessage(&gifts[i], cfg))
	}
	return s.Dispatcher.SendBatch(ctx, msgs), nil
}

// buildMessage renders one reminder email for a due gift.
func (s *ReminderService) buildMessage(gift *domain.DueGift, cfg domain.ReminderConfig) mail.Message {
	productName := strDeref(gift.ProductName)

	vars := map[string]string{
		mail.VarProductName:    productName,
		mail.VarRedemptionLink: s.redemptionLink(gift),
		mail.VarSiteName:       s.SiteName,
		mail.VarBlogname:       s.SiteName,
		mail.VarUserLogin:      strDeref(gift.GifterLogin),
		mail.VarUserEmail:      strDeref(gift.GifterEmail),
		mail.VarUserFirstName:  strDeref(gift.GifterFirstName),
		mail.VarUserLastName:   strDeref(gift.GifterLastName),
	}

	return mail.Message{
		GiftID:  gift.GiftTransactionID,
		To:      strDeref(gift.GifterEmail),
		Subject: mail.ReminderSubject(cfg.Subject, productName, vars),
		HTML:    mail.ReminderHTML(cfg.Body, vars),
	}
}

// redemptionLink builds the URL the recipient visits to claim: the product's
// own page when it has one, otherwise the configured fallback page, with the
// gift coupon code appended as a query parameter.
func (s *ReminderService) redemptionLink(gift *domain.DueGift) string {
	base := strDeref(gift.ProductURL)
	if base == "" {
		base = s.RedeemBaseURL
	}
	code := strDeref(gift.CouponCode)
	if base == "" || code == "" {
		return base
	}

	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("coupon", code)
	u.RawQuery = q.Encode()
	return u.String()
}

// strDeref dereferences s, returning "" when nil.
func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
