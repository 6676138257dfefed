// Reminder HTTP handlers.
//
// This file exposes the reminder operations:
//   - POST /reminders/resend  (manual/bulk resend of gift notifications)
//   - POST /reminders/run     (trigger one reminder tick immediately)
//   - POST /digest/run        (send the weekly digest immediately)
//
// Bulk resend supports the Idempotency-Key header: a replayed request is
// served from the stored result instead of emailing every purchaser again.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/averos/go-gift-report/internal/http/middleware"
	"github.com/averos/go-gift-report/internal/repo"
	"github.com/averos/go-gift-report/internal/services"
)

// ResendRequest is the JSON payload for the bulk resend endpoint.
type ResendRequest struct {
	// GiftIDs are purchase transaction ids; ids that are not unclaimed,
	// qualifying gifts are skipped rather than rejected.
	GiftIDs []uint64 `json:"gift_ids" binding:"required,min=1"`
}

// Resend re-sends the gift notification for the named transactions and
// returns per-gift outcomes plus aggregate counts. With an Idempotency-Key,
// a completed result is stored and replayed on retry.
func (h *Handlers) Resend(c *gin.Context) {
	ctx := c.Request.Context()
	clientID := clientID(c)

	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey && middleware.IsReplay(c) {
		rec, err := repo.GetIdempotency(ctx, h.db, clientID, key, time.Now().UTC())
		if err == nil && rec != nil {
			c.Data(rec.Status, "application/json; charset=utf-8", []byte(rec.ResultJSON))
			return
		}
		// Stored result vanished between lookup and fetch; fall through and
		// execute normally.
	}

	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "gift_ids must be a non-empty array of ids")
		return
	}

	res, err := h.reminderSvc.Resend(ctx, req.GiftIDs, h.reminderCfg)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoGiftIDs):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "gift_ids must be a non-empty array of ids")
		case errors.Is(err, services.ErrNoResendableGifts):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no resendable gifts for the given ids")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeResendFailed, "resend failed")
		}
		return
	}

	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey {
		if body, merr := json.Marshal(res); merr == nil {
			if _, cerr := repo.CreateIdempotency(ctx, h.db, clientID, key, string(body), http.StatusOK, h.idemTTL); cerr != nil && !errors.Is(cerr, repo.ErrDuplicate) {
				middleware.LoggerFrom(c).Warn().Err(cerr).Msg("storing resend idempotency record failed")
			}
		}
	}

	ok(c, http.StatusOK, res)
}

// RunReminders triggers one reminder tick with the configured schedule and
// returns the tick counters.
func (h *Handlers) RunReminders(c *gin.Context) {
	res, err := h.reminderSvc.RunTick(c.Request.Context(), h.reminderCfg, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRemindersDisabled):
			fail(c, http.StatusConflict, ErrCodeRemindersDisabled, "reminders are disabled")
		case errors.Is(err, services.ErrEmptySchedule):
			fail(c, http.StatusConflict, ErrCodeRemindersDisabled, "reminder schedule is empty")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "reminder run failed")
		}
		return
	}
	ok(c, http.StatusOK, res)
}

// RunDigest sends the weekly digest immediately and returns the aggregated
// week data.
func (h *Handlers) RunDigest(c *gin.Context) {
	data, err := h.summarySvc.SendDigest(c.Request.Context(), time.Now().UTC())
	if err != nil {
		if errors.Is(err, services.ErrNoDigestRecipient) {
			fail(c, http.StatusConflict, ErrCodeConflict, "no digest recipient configured")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "digest send failed")
		return
	}
	ok(c, http.StatusOK, data)
}

// clientID extracts the authenticated client identity for idempotency
// scoping, falling back to "admin".
func clientID(c *gin.Context) string {
	if v, ok := c.Get("clientID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "admin"
}
