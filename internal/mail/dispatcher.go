package mail

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Message is one queued notification, tagged with the gift transaction it
// belongs to so batch outcomes can be reported per gift.
type Message struct {
	GiftID  uint64
	To      string
	Subject string
	HTML    string
}

// Outcome records the per-message delivery result.
type Outcome struct {
	GiftID uint64 `json:"gift_id"`
	To     string `json:"to"`
	Sent   bool   `json:"sent"`
	Error  string `json:"error,omitempty"`
}

// BatchResult aggregates a batch send: per-message outcomes plus counts, so
// a caller can report partial success.
type BatchResult struct {
	SuccessCount int       `json:"success_count"`
	FailedCount  int       `json:"failed_count"`
	FailedIDs    []uint64  `json:"failed_ids,omitempty"`
	Outcomes     []Outcome `json:"outcomes"`
}

// Dispatcher sends notifications through a Mailer with a token-bucket
// throttle, so bulk resends and reminder ticks cannot flood the upstream
// relay. One message's failure never aborts the rest of a batch.
type Dispatcher struct {
	mailer  Mailer
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewDispatcher wraps mailer with a throttle of perSecond messages and a
// burst of one. perSecond <= 0 disables throttling.
func NewDispatcher(mailer Mailer, perSecond float64, log zerolog.Logger) *Dispatcher {
	lim := rate.NewLimiter(rate.Inf, 1)
	if perSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &Dispatcher{mailer: mailer, limiter: lim, log: log}
}

// Send delivers one message, waiting on the throttle first.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	return d.mailer.Send(ctx, msg.To, msg.Subject, msg.HTML)
}

// SendBatch delivers every message, collecting per-message outcomes. Context
// cancellation stops the remaining sends; already-attempted outcomes are
// still returned.
func (d *Dispatcher) SendBatch(ctx context.Context, msgs []Message) BatchResult {
	res := BatchResult{Outcomes: make([]Outcome, 0, len(msgs))}
	for _, msg := range msgs {
		out := Outcome{GiftID: msg.GiftID, To: msg.To}
		if err := d.Send(ctx, msg); err != nil {
			out.Error = err.Error()
			res.FailedCount++
			res.FailedIDs = append(res.FailedIDs, msg.GiftID)
			d.log.Warn().
				Uint64("gift_id", msg.GiftID).
				Str("to", msg.To).
				Err(err).
				Msg("notification send failed")
			res.Outcomes = append(res.Outcomes, out)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		out.Sent = true
		res.SuccessCount++
		res.Outcomes = append(res.Outcomes, out)
	}
	return res
}
