// Package domain defines the core persistence and configuration models for
// the application. This file holds the reminder schedule types and the
// per-transaction delivery state the due-date engine operates on.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Delay units accepted in a reminder rule.
const (
	DelayUnitHours = "hours"
	DelayUnitDays  = "days"
)

// Upper bounds on a rule's delay magnitude, per unit (one year either way).
const (
	MaxDelayHours = 8760
	MaxDelayDays  = 365
)

// ReminderRule is one entry of a reminder schedule: send a reminder this long
// after the gift purchase. A zero delay means "send on the next tick" for any
// unclaimed gift, not "send instantly at purchase time".
type ReminderRule struct {
	DelayValue int    `json:"delay_value"`
	DelayUnit  string `json:"delay_unit"` // hours|days
}

// Delay returns the rule's delay as a duration. Unknown units fall back to
// days, matching the store's historical behavior for malformed rows.
func (r ReminderRule) Delay() time.Duration {
	if r.DelayUnit == DelayUnitHours {
		return time.Duration(r.DelayValue) * time.Hour
	}
	return time.Duration(r.DelayValue) * 24 * time.Hour
}

// Validate checks the rule's magnitude and unit bounds.
func (r ReminderRule) Validate() error {
	if r.DelayValue < 0 {
		return errors.New("delay value must be >= 0")
	}
	switch r.DelayUnit {
	case DelayUnitHours:
		if r.DelayValue > MaxDelayHours {
			return fmt.Errorf("delay of %d hours exceeds %d", r.DelayValue, MaxDelayHours)
		}
	case DelayUnitDays:
		if r.DelayValue > MaxDelayDays {
			return fmt.Errorf("delay of %d days exceeds %d", r.DelayValue, MaxDelayDays)
		}
	default:
		return fmt.Errorf("unknown delay unit %q", r.DelayUnit)
	}
	return nil
}

// String renders the rule in the compact config form ("7d", "12h").
func (r ReminderRule) String() string {
	if r.DelayUnit == DelayUnitHours {
		return strconv.Itoa(r.DelayValue) + "h"
	}
	return strconv.Itoa(r.DelayValue) + "d"
}

// Schedule is an ordered list of reminder rules. The due-date engine assumes
// ascending order by delay; use Sort after construction.
type Schedule []ReminderRule

// Sort orders the schedule ascending by equivalent delay duration. Rule order
// is delivery order: rule 0 must fire before rule 1.
func (s Schedule) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Delay() < s[j].Delay() })
}

// MinDelay returns the shortest configured delay, used as the batch-selection
// cutoff when querying for due gifts. An empty schedule returns 0.
func (s Schedule) MinDelay() time.Duration {
	if len(s) == 0 {
		return 0
	}
	min := s[0].Delay()
	for _, r := range s[1:] {
		if d := r.Delay(); d < min {
			min = d
		}
	}
	return min
}

// Validate checks every rule in the schedule.
func (s Schedule) Validate() error {
	for i, r := range s {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// ParseSchedule parses the compact comma-separated schedule form used in
// configuration, e.g. "7d,14d" or "0h,3d". Each entry is an integer magnitude
// followed by a unit suffix: "h" for hours, "d" for days. The result is
// validated and sorted ascending.
func ParseSchedule(s string) (Schedule, error) {
	var out Schedule
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		unit := ""
		switch {
		case strings.HasSuffix(part, "h"):
			unit = DelayUnitHours
		case strings.HasSuffix(part, "d"):
			unit = DelayUnitDays
		default:
			return nil, fmt.Errorf("schedule entry %q: missing h/d unit suffix", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(part[:len(part)-1]))
		if err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", part, err)
		}
		rule := ReminderRule{DelayValue: n, DelayUnit: unit}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", part, err)
		}
		out = append(out, rule)
	}
	out.Sort()
	return out, nil
}

// DeliveryState is the durable per-gift reminder bookkeeping persisted as
// transaction metadata. SentCount is the number of rules that have fired (so
// it doubles as the next eligible rule index); LastSentAt is the unix
// timestamp of the most recent send (zero when none).
//
// SentCount must never regress: it is only ever written as ruleIndex+1 after
// a successful send.
type DeliveryState struct {
	SentCount  int   `json:"sent_count"`
	LastSentAt int64 `json:"last_sent_at"`
}

// ReminderConfig is the explicit configuration value object handed to the
// reminder engine and dispatcher on every tick. It is never read from ambient
// global state inside those components.
//
// Subject and Body, when non-empty, override the built-in reminder email
// template; they may use the {$name} placeholder variables.
type ReminderConfig struct {
	Enabled  bool
	Schedule Schedule
	Subject  string
	Body     string
}
