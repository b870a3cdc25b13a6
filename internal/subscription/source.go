// Package subscription decides whether a restaurant operator may reach the dashboard.
package subscription

import (
	"strings"
	"time"
)

// Status values of the primary billing system.
type Status string

const (
	StatusTrial          Status = "trial"
	StatusActive         Status = "active"
	StatusPromo          Status = "promo"
	StatusPastDue        Status = "past_due"
	StatusPendingPayment Status = "pending_payment"
	StatusExpired        Status = "expired"
	StatusCancelled      Status = "cancelled"
)

// Normalize lowercases and trims s.
func (s Status) Normalize() Status {
	return Status(strings.ToLower(strings.TrimSpace(string(s))))
}

// Record is one row of the primary billing system.
type Record struct {
	ID           int64      `json:"id"`
	RestaurantID int64      `json:"restaurant_id"`
	Status       Status     `json:"status"`
	TrialEnd     *time.Time `json:"trial_end,omitempty"`
	BonusDays    int        `json:"bonus_days"`
	CreatedAt    time.Time  `json:"created_at"`
}

// LegacyBilling holds the billing fields stored on the restaurant itself.
// An empty Status means the field was never set.
type LegacyBilling struct {
	Status     Status     `json:"subscription_status,omitempty"`
	TrialEnd   *time.Time `json:"trial_end_date,omitempty"`
	BonusWeeks int        `json:"bonus_weeks"`
}

// Source is the billing data an evaluation runs on:
// PrimarySource, LegacySource or NoSource.
type Source interface {
	sourceName() string
}

// PrimarySource wraps the most recent primary record.
type PrimarySource struct{ Record Record }

// LegacySource wraps the legacy restaurant fields.
type LegacySource struct{ Billing LegacyBilling }

// NoSource means neither system knows the restaurant.
type NoSource struct{}

func (PrimarySource) sourceName() string { return "primary" }
func (LegacySource) sourceName() string  { return "legacy" }
func (NoSource) sourceName() string      { return "none" }

// Select applies the precedence rule: a primary record replaces the legacy
// fields entirely, and legacy data is used only when no primary row exists.
func Select(primary *Record, legacy *LegacyBilling) Source {
	switch {
	case primary != nil:
		return PrimarySource{Record: *primary}
	case legacy != nil:
		return LegacySource{Billing: *legacy}
	default:
		return NoSource{}
	}
}
