package subscription

import (
	"fmt"
	"math"
	"time"
)

// Outcome is the access verdict. The zero value is OutcomeLoading.
type Outcome int

const (
	OutcomeLoading Outcome = iota
	OutcomeGranted
	OutcomeGrantedWithBanner
	OutcomeBlockedPastDue
	OutcomeRedirectChoosePlan
	OutcomeRedirectReactivate
)

var outcomeNames = [...]string{
	OutcomeLoading:            "loading",
	OutcomeGranted:            "granted",
	OutcomeGrantedWithBanner:  "granted_with_banner",
	OutcomeBlockedPastDue:     "blocked_past_due",
	OutcomeRedirectChoosePlan: "redirect_choose_plan",
	OutcomeRedirectReactivate: "redirect_reactivate",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Allowed reports whether the dashboard may render.
func (o Outcome) Allowed() bool {
	return o == OutcomeGranted || o == OutcomeGrantedWithBanner
}

// Options tune evaluation and the redirect targets.
type Options struct {
	UrgentDays       int
	BillingPortalURL string
	ChoosePlanPath   string
	ReactivatePath   string
}

// DefaultOptions returns the standard thresholds and paths.
func DefaultOptions() Options {
	return Options{
		UrgentDays:     3,
		ChoosePlanPath: "/billing/choose-plan",
		ReactivatePath: "/billing/reactivate",
	}
}

// Decision is the result of an evaluation.
type Decision struct {
	Outcome  Outcome `json:"outcome"`
	Source   string  `json:"source"`
	DaysLeft int     `json:"days_left,omitempty"`
	Urgent   bool    `json:"urgent,omitempty"`
	// RedirectTo is set for the redirect outcomes.
	RedirectTo string `json:"redirect_to,omitempty"`
	// PaymentURL is the payment management link of the past-due screen.
	PaymentURL string `json:"payment_url,omitempty"`
}

const day = 24 * time.Hour

// Evaluate resolves src at now. It has no side effects.
func Evaluate(src Source, now time.Time, opts Options) Decision {
	if src == nil {
		src = NoSource{}
	}
	var d Decision
	switch s := src.(type) {
	case PrimarySource:
		d = evaluatePrimary(s.Record, now, opts)
	case LegacySource:
		d = evaluateLegacy(s.Billing, now, opts)
	default:
		d = Decision{Outcome: OutcomeRedirectReactivate}
	}
	d.Source = src.sourceName()

	switch d.Outcome {
	case OutcomeRedirectChoosePlan:
		d.RedirectTo = opts.ChoosePlanPath
	case OutcomeRedirectReactivate:
		d.RedirectTo = opts.ReactivatePath
	case OutcomeBlockedPastDue:
		d.PaymentURL = opts.BillingPortalURL
	}
	return d
}

func evaluatePrimary(r Record, now time.Time, opts Options) Decision {
	switch r.Status.Normalize() {
	case StatusActive, StatusPromo:
		return Decision{Outcome: OutcomeGranted}
	case StatusTrial:
		if r.TrialEnd == nil {
			return Decision{Outcome: OutcomeRedirectReactivate}
		}
		end := r.TrialEnd.Add(time.Duration(r.BonusDays) * day)
		if d, ok := trialBanner(end, now, opts); ok {
			return d
		}
		return Decision{Outcome: OutcomeRedirectReactivate}
	case StatusPastDue:
		return Decision{Outcome: OutcomeBlockedPastDue}
	case StatusPendingPayment:
		return Decision{Outcome: OutcomeRedirectChoosePlan}
	default:
		return Decision{Outcome: OutcomeRedirectReactivate}
	}
}

func evaluateLegacy(b LegacyBilling, now time.Time, opts Options) Decision {
	status := b.Status.Normalize()
	if status == StatusActive {
		return Decision{Outcome: OutcomeGranted}
	}
	if (status == StatusTrial || status == "") && b.TrialEnd != nil {
		end := b.TrialEnd.Add(time.Duration(b.BonusWeeks) * 7 * day)
		if d, ok := trialBanner(end, now, opts); ok {
			return d
		}
	}
	return Decision{Outcome: OutcomeRedirectReactivate}
}

func trialBanner(end, now time.Time, opts Options) (Decision, bool) {
	if !end.After(now) {
		return Decision{}, false
	}
	left := DaysLeft(end, now)
	urgentDays := opts.UrgentDays
	if urgentDays <= 0 {
		urgentDays = DefaultOptions().UrgentDays
	}
	return Decision{Outcome: OutcomeGrantedWithBanner, DaysLeft: left, Urgent: left <= urgentDays}, true
}

// DaysLeft is the number of started days between now and end.
func DaysLeft(end, now time.Time) int {
	return int(math.Ceil(float64(end.Sub(now)) / float64(day)))
}
