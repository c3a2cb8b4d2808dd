// Package policy implements the refund rules applied when a booking
// is cancelled.  The policy is a pure function of the booking's
// creation time, the check-in date, the cancellation time and the
// amount paid; the tier values themselves are configuration, loaded
// from the environment at startup.
package policy

import (
	"errors"
	"sort"
	"time"
)

// ErrCancellationNotAllowed is returned when a booking can no longer
// be cancelled, i.e. when check-in has already passed.
var ErrCancellationNotAllowed = errors.New("cancellation no longer permitted")

// Tier grants RefundPercent of the paid amount when the cancellation
// happens at least MinHoursBeforeCheckIn hours before check-in.
type Tier struct {
	MinHoursBeforeCheckIn int
	RefundPercent         int
}

// CancellationPolicy holds the refund tiers plus a grace window: a
// cancellation within GracePeriod of the booking's creation always
// refunds GraceRefundPercent regardless of how close check-in is,
// which covers the "booked the wrong dates" case.
type CancellationPolicy struct {
	GracePeriod        time.Duration
	GraceRefundPercent int
	Tiers              []Tier
}

// Default returns the policy used when no configuration overrides it:
// full refund within 1 hour of booking, 80% a week or more out, 50%
// three days out, nothing inside 48 hours.
func Default() CancellationPolicy {
	return CancellationPolicy{
		GracePeriod:        time.Hour,
		GraceRefundPercent: 100,
		Tiers: []Tier{
			{MinHoursBeforeCheckIn: 168, RefundPercent: 80},
			{MinHoursBeforeCheckIn: 72, RefundPercent: 50},
			{MinHoursBeforeCheckIn: 48, RefundPercent: 20},
		},
	}
}

// Validate checks that the tier schedule is coherent: a cancellation
// further from check-in must never refund less than one closer in.
func (p CancellationPolicy) Validate() error {
	tiers := make([]Tier, len(p.Tiers))
	copy(tiers, p.Tiers)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinHoursBeforeCheckIn > tiers[j].MinHoursBeforeCheckIn
	})
	for i := 1; i < len(tiers); i++ {
		if tiers[i].RefundPercent > tiers[i-1].RefundPercent {
			return errors.New("refund tiers must not increase toward check-in")
		}
	}
	return nil
}

// RefundAmount computes how many cents of totalPaid are returned when
// a booking created at createdAt with check-in at checkIn is
// cancelled at now.  It returns ErrCancellationNotAllowed once
// check-in has passed.  The refund percentage is monotone: moving the
// cancellation closer to check-in never increases the refund.
func (p CancellationPolicy) RefundAmount(createdAt, checkIn, now time.Time, totalPaidCents int64) (int64, error) {
	if !now.Before(checkIn) {
		return 0, ErrCancellationNotAllowed
	}
	if totalPaidCents <= 0 {
		return 0, nil
	}
	pct := p.refundPercent(createdAt, checkIn, now)
	return totalPaidCents * int64(pct) / 100, nil
}

// refundPercent picks the matching tier.  Tiers are evaluated from
// the most generous (furthest from check-in) down; anything closer
// than the last tier forfeits the full amount.
func (p CancellationPolicy) refundPercent(createdAt, checkIn, now time.Time) int {
	if p.GracePeriod > 0 && now.Sub(createdAt) <= p.GracePeriod {
		return p.GraceRefundPercent
	}
	hoursOut := int(checkIn.Sub(now).Hours())
	tiers := make([]Tier, len(p.Tiers))
	copy(tiers, p.Tiers)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinHoursBeforeCheckIn > tiers[j].MinHoursBeforeCheckIn
	})
	for _, t := range tiers {
		if hoursOut >= t.MinHoursBeforeCheckIn {
			return t.RefundPercent
		}
	}
	return 0
}
