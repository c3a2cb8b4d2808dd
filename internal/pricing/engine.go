// Package pricing computes deterministic booking quotes.  It performs
// no I/O: callers load rate periods, services and promotion snapshots
// from the repositories and hand them in.  The same inputs always
// produce the same quote, which is what lets the confirm path re-price
// a hold and trust the result.
package pricing

import (
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// ErrInvalidDateRange is returned when check-out is not strictly
// after check-in (date-only comparison).
var ErrInvalidDateRange = errors.New("check-out must be after check-in")

// ErrNoRateCoverage is returned when at least one night of the stay
// falls outside every configured rate period.  A coverage gap is a
// configuration error, never a free night.
var ErrNoRateCoverage = errors.New("no rate period covers part of the stay")

// ServiceLine pairs a hotel service with the quantity requested.
type ServiceLine struct {
	Service  model.HotelService
	Quantity int
}

// Quote is the itemized result of pricing a stay.
//
// FinalCents = RoomSubtotalCents - DiscountCents + ServiceTotalCents.
// The discount applies to the room subtotal only and is clamped so it
// can never exceed it.
type Quote struct {
	Nights            int    `json:"nights"`
	RoomSubtotalCents int64  `json:"room_subtotal_cents"`
	ServiceTotalCents int64  `json:"service_total_cents"`
	DiscountCents     int64  `json:"discount_cents"`
	FinalCents        int64  `json:"final_cents"`
	PromotionApplied  bool   `json:"promotion_applied"`
	PromotionCode     string `json:"promotion_code,omitempty"`
}

// ComputeQuote prices a stay in a room of the given type.  periods
// must be the non-overlapping rate periods for the room type; promo
// may be nil when no promotion is applied.  The promotion must
// already have passed validation; ComputeQuote only applies the
// arithmetic.
func ComputeQuote(checkIn, checkOut time.Time, periods []model.RatePeriod, services []ServiceLine, promo *model.Promotion) (Quote, error) {
	nights := Nights(checkIn, checkOut)
	if nights <= 0 {
		return Quote{}, ErrInvalidDateRange
	}

	var roomSubtotal int64
	// Resolve each night individually against the rate periods.  With
	// non-overlapping periods the first match is the only match.
	night := DateOnly(checkIn)
	for i := 0; i < nights; i++ {
		rate, ok := nightlyRate(periods, night)
		if !ok {
			return Quote{}, ErrNoRateCoverage
		}
		roomSubtotal += rate
		night = night.AddDate(0, 0, 1)
	}

	var serviceTotal int64
	for _, line := range services {
		if line.Quantity <= 0 {
			continue
		}
		serviceTotal += int64(line.Quantity) * line.Service.PriceCents
	}

	q := Quote{
		Nights:            nights,
		RoomSubtotalCents: roomSubtotal,
		ServiceTotalCents: serviceTotal,
	}
	if promo != nil {
		q.DiscountCents = ApplyPromotion(roomSubtotal, promo)
		q.PromotionApplied = true
		q.PromotionCode = promo.Code
	}
	q.FinalCents = roomSubtotal - q.DiscountCents + serviceTotal
	return q, nil
}

// ApplyPromotion returns the discount a promotion grants on a room
// subtotal.  PERCENTAGE promotions take Amount percent of the
// subtotal; FIXED promotions take Amount cents.  The result is
// clamped to [0, subtotal] so a generous fixed coupon can zero a
// cheap stay but never push the total negative.
func ApplyPromotion(subtotalCents int64, promo *model.Promotion) int64 {
	if promo == nil || subtotalCents <= 0 {
		return 0
	}
	var discount int64
	switch promo.DiscountType {
	case model.DiscountTypePercentage:
		discount = subtotalCents * promo.Amount / 100
	case model.DiscountTypeFixed:
		discount = promo.Amount
	default:
		return 0
	}
	if discount < 0 {
		return 0
	}
	if discount > subtotalCents {
		return subtotalCents
	}
	return discount
}

// Nights returns the number of nights between two dates, ignoring the
// time-of-day component entirely.
func Nights(checkIn, checkOut time.Time) int {
	in := DateOnly(checkIn)
	out := DateOnly(checkOut)
	return int(out.Sub(in).Hours() / 24)
}

// DateOnly truncates a timestamp to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// nightlyRate finds the rate period containing the given night.
// Periods are [StartDate, EndDate) like the stays they price.
func nightlyRate(periods []model.RatePeriod, night time.Time) (int64, bool) {
	for _, p := range periods {
		if !night.Before(DateOnly(p.StartDate)) && night.Before(DateOnly(p.EndDate)) {
			return p.NightlyRateCent, true
		}
	}
	return 0, false
}
