package model

import "time"

// Promotion status values.  The transition ACTIVE → EXPIRED only
// moves forward in time; the sweeper never resurrects a promotion.
const (
	PromotionStatusActive  = "ACTIVE"
	PromotionStatusExpired = "EXPIRED"
)

// Promotion discount types.  FIXED discounts subtract a fixed cent
// amount; PERCENTAGE discounts subtract Amount percent of the room
// subtotal.  Both are clamped so the discount never exceeds the
// subtotal.
const (
	DiscountTypeFixed      = "FIXED"
	DiscountTypePercentage = "PERCENTAGE"
)

// Promotion is a discount code with a validity window and a limited
// quantity.  Quantity is consumed only when a booking is confirmed,
// never at validation time, and the decrement is guarded so it can
// never go negative under concurrent confirms.
type Promotion struct {
	ID           uint64     // promotions.id
	Code         string     // promotions.code (unique)
	DiscountType string     // promotions.discount_type
	Amount       int64      // promotions.amount (cents for FIXED, percent for PERCENTAGE)
	StartDate    time.Time  // promotions.start_date
	EndDate      *time.Time // promotions.end_date (nullable = open-ended)
	Status       string     // promotions.status
	Quantity     int        // promotions.quantity (remaining uses)
	CreatedAt    time.Time  // promotions.created_at
}
