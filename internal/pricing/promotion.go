package pricing

import (
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// Validation failure reasons returned by ValidatePromotion.  Handlers
// surface these directly; the coordinator also uses them to decide
// whether a strict-mode checkout should be rejected.
var (
	ErrPromotionInactive  = errors.New("promotion is not active")
	ErrPromotionNotYet    = errors.New("promotion has not started yet")
	ErrPromotionEnded     = errors.New("promotion has ended")
	ErrPromotionExhausted = errors.New("promotion quantity exhausted")
)

// ValidatePromotion checks a promotion snapshot against a point in
// time.  It returns nil when the code is usable and a sentinel error
// describing the first failed check otherwise.  Quantity is only
// inspected here, never consumed: the decrement happens inside the
// confirm transaction so abandoned carts cannot hold promotional
// quota hostage.
func ValidatePromotion(p *model.Promotion, now time.Time) error {
	if p.Status != model.PromotionStatusActive {
		return ErrPromotionInactive
	}
	if now.Before(p.StartDate) {
		return ErrPromotionNotYet
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return ErrPromotionEnded
	}
	if p.Quantity <= 0 {
		return ErrPromotionExhausted
	}
	return nil
}
