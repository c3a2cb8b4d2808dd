package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

func activePromo() *model.Promotion {
	end := date(2026, 12, 31)
	return &model.Promotion{
		ID:           1,
		Code:         "SPRING10",
		DiscountType: model.DiscountTypePercentage,
		Amount:       10,
		StartDate:    date(2026, 1, 1),
		EndDate:      &end,
		Status:       model.PromotionStatusActive,
		Quantity:     5,
	}
}

func TestValidatePromotion(t *testing.T) {
	now := date(2026, 6, 1)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidatePromotion(activePromo(), now))
	})

	t.Run("expired status", func(t *testing.T) {
		p := activePromo()
		p.Status = model.PromotionStatusExpired
		assert.ErrorIs(t, ValidatePromotion(p, now), ErrPromotionInactive)
	})

	t.Run("not started", func(t *testing.T) {
		p := activePromo()
		p.StartDate = date(2026, 7, 1)
		assert.ErrorIs(t, ValidatePromotion(p, now), ErrPromotionNotYet)
	})

	t.Run("ended", func(t *testing.T) {
		p := activePromo()
		end := date(2026, 5, 1)
		p.EndDate = &end
		assert.ErrorIs(t, ValidatePromotion(p, now), ErrPromotionEnded)
	})

	t.Run("open ended", func(t *testing.T) {
		p := activePromo()
		p.EndDate = nil
		assert.NoError(t, ValidatePromotion(p, date(2030, 1, 1)))
	})

	t.Run("exhausted", func(t *testing.T) {
		p := activePromo()
		p.Quantity = 0
		assert.ErrorIs(t, ValidatePromotion(p, now), ErrPromotionExhausted)
	})

	t.Run("status checked before window", func(t *testing.T) {
		// An EXPIRED promotion inside its date window still fails on
		// status; the sweeper's flip is authoritative.
		p := activePromo()
		p.Status = model.PromotionStatusExpired
		assert.ErrorIs(t, ValidatePromotion(p, now), ErrPromotionInactive)
	})
}
