package model

import "time"

// Hold represents an ephemeral intent to book during checkout.  It
// lives only in the Redis-backed hold store under the key
// temp_booking:<HoldKey> and self-expires after the configured TTL
// (30 minutes by default).  No durable table ever references a hold;
// it is consumed atomically when the payment webhook confirms it.
//
// Its expiry is observed lazily: a lookup miss after the TTL is the
// expiry signal, so callers must never assume a hold persists past
// its deadline.
type Hold struct {
	HoldKey       string        `json:"hold_key"`                 // opaque key returned to the client
	UserID        *uint64       `json:"user_id,omitempty"`        // authenticated user, if any
	RoomID        uint64        `json:"room_id"`                  // room being held
	CheckIn       time.Time     `json:"check_in"`                 // first night (date only)
	CheckOut      time.Time     `json:"check_out"`                // departure date (exclusive)
	Guests        int           `json:"guests"`                   // number of guests
	Services      []HoldService `json:"services,omitempty"`       // selected add-on services
	PromotionCode string        `json:"promotion_code,omitempty"` // promo applied at quote time
	Strict        bool          `json:"strict,omitempty"`         // reject instead of degrading when the promo dies
	TotalCents    int64         `json:"total_cents"`              // pre-discount total
	FinalCents    int64         `json:"final_cents"`              // amount the gateway will charge
	OrderCode     int64         `json:"order_code"`               // gateway order code bound to this hold
	CreatedAt     time.Time     `json:"created_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

// HoldService is a service selection captured inside a hold. The unit
// price is snapshotted at hold time so the confirm can reconstruct the
// quoted total even if the catalog changes mid-checkout.
type HoldService struct {
	ServiceID  uint64 `json:"service_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}
