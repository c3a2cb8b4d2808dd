package model

import "time"

// Room is a bookable hotel room.  Pricing is attached to the room's
// type, not the individual room, through rate periods.
type Room struct {
	ID         uint64    // rooms.id
	HotelID    uint64    // rooms.hotel_id
	RoomTypeID uint64    // rooms.room_type_id
	Name       string    // rooms.name (e.g. "204")
	Floor      int       // rooms.floor
	IsActive   bool      // rooms.is_active
	CreatedAt  time.Time // rooms.created_at
}

// RoomType groups rooms that share capacity and pricing.
type RoomType struct {
	ID          uint64    // room_types.id
	Name        string    // room_types.name (e.g. "Deluxe Double")
	MaxPersons  int       // room_types.max_persons
	Description string    // room_types.description
	CreatedAt   time.Time // room_types.created_at
}

// RatePeriod defines the nightly rate for a room type over a date
// interval.  Periods for the same room type must not overlap; the
// pricing engine resolves each night of a stay against exactly one
// period and treats a gap in coverage as an error rather than a free
// night.
type RatePeriod struct {
	ID              uint64    // room_rate_periods.id
	RoomTypeID      uint64    // room_rate_periods.room_type_id
	StartDate       time.Time // room_rate_periods.start_date (inclusive)
	EndDate         time.Time // room_rate_periods.end_date (exclusive)
	NightlyRateCent int64     // room_rate_periods.nightly_rate_cents
}

// HotelService is an add-on a guest can attach to a booking, such as
// breakfast or airport pickup.
type HotelService struct {
	ID         uint64 // hotel_services.id
	Name       string // hotel_services.name
	PriceCents int64  // hotel_services.price_cents (unit price)
	IsActive   bool   // hotel_services.is_active
}
