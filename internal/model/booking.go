package model

import "time"

// Booking status values.  A booking starts as PENDING when created
// through the manual path, becomes CONFIRMED once a payment is
// verified, and moves to COMPLETED after check-out.  CANCELLED is a
// terminal state reached only through the cancellation endpoint.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
	BookingStatusCompleted = "COMPLETED"
)

// Payment status values tracked on the booking row itself.  The
// per-transaction detail lives in the payments table.
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

// Booking records a confirmed stay for one or more rooms.  It is the
// durable artifact produced by converting a hold plus a verified
// payment.  A booking is created exactly once per hold: the unique
// payos_order_code column guarantees that two webhook deliveries for
// the same gateway order can never materialize two rows.
//
// Fields:
//  ID             – primary key identifier.
//  BookingCode    – short, unique, human-shareable reference.
//  UserID         – user who booked (nullable for guest checkouts).
//  CheckInDate    – first night of the stay (date only).
//  CheckOutDate   – departure date (exclusive; date only).
//  NumPersons     – number of guests.
//  TotalPrice     – price before discount, in cents.
//  FinalPrice     – price after discount, in cents.
//  PromotionID    – promotion applied at confirm time, if any.
//  BookingStatus  – PENDING, CONFIRMED, CANCELLED or COMPLETED.
//  PaymentStatus  – PENDING, PAID or REFUNDED.
//  PayosOrderCode – gateway order code that paid for this booking.
//  CheckInTime    – actual front-desk check-in timestamp.
//  CheckOutTime   – actual front-desk check-out timestamp.
type Booking struct {
	ID             uint64     // bookings.id
	BookingCode    string     // bookings.booking_code
	UserID         *uint64    // bookings.user_id (nullable)
	CheckInDate    time.Time  // bookings.check_in_date
	CheckOutDate   time.Time  // bookings.check_out_date
	NumPersons     int        // bookings.num_persons
	TotalPrice     int64      // bookings.total_price_cents
	FinalPrice     int64      // bookings.final_price_cents
	PromotionID    *uint64    // bookings.promotion_id (nullable)
	BookingStatus  string     // bookings.booking_status
	PaymentStatus  string     // bookings.payment_status
	PayosOrderCode *int64     // bookings.payos_order_code (nullable, unique)
	CheckInTime    *time.Time // bookings.check_in_time (nullable)
	CheckOutTime   *time.Time // bookings.check_out_time (nullable)
	CreatedAt      time.Time  // bookings.created_at
	UpdatedAt      time.Time  // bookings.updated_at
}

// BookingRoom attaches a room to a booking.  The pair
// (booking_id, room_id) is unique so a room can never be listed twice
// under the same booking.  Overlap across bookings for the same room
// is prevented by the availability re-check at confirm time.
type BookingRoom struct {
	ID         uint64    // booking_rooms.id
	BookingID  uint64    // booking_rooms.booking_id
	RoomID     uint64    // booking_rooms.room_id
	PriceCents int64     // booking_rooms.price_cents (room subtotal for the stay)
	CreatedAt  time.Time // booking_rooms.created_at
}

// BookingService records an add-on service (breakfast, airport pickup,
// spa, …) purchased together with a booking.
type BookingService struct {
	ID         uint64 // booking_services.id
	BookingID  uint64 // booking_services.booking_id
	ServiceID  uint64 // booking_services.service_id
	Quantity   int    // booking_services.quantity
	PriceCents int64  // booking_services.price_cents (unit price at purchase time)
}
