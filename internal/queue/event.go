// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a hold is successfully
// converted into a booking. It carries enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	BookingCode string `json:"booking_code"`
	UserID      uint64 `json:"user_id"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	NumPersons  int    `json:"num_persons"`
	FinalCents  int64  `json:"final_cents"`
	OrderCode   int64  `json:"order_code"`
	ConfirmedAt string `json:"confirmed_at"`
}
