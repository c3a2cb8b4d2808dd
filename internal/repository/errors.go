// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as the reservation coordinator and handlers to distinguish
// between different failure scenarios. For example, ErrForbidden
// indicates that the current user is not authorized to act on a
// booking owned by someone else, while ErrDuplicateOrderCode signals
// that another confirm already bound a booking to the same gateway
// order code.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// booking they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrRoomNotFound is returned when a referenced room does not exist
// or is inactive.
var ErrRoomNotFound = errors.New("room not found")

// ErrBookingNotFound is returned when no booking matches the given
// identifier, code or order code.
var ErrBookingNotFound = errors.New("booking not found")

// ErrPromotionNotFound is returned when no promotion carries the
// given code.
var ErrPromotionNotFound = errors.New("promotion not found")

// ErrRoomOverlap is returned by the confirm transaction when the
// requested date range collides with an existing pending or confirmed
// booking for the same room. It marks a lost confirm race.
var ErrRoomOverlap = errors.New("room already booked for overlapping dates")

// ErrDuplicateOrderCode is returned when inserting a booking whose
// payos_order_code is already bound to another booking. The caller
// falls back to the idempotent already-confirmed path.
var ErrDuplicateOrderCode = errors.New("order code already confirmed")

// ErrPromotionExhausted is returned when the atomic quantity
// decrement finds no remaining promotional quota.
var ErrPromotionExhausted = errors.New("promotion quantity exhausted")

// ErrHoldNotFound is returned by the hold store and order code index
// when a key is absent. After the TTL elapses, absence is
// indistinguishable from "never existed", which is exactly the
// expiry signal the coordinator relies on.
var ErrHoldNotFound = errors.New("hold not found")
