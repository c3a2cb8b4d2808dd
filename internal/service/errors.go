// Package service contains the reservation coordinator: the
// orchestration layer that turns an unauthenticated checkout request
// into a hold, a payment link and eventually a durable booking.
package service

import "errors"

// ErrInvalidDateRange is returned when check-out is not strictly
// after check-in. Surfaced to clients as 400.
var ErrInvalidDateRange = errors.New("invalid date range")

// ErrRoomUnavailable is returned at hold-creation time when a
// persisted pending or confirmed booking already overlaps the
// requested dates.
var ErrRoomUnavailable = errors.New("room unavailable for the requested dates")

// ErrTooManyGuests is returned when the guest count exceeds the room
// type's capacity.
var ErrTooManyGuests = errors.New("guest count exceeds room capacity")

// ErrServiceInvalid is returned when a requested add-on service does
// not exist or is inactive. Services cost money, so an unknown ID is
// rejected rather than silently dropped.
var ErrServiceInvalid = errors.New("unknown or inactive service requested")

// ErrPromotionInvalid is returned in strict mode when the supplied
// promotion code fails validation. In the default lenient mode an
// invalid code degrades to "no discount" and the hold proceeds.
var ErrPromotionInvalid = errors.New("promotion code is not valid")

// ErrHoldExpired is returned when a webhook or confirm request refers
// to a hold whose TTL elapsed before payment completed. If the
// gateway reports money was captured anyway, the coordinator requests
// a gateway-side cancel and flags the order for manual reconciliation.
var ErrHoldExpired = errors.New("hold expired before payment completed")

// ErrRoomNoLongerAvailable is returned when a confirm loses the race
// against another hold on the same room and dates. It is terminal for
// the losing hold; the captured payment is flagged for refund, never
// retried into a booking.
var ErrRoomNoLongerAvailable = errors.New("room was booked by a concurrent confirmation")

// ErrAmountMismatch is returned when the webhook's paid amount does
// not match the hold's quoted final price. The booking is not
// created; the order is flagged for manual reconciliation.
var ErrAmountMismatch = errors.New("paid amount does not match the quoted total")

// ErrPaymentNotCompleted is returned by the manual confirmation path
// when the gateway does not report the order as paid.
var ErrPaymentNotCompleted = errors.New("gateway does not report this order as paid")
