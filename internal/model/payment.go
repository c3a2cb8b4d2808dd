package model

import "time"

// Payment row status values.  SUCCESS marks a gateway-confirmed
// capture; COMPLETED is set after reconciliation closes the record.
const (
	PaymentRowPending   = "PENDING"
	PaymentRowSuccess   = "SUCCESS"
	PaymentRowFailed    = "FAILED"
	PaymentRowCompleted = "COMPLETED"
)

// Payment records one payment attempt against a booking.  It is
// created when a gateway payment is initiated and updated in place
// when the webhook or a status query resolves it; it is never
// duplicated for the same booking and order code.
type Payment struct {
	ID            uint64     // payments.id
	BookingID     uint64     // payments.booking_id
	AmountCents   int64      // payments.amount_cents
	Method        string     // payments.method (e.g. "PAYOS")
	Status        string     // payments.status
	TransactionID *string    // payments.transaction_id (gateway reference, nullable)
	PaymentDate   *time.Time // payments.payment_date (nullable until resolved)
	CreatedAt     time.Time  // payments.created_at
}
