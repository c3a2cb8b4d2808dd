package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// mysqlDuplicateEntry is the MySQL error number for a unique index
// violation.
const mysqlDuplicateEntry = 1062

// BookingRepo provides access to bookings, booking_rooms,
// booking_services and payments.  The confirm path runs as a single
// transaction owned by CreateConfirmed; everything else is
// single-statement.  All timestamp fields are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for callers that need to open
// their own transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// statuses that occupy a room for availability purposes.
const occupyingStatuses = `'PENDING','CONFIRMED'`

// RoomAvailable reports whether no pending or confirmed booking
// overlaps the requested date range for the room.  Holds are
// deliberately not consulted: a room may carry several concurrent
// holds and exactly one of them wins at confirm time.
func (r *BookingRepo) RoomAvailable(ctx context.Context, roomID uint64, checkIn, checkOut time.Time) (bool, error) {
	const q = `SELECT COUNT(*)
	           FROM bookings b
	           JOIN booking_rooms br ON br.booking_id = b.id
	           WHERE br.room_id = ?
	             AND b.booking_status IN (` + occupyingStatuses + `)
	             AND b.check_in_date < ? AND b.check_out_date > ?`
	var n int
	row := r.db.QueryRowContext(ctx, q, roomID,
		checkOut.UTC().Format("2006-01-02"), checkIn.UTC().Format("2006-01-02"))
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

// ConfirmOrder carries everything CreateConfirmed needs to turn a
// verified payment into durable rows.  FinalCents is the amount the
// gateway actually captured and already includes the promotion
// discount; it is recorded as-is even when the promotion quota ran
// out between hold and confirm.
type ConfirmOrder struct {
	BookingCode     string
	UserID          *uint64
	RoomID          uint64
	RoomPriceCents  int64
	CheckIn         time.Time
	CheckOut        time.Time
	NumPersons      int
	TotalCents      int64
	FinalCents      int64
	PromotionID     *uint64
	StrictPromotion bool
	OrderCode       int64
	TransactionID   string
	Services        []model.BookingService
}

// CreateConfirmed materializes a confirmed booking in one atomic
// unit: it re-checks the room is still free (locking conflicting rows
// with FOR UPDATE so two confirms serialize), inserts the booking
// bound to its unique payos_order_code, attaches rooms and services,
// records the successful payment and consumes the promotion quota.
//
// Failure modes map to sentinels: ErrRoomOverlap when another confirm
// won the race for the room, ErrDuplicateOrderCode when this order
// code already produced a booking (the caller then takes the
// idempotent path), and ErrPromotionExhausted only in strict mode;
// otherwise an exhausted promotion silently degrades to no discount.
func (r *BookingRepo) CreateConfirmed(ctx context.Context, ord ConfirmOrder) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Last-moment race check.  FOR UPDATE serializes concurrent
	// confirms touching the same room and date range.
	const overlapQ = `SELECT COUNT(*)
	                  FROM bookings b
	                  JOIN booking_rooms br ON br.booking_id = b.id
	                  WHERE br.room_id = ?
	                    AND b.booking_status IN (` + occupyingStatuses + `)
	                    AND b.check_in_date < ? AND b.check_out_date > ?
	                  FOR UPDATE`
	var overlapping int
	if err := tx.QueryRowContext(ctx, overlapQ, ord.RoomID,
		ord.CheckOut.UTC().Format("2006-01-02"), ord.CheckIn.UTC().Format("2006-01-02"),
	).Scan(&overlapping); err != nil {
		return nil, err
	}
	if overlapping > 0 {
		return nil, ErrRoomOverlap
	}

	// Consume promotion quota before the booking row is written.
	// The charged amount never changes here: the gateway already
	// captured FinalCents against the hold's quote.
	promotionID := ord.PromotionID
	finalCents := ord.FinalCents
	if promotionID != nil {
		if err := consumePromotionTx(ctx, tx, *promotionID); err != nil {
			if !errors.Is(err, ErrPromotionExhausted) {
				return nil, err
			}
			if ord.StrictPromotion {
				return nil, ErrPromotionExhausted
			}
			// Quota ran out while the hold was pending: keep the
			// booking at the price actually paid, just without the
			// promotion linked.
			promotionID = nil
		}
	}

	const insertQ = `INSERT INTO bookings
	        (booking_code, user_id, check_in_date, check_out_date, num_persons,
	         total_price_cents, final_price_cents, promotion_id,
	         booking_status, payment_status, payos_order_code)
	        VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'CONFIRMED', 'PAID', ?)`
	res, err := tx.ExecContext(ctx, insertQ,
		ord.BookingCode, ord.UserID,
		ord.CheckIn.UTC().Format("2006-01-02"), ord.CheckOut.UTC().Format("2006-01-02"),
		ord.NumPersons, ord.TotalCents, finalCents, promotionID, ord.OrderCode,
	)
	if err != nil {
		// The unique index on payos_order_code enforces the single
		// confirm winner; the loser detects the conflict here.
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			if strings.Contains(myErr.Message, "payos_order") {
				return nil, ErrDuplicateOrderCode
			}
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	bookingID := uint64(id)

	const roomQ = `INSERT INTO booking_rooms (booking_id, room_id, price_cents) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, roomQ, bookingID, ord.RoomID, ord.RoomPriceCents); err != nil {
		return nil, err
	}

	if len(ord.Services) > 0 {
		query := `INSERT INTO booking_services (booking_id, service_id, quantity, price_cents) VALUES `
		args := make([]interface{}, 0, len(ord.Services)*4)
		for i, s := range ord.Services {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			args = append(args, bookingID, s.ServiceID, s.Quantity, s.PriceCents)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, err
		}
	}

	const payQ = `INSERT INTO payments
	        (booking_id, amount_cents, method, status, transaction_id, payment_date)
	        VALUES (?, ?, 'PAYOS', 'SUCCESS', ?, UTC_TIMESTAMP())`
	if _, err := tx.ExecContext(ctx, payQ, bookingID, finalCents, ord.TransactionID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return r.GetByID(ctx, bookingID)
}

// bookingColumns is the canonical select list scanned by scanBooking.
const bookingColumns = `id, booking_code, user_id, check_in_date, check_out_date, num_persons,
	total_price_cents, final_price_cents, promotion_id, booking_status, payment_status,
	payos_order_code, check_in_time, check_out_time, created_at, updated_at`

func scanBooking(row *sql.Row) (*model.Booking, error) {
	var b model.Booking
	var userID sql.NullInt64
	var promotionID sql.NullInt64
	var orderCode sql.NullInt64
	var checkInTime, checkOutTime sql.NullTime
	err := row.Scan(
		&b.ID, &b.BookingCode, &userID, &b.CheckInDate, &b.CheckOutDate, &b.NumPersons,
		&b.TotalPrice, &b.FinalPrice, &promotionID, &b.BookingStatus, &b.PaymentStatus,
		&orderCode, &checkInTime, &checkOutTime, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		u := uint64(userID.Int64)
		b.UserID = &u
	}
	if promotionID.Valid {
		p := uint64(promotionID.Int64)
		b.PromotionID = &p
	}
	if orderCode.Valid {
		oc := orderCode.Int64
		b.PayosOrderCode = &oc
	}
	if checkInTime.Valid {
		t := checkInTime.Time
		b.CheckInTime = &t
	}
	if checkOutTime.Valid {
		t := checkOutTime.Time
		b.CheckOutTime = &t
	}
	return &b, nil
}

// GetByID returns a booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
}

// GetByOrderCode returns the booking bound to a gateway order code.
// The duplicate-webhook path uses this to answer idempotently.
func (r *BookingRepo) GetByOrderCode(ctx context.Context, orderCode int64) (*model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE payos_order_code = ?`, orderCode))
}

// GetByCode returns the booking with the given human-shareable code.
func (r *BookingRepo) GetByCode(ctx context.Context, code string) (*model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_code = ?`,
		strings.ToUpper(strings.TrimSpace(code))))
}

// BookingDetail is a booking with its rooms, returned by the read
// endpoints.
type BookingDetail struct {
	Booking model.Booking `json:"booking"`
	Rooms   []struct {
		RoomID     uint64 `json:"room_id"`
		Name       string `json:"name"`
		PriceCents int64  `json:"price_cents"`
	} `json:"rooms"`
}

// ListByUser returns all bookings of a user, newest first, with their
// rooms populated in a single follow-up query.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var b model.Booking
		var uID, promotionID, orderCode sql.NullInt64
		var checkInTime, checkOutTime sql.NullTime
		if err := rows.Scan(
			&b.ID, &b.BookingCode, &uID, &b.CheckInDate, &b.CheckOutDate, &b.NumPersons,
			&b.TotalPrice, &b.FinalPrice, &promotionID, &b.BookingStatus, &b.PaymentStatus,
			&orderCode, &checkInTime, &checkOutTime, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if uID.Valid {
			u := uint64(uID.Int64)
			b.UserID = &u
		}
		if promotionID.Valid {
			p := uint64(promotionID.Int64)
			b.PromotionID = &p
		}
		if orderCode.Valid {
			oc := orderCode.Int64
			b.PayosOrderCode = &oc
		}
		if checkInTime.Valid {
			t := checkInTime.Time
			b.CheckInTime = &t
		}
		if checkOutTime.Valid {
			t := checkOutTime.Time
			b.CheckOutTime = &t
		}
		index[b.ID] = len(details)
		details = append(details, BookingDetail{Booking: b})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}
	ids := make([]interface{}, 0, len(details))
	placeholders := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.Booking.ID)
		placeholders = append(placeholders, "?")
	}
	roomQ := `SELECT br.booking_id, br.room_id, ro.name, br.price_cents
	          FROM booking_rooms br
	          JOIN rooms ro ON ro.id = br.room_id
	          WHERE br.booking_id IN (` + strings.Join(placeholders, ",") + `)`
	rrows, err := r.db.QueryContext(ctx, roomQ, ids...)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()
	for rrows.Next() {
		var bid, rid uint64
		var name string
		var price int64
		if err := rrows.Scan(&bid, &rid, &name, &price); err != nil {
			return nil, err
		}
		idx, ok := index[bid]
		if !ok {
			continue
		}
		details[idx].Rooms = append(details[idx].Rooms, struct {
			RoomID     uint64 `json:"room_id"`
			Name       string `json:"name"`
			PriceCents int64  `json:"price_cents"`
		}{RoomID: rid, Name: name, PriceCents: price})
	}
	if err := rrows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// MarkCancelled flips a booking to CANCELLED and records the refund
// outcome.  paymentStatus is REFUNDED when money flows back and
// PENDING when nothing was ever paid.  The status list in the WHERE
// clause is the state machine guard: a booking that was already
// cancelled or completed is left untouched and ErrBookingNotFound is
// returned so the caller can report the conflict.
func (r *BookingRepo) MarkCancelled(ctx context.Context, bookingID uint64, paymentStatus string, refundCents int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const q = `UPDATE bookings
	           SET booking_status = 'CANCELLED', payment_status = ?, refund_amount_cents = ?
	           WHERE id = ? AND booking_status IN ('PENDING','CONFIRMED')`
	res, err := tx.ExecContext(ctx, q, paymentStatus, refundCents, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	if paymentStatus == model.PaymentStatusRefunded {
		const payQ = `UPDATE payments SET status = 'COMPLETED' WHERE booking_id = ? AND status = 'SUCCESS'`
		if _, err := tx.ExecContext(ctx, payQ, bookingID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetCheckInTime stamps the front-desk check-in moment.  Only a
// confirmed booking can check in.
func (r *BookingRepo) SetCheckInTime(ctx context.Context, bookingID uint64, at time.Time) error {
	const q = `UPDATE bookings SET check_in_time = ?
	           WHERE id = ? AND booking_status = 'CONFIRMED' AND check_in_time IS NULL`
	res, err := r.db.ExecContext(ctx, q, at.UTC().Format("2006-01-02 15:04:05"), bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// SetCheckOutTime stamps check-out and completes the booking.
func (r *BookingRepo) SetCheckOutTime(ctx context.Context, bookingID uint64, at time.Time) error {
	const q = `UPDATE bookings SET check_out_time = ?, booking_status = 'COMPLETED'
	           WHERE id = ? AND booking_status = 'CONFIRMED' AND check_in_time IS NOT NULL`
	res, err := r.db.ExecContext(ctx, q, at.UTC().Format("2006-01-02 15:04:05"), bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// consumePromotionTx is shared between PromotionRepo.ConsumeTx and
// the confirm transaction.
func consumePromotionTx(ctx context.Context, tx *sql.Tx, promotionID uint64) error {
	const q = `UPDATE promotions SET quantity = quantity - 1
	           WHERE id = ? AND status = 'ACTIVE' AND quantity > 0`
	res, err := tx.ExecContext(ctx, q, promotionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPromotionExhausted
	}
	return nil
}
