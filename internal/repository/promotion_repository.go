package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// PromotionRepo provides access to promotion codes.  Reads return a
// point-in-time snapshot for validation; the only write on the
// request path is the atomic quantity decrement inside the confirm
// transaction.  The status sweep runs from the background worker.
type PromotionRepo struct {
	db *sql.DB
}

// NewPromotionRepo returns a new PromotionRepo bound to the given database.
func NewPromotionRepo(db *sql.DB) *PromotionRepo { return &PromotionRepo{db: db} }

// GetByCode returns the promotion with the given code (case
// insensitive) or ErrPromotionNotFound.
func (r *PromotionRepo) GetByCode(ctx context.Context, code string) (*model.Promotion, error) {
	const q = `SELECT id, code, discount_type, amount, start_date, end_date, status, quantity, created_at
	           FROM promotions WHERE code = ? LIMIT 1`
	var p model.Promotion
	var endDate sql.NullTime
	err := r.db.QueryRowContext(ctx, q, strings.ToUpper(strings.TrimSpace(code))).Scan(
		&p.ID, &p.Code, &p.DiscountType, &p.Amount, &p.StartDate, &endDate,
		&p.Status, &p.Quantity, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromotionNotFound
	}
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		e := endDate.Time
		p.EndDate = &e
	}
	return &p, nil
}

// ConsumeTx decrements a promotion's quantity inside the confirm
// transaction.  The WHERE quantity > 0 guard makes the decrement
// atomic: of N concurrent confirms against a quantity of 1, exactly
// one succeeds and the rest get ErrPromotionExhausted. Quantity can
// never go negative.
func (r *PromotionRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, promotionID uint64) error {
	return consumePromotionTx(ctx, tx, promotionID)
}

// ExpireOverdue flips promotions whose end date has passed from
// ACTIVE to EXPIRED and returns how many rows changed.  The statement
// only moves status forward, so it is idempotent and safe to run
// concurrently with confirms: it never touches quantity and a confirm
// that already passed validation keeps its snapshot.
func (r *PromotionRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	const q = `UPDATE promotions SET status = 'EXPIRED'
	           WHERE status = 'ACTIVE' AND end_date IS NOT NULL AND end_date < UTC_TIMESTAMP()`
	res, err := r.db.ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
