package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// RoomRepo provides read access to rooms, room types, rate periods
// and hotel services.  Room management itself is owned by the admin
// CRUD surface outside this service; the booking pipeline only ever
// reads.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the provided database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// GetByID returns an active room together with its room type.  It
// returns ErrRoomNotFound for unknown or deactivated rooms.
func (r *RoomRepo) GetByID(ctx context.Context, roomID uint64) (*model.Room, *model.RoomType, error) {
	const q = `SELECT ro.id, ro.hotel_id, ro.room_type_id, ro.name, ro.floor, ro.is_active,
	                  rt.id, rt.name, rt.max_persons, rt.description
	           FROM rooms ro
	           JOIN room_types rt ON rt.id = ro.room_type_id
	           WHERE ro.id = ? AND ro.is_active = 1`
	var room model.Room
	var rt model.RoomType
	err := r.db.QueryRowContext(ctx, q, roomID).Scan(
		&room.ID, &room.HotelID, &room.RoomTypeID, &room.Name, &room.Floor, &room.IsActive,
		&rt.ID, &rt.Name, &rt.MaxPersons, &rt.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &room, &rt, nil
}

// RatePeriods returns the rate periods of a room type intersecting
// the given date range, ordered by start date.  The pricing engine
// resolves individual nights against them and reports gaps itself.
func (r *RoomRepo) RatePeriods(ctx context.Context, roomTypeID uint64, from, to time.Time) ([]model.RatePeriod, error) {
	const q = `SELECT id, room_type_id, start_date, end_date, nightly_rate_cents
	           FROM room_rate_periods
	           WHERE room_type_id = ? AND end_date > ? AND start_date < ?
	           ORDER BY start_date`
	rows, err := r.db.QueryContext(ctx, q, roomTypeID,
		from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []model.RatePeriod
	for rows.Next() {
		var p model.RatePeriod
		if err := rows.Scan(&p.ID, &p.RoomTypeID, &p.StartDate, &p.EndDate, &p.NightlyRateCent); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return periods, nil
}

// ServicesByIDs loads the active hotel services for the given IDs.
// Unknown or inactive IDs are simply absent from the result; callers
// decide whether that is an error.  Passing an empty slice returns an
// empty map.
func (r *RoomRepo) ServicesByIDs(ctx context.Context, ids []uint64) (map[uint64]model.HotelService, error) {
	out := make(map[uint64]model.HotelService, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT id, name, price_cents, is_active FROM hotel_services
	      WHERE is_active = 1 AND id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.HotelService
		if err := rows.Scan(&s.ID, &s.Name, &s.PriceCents, &s.IsActive); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
