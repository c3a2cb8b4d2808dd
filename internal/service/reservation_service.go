package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/payment"
	"github.com/iliyamo/hotel-room-booking/internal/policy"
	"github.com/iliyamo/hotel-room-booking/internal/pricing"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/utils"
)

// HoldStore is the slice of the Redis hold repository the coordinator
// uses. Declared here so tests can substitute doubles; the concrete
// implementation is repository.HoldStore.
type HoldStore interface {
	TTL() time.Duration
	Save(ctx context.Context, h *model.Hold) error
	Get(ctx context.Context, holdKey string) (*model.Hold, error)
	Delete(ctx context.Context, holdKey string) error
	ExtendTTL(ctx context.Context, holdKey string) (*model.Hold, error)
}

// OrderCodeIndex resolves gateway order codes to hold keys.
type OrderCodeIndex interface {
	Map(ctx context.Context, orderCode int64, holdKey string, ttl time.Duration) error
	Resolve(ctx context.Context, orderCode int64) (string, error)
	Delete(ctx context.Context, orderCode int64) error
}

// RoomStore supplies room, rate and service data for pricing.
type RoomStore interface {
	GetByID(ctx context.Context, roomID uint64) (*model.Room, *model.RoomType, error)
	RatePeriods(ctx context.Context, roomTypeID uint64, from, to time.Time) ([]model.RatePeriod, error)
	ServicesByIDs(ctx context.Context, ids []uint64) (map[uint64]model.HotelService, error)
}

// PromotionStore supplies promotion snapshots for validation.
type PromotionStore interface {
	GetByCode(ctx context.Context, code string) (*model.Promotion, error)
}

// BookingStore is the durable side of the pipeline.
type BookingStore interface {
	RoomAvailable(ctx context.Context, roomID uint64, checkIn, checkOut time.Time) (bool, error)
	CreateConfirmed(ctx context.Context, ord repository.ConfirmOrder) (*model.Booking, error)
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByOrderCode(ctx context.Context, orderCode int64) (*model.Booking, error)
	MarkCancelled(ctx context.Context, bookingID uint64, paymentStatus string, refundCents int64) error
}

// EventPublisher emits domain events after a successful confirm.
// Publishing is best-effort: a broker outage never fails a booking.
type EventPublisher func(ctx context.Context, booking *model.Booking)

// confirmRetries bounds how often a transient database failure is
// retried during confirm. The unique payos_order_code index makes the
// retry safe: a write that actually landed surfaces as
// ErrDuplicateOrderCode and resolves through the idempotent path.
const confirmRetries = 3

// Coordinator orchestrates the hold → payment → booking pipeline.
// All dependencies are injected at construction; nothing reaches for
// global state.
type Coordinator struct {
	holds    HoldStore
	orders   OrderCodeIndex
	rooms    RoomStore
	promos   PromotionStore
	bookings BookingStore
	gateway  payment.Gateway
	cancel   policy.CancellationPolicy
	publish  EventPublisher

	returnURL string
	cancelURL string
}

// NewCoordinator wires a Coordinator. publish may be nil when no
// broker is configured.
func NewCoordinator(holds HoldStore, orders OrderCodeIndex, rooms RoomStore, promos PromotionStore, bookings BookingStore, gateway payment.Gateway, cancelPolicy policy.CancellationPolicy, publish EventPublisher, returnURL, cancelURL string) *Coordinator {
	if holds == nil || orders == nil || rooms == nil || promos == nil || bookings == nil || gateway == nil {
		panic("nil dependency passed to NewCoordinator")
	}
	return &Coordinator{
		holds:     holds,
		orders:    orders,
		rooms:     rooms,
		promos:    promos,
		bookings:  bookings,
		gateway:   gateway,
		cancel:    cancelPolicy,
		publish:   publish,
		returnURL: returnURL,
		cancelURL: cancelURL,
	}
}

// CreateHoldRequest is the parsed body of POST /v1/bookings/temp.
type CreateHoldRequest struct {
	UserID          *uint64
	RoomID          uint64
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	Services        []model.HoldService
	PromotionCode   string
	StrictPromotion bool
	BuyerName       string
	BuyerEmail      string
	BuyerPhone      string
}

// CreateHoldResult is returned to the client to drive the hosted
// checkout page.
type CreateHoldResult struct {
	HoldKey     string        `json:"hold_key"`
	Quote       pricing.Quote `json:"quote"`
	OrderCode   int64         `json:"order_code"`
	CheckoutURL string        `json:"checkout_url"`
	QRCode      string        `json:"qr_code,omitempty"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// CreateHold validates the request, prices the stay, stores a
// TTL-bound hold and asks the gateway for a checkout link. Holds do
// not block each other: availability is checked against persisted
// bookings only, and the eventual confirm settles any race.
//
// The order code mapping is written before the payment link is
// requested so even an instant webhook can resolve its hold.
func (c *Coordinator) CreateHold(ctx context.Context, req CreateHoldRequest) (*CreateHoldResult, error) {
	checkIn := pricing.DateOnly(req.CheckIn)
	checkOut := pricing.DateOnly(req.CheckOut)
	if !checkOut.After(checkIn) {
		return nil, ErrInvalidDateRange
	}

	room, roomType, err := c.rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if req.Guests < 1 || req.Guests > roomType.MaxPersons {
		return nil, ErrTooManyGuests
	}

	available, err := c.bookings.RoomAvailable(ctx, room.ID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrRoomUnavailable
	}

	serviceLines, holdServices, err := c.resolveServices(ctx, req.Services)
	if err != nil {
		return nil, err
	}

	promo, err := c.resolvePromotion(ctx, req.PromotionCode, req.StrictPromotion)
	if err != nil {
		return nil, err
	}

	periods, err := c.rooms.RatePeriods(ctx, room.RoomTypeID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	quote, err := pricing.ComputeQuote(checkIn, checkOut, periods, serviceLines, promo)
	if err != nil {
		return nil, err
	}

	var userID uint64
	if req.UserID != nil {
		userID = *req.UserID
	}
	holdKey, err := utils.NewHoldKey(userID, room.ID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	orderCode, err := utils.NewOrderCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	hold := &model.Hold{
		HoldKey:       holdKey,
		UserID:        req.UserID,
		RoomID:        room.ID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        req.Guests,
		Services:      holdServices,
		PromotionCode: req.PromotionCode,
		Strict:        req.StrictPromotion,
		TotalCents:    quote.RoomSubtotalCents + quote.ServiceTotalCents,
		FinalCents:    quote.FinalCents,
		OrderCode:     orderCode,
		CreatedAt:     now,
		ExpiresAt:     now.Add(c.holds.TTL()),
	}
	if err := c.holds.Save(ctx, hold); err != nil {
		return nil, err
	}
	if err := c.orders.Map(ctx, orderCode, holdKey, c.holds.TTL()); err != nil {
		_ = c.holds.Delete(ctx, holdKey)
		return nil, err
	}

	link, err := c.gateway.CreateLink(ctx, payment.LinkRequest{
		OrderCode:   orderCode,
		Amount:      quote.FinalCents,
		Description: fmt.Sprintf("Room %s %s-%s", room.Name, checkIn.Format("0102"), checkOut.Format("0102")),
		BuyerName:   req.BuyerName,
		BuyerEmail:  req.BuyerEmail,
		BuyerPhone:  req.BuyerPhone,
		ReturnURL:   c.returnURL,
		CancelURL:   c.cancelURL,
	})
	if err != nil {
		// No link, no checkout: remove the hold so the room is not
		// pointlessly tied to a dead order code.
		_ = c.orders.Delete(ctx, orderCode)
		_ = c.holds.Delete(ctx, holdKey)
		return nil, err
	}

	return &CreateHoldResult{
		HoldKey:     holdKey,
		Quote:       quote,
		OrderCode:   orderCode,
		CheckoutURL: link.CheckoutURL,
		QRCode:      link.QRCode,
		ExpiresAt:   hold.ExpiresAt,
	}, nil
}

// ExtendHold refreshes a hold's TTL while the user is mid-checkout
// and mirrors the new lifetime onto the order code index.
func (c *Coordinator) ExtendHold(ctx context.Context, holdKey string) (*model.Hold, error) {
	hold, err := c.holds.ExtendTTL(ctx, holdKey)
	if err != nil {
		if errors.Is(err, repository.ErrHoldNotFound) {
			return nil, ErrHoldExpired
		}
		return nil, err
	}
	if err := c.orders.Map(ctx, hold.OrderCode, holdKey, c.holds.TTL()); err != nil {
		return nil, err
	}
	return hold, nil
}

// ConfirmResult distinguishes a fresh confirmation from an idempotent
// replay of an order code that already produced a booking.
type ConfirmResult struct {
	Booking   *model.Booking
	Duplicate bool
}

// Confirm converts a verified payment into a durable booking. It is
// safe under duplicate and out-of-order webhook delivery:
//
//   - order code already converted: the existing booking is returned
//     unchanged (idempotent no-op);
//   - hold expired before payment landed: ErrHoldExpired, and if the
//     gateway confirms money was captured the payment is cancelled
//     gateway-side and flagged for manual reconciliation;
//   - another hold won the room: ErrRoomNoLongerAvailable, with the
//     same compensating refund path.
//
// The caller must have verified the webhook signature already; this
// method never trusts an unverified payload.
func (c *Coordinator) Confirm(ctx context.Context, data *payment.WebhookData) (*ConfirmResult, error) {
	holdKey, err := c.orders.Resolve(ctx, data.OrderCode)
	if errors.Is(err, repository.ErrHoldNotFound) {
		return c.confirmMiss(ctx, data.OrderCode)
	}
	if err != nil {
		return nil, err
	}

	hold, err := c.holds.Get(ctx, holdKey)
	if errors.Is(err, repository.ErrHoldNotFound) {
		return c.confirmMiss(ctx, data.OrderCode)
	}
	if err != nil {
		return nil, err
	}

	if data.Amount != hold.FinalCents {
		log.Printf("reservation: amount mismatch on order %d: webhook=%d hold=%d; flagging for manual reconciliation",
			data.OrderCode, data.Amount, hold.FinalCents)
		return nil, ErrAmountMismatch
	}

	ord, err := c.buildConfirmOrder(ctx, hold, data)
	if err != nil {
		return nil, err
	}

	booking, err := c.createWithRetry(ctx, *ord)
	switch {
	case errors.Is(err, repository.ErrDuplicateOrderCode):
		// Another delivery of this webhook won; answer with its booking.
		existing, lookupErr := c.bookings.GetByOrderCode(ctx, data.OrderCode)
		if lookupErr != nil {
			return nil, lookupErr
		}
		c.releaseHold(ctx, holdKey, data.OrderCode)
		return &ConfirmResult{Booking: existing, Duplicate: true}, nil
	case errors.Is(err, repository.ErrRoomOverlap):
		// Race loss: the room went to a concurrent confirm. Terminal
		// for this hold; request a gateway-side refund instead of
		// retrying the booking write.
		c.flagForRefund(ctx, data.OrderCode, "room no longer available")
		c.releaseHold(ctx, holdKey, data.OrderCode)
		return nil, ErrRoomNoLongerAvailable
	case err != nil:
		return nil, err
	}

	c.releaseHold(ctx, holdKey, data.OrderCode)
	if c.publish != nil {
		c.publish(ctx, booking)
	}
	return &ConfirmResult{Booking: booking}, nil
}

// ManualConfirm lets an administrator finalize an order when the
// webhook was lost. The gateway is queried first; only an order it
// reports as PAID can be confirmed.
func (c *Coordinator) ManualConfirm(ctx context.Context, orderCode int64) (*ConfirmResult, error) {
	info, err := c.gateway.GetPaymentStatus(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if info.Status != "PAID" {
		return nil, ErrPaymentNotCompleted
	}
	return c.Confirm(ctx, &payment.WebhookData{
		OrderCode: orderCode,
		Amount:    info.AmountPaid,
		Success:   true,
	})
}

// CancelRequest identifies who is asking for the cancellation.
type CancelRequest struct {
	BookingID uint64
	UserID    *uint64
	IsAdmin   bool
}

// CancelResult reports the refund decided by the policy.
type CancelResult struct {
	Booking     *model.Booking
	RefundCents int64
}

// Cancel voids a booking and computes the refund per the cancellation
// policy. Only pending or confirmed bookings whose check-in has not
// passed can be cancelled; the booking_status guard in the store
// keeps a racing confirm and cancel from both succeeding.
func (c *Coordinator) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	booking, err := c.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !req.IsAdmin {
		if req.UserID == nil || booking.UserID == nil || *booking.UserID != *req.UserID {
			return nil, repository.ErrForbidden
		}
	}
	if booking.BookingStatus != model.BookingStatusPending && booking.BookingStatus != model.BookingStatusConfirmed {
		return nil, policy.ErrCancellationNotAllowed
	}

	now := time.Now().UTC()
	var totalPaid int64
	if booking.PaymentStatus == model.PaymentStatusPaid {
		totalPaid = booking.FinalPrice
	}
	refund, err := c.cancel.RefundAmount(booking.CreatedAt, booking.CheckInDate, now, totalPaid)
	if err != nil {
		return nil, err
	}

	paymentStatus := model.PaymentStatusPending
	if totalPaid > 0 {
		paymentStatus = model.PaymentStatusRefunded
	}
	if err := c.bookings.MarkCancelled(ctx, booking.ID, paymentStatus, refund); err != nil {
		return nil, err
	}
	if totalPaid > 0 && booking.PayosOrderCode != nil {
		// Best effort: a gateway outage must not undo the local
		// cancellation, it only delays the refund.
		if err := c.gateway.CancelPayment(ctx, *booking.PayosOrderCode, "booking cancelled"); err != nil {
			log.Printf("reservation: gateway cancel for order %d failed: %v; refund needs manual follow-up", *booking.PayosOrderCode, err)
		}
	}

	booking, err = c.bookings.GetByID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	return &CancelResult{Booking: booking, RefundCents: refund}, nil
}

// RoomAvailable is the read path behind GET /v1/rooms/:id/availability.
func (c *Coordinator) RoomAvailable(ctx context.Context, roomID uint64, checkIn, checkOut time.Time) (bool, error) {
	in := pricing.DateOnly(checkIn)
	out := pricing.DateOnly(checkOut)
	if !out.After(in) {
		return false, ErrInvalidDateRange
	}
	if _, _, err := c.rooms.GetByID(ctx, roomID); err != nil {
		return false, err
	}
	return c.bookings.RoomAvailable(ctx, roomID, in, out)
}

// confirmMiss handles a webhook whose order code no longer resolves
// to a hold: either a duplicate for a converted order, or an expired
// hold that was paid too late.
func (c *Coordinator) confirmMiss(ctx context.Context, orderCode int64) (*ConfirmResult, error) {
	booking, err := c.bookings.GetByOrderCode(ctx, orderCode)
	if err == nil {
		return &ConfirmResult{Booking: booking, Duplicate: true}, nil
	}
	if !errors.Is(err, repository.ErrBookingNotFound) {
		return nil, err
	}
	// The hold expired before the payment landed. If money actually
	// moved, request a cancel/refund at the gateway rather than
	// silently dropping the payment.
	if info, statusErr := c.gateway.GetPaymentStatus(ctx, orderCode); statusErr == nil && info.Status == "PAID" {
		c.flagForRefund(ctx, orderCode, "hold expired before confirmation")
	}
	return nil, ErrHoldExpired
}

// buildConfirmOrder turns a hold into the parameters of the confirm
// transaction, re-resolving the promotion so the decrement targets a
// live row.
func (c *Coordinator) buildConfirmOrder(ctx context.Context, hold *model.Hold, data *payment.WebhookData) (*repository.ConfirmOrder, error) {
	bookingCode, err := utils.NewBookingCode()
	if err != nil {
		return nil, err
	}
	transactionID := data.Reference
	if transactionID == "" {
		transactionID = utils.NewTransactionID()
	}

	var promotionID *uint64
	if hold.PromotionCode != "" {
		promo, err := c.promos.GetByCode(ctx, hold.PromotionCode)
		if err == nil && pricing.ValidatePromotion(promo, time.Now().UTC()) == nil {
			promotionID = &promo.ID
		} else if hold.Strict {
			return nil, ErrPromotionInvalid
		}
	}

	roomPrice := hold.TotalCents
	services := make([]model.BookingService, 0, len(hold.Services))
	if len(hold.Services) > 0 {
		ids := make([]uint64, 0, len(hold.Services))
		for _, s := range hold.Services {
			ids = append(ids, s.ServiceID)
		}
		known, err := c.rooms.ServicesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, s := range hold.Services {
			// Every quoted line comes out of the room subtotal at its
			// hold-time price, whether or not the service still exists.
			roomPrice -= int64(s.Quantity) * s.PriceCents
			if _, ok := known[s.ServiceID]; !ok {
				// Removed from the catalog mid-checkout: the line was
				// paid for but cannot be attached to the booking.
				log.Printf("reservation: service %d vanished between hold and confirm on order %d", s.ServiceID, data.OrderCode)
				continue
			}
			services = append(services, model.BookingService{
				ServiceID:  s.ServiceID,
				Quantity:   s.Quantity,
				PriceCents: s.PriceCents,
			})
		}
	}

	return &repository.ConfirmOrder{
		BookingCode:     bookingCode,
		UserID:          hold.UserID,
		RoomID:          hold.RoomID,
		RoomPriceCents:  roomPrice,
		CheckIn:         hold.CheckIn,
		CheckOut:        hold.CheckOut,
		NumPersons:      hold.Guests,
		TotalCents:      hold.TotalCents,
		FinalCents:      hold.FinalCents,
		PromotionID:     promotionID,
		StrictPromotion: hold.Strict,
		OrderCode:       data.OrderCode,
		TransactionID:   transactionID,
		Services:        services,
	}, nil
}

// createWithRetry retries the confirm transaction a bounded number of
// times on infrastructure failures. Sentinel outcomes (duplicate,
// overlap, exhausted promotion) are never retried.
func (c *Coordinator) createWithRetry(ctx context.Context, ord repository.ConfirmOrder) (*model.Booking, error) {
	var lastErr error
	for attempt := 0; attempt < confirmRetries; attempt++ {
		booking, err := c.bookings.CreateConfirmed(ctx, ord)
		if err == nil {
			return booking, nil
		}
		if errors.Is(err, repository.ErrDuplicateOrderCode) ||
			errors.Is(err, repository.ErrRoomOverlap) ||
			errors.Is(err, repository.ErrPromotionExhausted) {
			return nil, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("confirm transaction failed after %d attempts: %w", confirmRetries, lastErr)
}

// releaseHold removes the hold and its order code mapping after the
// confirm settled one way or the other.
func (c *Coordinator) releaseHold(ctx context.Context, holdKey string, orderCode int64) {
	_ = c.holds.Delete(ctx, holdKey)
	_ = c.orders.Delete(ctx, orderCode)
}

// flagForRefund requests a gateway-side cancel and leaves a loud log
// line for manual reconciliation. Money is involved, so the failure
// of the cancel itself is also logged rather than swallowed.
func (c *Coordinator) flagForRefund(ctx context.Context, orderCode int64, reason string) {
	log.Printf("reservation: order %d requires refund (%s)", orderCode, reason)
	if err := c.gateway.CancelPayment(ctx, orderCode, reason); err != nil {
		log.Printf("reservation: gateway cancel for order %d failed: %v; manual refund required", orderCode, err)
	}
}

// resolveServices validates the requested add-on services and builds
// both the pricing input and the hold representation.
func (c *Coordinator) resolveServices(ctx context.Context, requested []model.HoldService) ([]pricing.ServiceLine, []model.HoldService, error) {
	if len(requested) == 0 {
		return nil, nil, nil
	}
	ids := make([]uint64, 0, len(requested))
	for _, s := range requested {
		if s.Quantity < 1 {
			return nil, nil, ErrServiceInvalid
		}
		ids = append(ids, s.ServiceID)
	}
	known, err := c.rooms.ServicesByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	lines := make([]pricing.ServiceLine, 0, len(requested))
	holdServices := make([]model.HoldService, 0, len(requested))
	for _, s := range requested {
		svc, ok := known[s.ServiceID]
		if !ok {
			return nil, nil, ErrServiceInvalid
		}
		lines = append(lines, pricing.ServiceLine{Service: svc, Quantity: s.Quantity})
		holdServices = append(holdServices, model.HoldService{
			ServiceID:  s.ServiceID,
			Quantity:   s.Quantity,
			PriceCents: svc.PriceCents,
		})
	}
	return lines, holdServices, nil
}

// resolvePromotion loads and validates a promotion code. In lenient
// mode any failure degrades to nil (no discount); strict mode
// surfaces ErrPromotionInvalid so the client can tell the user.
func (c *Coordinator) resolvePromotion(ctx context.Context, code string, strict bool) (*model.Promotion, error) {
	if code == "" {
		return nil, nil
	}
	promo, err := c.promos.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			if strict {
				return nil, ErrPromotionInvalid
			}
			return nil, nil
		}
		return nil, err
	}
	if err := pricing.ValidatePromotion(promo, time.Now().UTC()); err != nil {
		if strict {
			return nil, fmt.Errorf("%w: %v", ErrPromotionInvalid, err)
		}
		return nil, nil
	}
	return promo, nil
}
