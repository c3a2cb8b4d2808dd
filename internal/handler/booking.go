package handler

import (
	"errors"   // errors.Is comparisons against sentinel values
	"io"       // raw webhook body reading
	"net/http" // HTTP status codes
	"strconv"  // parsing path parameters
	"time"     // timestamps for check-in/check-out

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/payment"
	"github.com/iliyamo/hotel-room-booking/internal/policy"
	"github.com/iliyamo/hotel-room-booking/internal/pricing"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// BookingHandler exposes the reservation pipeline over HTTP. The
// heavy lifting lives in the coordinator; the handler only parses,
// authorizes and translates sentinel errors into status codes.
type BookingHandler struct {
	Coordinator *service.Coordinator    // orchestrates holds, confirms and cancellations
	Gateway     payment.Gateway         // verifies webhook signatures before any processing
	BookingRepo *repository.BookingRepo // read paths (listing, lookup by code)
}

// NewBookingHandler constructs a BookingHandler. All dependencies
// must be non-nil.
func NewBookingHandler(coordinator *service.Coordinator, gateway payment.Gateway, bookingRepo *repository.BookingRepo) *BookingHandler {
	if coordinator == nil || gateway == nil || bookingRepo == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Coordinator: coordinator, Gateway: gateway, BookingRepo: bookingRepo}
}

// CreateTempBooking handles POST /v1/bookings/temp. It prices the
// requested stay, stores a 30-minute hold and returns the hosted
// checkout link. The route is public: guests can start a checkout,
// and an authenticated user is attached when the JWT middleware ran.
func (h *BookingHandler) CreateTempBooking(c echo.Context) error {
	var body struct {
		RoomID        uint64 `json:"room_id"`
		CheckIn       string `json:"check_in"`
		CheckOut      string `json:"check_out"`
		Guests        int    `json:"guests"`
		Services      []struct {
			ServiceID uint64 `json:"service_id"`
			Quantity  int    `json:"quantity"`
		} `json:"services"`
		PromotionCode   string `json:"promotion_code"`
		StrictPromotion bool   `json:"strict_promotion"`
		BuyerName       string `json:"buyer_name"`
		BuyerEmail      string `json:"buyer_email"`
		BuyerPhone      string `json:"buyer_phone"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.RoomID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_id is required"})
	}
	checkIn, err := parseDate(body.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must be YYYY-MM-DD"})
	}
	checkOut, err := parseDate(body.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be YYYY-MM-DD"})
	}
	services := make([]model.HoldService, 0, len(body.Services))
	for _, s := range body.Services {
		services = append(services, model.HoldService{ServiceID: s.ServiceID, Quantity: s.Quantity})
	}

	result, err := h.Coordinator.CreateHold(c.Request().Context(), service.CreateHoldRequest{
		UserID:          optionalUserID(c),
		RoomID:          body.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          body.Guests,
		Services:        services,
		PromotionCode:   body.PromotionCode,
		StrictPromotion: body.StrictPromotion,
		BuyerName:       body.BuyerName,
		BuyerEmail:      body.BuyerEmail,
		BuyerPhone:      body.BuyerPhone,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDateRange), errors.Is(err, pricing.ErrInvalidDateRange):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be after check_in"})
		case errors.Is(err, repository.ErrRoomNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		case errors.Is(err, service.ErrTooManyGuests):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest count exceeds room capacity"})
		case errors.Is(err, service.ErrRoomUnavailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "room unavailable for the requested dates"})
		case errors.Is(err, service.ErrServiceInvalid):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown or inactive service requested"})
		case errors.Is(err, service.ErrPromotionInvalid):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "promotion code is not valid"})
		case errors.Is(err, pricing.ErrNoRateCoverage):
			return c.JSON(http.StatusConflict, echo.Map{"error": "no pricing configured for part of the stay"})
		case errors.Is(err, payment.ErrGatewayUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment gateway unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create hold"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"hold_key":     result.HoldKey,
		"quote":        result.Quote,
		"total":        result.Quote.FinalCents,
		"order_code":   result.OrderCode,
		"checkout_url": result.CheckoutURL,
		"qr_code":      result.QRCode,
		"expires_at":   result.ExpiresAt.Format(time.RFC3339),
	})
}

// ExtendHold handles POST /v1/bookings/temp/:key/extend. It resets
// the hold's expiry window for users who need more time mid-checkout.
func (h *BookingHandler) ExtendHold(c echo.Context) error {
	holdKey := c.Param("key")
	if holdKey == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold key is required"})
	}
	hold, err := h.Coordinator.ExtendHold(c.Request().Context(), holdKey)
	if err != nil {
		if errors.Is(err, service.ErrHoldExpired) {
			return c.JSON(http.StatusGone, echo.Map{"error": "hold expired; restart checkout"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to extend hold"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hold_key":   hold.HoldKey,
		"expires_at": hold.ExpiresAt.Format(time.RFC3339),
	})
}

// PaymentWebhook handles POST /v1/bookings/payment/webhook. The
// payload is cryptographically verified before anything else; a bad
// signature is rejected with no side effects. Verified deliveries
// always answer 200, including idempotent duplicates and terminal
// outcomes such as an expired hold, so the gateway does not keep
// retrying events we have already settled. Infrastructure failures
// return 500 and the gateway may retry safely: the unique order code
// constraint makes the confirm idempotent.
func (h *BookingHandler) PaymentWebhook(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	data, err := h.Gateway.VerifyWebhook(raw)
	if err != nil {
		if errors.Is(err, payment.ErrSignatureInvalid) {
			c.Logger().Warnf("webhook: signature verification failed from %s", c.RealIP())
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
		}
		if errors.Is(err, payment.ErrGatewayUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment gateway unavailable"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed payload"})
	}
	if !data.Success {
		// Cancellation / failure notification: nothing to materialize.
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}

	result, err := h.Coordinator.Confirm(c.Request().Context(), data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrHoldExpired):
			return c.JSON(http.StatusOK, echo.Map{"status": "hold_expired"})
		case errors.Is(err, service.ErrRoomNoLongerAvailable):
			return c.JSON(http.StatusOK, echo.Map{"status": "room_no_longer_available"})
		case errors.Is(err, service.ErrAmountMismatch):
			return c.JSON(http.StatusOK, echo.Map{"status": "amount_mismatch"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation failed"})
	}
	status := "confirmed"
	if result.Duplicate {
		status = "already_confirmed"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":       status,
		"booking_id":   result.Booking.ID,
		"booking_code": result.Booking.BookingCode,
	})
}

// ConfirmManual handles POST /v1/bookings/orders/:orderCode/confirm-manual.
// Administrators use it to finalize an order whose webhook was lost;
// the gateway is queried and only a PAID order is accepted.
func (h *BookingHandler) ConfirmManual(c echo.Context) error {
	orderCode, err := strconv.ParseInt(c.Param("orderCode"), 10, 64)
	if err != nil || orderCode <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order code"})
	}
	result, err := h.Coordinator.ManualConfirm(c.Request().Context(), orderCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotCompleted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "gateway does not report this order as paid"})
		case errors.Is(err, service.ErrHoldExpired):
			return c.JSON(http.StatusGone, echo.Map{"error": "hold expired before confirmation"})
		case errors.Is(err, service.ErrRoomNoLongerAvailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "room was booked by a concurrent confirmation"})
		case errors.Is(err, payment.ErrGatewayUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment gateway unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation failed"})
	}
	status := "confirmed"
	if result.Duplicate {
		status = "already_confirmed"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":       status,
		"booking_id":   result.Booking.ID,
		"booking_code": result.Booking.BookingCode,
	})
}

// Cancel handles POST /v1/bookings/:id/cancel. Owners may cancel
// their own bookings; administrators may cancel any. The refund is
// decided by the cancellation policy and reported back for display.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	result, err := h.Coordinator.Cancel(c.Request().Context(), service.CancelRequest{
		BookingID: bookingID,
		UserID:    &userID,
		IsAdmin:   isAdmin(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, policy.ErrCancellationNotAllowed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "cancellation no longer permitted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancellation failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":     result.Booking.ID,
		"booking_status": result.Booking.BookingStatus,
		"payment_status": result.Booking.PaymentStatus,
		"refund_cents":   result.RefundCents,
	})
}

// MyBookings handles GET /v1/bookings/my-bookings. It returns all
// bookings of the current user with their rooms, newest first.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.BookingRepo.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// GetByCode handles GET /v1/bookings/code/:code. The code is the
// short human-shareable reference printed on confirmations. Only the
// booking's owner or an administrator may read it.
func (h *BookingHandler) GetByCode(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking code is required"})
	}
	booking, err := h.BookingRepo.GetByCode(c.Request().Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	if !isAdmin(c) && (booking.UserID == nil || *booking.UserID != userID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": booking})
}

// CheckIn handles POST /v1/bookings/:id/check-in (admin only). It
// stamps the front-desk arrival time on a confirmed booking.
func (h *BookingHandler) CheckIn(c echo.Context) error {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.BookingRepo.SetCheckInTime(c.Request().Context(), bookingID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking cannot check in"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "checked_in"})
}

// CheckOut handles POST /v1/bookings/:id/check-out (admin only). It
// stamps departure and completes the booking.
func (h *BookingHandler) CheckOut(c echo.Context) error {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.BookingRepo.SetCheckOutTime(c.Request().Context(), bookingID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking cannot check out"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-out failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "checked_out"})
}
