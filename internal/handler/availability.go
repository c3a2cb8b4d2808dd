package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// AvailabilityHandler answers read-only room availability queries.
// The route sits behind the response cache middleware, so hot date
// ranges are served from Redis.
type AvailabilityHandler struct {
	Coordinator *service.Coordinator
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(coordinator *service.Coordinator) *AvailabilityHandler {
	if coordinator == nil {
		panic("nil coordinator passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Coordinator: coordinator}
}

// RoomAvailability handles GET /v1/rooms/:id/availability. It reports
// whether the room is free of occupying bookings for the half-open
// range [check_in, check_out). Unexpired holds deliberately do not
// count: a hold never blocks a query, only a persisted booking does.
func (h *AvailabilityHandler) RoomAvailability(c echo.Context) error {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || roomID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	checkIn, err := parseDate(c.QueryParam("check_in"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must be YYYY-MM-DD"})
	}
	checkOut, err := parseDate(c.QueryParam("check_out"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be YYYY-MM-DD"})
	}
	available, err := h.Coordinator.RoomAvailable(c.Request().Context(), roomID, checkIn, checkOut)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDateRange):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be after check_in"})
		case errors.Is(err, repository.ErrRoomNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":   roomID,
		"check_in":  c.QueryParam("check_in"),
		"check_out": c.QueryParam("check_out"),
		"available": available,
	})
}
