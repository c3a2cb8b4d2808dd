package handler // handler defines http handlers

import (
	"errors"  // errors provides sentinel values used in getUserID
	"strconv" // strconv converts strings to numeric types
	"time"    // time parses date-only request fields

	"github.com/labstack/echo/v4" // echo defines request context types
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// optionalUserID returns the authenticated user as a pointer, or nil
// for guest requests. The checkout route is public, so a missing
// identity is not an error there.
func optionalUserID(c echo.Context) *uint64 {
	if id, err := getUserID(c); err == nil && id != 0 {
		return &id
	}
	return nil
}

// isAdmin reports whether the JWT role claim marks the caller as an
// administrator.
func isAdmin(c echo.Context) bool {
	role, ok := c.Get("role").(string)
	return ok && role == "ADMIN"
}

// parseDate parses a date-only request field (YYYY-MM-DD) in UTC.
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
