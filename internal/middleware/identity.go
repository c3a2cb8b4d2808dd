package middleware

// identity.go defines how middleware resolves the caller's identity.
// JWTAuth and OptionalJWTAuth store the token subject under the
// "user_id" context key; a *jwt.Token stored under "user" (the
// echo-jwt convention) is honoured as a fallback. Rate-limit keys use
// the result so authenticated traffic is bucketed per account rather
// than per IP.

import (
    "strconv"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated caller's identifier, or
// "anon" when the request carries no usable identity.
func currentUserID(c echo.Context) string {
    if s := claimString(c.Get("user_id")); s != "" {
        return s
    }
    if tok, ok := c.Get("user").(*jwt.Token); ok {
        if cl, ok := tok.Claims.(jwt.MapClaims); ok {
            if s := claimString(cl["sub"]); s != "" {
                return s
            }
            if s := claimString(cl["user_id"]); s != "" {
                return s
            }
        }
    }
    return "anon"
}

// claimString renders a JWT claim value as a string. Numeric subjects
// are common because JSON decodes numbers as float64.
func claimString(v interface{}) string {
    switch t := v.(type) {
    case string:
        return t
    case float64:
        return strconv.FormatFloat(t, 'f', -1, 64)
    case int64:
        return strconv.FormatInt(t, 10)
    case uint64:
        return strconv.FormatUint(t, 10)
    case int:
        return strconv.Itoa(t)
    }
    return ""
}
