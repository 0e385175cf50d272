package middleware

// identity.go exposes the values TokenAuth stores in the Echo context.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// TokenHash returns the hash of the bearer token used for this request.
func TokenHash(c echo.Context) string {
	h, _ := c.Get(CtxTokenHash).(string)
	return h
}

// currentUserID renders the caller for rate limit keys; "anon" before
// authentication.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
