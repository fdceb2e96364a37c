package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// PrincipalID returns the id stored by Authenticate, or 0 when the
// request is anonymous.
func PrincipalID(c echo.Context) uint64 {
	switch t := c.Get(CtxUserID).(type) {
	case uint64:
		return t
	case int64:
		if t > 0 {
			return uint64(t)
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// PrincipalRole returns the role stored by Authenticate or "".
func PrincipalRole(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// currentUserID identifies the caller for rate limit keys.
func currentUserID(c echo.Context) string {
	if id := PrincipalID(c); id > 0 {
		return PrincipalRole(c) + "-" + strconv.FormatUint(id, 10)
	}
	return "anon"
}
