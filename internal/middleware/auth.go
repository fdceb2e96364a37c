package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// CookieName is the one cookie that carries the access token for both
// users and administrators.
const CookieName = "token"

// Context keys set by Authenticate.
const (
	CtxUserID = "user_id" // uint64 principal id
	CtxRole   = "role"    // model.RoleUser or model.RoleAdmin
)

// PrincipalResolver confirms that the principal named in a verified token
// still exists and may sign in.  It returns ok=false for deleted or
// deactivated principals.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, id uint64, role string) (ok bool, err error)
}

// RepoResolver resolves principals against the users and admins tables.
type RepoResolver struct {
	Users  *repository.UserRepo
	Admins *repository.AdminRepo
}

// ResolvePrincipal implements PrincipalResolver.
func (r RepoResolver) ResolvePrincipal(ctx context.Context, id uint64, role string) (bool, error) {
	var err error
	switch role {
	case model.RoleAdmin:
		_, err = r.Admins.GetByID(ctx, id)
	case model.RoleUser:
		var u model.User
		u, err = r.Users.GetByID(ctx, id)
		if err == nil && !u.IsActive {
			return false, nil
		}
	default:
		return false, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// tokenFrom extracts the raw access token from the Authorization header
// or, failing that, from the session cookie.
func tokenFrom(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := c.Cookie(CookieName); err == nil {
		return ck.Value
	}
	return ""
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// Authenticate returns an Echo middleware that verifies the access token
// and injects the principal id and role into the request context under
// CtxUserID and CtxRole.  Missing, invalid or expired tokens, as well as
// tokens for principals that no longer exist, are rejected with 401.
func Authenticate(secret string, resolver PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c)
			if raw == "" {
				return fail(c, http.StatusUnauthorized, "authentication required")
			}
			id, role, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return fail(c, http.StatusUnauthorized, "invalid or expired token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			ok, err := resolver.ResolvePrincipal(ctx, id, role)
			if err != nil {
				c.Logger().Errorf("auth: resolve principal %d/%s: %v", id, role, err)
				return fail(c, http.StatusInternalServerError, "internal server error")
			}
			if !ok {
				return fail(c, http.StatusUnauthorized, "account not found")
			}

			c.Set(CtxUserID, id)
			c.Set(CtxRole, role)
			return next(c)
		}
	}
}

// RequireRole returns a middleware function that enforces that the
// authenticated principal has one of the specified roles.  It assumes
// Authenticate already ran; a request without a role is treated as
// unauthenticated (401) and a request with another role as forbidden (403).
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || role == "" {
				return fail(c, http.StatusUnauthorized, "authentication required")
			}
			if !allowed[role] {
				return fail(c, http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// RequireUser is Authenticate followed by RequireRole(user).
func RequireUser(secret string, resolver PrincipalResolver) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{Authenticate(secret, resolver), RequireRole(model.RoleUser)}
}

// RequireAdmin is Authenticate followed by RequireRole(admin).
func RequireAdmin(secret string, resolver PrincipalResolver) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{Authenticate(secret, resolver), RequireRole(model.RoleAdmin)}
}
