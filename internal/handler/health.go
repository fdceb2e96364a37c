package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the service and its backing stores are
// reachable.  It is used by load balancers and monitoring systems.
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client // optional
}

// Health returns 200 when the database answers a ping and 503 otherwise.
// Redis is reported but never fails the check; the service degrades
// without it.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{"database": "ok"}
	status := http.StatusOK
	if h.DB == nil || h.DB.PingContext(ctx) != nil {
		checks["database"] = "down"
		status = http.StatusServiceUnavailable
	}
	switch {
	case h.Redis == nil:
		checks["redis"] = "disabled"
	case h.Redis.Ping(ctx).Err() != nil:
		checks["redis"] = "down"
	default:
		checks["redis"] = "ok"
	}
	return c.JSON(status, echo.Map{"success": status == http.StatusOK, "data": checks})
}
