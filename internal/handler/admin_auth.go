package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// AdminKeyHeader carries the registration key for /admin/register.
const AdminKeyHeader = "X-Admin-Key"

// AdminAuthHandler serves administrator registration and login.
type AdminAuthHandler struct {
	Env
	Cfg    config.Config
	Admins *repository.AdminRepo
}

func NewAdminAuthHandler(env Env, cfg config.Config, a *repository.AdminRepo) *AdminAuthHandler {
	return &AdminAuthHandler{Env: env, Cfg: cfg, Admins: a}
}

type adminRegisterReq struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Register creates an administrator.  When ADMIN_REGISTRATION_KEY is set
// the request must carry it in X-Admin-Key.
func (h *AdminAuthHandler) Register(c echo.Context) error {
	if key := h.Cfg.AdminSignupKey; key != "" {
		got := c.Request().Header.Get(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return fail(c, http.StatusForbidden, "invalid admin registration key")
		}
	}

	var req adminRegisterReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return h.internal(c, err)
	}
	a := model.Admin{Name: strings.TrimSpace(req.Name), Email: req.Email, PasswordHash: hash}
	if err := h.Admins.Create(ctx, &a); err != nil {
		return h.respond(c, err)
	}
	h.logger().Info().Uint64("admin_id", a.ID).Str("email", a.Email).Msg("administrator registered")
	return okMsg(c, http.StatusCreated, "administrator registered", a)
}

// Login checks an administrator's password and opens a session.
func (h *AdminAuthHandler) Login(c echo.Context) error {
	var req loginReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Admins.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return h.internal(c, err)
	}
	if !utils.VerifyPassword(a.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	if err := issueSession(c, h.Cfg, a.ID, model.RoleAdmin, a); err != nil {
		return h.internal(c, err)
	}
	return nil
}
