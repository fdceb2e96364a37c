package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// AdminUserHandler lets administrators manage customer accounts.  Users
// are deactivated, never deleted, so their bookings and orders keep
// pointing at a row.
type AdminUserHandler struct {
	Env
	Users *repository.UserRepo
}

func NewAdminUserHandler(env Env, r *repository.UserRepo) *AdminUserHandler {
	return &AdminUserHandler{Env: env, Users: r}
}

type placeholderReq struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Address string `json:"address" validate:"omitempty,max=500"`
}

type adminUserPatch struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
	IsActive *bool   `json:"is_active"`
}

func (h *AdminUserHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Users.List(ctx)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

// Create adds a placeholder account (registered=false).  The customer
// claims it later by registering with the same email.
func (h *AdminUserHandler) Create(c echo.Context) error {
	var req placeholderReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u := model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Role:     model.RoleUser,
		Phone:    strings.TrimSpace(req.Phone),
		Address:  strings.TrimSpace(req.Address),
		IsActive: true,
	}
	if err := h.Users.Create(ctx, &u); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusCreated, "user created", u)
}

func (h *AdminUserHandler) Update(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	var req adminUserPatch
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.respond(c, err)
	}
	if req.Name != nil || req.Phone != nil || req.Address != nil {
		if req.Name != nil {
			u.Name = strings.TrimSpace(*req.Name)
		}
		if req.Phone != nil {
			u.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Address != nil {
			u.Address = strings.TrimSpace(*req.Address)
		}
		if err := h.Users.UpdateProfile(ctx, id, u.Name, u.Phone, u.Address); err != nil {
			return h.respond(c, err)
		}
	}
	if req.IsActive != nil && *req.IsActive != u.IsActive {
		if err := h.Users.SetActive(ctx, id, *req.IsActive); err != nil {
			return h.respond(c, err)
		}
		u.IsActive = *req.IsActive
	}
	return okMsg(c, http.StatusOK, "user updated", u)
}

// Delete deactivates the account.
func (h *AdminUserHandler) Delete(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Users.SetActive(ctx, id, false); err != nil {
		return h.respond(c, err)
	}
	h.logger().Info().Uint64("user_id", id).Msg("user deactivated")
	return okMsg(c, http.StatusOK, "user deactivated", nil)
}
