package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// SlotHandler serves the admin-curated slots for private and corporate
// sessions.
type SlotHandler struct {
	Env
	Slots *repository.SlotRepo
}

func NewSlotHandler(env Env, r *repository.SlotRepo) *SlotHandler {
	return &SlotHandler{Env: env, Slots: r}
}

type slotReq struct {
	SessionType string `json:"session_type" validate:"required,oneof=regular corporate private"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"required,datetime=15:04"`
	IsBooked    bool   `json:"is_booked"`
}

// List returns slots filtered by ?session_type=, ?date= and ?free=true.
func (h *SlotHandler) List(c echo.Context) error {
	f := repository.SlotFilter{
		SessionType: c.QueryParam("session_type"),
		Date:        c.QueryParam("date"),
	}
	if raw := c.QueryParam("free"); raw != "" {
		free, err := strconv.ParseBool(raw)
		if err != nil {
			return failFields(c, map[string]string{"free": "boolean"})
		}
		f.OnlyFree = free
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Slots.List(ctx, f)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

// Create adds a slot.  A second slot with the same type, date and time is
// a 409.
func (h *SlotHandler) Create(c echo.Context) error {
	var req slotReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	s := model.AvailableSlot{SessionType: req.SessionType, Date: req.Date, Time: req.Time, IsBooked: req.IsBooked}
	if err := h.Slots.Create(ctx, &s); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusCreated, "slot created", s)
}

func (h *SlotHandler) Update(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid slot id")
	}
	var req slotReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	s, err := h.Slots.GetByID(ctx, id)
	if err != nil {
		return h.respond(c, err)
	}
	s.SessionType, s.Date, s.Time, s.IsBooked = req.SessionType, req.Date, req.Time, req.IsBooked
	if err := h.Slots.Update(ctx, &s); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "slot updated", s)
}

func (h *SlotHandler) Delete(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid slot id")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Slots.Delete(ctx, id); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "slot deleted", nil)
}
