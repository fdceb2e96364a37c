package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// BookingHandler serves session bookings for users and administrators.
type BookingHandler struct {
	Env
	Svc      *service.BookingService
	Bookings *repository.BookingRepo
}

func NewBookingHandler(env Env, svc *service.BookingService) *BookingHandler {
	return &BookingHandler{Env: env, Svc: svc, Bookings: svc.Bookings}
}

type createBookingReq struct {
	SessionID uint64 `json:"session_id" validate:"required"`
	Seats     int    `json:"seats" validate:"required,gt=0,lte=50"`
	Phone     string `json:"phone" validate:"required,max=32"`
	Comment   string `json:"comment" validate:"omitempty,max=1000"`
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

// Create books seats on a session for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Svc.CreateBooking(ctx, middleware.PrincipalID(c), service.CreateBookingInput{
		SessionID: req.SessionID,
		Seats:     req.Seats,
		Phone:     strings.TrimSpace(req.Phone),
		Comment:   strings.TrimSpace(req.Comment),
	})
	if err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusCreated, "booking created", b)
}

// ListMine returns the caller's bookings, newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Bookings.ListByUser(ctx, middleware.PrincipalID(c))
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

// CancelMine cancels one of the caller's bookings.
func (h *BookingHandler) CancelMine(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Svc.CancelBooking(ctx, middleware.PrincipalID(c), id)
	if err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "booking cancelled", b)
}

// sessionFilter reads ?sessionId= (or ?session_id=); zero means all.
func sessionFilter(c echo.Context) (uint64, bool) {
	raw := c.QueryParam("sessionId")
	if raw == "" {
		raw = c.QueryParam("session_id")
	}
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil
}

// AdminList returns every booking with its user and session snapshot.
func (h *BookingHandler) AdminList(c echo.Context) error {
	sessionID, valid := sessionFilter(c)
	if !valid {
		return failFields(c, map[string]string{"sessionId": "numeric"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Bookings.ListDetailed(ctx, sessionID)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

// AdminUpdateStatus moves a booking to another status.
func (h *BookingHandler) AdminUpdateStatus(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	var req statusReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Svc.UpdateStatus(ctx, id, strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "booking updated", b)
}

// AdminExport streams the booking list as an xlsx workbook.
func (h *BookingHandler) AdminExport(c echo.Context) error {
	sessionID, valid := sessionFilter(c)
	if !valid {
		return failFields(c, map[string]string{"sessionId": "numeric"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Bookings.ListDetailed(ctx, sessionID)
	if err != nil {
		return h.respond(c, err)
	}
	f, err := bookingsWorkbook(list, h.Svc.Currency)
	if err != nil {
		return h.internal(c, err)
	}
	defer f.Close()

	name := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	c.Response().Header().Set(echo.HeaderContentType, xlsxMIME)
	c.Response().WriteHeader(http.StatusOK)
	if _, err := f.WriteTo(c.Response()); err != nil {
		h.logger().Error().Err(err).Msg("write bookings export")
	}
	return nil
}
