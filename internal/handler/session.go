package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// SessionHandler serves the class schedule.
type SessionHandler struct {
	Env
	Sessions *repository.SessionRepo
}

func NewSessionHandler(env Env, r *repository.SessionRepo) *SessionHandler {
	return &SessionHandler{Env: env, Sessions: r}
}

type sessionReq struct {
	Instructor  string `json:"instructor" validate:"required,max=120"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `json:"end_time" validate:"required,datetime=15:04"`
	TotalSeats  int    `json:"total_seats" validate:"required,gt=0,lte=1000"`
	Price       int64  `json:"price" validate:"gte=0"`
	SessionType string `json:"session_type" validate:"omitempty,oneof=regular corporate private"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

func (r sessionReq) model() model.YogaSession {
	t := r.SessionType
	if t == "" {
		t = model.SessionRegular
	}
	return model.YogaSession{
		Instructor:  strings.TrimSpace(r.Instructor),
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		TotalSeats:  r.TotalSeats,
		Price:       r.Price,
		SessionType: t,
		Description: strings.TrimSpace(r.Description),
	}
}

func (r sessionReq) endsAfterStart() bool {
	// HH:MM strings compare correctly as text.
	return r.EndTime > r.StartTime
}

// List returns sessions, optionally filtered by ?type= and ?from=.
func (h *SessionHandler) List(c echo.Context) error {
	f := repository.SessionFilter{Type: c.QueryParam("type"), FromDate: c.QueryParam("from")}
	if f.Type != "" && !model.ValidSessionType(f.Type) {
		return failFields(c, map[string]string{"type": "oneof=regular corporate private"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Sessions.List(ctx, f)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

// Get returns one session.
func (h *SessionHandler) Get(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid session id")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, s)
}

// Create adds a session with no seats booked.
func (h *SessionHandler) Create(c echo.Context) error {
	var req sessionReq
	if okay, err := bind(c, &req); !okay {
		return err
	}
	if !req.endsAfterStart() {
		return failFields(c, map[string]string{"end_time": "gtfield=start_time"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	s := req.model()
	if err := h.Sessions.Create(ctx, &s); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusCreated, "session created", s)
}

// Update replaces a session.  Capacity below the booked seats is a 409.
func (h *SessionHandler) Update(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid session id")
	}
	var req sessionReq
	if okay, err := bind(c, &req); !okay {
		return err
	}
	if !req.endsAfterStart() {
		return failFields(c, map[string]string{"end_time": "gtfield=start_time"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	s := req.model()
	s.ID = id
	if err := h.Sessions.Update(ctx, &s); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "session updated", s)
}

// Delete removes a session that has no bookings.
func (h *SessionHandler) Delete(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid session id")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Sessions.Delete(ctx, id); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "session deleted", nil)
}
