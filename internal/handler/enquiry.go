package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// EnquiryHandler captures contact-form leads for private and corporate
// sessions.
type EnquiryHandler struct {
	Env
	Enquiries *repository.EnquiryRepo
}

func NewEnquiryHandler(env Env, r *repository.EnquiryRepo) *EnquiryHandler {
	return &EnquiryHandler{Env: env, Enquiries: r}
}

type enquiryReq struct {
	Name        string `json:"name" validate:"required,max=120"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	SessionType string `json:"session_type" validate:"required,oneof=regular corporate private"`
	Message     string `json:"message" validate:"omitempty,max=5000"`
}

// Create stores an enquiry in pending status.
func (h *EnquiryHandler) Create(c echo.Context) error {
	var req enquiryReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	e := model.SessionEnquiry{
		Name:        strings.TrimSpace(req.Name),
		Email:       repository.NormalizeEmail(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		SessionType: req.SessionType,
		Message:     strings.TrimSpace(req.Message),
		Status:      model.EnquiryPending,
	}
	if err := h.Enquiries.Create(ctx, &e); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusCreated, "enquiry received", e)
}

// AdminList returns enquiries, optionally only ?status=.
func (h *EnquiryHandler) AdminList(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && !model.ValidEnquiryStatus(status) {
		return failFields(c, map[string]string{"status": "oneof=pending contacted completed"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Enquiries.List(ctx, status)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

func (h *EnquiryHandler) AdminUpdateStatus(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid enquiry id")
	}
	var req struct {
		Status string `json:"status" validate:"required,oneof=pending contacted completed"`
	}
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Enquiries.UpdateStatus(ctx, id, req.Status); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "enquiry updated", echo.Map{"id": id, "status": req.Status})
}
