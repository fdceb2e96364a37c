package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/service"
)

// PaymentHandler opens hosted checkouts and reconciles them into orders.
type PaymentHandler struct {
	Env
	Svc *service.OrderService
}

func NewPaymentHandler(env Env, svc *service.OrderService) *PaymentHandler {
	return &PaymentHandler{Env: env, Svc: svc}
}

type checkoutReq struct {
	Items []service.LineItem `json:"items" validate:"required,min=1,max=100"`
	Total int64              `json:"total" validate:"gte=0"`
	Token string             `json:"token" validate:"omitempty,max=128"`
}

type verifyReq struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
}

// CreateCheckout returns the provider session id and redirect URL.
func (h *PaymentHandler) CreateCheckout(c echo.Context) error {
	var req checkoutReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Svc.CreateCheckout(ctx, middleware.PrincipalID(c), service.CheckoutInput{
		Items: req.Items,
		Total: req.Total,
		Token: strings.TrimSpace(req.Token),
	})
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, res)
}

// VerifyCheckout records the order for a paid session.  Repeating the
// call returns the same order with 200; the first call answers 201.
func (h *PaymentHandler) VerifyCheckout(c echo.Context) error {
	var req verifyReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	o, replayed, err := h.Svc.VerifyCheckout(ctx, middleware.PrincipalID(c), req.SessionID)
	if err != nil {
		return h.respond(c, err)
	}
	if replayed {
		return okMsg(c, http.StatusOK, "order already recorded", o)
	}
	return okMsg(c, http.StatusCreated, "payment verified", o)
}
