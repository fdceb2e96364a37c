package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// OrderHandler serves shop orders.
type OrderHandler struct {
	Env
	Svc    *service.OrderService
	Orders *repository.OrderRepo
}

func NewOrderHandler(env Env, svc *service.OrderService) *OrderHandler {
	return &OrderHandler{Env: env, Svc: svc, Orders: svc.Orders}
}

type cartReq struct {
	Items []service.LineItem `json:"items" validate:"required,min=1,max=100"`
}

type instantReq struct {
	ProductID uint64 `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,gt=0,lte=100"`
}

// Create stores a pending order for the caller's cart.
func (h *OrderHandler) Create(c echo.Context) error {
	var req cartReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	o, err := h.Svc.CreateOrder(ctx, middleware.PrincipalID(c), req.Items)
	if err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusCreated, "order created", o)
}

// CreateInstant orders a single product.
func (h *OrderHandler) CreateInstant(c echo.Context) error {
	var req instantReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	o, err := h.Svc.CreateInstantOrder(ctx, middleware.PrincipalID(c), req.ProductID, req.Quantity)
	if err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusCreated, "order created", o)
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Orders.ListByUser(ctx, middleware.PrincipalID(c))
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

func (h *OrderHandler) AdminList(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Orders.ListAll(ctx)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

func (h *OrderHandler) AdminUpdateStatus(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid order id")
	}
	var req statusReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	o, err := h.Svc.UpdateStatus(ctx, id, strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "order updated", o)
}
