package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// ProductHandler serves the shop catalog.
type ProductHandler struct {
	Env
	Products *repository.ProductRepo
}

func NewProductHandler(env Env, r *repository.ProductRepo) *ProductHandler {
	return &ProductHandler{Env: env, Products: r}
}

type productReq struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Price       int64    `json:"price" validate:"gte=0"`
	Images      []string `json:"images" validate:"omitempty,max=20,dive,url"`
}

type productPatch struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Price       *int64    `json:"price" validate:"omitempty,gte=0"`
	Images      *[]string `json:"images" validate:"omitempty,max=20,dive,url"`
}

func (h *ProductHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Products.List(ctx)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid product id")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, p)
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req productReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	p := model.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Images:      req.Images,
	}
	if err := h.Products.Create(ctx, &p); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusCreated, "product created", p)
}

// Update applies the fields present in the body.
func (h *ProductHandler) Update(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid product id")
	}
	var req productPatch
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		return h.respond(c, err)
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Images != nil {
		p.Images = *req.Images
	}
	if err := h.Products.Update(ctx, &p); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "product updated", p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid product id")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Products.Delete(ctx, id); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "product deleted", nil)
}
