package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// Env is shared by every handler: it decides how much of an internal
// error reaches the client and where it is logged.
type Env struct {
	Production bool
	Log        *zerolog.Logger
}

func (e Env) logger() *zerolog.Logger {
	if e.Log == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return e.Log
}

// ok writes {success: true, data}.
func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// okMsg writes {success: true, message[, data]}.
func okMsg(c echo.Context, status int, msg string, data any) error {
	body := echo.Map{"success": true, "message": msg}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(status, body)
}

// fail writes {success: false, message}.
func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// failFields writes a 400 with per-field validation errors.
func failFields(c echo.Context, fields map[string]string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"success": false,
		"message": "validation failed",
		"errors":  fields,
	})
}

// internal logs err and writes a 500.  Outside production the error text
// is returned to help debugging.
func (e Env) internal(c echo.Context, err error) error {
	e.logger().Error().Err(err).
		Str("method", c.Request().Method).
		Str("route", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("request failed")
	msg := "internal server error"
	if !e.Production && err != nil {
		msg = err.Error()
	}
	return fail(c, http.StatusInternalServerError, msg)
}

// respond maps a service or repository error to the status taxonomy:
// 400 validation, 403 forbidden, 404 not found, 409 conflict, 503
// unavailable, 500 other.
func (e Env) respond(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return failFields(c, ve.Fields)
	case errors.Is(err, service.ErrTotalMismatch):
		return fail(c, http.StatusBadRequest, "total does not match cart")
	case errors.Is(err, service.ErrNotPaid):
		return fail(c, http.StatusBadRequest, "payment not completed")
	case errors.Is(err, repository.ErrForbidden):
		return fail(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, payment.ErrNotFound):
		return fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrEmailExists):
		return fail(c, http.StatusConflict, "email already exists")
	case errors.Is(err, repository.ErrDuplicate):
		return fail(c, http.StatusConflict, "already exists")
	case errors.Is(err, repository.ErrInsufficientCapacity):
		return fail(c, http.StatusConflict, "insufficient capacity")
	case errors.Is(err, repository.ErrConflict), errors.Is(err, service.ErrInvalidTransition):
		return fail(c, http.StatusConflict, "conflict")
	case errors.Is(err, payment.ErrUnconfigured):
		return fail(c, http.StatusServiceUnavailable, "payments are not available")
	case errors.Is(err, context.DeadlineExceeded):
		return fail(c, http.StatusServiceUnavailable, "request timed out")
	}
	return e.internal(c, err)
}

// bind decodes and validates the request body into req.  On failure it
// has already written the 400 response and returns false.
func bind(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return false, failFields(c, fieldErrors(verrs))
		}
		return false, fail(c, http.StatusBadRequest, err.Error())
	}
	return true, nil
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator reports field errors under their json names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		out[ns] = rule
	}
	return out
}

// HTTPErrorHandler shapes errors that escape a handler, such as unknown
// routes or middleware failures, into the response envelope.
func HTTPErrorHandler(production bool, log *zerolog.Logger) echo.HTTPErrorHandler {
	env := Env{Production: production, Log: log}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
			if he.Code >= http.StatusInternalServerError {
				_ = env.internal(c, err)
				return
			}
			_ = fail(c, he.Code, strings.ToLower(msg))
			return
		}
		_ = env.respond(c, err)
	}
}
