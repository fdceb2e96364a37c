// Package service holds the business flows that span several
// repositories: the booking capacity ledger and order/payment
// reconciliation.  Handlers translate the errors returned here into HTTP
// status codes.
package service

import (
	"errors"
	"sort"
	"strings"
)

// ErrTotalMismatch is returned when a client-declared checkout total does
// not match the server-side price of the cart.
var ErrTotalMismatch = errors.New("total does not match cart")

// ErrNotPaid is returned when a checkout session has not been paid.
var ErrNotPaid = errors.New("payment not completed")

// ErrInvalidTransition is returned for status changes that are not
// allowed, such as reviving a cancelled booking.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidationError lists the invalid input fields and the rule each broke.
// No write happens when a service returns it.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// invalid collects field errors; it returns nil when none were added.
type invalid map[string]string

func (v invalid) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}
