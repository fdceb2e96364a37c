// Package payment opens and inspects hosted checkout sessions with the
// card payment provider.
package payment

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the provider has no session with the id.
var ErrNotFound = errors.New("payment: checkout session not found")

// CheckoutRequest describes a checkout to open.  Amount is in the minor
// currency unit.  Token is an optional card token; without one an offsite
// source is used and the customer is redirected to ReturnURL afterwards.
type CheckoutRequest struct {
	Amount    int64
	Currency  string
	Token     string
	ReturnURL string
	Metadata  map[string]string
}

// CheckoutSession is the provider's view of one checkout.
type CheckoutSession struct {
	ID       string
	URL      string // redirect target; empty when no redirect is needed
	Paid     bool
	Status   string
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Provider is implemented by payment gateways.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	RetrieveCheckout(ctx context.Context, id string) (*CheckoutSession, error)
}

// ErrUnconfigured is returned by Unconfigured for every call.
var ErrUnconfigured = errors.New("payment: provider not configured")

// Unconfigured stands in when no provider keys are set, so the rest of
// the API can run without payments.
type Unconfigured struct{}

func (Unconfigured) Name() string { return "none" }

func (Unconfigured) CreateCheckout(context.Context, CheckoutRequest) (*CheckoutSession, error) {
	return nil, ErrUnconfigured
}

func (Unconfigured) RetrieveCheckout(context.Context, string) (*CheckoutSession, error) {
	return nil, ErrUnconfigured
}
