package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// OmiseProvider runs checkouts as Omise charges.  The charge id is the
// checkout session id and charge.AuthorizeURI is the redirect target.
type OmiseProvider struct {
	client     *omise.Client
	sourceType string
}

// NewOmiseProvider builds a provider from the account keys.  sourceType is
// the offsite source (e.g. "promptpay") used when no card token is given.
func NewOmiseProvider(publicKey, secretKey, sourceType string) (*OmiseProvider, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise: new client: %w", err)
	}
	return &OmiseProvider{client: c, sourceType: sourceType}, nil
}

func (p *OmiseProvider) Name() string { return "omise" }

// CreateCheckout implements Provider.
func (p *OmiseProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.Amount <= 0 || req.Currency == "" {
		return nil, errors.New("omise: invalid amount or currency")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	op := &operations.CreateCharge{
		Amount:    req.Amount,
		Currency:  strings.ToLower(req.Currency),
		ReturnURI: req.ReturnURL,
		Metadata:  toAny(req.Metadata),
	}
	if req.Token != "" {
		op.Card = req.Token
	} else {
		src := &omise.Source{}
		if err := p.client.Do(src, &operations.CreateSource{
			Type:     p.sourceType,
			Amount:   req.Amount,
			Currency: op.Currency,
		}); err != nil {
			return nil, fmt.Errorf("omise: create source: %w", err)
		}
		op.Source = src.ID
	}

	ch := &omise.Charge{}
	if err := p.client.Do(ch, op); err != nil {
		return nil, fmt.Errorf("omise: create charge: %w", err)
	}
	return fromCharge(ch), nil
}

// RetrieveCheckout implements Provider.
func (p *OmiseProvider) RetrieveCheckout(ctx context.Context, id string) (*CheckoutSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := &omise.Charge{}
	if err := p.client.Do(ch, &operations.RetrieveCharge{ChargeID: id}); err != nil {
		var oe *omise.Error
		if errors.As(err, &oe) && oe.StatusCode == 404 {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("omise: retrieve charge: %w", err)
	}
	return fromCharge(ch), nil
}

func fromCharge(ch *omise.Charge) *CheckoutSession {
	return &CheckoutSession{
		ID:       ch.ID,
		URL:      ch.AuthorizeURI,
		Paid:     ch.Paid,
		Status:   string(ch.Status),
		Amount:   ch.Amount,
		Currency: ch.Currency,
		Metadata: fromAny(ch.Metadata),
	}
}

func toAny(m map[string]string) map[string]interface{} {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func fromAny(m map[string]interface{}) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
