package payments

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/denizkaplan/lunera-backend/pkg/db/models"
)

// Outcome is the normalized gateway verdict. There are exactly two values;
// anything the gateway reports is folded into one of them at the adapter
// boundary so reconciliation never sees provider-specific shapes.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Result is the closed, normalized form of a gateway verification response.
type Result struct {
	Outcome        Outcome
	PaymentID      string
	PaidAmount     decimal.Decimal
	ConversationID string
	ErrorCode      string
	ErrorMessage   string
}

// CheckoutSession is what the storefront renders to collect payment.
type CheckoutSession struct {
	Token               string `json:"token"`
	CheckoutFormContent string `json:"checkout_form_content,omitempty"`
	PaymentPageURL      string `json:"payment_page_url,omitempty"`
}

// Gateway talks to the hosted checkout form provider. Initialize builds the
// basket strictly from the persisted order; RetrieveResult is the
// server-to-server verification that client-reported outcomes never replace.
type Gateway interface {
	Initialize(ctx context.Context, order *models.Order) (*CheckoutSession, error)
	RetrieveResult(ctx context.Context, token string) (*Result, error)
}
