package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/denizkaplan/lunera-backend/api/responses"
	"github.com/denizkaplan/lunera-backend/internal/payments"
	"github.com/denizkaplan/lunera-backend/pkg/logger"
)

// PaymentService is the slice of the reconciliation engine the HTTP layer
// needs.
type PaymentService interface {
	Initialize(ctx context.Context, orderID uuid.UUID) (*payments.CheckoutSession, error)
	HandleCallback(ctx context.Context, token string) *payments.CallbackRedirect
}

// InitializePayment starts a hosted checkout session for an existing order.
func InitializePayment(engine PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := engine.Initialize(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// PaymentCallback receives the gateway's browser return. The token arrives as
// a form field on POST or a query parameter on GET; either way the handler
// reconciles and redirects. It never answers with JSON, a browser is on the
// other end.
func PaymentCallback(engine PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := callbackToken(r)
		redirect := engine.HandleCallback(r.Context(), token)
		responses.WriteRedirect(w, r, redirect.URL)
	}
}

func callbackToken(r *http.Request) string {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			if token := strings.TrimSpace(r.PostFormValue("token")); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
