package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/denizkaplan/lunera-backend/internal/payments"
	pkgerrors "github.com/denizkaplan/lunera-backend/pkg/errors"
)

type stubPaymentService struct {
	initialize func(ctx context.Context, orderID uuid.UUID) (*payments.CheckoutSession, error)
	tokens     []string
}

func (s *stubPaymentService) Initialize(ctx context.Context, orderID uuid.UUID) (*payments.CheckoutSession, error) {
	if s.initialize != nil {
		return s.initialize(ctx, orderID)
	}
	return &payments.CheckoutSession{Token: "session-token"}, nil
}

func (s *stubPaymentService) HandleCallback(ctx context.Context, token string) *payments.CallbackRedirect {
	s.tokens = append(s.tokens, token)
	return &payments.CallbackRedirect{URL: "https://shop.example/checkout/success?orderId=abc"}
}

func TestInitializePayment(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPaymentService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/payment", nil)
	req = withURLParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()
	InitializePayment(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestInitializePaymentConflict(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPaymentService{
		initialize: func(ctx context.Context, id uuid.UUID) (*payments.CheckoutSession, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/payment", nil)
	req = withURLParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()
	InitializePayment(svc, nil)(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestPaymentCallbackPostForm(t *testing.T) {
	svc := &stubPaymentService{}
	form := url.Values{}
	form.Set("token", "form-token")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	PaymentCallback(svc, nil)(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", rec.Code)
	}
	if len(svc.tokens) != 1 || svc.tokens[0] != "form-token" {
		t.Fatalf("expected form token passed got %v", svc.tokens)
	}
	if rec.Header().Get("Location") == "" {
		t.Fatal("expected redirect location")
	}
}

func TestPaymentCallbackGetQuery(t *testing.T) {
	svc := &stubPaymentService{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/callback?token=query-token", nil)
	rec := httptest.NewRecorder()
	PaymentCallback(svc, nil)(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", rec.Code)
	}
	if len(svc.tokens) != 1 || svc.tokens[0] != "query-token" {
		t.Fatalf("expected query token passed got %v", svc.tokens)
	}
}

func TestPaymentCallbackMissingTokenStillRedirects(t *testing.T) {
	svc := &stubPaymentService{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/callback", nil)
	rec := httptest.NewRecorder()
	PaymentCallback(svc, nil)(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("callback must always redirect, got %d", rec.Code)
	}
	if len(svc.tokens) != 1 || svc.tokens[0] != "" {
		t.Fatalf("expected empty token passed got %v", svc.tokens)
	}
}
