package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/denizkaplan/lunera-backend/api/middleware"
	internalorders "github.com/denizkaplan/lunera-backend/internal/orders"
	"github.com/denizkaplan/lunera-backend/pkg/db/models"
	"github.com/denizkaplan/lunera-backend/pkg/enums"
	pkgerrors "github.com/denizkaplan/lunera-backend/pkg/errors"
	"github.com/denizkaplan/lunera-backend/pkg/types"
)

type stubOrdersService struct {
	create      func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	cancel      func(ctx context.Context, input internalorders.CancelOrderInput) (*models.Order, error)
	adminUpdate func(ctx context.Context, input internalorders.AdminStatusInput) (*models.Order, error)
	findForUser func(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	list        func(ctx context.Context, input internalorders.ListOrdersInput) ([]models.Order, error)
}

func (s *stubOrdersService) Create(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	if s.create != nil {
		return s.create(ctx, input)
	}
	return &models.Order{ID: uuid.New()}, nil
}

func (s *stubOrdersService) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id}, nil
}

func (s *stubOrdersService) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	if s.findForUser != nil {
		return s.findForUser(ctx, id, userID)
	}
	return &models.Order{ID: id}, nil
}

func (s *stubOrdersService) ListForUser(ctx context.Context, input internalorders.ListOrdersInput) ([]models.Order, error) {
	if s.list != nil {
		return s.list(ctx, input)
	}
	return nil, nil
}

func (s *stubOrdersService) Cancel(ctx context.Context, input internalorders.CancelOrderInput) (*models.Order, error) {
	if s.cancel != nil {
		return s.cancel(ctx, input)
	}
	return &models.Order{ID: input.OrderID, Status: enums.OrderStatusCancelled}, nil
}

func (s *stubOrdersService) AdminUpdateStatus(ctx context.Context, input internalorders.AdminStatusInput) (*models.Order, error) {
	if s.adminUpdate != nil {
		return s.adminUpdate(ctx, input)
	}
	return &models.Order{ID: input.OrderID, Status: input.TargetStatus}, nil
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func createOrderBody() string {
	return `{
		"items": [{"product_id": "` + uuid.NewString() + `", "quantity": 2, "price": "1.00", "title": "whatever"}],
		"shipping_address": {"line1": "12 Harbor Street", "city": "Istanbul", "postal_code": "34000", "country": "TR"},
		"customer": {"name": "Ayse Demir", "email": "ayse@example.com", "phone": "+905551112233"},
		"payment_method": "card"
	}`
}

func TestCreateOrderGuest(t *testing.T) {
	var captured internalorders.CreateOrderInput
	svc := &stubOrdersService{
		create: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: uuid.New(), Status: enums.OrderStatusProcessing}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createOrderBody()))
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body %s", rec.Code, rec.Body.String())
	}
	if captured.UserID != nil {
		t.Fatalf("guest request must not carry a user id, got %v", captured.UserID)
	}
	if captured.PaymentMethod != enums.PaymentMethodCard {
		t.Fatalf("unexpected payment method %s", captured.PaymentMethod)
	}
	if len(captured.Cart.Lines) != 1 || captured.Cart.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected cart %+v", captured.Cart)
	}
}

func TestCreateOrderAuthenticatedAttachesUser(t *testing.T) {
	userID := uuid.New()
	var captured internalorders.CreateOrderInput
	svc := &stubOrdersService{
		create: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: uuid.New()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createOrderBody()))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if captured.UserID == nil || *captured.UserID != userID {
		t.Fatalf("expected user id attached got %v", captured.UserID)
	}
}

func TestCreateOrderRejectsUnknownPaymentMethod(t *testing.T) {
	body := strings.Replace(createOrderBody(), `"card"`, `"crypto"`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	CreateOrder(&stubOrdersService{}, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCreateOrderRejectsUnknownField(t *testing.T) {
	body := strings.Replace(createOrderBody(), `"items"`, `"admin": true, "items"`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	CreateOrder(&stubOrdersService{}, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCancelOrderRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/abc/cancel", nil)
	req = withURLParam(req, "orderId", uuid.NewString())
	rec := httptest.NewRecorder()
	CancelOrder(&stubOrdersService{}, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestCancelOrderPropagatesCaller(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	var captured internalorders.CancelOrderInput
	svc := &stubOrdersService{
		cancel: func(ctx context.Context, input internalorders.CancelOrderInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: input.OrderID, Status: enums.OrderStatusCancelled}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", nil)
	req = withURLParam(req, "orderId", orderID.String())
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()
	CancelOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", rec.Code, rec.Body.String())
	}
	if captured.UserID != userID || captured.OrderID != orderID {
		t.Fatalf("unexpected input %+v", captured)
	}
}

func TestCancelOrderForbiddenBubblesUp(t *testing.T) {
	svc := &stubOrdersService{
		cancel: func(ctx context.Context, input internalorders.CancelOrderInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
		},
	}

	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", nil)
	req = withURLParam(req, "orderId", orderID.String())
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	CancelOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	orderID := uuid.New()
	actorID := uuid.New()
	var captured internalorders.AdminStatusInput
	svc := &stubOrdersService{
		adminUpdate: func(ctx context.Context, input internalorders.AdminStatusInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: input.OrderID, Status: input.TargetStatus}, nil
		},
	}

	body := `{"status": "shipped", "tracking_number": "1Z999", "tracking_url": "https://www.ups.com/track?n=1Z999"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/v1/orders/"+orderID.String()+"/status", strings.NewReader(body))
	req = withURLParam(req, "orderId", orderID.String())
	req = req.WithContext(middleware.WithUserID(req.Context(), actorID.String()))
	rec := httptest.NewRecorder()
	AdminUpdateOrderStatus(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", rec.Code, rec.Body.String())
	}
	if captured.TargetStatus != enums.OrderStatusShipped {
		t.Fatalf("unexpected target %s", captured.TargetStatus)
	}
	if captured.ActorID != actorID {
		t.Fatalf("unexpected actor %s", captured.ActorID)
	}
	if captured.TrackingNumber == nil || *captured.TrackingNumber != "1Z999" {
		t.Fatalf("unexpected tracking %+v", captured.TrackingNumber)
	}
}

func TestAdminUpdateOrderStatusUnknownStatus(t *testing.T) {
	orderID := uuid.New()
	body := `{"status": "teleported"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/v1/orders/"+orderID.String()+"/status", strings.NewReader(body))
	req = withURLParam(req, "orderId", orderID.String())
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	AdminUpdateOrderStatus(&stubOrdersService{}, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
