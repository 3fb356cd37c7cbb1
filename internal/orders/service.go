package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denizkaplan/lunera-backend/internal/catalog"
	"github.com/denizkaplan/lunera-backend/pkg/config"
	dbpkg "github.com/denizkaplan/lunera-backend/pkg/db"
	"github.com/denizkaplan/lunera-backend/pkg/db/models"
	"github.com/denizkaplan/lunera-backend/pkg/enums"
	pkgerrors "github.com/denizkaplan/lunera-backend/pkg/errors"
	"github.com/denizkaplan/lunera-backend/pkg/logger"
	"github.com/denizkaplan/lunera-backend/pkg/outbox"
)

const orderNumberConstraint = "orders_order_number_key"

// createAttempts bounds the order-number collision retry loop.
const createAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, input ListOrdersInput) ([]models.Order, error)
	Cancel(ctx context.Context, input CancelOrderInput) (*models.Order, error)
	AdminUpdateStatus(ctx context.Context, input AdminStatusInput) (*models.Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	catalog  catalog.Service
	checkout config.CheckoutConfig
	shipping config.ShippingConfig
	logg     *logger.Logger
}

// OrderCreatedEvent is emitted when the builder persists a new order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	CustomerEmail string              `json:"customer_email"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
}

// OrderStatusChangedEvent is emitted for every accepted status transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	FromStatus     enums.OrderStatus `json:"from_status"`
	ToStatus       enums.OrderStatus `json:"to_status"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
	TrackingURL    *string           `json:"tracking_url,omitempty"`
}

// NewService builds the order service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	catalogSvc catalog.Service,
	checkout config.CheckoutConfig,
	shipping config.ShippingConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		catalog:  catalogSvc,
		checkout: checkout,
		shipping: shipping,
		logg:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := s.validateShape(input); err != nil {
		return nil, err
	}

	lines, err := s.buildLines(ctx, input.Cart)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.totalPrice)
	}

	shippingCost := s.checkout.ShippingFee()
	if subtotal.GreaterThanOrEqual(s.checkout.Threshold()) {
		shippingCost = decimal.Zero
	}
	total := subtotal.Add(shippingCost)

	initialStatus := enums.OrderStatusPending
	if input.PaymentMethod == enums.PaymentMethodCard {
		initialStatus = enums.OrderStatusProcessing
	}

	var created *models.Order
	for attempt := 0; attempt < createAttempts; attempt++ {
		number, numErr := newOrderNumber(time.Now())
		if numErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, numErr, "generate order number")
		}

		order := &models.Order{
			OrderNumber:     number,
			UserID:          input.UserID,
			Status:          initialStatus,
			PaymentStatus:   enums.PaymentStatusUnpaid,
			PaymentMethod:   input.PaymentMethod,
			Subtotal:        subtotal,
			ShippingCost:    shippingCost,
			TotalAmount:     total,
			CustomerName:    strings.TrimSpace(input.Customer.Name),
			CustomerEmail:   strings.TrimSpace(input.Customer.Email),
			CustomerPhone:   input.Customer.Phone,
			ShippingAddress: input.ShippingAddress,
			Items:           buildItems(lines),
		}

		txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.CreateOrder(ctx, order); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         buildActor(input.UserID, actorRole(input.UserID)),
				Data: OrderCreatedEvent{
					OrderID:       order.ID,
					OrderNumber:   order.OrderNumber,
					UserID:        order.UserID,
					CustomerEmail: order.CustomerEmail,
					TotalAmount:   order.TotalAmount,
					PaymentMethod: order.PaymentMethod,
					Status:        order.Status,
				},
			})
		})
		if txErr == nil {
			created = order
			break
		}
		if dbpkg.IsUniqueViolation(txErr, orderNumberConstraint) {
			continue
		}
		logCtx := s.logg.WithField(ctx, "order_number", order.OrderNumber)
		s.logg.Error(logCtx, "order persistence failed", txErr)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "order could not be created")
	}
	if created == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order could not be created")
	}
	return created, nil
}

func (s *service) validateShape(input CreateOrderInput) error {
	if !input.ShippingAddress.Complete() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	if len(input.Cart.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if len(input.Cart.Lines) > s.checkout.MaxCartLines {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "cart exceeds %d lines", s.checkout.MaxCartLines)
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	if input.UserID == nil {
		if strings.TrimSpace(input.Customer.Name) == "" ||
			strings.TrimSpace(input.Customer.Email) == "" ||
			input.Customer.Phone == nil || strings.TrimSpace(*input.Customer.Phone) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "guest checkout requires name, email and phone")
		}
	}
	if strings.TrimSpace(input.Customer.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}
	return nil
}

// buildLines resolves every cart line against the catalog and re-prices it.
// Client-sent prices and titles are discarded here; this is the trust
// boundary between UntrustedCartLine and validatedLine.
func (s *service) buildLines(ctx context.Context, cart UntrustedCartInput) ([]validatedLine, error) {
	ids := make([]uuid.UUID, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be at least 1 for product %s", line.ProductID)
		}
		ids = append(ids, line.ProductID)
	}

	snapshots, err := s.catalog.Availability(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, line := range cart.Lines {
		if _, ok := snapshots[line.ProductID]; !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown product %s", line.ProductID)
		}
	}

	var unavailable []string
	for _, line := range cart.Lines {
		snap := snapshots[line.ProductID]
		if !snap.InStock || snap.StockQty < line.Quantity {
			unavailable = append(unavailable, snap.Title)
		}
	}
	if len(unavailable) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "products unavailable").
			WithDetails(unavailable)
	}

	lines := make([]validatedLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		snap := snapshots[line.ProductID]
		qty := decimal.NewFromInt(int64(line.Quantity))
		lines = append(lines, validatedLine{
			productID:  snap.ID,
			title:      snap.Title,
			subtitle:   snap.Subtitle,
			image:      snap.Image,
			quantity:   line.Quantity,
			unitPrice:  snap.Price,
			totalPrice: snap.Price.Mul(qty),
		})
	}
	return lines, nil
}

func buildItems(lines []validatedLine) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID:  line.productID,
			Title:      line.title,
			Subtitle:   line.subtitle,
			Image:      line.image,
			Quantity:   line.quantity,
			UnitPrice:  line.unitPrice,
			TotalPrice: line.totalPrice,
		})
	}
	return items
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, input ListOrdersInput) ([]models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.ListForUser(ctx, input.UserID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// Cancel applies a customer cancellation. Ownership is enforced by loading
// through the user-scoped read; a customer can never cancel someone else's
// order, and any target other than cancelled never reaches this method.
func (s *service) Cancel(ctx context.Context, input CancelOrderInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUser(ctx, input.OrderID, input.UserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusCancelled {
			result = order
			return nil
		}
		if !customerCancellable(order.Status) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order in status %s cannot be cancelled", order.Status)
		}

		from := order.Status
		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.CreateAuditLog(ctx, &models.AuditLog{
			OrderID:    order.ID,
			ActorID:    &input.UserID,
			ActorRole:  "customer",
			Action:     "cancel",
			FromStatus: from,
			ToStatus:   enums.OrderStatusCancelled,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit log")
		}

		order.Status = enums.OrderStatusCancelled
		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(&input.UserID, "customer"),
			Data: OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				FromStatus:  from,
				ToStatus:    enums.OrderStatusCancelled,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) AdminUpdateStatus(ctx context.Context, input AdminStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.TargetStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}
	if input.TargetStatus == enums.OrderStatusPaymentFailed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment_failed is set by reconciliation only")
	}

	if input.TargetStatus == enums.OrderStatusShipped {
		if input.TrackingNumber == nil || strings.TrimSpace(*input.TrackingNumber) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required when shipping")
		}
		if input.TrackingURL == nil || strings.TrimSpace(*input.TrackingURL) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking url required when shipping")
		}
		if err := validateTrackingURL(*input.TrackingURL, s.shipping.AllowedCarrierDomains); err != nil {
			return nil, err
		}
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == input.TargetStatus {
			result = order
			return nil
		}
		if !CanTransition(order.Status, input.TargetStatus) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict,
				"transition %s -> %s not allowed", order.Status, input.TargetStatus)
		}

		from := order.Status
		if err := repo.UpdateStatusWithTracking(ctx, order.ID, input.TargetStatus, input.TrackingNumber, input.TrackingURL); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.CreateAuditLog(ctx, &models.AuditLog{
			OrderID:    order.ID,
			ActorID:    &input.ActorID,
			ActorRole:  "admin",
			Action:     "status_update",
			FromStatus: from,
			ToStatus:   input.TargetStatus,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit log")
		}

		order.Status = input.TargetStatus
		if input.TrackingNumber != nil {
			order.TrackingNumber = input.TrackingNumber
		}
		if input.TrackingURL != nil {
			order.TrackingURL = input.TrackingURL
		}
		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(&input.ActorID, "admin"),
			Data: OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				FromStatus:     from,
				ToStatus:       input.TargetStatus,
				TrackingNumber: input.TrackingNumber,
				TrackingURL:    input.TrackingURL,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildActor(userID *uuid.UUID, role string) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: role}
}

func actorRole(userID *uuid.UUID) string {
	if userID == nil {
		return "guest"
	}
	return "customer"
}
