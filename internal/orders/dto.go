package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denizkaplan/lunera-backend/pkg/enums"
	"github.com/denizkaplan/lunera-backend/pkg/types"
)

// UntrustedCartLine is a cart line exactly as the client sent it. The price
// and title fields are display hints only; nothing here is used for pricing.
type UntrustedCartLine struct {
	ProductID    uuid.UUID
	Quantity     int
	DisplayPrice string
	DisplayTitle string
}

// UntrustedCartInput wraps client cart lines. The only way these become
// order items is through the builder's validation pipeline, which re-reads
// every price from the catalog.
type UntrustedCartInput struct {
	Lines []UntrustedCartLine
}

// CustomerInput is the contact snapshot frozen onto the order.
type CustomerInput struct {
	Name  string
	Email string
	Phone *string
}

// CreateOrderInput carries everything the builder needs. UserID is nil for
// guest checkout.
type CreateOrderInput struct {
	Cart            UntrustedCartInput
	ShippingAddress types.Address
	Customer        CustomerInput
	PaymentMethod   enums.PaymentMethod
	UserID          *uuid.UUID
}

// validatedLine is a cart line after catalog resolution and server-side
// re-pricing. It is unexported on purpose: no code outside this package can
// construct one, so nothing downstream can carry client-trusted prices.
type validatedLine struct {
	productID  uuid.UUID
	title      string
	subtitle   *string
	image      *string
	quantity   int
	unitPrice  decimal.Decimal
	totalPrice decimal.Decimal
}

// CancelOrderInput is a customer-initiated cancellation request.
type CancelOrderInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
}

// AdminStatusInput is an admin-initiated status transition.
type AdminStatusInput struct {
	OrderID        uuid.UUID
	TargetStatus   enums.OrderStatus
	TrackingNumber *string
	TrackingURL    *string
	ActorID        uuid.UUID
}

// ListOrdersInput pages a customer's own orders.
type ListOrdersInput struct {
	UserID uuid.UUID
	Limit  int
	Offset int
}
