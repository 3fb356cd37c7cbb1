package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denizkaplan/lunera-backend/pkg/enums"
	"github.com/denizkaplan/lunera-backend/pkg/types"
)

// Order is the purchase record built server-side from the trusted catalog.
// Monetary fields are always recomputed on the server; client-sent amounts
// never reach this struct.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID        *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`

	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost decimal.Decimal `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`

	CustomerName    string        `gorm:"column:customer_name;not null"`
	CustomerEmail   string        `gorm:"column:customer_email;not null"`
	CustomerPhone   *string       `gorm:"column:customer_phone"`
	ShippingAddress types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	PaymentID    *string          `gorm:"column:payment_id"`
	PaidAmount   *decimal.Decimal `gorm:"column:paid_amount;type:numeric(12,2)"`
	PaymentError *string          `gorm:"column:payment_error"`
	PaidAt       *time.Time       `gorm:"column:paid_at"`

	TrackingNumber *string `gorm:"column:tracking_number"`
	TrackingURL    *string `gorm:"column:tracking_url"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
