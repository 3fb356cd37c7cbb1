package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the trusted catalog row. Price and stock here are authoritative;
// anything a client sends about a product is display-only.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string          `gorm:"column:title;not null"`
	Subtitle  *string         `gorm:"column:subtitle"`
	Image     *string         `gorm:"column:image"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	InStock   bool            `gorm:"column:in_stock;not null;default:true"`
	StockQty  int             `gorm:"column:stock_qty;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
