package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/denizkaplan/lunera-backend/pkg/enums"
)

// AuditLog records who moved an order between statuses and when.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ActorID    *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	ActorRole  string            `gorm:"column:actor_role;not null"`
	Action     string            `gorm:"column:action;not null"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;type:order_status;not null"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;type:order_status;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
