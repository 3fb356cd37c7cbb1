package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denizkaplan/lunera-backend/pkg/db/models"
	"github.com/denizkaplan/lunera-backend/pkg/enums"
)

// Repository holds the conditional single-statement updates that make
// reconciliation idempotent. The payment-status and order-status guards plus
// RowsAffected are the whole concurrency story: two racing callbacks for the
// same order cannot both win, and a late callback cannot reopen an order
// that already left the payable states.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paymentID string, paidAmount decimal.Decimal, paidAt time.Time) (int64, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID, message string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// reconcilableStatuses are the only order states the reconciliation engine
// may move out of. Cancelled and delivered orders stay untouched no matter
// what the gateway reports.
var reconcilableStatuses = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusProcessing,
}

// MarkPaid flips the order to paid in one conditional statement and reports
// how many rows changed. Zero rows means another callback already settled
// this order, or the order is no longer in a payable state.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paymentID string, paidAmount decimal.Decimal, paidAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status <> ? AND status IN ?", id, enums.PaymentStatusPaid, reconcilableStatuses).
		Updates(map[string]any{
			"status":         enums.OrderStatusProcessing,
			"payment_status": enums.PaymentStatusPaid,
			"payment_id":     paymentID,
			"paid_amount":    paidAmount,
			"paid_at":        paidAt,
		})
	return res.RowsAffected, res.Error
}

// MarkPaymentFailed records a failed payment. The guard excludes paid and
// already-failed orders so a late or redelivered failure callback can never
// clobber a settled order or emit a second failure event.
func (r *repository) MarkPaymentFailed(ctx context.Context, id uuid.UUID, message string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status NOT IN ? AND status IN ?",
			id,
			[]enums.PaymentStatus{enums.PaymentStatusPaid, enums.PaymentStatusFailed},
			reconcilableStatuses,
		).
		Updates(map[string]any{
			"status":         enums.OrderStatusPaymentFailed,
			"payment_status": enums.PaymentStatusFailed,
			"payment_error":  message,
		})
	return res.RowsAffected, res.Error
}
