package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denizkaplan/lunera-backend/pkg/config"
	"github.com/denizkaplan/lunera-backend/pkg/db/models"
	"github.com/denizkaplan/lunera-backend/pkg/enums"
	pkgerrors "github.com/denizkaplan/lunera-backend/pkg/errors"
	"github.com/denizkaplan/lunera-backend/pkg/logger"
	"github.com/denizkaplan/lunera-backend/pkg/metrics"
	"github.com/denizkaplan/lunera-backend/pkg/outbox"
)

// Error codes carried on the failure redirect. These are the only strings a
// browser ever sees from this path.
const (
	RedirectErrMissingToken = "missing_token"
	RedirectErrGateway      = "gateway_error"
	RedirectErrInvalidOrder = "invalid_order"
	RedirectErrPayment      = "payment_failed"
)

const failureMessage = "payment could not be completed"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// callbackCache is the best-effort duplicate-token signal. It is never
// load-bearing; the conditional DB update is the real guard.
type callbackCache interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CallbackTokenKey(token string) string
}

// CallbackRedirect is where the browser gets sent after reconciliation.
// Callback handling never renders JSON; it always redirects.
type CallbackRedirect struct {
	URL string
}

// OrderPaidEvent is emitted exactly once per settled order.
type OrderPaidEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	PaymentID     string          `json:"payment_id"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	CustomerEmail string          `json:"customer_email"`
}

// OrderPaymentFailedEvent is emitted when the gateway reports failure.
type OrderPaymentFailedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	ErrorCode     string    `json:"error_code,omitempty"`
	CustomerEmail string    `json:"customer_email"`
}

// Engine reconciles gateway callbacks against order state exactly once.
type Engine struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	gateway  Gateway
	cache    callbackCache
	metrics  *metrics.PaymentMetrics
	cfg      config.GatewayConfig
	tokenTTL time.Duration
	logg     *logger.Logger
}

// NewEngine builds the reconciliation engine.
func NewEngine(
	repo Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	gateway Gateway,
	cache callbackCache,
	paymentMetrics *metrics.PaymentMetrics,
	cfg config.GatewayConfig,
	tokenTTL time.Duration,
	logg *logger.Logger,
) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		gateway:  gateway,
		cache:    cache,
		metrics:  paymentMetrics,
		cfg:      cfg,
		tokenTTL: tokenTTL,
		logg:     logg,
	}, nil
}

// Initialize starts a checkout session for an existing unpaid order.
func (e *Engine) Initialize(ctx context.Context, orderID uuid.UUID) (*CheckoutSession, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := e.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	// A failed payment may be retried with a fresh session; cancelled and
	// delivered orders may not.
	if order.Status.IsTerminal() && order.Status != enums.OrderStatusPaymentFailed {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order in status %s cannot be paid", order.Status)
	}
	return e.gateway.Initialize(ctx, order)
}

// HandleCallback runs the reconciliation algorithm for one callback token.
// It always produces a redirect; internal failures degrade to a generic
// failure page and never leak gateway error text to the browser.
func (e *Engine) HandleCallback(ctx context.Context, token string) *CallbackRedirect {
	if strings.TrimSpace(token) == "" {
		e.metrics.IncCallback(metrics.CallbackOutcomeInvalidToken)
		return e.failureRedirect(RedirectErrMissingToken, "callback token missing", nil)
	}

	e.markTokenSeen(ctx, token)

	result, err := e.gateway.RetrieveResult(ctx, token)
	if err != nil {
		e.logg.Error(ctx, "gateway verification failed", err)
		e.metrics.IncCallback(metrics.CallbackOutcomeGatewayError)
		return e.failureRedirect(RedirectErrGateway, failureMessage, nil)
	}

	orderID, err := uuid.Parse(result.ConversationID)
	if err != nil {
		logCtx := e.logg.WithField(ctx, "conversation_id", result.ConversationID)
		e.logg.Error(logCtx, "callback carried malformed conversation id", err)
		e.metrics.IncCallback(metrics.CallbackOutcomeInvalidToken)
		return e.failureRedirect(RedirectErrInvalidOrder, failureMessage, nil)
	}

	logCtx := e.logg.WithOrderID(ctx, orderID.String())

	order, err := e.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			e.logg.Warn(logCtx, "callback references unknown order")
			e.metrics.IncCallback(metrics.CallbackOutcomeOrderNotFound)
			return e.failureRedirect(RedirectErrInvalidOrder, failureMessage, nil)
		}
		e.logg.Error(logCtx, "order load failed during reconciliation", err)
		e.metrics.IncCallback(metrics.CallbackOutcomeGatewayError)
		return e.failureRedirect(RedirectErrGateway, failureMessage, &orderID)
	}

	if result.Outcome == OutcomeSuccess {
		return e.reconcileSuccess(logCtx, order, result)
	}
	return e.reconcileFailure(logCtx, order, result)
}

func (e *Engine) reconcileSuccess(ctx context.Context, order *models.Order, result *Result) *CallbackRedirect {
	var rows int64
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		affected, err := repo.MarkPaid(ctx, order.ID, result.PaymentID, result.PaidAmount, time.Now())
		if err != nil {
			return err
		}
		rows = affected
		if rows == 0 {
			return nil
		}
		return e.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: OrderPaidEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				PaymentID:     result.PaymentID,
				PaidAmount:    result.PaidAmount,
				CustomerEmail: order.CustomerEmail,
			},
		})
	})
	if err != nil {
		e.logg.Error(ctx, "paid transition failed", err)
		e.metrics.IncCallback(metrics.CallbackOutcomeGatewayError)
		return e.failureRedirect(RedirectErrGateway, failureMessage, &order.ID)
	}

	if rows == 0 {
		// The guard refused the write. Work out why before acknowledging:
		// a terminal unpaid order means the gateway took money for an order
		// nobody will fulfill, and a settled order with a different payment
		// id means the customer may have been charged twice.
		current, err := e.repo.FindByID(ctx, order.ID)
		switch {
		case err == nil && current.PaymentStatus != enums.PaymentStatusPaid:
			anomalyCtx := e.logg.WithField(ctx, "order_status", current.Status.String())
			e.logg.Error(anomalyCtx, "payment received for closed order, refund required", nil)
			e.metrics.IncCallback(metrics.CallbackOutcomeAnomaly)
			return e.failureRedirect(RedirectErrPayment, failureMessage, &order.ID)
		case err == nil && current.PaymentID != nil && *current.PaymentID != result.PaymentID:
			anomalyCtx := e.logg.WithFields(ctx, map[string]any{
				"stored_payment_id":   *current.PaymentID,
				"callback_payment_id": result.PaymentID,
			})
			e.logg.Error(anomalyCtx, "possible double payment detected", nil)
			e.metrics.IncCallback(metrics.CallbackOutcomeAnomaly)
		default:
			e.logg.Info(ctx, "duplicate success callback ignored")
			e.metrics.IncCallback(metrics.CallbackOutcomeDuplicate)
		}
		return e.successRedirect(order.ID, result.PaymentID)
	}

	e.logg.Info(ctx, "order reconciled as paid")
	e.metrics.IncCallback(metrics.CallbackOutcomePaid)
	return e.successRedirect(order.ID, result.PaymentID)
}

func (e *Engine) reconcileFailure(ctx context.Context, order *models.Order, result *Result) *CallbackRedirect {
	var rows int64
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		affected, err := repo.MarkPaymentFailed(ctx, order.ID, result.ErrorMessage)
		if err != nil {
			return err
		}
		rows = affected
		if rows == 0 {
			return nil
		}
		return e.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: OrderPaymentFailedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				ErrorCode:     result.ErrorCode,
				CustomerEmail: order.CustomerEmail,
			},
		})
	})
	if err != nil {
		e.logg.Error(ctx, "failed transition could not be recorded", err)
		e.metrics.IncCallback(metrics.CallbackOutcomeGatewayError)
		return e.failureRedirect(RedirectErrGateway, failureMessage, &order.ID)
	}

	if rows == 0 {
		// The order settled, already failed, or closed before this failure
		// arrived. Do not overwrite and do not emit a second event.
		e.logg.Info(ctx, "failure callback ignored, order already settled or closed")
		e.metrics.IncCallback(metrics.CallbackOutcomeDuplicate)
	} else {
		e.logg.Info(ctx, "order reconciled as payment failed")
		e.metrics.IncCallback(metrics.CallbackOutcomeFailed)
	}
	return e.failureRedirect(coalesce(result.ErrorCode, RedirectErrPayment), failureMessage, &order.ID)
}

func (e *Engine) markTokenSeen(ctx context.Context, token string) {
	if e.cache == nil {
		return
	}
	firstSeen, err := e.cache.SetNX(ctx, e.cache.CallbackTokenKey(token), "1", e.tokenTTL)
	if err != nil {
		e.logg.Warn(ctx, "callback token cache unavailable")
		return
	}
	if !firstSeen {
		e.logg.Info(ctx, "callback token seen before, verifying against order state")
	}
}

func (e *Engine) successRedirect(orderID uuid.UUID, paymentID string) *CallbackRedirect {
	q := url.Values{}
	q.Set("orderId", orderID.String())
	if paymentID != "" {
		q.Set("paymentId", paymentID)
	}
	return &CallbackRedirect{URL: e.cfg.SuccessRedirectURL + "?" + q.Encode()}
}

func (e *Engine) failureRedirect(code, message string, orderID *uuid.UUID) *CallbackRedirect {
	q := url.Values{}
	q.Set("error", code)
	q.Set("message", message)
	if orderID != nil {
		q.Set("orderId", orderID.String())
	}
	return &CallbackRedirect{URL: e.cfg.FailureRedirectURL + "?" + q.Encode()}
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
