package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/denizkaplan/lunera-backend/pkg/db/models"
	"github.com/denizkaplan/lunera-backend/pkg/enums"
	"github.com/denizkaplan/lunera-backend/pkg/logger"
	"github.com/denizkaplan/lunera-backend/pkg/outbox"
	"github.com/denizkaplan/lunera-backend/pkg/outbox/idempotency"
)

const orderMailerConsumer = "order-mailer"

type orderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Consumer watches order events and sends the matching customer mail.
// Delivery is best effort: a failed send is logged with the order id and the
// message is acked anyway, never retried inline.
type Consumer struct {
	orders       orderReader
	mailer       Mailer
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the order mail consumer.
func NewConsumer(orders orderReader, mailer Mailer, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		orders:       orders,
		mailer:       mailer,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderMailerConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	template, orderID, ok := c.resolveTemplate(enums.OutboxEventType(eventType), envelope.Data)
	if !ok {
		c.logg.Info(logCtx, "event type needs no mail")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithOrderID(logCtx, orderID.String())

	order, err := c.orders.FindByID(ctx, orderID)
	if err != nil {
		c.logg.Error(logCtx, "order lookup failed", err)
		_ = c.idempotency.Delete(ctx, orderMailerConsumer, eventID)
		return processResult{nack: true}
	}

	mail := MailMessage{
		To:       order.CustomerEmail,
		Subject:  subjectFor(template, order.OrderNumber),
		Template: template,
		Variables: map[string]string{
			"order_number": order.OrderNumber,
			"total_amount": order.TotalAmount.StringFixed(2),
			"status":       order.Status.String(),
		},
	}
	if err := c.mailer.Send(ctx, mail); err != nil {
		// Best effort by contract: log with the order id for manual
		// reconciliation and ack so the event is not retried.
		c.logg.Error(logCtx, "mail send failed", err)
		return processResult{ack: true}
	}

	c.logg.Info(logCtx, "order mail sent")
	return processResult{ack: true}
}

type statusChangedPayload struct {
	OrderID  uuid.UUID         `json:"order_id"`
	ToStatus enums.OrderStatus `json:"to_status"`
}

type orderEventPayload struct {
	OrderID uuid.UUID `json:"order_id"`
}

// resolveTemplate maps an event to the mail it should produce. Events that
// carry no customer-facing mail report ok=false.
func (c *Consumer) resolveTemplate(eventType enums.OutboxEventType, data json.RawMessage) (enums.MailTemplate, uuid.UUID, bool) {
	switch eventType {
	case enums.EventOrderCreated:
		var payload orderEventPayload
		if err := json.Unmarshal(data, &payload); err != nil || payload.OrderID == uuid.Nil {
			return "", uuid.Nil, false
		}
		return enums.MailOrderConfirmation, payload.OrderID, true
	case enums.EventOrderPaid:
		var payload orderEventPayload
		if err := json.Unmarshal(data, &payload); err != nil || payload.OrderID == uuid.Nil {
			return "", uuid.Nil, false
		}
		return enums.MailPaymentReceived, payload.OrderID, true
	case enums.EventOrderPaymentFailed:
		var payload orderEventPayload
		if err := json.Unmarshal(data, &payload); err != nil || payload.OrderID == uuid.Nil {
			return "", uuid.Nil, false
		}
		return enums.MailPaymentFailed, payload.OrderID, true
	case enums.EventOrderStatusChanged:
		var payload statusChangedPayload
		if err := json.Unmarshal(data, &payload); err != nil || payload.OrderID == uuid.Nil {
			return "", uuid.Nil, false
		}
		switch payload.ToStatus {
		case enums.OrderStatusShipped:
			return enums.MailOrderShipped, payload.OrderID, true
		case enums.OrderStatusCancelled:
			return enums.MailOrderCancelled, payload.OrderID, true
		default:
			return "", uuid.Nil, false
		}
	default:
		return "", uuid.Nil, false
	}
}

func subjectFor(template enums.MailTemplate, orderNumber string) string {
	switch template {
	case enums.MailOrderConfirmation:
		return fmt.Sprintf("We received your order %s", orderNumber)
	case enums.MailPaymentReceived:
		return fmt.Sprintf("Payment received for order %s", orderNumber)
	case enums.MailPaymentFailed:
		return fmt.Sprintf("Payment failed for order %s", orderNumber)
	case enums.MailOrderShipped:
		return fmt.Sprintf("Your order %s is on its way", orderNumber)
	case enums.MailOrderCancelled:
		return fmt.Sprintf("Order %s has been cancelled", orderNumber)
	default:
		return fmt.Sprintf("Update on your order %s", orderNumber)
	}
}
