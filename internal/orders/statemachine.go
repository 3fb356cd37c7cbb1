package orders

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/denizkaplan/lunera-backend/pkg/enums"
	pkgerrors "github.com/denizkaplan/lunera-backend/pkg/errors"
)

// allowedTransitions is the full legality table for order statuses.
// payment_failed is only ever entered by the reconciliation engine, never by
// an admin or customer; it still appears here because reconciliation shares
// the table.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusProcessing,
		enums.OrderStatusCancelled,
		enums.OrderStatusPaymentFailed,
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusShipped,
		enums.OrderStatusCancelled,
		enums.OrderStatusPaymentFailed,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusDelivered,
	},
	enums.OrderStatusDelivered:     {},
	enums.OrderStatusCancelled:     {},
	enums.OrderStatusPaymentFailed: {},
}

// CanTransition reports whether from -> to is a legal status change.
// Re-applying the current status is not a transition; callers treat it as a
// no-op success before consulting this table.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// customerCancellable lists the statuses a customer may cancel from.
func customerCancellable(status enums.OrderStatus) bool {
	return status == enums.OrderStatusPending || status == enums.OrderStatusProcessing
}

// validateTrackingURL enforces HTTPS and the configured carrier allow-list.
func validateTrackingURL(raw string, allowedDomains []string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "tracking url is not a valid url")
	}
	if parsed.Scheme != "https" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking url must use https")
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking url host missing")
	}
	for _, domain := range allowedDomains {
		d := strings.ToLower(strings.TrimSpace(domain))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("tracking url host %q is not an allowed carrier", host))
}
