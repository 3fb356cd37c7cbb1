package orders

import (
	"testing"

	"github.com/denizkaplan/lunera-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from enums.OrderStatus
		to   enums.OrderStatus
		want bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusProcessing, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPending, enums.OrderStatusPaymentFailed, true},
		{enums.OrderStatusPending, enums.OrderStatusShipped, false},
		{enums.OrderStatusPending, enums.OrderStatusDelivered, false},
		{enums.OrderStatusProcessing, enums.OrderStatusShipped, true},
		{enums.OrderStatusProcessing, enums.OrderStatusCancelled, true},
		{enums.OrderStatusProcessing, enums.OrderStatusPaymentFailed, true},
		{enums.OrderStatusProcessing, enums.OrderStatusDelivered, false},
		{enums.OrderStatusProcessing, enums.OrderStatusPending, false},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered, true},
		{enums.OrderStatusShipped, enums.OrderStatusCancelled, false},
		{enums.OrderStatusDelivered, enums.OrderStatusShipped, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
		{enums.OrderStatusPaymentFailed, enums.OrderStatusProcessing, false},
	}
	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCustomerCancellable(t *testing.T) {
	if !customerCancellable(enums.OrderStatusPending) {
		t.Error("pending should be cancellable")
	}
	if !customerCancellable(enums.OrderStatusProcessing) {
		t.Error("processing should be cancellable")
	}
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
		enums.OrderStatusPaymentFailed,
	} {
		if customerCancellable(status) {
			t.Errorf("%s should not be cancellable", status)
		}
	}
}

func TestValidateTrackingURL(t *testing.T) {
	allowed := []string{"ups.com", "fedex.com"}
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "allowed root domain", url: "https://ups.com/track/1Z", wantErr: false},
		{name: "allowed subdomain", url: "https://www.fedex.com/fedextrack/?trknbr=1", wantErr: false},
		{name: "http rejected", url: "http://ups.com/track/1Z", wantErr: true},
		{name: "unknown carrier", url: "https://phishy.example/track", wantErr: true},
		{name: "suffix spoof", url: "https://evilups.com/track", wantErr: true},
		{name: "empty host", url: "https:///track", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateTrackingURL(tc.url, allowed)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for %s", tc.url)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error for %s: %v", tc.url, err)
			}
		})
	}
}
