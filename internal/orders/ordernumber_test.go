package orders

import (
	"regexp"
	"testing"
	"time"
)

var orderNumberPattern = regexp.MustCompile(`^LU-\d{8}-\d{6}-[0-9A-F]{8}$`)

func TestNewOrderNumberFormat(t *testing.T) {
	at := time.Date(2026, 9, 1, 14, 30, 5, 0, time.UTC)
	number, err := newOrderNumber(at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !orderNumberPattern.MatchString(number) {
		t.Fatalf("order number %q does not match expected format", number)
	}
	if number[:19] != "LU-20260901-143005-" {
		t.Fatalf("unexpected timestamp component in %q", number)
	}
}

func TestNewOrderNumberUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	at := time.Date(2026, 9, 1, 2, 0, 0, 0, loc)
	number, err := newOrderNumber(at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if number[:12] != "LU-20260831-" {
		t.Fatalf("expected UTC date 20260831 in %q", number)
	}
}

func TestNewOrderNumberVaries(t *testing.T) {
	at := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		number, err := newOrderNumber(at)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[number] {
			t.Fatalf("duplicate order number %q within same second", number)
		}
		seen[number] = true
	}
}
