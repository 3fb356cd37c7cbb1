package orders

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// newOrderNumber builds a human-readable order number from a timestamp
// component plus four cryptographically random bytes. There is no central
// sequence, so concurrent creators cannot contend; the unique constraint on
// orders.order_number catches the negligible collision case and the caller
// retries with a fresh number.
func newOrderNumber(now time.Time) (string, error) {
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", fmt.Errorf("generating order number suffix: %w", err)
	}
	return fmt.Sprintf(
		"LU-%s-%s",
		now.UTC().Format("20060102-150405"),
		strings.ToUpper(hex.EncodeToString(suffix[:])),
	), nil
}
