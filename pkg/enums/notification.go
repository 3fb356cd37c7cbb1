package enums

// MailTemplate names the transactional mail sent to a customer.
type MailTemplate string

const (
	MailOrderConfirmation MailTemplate = "order_confirmation"
	MailPaymentReceived   MailTemplate = "payment_received"
	MailPaymentFailed     MailTemplate = "payment_failed"
	MailOrderShipped      MailTemplate = "order_shipped"
	MailOrderCancelled    MailTemplate = "order_cancelled"
)

// String implements fmt.Stringer.
func (m MailTemplate) String() string {
	return string(m)
}
