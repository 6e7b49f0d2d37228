package order

// Order status values. This package is the sole authority for legal
// transitions; nothing else assigns these strings directly.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusPreparing = "preparing"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
	StatusReturned  = "returned"
)

// Payment status values, tracked independently of order status.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// transitions lists the forward path. Cancel and Return have their own guards
// and are not reachable through SetStatus.
var transitions = map[string]string{
	StatusPending:   StatusConfirmed,
	StatusConfirmed: StatusPreparing,
	StatusPreparing: StatusShipped,
	StatusShipped:   StatusDelivered,
}

func canAdvance(from, to string) bool {
	return transitions[from] == to
}

func canCancel(status, paymentStatus string) bool {
	if paymentStatus == PaymentPaid {
		return false
	}
	return status == StatusPending || status == StatusConfirmed
}
