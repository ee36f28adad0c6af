package models

type OrderStatus string

const (
	OrderPending        OrderStatus = "PENDING"
	OrderPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderPaid           OrderStatus = "PAID"
	OrderPreparing      OrderStatus = "PREPARING"
	OrderShipped        OrderStatus = "SHIPPED"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCancelled      OrderStatus = "CANCELLED"
	OrderRefunded       OrderStatus = "REFUNDED"
)

var orderStatuses = map[OrderStatus]bool{
	OrderPending:        true,
	OrderPaymentPending: true,
	OrderPaid:           true,
	OrderPreparing:      true,
	OrderShipped:        true,
	OrderDelivered:      true,
	OrderCancelled:      true,
	OrderRefunded:       true,
}

// ValidOrderStatus reports whether s is part of the enumerated status set. The
// admin status update accepts any member; no transition graph is enforced
// there.
func ValidOrderStatus(s string) bool {
	return orderStatuses[OrderStatus(s)]
}

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "PENDING"
	PaymentApproved    PaymentStatus = "APPROVED"
	PaymentInProcess   PaymentStatus = "IN_PROCESS"
	PaymentRejected    PaymentStatus = "REJECTED"
	PaymentCancelled   PaymentStatus = "CANCELLED"
	PaymentRefunded    PaymentStatus = "REFUNDED"
	PaymentChargedBack PaymentStatus = "CHARGED_BACK"
	PaymentInMediation PaymentStatus = "IN_MEDIATION"
)

var mpStatusMap = map[string]PaymentStatus{
	"approved":     PaymentApproved,
	"pending":      PaymentPending,
	"in_process":   PaymentInProcess,
	"rejected":     PaymentRejected,
	"cancelled":    PaymentCancelled,
	"refunded":     PaymentRefunded,
	"charged_back": PaymentChargedBack,
	"in_mediation": PaymentInMediation,
}

// PaymentStatusFromMP normalizes a provider status string. Unknown strings map
// to PENDING rather than failing, so new provider statuses never break the
// webhook path.
func PaymentStatusFromMP(mpStatus string) PaymentStatus {
	if s, ok := mpStatusMap[mpStatus]; ok {
		return s
	}
	return PaymentPending
}
