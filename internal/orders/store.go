package orders

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"glitchstore/internal/models"
)

// OrderQuery filters and paginates order listings.
type OrderQuery struct {
	Page      int64
	Limit     int64
	Status    string
	UserID    *primitive.ObjectID
	StartDate *time.Time
	EndDate   *time.Time
}

// PaymentUpdate carries the reconciled provider state written to the Payment
// row by the webhook path. RawPayload keeps the full notification for audit.
type PaymentUpdate struct {
	MPPaymentID    string
	MPStatus       string
	MPStatusDetail string
	MPPaymentType  string
	MPInstallments int
	Status         models.PaymentStatus
	RawPayload     []byte
}

// Store is the persistence gateway for the reconciliation engine. All
// multi-row mutations are atomic: readers never observe a half-written order.
type Store interface {
	// ActiveProducts returns the active products among ids, keyed by id.
	ActiveProducts(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error)

	// CreateOrder persists order and payment in one transaction.
	CreateOrder(ctx context.Context, order *models.Order, payment *models.Payment) error

	OrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	OrderByExternalRef(ctx context.Context, ref string) (*models.Order, error)
	PaymentByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)

	// MarkPaymentPending records the provider preference id and moves the
	// order to PAYMENT_PENDING, but only if the order is still PENDING: a
	// webhook racing ahead of the preference response must not be undone.
	MarkPaymentPending(ctx context.Context, orderID primitive.ObjectID, preferenceID string) error

	// ApplyPaymentResult atomically writes upd to the Payment row and moves
	// the order to next ("" keeps the current status). When decrementStock is
	// set, product stock is decremented for each line item exactly once: if
	// the order is already PAID the decrement and the transition are skipped,
	// so webhook replays are harmless. Returns the resulting order status.
	ApplyPaymentResult(ctx context.Context, orderID primitive.ObjectID, upd PaymentUpdate, next models.OrderStatus, decrementStock bool) (models.OrderStatus, error)

	// UpdateOrderStatus is the audited admin override. No transition graph is
	// enforced beyond the enumerated status set (validated by the caller).
	UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus, notes string) (*models.Order, error)

	ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, int64, error)
}
