package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment tracks the provider side of one order. At most one Payment exists
// per order; it is created PENDING alongside the order and only mutated by the
// preference-creation and webhook paths.
type Payment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID        primitive.ObjectID `bson:"orderId" json:"orderId"`
	Amount         float64            `bson:"amount" json:"amount"`
	Status         PaymentStatus      `bson:"status" json:"status"`
	MPPaymentID    string             `bson:"mpPaymentId,omitempty" json:"mpPaymentId,omitempty"`
	MPPreferenceID string             `bson:"mpPreferenceId,omitempty" json:"mpPreferenceId,omitempty"`
	MPStatus       string             `bson:"mpStatus,omitempty" json:"mpStatus,omitempty"`
	MPStatusDetail string             `bson:"mpStatusDetail,omitempty" json:"mpStatusDetail,omitempty"`
	MPPaymentType  string             `bson:"mpPaymentType,omitempty" json:"mpPaymentType,omitempty"`
	MPInstallments int                `bson:"mpInstallments,omitempty" json:"mpInstallments,omitempty"`
	// WebhookData keeps the last raw notification body for audit/debugging.
	WebhookData string    `bson:"webhookData,omitempty" json:"-"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}
