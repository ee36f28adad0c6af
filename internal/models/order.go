package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShippingInfo is the address snapshot captured at checkout time.
type ShippingInfo struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipCode" json:"zipCode"`
	Country string `bson:"country" json:"country"`
}

// OrderItem is an immutable line item snapshot. Name, image and unit price are
// copied from the product at order time and never re-derived afterwards.
type OrderItem struct {
	ID           primitive.ObjectID `bson:"id" json:"id"`
	ProductID    primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity     int                `bson:"quantity" json:"quantity"`
	Price        float64            `bson:"price" json:"price"`
	ProductName  string             `bson:"productName" json:"productName"`
	ProductImage string             `bson:"productImage,omitempty" json:"productImage,omitempty"`
}

// Order is one checkout attempt. MPExternalReference is the correlation token
// echoed back by the payment provider; it is unique and immutable once set.
type Order struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID              *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	GuestEmail          string              `bson:"guestEmail,omitempty" json:"guestEmail,omitempty"`
	GuestName           string              `bson:"guestName,omitempty" json:"guestName,omitempty"`
	Items               []OrderItem         `bson:"items" json:"items"`
	Total               float64             `bson:"total" json:"total"`
	Status              OrderStatus         `bson:"status" json:"status"`
	MPExternalReference string              `bson:"mpExternalReference" json:"mpExternalReference"`
	Notes               string              `bson:"notes,omitempty" json:"notes,omitempty"`
	ShippingInfo        ShippingInfo        `bson:"shippingInfo" json:"shippingInfo"`
	CreatedAt           time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time           `bson:"updatedAt" json:"updatedAt"`
}
