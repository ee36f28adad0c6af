package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category groups products and carries the shipping profile used by the
// delivery packaging calculation. A zero BaseWeight means the category has no
// shipping data configured and cannot be quoted.
type Category struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	BaseWeight    float64            `bson:"baseWeight,omitempty" json:"baseWeight,omitempty"`       // kg per unit
	PackageWidth  float64            `bson:"packageWidth,omitempty" json:"packageWidth,omitempty"`   // cm
	PackageHeight float64            `bson:"packageHeight,omitempty" json:"packageHeight,omitempty"` // cm
	PackageLength float64            `bson:"packageLength,omitempty" json:"packageLength,omitempty"` // cm
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// HasShippingData reports whether the category can participate in a delivery
// quote.
func (c Category) HasShippingData() bool {
	return c.BaseWeight > 0 && c.PackageWidth > 0 && c.PackageHeight > 0 && c.PackageLength > 0
}
