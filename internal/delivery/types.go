package delivery

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type QuoteItem struct {
	ProductID primitive.ObjectID `json:"productId"`
	Quantity  int                `json:"quantity"`
}

type QuoteRequest struct {
	Items      []QuoteItem `json:"items"`
	PostalCode string      `json:"postalCode"`
}

// Packaging is the parcel derived from the cart: summed weight, dimensions of
// the bulkiest category.
type Packaging struct {
	WeightKG float64 `json:"weightKg"`
	HeightCM float64 `json:"heightCm"`
	WidthCM  float64 `json:"widthCm"`
	LengthCM float64 `json:"lengthCm"`
}

type QuoteOption struct {
	Price        float64 `json:"price"`
	DeliveryDays int     `json:"deliveryDays"`
	Carrier      string  `json:"carrier"`
	Mode         string  `json:"mode"`
}

type Quote struct {
	PostalCode   string       `json:"postalCode"`
	Packaging    Packaging    `json:"packaging"`
	HomeDelivery *QuoteOption `json:"homeDelivery,omitempty"`
}

type Branch struct {
	ID         string `json:"id"`
	Name       string `json:"nombre"`
	Address    string `json:"direccion"`
	City       string `json:"localidad"`
	Province   string `json:"provincia"`
	PostalCode string `json:"codigoPostal"`
	Phone      string `json:"telefono,omitempty"`
	Hours      string `json:"horarios,omitempty"`
}

// RateQuote is the carrier's answer for one parcel.
type RateQuote struct {
	Price        float64
	DeliveryDays int
	Carrier      string
}

type PartitionStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

type CacheStats struct {
	Quotes   PartitionStats `json:"quotes"`
	Branches PartitionStats `json:"branches"`
}

// PackagingError means the cart cannot be turned into a parcel: a product is
// missing or its category has no shipping data configured.
type PackagingError struct {
	Msg string
}

func (e *PackagingError) Error() string { return e.Msg }

// RateError wraps a failed carrier call; surfaced as a provider failure.
type RateError struct {
	Err error
}

func (e *RateError) Error() string { return fmt.Sprintf("shipping rate lookup: %v", e.Err) }

func (e *RateError) Unwrap() error { return e.Err }
