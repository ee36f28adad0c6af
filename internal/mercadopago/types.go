package mercadopago

// Wire shapes for the two provider endpoints the backend uses: hosted checkout
// preference creation and payment detail lookup.

type PreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
	PictureURL string  `json:"picture_url,omitempty"`
}

type PreferencePayer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type BackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type PreferenceRequest struct {
	Items               []PreferenceItem `json:"items"`
	Payer               *PreferencePayer `json:"payer,omitempty"`
	BackURLs            *BackURLs        `json:"back_urls,omitempty"`
	ExternalReference   string           `json:"external_reference"`
	NotificationURL     string           `json:"notification_url,omitempty"`
	StatementDescriptor string           `json:"statement_descriptor,omitempty"`
	Expires             bool             `json:"expires,omitempty"`
	ExpirationDateFrom  string           `json:"expiration_date_from,omitempty"`
	ExpirationDateTo    string           `json:"expiration_date_to,omitempty"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// PaymentDetails is the authoritative payment record re-fetched from the
// provider during webhook reconciliation. Webhook payloads only point at it.
type PaymentDetails struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	PaymentTypeID     string  `json:"payment_type_id"`
	Installments      int     `json:"installments"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
}
