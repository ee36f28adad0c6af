package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"glitchstore/internal/mercadopago"
	"glitchstore/internal/models"
)

// PaymentGateway is the external payment provider. The real implementation is
// the mercadopago client; tests inject a fake.
type PaymentGateway interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.PaymentDetails, error)
}

// Config carries the URLs the engine needs to build provider redirect and
// webhook callback links.
type Config struct {
	FrontendURL string
	BackendURL  string
}

// Service is the order reconciliation engine: checkout, payment-preference
// creation, and webhook-driven state transition.
type Service struct {
	store   Store
	gateway PaymentGateway
	cfg     Config
	now     func() time.Time
}

func NewService(store Store, gateway PaymentGateway, cfg Config) *Service {
	return &Service{store: store, gateway: gateway, cfg: cfg, now: time.Now}
}

type CheckoutItem struct {
	ProductID primitive.ObjectID
	Quantity  int
}

type CheckoutInput struct {
	Items           []CheckoutItem
	UserID          *primitive.ObjectID
	GuestEmail      string
	GuestName       string
	ShippingAddress models.ShippingInfo
	Notes           string
}

// OrderView is an order with its payment sub-resource attached.
type OrderView struct {
	models.Order
	Payment *models.Payment `json:"payment,omitempty"`
}

// Checkout converts a cart into a persisted order. Stock is checked, not
// reserved; no external call is made and no stock is decremented here. The
// order, its items and a PENDING payment row are written in one transaction.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*OrderView, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}
	if in.UserID == nil && (strings.TrimSpace(in.GuestEmail) == "" || strings.TrimSpace(in.GuestName) == "") {
		return nil, ErrGuestContactRequired
	}

	ids := make([]primitive.ObjectID, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.store.ActiveProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]models.OrderItem, 0, len(in.Items))
	total := 0.0
	// A product listed on several lines is checked against its combined
	// quantity, not each line in isolation.
	requested := make(map[primitive.ObjectID]int, len(in.Items))
	for _, item := range in.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, &StockError{ProductID: item.ProductID, Requested: item.Quantity, Missing: true}
		}
		requested[item.ProductID] += item.Quantity
		if product.Stock < requested[item.ProductID] {
			return nil, &StockError{ProductID: item.ProductID, Requested: requested[item.ProductID], Available: product.Stock}
		}

		unitPrice := product.EffectivePrice()
		items = append(items, models.OrderItem{
			ID:           primitive.NewObjectID(),
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			Price:        unitPrice,
			ProductName:  product.Name,
			ProductImage: product.ImageURL,
		})
		total += unitPrice * float64(item.Quantity)
	}

	order := models.Order{
		ID:                  primitive.NewObjectID(),
		UserID:              in.UserID,
		GuestEmail:          strings.TrimSpace(in.GuestEmail),
		GuestName:           strings.TrimSpace(in.GuestName),
		Items:               items,
		Total:               total,
		Status:              models.OrderPending,
		MPExternalReference: s.newExternalReference(),
		Notes:               in.Notes,
		ShippingInfo:        normalizeShipping(in.ShippingAddress),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	payment := models.Payment{
		ID:        primitive.NewObjectID(),
		OrderID:   order.ID,
		Amount:    total,
		Status:    models.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateOrder(ctx, &order, &payment); err != nil {
		return nil, err
	}

	log.Printf("[ORDER] [INFO] order %s created, total %.2f, ref %s", order.ID.Hex(), total, order.MPExternalReference)
	return &OrderView{Order: order, Payment: &payment}, nil
}

// newExternalReference builds the correlation token echoed back by the
// provider: order_<unix-millis>_<9-char suffix>.
func (s *Service) newExternalReference() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("order_%d_%s", s.now().UnixMilli(), suffix)
}

func normalizeShipping(addr models.ShippingInfo) models.ShippingInfo {
	if strings.TrimSpace(addr.Country) == "" {
		addr.Country = "Argentina"
	}
	return addr
}

type PreferenceResult struct {
	OrderID           primitive.ObjectID `json:"orderId"`
	PreferenceID      string             `json:"preferenceId"`
	PaymentURL        string             `json:"paymentUrl"`
	SandboxPaymentURL string             `json:"sandboxPaymentUrl"`
}

// CreatePreference opens a hosted checkout session for a PENDING order. The
// order and payment rows are only mutated after the provider call succeeds;
// on failure the order stays PENDING and the caller may retry.
func (s *Service) CreatePreference(ctx context.Context, orderID primitive.ObjectID) (*PreferenceResult, error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPending {
		return nil, &StateConflictError{OrderID: order.ID, Status: order.Status}
	}

	payerName, payerEmail := order.GuestName, order.GuestEmail
	if order.UserID != nil {
		user, err := s.store.UserByID(ctx, *order.UserID)
		if err != nil {
			return nil, err
		}
		payerName, payerEmail = user.FullName(), user.Email
	}

	items := make([]mercadopago.PreferenceItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, mercadopago.PreferenceItem{
			ID:         item.ProductID.Hex(),
			Title:      item.ProductName,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
			CurrencyID: "ARS",
			PictureURL: item.ProductImage,
		})
	}

	now := s.now()
	req := mercadopago.PreferenceRequest{
		Items: items,
		Payer: &mercadopago.PreferencePayer{Name: payerName, Email: payerEmail},
		BackURLs: &mercadopago.BackURLs{
			Success: fmt.Sprintf("%s/orders/%s/success", s.cfg.FrontendURL, order.ID.Hex()),
			Failure: fmt.Sprintf("%s/orders/%s/failure", s.cfg.FrontendURL, order.ID.Hex()),
			Pending: fmt.Sprintf("%s/orders/%s/pending", s.cfg.FrontendURL, order.ID.Hex()),
		},
		ExternalReference:   order.MPExternalReference,
		NotificationURL:     s.cfg.BackendURL + "/api/webhooks/mercadopago",
		StatementDescriptor: "GLITCH-STORE",
		Expires:             true,
		ExpirationDateFrom:  now.Format(time.RFC3339),
		ExpirationDateTo:    now.Add(24 * time.Hour).Format(time.RFC3339),
	}

	pref, err := s.gateway.CreatePreference(ctx, req)
	if err != nil {
		return nil, &ProviderError{Op: "create preference", Err: err}
	}

	if err := s.store.MarkPaymentPending(ctx, order.ID, pref.ID); err != nil {
		return nil, err
	}

	log.Printf("[ORDER] [INFO] preference %s created for order %s", pref.ID, order.ID.Hex())
	return &PreferenceResult{
		OrderID:           order.ID,
		PreferenceID:      pref.ID,
		PaymentURL:        pref.InitPoint,
		SandboxPaymentURL: pref.SandboxInitPoint,
	}, nil
}

// CheckoutComplete composes Checkout and CreatePreference in one call.
func (s *Service) CheckoutComplete(ctx context.Context, in CheckoutInput) (*OrderView, *PreferenceResult, error) {
	order, err := s.Checkout(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	pref, err := s.CreatePreference(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	return order, pref, nil
}

// Notification is the provider-pushed webhook payload, already bound at the
// HTTP boundary. RawPayload retains the original body for audit.
type Notification struct {
	Type              string
	PaymentID         string
	ExternalReference string
	RawPayload        []byte
}

type WebhookResult struct {
	OrderID *primitive.ObjectID `json:"orderId,omitempty"`
	Status  models.OrderStatus  `json:"status,omitempty"`
	Ignored bool                `json:"-"`
}

// ProcessWebhook reconciles order and payment state from a provider
// notification. Delivery is at-least-once and unordered; replays of an
// approved payment never double-decrement stock (the store skips the PAID
// transition when already applied).
func (s *Service) ProcessWebhook(ctx context.Context, n Notification) (*WebhookResult, error) {
	if n.Type != "payment" {
		log.Printf("[WEBHOOK] [INFO] ignoring notification type %q", n.Type)
		return &WebhookResult{Ignored: true}, nil
	}
	if strings.TrimSpace(n.PaymentID) == "" {
		return nil, ErrMissingPaymentID
	}

	// The payload is only a pointer: re-fetch the authoritative payment
	// record from the provider before trusting any of it.
	details, err := s.gateway.GetPayment(ctx, n.PaymentID)
	if err != nil {
		return nil, &ProviderError{Op: "get payment " + n.PaymentID, Err: err}
	}

	ref := details.ExternalReference
	if ref == "" {
		ref = n.ExternalReference
	}
	if ref == "" {
		return nil, &DataIntegrityError{ExternalReference: ""}
	}

	order, err := s.store.OrderByExternalRef(ctx, ref)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil, &DataIntegrityError{ExternalReference: ref}
		}
		return nil, err
	}

	next := models.OrderStatus("")
	decrement := false
	switch details.Status {
	case "approved":
		next = models.OrderPaid
		decrement = true
	case "rejected", "cancelled":
		next = models.OrderCancelled
	}

	upd := PaymentUpdate{
		MPPaymentID:    strconv.FormatInt(details.ID, 10),
		MPStatus:       details.Status,
		MPStatusDetail: details.StatusDetail,
		MPPaymentType:  details.PaymentTypeID,
		MPInstallments: details.Installments,
		Status:         models.PaymentStatusFromMP(details.Status),
		RawPayload:     n.RawPayload,
	}

	final, err := s.store.ApplyPaymentResult(ctx, order.ID, upd, next, decrement)
	if err != nil {
		return nil, err
	}

	log.Printf("[WEBHOOK] [INFO] order %s reconciled: provider status %q -> order %s", order.ID.Hex(), details.Status, final)
	return &WebhookResult{OrderID: &order.ID, Status: final}, nil
}

type CartItemVerification struct {
	ProductID      primitive.ObjectID `json:"productId"`
	Available      bool               `json:"available"`
	Message        string             `json:"message"`
	CurrentPrice   float64            `json:"currentPrice,omitempty"`
	AvailableStock int                `json:"availableStock,omitempty"`
}

type CartVerification struct {
	AllAvailable bool                   `json:"allAvailable"`
	Items        []CartItemVerification `json:"items"`
}

// VerifyCart is the read-only pre-checkout probe. It mutates nothing and does
// not reserve stock; checkout repeats the check authoritatively.
func (s *Service) VerifyCart(ctx context.Context, items []CheckoutItem) (*CartVerification, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.store.ActiveProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &CartVerification{AllAvailable: true, Items: make([]CartItemVerification, 0, len(items))}
	for _, item := range items {
		product, ok := products[item.ProductID]
		switch {
		case !ok:
			result.AllAvailable = false
			result.Items = append(result.Items, CartItemVerification{
				ProductID: item.ProductID,
				Message:   "product not found or inactive",
			})
		case product.Stock < item.Quantity:
			result.AllAvailable = false
			result.Items = append(result.Items, CartItemVerification{
				ProductID:      item.ProductID,
				Message:        fmt.Sprintf("insufficient stock, available: %d", product.Stock),
				AvailableStock: product.Stock,
			})
		default:
			result.Items = append(result.Items, CartItemVerification{
				ProductID:      item.ProductID,
				Available:      true,
				Message:        "available",
				CurrentPrice:   product.EffectivePrice(),
				AvailableStock: product.Stock,
			})
		}
	}
	return result, nil
}

// GetOrder returns an order with its payment sub-resource.
func (s *Service) GetOrder(ctx context.Context, id primitive.ObjectID) (*OrderView, error) {
	order, err := s.store.OrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	payment, err := s.store.PaymentByOrderID(ctx, order.ID)
	if err != nil {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		payment = nil
	}
	return &OrderView{Order: *order, Payment: payment}, nil
}

// UpdateStatus is the audited admin override over the enumerated status set.
func (s *Service) UpdateStatus(ctx context.Context, id primitive.ObjectID, status, notes string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}
	order, err := s.store.UpdateOrderStatus(ctx, id, models.OrderStatus(status), notes)
	if err != nil {
		return nil, err
	}
	log.Printf("[ORDER] [INFO] order %s status set to %s by admin", id.Hex(), status)
	return order, nil
}

type Pagination struct {
	Page    int64 `json:"page"`
	Limit   int64 `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

// ListOrders returns a filtered page of orders plus pagination metadata.
func (s *Service) ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, *Pagination, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 12
	}

	list, total, err := s.store.ListOrders(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	pages := (total + q.Limit - 1) / q.Limit
	return list, &Pagination{
		Page:    q.Page,
		Limit:   q.Limit,
		Total:   total,
		Pages:   pages,
		HasNext: q.Page < pages,
		HasPrev: q.Page > 1,
	}, nil
}
