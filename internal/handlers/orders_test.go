package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"glitchstore/internal/mercadopago"
	"glitchstore/internal/models"
	"glitchstore/internal/orders"
)

/* =========================
   STUBS
========================= */

type stubStore struct {
	orders   map[primitive.ObjectID]*models.Order
	payments map[primitive.ObjectID]*models.Payment
}

func newStubStore() *stubStore {
	return &stubStore{
		orders:   make(map[primitive.ObjectID]*models.Order),
		payments: make(map[primitive.ObjectID]*models.Payment),
	}
}

func (s *stubStore) ActiveProducts(_ context.Context, _ []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	return map[primitive.ObjectID]models.Product{}, nil
}

func (s *stubStore) CreateOrder(_ context.Context, order *models.Order, payment *models.Payment) error {
	s.orders[order.ID] = order
	s.payments[order.ID] = payment
	return nil
}

func (s *stubStore) OrderByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, &orders.NotFoundError{Resource: "order", ID: id.Hex()}
	}
	copied := *order
	return &copied, nil
}

func (s *stubStore) OrderByExternalRef(_ context.Context, ref string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.MPExternalReference == ref {
			copied := *order
			return &copied, nil
		}
	}
	return nil, &orders.NotFoundError{Resource: "order", ID: ref}
}

func (s *stubStore) PaymentByOrderID(_ context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	payment, ok := s.payments[orderID]
	if !ok {
		return nil, &orders.NotFoundError{Resource: "payment", ID: orderID.Hex()}
	}
	copied := *payment
	return &copied, nil
}

func (s *stubStore) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return nil, &orders.NotFoundError{Resource: "user", ID: id.Hex()}
}

func (s *stubStore) MarkPaymentPending(_ context.Context, orderID primitive.ObjectID, preferenceID string) error {
	if payment, ok := s.payments[orderID]; ok {
		payment.MPPreferenceID = preferenceID
	}
	if order, ok := s.orders[orderID]; ok && order.Status == models.OrderPending {
		order.Status = models.OrderPaymentPending
	}
	return nil
}

func (s *stubStore) ApplyPaymentResult(_ context.Context, orderID primitive.ObjectID, _ orders.PaymentUpdate, next models.OrderStatus, _ bool) (models.OrderStatus, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return "", &orders.NotFoundError{Resource: "order", ID: orderID.Hex()}
	}
	if next != "" {
		order.Status = next
	}
	return order.Status, nil
}

func (s *stubStore) UpdateOrderStatus(_ context.Context, id primitive.ObjectID, status models.OrderStatus, _ string) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, &orders.NotFoundError{Resource: "order", ID: id.Hex()}
	}
	order.Status = status
	copied := *order
	return &copied, nil
}

func (s *stubStore) ListOrders(_ context.Context, _ orders.OrderQuery) ([]models.Order, int64, error) {
	return []models.Order{}, 0, nil
}

type stubGateway struct {
	payments map[string]*mercadopago.PaymentDetails
}

func (g *stubGateway) CreatePreference(_ context.Context, _ mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	return &mercadopago.Preference{
		ID:               "pref-1",
		InitPoint:        "https://mp.example/init",
		SandboxInitPoint: "https://mp.example/sandbox",
	}, nil
}

func (g *stubGateway) GetPayment(_ context.Context, paymentID string) (*mercadopago.PaymentDetails, error) {
	details, ok := g.payments[paymentID]
	if !ok {
		return nil, &mercadopago.APIError{StatusCode: 404, Body: "payment not found"}
	}
	return details, nil
}

/* =========================
   HELPERS
========================= */

func newOrderRouter(store *stubStore, gateway *stubGateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := orders.NewService(store, gateway, orders.Config{
		FrontendURL: "https://shop.example",
		BackendURL:  "https://api.example",
	})
	r := gin.New()
	r.POST("/api/orders/:id/create-payment", CreatePayment(svc))
	r.POST("/api/webhooks/mercadopago", MercadoPagoWebhook(svc))
	return r
}

func seedOrder(store *stubStore, status models.OrderStatus) *models.Order {
	now := time.Now()
	order := &models.Order{
		ID:         primitive.NewObjectID(),
		GuestEmail: "guest@example.com",
		GuestName:  "Guest Buyer",
		Items: []models.OrderItem{{
			ID:          primitive.NewObjectID(),
			ProductID:   primitive.NewObjectID(),
			Quantity:    1,
			Price:       100,
			ProductName: "Producto",
		}},
		Total:               100,
		Status:              status,
		MPExternalReference: "order_1700000000000_abc123def",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	store.orders[order.ID] = order
	store.payments[order.ID] = &models.Payment{
		ID:        primitive.NewObjectID(),
		OrderID:   order.ID,
		Amount:    100,
		Status:    models.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return order
}

/* =========================
   CREATE PAYMENT
========================= */

func TestCreatePaymentSucceedsWithOK(t *testing.T) {
	store := newStubStore()
	order := seedOrder(store, models.OrderPending)
	router := newOrderRouter(store, &stubGateway{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+order.ID.Hex()+"/create-payment", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on preference creation, got %d", w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			PreferenceID string `json:"preferenceId"`
			PaymentURL   string `json:"paymentUrl"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.Data.PreferenceID != "pref-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if store.orders[order.ID].Status != models.OrderPaymentPending {
		t.Fatalf("expected order PAYMENT_PENDING, got %s", store.orders[order.ID].Status)
	}
}

func TestCreatePaymentRejectsNonPendingOrderWithBadRequest(t *testing.T) {
	store := newStubStore()
	order := seedOrder(store, models.OrderPaid)
	router := newOrderRouter(store, &stubGateway{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+order.ID.Hex()+"/create-payment", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-PENDING order, got %d", w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Success {
		t.Fatal("expected success=false")
	}
	if store.orders[order.ID].Status != models.OrderPaid {
		t.Fatalf("expected order untouched, got %s", store.orders[order.ID].Status)
	}
}
