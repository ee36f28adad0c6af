package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreatePreferenceSendsAuthAndBody(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq PreferenceRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Preference{
			ID:        "pref-1",
			InitPoint: "https://mp.example/init",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "TEST-TOKEN", 2*time.Second)
	pref, err := client.CreatePreference(context.Background(), PreferenceRequest{
		Items:             []PreferenceItem{{ID: "p1", Title: "Producto", Quantity: 1, UnitPrice: 100, CurrencyID: "ARS"}},
		ExternalReference: "order_1_abc123def",
	})
	if err != nil {
		t.Fatalf("create preference failed: %v", err)
	}

	if gotAuth != "Bearer TEST-TOKEN" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotPath != "/checkout/preferences" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotReq.ExternalReference != "order_1_abc123def" {
		t.Fatalf("unexpected external reference: %s", gotReq.ExternalReference)
	}
	if pref.ID != "pref-1" || pref.InitPoint != "https://mp.example/init" {
		t.Fatalf("unexpected preference: %+v", pref)
	}
}

func TestGetPaymentDecodesDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/555" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PaymentDetails{
			ID:                555,
			Status:            "approved",
			StatusDetail:      "accredited",
			PaymentTypeID:     "credit_card",
			Installments:      3,
			ExternalReference: "order_1_abc123def",
			TransactionAmount: 240,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "TEST-TOKEN", 2*time.Second)
	details, err := client.GetPayment(context.Background(), "555")
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}

	if details.ID != 555 || details.Status != "approved" || details.ExternalReference != "order_1_abc123def" {
		t.Fatalf("unexpected details: %+v", details)
	}
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Payment not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "TEST-TOKEN", 2*time.Second)
	_, err := client.GetPayment(context.Background(), "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status code: %d", apiErr.StatusCode)
	}
}
