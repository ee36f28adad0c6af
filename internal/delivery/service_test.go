package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"glitchstore/internal/models"
)

type fakeCatalog struct {
	entries map[primitive.ObjectID]CatalogEntry
}

func (f *fakeCatalog) ActiveProductsWithCategories(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]CatalogEntry, error) {
	result := make(map[primitive.ObjectID]CatalogEntry)
	for _, id := range ids {
		if entry, ok := f.entries[id]; ok {
			result[id] = entry
		}
	}
	return result, nil
}

type fakeRateClient struct {
	priceCalls  int
	branchCalls int
	lastProv    string
	lastWeight  float64
	err         error
}

func (f *fakeRateClient) CalculatePrice(_ context.Context, _, _, destProvince string, weightKG float64) (*RateQuote, error) {
	f.priceCalls++
	f.lastProv = destProvince
	f.lastWeight = weightKG
	if f.err != nil {
		return nil, f.err
	}
	return &RateQuote{Price: 5500, DeliveryDays: 4, Carrier: "Correo Argentino"}, nil
}

func (f *fakeRateClient) Branches(_ context.Context, _ string) ([]Branch, error) {
	f.branchCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []Branch{{ID: "1", Name: "Sucursal Centro"}}, nil
}

func seedCatalogProduct(catalog *fakeCatalog, category models.Category) primitive.ObjectID {
	id := primitive.NewObjectID()
	catalog.entries[id] = CatalogEntry{
		Product:  models.Product{ID: id, IsActive: true},
		Category: category,
	}
	return id
}

func newTestDeliveryService(catalog *fakeCatalog, rates *fakeRateClient, clock clockwork.Clock) *Service {
	return NewService(catalog, rates, clock, Config{
		OriginPostalCode: "3300",
		QuoteTTL:         15 * time.Minute,
		BranchTTL:        time.Hour,
	})
}

/* =========================
   PACKAGING
========================= */

func TestCalculatePackagingSumsWeightAndPicksBulkiestDimensions(t *testing.T) {
	catalog := &fakeCatalog{entries: make(map[primitive.ObjectID]CatalogEntry)}
	small := seedCatalogProduct(catalog, models.Category{
		Name: "Accesorios", BaseWeight: 0.2, PackageWidth: 10, PackageHeight: 5, PackageLength: 10,
	})
	big := seedCatalogProduct(catalog, models.Category{
		Name: "Consolas", BaseWeight: 1.5, PackageWidth: 40, PackageHeight: 20, PackageLength: 50,
	})

	svc := newTestDeliveryService(catalog, &fakeRateClient{}, clockwork.NewFakeClock())
	packaging, err := svc.CalculatePackaging(context.Background(), []QuoteItem{
		{ProductID: small, Quantity: 3},
		{ProductID: big, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("packaging failed: %v", err)
	}

	if packaging.WeightKG != 2.1 {
		t.Fatalf("expected weight 2.1 (3x0.2 + 1x1.5), got %v", packaging.WeightKG)
	}
	if packaging.WidthCM != 40 || packaging.HeightCM != 20 || packaging.LengthCM != 50 {
		t.Fatalf("expected bulkiest category dimensions, got %+v", packaging)
	}
}

func TestCalculatePackagingRequiresShippingData(t *testing.T) {
	catalog := &fakeCatalog{entries: make(map[primitive.ObjectID]CatalogEntry)}
	id := seedCatalogProduct(catalog, models.Category{Name: "Digital"})

	svc := newTestDeliveryService(catalog, &fakeRateClient{}, clockwork.NewFakeClock())
	_, err := svc.CalculatePackaging(context.Background(), []QuoteItem{{ProductID: id, Quantity: 1}})

	var packagingErr *PackagingError
	if !errors.As(err, &packagingErr) {
		t.Fatalf("expected PackagingError, got %v", err)
	}
}

func TestCalculatePackagingRejectsUnknownProduct(t *testing.T) {
	catalog := &fakeCatalog{entries: make(map[primitive.ObjectID]CatalogEntry)}
	svc := newTestDeliveryService(catalog, &fakeRateClient{}, clockwork.NewFakeClock())

	_, err := svc.CalculatePackaging(context.Background(), []QuoteItem{
		{ProductID: primitive.NewObjectID(), Quantity: 1},
	})

	var packagingErr *PackagingError
	if !errors.As(err, &packagingErr) {
		t.Fatalf("expected PackagingError for missing product, got %v", err)
	}
}

/* =========================
   PROVINCE MAPPING
========================= */

func TestProvinceForPostalCode(t *testing.T) {
	tests := []struct {
		postal string
		want   string
	}{
		{"1406", "AR-B"},
		{"2000", "AR-S"},
		{"3300", "AR-N"},
		{"4000", "AR-T"},
		{"5000", "AR-X"},
		{"6300", "AR-L"},
		{"7600", "AR-B"},
		{"8300", "AR-U"},
		{"9410", "AR-Z"},
		{"0999", "AR-B"},
		{"abc", "AR-B"},
		{"", "AR-B"},
	}
	for _, tt := range tests {
		if got := ProvinceForPostalCode(tt.postal); got != tt.want {
			t.Fatalf("ProvinceForPostalCode(%q) = %s, want %s", tt.postal, got, tt.want)
		}
	}
}

/* =========================
   QUOTES
========================= */

func TestQuoteHitsProviderOnceWithinTTL(t *testing.T) {
	catalog := &fakeCatalog{entries: make(map[primitive.ObjectID]CatalogEntry)}
	id := seedCatalogProduct(catalog, models.Category{
		Name: "Consolas", BaseWeight: 1.5, PackageWidth: 40, PackageHeight: 20, PackageLength: 50,
	})
	rates := &fakeRateClient{}
	clock := clockwork.NewFakeClock()
	svc := newTestDeliveryService(catalog, rates, clock)

	req := QuoteRequest{Items: []QuoteItem{{ProductID: id, Quantity: 1}}, PostalCode: "1406"}

	first, err := svc.Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if first.HomeDelivery == nil || first.HomeDelivery.Price != 5500 {
		t.Fatalf("unexpected quote: %+v", first.HomeDelivery)
	}
	if rates.lastProv != "AR-B" {
		t.Fatalf("expected destination province AR-B, got %s", rates.lastProv)
	}
	if rates.lastWeight != 1.5 {
		t.Fatalf("expected weight 1.5 passed to carrier, got %v", rates.lastWeight)
	}

	if _, err := svc.Quote(context.Background(), req); err != nil {
		t.Fatalf("cached quote failed: %v", err)
	}
	if rates.priceCalls != 1 {
		t.Fatalf("expected one carrier call within TTL, got %d", rates.priceCalls)
	}

	clock.Advance(16 * time.Minute)
	if _, err := svc.Quote(context.Background(), req); err != nil {
		t.Fatalf("post-expiry quote failed: %v", err)
	}
	if rates.priceCalls != 2 {
		t.Fatalf("expected a fresh carrier call after TTL expiry, got %d", rates.priceCalls)
	}
}

func TestQuoteKeyIsItemOrderInsensitive(t *testing.T) {
	catalog := &fakeCatalog{entries: make(map[primitive.ObjectID]CatalogEntry)}
	a := seedCatalogProduct(catalog, models.Category{
		Name: "A", BaseWeight: 1, PackageWidth: 10, PackageHeight: 10, PackageLength: 10,
	})
	b := seedCatalogProduct(catalog, models.Category{
		Name: "B", BaseWeight: 2, PackageWidth: 20, PackageHeight: 20, PackageLength: 20,
	})
	rates := &fakeRateClient{}
	svc := newTestDeliveryService(catalog, rates, clockwork.NewFakeClock())

	if _, err := svc.Quote(context.Background(), QuoteRequest{
		Items:      []QuoteItem{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 2}},
		PostalCode: "3300",
	}); err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if _, err := svc.Quote(context.Background(), QuoteRequest{
		Items:      []QuoteItem{{ProductID: b, Quantity: 2}, {ProductID: a, Quantity: 1}},
		PostalCode: "3300",
	}); err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	if rates.priceCalls != 1 {
		t.Fatalf("reordered items must hit the same cache entry, got %d carrier calls", rates.priceCalls)
	}
}

func TestQuoteCarrierFailureIsRateError(t *testing.T) {
	catalog := &fakeCatalog{entries: make(map[primitive.ObjectID]CatalogEntry)}
	id := seedCatalogProduct(catalog, models.Category{
		Name: "A", BaseWeight: 1, PackageWidth: 10, PackageHeight: 10, PackageLength: 10,
	})
	rates := &fakeRateClient{err: errors.New("timeout")}
	svc := newTestDeliveryService(catalog, rates, clockwork.NewFakeClock())

	_, err := svc.Quote(context.Background(), QuoteRequest{
		Items:      []QuoteItem{{ProductID: id, Quantity: 1}},
		PostalCode: "3300",
	})

	var rateErr *RateError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateError, got %v", err)
	}
	if stats := svc.CacheStats(); stats.Quotes.Size != 0 {
		t.Fatal("failed lookups must not be cached")
	}
}

/* =========================
   BRANCHES
========================= */

func TestBranchesCachedPerProvince(t *testing.T) {
	rates := &fakeRateClient{}
	clock := clockwork.NewFakeClock()
	svc := newTestDeliveryService(&fakeCatalog{entries: make(map[primitive.ObjectID]CatalogEntry)}, rates, clock)

	if _, err := svc.Branches(context.Background(), "AR-N"); err != nil {
		t.Fatalf("branches failed: %v", err)
	}
	if _, err := svc.Branches(context.Background(), "AR-N"); err != nil {
		t.Fatalf("branches failed: %v", err)
	}
	if rates.branchCalls != 1 {
		t.Fatalf("expected one carrier call for same province, got %d", rates.branchCalls)
	}

	if _, err := svc.Branches(context.Background(), "AR-B"); err != nil {
		t.Fatalf("branches failed: %v", err)
	}
	if rates.branchCalls != 2 {
		t.Fatalf("different province must miss the cache, got %d calls", rates.branchCalls)
	}

	clock.Advance(61 * time.Minute)
	if _, err := svc.Branches(context.Background(), "AR-N"); err != nil {
		t.Fatalf("branches failed: %v", err)
	}
	if rates.branchCalls != 3 {
		t.Fatalf("expected refetch after branch TTL, got %d calls", rates.branchCalls)
	}
}

func TestSweepDropsExpiredQuoteEntries(t *testing.T) {
	catalog := &fakeCatalog{entries: make(map[primitive.ObjectID]CatalogEntry)}
	id := seedCatalogProduct(catalog, models.Category{
		Name: "A", BaseWeight: 1, PackageWidth: 10, PackageHeight: 10, PackageLength: 10,
	})
	rates := &fakeRateClient{}
	clock := clockwork.NewFakeClock()
	svc := newTestDeliveryService(catalog, rates, clock)

	if _, err := svc.Quote(context.Background(), QuoteRequest{
		Items:      []QuoteItem{{ProductID: id, Quantity: 1}},
		PostalCode: "3300",
	}); err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if _, err := svc.Branches(context.Background(), "AR-N"); err != nil {
		t.Fatalf("branches failed: %v", err)
	}

	clock.Advance(30 * time.Minute)
	svc.Sweep()

	stats := svc.CacheStats()
	if stats.Quotes.Size != 0 {
		t.Fatalf("expected quote entry swept after 30m, got %d", stats.Quotes.Size)
	}
	if stats.Branches.Size != 1 {
		t.Fatalf("branch entry has a 1h TTL and must survive, got %d", stats.Branches.Size)
	}
}
