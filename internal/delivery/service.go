package delivery

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"glitchstore/internal/models"
)

// Catalog resolves cart items to their products and shipping categories.
type Catalog interface {
	ActiveProductsWithCategories(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]CatalogEntry, error)
}

type CatalogEntry struct {
	Product  models.Product
	Category models.Category
}

// RateClient is the carrier integration used for price and branch lookups.
type RateClient interface {
	CalculatePrice(ctx context.Context, originPostal, destPostal, destProvince string, weightKG float64) (*RateQuote, error)
	Branches(ctx context.Context, provinceCode string) ([]Branch, error)
}

type Config struct {
	OriginPostalCode string
	QuoteTTL         time.Duration
	BranchTTL        time.Duration
}

// Service quotes shipping for a cart and lists carrier branches, memoizing
// both behind per-partition TTL caches.
type Service struct {
	catalog  Catalog
	rates    RateClient
	cfg      Config
	quotes   *ttlCache
	branches *ttlCache
}

func NewService(catalog Catalog, rates RateClient, clock clockwork.Clock, cfg Config) *Service {
	return &Service{
		catalog:  catalog,
		rates:    rates,
		cfg:      cfg,
		quotes:   newTTLCache(clock),
		branches: newTTLCache(clock),
	}
}

// CalculatePackaging derives the parcel for a cart: weights add up across all
// units, dimensions come from the single category with the largest volume.
func (s *Service) CalculatePackaging(ctx context.Context, items []QuoteItem) (Packaging, error) {
	if len(items) == 0 {
		return Packaging{}, &PackagingError{Msg: "no items to package"}
	}

	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return Packaging{}, &PackagingError{Msg: fmt.Sprintf("invalid quantity for product %s", item.ProductID.Hex())}
		}
		ids = append(ids, item.ProductID)
	}

	entries, err := s.catalog.ActiveProductsWithCategories(ctx, ids)
	if err != nil {
		return Packaging{}, err
	}

	var totalWeight float64
	var maxVolume float64
	var bulkiest *models.Category
	for _, item := range items {
		entry, ok := entries[item.ProductID]
		if !ok {
			return Packaging{}, &PackagingError{Msg: fmt.Sprintf("product %s is not available", item.ProductID.Hex())}
		}
		category := entry.Category
		if !category.HasShippingData() {
			return Packaging{}, &PackagingError{Msg: fmt.Sprintf("category %q has no shipping data configured", category.Name)}
		}

		totalWeight += category.BaseWeight * float64(item.Quantity)

		volume := category.PackageWidth * category.PackageHeight * category.PackageLength
		if volume > maxVolume {
			maxVolume = volume
			c := category
			bulkiest = &c
		}
	}
	if bulkiest == nil {
		return Packaging{}, &PackagingError{Msg: "could not determine package dimensions"}
	}

	return Packaging{
		WeightKG: math.Round(totalWeight*100) / 100,
		HeightCM: bulkiest.PackageHeight,
		WidthCM:  bulkiest.PackageWidth,
		LengthCM: bulkiest.PackageLength,
	}, nil
}

// Quote returns the home-delivery price for a cart, served from cache when a
// fresh identical request exists.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	key := quoteCacheKey(req)
	if cached, ok := s.quotes.get(key); ok {
		log.Printf("[DELIVERY] [INFO] quote served from cache for %s", req.PostalCode)
		return cached.(*Quote), nil
	}

	packaging, err := s.CalculatePackaging(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	province := ProvinceForPostalCode(req.PostalCode)
	rate, err := s.rates.CalculatePrice(ctx, s.cfg.OriginPostalCode, req.PostalCode, province, packaging.WeightKG)
	if err != nil {
		return nil, &RateError{Err: err}
	}

	quote := &Quote{
		PostalCode: req.PostalCode,
		Packaging:  packaging,
		HomeDelivery: &QuoteOption{
			Price:        rate.Price,
			DeliveryDays: rate.DeliveryDays,
			Carrier:      rate.Carrier,
			Mode:         "domicilio",
		},
	}

	s.quotes.put(key, quote, s.cfg.QuoteTTL)
	return quote, nil
}

// Branches lists carrier pickup branches, optionally filtered by province.
func (s *Service) Branches(ctx context.Context, provinceCode string) ([]Branch, error) {
	key := "branches_" + provinceCode
	if cached, ok := s.branches.get(key); ok {
		return cached.([]Branch), nil
	}

	branches, err := s.rates.Branches(ctx, provinceCode)
	if err != nil {
		return nil, &RateError{Err: err}
	}

	s.branches.put(key, branches, s.cfg.BranchTTL)
	return branches, nil
}

// Sweep drops expired entries from both cache partitions.
func (s *Service) Sweep() {
	removed := s.quotes.sweep() + s.branches.sweep()
	if removed > 0 {
		log.Printf("[DELIVERY] [INFO] cache sweep removed %d expired entries", removed)
	}
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (s *Service) StartSweeper(ctx context.Context, clock clockwork.Clock, interval time.Duration) {
	go func() {
		ticker := clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.Sweep()
			}
		}
	}()
}

func (s *Service) CacheStats() CacheStats {
	return CacheStats{Quotes: s.quotes.stats(), Branches: s.branches.stats()}
}

// quoteCacheKey fingerprints a request independent of item order.
func quoteCacheKey(req QuoteRequest) string {
	parts := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		parts = append(parts, fmt.Sprintf("%s:%d", item.ProductID.Hex(), item.Quantity))
	}
	sort.Strings(parts)
	return "quote_" + req.PostalCode + "_" + strings.Join(parts, ",")
}
