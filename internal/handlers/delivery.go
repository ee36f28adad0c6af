package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"glitchstore/internal/delivery"
)

type quoteItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type quoteRequest struct {
	Items      []quoteItemRequest `json:"items" binding:"required,min=1,dive"`
	PostalCode string             `json:"postalCode" binding:"required"`
}

func QuoteShipping(svc *delivery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /delivery/quote"
		defer handlePanic(c, route)

		var req quoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		items := make([]delivery.QuoteItem, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := primitive.ObjectIDFromHex(item.ProductID)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid productId: "+item.ProductID)
				return
			}
			items = append(items, delivery.QuoteItem{ProductID: productID, Quantity: item.Quantity})
		}

		ctx, cancel := contextWithTimeout(c, 10*time.Second)
		defer cancel()

		quote, err := svc.Quote(ctx, delivery.QuoteRequest{Items: items, PostalCode: req.PostalCode})
		if err != nil {
			respondDeliveryError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, "", quote)
	}
}

func ListBranches(svc *delivery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /delivery/branches"
		defer handlePanic(c, route)

		province := c.Param("provinceCode")
		if province == "" {
			province = c.Query("provincia")
		}

		ctx, cancel := contextWithTimeout(c, 10*time.Second)
		defer cancel()

		branches, err := svc.Branches(ctx, province)
		if err != nil {
			respondDeliveryError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, "", branches)
	}
}

func DeliveryCacheStats(svc *delivery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /delivery/cache-stats"
		defer handlePanic(c, route)

		respondData(c, http.StatusOK, "", svc.CacheStats())
	}
}

func respondDeliveryError(c *gin.Context, route string, err error) {
	var packaging *delivery.PackagingError
	if errors.As(err, &packaging) {
		respondWithError(c, http.StatusBadRequest, route, packaging.Error())
		return
	}
	var rate *delivery.RateError
	if errors.As(err, &rate) {
		respondWithError(c, http.StatusBadGateway, route, "shipping provider unavailable")
		return
	}
	respondWithError(c, http.StatusInternalServerError, route, "internal server error")
}
