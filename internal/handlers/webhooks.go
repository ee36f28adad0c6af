package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"glitchstore/internal/orders"
)

type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
	ExternalReference string `json:"external_reference"`
}

// WebhookTest echoes what the caller sent; used to verify the provider can
// reach the deployment before going live.
func WebhookTest() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ANY /webhooks/test"
		defer handlePanic(c, route)

		body, _ := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		respondData(c, http.StatusOK, "webhook endpoint reachable", gin.H{
			"method": c.Request.Method,
			"query":  c.Request.URL.RawQuery,
			"body":   string(body),
		})
	}
}

// MercadoPagoWebhook receives provider notifications. Delivery is
// at-least-once: a retriable provider failure returns 502 to trigger
// redelivery, a dangling reference is a permanent data fault reported as 500.
func MercadoPagoWebhook(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /webhooks/mercadopago"
		defer handlePanic(c, route)

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "unreadable body")
			return
		}

		var payload webhookPayload
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &payload); err != nil {
				log.Printf("[WEBHOOK] [WARN] unparseable body: %v", err)
			}
		}

		// Query parameters take precedence; MercadoPago sends both formats.
		notificationType := c.Query("type")
		if notificationType == "" {
			notificationType = payload.Type
		}
		paymentID := c.Query("data.id")
		if paymentID == "" {
			paymentID = payload.Data.ID.String()
		}

		n := orders.Notification{
			Type:              notificationType,
			PaymentID:         paymentID,
			ExternalReference: payload.ExternalReference,
			RawPayload:        body,
		}

		ctx, cancel := contextWithTimeout(c, 15*time.Second)
		defer cancel()

		result, err := svc.ProcessWebhook(ctx, n)
		if err != nil {
			var integrity *orders.DataIntegrityError
			if errors.As(err, &integrity) {
				// Redelivery cannot fix a dangling reference; replays hit the
				// same error without mutating anything.
				log.Printf("[WEBHOOK] [ERROR] %v", integrity)
				respondWithError(c, http.StatusInternalServerError, route, "order not found for notification")
				return
			}
			if errors.Is(err, orders.ErrMissingPaymentID) {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			var provider *orders.ProviderError
			if errors.As(err, &provider) {
				respondWithError(c, http.StatusBadGateway, route, "payment provider unavailable")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "webhook processing failed")
			return
		}

		if result.Ignored {
			respondData(c, http.StatusOK, "notification ignored", nil)
			return
		}
		respondData(c, http.StatusOK, "notification processed", result)
	}
}
