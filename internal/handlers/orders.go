package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"glitchstore/internal/models"
	"glitchstore/internal/orders"
)

/* =========================
   REQUEST DTOs
========================= */

type orderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type shippingInfoRequest struct {
	Street  string `json:"street" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	ZipCode string `json:"zipCode" binding:"required"`
	Country string `json:"country"`
}

type checkoutRequest struct {
	Items        []orderItemRequest  `json:"items" binding:"required,min=1,dive"`
	GuestEmail   string              `json:"guestEmail"`
	GuestName    string              `json:"guestName"`
	ShippingInfo shippingInfoRequest `json:"shippingInfo" binding:"required"`
	Notes        string              `json:"notes"`
}

type verifyCartRequest struct {
	Items []orderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func checkoutInputFromRequest(c *gin.Context, req checkoutRequest) (orders.CheckoutInput, error) {
	items, err := parseCartItems(req.Items)
	if err != nil {
		return orders.CheckoutInput{}, err
	}

	in := orders.CheckoutInput{
		Items:      items,
		GuestEmail: req.GuestEmail,
		GuestName:  req.GuestName,
		ShippingAddress: models.ShippingInfo{
			Street:  req.ShippingInfo.Street,
			City:    req.ShippingInfo.City,
			State:   req.ShippingInfo.State,
			ZipCode: req.ShippingInfo.ZipCode,
			Country: req.ShippingInfo.Country,
		},
		Notes: req.Notes,
	}
	if userID, ok := c.Get("userId"); ok {
		id := userID.(primitive.ObjectID)
		in.UserID = &id
	}
	return in, nil
}

func parseCartItems(reqItems []orderItemRequest) ([]orders.CheckoutItem, error) {
	items := make([]orders.CheckoutItem, 0, len(reqItems))
	for _, item := range reqItems {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return nil, errors.New("invalid productId: " + item.ProductID)
		}
		items = append(items, orders.CheckoutItem{ProductID: productID, Quantity: item.Quantity})
	}
	return items, nil
}

// respondOrderError maps engine errors onto HTTP statuses.
func respondOrderError(c *gin.Context, route string, err error) {
	var stockErr *orders.StockError
	if errors.As(err, &stockErr) {
		body := gin.H{
			"success":   false,
			"error":     stockErr.Error(),
			"productId": stockErr.ProductID.Hex(),
			"requested": stockErr.Requested,
		}
		if !stockErr.Missing {
			body["available"] = stockErr.Available
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
		return
	}

	var notFound *orders.NotFoundError
	if errors.As(err, &notFound) {
		respondWithError(c, http.StatusNotFound, route, notFound.Error())
		return
	}

	var conflict *orders.StateConflictError
	if errors.As(err, &conflict) {
		respondWithError(c, http.StatusBadRequest, route, conflict.Error())
		return
	}

	var provider *orders.ProviderError
	if errors.As(err, &provider) {
		respondWithError(c, http.StatusBadGateway, route, "payment provider unavailable")
		return
	}

	var integrity *orders.DataIntegrityError
	if errors.As(err, &integrity) {
		respondWithError(c, http.StatusInternalServerError, route, integrity.Error())
		return
	}

	switch {
	case errors.Is(err, orders.ErrNoItems),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrGuestContactRequired),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrMissingPaymentID):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	default:
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
	}
}

/* =========================
   CHECKOUT
========================= */

func Checkout(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/checkout"
		defer handlePanic(c, route)

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		in, err := checkoutInputFromRequest(c, req)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := contextWithTimeout(c, 10*time.Second)
		defer cancel()

		order, err := svc.Checkout(ctx, in)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		respondData(c, http.StatusCreated, "order created", order)
	}
}

// CheckoutComplete creates the order and opens the hosted checkout in one call.
func CheckoutComplete(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/checkout-complete"
		defer handlePanic(c, route)

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		in, err := checkoutInputFromRequest(c, req)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := contextWithTimeout(c, 15*time.Second)
		defer cancel()

		order, pref, err := svc.CheckoutComplete(ctx, in)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		respondData(c, http.StatusCreated, "order created", gin.H{
			"order":   order,
			"payment": pref,
		})
	}
}

func VerifyCart(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/verify-cart"
		defer handlePanic(c, route)

		var req verifyCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		items, err := parseCartItems(req.Items)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := contextWithTimeout(c, 5*time.Second)
		defer cancel()

		verification, err := svc.VerifyCart(ctx, items)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, "", verification)
	}
}

/* =========================
   PAYMENT PREFERENCE
========================= */

func CreatePayment(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/create-payment"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		ctx, cancel := contextWithTimeout(c, 15*time.Second)
		defer cancel()

		result, err := svc.CreatePreference(ctx, orderID)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, "payment preference created", result)
	}
}

/* =========================
   QUERIES
========================= */

func GetOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		ctx, cancel := contextWithTimeout(c, 5*time.Second)
		defer cancel()

		order, err := svc.GetOrder(ctx, orderID)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		// Customers can only read their own orders; guest orders stay
		// reachable by id, matching the redirect-back flow.
		if role := c.GetString("role"); role != "admin" && order.UserID != nil {
			userID, ok := c.Get("userId")
			if !ok || userID.(primitive.ObjectID) != *order.UserID {
				respondWithError(c, http.StatusNotFound, route, "order not found")
				return
			}
		}

		respondData(c, http.StatusOK, "", order)
	}
}

func MyOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/user/my-orders"
		defer handlePanic(c, route)

		userID, ok := c.Get("userId")
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}
		id := userID.(primitive.ObjectID)

		query, err := orderQueryFromParams(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		query.UserID = &id

		ctx, cancel := contextWithTimeout(c, 5*time.Second)
		defer cancel()

		list, pagination, err := svc.ListOrders(ctx, query)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, "", gin.H{"orders": list, "pagination": pagination})
	}
}

func AdminListOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		query, err := orderQueryFromParams(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if userIDStr := c.Query("userId"); userIDStr != "" {
			userID, err := primitive.ObjectIDFromHex(userIDStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid userId filter")
				return
			}
			query.UserID = &userID
		}

		ctx, cancel := contextWithTimeout(c, 5*time.Second)
		defer cancel()

		list, pagination, err := svc.ListOrders(ctx, query)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, "", gin.H{"orders": list, "pagination": pagination})
	}
}

func UpdateOrderStatus(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/:id/status"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := contextWithTimeout(c, 5*time.Second)
		defer cancel()

		order, err := svc.UpdateStatus(ctx, orderID, req.Status, req.Notes)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, "order status updated", order)
	}
}

func orderQueryFromParams(c *gin.Context) (orders.OrderQuery, error) {
	page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		return orders.OrderQuery{}, errors.New("invalid pagination parameters")
	}

	query := orders.OrderQuery{Page: page, Limit: limit, Status: c.Query("status")}

	if from := c.Query("startDate"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return orders.OrderQuery{}, errors.New("invalid startDate, expected YYYY-MM-DD")
		}
		query.StartDate = &t
	}
	if to := c.Query("endDate"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return orders.OrderQuery{}, errors.New("invalid endDate, expected YYYY-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		query.EndDate = &end
	}
	return query, nil
}
