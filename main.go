package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"glitchstore/internal/config"
	"glitchstore/internal/database"
	"glitchstore/internal/delivery"
	"glitchstore/internal/handlers"
	"glitchstore/internal/mercadopago"
	"glitchstore/internal/middleware"
	"glitchstore/internal/orders"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := database.EnsurePaymentIndexes(db); err != nil {
		log.Printf("payment index warning: %v", err)
	}

	mpClient := mercadopago.NewClient(config.AppEnv.MPBaseURL, config.AppEnv.MPAccessToken, config.AppEnv.MPTimeout)
	orderService := orders.NewService(orders.NewMongoStore(db), mpClient, orders.Config{
		FrontendURL: config.AppEnv.FrontendURL,
		BackendURL:  config.AppEnv.BackendURL,
	})

	clock := clockwork.NewRealClock()
	rateClient := delivery.NewCorreoClient(
		config.AppEnv.RapidAPIBaseURL,
		config.AppEnv.RapidAPIKey,
		config.AppEnv.RapidAPIHost,
		10*time.Second,
	)
	deliveryService := delivery.NewService(delivery.NewMongoCatalog(db), rateClient, clock, delivery.Config{
		OriginPostalCode: config.AppEnv.OriginPostalCode,
		QuoteTTL:         config.AppEnv.QuoteCacheTTL,
		BranchTTL:        config.AppEnv.BranchCacheTTL,
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	deliveryService.StartSweeper(sweepCtx, clock, config.AppEnv.CacheSweepInterval)

	secret := config.AppEnv.JWTSecret
	accessTTL := config.AppEnv.AccessTokenTTL

	r := gin.Default()

	api := r.Group("/api")

	api.POST("/users/register", handlers.Register(db, secret, accessTTL))
	api.POST("/users/login", handlers.Login(db, secret, accessTTL))
	api.GET("/users/me", middleware.AuthGuard(secret), handlers.Me(db))

	api.GET("/products", handlers.ListProducts(db))
	api.GET("/products/:id", handlers.GetProduct(db))
	api.GET("/categories", handlers.ListCategories(db))

	api.POST("/orders/checkout", middleware.OptionalAuth(secret), handlers.Checkout(orderService))
	api.POST("/orders/checkout-complete", middleware.OptionalAuth(secret), handlers.CheckoutComplete(orderService))
	api.POST("/orders/verify-cart", handlers.VerifyCart(orderService))
	api.POST("/orders/:id/create-payment", handlers.CreatePayment(orderService))
	api.GET("/orders/user/my-orders", middleware.AuthGuard(secret), handlers.MyOrders(orderService))
	api.GET("/orders/:id", middleware.OptionalAuth(secret), handlers.GetOrder(orderService))
	api.GET("/orders", middleware.AdminOnly(secret), handlers.AdminListOrders(orderService))
	api.PATCH("/orders/:id/status", middleware.AdminOnly(secret), handlers.UpdateOrderStatus(orderService))

	api.POST("/webhooks/mercadopago", handlers.MercadoPagoWebhook(orderService))
	api.GET("/webhooks/test", handlers.WebhookTest())
	api.POST("/webhooks/test", handlers.WebhookTest())

	api.POST("/delivery/quote", handlers.QuoteShipping(deliveryService))
	api.GET("/delivery/branches", handlers.ListBranches(deliveryService))
	api.GET("/delivery/branches/:provinceCode", handlers.ListBranches(deliveryService))
	api.GET("/delivery/cache-stats", middleware.AdminOnly(secret), handlers.DeliveryCacheStats(deliveryService))

	admin := api.Group("/admin")
	admin.Use(middleware.AdminOnly(secret))
	{
		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.PATCH("/products/:id/stock", handlers.UpdateProductStock(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))

		admin.POST("/categories", handlers.CreateCategory(db))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
