package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vietcart/storefront/internal/cart"
	"github.com/vietcart/storefront/internal/cart/poller"
	"github.com/vietcart/storefront/internal/checkout"
	h "github.com/vietcart/storefront/internal/http"
	"github.com/vietcart/storefront/internal/order"
	"github.com/vietcart/storefront/internal/payment/vnpay"
	"github.com/vietcart/storefront/internal/product"
	"github.com/vietcart/storefront/internal/session"
)

type Config struct {
	HTTPPort        string
	HomeURL         string
	MongoURI        string
	MongoDBName     string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	Postgres        order.Credentials
	VNPay           vnpay.Config
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		HomeURL:       getEnv("HOME_URL", "/"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "storefront"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:  []string{getEnv("KAFKA_BROKER", "localhost:9092")},
		Postgres: order.Credentials{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnvInt("POSTGRES_PORT", 5432),
			User:              getEnv("POSTGRES_USER", "storefront"),
			Password:          getEnv("POSTGRES_PASSWORD", "storefront"),
			DBName:            getEnv("POSTGRES_DB", "storefront"),
			MigrationsDirPath: getEnv("MIGRATIONS_DIR", "./migrations"),
		},
		VNPay: vnpay.Config{
			TmnCode:    getEnv("VNPAY_TMN_CODE", ""),
			HashSecret: getEnv("VNPAY_HASH_SECRET", ""),
			PayURL:     getEnv("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			QueryURL:   getEnv("VNPAY_QUERY_URL", "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"),
			ReturnURL:  getEnv("VNPAY_RETURN_URL", "http://localhost:8080/checkout?step=3"),
		},
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MongoDB holds the carts.
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	cartRepo := cart.NewMongoRepository(mongoDB)
	if err := cart.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	// Redis backs the cart cache and the session store.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	log.Printf("Redis ping succeeded")

	cartCache := cart.NewRedisCache(redisClient)
	cartService := cart.NewService(cartRepo, cartCache)
	sessions := session.NewStore(redisClient)

	// Postgres holds orders and the product catalog.
	db, err := order.Connect(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer db.Close()
	log.Printf("Connected to postgres at %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)

	orderRepo := order.NewRepository(db)
	if err := orderRepo.RunMigrations(cfg.Postgres.MigrationsDirPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	publisher := order.NewKafkaPublisher(cfg.KafkaBrokers...)
	defer publisher.Close()

	orderService := order.NewService(orderRepo, publisher)
	productRepo := product.NewRepository(db)

	gateway := vnpay.NewClient(cfg.VNPay)
	checkoutService := checkout.NewService(cartService, orderService, gateway)

	// Other instances' carts converge through order-created events.
	cartPoller := poller.NewPoller(cartRepo, cartCache, cfg.KafkaBrokers...)
	defer cartPoller.Close()
	go cartPoller.Run(ctx)

	cartHandler := h.NewCartHandler(cartService, productRepo, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(checkoutService, cartService, cfg.RequestTimeout, cfg.HomeURL)
	ordersHandler := h.NewOrdersHandler(orderService, cfg.RequestTimeout)
	paymentHandler := h.NewPaymentHandler(gateway, orderService, cfg.RequestTimeout)
	productHandler := h.NewProductHandler(productRepo, cfg.RequestTimeout)
	authHandler := h.NewAuthHandler(sessions, cartService, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.AuthMiddleware(sessions))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// The checkout step gate lives at the page URL so gateway redirects land
	// directly on it.
	r.Get("/checkout", checkoutHandler.Step)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})
		r.Post("/checkout", checkoutHandler.Submit)
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{product_id}", productHandler.GetProduct)
		})
		r.Get("/payment/vnpay/ipn", paymentHandler.IPN)
		r.Post("/auth/logout", authHandler.Logout)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
