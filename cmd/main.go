package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_cart/cart-api/internal/cache"
	"github.com/fjod/go_cart/cart-api/internal/catalog"
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/events"
	h "github.com/fjod/go_cart/cart-api/internal/http"
	"github.com/fjod/go_cart/cart-api/internal/hooks"
	"github.com/fjod/go_cart/cart-api/internal/media"
	"github.com/fjod/go_cart/cart-api/internal/money"
	"github.com/fjod/go_cart/cart-api/internal/projection"
	"github.com/fjod/go_cart/cart-api/internal/repository"
	"github.com/fjod/go_cart/cart-api/internal/service"
	"github.com/fjod/go_cart/cart-api/internal/validation"
)

type Config struct {
	HTTPPort        string
	MongoURI        string
	MongoDBName     string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    string
	CatalogDBPath   string
	MigrationsPath  string
	MediaBaseURL    string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Store projection.StoreConfig
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "cartdb"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		CatalogDBPath:   getEnv("CATALOG_DB_PATH", "catalog.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "migrations"),
		MediaBaseURL:    getEnv("MEDIA_BASE_URL", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		Store: projection.StoreConfig{
			Currency: domain.CurrencyInfo{
				Code:              getEnv("CURRENCY_CODE", "USD"),
				Symbol:            getEnv("CURRENCY_SYMBOL", "$"),
				MinorUnit:         getEnvInt("CURRENCY_MINOR_UNIT", 2),
				DecimalSeparator:  getEnv("CURRENCY_DECIMAL_SEPARATOR", "."),
				ThousandSeparator: getEnv("CURRENCY_THOUSAND_SEPARATOR", ","),
				Position:          getEnv("CURRENCY_POSITION", domain.CurrencyPosLeft),
			},
			WeightUnit:       getEnv("WEIGHT_UNIT", "kg"),
			DimensionUnit:    getEnv("DIMENSION_UNIT", "cm"),
			PricesIncludeTax: getEnvBool("PRICES_INCLUDE_TAX", false),
			CouponsEnabled:   getEnvBool("COUPONS_ENABLED", true),
			RoundingMode:     roundingMode(getEnv("ROUNDING_MODE", "half_up")),
		},
	}
}

func main() {
	cfg := loadConfig()

	ctx := context.Background()
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName, repository.ConnectOptions{
		MaxPoolSize: uint64(getEnvInt("MONGO_MAX_POOL_SIZE", 100)),
		MinPoolSize: uint64(getEnvInt("MONGO_MIN_POOL_SIZE", 10)),
	})
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(ctx)

	store := repository.NewMongoStore(mongoDB)
	if err := store.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer catalogRepo.Close()

	if err := catalogRepo.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run catalog migrations: %v", err)
	}
	log.Printf("Catalog database ready at %s", cfg.CatalogDBPath)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaBrokers != "" {
		publisher = events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ",")...)
		log.Printf("Publishing cart events to %s", cfg.KafkaBrokers)
	}
	defer publisher.Close()

	var mediaResolver media.Resolver = media.NopResolver{}
	if cfg.MediaBaseURL != "" {
		mediaResolver = media.NewHTTPResolver(cfg.MediaBaseURL)
		log.Printf("Resolving thumbnails via %s", cfg.MediaBaseURL)
	}

	registry := hooks.NewRegistry()
	projector := projection.NewProjector(store, catalogRepo, catalogRepo, mediaResolver, publisher, registry, cfg.Store)
	validator := validation.NewValidator(catalogRepo, registry, publisher)
	projectionCache := cache.NewRedisCache(redisClient)
	cartService := service.NewCartService(store, projectionCache, projector, validator, registry)

	cartHandler := h.NewCartHandler(cartService, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.AuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	cartHandler.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "cart-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Cart API starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func roundingMode(name string) money.RoundingMode {
	switch name {
	case "bankers":
		return money.RoundBankers
	case "truncate":
		return money.RoundTruncate
	default:
		return money.RoundHalfUp
	}
}
