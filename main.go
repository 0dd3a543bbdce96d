package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kyznetsovserega/hopbarley-shop/handlers"
	"github.com/kyznetsovserega/hopbarley-shop/internal/auth"
	"github.com/kyznetsovserega/hopbarley-shop/internal/cart"
	"github.com/kyznetsovserega/hopbarley-shop/internal/orders"
	"github.com/kyznetsovserega/hopbarley-shop/internal/products"
	"github.com/kyznetsovserega/hopbarley-shop/internal/stores/kafka"
	"github.com/kyznetsovserega/hopbarley-shop/migrations"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/database"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment")
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Host:     getEnv("APP_DB_HOST", "localhost"),
		Port:     getEnv("APP_DB_PORT", "5432"),
		User:     getEnv("APP_DB_USER", "postgres"),
		Password: getEnv("APP_DB_PASSWORD", "postgres"),
		Name:     getEnv("APP_DB_NAME", "hopbarley"),
		SSLMode:  getEnv("APP_DB_SSLMODE", "disable"),
	})
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to postgres")

	if err := database.Migrate(db, migrations.FS); err != nil {
		return err
	}

	cartConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	orderConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}
	productConf, err := products.NewConf(db)
	if err != nil {
		return err
	}

	var keys *auth.Keys
	if keyFile := os.Getenv("AUTH_PUBLIC_KEY_FILE"); keyFile != "" {
		pem, err := os.ReadFile(keyFile)
		if err != nil {
			return err
		}
		keys, err = auth.NewKeys(pem)
		if err != nil {
			return err
		}
	} else {
		slog.Warn("AUTH_PUBLIC_KEY_FILE not set, only guest sessions will be served")
	}

	var producer handlers.EventProducer
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		k, err := kafka.NewConf(strings.Split(brokers, ","))
		if err != nil {
			return err
		}
		defer k.Close()
		producer = k
		slog.Info("connected to kafka", slog.String("brokers", brokers))
	} else {
		slog.Warn("KAFKA_BROKERS not set, order events will not be published")
	}

	prefix := getEnv("SERVICE_ENDPOINT_PREFIX", "/api/v1")
	engine := handlers.API(prefix, keys, &cartConf, &orderConf, &productConf, producer)

	srv := &http.Server{
		Addr:         ":" + getEnv("APP_PORT", "8080"),
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("storefront listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
