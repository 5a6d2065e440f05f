package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ecohealth/airflow/internal/cache"
	"github.com/ecohealth/airflow/internal/config"
	"github.com/ecohealth/airflow/internal/httpapi"
	"github.com/ecohealth/airflow/internal/queue"
	"github.com/ecohealth/airflow/pkg/auth"
	"github.com/ecohealth/airflow/pkg/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	cleanup, err := observability.InitTracing("airflow-server", cfg.Env)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer cleanup()

	redisCache, err := cache.NewCacheFromURL(cfg.BrokerURL)
	if err != nil {
		log.Fatalf("failed to connect to broker: %v", err)
	}
	defer redisCache.Close()

	broker := queue.NewBroker(redisCache, queue.DefaultListKey)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Hour)
	rateLimiter := cache.NewCacheManager(redisCache)

	api := httpapi.New(broker, jwtManager, rateLimiter, 20, time.Minute, cfg.AdminSecret)

	app := fiber.New(fiber.Config{
		AppName:      "Airflow Submission API",
		ServerHeader: "Airflow",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	})
	api.Mount(app)

	go func() {
		addr := ":" + strconv.Itoa(cfg.Port)
		log.Printf("submission API listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down submission API...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("submission API exited")
}
