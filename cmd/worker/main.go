package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecohealth/airflow/internal/calculator"
	"github.com/ecohealth/airflow/internal/cache"
	"github.com/ecohealth/airflow/internal/config"
	"github.com/ecohealth/airflow/internal/flightcache"
	"github.com/ecohealth/airflow/internal/flows"
	"github.com/ecohealth/airflow/internal/geo"
	"github.com/ecohealth/airflow/internal/jobs"
	"github.com/ecohealth/airflow/internal/metrics"
	"github.com/ecohealth/airflow/internal/queue"
	"github.com/ecohealth/airflow/internal/resultstore"
	"github.com/ecohealth/airflow/internal/store"
	"github.com/ecohealth/airflow/internal/workerpool"
	"github.com/ecohealth/airflow/pkg/database"
	"github.com/ecohealth/airflow/pkg/observability"
)

// aggregationWindow bounds the direct-flow query used to build the
// aggregated_seats table and per-origin seat totals, mirroring the
// trailing window the original task runner re-aggregates on each cycle.
const aggregationWindow = 30 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	cleanup, err := observability.InitTracing("airflow-worker", cfg.Env)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer cleanup()

	db, err := database.NewPool(database.Config{DSN: cfg.ScheduleStoreDSN})
	if err != nil {
		log.Fatalf("failed to connect to schedule store: %v", err)
	}
	defer db.Close()

	var scheduleStore store.ScheduleStore
	switch cfg.ScheduleSource {
	case "recurrent":
		scheduleStore = store.NewRecurrentStore(store.NewPostgresRecurrentLegSource(db))
	default:
		scheduleStore = store.NewPostgresStore(db)
	}

	ctx := context.Background()
	airports, err := scheduleStore.Airports(ctx)
	if err != nil {
		log.Fatalf("failed to load airports: %v", err)
	}
	matrix := geo.NewMatrix(store.Coordinates(airports))

	flightCache, err := flightcache.New(scheduleStore, cfg.FlightCacheCapacity)
	if err != nil {
		log.Fatalf("failed to build flight cache: %v", err)
	}

	end := time.Now()
	start := end.Add(-aggregationWindow)
	seatFlows, err := flows.DirectSeatFlows(ctx, db, start, end)
	if err != nil {
		log.Fatalf("failed to aggregate direct seat flows: %v", err)
	}
	passengerFlow := flows.PassengerFlowFromSeats(seatFlows)

	directSeatTotal := func(origin string) int {
		total := 0
		for _, seats := range seatFlows[origin] {
			total += seats
		}
		return total
	}

	calc := calculator.New(matrix, flightCache, passengerFlow, true)

	resStore := resultstore.New(db)
	notifier := jobs.NewNotifier(cfg, "airflow@"+cfg.FlirtBase)

	redisCache, err := cache.NewCacheFromURL(cfg.BrokerURL)
	if err != nil {
		log.Fatalf("failed to connect to broker: %v", err)
	}
	defer redisCache.Close()

	handlers := &jobs.Handlers{
		Calculator:      calc,
		Store:           resStore,
		DirectSeatTotal: directSeatTotal,
		Notifier:        notifier,
		FlowCache:       cache.NewCacheManager(redisCache),
	}

	broker := queue.NewBroker(redisCache, queue.DefaultListKey)

	collector := metrics.NewMetricsCollector()
	collector.Start(30 * time.Second)
	defer collector.Stop()

	pool := &workerpool.Pool{
		Broker:   broker,
		Handlers: handlers,
		Count:    cfg.WorkerCount,
		Metrics:  collector,
	}

	runCtx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("shutting down worker pool...")
		cancel()
	}()

	log.Printf("worker pool starting with %d workers", cfg.WorkerCount)
	pool.Run(runCtx)
	log.Println("worker pool exited")
}
