package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"print-scheduler/internal/config"
	"print-scheduler/internal/handler"
	"print-scheduler/internal/metrics"
	"print-scheduler/internal/repository"
	"print-scheduler/internal/service"
	"print-scheduler/internal/store"
	"print-scheduler/internal/stream"
)

func main() {
	cfg := config.FromEnv()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver: sqlite3 or pgx")
	flag.StringVar(&cfg.DBDSN, "db", cfg.DBDSN, "SQLite path or Postgres DSN")
	flag.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for the change stream, empty to disable")
	flag.StringVar(&cfg.SeedFile, "seed", cfg.SeedFile, "JSON catalog seed file")
	flag.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "business timezone")
	flag.StringVar(&cfg.RescanCron, "rescan", cfg.RescanCron, "cron schedule of the periodic full rescan, empty to disable")
	flag.IntVar(&cfg.IntakePerMinute, "intake-per-minute", cfg.IntakePerMinute, "job submissions allowed per client per minute, 0 for unlimited")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	loc, _ := cfg.Location()

	seed, err := config.LoadSeed(cfg.SeedFile)
	if err != nil {
		log.Fatalf("failed to load seed: %v", err)
	}

	// Initialize repository
	var repo *repository.SQLRepository
	switch cfg.DBDriver {
	case repository.DriverSQLite:
		repo, err = repository.NewSQLiteRepository(cfg.DBDSN)
	default:
		repo, err = repository.Open(cfg.DBDriver, cfg.DBDSN)
	}
	if err != nil {
		log.Fatalf("failed to initialize repository: %v", err)
	}
	defer repo.Close()

	opts := []service.Option{
		service.WithRepository(repo),
		service.WithIntakeLimiter(service.NewIntakeLimiter(cfg.IntakePerMinute)),
	}

	// Change stream is optional
	if cfg.RedisAddr != "" {
		connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
		rdb, err := stream.NewClientWithBackoff(connectCtx, stream.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cancelConnect()
		if err != nil {
			log.Fatalf("redis connect failed: %v", err)
		}
		defer rdb.Close()
		opts = append(opts, service.WithPublisher(stream.NewPublisher(rdb, cfg.RedisStream, cfg.RedisMaxLen)))
	}

	metricsInstance := metrics.NewMetrics()
	catalog := service.NewCatalog(seed.BusinessHours, seed.Staff, seed.Machines, seed.Jobs)
	svc := service.NewService(catalog, store.New(), metricsInstance, service.Config{
		Location:   loc,
		Horizon:    cfg.Horizon(),
		MinSegment: cfg.MinSegment,
		Logger:     log.Default(),
	}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Restore(ctx); err != nil {
		log.Fatalf("failed to restore schedule: %v", err)
	}
	if rep, err := svc.Run(ctx); err != nil {
		log.Printf("initial run failed: %v", err)
	} else {
		log.Printf("initial run placed %d jobs", len(rep.Placements))
	}

	go func() {
		if err := svc.ProcessTriggers(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("trigger worker error: %v", err)
		}
	}()

	if cfg.RescanCron != "" {
		rescan, err := service.NewPeriodicRescan(cfg.RescanCron, loc, svc)
		if err != nil {
			log.Fatalf("failed to schedule rescan: %v", err)
		}
		rescan.Start()
		defer rescan.Stop()
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.New(svc).Router(cfg.RequestLog),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("scheduler API starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-sigChan
	log.Println("shutting down scheduler...")
	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error closing server: %v", err)
	}
	log.Println("scheduler stopped")
}
