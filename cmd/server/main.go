package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"

	"github.com/41vi4p/TankLens/internal/config"
	"github.com/41vi4p/TankLens/internal/controller"
	"github.com/41vi4p/TankLens/internal/metrics"
	"github.com/41vi4p/TankLens/internal/middleware"
	"github.com/41vi4p/TankLens/internal/poller"
	"github.com/41vi4p/TankLens/internal/repository"
	"github.com/41vi4p/TankLens/internal/routes"
	"github.com/41vi4p/TankLens/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Device documents and access grants.
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}
	if _, err := db.ExecContext(ctx, repository.Schema()); err != nil {
		log.Fatalf("db schema error: %v", err)
	}
	devices := repository.NewPostgresStore(db)

	// Reading history.
	history := repository.NewInfluxHistory(cfg.InfluxDBURL, cfg.InfluxDBToken, cfg.InfluxDBOrg, cfg.InfluxDBBucket)
	defer history.Close()
	if err := history.Health(ctx); err != nil {
		log.Fatalf("influx error: %v", err)
	}
	log.Println("Successfully connected to InfluxDB")

	// Realtime latest-sample snapshots.
	samples, err := repository.NewRedisSampleStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer samples.Close()
	log.Println("Connected to Redis successfully")

	metrics.Init()

	svc := service.NewDeviceService(devices, history, samples)

	sync := poller.New(svc, cfg.PollInterval, log.Default())
	go sync.Start(ctx)

	auth, err := middleware.NewAuthenticator(cfg.Auth0Issuer, cfg.Auth0Audience)
	if err != nil {
		log.Fatalf("auth setup error: %v", err)
	}

	deviceController := controller.NewDeviceController(svc)
	syncController := controller.NewSyncController(sync)
	router := routes.SetupRouter(deviceController, syncController, auth, cfg.IngestToken)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.DeviceTokenHeader},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: c.Handler(router),
	}

	go func() {
		log.Printf("Server is running on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
