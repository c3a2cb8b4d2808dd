package main // Entry point package

import (
	"context" // Context for background workers
	"log"     // Logging library
	"time"    // Durations for the hold TTL and sweep interval

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/hotel-room-booking/internal/config"   // Internal config loader
	"github.com/iliyamo/hotel-room-booking/internal/database" // MySQL connection pool
	"github.com/iliyamo/hotel-room-booking/internal/handler"
	"github.com/iliyamo/hotel-room-booking/internal/payment"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/router" // Internal router setup
	"github.com/iliyamo/hotel-room-booking/internal/service"
	"github.com/iliyamo/hotel-room-booking/internal/worker"
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the hold store, so unlike caching and rate limiting it
	// is a hard dependency here.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection failed; holds require redis")
	}
	defer rdb.Close()

	gateway := payment.NewClient(cfg.PayOSClientID, cfg.PayOSAPIKey, cfg.PayOSChecksumKey, "")

	holdTTL := time.Duration(cfg.HoldTTLSeconds) * time.Second
	holds := repository.NewHoldStore(rdb, holdTTL)
	orders := repository.NewOrderCodeIndex(rdb)
	rooms := repository.NewRoomRepo(db)
	promos := repository.NewPromotionRepo(db)
	bookings := repository.NewBookingRepo(db)

	coordinator := service.NewCoordinator(
		holds, orders, rooms, promos, bookings, gateway,
		config.LoadCancellationPolicy(),
		service.NewBookingEventPublisher(),
		cfg.FrontendURL+"/payment/success",
		cfg.FrontendURL+"/payment/cancel",
	)

	bookingHandler := handler.NewBookingHandler(coordinator, gateway, bookings)
	availabilityHandler := handler.NewAvailabilityHandler(coordinator)

	e := echo.New()
	router.RegisterRoutes(e) // Health check
	router.RegisterPublicBooking(e, bookingHandler, availabilityHandler, cfg.JWTSecret, rdb)
	router.RegisterBooking(e, bookingHandler, cfg.JWTSecret)

	// Background work: consume confirmation events for the audit log and
	// sweep promotions past their end date.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go queue.StartBookingConsumer()
	go worker.StartPromotionSweeper(ctx, promos, time.Duration(cfg.PromoSweepMinutes)*time.Minute)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
