package main

import (
    "context"
    "log"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/config"
    "github.com/iliyamo/event-ticketing/internal/database"
    "github.com/iliyamo/event-ticketing/internal/handler"
    "github.com/iliyamo/event-ticketing/internal/middleware"
    "github.com/iliyamo/event-ticketing/internal/queue"
    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/router"
    "github.com/iliyamo/event-ticketing/internal/service"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    e := echo.New()
    e.HideBanner = true
    e.Validator = handler.NewRequestValidator()
    e.Use(middleware.RequestID())

    // Redis-backed rate limiting and response caching degrade to
    // no-ops when Redis is unreachable.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable: rate limiting and caching disabled")
    }
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    // Repositories.
    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    events := repository.NewEventRepo(db)
    types := repository.NewTicketTypeRepo(db)
    bookings := repository.NewBookingRepo(db)
    credentials := repository.NewCredentialRepo(db)
    groups := repository.NewGroupRepo(db)

    // Services.
    publisher := queue.NewPublisher(cfg.RabbitURL)
    credentialSvc := service.NewCredentialService(credentials, bookings, publisher,
        cfg.QRSecret, time.Duration(cfg.CredGraceHours)*time.Hour)
    bookingSvc := service.NewBookingService(events, types, types, bookings, credentialSvc, publisher)
    groupSvc := service.NewGroupService(groups, bookingSvc)

    // Handlers and routes.
    authH := handler.NewAuthHandler(cfg, users, tokens)
    publicH := handler.NewPublicHandler(events, bookingSvc)
    bookingH := handler.NewBookingHandler(bookingSvc, credentialSvc, bookings)
    groupH := handler.NewGroupHandler(groupSvc)
    organizerH := handler.NewOrganizerHandler(events, types, bookings, bookingSvc)
    checkinH := handler.NewCheckInHandler(credentialSvc)
    paymentH := handler.NewPaymentHandler(bookingSvc)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, authH, cfg.JWTSecret)
    // Public browse responses are cached in Redis when it is up.
    router.RegisterPublic(e, publicH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
    router.RegisterCustomer(e, bookingH, groupH, cfg.JWTSecret)
    router.RegisterOrganizer(e, organizerH, cfg.JWTSecret)
    router.RegisterStaff(e, checkinH, paymentH, cfg.JWTSecret)

    // Background workers: broker consumer and the pending sweeper.
    go func() {
        if err := queue.StartBookingConsumer(cfg.RabbitURL); err != nil {
            log.Printf("booking-consumer: %v", err)
        }
    }()
    sweeper := service.NewSweeper(bookingSvc,
        time.Duration(cfg.BookingTTLMin)*time.Minute,
        time.Duration(cfg.SweepIntervalSec)*time.Second,
        cfg.SweepBatch)
    go sweeper.Run(context.Background())

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
