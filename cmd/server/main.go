package main

import (
    "context"
    "errors"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/iliyamo/cinema-booking-core/internal/clock"
    "github.com/iliyamo/cinema-booking-core/internal/config"
    "github.com/iliyamo/cinema-booking-core/internal/database"
    "github.com/iliyamo/cinema-booking-core/internal/handler"
    "github.com/iliyamo/cinema-booking-core/internal/middleware"
    "github.com/iliyamo/cinema-booking-core/internal/queue"
    "github.com/iliyamo/cinema-booking-core/internal/repository"
    "github.com/iliyamo/cinema-booking-core/internal/router"
    "github.com/iliyamo/cinema-booking-core/internal/service"
    "github.com/iliyamo/cinema-booking-core/internal/worker"
)

func main() {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Printf("warning: .env not loaded: %v", err)
    }
    cfg := config.Load()
    booking, loc, err := config.LoadBooking()
    if err != nil {
        log.Fatalf("booking config: %v", err)
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("db: %v", err)
    }
    defer db.Close()
    if err := database.NewMigrator(db).Run(ctx); err != nil {
        log.Fatalf("migrate: %v", err)
    }

    store := repository.NewStore(db)
    clk := clock.System{}

    var pub service.EventPublisher
    if booking.RabbitURL != "" {
        pub = queue.NewPublisher(booking.RabbitURL, booking.Exchange, booking.PublishTimeout)
    } else {
        log.Printf("rabbitmq: RABBITMQ_URL not set, booking events are not published")
    }

    inventory := service.NewInventory(store, clk, loc)
    fulfillment := service.NewFulfillment(store, inventory, clk, pub)
    scheduler := service.NewScheduler(store, clk, loc)

    rdb := config.NewRedisClient()
    cacheCfg := config.LoadCacheConfig()
    // nil-safe: NewSlotCache returns nil without Redis
    slots := middleware.NewSlotCache(cacheCfg, rdb)
    scheduler.OnRoomChange(slots.Invalidate)

    if booking.RabbitURL != "" && booking.ConsumerEnabled {
        consumer := &queue.PaymentConsumer{
            URL:      booking.RabbitURL,
            Exchange: booking.Exchange,
            Queue:    booking.PaymentQueue,
            Prefetch: booking.Prefetch,
            Recorder: fulfillment,
        }
        go func() {
            if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
                log.Printf("payment-consumer: exited: %v", err)
            }
        }()
    }

    reaper := worker.NewReaper(inventory, booking.ReaperInterval, booking.ReaperBatchSize)
    if booking.ReaperEnabled {
        reaper.Start(ctx)
    }

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Logger())
    e.Use(echomw.Recover())

    var holdLimit, slotCache echo.MiddlewareFunc
    if rdb != nil {
        holdLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
        slotCache = middleware.NewRedisCache(cacheCfg, rdb)
    }
    router.RegisterRoutes(e, router.Deps{
        JWTSecret: cfg.JWTSecret,
        Seats:     handler.NewSeatHandler(inventory),
        Purchases: handler.NewPurchaseHandler(fulfillment),
        Schedule:  handler.NewScheduleHandler(scheduler),
        HoldLimit: holdLimit,
        SlotCache: slotCache,
    })

    addr := ":" + cfg.Port
    go func() {
        log.Printf("listening on %s (env=%s, tz=%s)", addr, cfg.Env, loc)
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Fatal(err)
        }
    }()

    <-ctx.Done()
    log.Printf("shutting down")
    reaper.Stop()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.Printf("shutdown: %v", err)
    }
    if rdb != nil {
        _ = rdb.Close()
    }
}
