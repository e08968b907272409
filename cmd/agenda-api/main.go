package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/salonora/agenda/internal/booking"
	"github.com/salonora/agenda/internal/handlers"
	"github.com/salonora/agenda/internal/outbox"
	"github.com/salonora/agenda/internal/storage"
	"github.com/salonora/agenda/internal/timegrid"
	"github.com/salonora/agenda/libs/config"
	"github.com/salonora/agenda/libs/db"
	"github.com/salonora/agenda/libs/httpx"
	"github.com/salonora/agenda/libs/kafkax"
	otelx "github.com/salonora/agenda/libs/otel"
	"github.com/salonora/agenda/libs/runtime"
	"github.com/salonora/agenda/migrations"
)

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	config.Load()

	service := config.String("SERVICE_NAME", "agenda-api")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS, "."); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	grid, err := timegrid.NewGrid(
		config.String("OPEN_TIME", "08:00"),
		config.String("CLOSE_TIME", "19:00"),
		config.Int("SLOT_STEP_MINUTES", timegrid.DefaultStepMinutes),
	)
	if err != nil {
		logger.Error("invalid operating hours", "err", err)
		panic(err)
	}

	apptRepo := storage.NewAppointmentRepository(pool)
	blockRepo := storage.NewBlockRepository(pool)
	serviceRepo := storage.NewServiceRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	bookingSvc := booking.NewService(apptRepo, blockRepo, serviceRepo, outboxRepo, grid, logger)

	var redisClient *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		defer redisClient.Close()
	}

	bookingHandler := handlers.NewBookingHandler(bookingSvc, logger)
	agendaHandler := handlers.NewAgendaHandler(bookingSvc, redisClient, logger)
	blockHandler := handlers.NewBlockHandler(blockRepo, logger)
	serviceHandler := handlers.NewServiceHandler(serviceRepo, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	if redisClient != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	mux := runtime.NewBaseMux(readyChecks...)
	mux.HandleFunc("/api/v1/public/agenda", agendaHandler.Agenda)
	mux.HandleFunc("/api/v1/public/availability", agendaHandler.Check)
	mux.HandleFunc("/api/v1/public/book", bookingHandler.Create)
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)
	mux.HandleFunc("/api/v1/appointments/approve", bookingHandler.Approve)
	mux.HandleFunc("/api/v1/appointments/reject", bookingHandler.Reject)
	mux.HandleFunc("/api/v1/appointments/complete", bookingHandler.Complete)
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/admin/blocks", blockHandler.Blocks)
	mux.HandleFunc("/api/v1/admin/services", serviceHandler.Services)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitCSV(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         10 * time.Minute,
		}),
	}
	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if redisClient != nil {
		limiter := httpx.NewRedisRateLimiter(redisClient, rateLimit, time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		middlewares = append(middlewares, httpx.NewRateLimiter(rateLimit, time.Minute).Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "agenda")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
