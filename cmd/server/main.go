package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"appointment-booking-api/internal/booking"
	"appointment-booking-api/internal/config"
	"appointment-booking-api/internal/handler"
	"appointment-booking-api/internal/lock"
	"appointment-booking-api/internal/logger"
	"appointment-booking-api/internal/meeting"
	"appointment-booking-api/internal/middleware"
	"appointment-booking-api/internal/notify"
	"appointment-booking-api/internal/store"
	"appointment-booking-api/internal/zoom"
)

const migrationFile = "db/migrations/001_init.sql"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("db", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		lg.Fatal("db ping", zap.Error(err))
	}
	lg.Info("connected to postgres")

	st := store.New(pool)
	if err := st.Migrate(ctx, migrationFile); err != nil {
		lg.Warn("migration skipped", zap.Error(err))
	} else {
		lg.Info("migration applied")
	}

	// slot lock; bookings stay safe without it
	var locks interface {
		booking.Locker
		Close() error
	} = lock.Noop{}
	if cfg.RedisURL != "" {
		r, err := lock.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			lg.Warn("redis unavailable, slot lock disabled", zap.Error(err))
		} else {
			locks = r
			lg.Info("redis slot lock enabled")
		}
	}
	defer locks.Close()

	provider := zoom.New(cfg.Provider, st, lg.Named("zoom"))

	var links meeting.Provisioner = meeting.NewJitsi(cfg.JitsiBaseURL)
	if cfg.MeetingProvider == config.ProviderZoom {
		links = meeting.NewZoom(provider)
	}

	var sender notify.Sender = notify.NewLogSender(lg.Named("mail"))
	if cfg.Mail.APIKey != "" {
		sender = notify.NewBrevo(cfg.Mail)
	}
	mail := notify.NewDispatcher(sender, lg.Named("mail"))

	svc := booking.New(st, links, mail, locks, cfg.ClinicTimezone, lg.Named("booking"))

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rl.Close()

	h := handler.New(handler.Options{
		Bookings:       svc,
		Provider:       provider,
		DB:             st,
		Log:            lg.Named("http"),
		Location:       cfg.ClinicTimezone,
		Limiter:        rl,
		MaxRequests:    cfg.MaxRequests,
		FrontendOrigin: cfg.FrontendOrigin,
		WebhookSecret:  cfg.WebhookSecret,
		StateSecret:    cfg.StateSecret,
		IsAdmin:        cfg.IsAdmin,
	})

	// grpc health
	hs := health.NewServer()
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(middleware.UnaryRateLimit(rl)))
	healthpb.RegisterHealthServer(srv, hs)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		lg.Fatal("listen", zap.Error(err))
	}
	go func() {
		lg.Info("grpc health listening", zap.String("port", cfg.GRPCPort))
		if err := srv.Serve(lis); err != nil {
			lg.Error("grpc", zap.Error(err))
		}
	}()
	go watchDB(ctx, st, hs, lg)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		lg.Info("http listening", zap.String("port", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http", zap.Error(err))
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	lg.Info("shutting down")
	hs.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown", zap.Error(err))
	}
	srv.GracefulStop()
}

// watchDB mirrors database reachability into the gRPC health status.
func watchDB(ctx context.Context, db handler.Pinger, hs *health.Server, lg *zap.Logger) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := db.Ping(pingCtx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		cancel()
		if status != last {
			lg.Info("health status", zap.String("status", status.String()))
			last = status
		}
		hs.SetServingStatus("", status)

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
