package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/psds-microservice/delivery-service/internal/config"
	"github.com/psds-microservice/delivery-service/internal/handler"
	"github.com/psds-microservice/delivery-service/internal/kafka"
	"github.com/psds-microservice/delivery-service/internal/logger"
	"github.com/psds-microservice/delivery-service/internal/markdown"
	"github.com/psds-microservice/delivery-service/internal/photo"
	"github.com/psds-microservice/delivery-service/internal/router"
	"github.com/psds-microservice/delivery-service/internal/service"
	"github.com/psds-microservice/delivery-service/internal/session"
)

// API is the HTTP server with all of its dependencies.
type API struct {
	cfg     *config.Config
	log     *slog.Logger
	httpSrv *http.Server
	closers []func() error
}

// NewAPI connects every backend and builds the router.
func NewAPI(ctx context.Context, cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	a := &API{cfg: cfg, log: logger.WithComponent("api")}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	gw, closeStore, err := OpenStore(ctx, cfg, logger.WithComponent("store"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, rdb.Close)
	if err := rdb.Ping(ctx).Err(); err != nil {
		a.close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	sessions := session.NewRedisStore(rdb, cfg.Session.TTL)
	gate := session.NewGate(sessions, gw, session.CookieConfig{
		Name:     cfg.Session.CookieName,
		MaxAge:   int(cfg.Session.TTL.Seconds()),
		Secure:   cfg.Session.Secure,
		SameSite: cfg.SameSiteMode(),
	}, logger.WithComponent("session"))

	photos := photo.NewDiskStore(cfg.PublicDir)

	var events kafka.TicketEventProducer
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket, logger.WithComponent("kafka"))
	if producer.Enabled() {
		events = producer
		a.closers = append(a.closers, producer.Close)
	}

	tickets := service.NewTicketService(gw, photos, events, logger.WithComponent("tickets"))
	engine, err := router.New(router.Deps{
		Tickets:        handler.NewTicketHandler(tickets, markdown.NewRenderer(), logger.WithComponent("handler")),
		Auth:           handler.NewAuthHandler(gate, logger.WithComponent("auth")),
		Health:         handler.NewHealthHandler(map[string]handler.Pinger{"store": gw, "sessions": sessions}, a.log),
		Gate:           gate,
		Uploads:        photos.Fs(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Log:            logger.WithComponent("http"),
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("router: %w", err)
	}

	a.httpSrv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *API) Run(ctx context.Context) error {
	defer a.close()

	host := a.cfg.AppHost
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.log.Info("HTTP server listening", "addr", a.httpSrv.Addr)
	a.log.Info("endpoints",
		"request_form", base+"/request_form",
		"login", base+"/login",
		"swagger", base+router.PathSwagger,
		"health", base+router.PathHealth,
		"ready", base+router.PathReady,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.log.Info("HTTP server stopped")
	return nil
}

func (a *API) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close", "error", err)
		}
	}
	a.closers = nil
}
