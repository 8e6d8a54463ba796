package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"campaigns/internal/awsutil"
	"campaigns/internal/config"
	"campaigns/internal/httpapi"
	"campaigns/internal/logging"
	"campaigns/internal/observability"
	"campaigns/internal/providers/kickbox"
	"campaigns/internal/providers/sendgrid"
	"campaigns/internal/providers/wati"
	sqsqueue "campaigns/internal/queue/sqs"
	"campaigns/internal/service"
	"campaigns/internal/store/pg"
	"campaigns/internal/util"
)

func main() {
	cfg := config.LoadAPI()
	logging.Init("api", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{})
	if err != nil {
		slog.Error("api db connect failed", "err", err)
		os.Exit(1)
	}

	sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion, cfg.LocalstackEndpoint)
	if err != nil {
		slog.Error("api sqs client init failed", "err", err)
		os.Exit(1)
	}

	observability.Register(prometheus.DefaultRegisterer)

	store := pg.New(db)
	producer := &sqsqueue.Producer{SQS: sqsClient, QueueURL: cfg.SQSQueueURL}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	var verifier service.EmailVerifier
	if cfg.KickboxAPIKey != "" {
		verifier = &service.KickboxVerifier{Client: &kickbox.Client{
			APIKey:  cfg.KickboxAPIKey,
			HTTP:    httpClient,
			BaseURL: cfg.KickboxBaseURL,
		}}
	}

	emailSvc := &service.EmailService{
		Store: store,
		Sender: &sendgrid.Client{
			APIKey:  cfg.SendGridAPIKey,
			HTTP:    httpClient,
			BaseURL: cfg.SendGridBaseURL,
		},
		Verifier: verifier,
		Limiter:  rate.NewLimiter(rate.Limit(cfg.SendGridRPS), cfg.SendGridBurst),
		IDGen:    util.NewEmailCampaignID,
	}

	watiClient, err := wati.New(cfg.WatiBaseURL, cfg.WatiAPIToken, cfg.WatiChannelNumber, httpClient)
	if err != nil {
		slog.Error("api wati client init failed", "err", err)
		os.Exit(1)
	}

	// synchronous sends answer the caller; no blocking retry loop here,
	// transport failures surface immediately and the worker path owns retries
	whatsappSvc := &service.WhatsAppService{
		Store:        store,
		Wati:         watiClient,
		Queue:        producer,
		Breaker:      newWatiBreaker(),
		IDGen:        util.NewWhatsAppCampaignID,
		SendAttempts: 1,
	}

	s := httpapi.New(func(ctx context.Context) error {
		return db.Ping(ctx)
	})
	(&httpapi.EmailHandlers{Service: emailSvc, Store: store}).Register(s.Mux)
	(&httpapi.WhatsAppHandlers{Service: whatsappSvc, Store: store, Wati: watiClient}).Register(s.Mux)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s.Handler(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("api shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("api listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("api server failed", "err", err)
		os.Exit(1)
	}

	db.Close()
}

func newWatiBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "wati",
		MaxRequests: 3,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 10 },
	})
}
