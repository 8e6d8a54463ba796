package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sony/gobreaker"

	"campaigns/internal/awsutil"
	"campaigns/internal/config"
	"campaigns/internal/httpapi"
	"campaigns/internal/logging"
	"campaigns/internal/observability"
	"campaigns/internal/providers/wati"
	sqsqueue "campaigns/internal/queue/sqs"
	"campaigns/internal/scheduler"
	"campaigns/internal/service"
	"campaigns/internal/store/pg"
	"campaigns/internal/util"
	workerproc "campaigns/internal/worker"
)

func main() {
	cfg := config.LoadWorker()
	logging.Init("worker", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{})
	if err != nil {
		slog.Error("worker db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	store := pg.New(db)

	sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion, cfg.LocalstackEndpoint)
	if err != nil {
		slog.Error("worker sqs client init failed", "err", err)
		os.Exit(1)
	}

	startupCtx, startupCancel := context.WithTimeout(ctx, 3*time.Second)
	defer startupCancel()

	if err := db.Ping(startupCtx); err != nil {
		slog.Error("db not reachable", "err", err)
		os.Exit(1)
	}
	if _, err := sqsClient.GetQueueAttributes(startupCtx, &sqs.GetQueueAttributesInput{
		QueueUrl:       &cfg.SQSQueueURL,
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
	}); err != nil {
		slog.Error("sqs not reachable", "err", err)
		os.Exit(1)
	}

	observability.Register(prometheus.DefaultRegisterer)

	consumer := &sqsqueue.Consumer{
		SQS: sqsClient, QueueURL: cfg.SQSQueueURL,
		WaitTimeSeconds:   cfg.SQSWaitTime,
		MaxMessages:       cfg.SQSMaxMsgs,
		VisibilityTimeout: cfg.SQSVizTimeout,
	}
	producer := &sqsqueue.Producer{SQS: sqsClient, QueueURL: cfg.SQSQueueURL}

	// health server (liveness + readiness)
	health := httpapi.New(
		func(c context.Context) error { return db.Ping(c) },
		func(c context.Context) error {
			_, err := sqsClient.GetQueueAttributes(c, &sqs.GetQueueAttributesInput{
				QueueUrl:       &cfg.SQSQueueURL,
				AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
			})
			return err
		},
	)
	healthSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: health.Handler(),
	}

	healthErrCh := make(chan error, 1)
	go func() {
		slog.Info("worker health listening", "port", cfg.Port)
		healthErrCh <- healthSrv.ListenAndServe()
	}()

	watiClient, err := wati.New(cfg.WatiBaseURL, cfg.WatiAPIToken, cfg.WatiChannelNumber, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		slog.Error("worker wati client init failed", "err", err)
		os.Exit(1)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "wati",
		MaxRequests: 3,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 10 },
	})

	svc := &service.WhatsAppService{
		Store:          store,
		Wati:           watiClient,
		Queue:          producer,
		Breaker:        cb,
		IDGen:          util.NewWhatsAppCampaignID,
		SendAttempts:   cfg.DispatchAttempts,
		SendRetryDelay: time.Duration(cfg.DispatchRetrySecs) * time.Second,
	}

	processor := &workerproc.Processor{
		Dispatcher: svc,
		Attempts:   cfg.DispatchAttempts,
		RetryDelay: time.Duration(cfg.DispatchRetrySecs) * time.Second,
	}

	// due-campaign poller covers delays past the queue's cap and lost enqueues
	poller := &scheduler.Poller{
		Store:     store,
		Queue:     producer,
		Interval:  time.Duration(cfg.PollIntervalSecs) * time.Second,
		BatchSize: cfg.PollBatchSize,
	}
	go poller.Run(ctx)

	// hourly reconciliation sweep
	sweeper := &scheduler.Sweeper{Store: store, Dispatcher: svc}
	c := cron.New()
	if _, err := c.AddFunc(cfg.SweepSpec, func() {
		if _, err := sweeper.Sweep(ctx, util.NowUTC()); err != nil {
			slog.Error("sweep failed", "err", err)
		}
	}); err != nil {
		slog.Error("invalid sweep schedule", "err", err, "spec", cfg.SweepSpec)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	pollErrCh := make(chan error, 1)
	go func() {
		slog.Info("worker starting poll", "queue_url", cfg.SQSQueueURL)
		pollErrCh <- consumer.PollConcurrent(ctx, cfg.WorkerConcurrency, func(ctx context.Context, job sqsqueue.DispatchJob) (err error) {
			start := time.Now()
			slog.Info("worker job start", "campaign_id", job.CampaignID)
			defer func() {
				status := "ok"
				if err != nil {
					status = "error"
				}
				slog.Info("worker job finish",
					"campaign_id", job.CampaignID,
					"status", status,
					"duration", time.Since(start),
				)
			}()
			err = processor.Process(ctx, job)
			return err
		})
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-pollErrCh:
		if err != nil && err != context.Canceled {
			slog.Error("worker poll failed", "err", err)
			os.Exit(1)
		}
	case err := <-healthErrCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("worker health server failed", "err", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("worker shutdown", "signal", sig.String())
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	select {
	case <-pollErrCh:
	case <-time.After(10 * time.Second):
		slog.Info("worker shutdown timeout waiting for poll loop")
	}
}
