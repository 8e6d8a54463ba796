package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type APIConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	Port      string `envconfig:"PORT" default:"8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// SendGrid
	SendGridAPIKey  string  `envconfig:"SENDGRID_API_KEY" required:"true"`
	SendGridBaseURL string  `envconfig:"SENDGRID_BASE_URL" default:"https://api.sendgrid.com"`
	SendGridRPS     float64 `envconfig:"SENDGRID_RPS" default:"10"`
	SendGridBurst   int     `envconfig:"SENDGRID_BURST" default:"20"`

	// Kickbox; empty key means verification pass-through
	KickboxAPIKey  string `envconfig:"KICKBOX_API_KEY"`
	KickboxBaseURL string `envconfig:"KICKBOX_BASE_URL" default:"https://api.kickbox.com"`

	// WATI
	WatiBaseURL       string `envconfig:"WATI_API_BASE_URL" required:"true"`
	WatiAPIToken      string `envconfig:"WATI_API_TOKEN" required:"true"`
	WatiChannelNumber string `envconfig:"WATI_CHANNEL_NUMBER" required:"true"`

	// AWS / SQS
	AWSRegion          string `envconfig:"AWS_REGION" required:"true"`
	SQSQueueURL        string `envconfig:"SQS_QUEUE_URL" required:"true"`
	LocalstackEndpoint string `envconfig:"LOCALSTACK_ENDPOINT"`
}

type WorkerConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	Port      string `envconfig:"PORT" default:"8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// WATI
	WatiBaseURL       string `envconfig:"WATI_API_BASE_URL" required:"true"`
	WatiAPIToken      string `envconfig:"WATI_API_TOKEN" required:"true"`
	WatiChannelNumber string `envconfig:"WATI_CHANNEL_NUMBER" required:"true"`

	// AWS / SQS
	AWSRegion          string `envconfig:"AWS_REGION" required:"true"`
	SQSQueueURL        string `envconfig:"SQS_QUEUE_URL" required:"true"`
	LocalstackEndpoint string `envconfig:"LOCALSTACK_ENDPOINT"`
	SQSWaitTime        int32  `envconfig:"SQS_WAIT_TIME" default:"20"`
	SQSMaxMsgs         int32  `envconfig:"SQS_MAX_MSGS" default:"10"`
	SQSVizTimeout      int32  `envconfig:"SQS_VISIBILITY_TIMEOUT" default:"300"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"10"`

	// Job-level retry: attempts and fixed backoff between them.
	DispatchAttempts  int `envconfig:"DISPATCH_ATTEMPTS" default:"3"`
	DispatchRetrySecs int `envconfig:"DISPATCH_RETRY_SECONDS" default:"60"`

	// Due-campaign poller and reconciliation sweep.
	PollIntervalSecs int    `envconfig:"POLL_INTERVAL_SECONDS" default:"30"`
	PollBatchSize    int    `envconfig:"POLL_BATCH_SIZE" default:"100"`
	SweepSpec        string `envconfig:"SWEEP_CRON" default:"@hourly"`
}

type WebhookConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	Port      string `envconfig:"PORT" default:"8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

func LoadAPI() APIConfig {
	var cfg APIConfig
	load(&cfg)
	return cfg
}

func LoadWorker() WorkerConfig {
	var cfg WorkerConfig
	load(&cfg)
	return cfg
}

func LoadWebhook() WebhookConfig {
	var cfg WebhookConfig
	load(&cfg)
	return cfg
}

func load(cfg any) {
	_ = godotenv.Load()
	if err := envconfig.Process("", cfg); err != nil {
		panic(err)
	}
}
