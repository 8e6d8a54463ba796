package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campaigns/internal/domain"
	"campaigns/internal/observability"
	sqs "campaigns/internal/queue/sqs"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, campaignID string, now time.Time) (domain.DispatchResult, error)
}

// Processor consumes dispatch jobs. Infrastructure errors (DB down, vendor
// unreachable at the transport level surfaced as errors) are retried a fixed
// number of times with a fixed pause; after that the job is abandoned and the
// campaign left for the sweep. Vendor rejections come back inside the result
// and are final, the campaign is already marked failed.
type Processor struct {
	Dispatcher Dispatcher
	Attempts   int
	RetryDelay time.Duration
}

func (p *Processor) Process(ctx context.Context, job sqs.DispatchJob) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	retryDelay := p.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 60 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := p.Dispatcher.Dispatch(ctx, job.CampaignID, time.Now().UTC())
		if err == nil {
			if result.OK {
				observability.DispatchJobs.WithLabelValues("ok").Inc()
			} else {
				observability.DispatchJobs.WithLabelValues("failed").Inc()
			}
			return nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			// stale job for a deleted campaign, drop it
			observability.DispatchJobs.WithLabelValues("missing").Inc()
			slog.Warn("dispatch job for unknown campaign", "campaign_id", job.CampaignID)
			return nil
		}

		lastErr = err
		slog.Error("dispatch attempt failed",
			"err", err,
			"campaign_id", job.CampaignID,
			"attempt", attempt,
			"max_attempts", attempts,
		)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	// Abandon rather than redrive; if the row was never claimed the hourly
	// sweep will pick it up.
	observability.DispatchJobs.WithLabelValues("abandoned").Inc()
	slog.Error("dispatch abandoned after retries", "err", lastErr, "campaign_id", job.CampaignID)
	return nil
}
