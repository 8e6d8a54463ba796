package scheduler

import (
	"context"
	"log/slog"
	"time"

	"campaigns/internal/domain"
)

type DueLister interface {
	ListDueWhatsAppCampaigns(ctx context.Context, now time.Time, limit int) ([]domain.WhatsAppCampaign, error)
}

type Enqueuer interface {
	EnqueueDispatch(ctx context.Context, campaignID string, delay time.Duration) error
}

// Poller periodically re-enqueues due campaigns that are still
// pending/scheduled. The queue's delay cap means long-scheduled sends arrive
// here rather than through a delayed message; it also catches enqueues lost
// at create time. Double enqueues are safe, the dispatch claim admits one.
type Poller struct {
	Store     DueLister
	Queue     Enqueuer
	Interval  time.Duration
	BatchSize int
}

func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	limit := p.BatchSize
	if limit <= 0 {
		limit = 100
	}
	due, err := p.Store.ListDueWhatsAppCampaigns(ctx, time.Now().UTC(), limit)
	if err != nil {
		slog.Error("due poll failed", "err", err)
		return
	}
	for _, campaign := range due {
		if err := p.Queue.EnqueueDispatch(ctx, campaign.ID, 0); err != nil {
			slog.Error("due enqueue failed", "err", err, "campaign_id", campaign.ID)
			continue
		}
		slog.Debug("due campaign enqueued", "campaign_id", campaign.ID)
	}
}
