package scheduler

import (
	"context"
	"log/slog"
	"time"

	"campaigns/internal/domain"
	"campaigns/internal/observability"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, campaignID string, now time.Time) (domain.DispatchResult, error)
}

type SweepStore interface {
	DueLister
	MarkWhatsAppFailed(ctx context.Context, id, errorMessage string, now time.Time) error
}

type SweepReport struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Sweeper is the hourly reconciliation pass: it dispatches every campaign
// whose scheduled time has arrived but which no queue message ever reached.
// It runs through the same claim as the queue path, so overlap with an
// in-flight worker resolves to a single send.
type Sweeper struct {
	Store      SweepStore
	Dispatcher Dispatcher
	BatchSize  int
}

func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	limit := s.BatchSize
	if limit <= 0 {
		limit = 500
	}
	due, err := s.Store.ListDueWhatsAppCampaigns(ctx, now, limit)
	if err != nil {
		return SweepReport{}, err
	}

	var report SweepReport
	for _, campaign := range due {
		report.Processed++
		result, err := s.Dispatcher.Dispatch(ctx, campaign.ID, now)
		if err != nil {
			// infrastructure failure on this row; record it and keep sweeping.
			// Without the mark a row already claimed into processing would
			// never be listed as due again.
			report.Failed++
			observability.SweepCampaigns.WithLabelValues("error").Inc()
			slog.Error("sweep dispatch failed", "err", err, "campaign_id", campaign.ID)
			if markErr := s.Store.MarkWhatsAppFailed(ctx, campaign.ID, err.Error(), now); markErr != nil {
				slog.Error("sweep failure record failed", "err", markErr, "campaign_id", campaign.ID)
			}
			continue
		}
		if result.OK {
			report.Succeeded++
			observability.SweepCampaigns.WithLabelValues("ok").Inc()
		} else {
			report.Failed++
			observability.SweepCampaigns.WithLabelValues("failed").Inc()
		}
	}

	if report.Processed > 0 {
		slog.Info("sweep complete", "processed", report.Processed, "succeeded", report.Succeeded, "failed", report.Failed)
	}
	return report, nil
}
