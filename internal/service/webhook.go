package service

import (
	"context"
	"log/slog"
	"time"

	"campaigns/internal/domain"
	"campaigns/internal/observability"
	"campaigns/internal/store"
	"campaigns/internal/util"
)

type CancelledCampaign struct {
	CampaignID    string        `json:"campaign_id"`
	TemplateName  string        `json:"template_name"`
	MobileNumber  string        `json:"mobile_number"`
	ScheduledTime time.Time     `json:"scheduled_time"`
	Status        domain.Status `json:"status"`
}

type ReplyCancellation struct {
	WaID            string              `json:"wa_id"`
	Normalized      string              `json:"normalized_number"`
	ReceivedMessage string              `json:"received_message"`
	CancelledCount  int                 `json:"cancelled_count"`
	Cancelled       []CancelledCampaign `json:"cancelled"`
}

// CancelByReply cancels every pending/scheduled campaign whose mobile number
// matches any stored variant of the replying WhatsApp id. Replaying the same
// event is harmless: already-cancelled rows no longer match.
func (s *WhatsAppService) CancelByReply(ctx context.Context, event domain.InboundEvent, now time.Time) (ReplyCancellation, error) {
	if event.WaID == "" {
		return ReplyCancellation{}, domain.Invalid("waId", "required")
	}

	normalized := util.NormalizeWaID(event.WaID)
	variants := util.PhoneVariants(normalized)

	matches, err := s.Store.ListCancellableByPhone(ctx, variants)
	if err != nil {
		return ReplyCancellation{}, err
	}

	out := ReplyCancellation{
		WaID:            event.WaID,
		Normalized:      normalized,
		ReceivedMessage: event.Text,
		Cancelled:       []CancelledCampaign{},
	}
	for _, campaign := range matches {
		cancelled, err := s.Store.CancelWhatsAppCampaign(ctx, store.WhatsAppCancelUpdate{
			ID:              campaign.ID,
			Reason:          CancellationReasonReply,
			ReceivedMessage: event.Text,
			Now:             now,
		})
		if err != nil {
			return ReplyCancellation{}, err
		}
		if !cancelled {
			continue
		}
		observability.Cancellations.WithLabelValues("webhook").Inc()
		out.CancelledCount++
		out.Cancelled = append(out.Cancelled, CancelledCampaign{
			CampaignID:    campaign.ID,
			TemplateName:  campaign.TemplateName,
			MobileNumber:  campaign.MobileNumber,
			ScheduledTime: campaign.ScheduledTime,
			Status:        domain.StatusCancelled,
		})
	}

	if out.CancelledCount > 0 {
		slog.Info("cancelled campaigns on inbound reply", "wa_id", normalized, "count", out.CancelledCount)
	}
	return out, nil
}
