package service

import (
	"context"
	"log/slog"
	"time"

	"campaigns/internal/domain"
	"campaigns/internal/store"
)

// Payment reminder chain. A first reminder spawns the second and third at
// fixed offsets from its own scheduled time.
const (
	TemplateFirstReminder  = "payment_reminder_first"
	TemplateSecondReminder = "payment_reminder_second"
	TemplateThirdReminder  = "payment_reminder_third"

	secondReminderOffset = 4 * 24 * time.Hour
	thirdReminderOffset  = 10 * 24 * time.Hour
)

// CancellationReasonReply is recorded when an inbound reply cancels
// outstanding reminders for a phone number.
const CancellationReasonReply = "Response received from user - webhook triggered"

var followupSteps = []struct {
	Template string
	Offset   time.Duration
}{
	{TemplateSecondReminder, secondReminderOffset},
	{TemplateThirdReminder, thirdReminderOffset},
}

// scheduleFollowups creates the second and third reminders for a first
// reminder anchored at baseTime. A template missing from the WATI account is
// skipped; the chain is best-effort and never fails the originating send.
func (s *WhatsAppService) scheduleFollowups(ctx context.Context, mobile string, baseTime time.Time, baseDelay time.Duration, now time.Time) {
	for _, step := range followupSteps {
		templateID, err := s.Wati.GetTemplateIDByName(ctx, step.Template)
		if err != nil || templateID == "" {
			slog.Warn("follow-up template unavailable, skipping", "template", step.Template, "err", err)
			continue
		}

		id := s.IDGen()
		scheduledTime := baseTime.Add(step.Offset)
		err = s.Store.InsertWhatsAppCampaign(ctx, store.WhatsAppCampaignInsert{
			ID:            id,
			TemplateName:  step.Template,
			TemplateID:    templateID,
			MobileNumber:  mobile,
			ScheduledTime: scheduledTime,
			Status:        domain.StatusScheduled,
			Now:           now,
		})
		if err != nil {
			slog.Error("follow-up insert failed", "template", step.Template, "err", err)
			continue
		}

		s.enqueue(ctx, id, baseDelay+step.Offset)
		slog.Info("follow-up scheduled", "campaign_id", id, "template", step.Template, "scheduled_time", scheduledTime)
	}
}

// SendFollowup dispatches a single named follow-up for an existing campaign's
// recipient, immediately. which must be "second" or "third".
func (s *WhatsAppService) SendFollowup(ctx context.Context, baseCampaignID, which string, now time.Time) (domain.DispatchResult, error) {
	base, found, err := s.Store.GetWhatsAppCampaign(ctx, baseCampaignID)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if !found {
		return domain.DispatchResult{}, domain.ErrNotFound
	}

	var template string
	switch which {
	case "second":
		template = TemplateSecondReminder
	case "third":
		template = TemplateThirdReminder
	default:
		return domain.DispatchResult{}, domain.Invalid("which", "must be one of: second, third")
	}

	templateID, err := s.Wati.GetTemplateIDByName(ctx, template)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if templateID == "" {
		return domain.DispatchResult{}, &domain.VendorError{Provider: "WATI", Message: "template id not found for " + template}
	}

	id := s.IDGen()
	err = s.Store.InsertWhatsAppCampaign(ctx, store.WhatsAppCampaignInsert{
		ID:            id,
		TemplateName:  template,
		TemplateID:    templateID,
		MobileNumber:  base.MobileNumber,
		ScheduledTime: now,
		Status:        domain.StatusPending,
		Parameters:    base.Parameters,
		Now:           now,
	})
	if err != nil {
		return domain.DispatchResult{}, err
	}

	return s.Dispatch(ctx, id, now)
}
