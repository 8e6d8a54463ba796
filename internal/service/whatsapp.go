package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"campaigns/internal/domain"
	"campaigns/internal/observability"
	"campaigns/internal/providers/wati"
	"campaigns/internal/store"
)

type WhatsAppStore interface {
	InsertWhatsAppCampaign(ctx context.Context, in store.WhatsAppCampaignInsert) error
	GetWhatsAppCampaign(ctx context.Context, id string) (domain.WhatsAppCampaign, bool, error)
	ClaimWhatsAppCampaign(ctx context.Context, id string, now time.Time) (bool, error)
	MarkWhatsAppSuccess(ctx context.Context, id string, sentAt time.Time) error
	MarkWhatsAppFailed(ctx context.Context, id, errorMessage string, now time.Time) error
	CancelWhatsAppCampaign(ctx context.Context, in store.WhatsAppCancelUpdate) (bool, error)
	ListCancellableByPhone(ctx context.Context, variants []string) ([]domain.WhatsAppCampaign, error)
}

type WatiSender interface {
	SendTemplateMessage(ctx context.Context, req wati.SendTemplateRequest) (wati.SendResponse, int, []byte, error)
	GetTemplateIDByName(ctx context.Context, name string) (string, error)
}

type DispatchEnqueuer interface {
	EnqueueDispatch(ctx context.Context, campaignID string, delay time.Duration) error
}

const cancelledByUser = "Cancelled by user"

// maxQueueDelay mirrors the SQS per-message delay cap. A deferral beyond it
// must not be enqueued at create time: the queue would clamp the delay and
// deliver the job early. Those rows wait for the due-campaign poller, which
// only enqueues once the scheduled time has passed.
const maxQueueDelay = 900 * time.Second

type WhatsAppService struct {
	Store   WhatsAppStore
	Wati    WatiSender
	Queue   DispatchEnqueuer
	Breaker *gobreaker.CircuitBreaker
	IDGen   func() string

	// Vendor-call retry. Transport failures are retried this many times with
	// a fixed pause before the campaign is marked failed.
	SendAttempts   int
	SendRetryDelay time.Duration
}

type WhatsAppSendOutcome struct {
	CampaignID    string
	Scheduled     bool
	ScheduledTime time.Time
	Result        domain.DispatchResult
}

// CreateAndSend records a campaign and either dispatches it inline
// (scheduled time in the past or now) or leaves it scheduled for the
// deferred path. A first-reminder template also fans out its fixed
// follow-up chain.
func (s *WhatsAppService) CreateAndSend(ctx context.Context, req domain.SendWhatsAppRequest, now time.Time) (WhatsAppSendOutcome, error) {
	immediate := !req.ScheduledTime.After(now)
	status := domain.StatusScheduled
	if immediate {
		status = domain.StatusPending
	}

	id := s.IDGen()
	err := s.Store.InsertWhatsAppCampaign(ctx, store.WhatsAppCampaignInsert{
		ID:            id,
		TemplateName:  req.TemplateName,
		TemplateID:    req.TemplateID,
		MobileNumber:  req.MobileNumber,
		ScheduledTime: req.ScheduledTime,
		Status:        status,
		Parameters:    req.Parameters,
		Now:           now,
	})
	if err != nil {
		return WhatsAppSendOutcome{}, err
	}

	if immediate {
		result, err := s.Dispatch(ctx, id, now)
		if err != nil {
			return WhatsAppSendOutcome{}, err
		}
		if result.OK && req.TemplateName == TemplateFirstReminder {
			s.scheduleFollowups(ctx, req.MobileNumber, now, 0, now)
		}
		return WhatsAppSendOutcome{CampaignID: id, Result: result}, nil
	}

	delay := req.ScheduledTime.Sub(now)
	s.enqueue(ctx, id, delay)

	if req.TemplateName == TemplateFirstReminder {
		s.scheduleFollowups(ctx, req.MobileNumber, req.ScheduledTime, delay, now)
	}

	return WhatsAppSendOutcome{CampaignID: id, Scheduled: true, ScheduledTime: req.ScheduledTime}, nil
}

// enqueue hands a campaign to the deferred queue. An enqueue failure is not
// fatal: the row stays pending/scheduled and the poller or sweep repairs it.
func (s *WhatsAppService) enqueue(ctx context.Context, id string, delay time.Duration) {
	if s.Queue == nil {
		return
	}
	if delay > maxQueueDelay {
		slog.Info("deferral exceeds queue delay cap, leaving to poller", "campaign_id", id, "delay", delay)
		return
	}
	if err := s.Queue.EnqueueDispatch(ctx, id, delay); err != nil {
		observability.Enqueues.WithLabelValues("error").Inc()
		slog.Warn("dispatch enqueue failed, poller will pick it up", "err", err, "campaign_id", id)
		return
	}
	observability.Enqueues.WithLabelValues("ok").Inc()
}

// Dispatch attempts one send for the campaign. The conditional claim from
// pending/scheduled to processing admits exactly one caller; everyone else
// gets a no-op result reporting the existing state. Vendor rejections and
// transport failures are persisted as failed and reported in the result, not
// as a Go error.
func (s *WhatsAppService) Dispatch(ctx context.Context, campaignID string, now time.Time) (domain.DispatchResult, error) {
	claimed, err := s.Store.ClaimWhatsAppCampaign(ctx, campaignID, now)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if !claimed {
		campaign, found, err := s.Store.GetWhatsAppCampaign(ctx, campaignID)
		if err != nil {
			return domain.DispatchResult{}, err
		}
		if !found {
			return domain.DispatchResult{}, domain.ErrNotFound
		}
		message := campaign.ErrorMessage
		if campaign.Status == domain.StatusCancelled {
			message = campaign.CancellationReason
		}
		return domain.DispatchResult{
			CampaignID: campaignID,
			OK:         campaign.Status == domain.StatusSuccess,
			Status:     campaign.Status,
			Message:    message,
		}, nil
	}

	campaign, found, err := s.Store.GetWhatsAppCampaign(ctx, campaignID)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if !found {
		return domain.DispatchResult{}, domain.ErrNotFound
	}

	resp, httpStatus, raw, sendErr := s.sendWithRetry(ctx, campaign)
	if sendErr != nil {
		observability.WatiSend.WithLabelValues("error", "0").Inc()
		return s.markFailed(ctx, campaignID, (&domain.TransportError{Provider: "WATI", Err: sendErr}).Error(), now)
	}

	if httpStatus == 200 || httpStatus == 201 || httpStatus == 202 {
		if resp.OK() {
			observability.WatiSend.WithLabelValues("ok", strconv.Itoa(httpStatus)).Inc()
			if err := s.Store.MarkWhatsAppSuccess(ctx, campaignID, now); err != nil {
				return domain.DispatchResult{}, err
			}
			slog.Info("whatsapp campaign sent", "campaign_id", campaignID, "template", campaign.TemplateName)
			return domain.DispatchResult{CampaignID: campaignID, OK: true, Status: domain.StatusSuccess}, nil
		}

		observability.WatiSend.WithLabelValues("rejected", strconv.Itoa(httpStatus)).Inc()
		message := resp.Message
		if message == "" {
			message = "WATI API error: " + truncate(raw, 500)
		}
		return s.markFailed(ctx, campaignID, message, now)
	}

	observability.WatiSend.WithLabelValues("error", strconv.Itoa(httpStatus)).Inc()
	vendorErr := &domain.VendorError{Provider: "WATI", StatusCode: httpStatus, Body: truncate(raw, 500), Message: resp.Message}
	return s.markFailed(ctx, campaignID, vendorErr.Error(), now)
}

// sendWithRetry keeps retrying transport failures; a response from the
// vendor, whatever it says, ends the loop.
func (s *WhatsAppService) sendWithRetry(ctx context.Context, campaign domain.WhatsAppCampaign) (wati.SendResponse, int, []byte, error) {
	attempts := s.SendAttempts
	if attempts <= 0 {
		attempts = 3
	}
	retryDelay := s.SendRetryDelay
	if retryDelay <= 0 {
		retryDelay = 60 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, status, raw, err := s.send(ctx, campaign)
		if err == nil {
			return resp, status, raw, nil
		}
		lastErr = err
		slog.Warn("wati send attempt failed",
			"err", err,
			"campaign_id", campaign.ID,
			"attempt", attempt,
			"max_attempts", attempts,
		)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return wati.SendResponse{}, 0, nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return wati.SendResponse{}, 0, nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *WhatsAppService) send(ctx context.Context, campaign domain.WhatsAppCampaign) (wati.SendResponse, int, []byte, error) {
	req := wati.SendTemplateRequest{
		WhatsAppNumber: campaign.MobileNumber,
		TemplateName:   campaign.TemplateName,
		BroadcastName:  fmt.Sprintf("Campaign_%s_%s", campaign.ID, campaign.TemplateName),
		Parameters:     campaign.Parameters,
	}

	start := time.Now()
	defer func() {
		observability.WatiLatency.Observe(time.Since(start).Seconds())
	}()

	if s.Breaker == nil {
		return s.Wati.SendTemplateMessage(ctx, req)
	}

	out, err := s.Breaker.Execute(func() (any, error) {
		resp, status, raw, callErr := s.Wati.SendTemplateMessage(ctx, req)
		if callErr != nil {
			return nil, callErr
		}
		return watiCallResult{resp: resp, status: status, raw: raw}, nil
	})
	if err != nil {
		return wati.SendResponse{}, 0, nil, err
	}
	r := out.(watiCallResult)
	return r.resp, r.status, r.raw, nil
}

type watiCallResult struct {
	resp   wati.SendResponse
	status int
	raw    []byte
}

func (s *WhatsAppService) markFailed(ctx context.Context, campaignID, message string, now time.Time) (domain.DispatchResult, error) {
	if err := s.Store.MarkWhatsAppFailed(ctx, campaignID, message, now); err != nil {
		return domain.DispatchResult{}, err
	}
	slog.Warn("whatsapp campaign failed", "campaign_id", campaignID, "reason", message)
	return domain.DispatchResult{CampaignID: campaignID, OK: false, Status: domain.StatusFailed, Message: message}, nil
}

// SendNow force-dispatches a campaign immediately, subject to the same state
// guard as any other dispatch.
func (s *WhatsAppService) SendNow(ctx context.Context, campaignID string, now time.Time) (domain.DispatchResult, error) {
	return s.Dispatch(ctx, campaignID, now)
}

// Cancel marks a pending/scheduled campaign cancelled so the deferred path
// will skip it. Cancelling a campaign in any other state is an illegal
// transition and leaves the record untouched.
func (s *WhatsAppService) Cancel(ctx context.Context, campaignID, reason string, now time.Time) (domain.WhatsAppCampaign, error) {
	campaign, found, err := s.Store.GetWhatsAppCampaign(ctx, campaignID)
	if err != nil {
		return domain.WhatsAppCampaign{}, err
	}
	if !found {
		return domain.WhatsAppCampaign{}, domain.ErrNotFound
	}
	if !campaign.Status.Cancellable() {
		return domain.WhatsAppCampaign{}, &domain.InvalidStateError{Action: "cancel", Status: campaign.Status}
	}

	if reason == "" {
		reason = cancelledByUser
	}
	updated, err := s.Store.CancelWhatsAppCampaign(ctx, store.WhatsAppCancelUpdate{
		ID:     campaignID,
		Reason: reason,
		Now:    now,
	})
	if err != nil {
		return domain.WhatsAppCampaign{}, err
	}
	if !updated {
		// lost a race with a dispatch or another cancel
		refreshed, _, err := s.Store.GetWhatsAppCampaign(ctx, campaignID)
		if err != nil {
			return domain.WhatsAppCampaign{}, err
		}
		return domain.WhatsAppCampaign{}, &domain.InvalidStateError{Action: "cancel", Status: refreshed.Status}
	}

	observability.Cancellations.WithLabelValues("api").Inc()
	campaign.Status = domain.StatusCancelled
	campaign.CancellationReason = reason
	return campaign, nil
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n]
	}
	return s
}
