package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"campaigns/internal/domain"
	"campaigns/internal/observability"
	"campaigns/internal/providers/kickbox"
	"campaigns/internal/store"
)

type EmailStore interface {
	InsertEmailCampaign(ctx context.Context, in store.EmailCampaignInsert) error
	GetEmailCampaign(ctx context.Context, id string) (domain.EmailCampaign, bool, error)
	MarkEmailProcessing(ctx context.Context, id string, total int, now time.Time) error
	SetEmailVerification(ctx context.Context, in store.EmailVerificationUpdate) error
	FinishEmailCampaign(ctx context.Context, in store.EmailFinishUpdate) error
}

type EmailSender interface {
	SendTemplate(ctx context.Context, from, fromName, to, templateID string) (int, []byte, error)
}

// EmailVerifier classifies one mailbox; the returned string is the raw vendor
// result (deliverable, undeliverable, risky, unknown).
type EmailVerifier interface {
	Verify(ctx context.Context, email string) (string, error)
}

// KickboxVerifier adapts the kickbox client to the verifier interface.
type KickboxVerifier struct {
	Client *kickbox.Client
}

func (v *KickboxVerifier) Verify(ctx context.Context, email string) (string, error) {
	resp, _, err := v.Client.Verify(ctx, email)
	if err != nil {
		observability.EmailVerifications.WithLabelValues("error").Inc()
		return "", err
	}
	observability.EmailVerifications.WithLabelValues(resp.Result).Inc()
	return resp.Result, nil
}

const defaultFromName = "Email Dashboard"

type EmailService struct {
	Store    EmailStore
	Sender   EmailSender
	Verifier EmailVerifier // nil means verification pass-through
	Limiter  *rate.Limiter // optional, paces per-recipient sends
	FromName string
	IDGen    func() string
}

type EmailDispatchReport struct {
	CampaignID string        `json:"campaign_id"`
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Status     domain.Status `json:"status"`
	Errors     []string      `json:"errors,omitempty"`
}

// CreateAndSend records a campaign and dispatches it inline.
func (s *EmailService) CreateAndSend(ctx context.Context, req domain.SendEmailRequest, now time.Time) (EmailDispatchReport, error) {
	id := s.IDGen()
	err := s.Store.InsertEmailCampaign(ctx, store.EmailCampaignInsert{
		ID:           id,
		DomainName:   req.DomainName,
		TemplateName: req.TemplateName,
		TemplateID:   req.TemplateID,
		Recipients:   req.Recipients,
		Status:       domain.StatusPending,
		Now:          now,
	})
	if err != nil {
		return EmailDispatchReport{}, err
	}
	return s.Dispatch(ctx, id, now)
}

type emailVerification struct {
	deliverable   []string
	undeliverable []string
	unknown       []string
	errors        []string
}

// verifyRecipients classifies every recipient. Without a configured verifier
// all recipients pass through as deliverable. A verification error or an
// inconclusive vendor answer classifies the address as unknown with a note.
func (s *EmailService) verifyRecipients(ctx context.Context, recipients []string) emailVerification {
	var v emailVerification
	if s.Verifier == nil {
		v.deliverable = recipients
		return v
	}
	for _, email := range recipients {
		result, err := s.Verifier.Verify(ctx, email)
		if err != nil {
			v.unknown = append(v.unknown, email)
			v.errors = append(v.errors, fmt.Sprintf("%s: %v", email, err))
			continue
		}
		switch result {
		case kickbox.ResultDeliverable:
			v.deliverable = append(v.deliverable, email)
		case kickbox.ResultUndeliverable:
			v.undeliverable = append(v.undeliverable, email)
		default:
			v.unknown = append(v.unknown, email)
			v.errors = append(v.errors, fmt.Sprintf("%s: verification returned %s", email, result))
		}
	}
	return v
}

// Dispatch advances an email campaign from pending to a terminal status and
// reports aggregate counts. Per-recipient failures are collected, never
// raised; an infrastructure error is best-effort recorded on the campaign as
// failed and returned to the caller.
func (s *EmailService) Dispatch(ctx context.Context, campaignID string, now time.Time) (EmailDispatchReport, error) {
	campaign, found, err := s.Store.GetEmailCampaign(ctx, campaignID)
	if err != nil {
		return EmailDispatchReport{}, err
	}
	if !found {
		return EmailDispatchReport{}, domain.ErrNotFound
	}

	recipients := campaign.RecipientList()
	if err := s.Store.MarkEmailProcessing(ctx, campaignID, len(recipients), now); err != nil {
		return s.finishAfterError(ctx, campaignID, len(recipients), err, now)
	}

	verification := s.verifyRecipients(ctx, recipients)
	errs := verification.errors

	// undeliverable and unknown addresses count as failed without a send
	failed := len(verification.undeliverable) + len(verification.unknown)

	if err := s.Store.SetEmailVerification(ctx, store.EmailVerificationUpdate{
		ID:                  campaignID,
		DeliverableEmails:   domain.JoinEmails(verification.deliverable),
		UndeliverableEmails: domain.JoinEmails(verification.undeliverable),
		Now:                 now,
	}); err != nil {
		return s.finishAfterError(ctx, campaignID, len(recipients), err, now)
	}

	successful := 0
	for _, recipient := range verification.deliverable {
		from := "noreply@" + campaign.DomainName
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				failed++
				errs = append(errs, fmt.Sprintf("%s: %v", recipient, err))
				continue
			}
		}
		status, _, err := s.Sender.SendTemplate(ctx, from, s.fromName(), recipient, campaign.TemplateID)
		if err != nil {
			observability.EmailSends.WithLabelValues("error", "0").Inc()
			failed++
			errs = append(errs, fmt.Sprintf("%s: %v", recipient, err))
			continue
		}
		if status == 200 || status == 201 || status == 202 {
			observability.EmailSends.WithLabelValues("ok", strconv.Itoa(status)).Inc()
			successful++
		} else {
			observability.EmailSends.WithLabelValues("error", strconv.Itoa(status)).Inc()
			failed++
			errs = append(errs, fmt.Sprintf("%s: Status %d", recipient, status))
		}
	}

	finalStatus := domain.StatusPartial
	switch {
	case failed == 0:
		finalStatus = domain.StatusSuccess
	case successful == 0:
		finalStatus = domain.StatusFailed
	}
	errorMessage := ""
	if finalStatus != domain.StatusSuccess {
		errorMessage = strings.Join(errs, "; ")
	}

	if err := s.Store.FinishEmailCampaign(ctx, store.EmailFinishUpdate{
		ID:           campaignID,
		Status:       finalStatus,
		Successful:   successful,
		Failed:       failed,
		ErrorMessage: errorMessage,
		Now:          now,
	}); err != nil {
		return s.finishAfterError(ctx, campaignID, len(recipients), err, now)
	}

	slog.Info("email campaign dispatched",
		"campaign_id", campaignID,
		"status", finalStatus,
		"total", len(recipients),
		"successful", successful,
		"failed", failed,
	)

	return EmailDispatchReport{
		CampaignID: campaignID,
		Total:      len(recipients),
		Successful: successful,
		Failed:     failed,
		Status:     finalStatus,
		Errors:     errs,
	}, nil
}

// finishAfterError best-effort records an infrastructure failure on the
// campaign, then hands the original error back to the caller.
func (s *EmailService) finishAfterError(ctx context.Context, campaignID string, total int, cause error, now time.Time) (EmailDispatchReport, error) {
	if err := s.Store.FinishEmailCampaign(ctx, store.EmailFinishUpdate{
		ID:           campaignID,
		Status:       domain.StatusFailed,
		Successful:   0,
		Failed:       total,
		ErrorMessage: cause.Error(),
		Now:          now,
	}); err != nil {
		slog.Error("email campaign failure record failed", "err", err, "campaign_id", campaignID)
	}
	return EmailDispatchReport{}, cause
}

type EmailPreview struct {
	Recipient      string `json:"recipient"`
	Deliverability string `json:"deliverability"`
	TemplateID     string `json:"template_id"`
	TemplateName   string `json:"template_name"`
	FromEmail      string `json:"from_email"`
}

// Preview classifies a single recipient without sending anything.
func (s *EmailService) Preview(ctx context.Context, req domain.PreviewEmailRequest) EmailPreview {
	verification := s.verifyRecipients(ctx, []string{req.Recipient})
	label := "unknown"
	switch {
	case len(verification.deliverable) > 0:
		label = "deliverable"
	case len(verification.undeliverable) > 0:
		label = "undeliverable"
	}
	return EmailPreview{
		Recipient:      req.Recipient,
		Deliverability: label,
		TemplateID:     req.TemplateID,
		TemplateName:   req.TemplateName,
		FromEmail:      "noreply@" + req.DomainName,
	}
}

func (s *EmailService) fromName() string {
	if s.FromName != "" {
		return s.FromName
	}
	return defaultFromName
}
