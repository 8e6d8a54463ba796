package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusPartial    Status = "partial"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further dispatch may happen for a WhatsApp
// campaign in this status. Cancelled is absorbing too.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether a cancel action is legal from this status.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusScheduled
}

type EmailCampaign struct {
	ID                  string    `json:"id"`
	DomainName          string    `json:"domain_name"`
	TemplateName        string    `json:"template_name"`
	TemplateID          string    `json:"template_id"`
	Recipients          string    `json:"recipients"`
	Status              Status    `json:"status"`
	TotalEmails         int       `json:"total_emails"`
	SuccessfulEmails    int       `json:"successful_emails"`
	FailedEmails        int       `json:"failed_emails"`
	DeliverableEmails   string    `json:"deliverable_emails,omitempty"`
	UndeliverableEmails string    `json:"undeliverable_emails,omitempty"`
	ErrorMessage        string    `json:"error_message,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// RecipientList parses the comma-separated recipients column into trimmed,
// non-empty addresses, preserving order.
func (c *EmailCampaign) RecipientList() []string {
	return SplitEmails(c.Recipients)
}

func SplitEmails(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func JoinEmails(emails []string) string {
	return strings.Join(emails, ",")
}

// Parameter is one template placeholder binding. Order matters to the vendor,
// so parameters travel as an ordered list, not a map.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type WhatsAppCampaign struct {
	ID                 string      `json:"id"`
	TemplateName       string      `json:"template_name"`
	TemplateID         string      `json:"template_id"`
	MobileNumber       string      `json:"mobile_number"`
	ScheduledTime      time.Time   `json:"scheduled_time"`
	Status             Status      `json:"status"`
	Parameters         []Parameter `json:"parameters"`
	ErrorMessage       string      `json:"error_message,omitempty"`
	CancellationReason string      `json:"cancellation_reason,omitempty"`
	ReceivedMessage    string      `json:"received_message,omitempty"`
	SentAt             *time.Time  `json:"sent_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// DispatchResult is the outcome of one WhatsApp dispatch attempt. Vendor
// rejections and transport failures land here as OK=false with the status
// persisted on the campaign; only infrastructure errors (store unavailable,
// and the like) surface as a Go error so the job-level retry can act.
type DispatchResult struct {
	CampaignID string `json:"campaign_id"`
	OK         bool   `json:"success"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
}
