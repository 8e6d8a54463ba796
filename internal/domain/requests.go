package domain

import (
	"strings"
	"time"
)

type SendEmailRequest struct {
	DomainName   string `json:"domain_name"`
	TemplateName string `json:"template_name"`
	TemplateID   string `json:"template_id"`
	Recipients   string `json:"recipients"`
}

func (r SendEmailRequest) Validate() error {
	if r.DomainName == "" {
		return Invalid("domain_name", "required")
	}
	if r.TemplateName == "" {
		return Invalid("template_name", "required")
	}
	if r.TemplateID == "" {
		return Invalid("template_id", "required")
	}
	recipients := SplitEmails(r.Recipients)
	if len(recipients) == 0 {
		return Invalid("recipients", "at least one address required")
	}
	for _, addr := range recipients {
		if !strings.Contains(addr, "@") {
			return Invalid("recipients", "not an email address: "+addr)
		}
	}
	return nil
}

type PreviewEmailRequest struct {
	DomainName   string `json:"domain_name"`
	TemplateName string `json:"template_name"`
	TemplateID   string `json:"template_id"`
	Recipient    string `json:"recipient"`
}

func (r PreviewEmailRequest) Validate() error {
	if r.DomainName == "" {
		return Invalid("domain_name", "required")
	}
	if r.TemplateID == "" {
		return Invalid("template_id", "required")
	}
	if r.Recipient == "" || !strings.Contains(r.Recipient, "@") {
		return Invalid("recipient", "not an email address")
	}
	return nil
}

type SendWhatsAppRequest struct {
	TemplateName  string      `json:"template_name"`
	TemplateID    string      `json:"template_id"`
	MobileNumber  string      `json:"mobile_number"`
	ScheduledTime time.Time   `json:"scheduled_time"`
	Parameters    []Parameter `json:"parameters,omitempty"`
}

func (r SendWhatsAppRequest) Validate() error {
	if r.TemplateName == "" {
		return Invalid("template_name", "required")
	}
	if r.TemplateID == "" {
		return Invalid("template_id", "required")
	}
	if err := validateMobile(r.MobileNumber); err != nil {
		return err
	}
	if r.ScheduledTime.IsZero() {
		return Invalid("scheduled_time", "required")
	}
	return nil
}

// validateMobile accepts E.164-ish numbers: optional leading +, digits only,
// 8 to 15 of them. Stored numbers are not re-normalized here; matching at
// cancellation time tolerates mixed formats.
func validateMobile(s string) error {
	digits := strings.TrimPrefix(strings.TrimSpace(s), "+")
	if len(digits) < 8 || len(digits) > 15 {
		return Invalid("mobile_number", "expected 8-15 digits")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Invalid("mobile_number", "digits only after optional +")
		}
	}
	return nil
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type FollowupRequest struct {
	Which string `json:"which"`
}

func (r FollowupRequest) Validate() error {
	if r.Which != "second" && r.Which != "third" {
		return Invalid("which", `must be "second" or "third"`)
	}
	return nil
}

// InboundEvent is the WATI webhook payload for an inbound message.
type InboundEvent struct {
	WaID      string `json:"waId"`
	Text      string `json:"text"`
	EventType string `json:"eventType"`
}
