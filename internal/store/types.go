package store

import (
	"time"

	"campaigns/internal/domain"
)

type EmailCampaignInsert struct {
	ID           string
	DomainName   string
	TemplateName string
	TemplateID   string
	Recipients   string
	Status       domain.Status
	Now          time.Time
}

type EmailVerificationUpdate struct {
	ID                  string
	DeliverableEmails   string
	UndeliverableEmails string
	Now                 time.Time
}

type EmailFinishUpdate struct {
	ID           string
	Status       domain.Status
	Successful   int
	Failed       int
	ErrorMessage string
	Now          time.Time
}

type WhatsAppCampaignInsert struct {
	ID            string
	TemplateName  string
	TemplateID    string
	MobileNumber  string
	ScheduledTime time.Time
	Status        domain.Status
	Parameters    []domain.Parameter
	Now           time.Time
}

type WhatsAppCancelUpdate struct {
	ID              string
	Reason          string
	ReceivedMessage string
	Now             time.Time
}
