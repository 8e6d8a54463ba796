package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campaigns/internal/domain"
	"campaigns/internal/store"
)

type Store struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

const emailColumns = `
	id, domain_name, template_name, template_id, recipients, status,
	total_emails, successful_emails, failed_emails,
	COALESCE(deliverable_emails,''), COALESCE(undeliverable_emails,''),
	COALESCE(error_message,''), created_at, updated_at`

func (s *Store) InsertEmailCampaign(ctx context.Context, in store.EmailCampaignInsert) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO email_campaigns (id, domain_name, template_name, template_id, recipients, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
	`, in.ID, in.DomainName, in.TemplateName, in.TemplateID, in.Recipients, in.Status, in.Now)
	return err
}

func (s *Store) GetEmailCampaign(ctx context.Context, id string) (domain.EmailCampaign, bool, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+emailColumns+` FROM email_campaigns WHERE id=$1`, id)
	c, err := scanEmailCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EmailCampaign{}, false, nil
		}
		return domain.EmailCampaign{}, false, err
	}
	return c, true, nil
}

func (s *Store) ListEmailCampaigns(ctx context.Context) ([]domain.EmailCampaign, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+emailColumns+` FROM email_campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EmailCampaign
	for rows.Next() {
		c, err := scanEmailCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteEmailCampaign(ctx context.Context, id string) (bool, error) {
	ct, err := s.DB.Exec(ctx, `DELETE FROM email_campaigns WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// MarkEmailProcessing moves the campaign into processing and records the
// parsed recipient count.
func (s *Store) MarkEmailProcessing(ctx context.Context, id string, total int, now time.Time) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE email_campaigns SET status=$2, total_emails=$3, updated_at=$4 WHERE id=$1
	`, id, domain.StatusProcessing, total, now)
	return err
}

func (s *Store) SetEmailVerification(ctx context.Context, in store.EmailVerificationUpdate) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE email_campaigns
		SET deliverable_emails=$2, undeliverable_emails=$3, updated_at=$4
		WHERE id=$1
	`, in.ID, nullIfEmpty(in.DeliverableEmails), nullIfEmpty(in.UndeliverableEmails), in.Now)
	return err
}

func (s *Store) FinishEmailCampaign(ctx context.Context, in store.EmailFinishUpdate) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE email_campaigns
		SET status=$2, successful_emails=$3, failed_emails=$4, error_message=$5, updated_at=$6
		WHERE id=$1
	`, in.ID, in.Status, in.Successful, in.Failed, nullIfEmpty(in.ErrorMessage), in.Now)
	return err
}

const whatsappColumns = `
	id, template_name, template_id, mobile_number, scheduled_time, status, parameters,
	COALESCE(error_message,''), COALESCE(cancellation_reason,''), COALESCE(received_message,''),
	sent_at, created_at, updated_at`

func (s *Store) InsertWhatsAppCampaign(ctx context.Context, in store.WhatsAppCampaignInsert) error {
	params := in.Parameters
	if params == nil {
		params = []domain.Parameter{}
	}
	b, _ := json.Marshal(params)
	_, err := s.DB.Exec(ctx, `
		INSERT INTO whatsapp_campaigns (id, template_name, template_id, mobile_number, scheduled_time, status, parameters, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
	`, in.ID, in.TemplateName, in.TemplateID, in.MobileNumber, in.ScheduledTime, in.Status, b, in.Now)
	return err
}

func (s *Store) GetWhatsAppCampaign(ctx context.Context, id string) (domain.WhatsAppCampaign, bool, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+whatsappColumns+` FROM whatsapp_campaigns WHERE id=$1`, id)
	c, err := scanWhatsAppCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WhatsAppCampaign{}, false, nil
		}
		return domain.WhatsAppCampaign{}, false, err
	}
	return c, true, nil
}

func (s *Store) ListWhatsAppCampaigns(ctx context.Context) ([]domain.WhatsAppCampaign, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+whatsappColumns+` FROM whatsapp_campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWhatsAppCampaigns(rows)
}

// ClaimWhatsAppCampaign is the compare-and-swap guard ahead of a send: the
// conditional UPDATE from pending/scheduled to processing succeeds for
// exactly one caller. A false return means the campaign was already claimed,
// finished, or cancelled.
func (s *Store) ClaimWhatsAppCampaign(ctx context.Context, id string, now time.Time) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE whatsapp_campaigns SET status=$2, updated_at=$3
		WHERE id=$1 AND status IN ($4, $5)
	`, id, domain.StatusProcessing, now, domain.StatusPending, domain.StatusScheduled)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) MarkWhatsAppSuccess(ctx context.Context, id string, sentAt time.Time) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE whatsapp_campaigns SET status=$2, sent_at=$3, error_message=NULL, updated_at=$3 WHERE id=$1
	`, id, domain.StatusSuccess, sentAt)
	return err
}

func (s *Store) MarkWhatsAppFailed(ctx context.Context, id, errorMessage string, now time.Time) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE whatsapp_campaigns SET status=$2, error_message=$3, updated_at=$4 WHERE id=$1
	`, id, domain.StatusFailed, nullIfEmpty(errorMessage), now)
	return err
}

// CancelWhatsAppCampaign cancels only when the row is still pending or
// scheduled, which makes duplicate webhook deliveries a no-op.
func (s *Store) CancelWhatsAppCampaign(ctx context.Context, in store.WhatsAppCancelUpdate) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE whatsapp_campaigns
		SET status=$2, cancellation_reason=$3, received_message=$4, updated_at=$5
		WHERE id=$1 AND status IN ($6, $7)
	`, in.ID, domain.StatusCancelled, in.Reason, nullIfEmpty(in.ReceivedMessage), in.Now,
		domain.StatusPending, domain.StatusScheduled)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// ListCancellableByPhone returns pending/scheduled campaigns whose stored
// mobile number matches any of the given variants.
func (s *Store) ListCancellableByPhone(ctx context.Context, variants []string) ([]domain.WhatsAppCampaign, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+whatsappColumns+`
		FROM whatsapp_campaigns
		WHERE mobile_number = ANY($1) AND status IN ($2, $3)
		ORDER BY created_at
	`, variants, domain.StatusPending, domain.StatusScheduled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWhatsAppCampaigns(rows)
}

// ListDueWhatsAppCampaigns returns pending/scheduled campaigns whose
// scheduled time has passed, oldest first.
func (s *Store) ListDueWhatsAppCampaigns(ctx context.Context, now time.Time, limit int) ([]domain.WhatsAppCampaign, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+whatsappColumns+`
		FROM whatsapp_campaigns
		WHERE status IN ($1, $2) AND scheduled_time <= $3
		ORDER BY scheduled_time
		LIMIT $4
	`, domain.StatusPending, domain.StatusScheduled, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWhatsAppCampaigns(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmailCampaign(row rowScanner) (domain.EmailCampaign, error) {
	var c domain.EmailCampaign
	err := row.Scan(&c.ID, &c.DomainName, &c.TemplateName, &c.TemplateID, &c.Recipients, &c.Status,
		&c.TotalEmails, &c.SuccessfulEmails, &c.FailedEmails,
		&c.DeliverableEmails, &c.UndeliverableEmails,
		&c.ErrorMessage, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanWhatsAppCampaign(row rowScanner) (domain.WhatsAppCampaign, error) {
	var c domain.WhatsAppCampaign
	var paramsJSON []byte
	err := row.Scan(&c.ID, &c.TemplateName, &c.TemplateID, &c.MobileNumber, &c.ScheduledTime, &c.Status,
		&paramsJSON, &c.ErrorMessage, &c.CancellationReason, &c.ReceivedMessage,
		&c.SentAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.WhatsAppCampaign{}, err
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &c.Parameters); err != nil {
			return domain.WhatsAppCampaign{}, fmt.Errorf("decode campaign parameters: %w", err)
		}
	}
	return c, nil
}

func collectWhatsAppCampaigns(rows pgx.Rows) ([]domain.WhatsAppCampaign, error) {
	var out []domain.WhatsAppCampaign
	for rows.Next() {
		c, err := scanWhatsAppCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
