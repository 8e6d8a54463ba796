package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"campaigns/internal/domain"
	"campaigns/internal/store"
)

type fakeEmailStore struct {
	campaigns     map[string]*domain.EmailCampaign
	finished      *store.EmailFinishUpdate
	processingErr error
}

func newFakeEmailStore() *fakeEmailStore {
	return &fakeEmailStore{campaigns: map[string]*domain.EmailCampaign{}}
}

func (f *fakeEmailStore) InsertEmailCampaign(ctx context.Context, in store.EmailCampaignInsert) error {
	f.campaigns[in.ID] = &domain.EmailCampaign{
		ID: in.ID, DomainName: in.DomainName, TemplateName: in.TemplateName,
		TemplateID: in.TemplateID, Recipients: in.Recipients, Status: in.Status,
	}
	return nil
}

func (f *fakeEmailStore) GetEmailCampaign(ctx context.Context, id string) (domain.EmailCampaign, bool, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return domain.EmailCampaign{}, false, nil
	}
	return *c, true, nil
}

func (f *fakeEmailStore) MarkEmailProcessing(ctx context.Context, id string, total int, now time.Time) error {
	if f.processingErr != nil {
		return f.processingErr
	}
	f.campaigns[id].Status = domain.StatusProcessing
	f.campaigns[id].TotalEmails = total
	return nil
}

func (f *fakeEmailStore) SetEmailVerification(ctx context.Context, in store.EmailVerificationUpdate) error {
	c := f.campaigns[in.ID]
	c.DeliverableEmails = in.DeliverableEmails
	c.UndeliverableEmails = in.UndeliverableEmails
	return nil
}

func (f *fakeEmailStore) FinishEmailCampaign(ctx context.Context, in store.EmailFinishUpdate) error {
	c := f.campaigns[in.ID]
	c.Status = in.Status
	c.SuccessfulEmails = in.Successful
	c.FailedEmails = in.Failed
	c.ErrorMessage = in.ErrorMessage
	f.finished = &in
	return nil
}

type fakeSender struct {
	statusByEmail map[string]int
	errByEmail    map[string]error
	sent          []string
}

func (f *fakeSender) SendTemplate(ctx context.Context, from, fromName, to, templateID string) (int, []byte, error) {
	if err := f.errByEmail[to]; err != nil {
		return 0, nil, err
	}
	f.sent = append(f.sent, to)
	if status, ok := f.statusByEmail[to]; ok {
		return status, nil, nil
	}
	return 202, nil, nil
}

type fakeVerifier struct {
	results map[string]string
	errs    map[string]error
}

func (f *fakeVerifier) Verify(ctx context.Context, email string) (string, error) {
	if err := f.errs[email]; err != nil {
		return "", err
	}
	if r, ok := f.results[email]; ok {
		return r, nil
	}
	return "deliverable", nil
}

func staticID(id string) func() string {
	return func() string { return id }
}

func TestEmailDispatchPartial(t *testing.T) {
	st := newFakeEmailStore()
	sender := &fakeSender{}
	svc := &EmailService{
		Store:  st,
		Sender: sender,
		Verifier: &fakeVerifier{results: map[string]string{
			"a@x.com": "deliverable",
			"b@x.com": "undeliverable",
		}},
		IDGen: staticID("emc_1"),
	}

	report, err := svc.CreateAndSend(context.Background(), domain.SendEmailRequest{
		DomainName: "acme.io", TemplateName: "welcome", TemplateID: "d-123",
		Recipients: "a@x.com,b@x.com",
	}, time.Now())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if report.Status != domain.StatusPartial {
		t.Fatalf("want partial, got %s", report.Status)
	}
	if report.Total != 2 || report.Successful != 1 || report.Failed != 1 {
		t.Fatalf("bad counts: %+v", report)
	}
	if report.Total != report.Successful+report.Failed {
		t.Fatalf("counts do not add up: %+v", report)
	}
	for _, e := range report.Errors {
		if strings.HasPrefix(e, "a@x.com") {
			t.Fatalf("sent recipient must not appear in errors: %v", report.Errors)
		}
	}
	if len(sender.sent) != 1 || sender.sent[0] != "a@x.com" {
		t.Fatalf("undeliverable recipient must not be sent to: %v", sender.sent)
	}
	if st.campaigns["emc_1"].UndeliverableEmails != "b@x.com" {
		t.Fatalf("verification split not persisted: %+v", st.campaigns["emc_1"])
	}
}

func TestEmailDispatchPassThroughWithoutVerifier(t *testing.T) {
	st := newFakeEmailStore()
	sender := &fakeSender{}
	svc := &EmailService{Store: st, Sender: sender, IDGen: staticID("emc_2")}

	report, err := svc.CreateAndSend(context.Background(), domain.SendEmailRequest{
		DomainName: "acme.io", TemplateName: "welcome", TemplateID: "d-123",
		Recipients: "a@x.com,b@x.com",
	}, time.Now())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if report.Status != domain.StatusSuccess || report.Successful != 2 {
		t.Fatalf("want full success, got %+v", report)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("all recipients should be sent: %v", sender.sent)
	}
}

func TestEmailDispatchUnknownCountsAsFailed(t *testing.T) {
	st := newFakeEmailStore()
	svc := &EmailService{
		Store:    st,
		Sender:   &fakeSender{},
		Verifier: &fakeVerifier{results: map[string]string{"r@x.com": "risky"}},
		IDGen:    staticID("emc_3"),
	}

	report, err := svc.CreateAndSend(context.Background(), domain.SendEmailRequest{
		DomainName: "acme.io", TemplateName: "welcome", TemplateID: "d-123",
		Recipients: "r@x.com",
	}, time.Now())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if report.Status != domain.StatusFailed || report.Failed != 1 || report.Successful != 0 {
		t.Fatalf("risky recipient should fail the campaign: %+v", report)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "risky") {
		t.Fatalf("expected a note naming the vendor result: %v", report.Errors)
	}
}

func TestEmailDispatchVendorRejection(t *testing.T) {
	st := newFakeEmailStore()
	sender := &fakeSender{statusByEmail: map[string]int{"a@x.com": 401}}
	svc := &EmailService{Store: st, Sender: sender, IDGen: staticID("emc_4")}

	report, err := svc.CreateAndSend(context.Background(), domain.SendEmailRequest{
		DomainName: "acme.io", TemplateName: "welcome", TemplateID: "d-123",
		Recipients: "a@x.com",
	}, time.Now())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if report.Status != domain.StatusFailed {
		t.Fatalf("want failed, got %s", report.Status)
	}
	if !strings.Contains(report.Errors[0], "Status 401") {
		t.Fatalf("expected status note, got %v", report.Errors)
	}
}

func TestEmailDispatchStoreErrorRecordsFailure(t *testing.T) {
	st := newFakeEmailStore()
	st.processingErr = errors.New("db gone")
	svc := &EmailService{Store: st, Sender: &fakeSender{}, IDGen: staticID("emc_5")}

	_, err := svc.CreateAndSend(context.Background(), domain.SendEmailRequest{
		DomainName: "acme.io", TemplateName: "welcome", TemplateID: "d-123",
		Recipients: "a@x.com,b@x.com",
	}, time.Now())
	if err == nil || !strings.Contains(err.Error(), "db gone") {
		t.Fatalf("want the store error back, got %v", err)
	}

	// the failure is still recorded on the campaign
	c := st.campaigns["emc_5"]
	if c.Status != domain.StatusFailed || !strings.Contains(c.ErrorMessage, "db gone") {
		t.Fatalf("campaign should be marked failed with the error text: %+v", c)
	}
	if c.FailedEmails != 2 {
		t.Fatalf("all recipients count as failed: %+v", c)
	}
}

func TestEmailDispatchNotFound(t *testing.T) {
	svc := &EmailService{Store: newFakeEmailStore(), Sender: &fakeSender{}, IDGen: staticID("x")}
	_, err := svc.Dispatch(context.Background(), "emc_missing", time.Now())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestEmailPreviewDoesNotSend(t *testing.T) {
	sender := &fakeSender{}
	svc := &EmailService{
		Store:    newFakeEmailStore(),
		Sender:   sender,
		Verifier: &fakeVerifier{results: map[string]string{"a@x.com": "undeliverable"}},
	}
	preview := svc.Preview(context.Background(), domain.PreviewEmailRequest{
		DomainName: "acme.io", TemplateID: "d-123", Recipient: "a@x.com",
	})
	if preview.Deliverability != "undeliverable" {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if preview.FromEmail != "noreply@acme.io" {
		t.Fatalf("unexpected from: %q", preview.FromEmail)
	}
	if len(sender.sent) != 0 {
		t.Fatal("preview must not send")
	}
}
