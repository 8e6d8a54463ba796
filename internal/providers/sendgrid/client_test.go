package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendTemplate(t *testing.T) {
	var got sendPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sg-key" {
			t.Fatalf("unexpected auth %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := &Client{APIKey: "sg-key", HTTP: srv.Client(), BaseURL: srv.URL}
	status, _, err := c.SendTemplate(context.Background(), "noreply@acme.io", "Email Dashboard", "a@x.com", "d-123")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if status != http.StatusAccepted {
		t.Fatalf("want 202, got %d", status)
	}
	if got.From.Email != "noreply@acme.io" || got.From.Name != "Email Dashboard" {
		t.Fatalf("unexpected from: %+v", got.From)
	}
	if got.TemplateID != "d-123" {
		t.Fatalf("unexpected template: %q", got.TemplateID)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Email != "a@x.com" {
		t.Fatalf("unexpected personalizations: %+v", got.Personalizations)
	}
}
