package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campaigns/internal/domain"
	"campaigns/internal/service"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.Invalid("mobile_number", "bad"), http.StatusBadRequest},
		{&domain.InvalidStateError{Action: "cancel", Status: domain.StatusSuccess}, http.StatusBadRequest},
		{&domain.VendorError{Provider: "WATI", StatusCode: 400}, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: want %d, got %d", tc.err, tc.want, got)
		}
	}
}

type emptyEmailReader struct{}

func (emptyEmailReader) GetEmailCampaign(ctx context.Context, id string) (domain.EmailCampaign, bool, error) {
	return domain.EmailCampaign{}, false, nil
}

func (emptyEmailReader) ListEmailCampaigns(ctx context.Context) ([]domain.EmailCampaign, error) {
	return []domain.EmailCampaign{}, nil
}

func (emptyEmailReader) DeleteEmailCampaign(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func TestEmailRoutes(t *testing.T) {
	s := New()
	h := &EmailHandlers{Service: &service.EmailService{}, Store: emptyEmailReader{}}
	h.Register(s.Mux)

	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/emails/campaigns/emc_missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing campaign: want 404, got %d", rec.Code)
	}
	var resp envelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Error == "" {
		t.Fatalf("error envelope expected: %+v", resp)
	}

	rec = httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/emails/campaigns", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: want 200, got %d", rec.Code)
	}
	var listResp envelope
	if err := json.NewDecoder(rec.Body).Decode(&listResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !listResp.Success || listResp.Count == nil || *listResp.Count != 0 {
		t.Fatalf("list envelope should carry a count: %+v", listResp)
	}

	rec = httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/emails/campaigns/send",
		strings.NewReader(`{"domain_name":"acme.io","template_name":"welcome","template_id":"d-1","recipients":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty recipients: want 400, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := New()
	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: want 200, got %d", rec.Code)
	}
}
