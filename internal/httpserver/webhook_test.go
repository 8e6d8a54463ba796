package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campaigns/internal/domain"
	"campaigns/internal/service"
	"campaigns/internal/store"
)

type stubStore struct {
	campaigns map[string]*domain.WhatsAppCampaign
}

func (s *stubStore) InsertWhatsAppCampaign(ctx context.Context, in store.WhatsAppCampaignInsert) error {
	return nil
}

func (s *stubStore) GetWhatsAppCampaign(ctx context.Context, id string) (domain.WhatsAppCampaign, bool, error) {
	c, ok := s.campaigns[id]
	if !ok {
		return domain.WhatsAppCampaign{}, false, nil
	}
	return *c, true, nil
}

func (s *stubStore) ClaimWhatsAppCampaign(ctx context.Context, id string, now time.Time) (bool, error) {
	return false, nil
}

func (s *stubStore) MarkWhatsAppSuccess(ctx context.Context, id string, sentAt time.Time) error {
	return nil
}

func (s *stubStore) MarkWhatsAppFailed(ctx context.Context, id, errorMessage string, now time.Time) error {
	return nil
}

func (s *stubStore) CancelWhatsAppCampaign(ctx context.Context, in store.WhatsAppCancelUpdate) (bool, error) {
	c, ok := s.campaigns[in.ID]
	if !ok || !c.Status.Cancellable() {
		return false, nil
	}
	c.Status = domain.StatusCancelled
	c.CancellationReason = in.Reason
	return true, nil
}

func (s *stubStore) ListCancellableByPhone(ctx context.Context, variants []string) ([]domain.WhatsAppCampaign, error) {
	var out []domain.WhatsAppCampaign
	for _, c := range s.campaigns {
		if !c.Status.Cancellable() {
			continue
		}
		for _, v := range variants {
			if c.MobileNumber == v {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func postEvent(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/wati/message", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestInboundMessageCancelsMatches(t *testing.T) {
	st := &stubStore{campaigns: map[string]*domain.WhatsAppCampaign{
		"wac_1": {ID: "wac_1", Status: domain.StatusScheduled, MobileNumber: "+919876543210"},
	}}
	handler := InboundMessage(&service.WhatsAppService{Store: st})

	rec := postEvent(t, handler, `{"waId":"919876543210","text":"stop","eventType":"message"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool                      `json:"success"`
		Data    service.ReplyCancellation `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.CancelledCount != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if st.campaigns["wac_1"].Status != domain.StatusCancelled {
		t.Fatal("campaign should be cancelled")
	}
}

func TestInboundMessageIgnoresOtherEventTypes(t *testing.T) {
	st := &stubStore{campaigns: map[string]*domain.WhatsAppCampaign{
		"wac_1": {ID: "wac_1", Status: domain.StatusScheduled, MobileNumber: "919876543210"},
	}}
	handler := InboundMessage(&service.WhatsAppService{Store: st})

	rec := postEvent(t, handler, `{"waId":"919876543210","eventType":"delivered"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("non-message events must be acked with 200, got %d", rec.Code)
	}
	if st.campaigns["wac_1"].Status != domain.StatusScheduled {
		t.Fatal("non-message event must not cancel")
	}
}

func TestInboundMessageIgnoresMissingEventType(t *testing.T) {
	st := &stubStore{campaigns: map[string]*domain.WhatsAppCampaign{
		"wac_1": {ID: "wac_1", Status: domain.StatusScheduled, MobileNumber: "919876543210"},
	}}
	handler := InboundMessage(&service.WhatsAppService{Store: st})

	rec := postEvent(t, handler, `{"waId":"919876543210","text":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 ack, got %d", rec.Code)
	}
	if st.campaigns["wac_1"].Status != domain.StatusScheduled {
		t.Fatal("event without an eventType must not cancel")
	}
}

func TestInboundMessageRejectsMissingWaID(t *testing.T) {
	handler := InboundMessage(&service.WhatsAppService{Store: &stubStore{campaigns: map[string]*domain.WhatsAppCampaign{}}})
	rec := postEvent(t, handler, `{"text":"hello","eventType":"message"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestInboundMessageRejectsBadJSON(t *testing.T) {
	handler := InboundMessage(&service.WhatsAppService{Store: &stubStore{}})
	rec := postEvent(t, handler, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}
