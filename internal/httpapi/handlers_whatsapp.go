package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"campaigns/internal/domain"
	"campaigns/internal/observability"
	"campaigns/internal/providers/wati"
	"campaigns/internal/service"
	"campaigns/internal/util"
)

type WhatsAppReader interface {
	GetWhatsAppCampaign(ctx context.Context, id string) (domain.WhatsAppCampaign, bool, error)
	ListWhatsAppCampaigns(ctx context.Context) ([]domain.WhatsAppCampaign, error)
}

type WatiCatalog interface {
	GetTemplates(ctx context.Context) ([]wati.Template, error)
	GetContacts(ctx context.Context) ([]wati.Contact, error)
}

type WhatsAppHandlers struct {
	Service *service.WhatsAppService
	Store   WhatsAppReader
	Wati    WatiCatalog
}

func (h *WhatsAppHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/whatsapp/campaigns/send", h.send)
	mux.HandleFunc("GET /api/whatsapp/campaigns/templates", h.templates)
	mux.HandleFunc("GET /api/whatsapp/campaigns/contacts", h.contacts)
	mux.HandleFunc("GET /api/whatsapp/campaigns", h.list)
	mux.HandleFunc("GET /api/whatsapp/campaigns/logs", h.list)
	mux.HandleFunc("GET /api/whatsapp/campaigns/{id}", h.get)
	mux.HandleFunc("POST /api/whatsapp/campaigns/{id}/send_now", h.sendNow)
	mux.HandleFunc("POST /api/whatsapp/campaigns/{id}/cancel", h.cancel)
	mux.HandleFunc("POST /api/whatsapp/campaigns/{id}/send_followup", h.sendFollowup)
}

func (h *WhatsAppHandlers) send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendWhatsAppRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, "wa_send", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, "wa_send", err)
		return
	}

	outcome, err := h.Service.CreateAndSend(r.Context(), req, util.NowUTC())
	if err != nil {
		h.fail(w, "wa_send", err)
		return
	}

	if outcome.Scheduled {
		observability.APIRequests.WithLabelValues("wa_send", strconv.Itoa(http.StatusOK)).Inc()
		respondOK(w, map[string]any{
			"campaign_id":    outcome.CampaignID,
			"status":         domain.StatusScheduled,
			"scheduled_time": outcome.ScheduledTime,
		}, fmt.Sprintf("WhatsApp campaign scheduled for %s", outcome.ScheduledTime.Format("2006-01-02 15:04:05 MST")))
		return
	}

	if !outcome.Result.OK {
		observability.APIRequests.WithLabelValues("wa_send", strconv.Itoa(http.StatusBadRequest)).Inc()
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Data:    map[string]any{"campaign_id": outcome.CampaignID, "status": outcome.Result.Status},
			Error:   outcome.Result.Message,
		})
		return
	}

	observability.APIRequests.WithLabelValues("wa_send", strconv.Itoa(http.StatusOK)).Inc()
	respondOK(w, map[string]any{
		"campaign_id": outcome.CampaignID,
		"status":      outcome.Result.Status,
	}, "WhatsApp message sent successfully")
}

func (h *WhatsAppHandlers) templates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Wati.GetTemplates(r.Context())
	if err != nil {
		h.fail(w, "wa_templates", err)
		return
	}
	observability.APIRequests.WithLabelValues("wa_templates", strconv.Itoa(http.StatusOK)).Inc()
	respondList(w, templates, len(templates))
}

func (h *WhatsAppHandlers) contacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.Wati.GetContacts(r.Context())
	if err != nil {
		h.fail(w, "wa_contacts", err)
		return
	}
	observability.APIRequests.WithLabelValues("wa_contacts", strconv.Itoa(http.StatusOK)).Inc()
	respondList(w, contacts, len(contacts))
}

func (h *WhatsAppHandlers) list(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Store.ListWhatsAppCampaigns(r.Context())
	if err != nil {
		h.fail(w, "wa_list", err)
		return
	}
	observability.APIRequests.WithLabelValues("wa_list", strconv.Itoa(http.StatusOK)).Inc()
	respondList(w, campaigns, len(campaigns))
}

func (h *WhatsAppHandlers) get(w http.ResponseWriter, r *http.Request) {
	campaign, found, err := h.Store.GetWhatsAppCampaign(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "wa_get", err)
		return
	}
	if !found {
		h.fail(w, "wa_get", domain.ErrNotFound)
		return
	}
	observability.APIRequests.WithLabelValues("wa_get", strconv.Itoa(http.StatusOK)).Inc()
	respondOK(w, campaign, "")
}

func (h *WhatsAppHandlers) sendNow(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.SendNow(r.Context(), r.PathValue("id"), util.NowUTC())
	if err != nil {
		h.fail(w, "wa_send_now", err)
		return
	}
	if !result.OK && result.Status == domain.StatusFailed {
		observability.APIRequests.WithLabelValues("wa_send_now", strconv.Itoa(http.StatusBadRequest)).Inc()
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Data: result, Error: result.Message})
		return
	}
	observability.APIRequests.WithLabelValues("wa_send_now", strconv.Itoa(http.StatusOK)).Inc()
	respondOK(w, result, "")
}

func (h *WhatsAppHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			h.fail(w, "wa_cancel", err)
			return
		}
	}

	campaign, err := h.Service.Cancel(r.Context(), r.PathValue("id"), req.Reason, util.NowUTC())
	if err != nil {
		h.fail(w, "wa_cancel", err)
		return
	}
	observability.APIRequests.WithLabelValues("wa_cancel", strconv.Itoa(http.StatusOK)).Inc()
	respondOK(w, campaign, "Campaign cancelled")
}

func (h *WhatsAppHandlers) sendFollowup(w http.ResponseWriter, r *http.Request) {
	var req domain.FollowupRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, "wa_send_followup", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, "wa_send_followup", err)
		return
	}

	result, err := h.Service.SendFollowup(r.Context(), r.PathValue("id"), req.Which, util.NowUTC())
	if err != nil {
		h.fail(w, "wa_send_followup", err)
		return
	}
	if !result.OK {
		observability.APIRequests.WithLabelValues("wa_send_followup", strconv.Itoa(http.StatusBadRequest)).Inc()
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Data: result, Error: result.Message})
		return
	}
	observability.APIRequests.WithLabelValues("wa_send_followup", strconv.Itoa(http.StatusOK)).Inc()
	respondOK(w, result, "Follow-up sent")
}

func (h *WhatsAppHandlers) fail(w http.ResponseWriter, endpoint string, err error) {
	observability.APIRequests.WithLabelValues(endpoint, strconv.Itoa(statusFor(err))).Inc()
	respondError(w, err)
}
