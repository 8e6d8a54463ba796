package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"campaigns/internal/domain"
	"campaigns/internal/observability"
	"campaigns/internal/service"
	"campaigns/internal/util"
)

type EmailReader interface {
	GetEmailCampaign(ctx context.Context, id string) (domain.EmailCampaign, bool, error)
	ListEmailCampaigns(ctx context.Context) ([]domain.EmailCampaign, error)
	DeleteEmailCampaign(ctx context.Context, id string) (bool, error)
}

type EmailHandlers struct {
	Service *service.EmailService
	Store   EmailReader
}

func (h *EmailHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/emails/campaigns/send", h.send)
	mux.HandleFunc("POST /api/emails/campaigns/preview", h.preview)
	mux.HandleFunc("GET /api/emails/campaigns", h.list)
	mux.HandleFunc("GET /api/emails/campaigns/logs", h.list)
	mux.HandleFunc("GET /api/emails/campaigns/{id}", h.get)
	mux.HandleFunc("DELETE /api/emails/campaigns/{id}", h.delete)
}

func (h *EmailHandlers) send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendEmailRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, "email_send", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, "email_send", err)
		return
	}

	report, err := h.Service.CreateAndSend(r.Context(), req, util.NowUTC())
	if err != nil {
		h.fail(w, "email_send", err)
		return
	}

	observability.APIRequests.WithLabelValues("email_send", strconv.Itoa(http.StatusOK)).Inc()
	respondOK(w, report, "Email campaign dispatched")
}

func (h *EmailHandlers) preview(w http.ResponseWriter, r *http.Request) {
	var req domain.PreviewEmailRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, "email_preview", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, "email_preview", err)
		return
	}

	preview := h.Service.Preview(r.Context(), req)
	observability.APIRequests.WithLabelValues("email_preview", strconv.Itoa(http.StatusOK)).Inc()
	respondOK(w, preview, "")
}

func (h *EmailHandlers) list(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Store.ListEmailCampaigns(r.Context())
	if err != nil {
		h.fail(w, "email_list", err)
		return
	}
	observability.APIRequests.WithLabelValues("email_list", strconv.Itoa(http.StatusOK)).Inc()
	respondList(w, campaigns, len(campaigns))
}

func (h *EmailHandlers) get(w http.ResponseWriter, r *http.Request) {
	campaign, found, err := h.Store.GetEmailCampaign(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "email_get", err)
		return
	}
	if !found {
		h.fail(w, "email_get", domain.ErrNotFound)
		return
	}
	observability.APIRequests.WithLabelValues("email_get", strconv.Itoa(http.StatusOK)).Inc()
	respondOK(w, campaign, "")
}

func (h *EmailHandlers) delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Store.DeleteEmailCampaign(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "email_delete", err)
		return
	}
	if !deleted {
		h.fail(w, "email_delete", domain.ErrNotFound)
		return
	}
	observability.APIRequests.WithLabelValues("email_delete", strconv.Itoa(http.StatusOK)).Inc()
	respondOK(w, nil, "Email campaign deleted")
}

func (h *EmailHandlers) fail(w http.ResponseWriter, endpoint string, err error) {
	observability.APIRequests.WithLabelValues(endpoint, strconv.Itoa(statusFor(err))).Inc()
	respondError(w, err)
}
