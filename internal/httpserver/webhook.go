package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"campaigns/internal/domain"
	"campaigns/internal/service"
	"campaigns/internal/util"
)

type webhookResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// InboundMessage handles WATI inbound-message webhook deliveries. Only
// eventType "message" triggers cancellation; other event types are
// acknowledged and skipped so the vendor does not retry them.
func InboundMessage(svc *service.WhatsAppService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event domain.InboundEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			writeWebhookJSON(w, http.StatusBadRequest, webhookResponse{Success: false, Error: ErrInvalidJSON})
			return
		}

		if event.EventType != "message" {
			writeWebhookJSON(w, http.StatusOK, webhookResponse{Success: true, Message: "event ignored"})
			return
		}

		summary, err := svc.CancelByReply(r.Context(), event, util.NowUTC())
		if err != nil {
			var validation *domain.ValidationError
			status := http.StatusInternalServerError
			errMsg := ErrDependency
			if errors.As(err, &validation) {
				status = http.StatusBadRequest
				errMsg = validation.Error()
			}
			slog.Error("webhook cancellation failed", "err", err, "wa_id", event.WaID)
			writeWebhookJSON(w, status, webhookResponse{Success: false, Error: errMsg})
			return
		}

		writeWebhookJSON(w, http.StatusOK, webhookResponse{Success: true, Data: summary})
	}
}

func writeWebhookJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("webhook response encode failed", "err", err)
	}
}
