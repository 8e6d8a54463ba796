// mock-wati is a local stand-in for the WATI API. Outcomes are steered by the
// target number: a number ending in 00 gets a vendor rejection, one ending in
// 99 gets an HTTP 500, everything else succeeds.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"campaigns/internal/logging"
)

var templates = []map[string]any{
	{"elementName": "payment_reminder_first", "id": "tpl_001", "status": "APPROVED"},
	{"elementName": "payment_reminder_second", "id": "tpl_002", "status": "APPROVED"},
	{"elementName": "payment_reminder_third", "id": "tpl_003", "status": "APPROVED"},
	{"elementName": "welcome_draft", "id": "tpl_004", "status": "PENDING"},
}

var contacts = []map[string]any{
	{"wAId": "919876543210", "fullName": "Asha Verma"},
	{"wAId": "919123456789", "firstName": "Ravi"},
}

func main() {
	port := flag.String("port", "9095", "listen port")
	flag.Parse()

	logging.Init("mock-wati", os.Getenv("LOG_FORMAT"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/getMessageTemplates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"messageTemplates": templates})
	})
	mux.HandleFunc("GET /api/v1/getContacts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"contact_list": contacts})
	})
	mux.HandleFunc("POST /api/v2/sendTemplateMessage", func(w http.ResponseWriter, r *http.Request) {
		number := r.URL.Query().Get("whatsappNumber")
		var body struct {
			TemplateName  string `json:"template_name"`
			BroadcastName string `json:"broadcast_name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		slog.Info("send", "number", number, "template", body.TemplateName, "broadcast", body.BroadcastName)

		switch {
		case strings.HasSuffix(number, "99"):
			writeJSON(w, http.StatusInternalServerError, map[string]any{"result": false, "message": "internal error"})
		case strings.HasSuffix(number, "00"):
			writeJSON(w, http.StatusOK, map[string]any{"result": false, "message": "invalid whatsapp number"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"result": true})
		}
	})

	slog.Info("mock wati listening", "port", *port)
	if err := http.ListenAndServe(":"+*port, mux); err != nil {
		slog.Error("mock wati failed", "err", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
