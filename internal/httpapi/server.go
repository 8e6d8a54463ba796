package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Mux *http.ServeMux
}

func New(readyChecks ...ReadyzCheck) *Server {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	m.HandleFunc("GET /healthz", Healthz())
	m.HandleFunc("GET /readyz", Readyz(2*time.Second, readyChecks...))
	m.HandleFunc("GET /api/status", status)
	return &Server{Mux: m}
}

func status(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{
		"service": "campaigns",
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, "")
}

func (s *Server) Handler() http.Handler {
	return Logging(s.Mux)
}
