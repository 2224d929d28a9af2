package httpapi

import (
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/pagebroker/internal/buildinfo"
	"github.com/Guilhem-Bonnet/pagebroker/internal/httpjson"
	"github.com/rs/zerolog/hlog"
)

// Une requête de contenu peut attendre un scan complet du pool.
const defaultRequestTimeout = 2 * time.Minute

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Stats.Summary(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, summary)
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}
