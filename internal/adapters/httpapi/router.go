package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/pagebroker/internal/app"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

// Deps: tout est optionnel sauf le logger; les routes sans service ne sont pas montées.
type Deps struct {
	Content   *app.ContentService
	Catalog   *app.CatalogService
	Settings  *app.SettingsService
	Stats     ports.StatsReader
	Bus       ports.EventBus
	Resources *ResourceProxy
}

type Server struct {
	logger zerolog.Logger
	deps   Deps
}

func NewServer(logger zerolog.Logger, deps Deps) *Server {
	return &Server{logger: logger, deps: deps}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(allowAnyOrigin)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(defaultRequestTimeout))
		if s.deps.Content != nil {
			NewContentHandler(s.deps.Content).Routes(r)
		}
		if s.deps.Catalog != nil {
			NewSearchHandler(s.deps.Catalog).Routes(r)
		}
		if s.deps.Resources != nil {
			r.Get("/{resty}/resource", s.deps.Resources.ServeHTTP)
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/openapi.json", s.handleOpenAPI)
		if s.deps.Bus != nil {
			r.Get("/events", s.handleEvents)
		}
		if s.deps.Stats != nil {
			r.Get("/stats", s.handleStats)
		}
		if s.deps.Settings != nil {
			NewSettingsHandler(s.deps.Settings).Routes(r)
		}
	})

	return r
}

func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}
