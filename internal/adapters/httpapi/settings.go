package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Guilhem-Bonnet/pagebroker/internal/app"
	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/httpjson"
	"github.com/go-chi/chi/v5"
)

// SettingsHandler expose la table config. Les effets d'un PUT (gate des requêtes,
// etc.) passent par les hooks SettingsService.OnUpdate.
type SettingsHandler struct {
	settings *app.SettingsService
}

func NewSettingsHandler(settings *app.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) Routes(r chi.Router) {
	r.Get("/config", h.get)
	r.Put("/config", h.put)
	// Variante avec slash final (utile selon reverse-proxy / clients).
	r.Get("/config/", h.get)
	r.Put("/config/", h.put)
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, s)
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var s domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	updated, err := h.settings.Put(r.Context(), s)
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}
