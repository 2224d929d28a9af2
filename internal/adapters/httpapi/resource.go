package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/Guilhem-Bonnet/pagebroker/internal/httpjson"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
	"github.com/rs/zerolog/hlog"
)

// ResourceProxy relaie les images: même chemin et même query sur l'hôte de
// ressources, seuls le statut, le Content-Type et le corps sont renvoyés.
type ResourceProxy struct {
	host string
	doer ports.Doer
}

func NewResourceProxy(host string, doer ports.Doer) *ResourceProxy {
	return &ResourceProxy{host: strings.TrimRight(host, "/"), doer: doer}
}

func (p *ResourceProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, p.host+r.URL.RequestURI(), nil)
	if err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := p.doer.Do(req)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("resource proxy")
		httpjson.WriteCodedError(w, http.StatusBadGateway, "remote_error", err.Error())
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}
