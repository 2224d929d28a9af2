package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Guilhem-Bonnet/pagebroker/internal/app"
	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/httpjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

type ContentHandler struct {
	content *app.ContentService
}

func NewContentHandler(content *app.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

func (h *ContentHandler) Routes(r chi.Router) {
	r.Get("/single", h.single)
}

type singleResponse struct {
	Meta domain.Content `json:"meta"`
}

func (h *ContentHandler) single(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	seriesID, err := requiredInt(q.Get("series_id"))
	if err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, "invalid_params", "invalid series_id")
		return
	}
	singleID, err := requiredInt(q.Get("single_id"))
	if err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, "invalid_params", "invalid single_id")
		return
	}
	waitFree, err := optionalBool(q.Get("wait_free"))
	if err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, "invalid_params", "invalid wait_free")
		return
	}
	free, err := optionalBool(q.Get("free"))
	if err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, "invalid_params", "invalid free")
		return
	}

	content, err := h.content.Single(r.Context(), app.SingleRequest{
		SeriesID: seriesID,
		SingleID: singleID,
		WaitFree: waitFree,
		Free:     free,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, singleResponse{Meta: content})
}

type SearchHandler struct {
	catalog *app.CatalogService
}

func NewSearchHandler(catalog *app.CatalogService) *SearchHandler {
	return &SearchHandler{catalog: catalog}
}

func (h *SearchHandler) Routes(r chi.Router) {
	r.Get("/search", h.search)
}

func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keyword := strings.TrimSpace(q.Get("keyword"))
	if keyword == "" {
		httpjson.WriteCodedError(w, http.StatusBadRequest, "invalid_params", "missing keyword")
		return
	}
	page := 0
	if raw := q.Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 0 {
			httpjson.WriteCodedError(w, http.StatusBadRequest, "invalid_params", "invalid page")
			return
		}
		page = p
	}
	res, err := h.catalog.Search(r.Context(), keyword, page)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func statusFor(code string) int {
	switch code {
	case "not_found":
		return http.StatusNotFound
	case "cooldown":
		return http.StatusTooManyRequests
	case "exhausted":
		return http.StatusPaymentRequired
	case "remote_error", "unknown_process", "param_extraction":
		return http.StatusBadGateway
	case "invalid_params":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := app.Classify(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError && !errors.Is(err, r.Context().Err()) {
		hlog.FromRequest(r).Error().Err(err).Str("code", code).Msg("request failed")
	}
	httpjson.WriteCodedError(w, status, code, err.Error())
}

func requiredInt(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, errors.New("missing")
	}
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func optionalBool(raw string) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}
