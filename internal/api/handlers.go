package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venue-ingest/internal/model"
)

type handler struct {
	svc Service
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listVenues handles GET /venues?city=&category=&min_rating=&price_tier=&delivery=&limit=
func (h *handler) listVenues(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}

	venues, err := h.svc.QueryEntities(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: query venues", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to query venues")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(venues),
		"venues": venues,
	})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetStats(r.Context())
	if err != nil {
		zap.L().Error("api: venue stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "STATS_FAILED", "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func parseFilter(q url.Values) (model.VenueFilter, error) {
	f := model.VenueFilter{
		City:     q.Get("city"),
		Category: q.Get("category"),
	}

	if s := q.Get("min_rating"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return f, eris.Errorf("min_rating must be a number, got %q", s)
		}
		f.MinRating = &v
	}
	if s := q.Get("price_tier"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return f, eris.Errorf("price_tier must be an integer, got %q", s)
		}
		f.PriceTier = &v
	}
	if s := q.Get("delivery"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return f, eris.Errorf("delivery must be true or false, got %q", s)
		}
		f.DeliveryAvailable = &v
	}
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return f, eris.Errorf("limit must be a non-negative integer, got %q", s)
		}
		f.Limit = v
	}
	return f, nil
}
