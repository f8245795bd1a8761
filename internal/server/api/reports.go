package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/howlong/internal/engagement"
	"github.com/ayusman/howlong/internal/gesture"
	"github.com/ayusman/howlong/internal/store"
)

// ReportsHandler serves finished session reports and their composite shots.
type ReportsHandler struct {
	store     *store.Store
	sharePage string
}

// NewReportsHandler creates a ReportsHandler. sharePage is the result page
// the share URLs point at.
func NewReportsHandler(s *store.Store, sharePage string) *ReportsHandler {
	return &ReportsHandler{store: s, sharePage: sharePage}
}

// Routes returns the report routes, to be mounted under /api/reports.
func (h *ReportsHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/latest", h.latest)
	r.Get("/{id}", h.get)
	r.Get("/{id}/shot", h.shot)
	return r
}

type reportResponse struct {
	*store.Report
	ShareURL string `json:"share_url"`
}

type listReportsResponse struct {
	Reports []reportResponse `json:"reports"`
}

// toResponse attaches the share URL to a stored report.
func (h *ReportsHandler) toResponse(rep *store.Report) reportResponse {
	action, err := gesture.ParseType(rep.ActionType)
	if err != nil {
		action = gesture.Neck
	}
	summary := engagement.Summary{
		Level:       rep.Level,
		Label:       rep.Label,
		MMSS:        rep.MMSS,
		ActionType:  action,
		ActionCount: rep.ActionCount,
		WaitingPct:  rep.WaitingPct,
		Total:       rep.TotalBursts,
	}
	return reportResponse{
		Report:   rep,
		ShareURL: summary.ShareURL(h.sharePage, rep.ShotURL),
	}
}

// list handles GET /api/reports?limit=N.
func (h *ReportsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	reports, err := h.store.Reports().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	resp := listReportsResponse{Reports: make([]reportResponse, 0, len(reports))}
	for _, rep := range reports {
		resp.Reports = append(resp.Reports, h.toResponse(rep))
	}
	writeJSON(w, http.StatusOK, resp)
}

// latest handles GET /api/reports/latest.
func (h *ReportsHandler) latest(w http.ResponseWriter, r *http.Request) {
	rep, err := h.store.Reports().Latest()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(rep))
}

// get handles GET /api/reports/{id}.
func (h *ReportsHandler) get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.store.Reports().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(rep))
}

// shot handles GET /api/reports/{id}/shot. The local file is preferred;
// otherwise the client is redirected to the uploaded copy.
func (h *ReportsHandler) shot(w http.ResponseWriter, r *http.Request) {
	rep, err := h.store.Reports().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	if rep.ShotPath != "" {
		if _, err := os.Stat(rep.ShotPath); err == nil {
			w.Header().Set("Content-Type", "image/jpeg")
			http.ServeFile(w, r, rep.ShotPath)
			return
		}
	}
	if rep.ShotURL != "" {
		http.Redirect(w, r, rep.ShotURL, http.StatusFound)
		return
	}
	writeError(w, http.StatusNotFound, "shot not available")
}

func (h *ReportsHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "failed to load report")
}
