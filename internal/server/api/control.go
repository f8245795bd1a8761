package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Controller is the operator surface of the running kiosk.
type Controller interface {
	Restart()
	SetPaused(paused bool)
	Paused() bool
}

// ControlHandler exposes operator controls over HTTP.
type ControlHandler struct {
	ctrl Controller
}

// NewControlHandler creates a new ControlHandler.
func NewControlHandler(ctrl Controller) *ControlHandler {
	return &ControlHandler{ctrl: ctrl}
}

type controlResponse struct {
	Paused bool `json:"paused"`
}

// Routes returns the control routes, to be mounted under /api/session.
func (h *ControlHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.status)
	r.Post("/restart", h.restart)
	r.Post("/pause", h.pause(true))
	r.Post("/resume", h.pause(false))
	return r
}

func (h *ControlHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, controlResponse{Paused: h.ctrl.Paused()})
}

func (h *ControlHandler) restart(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Restart()
	writeJSON(w, http.StatusAccepted, controlResponse{Paused: h.ctrl.Paused()})
}

func (h *ControlHandler) pause(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ctrl.SetPaused(paused)
		writeJSON(w, http.StatusOK, controlResponse{Paused: h.ctrl.Paused()})
	}
}
