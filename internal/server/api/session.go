package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/byechat/internal/app"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Controller is the session control surface driven by the API.
type Controller interface {
	Start() error
	Stop()
	TriggerBackgroundCapture() error
	Reset() error
	State() app.State
}

// SessionHandler handles /api/session and its actions.
type SessionHandler struct {
	ctrl Controller
}

// NewSessionHandler creates a new SessionHandler for ctrl.
func NewSessionHandler(ctrl Controller) *SessionHandler {
	return &SessionHandler{ctrl: ctrl}
}

// ServeHTTP routes GET /api/session and POST /api/session/{action}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/session")
	action = strings.Trim(action, "/")

	if action == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, h.ctrl.State())
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var err error
	switch action {
	case "start":
		err = h.ctrl.Start()
	case "stop":
		h.ctrl.Stop()
	case "background":
		err = h.ctrl.TriggerBackgroundCapture()
	case "reset":
		err = h.ctrl.Reset()
	default:
		writeError(w, http.StatusNotFound, "unknown session action")
		return
	}

	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("action", action).Msg("session action failed")
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNotRunning),
		errors.Is(err, app.ErrCaptureInProgress),
		errors.Is(err, app.ErrNoBackground):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
