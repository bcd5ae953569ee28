package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ayusman/byechat/internal/config"
	"github.com/ayusman/byechat/internal/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SettingsHandler serves and updates the persisted preferences.
type SettingsHandler struct {
	mu       sync.Mutex
	store    *store.Store
	cfg      config.Config
	onChange func(cfg config.Config) error
}

// NewSettingsHandler creates a handler over the effective configuration cfg.
// onChange, if set, is called with the validated configuration before it is
// persisted; an error from it rejects the update.
func NewSettingsHandler(s *store.Store, cfg *config.Config, onChange func(cfg config.Config) error) *SettingsHandler {
	return &SettingsHandler{
		store:    s,
		cfg:      *cfg,
		onChange: onChange,
	}
}

// ServeHTTP handles GET and PUT /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, config.Settings(&h.cfg))
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	known := make(map[string]string, len(req))
	for _, key := range config.SettingKeys {
		if v, ok := req[key]; ok {
			known[key] = v
		}
	}
	if len(known) == 0 {
		writeError(w, http.StatusBadRequest, "no known settings in request")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.cfg
	if err := config.ApplySettings(&next, known); err != nil {
		if errors.Is(err, config.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.onChange != nil {
		if err := h.onChange(next); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if h.store != nil {
		if err := h.store.Settings().SetAll(known); err != nil {
			log.Error().Err(err).Msg("failed to persist settings")
			writeError(w, http.StatusInternalServerError, "failed to persist settings")
			return
		}
	}

	h.cfg = next
	log.Info().Interface("settings", known).Msg("settings updated")
	writeJSON(w, http.StatusOK, config.Settings(&h.cfg))
}
