package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mukha/internal/store"
	"github.com/ayusman/mukha/internal/threshold"
)

// ProfileHandler serves the active profile.
type ProfileHandler struct {
	store *store.Store
	ctl   Controller
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(s *store.Store, ctl Controller) *ProfileHandler {
	return &ProfileHandler{store: s, ctl: ctl}
}

// ServeHTTP handles GET and PUT /api/profile.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ProfileHandler) get(w http.ResponseWriter) {
	schema, err := h.schema()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// update applies a partial threshold update. Out-of-range values are
// clamped, not rejected.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch threshold.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.ctl.Configure(patch); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	h.get(w)
}

func (h *ProfileHandler) schema() (store.Schema, error) {
	id := h.ctl.ProfileID()
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		return store.Schema{}, err
	}
	rs, err := h.store.Rules().List(id)
	if err != nil {
		return store.Schema{}, err
	}
	history, err := h.store.Sessions().History(id)
	if err != nil {
		return store.Schema{}, err
	}
	return p.Schema(rs, history), nil
}
