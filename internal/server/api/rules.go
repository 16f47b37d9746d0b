package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mukha/internal/rules"
	"github.com/ayusman/mukha/internal/store"
)

// RuleHandler handles HTTP requests for the active profile's rules.
type RuleHandler struct {
	store *store.Store
	ctl   Controller
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(s *store.Store, ctl Controller) *RuleHandler {
	return &RuleHandler{store: s, ctl: ctl}
}

// ServeHTTP routes /api/rules and /api/rules/{id}.
func (h *RuleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/rules")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type ruleRequest struct {
	Gesture string `json:"gesture"`
	Action  string `json:"action"`
	Param   string `json:"param"`
	Enabled *bool  `json:"enabled"`
}

type listRulesResponse struct {
	Rules []rules.Rule `json:"rules"`
}

func (h *RuleHandler) list(w http.ResponseWriter) {
	list, err := h.store.Rules().List(h.ctl.ProfileID())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules")
		return
	}
	writeJSON(w, http.StatusOK, listRulesResponse{Rules: list})
}

func (h *RuleHandler) get(w http.ResponseWriter, id string) {
	rule, err := h.store.Rules().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) create(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	rule := &rules.Rule{
		Gesture: req.Gesture,
		Action:  req.Action,
		Param:   req.Param,
		Enabled: req.Enabled == nil || *req.Enabled,
	}
	if err := h.store.Rules().Create(h.ctl.ProfileID(), rule); err != nil {
		writeRuleError(w, err, "Failed to create rule")
		return
	}
	h.reload(w)

	writeJSON(w, http.StatusCreated, rule)
}

func (h *RuleHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	rule, err := h.store.Rules().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get rule")
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Gesture != "" {
		rule.Gesture = req.Gesture
	}
	if req.Action != "" {
		rule.Action = req.Action
		rule.Param = req.Param
	} else if req.Param != "" {
		rule.Param = req.Param
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := h.store.Rules().Update(h.ctl.ProfileID(), rule); err != nil {
		writeRuleError(w, err, "Failed to update rule")
		return
	}
	h.reload(w)

	writeJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Rules().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete rule")
		return
	}
	h.reload(w)

	w.WriteHeader(http.StatusNoContent)
}

// reload pushes the stored rules into the running session. A failure is
// logged by the controller; the stored change stands.
func (h *RuleHandler) reload(w http.ResponseWriter) {
	if err := h.ctl.ReloadRules(); err != nil {
		w.Header().Set("X-Rules-Reload", "failed")
	}
}

func writeRuleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, rules.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Rule not found")
	case errors.Is(err, rules.ErrUnknownGesture),
		errors.Is(err, rules.ErrUnknownAction),
		errors.Is(err, rules.ErrMissingParam):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
