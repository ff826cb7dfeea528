package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/scenario"
	"github.com/jwebster45206/story-graph/pkg/storage"
)

type ScenarioHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewScenarioHandler(log *slog.Logger, storage storage.Storage) *ScenarioHandler {
	return &ScenarioHandler{
		log:     log,
		storage: storage,
	}
}

// ServeHTTP handles scenario requests
// Routes:
// GET /v1/scenarios                   - List scenarios (name -> file)
// GET /v1/scenarios/{file}            - Read a scenario
// GET /v1/scenarios/{file}/validation - Validation issues per scene
func (h *ScenarioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scenarios"), "/")
	if path == "" {
		h.handleList(w, r)
		return
	}

	filename, rest, _ := strings.Cut(path, "/")
	if strings.Contains(filename, "..") {
		writeError(w, h.log, http.StatusBadRequest, "Invalid filename")
		return
	}

	switch rest {
	case "":
		h.handleGet(w, r, filename)
	case "validation":
		h.handleValidation(w, r, filename)
	default:
		writeError(w, h.log, http.StatusNotFound, "Not found")
	}
}

func (h *ScenarioHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.storage.ListScenarios(r.Context())
	if err != nil {
		h.log.Error("Failed to list scenarios", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list scenarios")
		return
	}
	writeJSON(w, h.log, http.StatusOK, list)
}

func (h *ScenarioHandler) load(w http.ResponseWriter, r *http.Request, filename string) (*scenario.Scenario, bool) {
	s, err := h.storage.GetScenario(r.Context(), filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.log, http.StatusNotFound, "Scenario not found")
			return nil, false
		}
		h.log.Error("Failed to get scenario", "error", err, "filename", filename)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to retrieve scenario")
		return nil, false
	}
	return s, true
}

func (h *ScenarioHandler) handleGet(w http.ResponseWriter, r *http.Request, filename string) {
	if s, ok := h.load(w, r, filename); ok {
		writeJSON(w, h.log, http.StatusOK, s)
	}
}

// ValidationResponse maps scene id to dialogue id to issues. Scenario-level
// issues are under the empty scene id.
type ValidationResponse struct {
	Valid  bool                           `json:"valid"`
	Scenes map[string]scenario.Validation `json:"scenes"`
}

func (h *ScenarioHandler) handleValidation(w http.ResponseWriter, r *http.Request, filename string) {
	s, ok := h.load(w, r, filename)
	if !ok {
		return
	}
	scenes := scenario.Validate(s)
	valid := true
	for _, v := range scenes {
		if v.HasErrors() {
			valid = false
		}
	}
	writeJSON(w, h.log, http.StatusOK, ValidationResponse{Valid: valid, Scenes: scenes})
}
