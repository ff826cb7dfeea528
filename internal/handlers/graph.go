package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/story-graph/pkg/editor"
	"github.com/jwebster45206/story-graph/pkg/graph"
	"github.com/jwebster45206/story-graph/pkg/layout"
	"github.com/jwebster45206/story-graph/pkg/scenario"
	"github.com/jwebster45206/story-graph/pkg/storage"
)

// GraphRequest asks for the laid-out graph of one scene. Dialogues, when set,
// replace the stored scene's dialogues so unsaved edits can be previewed.
type GraphRequest struct {
	Scenario   string                    `json:"scenario"`
	SceneID    string                    `json:"scene_id"`
	Dialogues  []scenario.Dialogue       `json:"dialogues,omitempty"`
	Direction  layout.Direction          `json:"direction,omitempty"`
	Theme      string                    `json:"theme,omitempty"`
	Serpentine *layout.SerpentineOptions `json:"serpentine,omitempty"`
	Collapse   bool                      `json:"collapse,omitempty"`
	Expanded   map[string]bool           `json:"expanded,omitempty"`
	Page       *graph.Page               `json:"page,omitempty"`
}

type GraphHandler struct {
	storage storage.Storage
	memo    *editor.Memo
	logger  *slog.Logger
}

func NewGraphHandler(storage storage.Storage, memo *editor.Memo, logger *slog.Logger) *GraphHandler {
	return &GraphHandler{
		storage: storage,
		memo:    memo,
		logger:  logger,
	}
}

// ServeHTTP handles POST /v1/graph
func (h *GraphHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req GraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Scenario == "" || req.SceneID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "scenario and scene_id are required")
		return
	}

	s, err := h.storage.GetScenario(r.Context(), req.Scenario)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Scenario not found")
			return
		}
		h.logger.Error("Failed to get scenario", "error", err, "scenario", req.Scenario)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve scenario")
		return
	}

	scene, err := s.Scene(req.SceneID)
	if err != nil {
		writeError(w, h.logger, http.StatusNotFound, "Scene not found")
		return
	}
	preview := *scene
	if req.Dialogues != nil {
		preview.Dialogues = req.Dialogues
	}

	g, err := h.memo.BuildAndLayout(r.Context(), editor.Request{
		SceneID:    preview.ID,
		Dialogues:  preview.Dialogues,
		Validation: scenario.ValidateScene(&preview, s.SceneIDs()),
		Direction:  req.Direction,
		Theme:      req.Theme,
		Serpentine: req.Serpentine,
		Collapse:   req.Collapse,
		Expanded:   req.Expanded,
		Page:       req.Page,
	})
	if err != nil {
		h.logger.Error("Failed to build graph", "error", err, "scene_id", req.SceneID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to build graph")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, g)
}
