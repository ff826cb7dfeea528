package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/internal/logger"
	"github.com/jwebster45206/story-graph/internal/services/events"
	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/scenario"
	"github.com/jwebster45206/story-graph/pkg/state"
	"github.com/jwebster45206/story-graph/pkg/storage"
)

// PlaybackView is returned by every playback route.
type PlaybackView struct {
	State            *state.RuntimeState `json:"state"`
	CurrentDialogue  *scenario.Dialogue  `json:"current_dialogue,omitempty"`
	IsAtLastDialogue bool                `json:"is_at_last_dialogue"`
	SceneEnded       bool                `json:"scene_ended,omitempty"` // the last action ran off the end of the scene
}

type CreatePlaybackRequest struct {
	Scenario string `json:"scenario"`           // Required: scenario filename
	SceneID  string `json:"scene_id,omitempty"` // Optional: start scene, defaults to the opening scene
}

type ChooseRequest struct {
	ChoiceID string `json:"choice_id"`
}

type JumpRequest struct {
	Index int `json:"index"`
}

type SceneRequest struct {
	SceneID    string `json:"scene_id"`
	DialogueID string `json:"dialogue_id,omitempty"`
}

type PlaybackHandler struct {
	storage     storage.Storage
	broadcaster *events.Broadcaster // optional
	logger      *slog.Logger
	diceDelay   time.Duration
}

// NewPlaybackHandler returns the playback handler. A nil broadcaster disables
// playback events.
func NewPlaybackHandler(storage storage.Storage, broadcaster *events.Broadcaster, logger *slog.Logger, diceDelay time.Duration) *PlaybackHandler {
	return &PlaybackHandler{
		storage:     storage,
		broadcaster: broadcaster,
		logger:      logger,
		diceDelay:   diceDelay,
	}
}

// ServeHTTP handles HTTP requests for playback sessions
// Routes:
// POST   /v1/playback             - Start a session
// GET    /v1/playback/{id}        - Read a session
// DELETE /v1/playback/{id}        - End a session
// POST   /v1/playback/{id}/choose - Take a choice from the current dialogue
// POST   /v1/playback/{id}/next   - Advance to the next dialogue
// POST   /v1/playback/{id}/jump   - Rewind to a history entry
// POST   /v1/playback/{id}/scene  - Move to a scene
func (h *PlaybackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/playback"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r)
		return
	}

	idStr, action, _ := strings.Cut(path, "/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid playback ID", "id", idStr, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid playback ID format")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleAction(w, r, id, nil)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case action != "" && r.Method == http.MethodPost:
		op, ok := h.operation(w, r, action)
		if ok {
			h.handleAction(w, r, id, op)
		}
	case action == "" || action == "choose" || action == "next" || action == "jump" || action == "scene":
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *PlaybackHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaybackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Scenario == "" {
		writeError(w, h.logger, http.StatusBadRequest, "scenario is required")
		return
	}

	s, ok := h.scenario(w, r, req.Scenario)
	if !ok {
		return
	}
	sceneID := req.SceneID
	if sceneID == "" {
		sceneID = s.OpeningSceneID()
	}

	rs := state.NewRuntimeState(req.Scenario, sceneID, s.InitialStats)
	engine, err := state.NewEngine(s.Scenes, rs, state.WithLogger(logger.WithSession(h.logger, rs.ID.String())))
	if err != nil {
		if errors.Is(err, scenario.ErrSceneNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Scene not found")
			return
		}
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}
	defer engine.Close()

	if err := h.storage.SavePlayback(r.Context(), engine.Snapshot()); err != nil {
		h.logger.Error("Failed to save playback", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save playback")
		return
	}

	h.logger.Info("Playback started", "session_id", rs.ID, "scenario", req.Scenario, "scene_id", sceneID)
	writeJSON(w, h.logger, http.StatusCreated, view(engine, false))
}

func (h *PlaybackHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeletePlayback(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete playback", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete playback")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// operation runs one engine action. It returns the HTTP status to use when the action fails.
type operation func(e *state.Engine, r *http.Request) (int, error)

var errUnknownChoice = errors.New("choice not found on the current dialogue")

func (h *PlaybackHandler) operation(w http.ResponseWriter, r *http.Request, action string) (operation, bool) {
	switch action {
	case "choose":
		var req ChooseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChoiceID == "" {
			writeError(w, h.logger, http.StatusBadRequest, "choice_id is required")
			return nil, false
		}
		return func(e *state.Engine, r *http.Request) (int, error) {
			d := e.CurrentDialogue()
			if d == nil {
				return http.StatusConflict, state.ErrNoDialogue
			}
			for _, c := range d.Choices {
				if c.ID == req.ChoiceID {
					if err := e.ChooseOption(r.Context(), c); err != nil {
						if errors.Is(err, state.ErrRollInProgress) {
							return http.StatusConflict, err
						}
						return http.StatusInternalServerError, err
					}
					return 0, nil
				}
			}
			return http.StatusNotFound, errUnknownChoice
		}, true

	case "next":
		return func(e *state.Engine, r *http.Request) (int, error) {
			e.GoToNextDialogue()
			return 0, nil
		}, true

	case "jump":
		var req JumpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
			return nil, false
		}
		return func(e *state.Engine, r *http.Request) (int, error) {
			if err := e.JumpToHistoryIndex(req.Index); err != nil {
				return http.StatusBadRequest, err
			}
			return 0, nil
		}, true

	case "scene":
		var req SceneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SceneID == "" {
			writeError(w, h.logger, http.StatusBadRequest, "scene_id is required")
			return nil, false
		}
		return func(e *state.Engine, r *http.Request) (int, error) {
			if err := e.GoToScene(req.SceneID, req.DialogueID); err != nil {
				return http.StatusNotFound, err
			}
			return 0, nil
		}, true

	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown playback action")
		return nil, false
	}
}

// handleAction loads the session, runs op against an engine over it, saves the
// result and responds with the view. A nil op only reads.
func (h *PlaybackHandler) handleAction(w http.ResponseWriter, r *http.Request, id uuid.UUID, op operation) {
	ctx := r.Context()
	log := logger.WithSession(h.logger, id.String())

	rs, err := h.storage.LoadPlayback(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Playback not found")
			return
		}
		log.Error("Failed to load playback", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load playback")
		return
	}

	s, ok := h.scenario(w, r, rs.Scenario)
	if !ok {
		return
	}

	sceneEnded := false
	var endedScene string
	opts := []state.EngineOption{
		state.WithLogger(log),
		state.WithDiceDelay(h.diceDelay),
		state.WithSceneEndHandler(func(sceneID string) {
			sceneEnded = true
			endedScene = sceneID
		}),
	}
	if b := h.broadcaster; b != nil {
		opts = append(opts,
			state.WithChoiceHandler(func(c scenario.Choice, delta conditionals.StatDelta) {
				_ = b.PublishChoiceTaken(ctx, id, c.ID, delta)
			}),
			state.WithRollHandler(func(c scenario.Choice, check scenario.DiceCheck) {
				_ = b.PublishRollingStarted(ctx, id, c.ID, check.Stat, check.Difficulty)
			}))
	}
	engine, err := state.NewEngine(s.Scenes, rs, opts...)
	if err != nil {
		log.Error("Failed to resume playback", "error", err)
		writeError(w, h.logger, http.StatusConflict, "Playback no longer matches its scenario")
		return
	}
	defer engine.Close()

	if op != nil {
		if status, err := op(engine, r); err != nil {
			logger.WithError(log, err).Warn("Playback action failed", "status", status)
			writeError(w, h.logger, status, err.Error())
			return
		}
		snap := engine.Snapshot()
		if err := h.storage.SavePlayback(ctx, snap); err != nil {
			log.Error("Failed to save playback", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to save playback")
			return
		}
		if b := h.broadcaster; b != nil {
			// publish errors are logged by the broadcaster
			_ = b.PublishStateUpdated(ctx, snap)
			if sceneEnded {
				_ = b.PublishSceneEnded(ctx, id, endedScene)
			}
		}
	}

	writeJSON(w, h.logger, http.StatusOK, view(engine, sceneEnded))
}

func (h *PlaybackHandler) scenario(w http.ResponseWriter, r *http.Request, filename string) (*scenario.Scenario, bool) {
	s, err := h.storage.GetScenario(r.Context(), filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Scenario not found")
			return nil, false
		}
		h.logger.Error("Failed to get scenario", "error", err, "scenario", filename)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve scenario")
		return nil, false
	}
	return s, true
}

func view(e *state.Engine, sceneEnded bool) PlaybackView {
	return PlaybackView{
		State:            e.Snapshot(),
		CurrentDialogue:  e.CurrentDialogue(),
		IsAtLastDialogue: e.IsAtLastDialogue(),
		SceneEnded:       sceneEnded,
	}
}
