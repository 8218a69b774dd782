package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/kasperlindh/hunt-platform/pkg/http/errors"
)

var (
	// ErrGameNotFound is returned when no published game has the id.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameAlreadyPublished guards definition immutability: publishing
	// creates a new game, never overwrites an existing one.
	ErrGameAlreadyPublished = errors.New("game already published")
)

// Store persists published definitions.
type Store interface {
	Insert(ctx context.Context, def *Definition) error
	Get(ctx context.Context, gameID string) (*Definition, error)
}

// HTTPHandlers provides REST endpoints for publishing and fetching games.
type HTTPHandlers struct {
	store    Store
	registry *Registry
	logger   zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for game endpoints.
func NewHTTPHandlers(store Store, registry *Registry, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		store:    store,
		registry: registry,
		logger:   logger.With().Str("component", "game_http").Logger(),
	}
}

// Publish handles POST /v1/games. The definition is validated as a whole
// before anything is stored; a dangling action target anywhere rejects the
// entire publish.
func (h *HTTPHandlers) Publish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var def Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	if def.ID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "id is required", "id")
		return
	}

	if err := Validate(&def); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			httperrors.RespondErrorWithDetails(w, http.StatusBadRequest, httperrors.ErrCodeInvalidGame, vErr.Error(), map[string]interface{}{
				"point_id":     vErr.PointID,
				"trigger":      vErr.Trigger,
				"action_index": vErr.ActionIndex,
			})
			return
		}
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidGame, err.Error())
		return
	}

	if err := h.store.Insert(r.Context(), &def); err != nil {
		if errors.Is(err, ErrGameAlreadyPublished) {
			httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyExists, "Game is already published")
			return
		}
		h.logger.Error().Err(err).Str("game_id", def.ID).Msg("failed to publish game")
		httperrors.RespondInternalError(w, "Failed to publish game")
		return
	}

	// A stale cached copy must not outlive a publish.
	h.registry.Invalidate(r.Context(), def.ID)

	h.logger.Info().
		Str("game_id", def.ID).
		Int("points", len(def.Points)).
		Msg("game published")

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     def.ID,
		"title":  def.Title,
		"points": len(def.Points),
	})
}

// Get handles GET /v1/games/{id}.
func (h *HTTPHandlers) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	gameID := r.PathValue("id")
	if gameID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "game id is required", "id")
		return
	}

	def, err := h.store.Get(r.Context(), gameID)
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeGameNotFound, "Game not found")
			return
		}
		h.logger.Error().Err(err).Str("game_id", gameID).Msg("failed to load game")
		httperrors.RespondInternalError(w, "Failed to load game")
		return
	}

	respondJSON(w, http.StatusOK, def)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
