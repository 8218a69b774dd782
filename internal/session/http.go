package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kasperlindh/hunt-platform/internal/auth"
	"github.com/kasperlindh/hunt-platform/internal/consensus"
	"github.com/kasperlindh/hunt-platform/internal/game"
	httperrors "github.com/kasperlindh/hunt-platform/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for team lifecycle.
type HTTPHandlers struct {
	service *Service
	tokens  *auth.Manager
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for team endpoints.
func NewHTTPHandlers(service *Service, tokens *auth.Manager, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		tokens:  tokens,
		logger:  logger.With().Str("component", "team_http").Logger(),
	}
}

// CreateTeamRequest registers a team for a published game.
type CreateTeamRequest struct {
	GameID          string             `json:"game_id"`
	Members         []CreateTeamMember `json:"members"`
	CaptainDeviceID string             `json:"captain_device_id,omitempty"`
}

// CreateTeamMember names one joining member. ID is optional; one is assigned
// when omitted.
type CreateTeamMember struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// TeamMemberCredential pairs a member with the token their device connects
// with.
type TeamMemberCredential struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Captain  bool   `json:"captain"`
	Token    string `json:"token"`
}

// CreateTeamResponse returns the new session and per-member credentials.
type CreateTeamResponse struct {
	TeamID              string                 `json:"team_id"`
	GameID              string                 `json:"game_id"`
	InteractivePointIDs []string               `json:"interactive_point_ids"`
	Members             []TeamMemberCredential `json:"members"`
}

// CreateTeam handles POST /v1/teams.
func (h *HTTPHandlers) CreateTeam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.GameID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "game_id is required", "game_id")
		return
	}
	if len(req.Members) == 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "at least one member is required", "members")
		return
	}

	members := make([]consensus.Member, len(req.Members))
	for i, m := range req.Members {
		if m.Name == "" {
			httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "member name is required", "members")
			return
		}
		id := m.ID
		if id == "" {
			id = uuid.NewString()
		}
		members[i] = consensus.Member{ID: id, Name: m.Name}
	}

	sess, err := h.service.CreateSession(r.Context(), req.GameID, members, req.CaptainDeviceID)
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeGameNotFound, "Game not found")
			return
		}
		h.logger.Error().Err(err).Str("game_id", req.GameID).Msg("failed to create team")
		httperrors.RespondInternalError(w, "Failed to create team")
		return
	}

	captainID := consensus.CaptainOf(sess.Members, sess.CaptainDeviceID)
	creds := make([]TeamMemberCredential, len(sess.Members))
	for i, m := range sess.Members {
		isCaptain := captainID != "" && captainID == m.ID
		token, err := h.tokens.IssueMemberToken(sess.TeamID, m.ID, m.Name, isCaptain)
		if err != nil {
			h.logger.Error().Err(err).Str("team_id", sess.TeamID.String()).Msg("failed to issue member token")
			httperrors.RespondInternalError(w, "Failed to issue member tokens")
			return
		}
		creds[i] = TeamMemberCredential{
			MemberID: m.ID,
			Name:     m.Name,
			Captain:  isCaptain,
			Token:    token,
		}
	}

	respondJSON(w, http.StatusCreated, CreateTeamResponse{
		TeamID:              sess.TeamID.String(),
		GameID:              sess.GameID,
		InteractivePointIDs: sess.InteractivePointIDs(),
		Members:             creds,
	})
}

// GetTeam handles GET /v1/teams/{id}.
func (h *HTTPHandlers) GetTeam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	teamID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidTeamID, "Invalid team id")
		return
	}

	sess, err := h.service.GetSession(r.Context(), teamID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Team session not found")
			return
		}
		h.logger.Error().Err(err).Str("team_id", teamID.String()).Msg("failed to load team session")
		httperrors.RespondInternalError(w, "Failed to load team session")
		return
	}

	respondJSON(w, http.StatusOK, sess)
}

// EndTeam handles DELETE /v1/teams/{id}.
func (h *HTTPHandlers) EndTeam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	teamID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidTeamID, "Invalid team id")
		return
	}

	if err := h.service.EndSession(r.Context(), teamID); err != nil {
		h.logger.Error().Err(err).Str("team_id", teamID.String()).Msg("failed to end team session")
		httperrors.RespondInternalError(w, "Failed to end team session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
