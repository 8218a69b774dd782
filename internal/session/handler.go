package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kasperlindh/hunt-platform/internal/auth"
	"github.com/kasperlindh/hunt-platform/internal/consensus"
	"github.com/kasperlindh/hunt-platform/internal/game"
	"github.com/kasperlindh/hunt-platform/internal/server"
	httperrors "github.com/kasperlindh/hunt-platform/pkg/http/errors"
	ws "github.com/kasperlindh/hunt-platform/pkg/http/ws"
)

// Handler manages WebSocket connections and routes session messages to the
// service. Effects are not sent from here: the service publishes them and the
// broadcaster fans them out, so every instance delivers the same stream.
type Handler struct {
	service *Service
	hub     *ws.Hub
	tokens  *auth.Manager
	logger  zerolog.Logger
}

// NewHandler creates a session WebSocket handler.
func NewHandler(service *Service, hub *ws.Hub, tokens *auth.Manager, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		tokens:  tokens,
		logger:  logger,
	}
}

// HandleWebSocket upgrades the HTTP connection and authenticates the member
// token issued at team creation.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.HandleConnection(conn, claims)
}

// HandleConnection registers a member's connection and pumps messages until
// disconnect. The token must already be validated.
func (h *Handler) HandleConnection(conn *websocket.Conn, claims *auth.Claims) {
	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.RegisterConnection(claims.MemberID, wsConn)
	h.hub.JoinTeam(claims.TeamID, claims.MemberID)

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), claims, msg)
	})

	h.hub.LeaveTeam(claims.TeamID, claims.MemberID)
	h.hub.UnregisterConnection(claims.MemberID)
}

func (h *Handler) handleMessage(ctx context.Context, claims *auth.Claims, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeOpenPoint:
		return h.handleOpenPoint(ctx, claims, msg.Payload)
	case ws.TypeCastVote:
		return h.handleCastVote(ctx, claims, msg.Payload)
	case ws.TypeForceSubmit:
		return h.handleForceSubmit(ctx, claims, msg.Payload)
	case ws.TypeRequestHint:
		return h.handleRequestHint(ctx, claims, msg.Payload)
	case ws.TypeRetireMember:
		return h.handleRetireMember(ctx, claims, msg.Payload)
	case ws.TypeLeaveTeam:
		h.hub.LeaveTeam(claims.TeamID, claims.MemberID)
		return nil
	default:
		return h.sendError(claims.MemberID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleOpenPoint(ctx context.Context, claims *auth.Claims, payload json.RawMessage) error {
	var req ws.OpenPointPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.MemberID, httperrors.ErrCodeInvalidPayload, "Invalid open_point payload")
	}

	res, err := h.service.OpenPoint(ctx, claims.TeamID, req.PointID, req.EventID)
	if err != nil {
		return h.sendDomainError(claims.MemberID, err)
	}

	h.broadcastVoteUpdate(claims.TeamID, res.Session, req.PointID)
	return h.broadcastSessionUpdate(claims.TeamID, res.Session)
}

func (h *Handler) handleCastVote(ctx context.Context, claims *auth.Claims, payload json.RawMessage) error {
	var req ws.CastVotePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.MemberID, httperrors.ErrCodeInvalidPayload, "Invalid cast_vote payload")
	}

	res, err := h.service.CastVote(ctx, VoteEvent{
		TeamID:   claims.TeamID,
		PointID:  req.PointID,
		MemberID: claims.MemberID,
		Answer:   req.Answer,
		EventID:  req.EventID,
	})
	if err != nil {
		return h.sendDomainError(claims.MemberID, err)
	}

	h.broadcastVoteUpdate(claims.TeamID, res.Session, req.PointID)
	if res.Submitted {
		h.broadcastAnswerResult(claims.TeamID, res.Session, req.PointID, res)
	}
	return h.broadcastSessionUpdate(claims.TeamID, res.Session)
}

func (h *Handler) handleForceSubmit(ctx context.Context, claims *auth.Claims, payload json.RawMessage) error {
	var req ws.ForceSubmitPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.MemberID, httperrors.ErrCodeInvalidPayload, "Invalid force_submit payload")
	}

	res, err := h.service.ForceSubmit(ctx, VoteEvent{
		TeamID:   claims.TeamID,
		PointID:  req.PointID,
		MemberID: claims.MemberID,
		Answer:   req.Answer,
		EventID:  req.EventID,
	})
	if err != nil {
		return h.sendDomainError(claims.MemberID, err)
	}

	if res.Submitted {
		h.broadcastAnswerResult(claims.TeamID, res.Session, req.PointID, res)
	}
	return h.broadcastSessionUpdate(claims.TeamID, res.Session)
}

func (h *Handler) handleRequestHint(ctx context.Context, claims *auth.Claims, payload json.RawMessage) error {
	var req ws.RequestHintPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.MemberID, httperrors.ErrCodeInvalidPayload, "Invalid request_hint payload")
	}

	res, err := h.service.RequestHint(ctx, claims.TeamID, req.PointID)
	if err != nil {
		return h.sendDomainError(claims.MemberID, err)
	}

	// A capped hint comes back Allowed false, as data rather than an error.
	hint := ws.HintResultPayload{
		PointID: req.PointID,
		Allowed: res.Allowed,
		Text:    res.Text,
		Used:    res.Used,
	}
	msg := ws.Message{Type: ws.TypeHintResult}
	msg.Payload, _ = json.Marshal(hint)
	return h.hub.SendToMember(claims.MemberID, msg)
}

func (h *Handler) handleRetireMember(ctx context.Context, claims *auth.Claims, payload json.RawMessage) error {
	var req ws.RetireMemberPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.MemberID, httperrors.ErrCodeInvalidPayload, "Invalid retire_member payload")
	}

	res, err := h.service.RetireMember(ctx, claims.TeamID, req.MemberID, req.EventID)
	if err != nil {
		return h.sendDomainError(claims.MemberID, err)
	}

	return h.broadcastSessionUpdate(claims.TeamID, res.Session)
}

func (h *Handler) broadcastSessionUpdate(teamID uuid.UUID, sess *TeamSession) error {
	update := ws.SessionUpdatePayload{
		TeamID:               sess.TeamID.String(),
		Score:                sess.Score,
		CompletedPointIDs:    sess.CompletedPointIDs,
		InteractivePointIDs:  sess.InteractivePointIDs(),
		PendingDoubleTrouble: sess.PendingDoubleTrouble,
	}
	msg := ws.Message{Type: ws.TypeSessionUpdate}
	msg.Payload, _ = json.Marshal(update)
	return h.hub.BroadcastToTeam(teamID, msg)
}

func (h *Handler) broadcastVoteUpdate(teamID uuid.UUID, sess *TeamSession, pointID string) {
	round, ok := sess.Rounds[pointID]
	if !ok {
		return
	}
	update := ws.VoteUpdatePayload{
		PointID: pointID,
		Votes:   round.Votes,
		Status:  round.Status,
	}
	msg := ws.Message{Type: ws.TypeVoteUpdate}
	msg.Payload, _ = json.Marshal(update)
	if err := h.hub.BroadcastToTeam(teamID, msg); err != nil {
		h.logger.Debug().Err(err).Str("team_id", teamID.String()).Msg("vote update broadcast failed")
	}
}

func (h *Handler) broadcastAnswerResult(teamID uuid.UUID, sess *TeamSession, pointID string, res *EventResult) {
	result := ws.AnswerResultPayload{
		PointID:        pointID,
		Classification: res.Classification,
		Delta:          res.Delta,
		Score:          sess.Score,
	}
	msg := ws.Message{Type: ws.TypeAnswerResult}
	msg.Payload, _ = json.Marshal(result)
	if err := h.hub.BroadcastToTeam(teamID, msg); err != nil {
		h.logger.Debug().Err(err).Str("team_id", teamID.String()).Msg("answer result broadcast failed")
	}
}

// sendDomainError maps service and consensus errors to wire codes.
func (h *Handler) sendDomainError(memberID string, err error) error {
	switch {
	case errors.Is(err, ErrPointLocked):
		return h.sendError(memberID, httperrors.ErrCodePointLocked, "Point is locked")
	case errors.Is(err, ErrPointNotOpen):
		return h.sendError(memberID, httperrors.ErrCodePointNotOpen, "Point has not been opened")
	case errors.Is(err, ErrSessionNotFound):
		return h.sendError(memberID, httperrors.ErrCodeSessionNotFound, "Team session not found")
	case errors.Is(err, game.ErrPointNotFound):
		return h.sendError(memberID, httperrors.ErrCodeNotFound, "Point does not exist")
	case errors.Is(err, consensus.ErrRoundClosed):
		return h.sendError(memberID, httperrors.ErrCodeRoundFinalized, "Answer already submitted for this point")
	case errors.Is(err, consensus.ErrNotCaptain):
		return h.sendError(memberID, httperrors.ErrCodeNotCaptain, "Only the captain can force submit")
	case errors.Is(err, consensus.ErrForceNotAllowed):
		return h.sendError(memberID, httperrors.ErrCodeForceNotAllowed, "Force submit is not allowed in this game")
	case errors.Is(err, consensus.ErrUnknownMember):
		return h.sendError(memberID, httperrors.ErrCodeUnknownMember, "Member is not part of this team")
	case errors.Is(err, consensus.ErrNoAnswer):
		return h.sendError(memberID, httperrors.ErrCodeSubmitFailed, "No answer available to submit")
	default:
		h.logger.Error().Err(err).Str("member_id", memberID).Msg("session event failed")
		return h.sendError(memberID, httperrors.ErrCodeInternalError, "Internal error")
	}
}

func (h *Handler) sendError(memberID, code, message string) error {
	errPayload := ws.ErrorPayload{
		Code:    code,
		Message: message,
	}
	msg := ws.Message{Type: ws.TypeError}
	msg.Payload, _ = json.Marshal(errPayload)
	return h.hub.SendToMember(memberID, msg)
}
