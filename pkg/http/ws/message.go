package ws

import "encoding/json"

// MessageType constants for the WebSocket protocol.
const (
	// Client -> Server
	TypeOpenPoint    = "open_point"
	TypeCastVote     = "cast_vote"
	TypeForceSubmit  = "force_submit"
	TypeRequestHint  = "request_hint"
	TypeRetireMember = "retire_member"
	TypeLeaveTeam    = "leave_team"

	// Server -> Client
	TypeSessionUpdate = "session_update"
	TypeVoteUpdate    = "vote_update"
	TypeAnswerResult  = "answer_result"
	TypeEffect        = "effect"
	TypeHintResult    = "hint_result"
	TypeError         = "error"
	TypePing          = "ping"
	TypePong          = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// Client Messages (incoming)

type OpenPointPayload struct {
	PointID string `json:"point_id"`
	EventID string `json:"event_id"`
}

type CastVotePayload struct {
	PointID string `json:"point_id"`
	Answer  string `json:"answer"`
	EventID string `json:"event_id"`
}

type ForceSubmitPayload struct {
	PointID string `json:"point_id"`
	Answer  string `json:"answer,omitempty"`
	EventID string `json:"event_id"`
}

type RequestHintPayload struct {
	PointID string `json:"point_id"`
}

type RetireMemberPayload struct {
	MemberID string `json:"member_id"`
	EventID  string `json:"event_id"`
}

// Server Messages (outgoing)

// SessionUpdatePayload is the renderable team state: InteractivePointIDs is
// the set a map should treat as playable.
type SessionUpdatePayload struct {
	TeamID               string   `json:"team_id"`
	Score                int      `json:"score"`
	CompletedPointIDs    []string `json:"completed_point_ids"`
	InteractivePointIDs  []string `json:"interactive_point_ids"`
	PendingDoubleTrouble bool     `json:"pending_double_trouble"`
}

type VoteUpdatePayload struct {
	PointID string            `json:"point_id"`
	Votes   map[string]string `json:"votes"`
	Status  string            `json:"status"`
}

type AnswerResultPayload struct {
	PointID        string `json:"point_id"`
	Classification string `json:"classification"`
	Delta          int    `json:"delta"`
	Score          int    `json:"score"`
}

// EffectPayload is a fire-and-forget notification: message popups and
// playground (zone) transition requests.
type EffectPayload struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	TargetID string `json:"target_id,omitempty"`
}

type HintResultPayload struct {
	PointID string `json:"point_id"`
	Allowed bool   `json:"allowed"`
	Text    string `json:"text,omitempty"`
	Used    int    `json:"used"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
