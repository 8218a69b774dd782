package session

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kasperlindh/hunt-platform/internal/consensus"
	"github.com/kasperlindh/hunt-platform/internal/game"
)

// Effect types emitted by the executor for collaborators. Fire-and-forget:
// the core never awaits them.
const (
	EffectMessage        = "message"
	EffectOpenPlayground = "open_playground"
)

// Effect is an externally observable result of an action pass.
type Effect struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	TargetID string `json:"target_id,omitempty"`
}

// EventReceipt records the outcome of a processed event so replayed
// deliveries return the previous result instead of re-mutating state.
type EventReceipt struct {
	PointID        string    `json:"point_id"`
	Classification string    `json:"classification,omitempty"`
	Delta          int       `json:"delta"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// TeamSession is the per-team, per-game mutable state. Mutated exclusively
// under the per-team lock by the session service; persisted after every
// mutation.
type TeamSession struct {
	TeamID          uuid.UUID          `json:"team_id"`
	GameID          string             `json:"game_id"`
	Members         []consensus.Member `json:"members"`
	CaptainDeviceID string             `json:"captain_device_id,omitempty"`

	Score             int             `json:"score"`
	CompletedPointIDs []string        `json:"completed_point_ids"`
	UnlockedPointIDs  map[string]bool `json:"unlocked_point_ids"`
	LockedPointIDs    map[string]bool `json:"locked_point_ids"`
	HintUsesByPoint   map[string]int  `json:"hint_uses_by_point"`

	// PendingDoubleTrouble carries at most one task's worth of doubling; it
	// is consumed by the next scored answer evaluation.
	PendingDoubleTrouble bool `json:"pending_double_trouble"`

	OpenedAt        map[string]time.Time        `json:"opened_at"`
	Rounds          map[string]*consensus.Round `json:"rounds"`
	ProcessedEvents map[string]EventReceipt     `json:"processed_events"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTeamSession creates the state for a team joining a published game:
// zero score, only the game's entry points unlocked.
func NewTeamSession(teamID uuid.UUID, g *game.Graph, members []consensus.Member, captainDeviceID string) *TeamSession {
	now := time.Now()
	sess := &TeamSession{
		TeamID:          teamID,
		GameID:          g.Definition().ID,
		Members:         members,
		CaptainDeviceID: captainDeviceID,

		CompletedPointIDs: []string{},
		UnlockedPointIDs:  make(map[string]bool),
		LockedPointIDs:    make(map[string]bool),
		HintUsesByPoint:   make(map[string]int),
		OpenedAt:          make(map[string]time.Time),
		Rounds:            make(map[string]*consensus.Round),
		ProcessedEvents:   make(map[string]EventReceipt),

		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, id := range g.EntryPointIDs() {
		sess.UnlockedPointIDs[id] = true
	}
	return sess
}

// IsInteractive reports whether a point is currently playable: locked
// overrides unlocked at query time, lock state is not mutually exclusive in
// storage.
func (s *TeamSession) IsInteractive(pointID string) bool {
	return s.UnlockedPointIDs[pointID] && !s.LockedPointIDs[pointID]
}

// InteractivePointIDs returns the sorted set a renderer should treat as
// playable.
func (s *TeamSession) InteractivePointIDs() []string {
	ids := make([]string, 0, len(s.UnlockedPointIDs))
	for id := range s.UnlockedPointIDs {
		if !s.LockedPointIDs[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// MarkCompleted appends a point to the completed set exactly once.
func (s *TeamSession) MarkCompleted(pointID string) {
	for _, id := range s.CompletedPointIDs {
		if id == pointID {
			return
		}
	}
	s.CompletedPointIDs = append(s.CompletedPointIDs, pointID)
}

// ActiveRound returns the collecting round for a point, if any.
func (s *TeamSession) ActiveRound(pointID string) (*consensus.Round, bool) {
	round, ok := s.Rounds[pointID]
	if !ok || round.Status != consensus.StatusCollecting {
		return round, false
	}
	return round, true
}

// MemberNamed finds a roster entry by id.
func (s *TeamSession) MemberNamed(memberID string) (consensus.Member, bool) {
	for _, m := range s.Members {
		if m.ID == memberID {
			return m, true
		}
	}
	return consensus.Member{}, false
}
