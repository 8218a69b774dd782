package consensus

import (
	"errors"

	"github.com/kasperlindh/hunt-platform/internal/game"
)

// Round status values.
const (
	StatusCollecting = "collecting"
	StatusFinalized  = "finalized"
)

var (
	// ErrRoundClosed signals a vote arriving after finalization began; the
	// client should refresh state.
	ErrRoundClosed = errors.New("round already finalized")

	ErrUnknownMember   = errors.New("member not on team")
	ErrNotCaptain      = errors.New("only the captain may force submission")
	ErrForceNotAllowed = errors.New("force submit not available under consensus voting")
	ErrNoAnswer        = errors.New("no answer to submit")
)

// Member is a team participant. Retired members stay on the roster for
// display but drop out of the active set used for unanimity.
type Member struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Retired bool   `json:"retired"`
}

// Round collects votes for one open point. A team has at most one round in
// collecting state per point; once finalized the round is closed for good.
type Round struct {
	PointID string            `json:"point_id"`
	Status  string            `json:"status"`
	Votes   map[string]string `json:"votes"`
}

// NewRound starts vote collection for a point.
func NewRound(pointID string) *Round {
	return &Round{
		PointID: pointID,
		Status:  StatusCollecting,
		Votes:   make(map[string]string),
	}
}

// Decision is the coordinator's verdict after a tally change.
type Decision struct {
	Submit bool
	Answer string
}

// Coordinator applies one of the two team-answer finalization disciplines.
type Coordinator struct {
	mode string
}

// NewCoordinator creates a coordinator for a game's voting mode.
func NewCoordinator(mode string) *Coordinator {
	return &Coordinator{mode: mode}
}

// CastVote records a member's vote and re-evaluates the finalization
// condition. Under captain_submit votes are advisory and never trigger
// submission. Under require_consensus submission fires the instant every
// active member's vote is identical.
func (c *Coordinator) CastVote(round *Round, members []Member, memberID, answer string) (Decision, error) {
	if round.Status != StatusCollecting {
		return Decision{}, ErrRoundClosed
	}
	if !isMember(members, memberID) {
		return Decision{}, ErrUnknownMember
	}

	round.Votes[memberID] = answer

	if c.mode != game.VotingRequireConsensus {
		return Decision{}, nil
	}
	return c.finalizeIfUnanimous(round, members), nil
}

// ForceSubmit lets the captain close the round regardless of vote
// completeness. Only available under captain_submit. When answer is empty the
// captain's own stored vote is used.
func (c *Coordinator) ForceSubmit(round *Round, members []Member, captainDeviceID, memberID, answer string) (Decision, error) {
	if round.Status != StatusCollecting {
		return Decision{}, ErrRoundClosed
	}
	if c.mode == game.VotingRequireConsensus {
		return Decision{}, ErrForceNotAllowed
	}
	if memberID != CaptainOf(members, captainDeviceID) {
		return Decision{}, ErrNotCaptain
	}

	if answer == "" {
		answer = round.Votes[memberID]
	}
	if answer == "" {
		return Decision{}, ErrNoAnswer
	}

	round.Status = StatusFinalized
	return Decision{Submit: true, Answer: answer}, nil
}

// Reevaluate re-checks the unanimity condition after the active member set
// changed (retirement or late join) without a new vote being cast. Removing
// a dissenting member this way can finalize the round.
func (c *Coordinator) Reevaluate(round *Round, members []Member) Decision {
	if round == nil || round.Status != StatusCollecting {
		return Decision{}
	}
	if c.mode != game.VotingRequireConsensus {
		return Decision{}
	}
	return c.finalizeIfUnanimous(round, members)
}

func (c *Coordinator) finalizeIfUnanimous(round *Round, members []Member) Decision {
	// The empty string is a legal vote, so the leading answer is tracked
	// with an explicit flag rather than compared against "".
	answer := ""
	seen := false
	active := 0
	for _, m := range members {
		if m.Retired {
			continue
		}
		active++
		vote, ok := round.Votes[m.ID]
		if !ok {
			return Decision{}
		}
		if !seen {
			answer = vote
			seen = true
		} else if vote != answer {
			return Decision{}
		}
	}
	if active == 0 {
		return Decision{}
	}

	round.Status = StatusFinalized
	return Decision{Submit: true, Answer: answer}
}

// CaptainOf resolves the tie-break authority: the explicitly designated
// device when it is still an active member, otherwise the first active
// member on the roster.
func CaptainOf(members []Member, captainDeviceID string) string {
	if captainDeviceID != "" {
		for _, m := range members {
			if m.ID == captainDeviceID && !m.Retired {
				return captainDeviceID
			}
		}
	}
	for _, m := range members {
		if !m.Retired {
			return m.ID
		}
	}
	return ""
}

func isMember(members []Member, id string) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}
