package session

import (
	"github.com/rs/zerolog"

	"github.com/kasperlindh/hunt-platform/internal/game"
)

// defaultMaxActionsPerPass guards against pathologically long author-defined
// action lists. A guard, not a correctness requirement.
const defaultMaxActionsPerPass = 256

// Outcome of one executor pass.
type Outcome struct {
	Effects []Effect
	// DoubleTroubleArmed is true when a double_trouble action ran in this
	// pass and the flag should survive the post-evaluation clear.
	DoubleTroubleArmed bool
	// Truncated is true when the action list exceeded the pass cap.
	Truncated bool
}

// Executor folds a resolved action list into a team session, strictly in
// list order, and collects externally observable effects.
type Executor struct {
	maxActions int
	logger     zerolog.Logger
}

// NewExecutor creates an executor. maxActions <= 0 selects the default cap.
func NewExecutor(maxActions int, logger zerolog.Logger) *Executor {
	if maxActions <= 0 {
		maxActions = defaultMaxActionsPerPass
	}
	return &Executor{maxActions: maxActions, logger: logger}
}

// Apply processes actions in order against the session. unlock and lock are
// set-membership writes and naturally idempotent; score is not, so callers
// must deduplicate by event identity before re-applying a pass. A score
// action reads the session's pending double-trouble flag but never clears
// it: clearing belongs to the answer-evaluation pass as a whole, so multiple
// score actions in one trigger all see the same multiplier state.
func (e *Executor) Apply(sess *TeamSession, actions []game.Action) Outcome {
	var out Outcome

	if len(actions) > e.maxActions {
		e.logger.Warn().
			Str("team_id", sess.TeamID.String()).
			Int("actions", len(actions)).
			Int("cap", e.maxActions).
			Msg("action list exceeds pass cap, truncating")
		actions = actions[:e.maxActions]
		out.Truncated = true
	}

	for _, action := range actions {
		switch action.Type {
		case game.ActionUnlock:
			// Unlock always wins over a stale lock.
			sess.UnlockedPointIDs[action.TargetID] = true
			delete(sess.LockedPointIDs, action.TargetID)

		case game.ActionLock:
			// Sticky: locked overrides unlocked at query time, the unlock
			// set is left alone.
			sess.LockedPointIDs[action.TargetID] = true

		case game.ActionScore:
			if action.Value == nil {
				continue // validated out at publish time; tolerate anyway
			}
			delta := *action.Value
			if sess.PendingDoubleTrouble {
				delta *= 2
			}
			sess.Score += delta

		case game.ActionMessage:
			out.Effects = append(out.Effects, Effect{Type: EffectMessage, Text: action.Text})

		case game.ActionDoubleTrouble:
			sess.PendingDoubleTrouble = true
			out.DoubleTroubleArmed = true

		case game.ActionOpenPlayground:
			out.Effects = append(out.Effects, Effect{Type: EffectOpenPlayground, TargetID: action.TargetID})

		default:
			// Forward compatibility: an older core meeting a newer action
			// kind skips it and keeps going.
			e.logger.Warn().
				Str("team_id", sess.TeamID.String()).
				Str("action_id", action.ID).
				Str("action_type", action.Type).
				Msg("skipping unknown action type")
		}
	}

	return out
}
