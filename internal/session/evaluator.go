package session

import "github.com/kasperlindh/hunt-platform/internal/game"

// ResolveTrigger returns a point's action list for a trigger kind verbatim,
// or an empty sequence when no rules exist. No side effects, deterministic:
// identical inputs always yield identical output, which is what makes replay
// of an event reproduce the same action list.
func ResolveTrigger(point game.Point, trigger string) []game.Action {
	return point.Logic.ActionsFor(trigger)
}
