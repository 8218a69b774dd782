package game

import (
	"errors"
	"fmt"
)

// ErrPointNotFound is returned by Graph.Resolve for unknown point ids.
var ErrPointNotFound = errors.New("point not found")

// ValidationError reports the first action that fails publish-time checks,
// with enough context to surface to an author.
type ValidationError struct {
	PointID     string `json:"point_id"`
	Trigger     string `json:"trigger"`
	ActionIndex int    `json:"action_index"`
	Reason      string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("point %s %s action %d: %s", e.PointID, e.Trigger, e.ActionIndex, e.Reason)
}

// Graph is the immutable lookup structure built from a published definition.
// Points and zones live in flat tables keyed by id; actions reference ids
// rather than holding structural pointers.
type Graph struct {
	def    *Definition
	points map[string]Point
	zones  map[string]Zone
}

// NewGraph validates a definition and builds the lookup tables. Authors get
// the first failing action back; nothing is auto-fixed.
func NewGraph(def *Definition) (*Graph, error) {
	if err := Validate(def); err != nil {
		return nil, err
	}

	g := &Graph{
		def:    def,
		points: make(map[string]Point, len(def.Points)),
		zones:  make(map[string]Zone, len(def.Playgrounds)),
	}
	for _, p := range def.Points {
		g.points[p.ID] = p
	}
	for _, z := range def.Playgrounds {
		g.zones[z.ID] = z
	}
	return g, nil
}

// Definition returns the underlying published definition.
func (g *Graph) Definition() *Definition {
	return g.def
}

// Resolve looks up a point by id.
func (g *Graph) Resolve(id string) (Point, error) {
	p, ok := g.points[id]
	if !ok {
		return Point{}, fmt.Errorf("%w: %s", ErrPointNotFound, id)
	}
	return p, nil
}

// ResolveZone looks up a playground by id.
func (g *Graph) ResolveZone(id string) (Zone, bool) {
	z, ok := g.zones[id]
	return z, ok
}

// EntryPointIDs returns the ids unlocked when a team joins.
func (g *Graph) EntryPointIDs() []string {
	return g.def.EntryPointIDs
}

// Validate checks every action across every point: unlock/lock targets must
// reference an existing point, open_playground targets an existing zone or
// point, score actions carry a value, message actions non-empty text. The
// graph is not required to be acyclic — mutual unlocks are a legitimate
// puzzle-loop pattern, so only reference existence is checked.
func Validate(def *Definition) error {
	pointIDs := make(map[string]bool, len(def.Points))
	zoneIDs := make(map[string]bool, len(def.Playgrounds))
	for _, p := range def.Points {
		if p.ID == "" {
			return &ValidationError{PointID: p.ID, Reason: "point id must not be empty"}
		}
		if pointIDs[p.ID] {
			return &ValidationError{PointID: p.ID, Reason: "duplicate point id"}
		}
		pointIDs[p.ID] = true
		if p.BasePoints < 0 {
			return &ValidationError{PointID: p.ID, Reason: "base points must not be negative"}
		}
	}
	for _, z := range def.Playgrounds {
		zoneIDs[z.ID] = true
	}

	for _, entry := range def.EntryPointIDs {
		if !pointIDs[entry] {
			return &ValidationError{PointID: entry, Reason: "entry point does not exist"}
		}
	}

	for _, p := range def.Points {
		for _, trigger := range []string{TriggerOnOpen, TriggerOnCorrect, TriggerOnIncorrect} {
			for i, action := range p.Logic.ActionsFor(trigger) {
				if reason := checkAction(action, pointIDs, zoneIDs); reason != "" {
					return &ValidationError{
						PointID:     p.ID,
						Trigger:     trigger,
						ActionIndex: i,
						Reason:      reason,
					}
				}
			}
		}
	}
	return nil
}

func checkAction(a Action, pointIDs, zoneIDs map[string]bool) string {
	switch a.Type {
	case ActionUnlock, ActionLock:
		if a.TargetID == "" {
			return fmt.Sprintf("%s action requires a target", a.Type)
		}
		if !pointIDs[a.TargetID] {
			return fmt.Sprintf("%s target %q does not exist", a.Type, a.TargetID)
		}
	case ActionOpenPlayground:
		if a.TargetID == "" {
			return "open_playground action requires a target"
		}
		if !zoneIDs[a.TargetID] && !pointIDs[a.TargetID] {
			return fmt.Sprintf("open_playground target %q does not exist", a.TargetID)
		}
	case ActionScore:
		if a.Value == nil {
			return "score action requires a value"
		}
	case ActionMessage:
		if a.Text == "" {
			return "message action requires non-empty text"
		}
	case ActionDoubleTrouble:
		// no required fields
	default:
		return fmt.Sprintf("unknown action type %q", a.Type)
	}
	return ""
}
