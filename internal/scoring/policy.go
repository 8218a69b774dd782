package scoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/kasperlindh/hunt-platform/internal/game"
)

// Classification of a submitted answer.
const (
	Correct   = "correct"
	Incorrect = "incorrect"
)

// Context carries per-evaluation session facts the policy needs.
type Context struct {
	PendingDoubleTrouble bool
	OpenedAt             time.Time
	Now                  time.Time
	HintsUsed            int
}

// Result of evaluating one submitted answer.
type Result struct {
	Classification string
	RawDelta       int
	// DoubleTroubleConsumed is true when a pending double-trouble flag was
	// applied by this evaluation; the caller clears the session flag on it.
	DoubleTroubleConsumed bool
	// TimedOut is true when the answer was forced incorrect by the deadline.
	TimedOut bool
}

// Policy computes score deltas and correctness classifications. Pure: the
// same point, answer and context always produce the same result.
type Policy struct {
	config game.TaskConfig
}

// NewPolicy creates a scoring policy for a game's task configuration.
func NewPolicy(config game.TaskConfig) *Policy {
	return &Policy{config: config}
}

// Evaluate judges a submitted answer against a point's task.
//
// Deadlines are enforced lazily here: when a time limit applies and the
// elapsed time since the point was opened exceeds it, the answer is forced
// incorrect before any delta rule runs. A pending double-trouble flag doubles
// the magnitude for correct and incorrect alike and is consumed exactly once
// regardless of the outcome. Hints deduct their cost from the eventual delta,
// floored at zero under the zero penalty mode.
func (p *Policy) Evaluate(point game.Point, answer string, ctx Context) Result {
	now := ctx.Now
	if now.IsZero() {
		now = time.Now()
	}

	correct := Matches(point.Task, answer)

	timedOut := false
	if limit := p.config.TimeLimitFor(point); limit > 0 && !ctx.OpenedAt.IsZero() {
		if now.Sub(ctx.OpenedAt) > limit {
			correct = false
			timedOut = true
		}
	}

	multiplier := 1
	if ctx.PendingDoubleTrouble {
		multiplier = 2
	}

	var delta int
	if correct {
		delta = point.BasePoints * multiplier
	} else if p.config.PenaltyMode == game.PenaltyNegative {
		delta = -point.BasePoints * multiplier
	}

	if ctx.HintsUsed > 0 {
		delta -= ctx.HintsUsed * p.config.HintCost
	}
	if p.config.PenaltyMode == game.PenaltyZero && delta < 0 {
		delta = 0
	}

	classification := Incorrect
	if correct {
		classification = Correct
	}

	return Result{
		Classification:        classification,
		RawDelta:              delta,
		DoubleTroubleConsumed: ctx.PendingDoubleTrouble,
		TimedOut:              timedOut,
	}
}

// HintAllowed reports whether a team that has already used the given number
// of hints may take another. Exceeding the cap is a no-op for callers, not an
// error.
func (p *Policy) HintAllowed(hintsUsed int) bool {
	if !p.config.LimitHints {
		return true
	}
	return hintsUsed < p.config.HintLimit
}

// Matches judges an answer against a task, kind-specific:
// exact match for text/boolean/dropdown/multiple_choice, set equality for
// checkbox/multi_select_dropdown, tolerance containment for slider.
func Matches(task game.Task, answer string) bool {
	switch task.Kind {
	case game.TaskText:
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(task.Answer))
	case game.TaskBoolean, game.TaskDropdown, game.TaskMultipleChoice:
		return strings.TrimSpace(answer) == strings.TrimSpace(task.Answer)
	case game.TaskCheckbox, game.TaskMultiSelectDropdown:
		return setsEqual(splitSelections(answer), task.Answers)
	case game.TaskSlider:
		v, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
		if err != nil {
			return false
		}
		return v >= task.Value-task.Tolerance && v <= task.Value+task.Tolerance
	default:
		return false
	}
}

// splitSelections parses the wire form of a multi-selection answer
// (comma-separated labels).
func splitSelections(answer string) []string {
	parts := strings.Split(answer, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func setsEqual(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(want))
	for _, w := range want {
		seen[strings.TrimSpace(w)] = true
	}
	for _, g := range got {
		if !seen[g] {
			return false
		}
		delete(seen, g)
	}
	return len(seen) == 0
}
