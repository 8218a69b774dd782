package game

import "time"

// TriggerKind constants for the three game events a point can react to.
const (
	TriggerOnOpen      = "on_open"
	TriggerOnCorrect   = "on_correct"
	TriggerOnIncorrect = "on_incorrect"
)

// ActionType constants.
const (
	ActionUnlock         = "unlock"
	ActionLock           = "lock"
	ActionScore          = "score"
	ActionMessage        = "message"
	ActionDoubleTrouble  = "double_trouble"
	ActionOpenPlayground = "open_playground"
)

// TaskKind constants for answer specifications.
const (
	TaskText                = "text"
	TaskMultipleChoice      = "multiple_choice"
	TaskBoolean             = "boolean"
	TaskSlider              = "slider"
	TaskCheckbox            = "checkbox"
	TaskDropdown            = "dropdown"
	TaskMultiSelectDropdown = "multi_select_dropdown"
)

// PenaltyMode for incorrect answers.
const (
	PenaltyZero     = "zero"
	PenaltyNegative = "negative"
)

// TimeLimitMode for answer deadlines.
const (
	TimeLimitNone         = "none"
	TimeLimitGlobal       = "global"
	TimeLimitTaskSpecific = "task_specific"
)

// TeamVotingMode for answer finalization.
const (
	VotingCaptainSubmit    = "captain_submit"
	VotingRequireConsensus = "require_consensus"
)

// Action is a single effect attached to a trigger. The value fields form a
// tagged union keyed by Type: score uses Value, message uses Text,
// unlock/lock/open_playground use TargetID.
type Action struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	TargetID string `json:"target_id,omitempty"`
	Value    *int   `json:"value,omitempty"`
	Text     string `json:"text,omitempty"`
}

// TriggerSet maps each trigger kind to its ordered action list. Order matters:
// a double_trouble action arms the session flag, so score actions later in the
// same list already see the multiplier.
type TriggerSet struct {
	OnOpen      []Action `json:"on_open,omitempty"`
	OnCorrect   []Action `json:"on_correct,omitempty"`
	OnIncorrect []Action `json:"on_incorrect,omitempty"`
}

// Task describes how a submitted answer is judged. Kind-specific fields:
// Answer for text/boolean/dropdown/multiple_choice, Answers for
// checkbox/multi_select_dropdown, Value+Tolerance for slider.
type Task struct {
	Kind      string   `json:"kind"`
	Answer    string   `json:"answer,omitempty"`
	Answers   []string `json:"answers,omitempty"`
	Options   []string `json:"options,omitempty"`
	Value     float64  `json:"value,omitempty"`
	Tolerance float64  `json:"tolerance,omitempty"`
}

// Point is a task node in the game's dependency graph. Immutable once the
// game is published.
type Point struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	BasePoints int        `json:"base_points"`
	Task       Task       `json:"task"`
	Logic      TriggerSet `json:"logic"`

	// TimeLimitSeconds is honored when the game's TimeLimitMode is
	// task_specific.
	TimeLimitSeconds int `json:"time_limit_seconds,omitempty"`

	// Hint texts revealed in order; consumption is tracked per team.
	Hints []string `json:"hints,omitempty"`
}

// Zone is a navigable sub-area (playground) a team can be routed into via an
// open_playground action.
type Zone struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TaskConfig holds game-wide gameplay settings.
type TaskConfig struct {
	TimeLimitMode   string `json:"time_limit_mode"`
	GlobalTimeLimit int    `json:"global_time_limit_seconds,omitempty"`
	PenaltyMode     string `json:"penalty_mode"`
	LimitHints      bool   `json:"limit_hints"`
	HintLimit       int    `json:"hint_limit,omitempty"`
	HintCost        int    `json:"hint_cost,omitempty"`
	TeamVotingMode  string `json:"team_voting_mode"`
}

// Definition is a published game: the point graph plus gameplay settings.
// Read-only for the lifetime of a game session.
type Definition struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Points        []Point    `json:"points"`
	Playgrounds   []Zone     `json:"playgrounds,omitempty"`
	EntryPointIDs []string   `json:"entry_point_ids"`
	TaskConfig    TaskConfig `json:"task_config"`
	PublishedAt   time.Time  `json:"published_at,omitempty"`
}

// GlobalTimeLimitDuration returns the global limit as a duration.
func (c TaskConfig) GlobalTimeLimitDuration() time.Duration {
	return time.Duration(c.GlobalTimeLimit) * time.Second
}

// TimeLimitFor returns the effective answer deadline for a point, or zero if
// none applies.
func (c TaskConfig) TimeLimitFor(p Point) time.Duration {
	switch c.TimeLimitMode {
	case TimeLimitGlobal:
		return c.GlobalTimeLimitDuration()
	case TimeLimitTaskSpecific:
		return time.Duration(p.TimeLimitSeconds) * time.Second
	default:
		return 0
	}
}

// ActionsFor returns the ordered action list for a trigger kind, or nil if
// the point has no rules for it.
func (t TriggerSet) ActionsFor(trigger string) []Action {
	switch trigger {
	case TriggerOnOpen:
		return t.OnOpen
	case TriggerOnCorrect:
		return t.OnCorrect
	case TriggerOnIncorrect:
		return t.OnIncorrect
	default:
		return nil
	}
}
