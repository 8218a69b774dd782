package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kasperlindh/hunt-platform/internal/consensus"
	"github.com/kasperlindh/hunt-platform/internal/game"
	"github.com/kasperlindh/hunt-platform/internal/scoring"
)

var (
	// ErrPointLocked is returned when a team interacts with a point outside
	// its interactive set.
	ErrPointLocked = errors.New("point is not unlocked for this team")

	// ErrPointNotOpen is returned for votes against a point the team never
	// opened.
	ErrPointNotOpen = errors.New("point has no open voting round")
)

// GameSource resolves published game graphs. Read-only at runtime.
type GameSource interface {
	Get(ctx context.Context, gameID string) (*game.Graph, error)
}

// Archiver keeps durable session snapshots behind the hot store. Write and
// delete failures are non-fatal and warn-logged; the hot store is the source
// of truth. GetSnapshot returns (nil, nil) when no snapshot exists.
type Archiver interface {
	SaveSnapshot(ctx context.Context, sess *TeamSession) error
	GetSnapshot(ctx context.Context, teamID uuid.UUID) (*TeamSession, error)
	DeleteSnapshot(ctx context.Context, teamID uuid.UUID) error
}

// EffectPublisher fans effects out to other instances' connected devices.
type EffectPublisher interface {
	PublishEffects(ctx context.Context, teamID uuid.UUID, effects []Effect) error
}

// VoteEvent is a member vote delivered from the transport layer. Delivery is
// at-least-once; EventID is the idempotency key.
type VoteEvent struct {
	TeamID   uuid.UUID `json:"team_id"`
	PointID  string    `json:"point_id"`
	MemberID string    `json:"member_id"`
	Answer   string    `json:"answer"`
	EventID  string    `json:"event_id"`
}

// EventResult reports what one processed event did to the session.
type EventResult struct {
	Session        *TeamSession
	Effects        []Effect
	Submitted      bool
	Classification string
	Delta          int
	// Duplicate marks a replayed event: the previous result is returned and
	// nothing was re-applied.
	Duplicate bool
}

// HintResult reports a hint request outcome. A capped request is a no-op
// with Allowed false, not an error.
type HintResult struct {
	Allowed bool   `json:"allowed"`
	Text    string `json:"text,omitempty"`
	Used    int    `json:"used"`
}

// Service orchestrates the event flow: consensus finalizes the team answer,
// the scoring policy computes the delta, the trigger evaluator resolves the
// rule set, the executor mutates session state, and the store persists it.
type Service struct {
	games     GameSource
	store     Store
	archive   Archiver
	publisher EffectPublisher
	executor  *Executor
	metrics   *Metrics
	logger    zerolog.Logger
}

// NewService creates a session service. archive, publisher and metrics may
// be nil.
func NewService(games GameSource, store Store, archive Archiver, publisher EffectPublisher, executor *Executor, metrics *Metrics, logger zerolog.Logger) *Service {
	if executor == nil {
		executor = NewExecutor(0, logger)
	}
	return &Service{
		games:     games,
		store:     store,
		archive:   archive,
		publisher: publisher,
		executor:  executor,
		metrics:   metrics,
		logger:    logger,
	}
}

// CreateSession builds and persists the state for a team joining a published
// game: zero score, only entry points unlocked.
func (s *Service) CreateSession(ctx context.Context, gameID string, members []consensus.Member, captainDeviceID string) (*TeamSession, error) {
	g, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}

	sess := NewTeamSession(uuid.New(), g, members, captainDeviceID)
	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("team_id", sess.TeamID.String()).
		Str("game_id", gameID).
		Int("members", len(members)).
		Msg("team session created")
	return sess, nil
}

// GetSession loads a team's current state. A session missing from the hot
// store is rehydrated from its durable snapshot when one exists, so an
// expired or flushed Redis entry does not strand a live team.
func (s *Service) GetSession(ctx context.Context, teamID uuid.UUID) (*TeamSession, error) {
	sess, err := s.store.Load(ctx, teamID)
	if !errors.Is(err, ErrSessionNotFound) || s.archive == nil {
		return sess, err
	}

	snap, snapErr := s.archive.GetSnapshot(ctx, teamID)
	if snapErr != nil {
		s.logger.Warn().Err(snapErr).Str("team_id", teamID.String()).Msg("failed to read session snapshot")
		return nil, err
	}
	if snap == nil {
		return nil, err
	}

	if saveErr := s.store.Save(ctx, snap); saveErr != nil {
		s.logger.Warn().Err(saveErr).Str("team_id", teamID.String()).Msg("failed to rehydrate hot session store")
	}
	s.logger.Info().Str("team_id", teamID.String()).Msg("session rehydrated from snapshot")
	return snap, nil
}

// EndSession tears a team's session down, hot copy and durable snapshot
// both.
func (s *Service) EndSession(ctx context.Context, teamID uuid.UUID) error {
	if err := s.store.Delete(ctx, teamID); err != nil {
		return err
	}
	if s.archive != nil {
		if err := s.archive.DeleteSnapshot(ctx, teamID); err != nil {
			s.logger.Warn().Err(err).Str("team_id", teamID.String()).Msg("failed to delete session snapshot")
		}
	}
	return nil
}

// OpenPoint records a team opening a point: stamps the deadline clock, runs
// the on_open trigger once, and starts a voting round. Re-opening (a team
// navigating away and back) resumes the persisted partial state untouched.
func (s *Service) OpenPoint(ctx context.Context, teamID uuid.UUID, pointID, eventID string) (*EventResult, error) {
	unlock, err := s.store.Lock(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer unlock()

	sess, err := s.store.Load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if res, ok := s.replayed(sess, eventID); ok {
		return res, nil
	}

	g, err := s.games.Get(ctx, sess.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	point, err := g.Resolve(pointID)
	if err != nil {
		return nil, err
	}
	if !sess.IsInteractive(pointID) {
		return nil, ErrPointLocked
	}

	res := &EventResult{Session: sess}
	if sess.OpenedAt[pointID].IsZero() {
		sess.OpenedAt[pointID] = time.Now()

		scoreBefore := sess.Score
		outcome := s.executor.Apply(sess, ResolveTrigger(point, game.TriggerOnOpen))
		res.Effects = outcome.Effects
		s.record(sess, eventID, EventReceipt{PointID: pointID, Delta: sess.Score - scoreBefore})
	}
	if _, ok := sess.Rounds[pointID]; !ok {
		sess.Rounds[pointID] = consensus.NewRound(pointID)
	}

	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}
	s.fanOut(ctx, sess.TeamID, res.Effects)
	return res, nil
}

// CastVote applies a member vote under the per-team lock. When the vote
// completes the team's answer under the game's voting discipline, the answer
// is finalized in the same pass.
func (s *Service) CastVote(ctx context.Context, evt VoteEvent) (*EventResult, error) {
	unlock, err := s.store.Lock(ctx, evt.TeamID)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer unlock()

	sess, err := s.store.Load(ctx, evt.TeamID)
	if err != nil {
		return nil, err
	}
	if res, ok := s.replayed(sess, evt.EventID); ok {
		return res, nil
	}

	g, err := s.games.Get(ctx, sess.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	point, err := g.Resolve(evt.PointID)
	if err != nil {
		return nil, err
	}
	round, ok := sess.Rounds[evt.PointID]
	if !ok {
		return nil, ErrPointNotOpen
	}

	coordinator := consensus.NewCoordinator(g.Definition().TaskConfig.TeamVotingMode)
	decision, err := coordinator.CastVote(round, sess.Members, evt.MemberID, evt.Answer)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.votesTallied.Inc()
	}

	res := &EventResult{Session: sess}
	if decision.Submit {
		s.finalizeAnswer(sess, g, point, decision.Answer, evt.EventID, res)
	}

	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}
	s.fanOut(ctx, sess.TeamID, res.Effects)
	return res, nil
}

// ForceSubmit closes the round on the captain's authority (captain_submit
// games only).
func (s *Service) ForceSubmit(ctx context.Context, evt VoteEvent) (*EventResult, error) {
	unlock, err := s.store.Lock(ctx, evt.TeamID)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer unlock()

	sess, err := s.store.Load(ctx, evt.TeamID)
	if err != nil {
		return nil, err
	}
	if res, ok := s.replayed(sess, evt.EventID); ok {
		return res, nil
	}

	g, err := s.games.Get(ctx, sess.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	point, err := g.Resolve(evt.PointID)
	if err != nil {
		return nil, err
	}
	round, ok := sess.Rounds[evt.PointID]
	if !ok {
		return nil, ErrPointNotOpen
	}

	coordinator := consensus.NewCoordinator(g.Definition().TaskConfig.TeamVotingMode)
	decision, err := coordinator.ForceSubmit(round, sess.Members, sess.CaptainDeviceID, evt.MemberID, evt.Answer)
	if err != nil {
		return nil, err
	}

	res := &EventResult{Session: sess}
	if decision.Submit {
		s.finalizeAnswer(sess, g, point, decision.Answer, evt.EventID, res)
	}

	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}
	s.fanOut(ctx, sess.TeamID, res.Effects)
	return res, nil
}

// RetireMember drops a member from the active set and re-evaluates every
// collecting round: removing a dissenter can complete unanimity without a
// new vote being cast.
func (s *Service) RetireMember(ctx context.Context, teamID uuid.UUID, memberID, eventID string) (*EventResult, error) {
	unlock, err := s.store.Lock(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer unlock()

	sess, err := s.store.Load(ctx, teamID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range sess.Members {
		if sess.Members[i].ID == memberID {
			sess.Members[i].Retired = true
			found = true
			break
		}
	}
	if !found {
		return nil, consensus.ErrUnknownMember
	}

	g, err := s.games.Get(ctx, sess.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}

	coordinator := consensus.NewCoordinator(g.Definition().TaskConfig.TeamVotingMode)
	res := &EventResult{Session: sess}
	for pointID, round := range sess.Rounds {
		decision := coordinator.Reevaluate(round, sess.Members)
		if !decision.Submit {
			continue
		}
		point, err := g.Resolve(pointID)
		if err != nil {
			continue
		}
		// One retirement can close several rounds; keep receipts distinct.
		s.finalizeAnswer(sess, g, point, decision.Answer, eventID+":"+pointID, res)
	}

	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}
	s.fanOut(ctx, sess.TeamID, res.Effects)
	return res, nil
}

// RequestHint consumes one hint for a point. Exceeding the cap or the
// point's hint texts is rejected as a no-op and the caller is told hints
// are exhausted.
func (s *Service) RequestHint(ctx context.Context, teamID uuid.UUID, pointID string) (*HintResult, error) {
	unlock, err := s.store.Lock(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer unlock()

	sess, err := s.store.Load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	g, err := s.games.Get(ctx, sess.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	point, err := g.Resolve(pointID)
	if err != nil {
		return nil, err
	}

	// A request past the cap or past the point's hint texts is a no-op:
	// nothing is revealed, so nothing is charged.
	used := sess.HintUsesByPoint[pointID]
	policy := scoring.NewPolicy(g.Definition().TaskConfig)
	if !policy.HintAllowed(used) || used >= len(point.Hints) {
		return &HintResult{Allowed: false, Used: used}, nil
	}

	sess.HintUsesByPoint[pointID] = used + 1
	text := point.Hints[used]

	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}
	return &HintResult{Allowed: true, Text: text, Used: used + 1}, nil
}

// finalizeAnswer runs the scoring pass for a submitted answer. The caller
// already deduplicated the event id and holds the team lock.
func (s *Service) finalizeAnswer(sess *TeamSession, g *game.Graph, point game.Point, answer, eventID string, res *EventResult) {
	wasPending := sess.PendingDoubleTrouble

	policy := scoring.NewPolicy(g.Definition().TaskConfig)
	result := policy.Evaluate(point, answer, scoring.Context{
		PendingDoubleTrouble: wasPending,
		OpenedAt:             sess.OpenedAt[point.ID],
		HintsUsed:            sess.HintUsesByPoint[point.ID],
	})

	sess.Score += result.RawDelta

	trigger := game.TriggerOnIncorrect
	if result.Classification == scoring.Correct {
		trigger = game.TriggerOnCorrect
		sess.MarkCompleted(point.ID)
	}
	outcome := s.executor.Apply(sess, ResolveTrigger(point, trigger))

	// The flag is consumed exactly once per scored evaluation, whatever the
	// classification. A double_trouble action fired in this very pass is a
	// fresh charge and survives the clear.
	if result.DoubleTroubleConsumed && !outcome.DoubleTroubleArmed {
		sess.PendingDoubleTrouble = false
	}

	s.record(sess, eventID, EventReceipt{
		PointID:        point.ID,
		Classification: result.Classification,
		Delta:          result.RawDelta,
	})

	res.Submitted = true
	res.Classification = result.Classification
	res.Delta = result.RawDelta
	res.Effects = append(res.Effects, outcome.Effects...)

	s.logger.Info().
		Str("team_id", sess.TeamID.String()).
		Str("point_id", point.ID).
		Str("classification", result.Classification).
		Int("delta", result.RawDelta).
		Bool("timed_out", result.TimedOut).
		Int("score", sess.Score).
		Msg("answer finalized")
}

// replayed checks the idempotency ledger. A duplicate delivery returns the
// previously recorded result and mutates nothing: score and double_trouble
// must never re-apply even though unlock/lock would tolerate replay.
func (s *Service) replayed(sess *TeamSession, eventID string) (*EventResult, bool) {
	receipt, ok := sess.ProcessedEvents[eventID]
	if !ok {
		return nil, false
	}
	if s.metrics != nil {
		s.metrics.duplicateEvents.Inc()
	}
	s.logger.Debug().
		Str("team_id", sess.TeamID.String()).
		Str("event_id", eventID).
		Msg("duplicate event ignored")
	return &EventResult{
		Session:        sess,
		Submitted:      receipt.Classification != "",
		Classification: receipt.Classification,
		Delta:          receipt.Delta,
		Duplicate:      true,
	}, true
}

func (s *Service) record(sess *TeamSession, eventID string, receipt EventReceipt) {
	receipt.ProcessedAt = time.Now()
	sess.ProcessedEvents[eventID] = receipt
	if s.metrics != nil {
		s.metrics.eventsProcessed.Inc()
	}
}

// persist saves to the hot store (errors surfaced unmodified) and writes the
// durable snapshot behind it (warn-logged, non-fatal).
func (s *Service) persist(ctx context.Context, sess *TeamSession) error {
	if err := s.store.Save(ctx, sess); err != nil {
		return err
	}
	if s.archive != nil {
		if err := s.archive.SaveSnapshot(ctx, sess); err != nil {
			s.logger.Warn().Err(err).Str("team_id", sess.TeamID.String()).Msg("failed to archive session snapshot")
		}
	}
	return nil
}

func (s *Service) fanOut(ctx context.Context, teamID uuid.UUID, effects []Effect) {
	if s.publisher == nil || len(effects) == 0 {
		return
	}
	if err := s.publisher.PublishEffects(ctx, teamID, effects); err != nil {
		s.logger.Warn().Err(err).Str("team_id", teamID.String()).Msg("failed to publish effects")
	}
}
