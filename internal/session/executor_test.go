package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/kasperlindh/hunt-platform/internal/game"
)

func intPtr(v int) *int { return &v }

func blankSession() *TeamSession {
	return &TeamSession{
		TeamID:            uuid.New(),
		CompletedPointIDs: []string{},
		UnlockedPointIDs:  make(map[string]bool),
		LockedPointIDs:    make(map[string]bool),
		HintUsesByPoint:   make(map[string]int),
	}
}

func TestApply_UnlockRemovesStaleLock(t *testing.T) {
	ex := NewExecutor(0, zerolog.Nop())
	sess := blankSession()
	sess.LockedPointIDs["p2"] = true

	ex.Apply(sess, []game.Action{{Type: game.ActionUnlock, TargetID: "p2"}})

	assert.True(t, sess.UnlockedPointIDs["p2"])
	assert.False(t, sess.LockedPointIDs["p2"])
	assert.True(t, sess.IsInteractive("p2"))
}

func TestApply_LockIsStickyNotExclusive(t *testing.T) {
	ex := NewExecutor(0, zerolog.Nop())
	sess := blankSession()
	sess.UnlockedPointIDs["p2"] = true

	ex.Apply(sess, []game.Action{{Type: game.ActionLock, TargetID: "p2"}})

	// Storage keeps both memberships; locked overrides at query time.
	assert.True(t, sess.UnlockedPointIDs["p2"])
	assert.True(t, sess.LockedPointIDs["p2"])
	assert.False(t, sess.IsInteractive("p2"))
}

func TestApply_LastActionWinsWithinOnePass(t *testing.T) {
	ex := NewExecutor(0, zerolog.Nop())

	sess := blankSession()
	ex.Apply(sess, []game.Action{
		{Type: game.ActionLock, TargetID: "p3"},
		{Type: game.ActionUnlock, TargetID: "p3"},
	})
	assert.True(t, sess.IsInteractive("p3"), "unlock after lock leaves the point playable")

	sess = blankSession()
	ex.Apply(sess, []game.Action{
		{Type: game.ActionUnlock, TargetID: "p3"},
		{Type: game.ActionLock, TargetID: "p3"},
	})
	assert.False(t, sess.IsInteractive("p3"), "lock after unlock leaves the point locked")
}

func TestApply_ScoreReadsButDoesNotClearDoubleTrouble(t *testing.T) {
	ex := NewExecutor(0, zerolog.Nop())
	sess := blankSession()
	sess.PendingDoubleTrouble = true

	out := ex.Apply(sess, []game.Action{
		{Type: game.ActionScore, Value: intPtr(10)},
		{Type: game.ActionScore, Value: intPtr(5)},
	})

	// Both score actions see the same multiplier state.
	assert.Equal(t, 30, sess.Score)
	assert.True(t, sess.PendingDoubleTrouble, "executor never clears the flag")
	assert.False(t, out.DoubleTroubleArmed)
}

func TestApply_DoubleTroubleArmsForLaterScoresInSameList(t *testing.T) {
	ex := NewExecutor(0, zerolog.Nop())
	sess := blankSession()

	out := ex.Apply(sess, []game.Action{
		{Type: game.ActionScore, Value: intPtr(10)},
		{Type: game.ActionDoubleTrouble},
		{Type: game.ActionScore, Value: intPtr(10)},
	})

	// Order matters: the score before the flag is single, the one after is
	// doubled.
	assert.Equal(t, 30, sess.Score)
	assert.True(t, out.DoubleTroubleArmed)
	assert.True(t, sess.PendingDoubleTrouble)
}

func TestApply_EffectsCollectedInOrder(t *testing.T) {
	ex := NewExecutor(0, zerolog.Nop())
	sess := blankSession()

	out := ex.Apply(sess, []game.Action{
		{Type: game.ActionMessage, Text: "find the bell tower"},
		{Type: game.ActionOpenPlayground, TargetID: "z1"},
	})

	assert.Equal(t, []Effect{
		{Type: EffectMessage, Text: "find the bell tower"},
		{Type: EffectOpenPlayground, TargetID: "z1"},
	}, out.Effects)
}

func TestApply_UnknownActionSkippedRestContinue(t *testing.T) {
	ex := NewExecutor(0, zerolog.Nop())
	sess := blankSession()

	ex.Apply(sess, []game.Action{
		{Type: "teleport", TargetID: "p9"},
		{Type: game.ActionScore, Value: intPtr(7)},
	})

	assert.Equal(t, 7, sess.Score, "actions after an unknown type still run")
}

func TestApply_SetOperationsAreIdempotentOnReplay(t *testing.T) {
	ex := NewExecutor(0, zerolog.Nop())
	actions := []game.Action{
		{Type: game.ActionUnlock, TargetID: "p2"},
		{Type: game.ActionLock, TargetID: "p4"},
		{Type: game.ActionMessage, Text: "onward"},
	}

	once := blankSession()
	ex.Apply(once, actions)

	twice := blankSession()
	ex.Apply(twice, actions)
	ex.Apply(twice, actions)

	assert.Equal(t, once.UnlockedPointIDs, twice.UnlockedPointIDs)
	assert.Equal(t, once.LockedPointIDs, twice.LockedPointIDs)
	assert.Equal(t, once.Score, twice.Score)
}

func TestApply_PassCap(t *testing.T) {
	ex := NewExecutor(2, zerolog.Nop())
	sess := blankSession()

	out := ex.Apply(sess, []game.Action{
		{Type: game.ActionScore, Value: intPtr(1)},
		{Type: game.ActionScore, Value: intPtr(1)},
		{Type: game.ActionScore, Value: intPtr(1)},
	})

	assert.True(t, out.Truncated)
	assert.Equal(t, 2, sess.Score)
}
