package dotsandboxes

import (
	"testing"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOngoingGame(t *testing.T, rows, cols int) *entity.Game {
	t.Helper()

	game := entity.NewGame("g1", rows, cols)
	require.NoError(t, game.Join(&entity.Player{ID: "alice"}))
	require.NoError(t, game.Join(&entity.Player{ID: "bobby"}))

	return game
}

func TestApplyMove_TurnHandling(t *testing.T) {
	t.Run("A move without a completed box passes the turn", func(t *testing.T) {
		// Given: an ongoing game with A to move
		game := newOngoingGame(t, 2, 2)

		// When: A draws an edge that closes nothing
		result, err := ApplyMove(game, entity.PlayerA, entity.Edge{Row: 0, Col: 0, Horizontal: true})

		// Then: the turn passes to B
		require.NoError(t, err)
		assert.False(t, result.KeepsTurn)
		assert.Empty(t, result.CompletedBoxes)
		assert.Equal(t, entity.PlayerB, game.Turn)
	})

	t.Run("Completing a box keeps the turn", func(t *testing.T) {
		// Given: a 1x2 game with three edges of the left box drawn
		game := newOngoingGame(t, 1, 2)

		moves := []struct {
			mark string
			edge entity.Edge
		}{
			{entity.PlayerA, entity.Edge{Row: 0, Col: 0, Horizontal: true}},
			{entity.PlayerB, entity.Edge{Row: 1, Col: 0, Horizontal: true}},
			{entity.PlayerA, entity.Edge{Row: 0, Col: 0, Horizontal: false}},
		}
		for _, move := range moves {
			_, err := ApplyMove(game, move.mark, move.edge)
			require.NoError(t, err)
		}

		// When: B closes the left box
		result, err := ApplyMove(game, entity.PlayerB, entity.Edge{Row: 0, Col: 1, Horizontal: false})

		// Then: B scores and moves again
		require.NoError(t, err)
		assert.True(t, result.KeepsTurn)
		assert.Len(t, result.CompletedBoxes, 1)
		assert.Equal(t, 1, game.Scores[entity.PlayerB])
		assert.Equal(t, entity.PlayerB, game.Turn)
		assert.False(t, result.BoardComplete)
	})

	t.Run("Rejects a move out of turn", func(t *testing.T) {
		// Given: an ongoing game with A to move
		game := newOngoingGame(t, 2, 2)

		// When: B tries to move first
		_, err := ApplyMove(game, entity.PlayerB, entity.Edge{Row: 0, Col: 0, Horizontal: true})

		// Then: the move is rejected and nothing changes
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.False(t, game.Board.IsEdgeDrawn(entity.Edge{Row: 0, Col: 0, Horizontal: true}))
		assert.Equal(t, entity.PlayerA, game.Turn)
	})
}

func TestApplyMove_Rejections(t *testing.T) {
	t.Run("Rejects a move in a waiting game", func(t *testing.T) {
		// Given: a game waiting for an opponent
		game := entity.NewGame("g1", 2, 2)
		require.NoError(t, game.Join(&entity.Player{ID: "alice"}))

		_, err := ApplyMove(game, entity.PlayerA, entity.Edge{Row: 0, Col: 0, Horizontal: true})

		assert.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})

	t.Run("Rejects a move in a finished game", func(t *testing.T) {
		game := newOngoingGame(t, 2, 2)
		game.ForceExpire(entity.ReasonIdleTimeout)

		_, err := ApplyMove(game, entity.PlayerA, entity.Edge{Row: 0, Col: 0, Horizontal: true})

		assert.ErrorIs(t, err, apperror.ErrGameAlreadyFinished)
	})

	t.Run("Drawing the same edge twice never mutates score or turn", func(t *testing.T) {
		// Given: an ongoing game with one drawn edge
		game := newOngoingGame(t, 2, 2)
		edge := entity.Edge{Row: 0, Col: 0, Horizontal: true}

		_, err := ApplyMove(game, entity.PlayerA, edge)
		require.NoError(t, err)

		scoresBefore := map[string]int{
			entity.PlayerA: game.Scores[entity.PlayerA],
			entity.PlayerB: game.Scores[entity.PlayerB],
		}

		// When: B draws the same edge
		_, err = ApplyMove(game, entity.PlayerB, edge)

		// Then: the move fails and score/turn are untouched
		require.ErrorIs(t, err, apperror.ErrEdgeAlreadyDrawn)
		assert.Equal(t, scoresBefore[entity.PlayerA], game.Scores[entity.PlayerA])
		assert.Equal(t, scoresBefore[entity.PlayerB], game.Scores[entity.PlayerB])
		assert.Equal(t, entity.PlayerB, game.Turn)
	})
}

// The single-box scenario: A and B alternate around one box, no box is
// completed until the fourth edge, which B draws. Final: B owns the
// box, A=0, B=1, B wins.
func TestApplyMove_SingleBoxGame(t *testing.T) {
	game := newOngoingGame(t, 1, 1)

	moves := []struct {
		mark string
		edge entity.Edge
	}{
		{entity.PlayerA, entity.Edge{Row: 0, Col: 0, Horizontal: true}},
		{entity.PlayerB, entity.Edge{Row: 1, Col: 0, Horizontal: true}},
		{entity.PlayerA, entity.Edge{Row: 0, Col: 0, Horizontal: false}},
	}
	for _, move := range moves {
		result, err := ApplyMove(game, move.mark, move.edge)
		require.NoError(t, err)
		assert.False(t, result.KeepsTurn)
	}

	// When: B draws the fourth edge
	result, err := ApplyMove(game, entity.PlayerB, entity.Edge{Row: 0, Col: 1, Horizontal: false})

	// Then: B wins 1-0 and the game is finished on score
	require.NoError(t, err)
	assert.True(t, result.BoardComplete)
	assert.Equal(t, 0, game.Scores[entity.PlayerA])
	assert.Equal(t, 1, game.Scores[entity.PlayerB])
	assert.True(t, game.IsFinished())
	assert.Equal(t, entity.PlayerB, game.Winner)
	assert.Equal(t, entity.ReasonScored, game.Reason)
}

// A full 1x2 game driven to the end, checking the score/box invariant
// after every accepted move.
func TestApplyMove_ScoreInvariantHolds(t *testing.T) {
	game := newOngoingGame(t, 1, 2)

	moves := []entity.Edge{
		{Row: 0, Col: 0, Horizontal: true},
		{Row: 0, Col: 1, Horizontal: true},
		{Row: 1, Col: 0, Horizontal: true},
		{Row: 1, Col: 1, Horizontal: true},
		{Row: 0, Col: 0, Horizontal: false},
		{Row: 0, Col: 2, Horizontal: false},
		{Row: 0, Col: 1, Horizontal: false}, // closes both boxes
	}

	for _, edge := range moves {
		_, err := ApplyMove(game, game.Turn, edge)
		require.NoError(t, err)
		require.NoError(t, game.CheckConsistency())
	}

	// the last mover closed two boxes at once and wins 2-0
	assert.True(t, game.IsFinished())
	assert.Equal(t, 2, game.Scores[game.Winner])
	assert.NotEqual(t, entity.WinnerTie, game.Winner)
}
