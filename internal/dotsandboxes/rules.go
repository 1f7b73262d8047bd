package dotsandboxes

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

// MoveResult describes the effect of one accepted move.
type MoveResult struct {
	CompletedBoxes []entity.Box
	KeepsTurn      bool
	BoardComplete  bool
}

// ApplyMove validates and applies one move as a single transaction:
// draw the edge, detect completions, update score and turn, and close
// the game when the board is complete. A rejected move leaves the game
// untouched. Fully deterministic given the board and the move.
func ApplyMove(gameInstance *entity.Game, mark string, edge entity.Edge) (*MoveResult, error) {
	if err := gameInstance.ConfirmOngoingState(); err != nil {
		return nil, err
	}

	if gameInstance.Turn != mark {
		return nil, apperror.ErrNotYourTurn
	}

	completed, err := gameInstance.Board.DrawEdge(edge, mark)
	if err != nil {
		return nil, fmt.Errorf("invalid turn: %w", err)
	}

	result := &MoveResult{
		CompletedBoxes: completed,
		KeepsTurn:      len(completed) > 0,
	}

	gameInstance.Scores[mark] += len(completed)
	gameInstance.LastMoveAt = time.Now()

	// completing a box grants the same player another move
	if !result.KeepsTurn {
		gameInstance.Turn = toggleMark(mark)
	}

	if gameInstance.Board.IsComplete() {
		result.BoardComplete = true
		gameInstance.FinishScored()
	}

	return result, nil
}

func toggleMark(currentMark string) string {
	if currentMark == entity.PlayerA {
		return entity.PlayerB
	}
	return entity.PlayerA
}
