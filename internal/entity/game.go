package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"

	PlayerA   = "A"
	PlayerB   = "B"
	WinnerTie = "-"

	ReasonScored          = "scored"
	ReasonIdleTimeout     = "idle_timeout"
	ReasonAbsoluteTimeout = "absolute_timeout"
	ReasonAbandoned       = "abandoned"
	ReasonInvariant       = "invariant_violation"
)

var ErrUnknownGameStatus = fmt.Errorf("unknown game status")

type Game struct {
	ID         string         `json:"id"`
	Board      *Board         `json:"board"`
	Players    []*Player      `json:"players,omitempty"`
	Turn       string         `json:"player_turn,omitempty"`
	Scores     map[string]int `json:"scores"`
	Status     string         `json:"status"`
	Winner     string         `json:"winner,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	LastMoveAt time.Time      `json:"last_move_at"`
}

func NewGame(id string, rows, cols int) *Game {
	now := time.Now()

	return &Game{
		ID:         id,
		Board:      NewBoard(rows, cols),
		Scores:     map[string]int{PlayerA: 0, PlayerB: 0},
		Status:     StatusWaiting,
		CreatedAt:  now,
		LastMoveAt: now,
	}
}

// Join adds a player to the game. The first joiner gets mark A and the
// opening turn; the second join flips the game to ongoing.
func (that *Game) Join(player *Player) error {
	if that.IsFinished() {
		return apperror.ErrGameAlreadyFinished
	}

	if len(that.Players) >= 2 {
		return fmt.Errorf("%w: game id %s", apperror.ErrGameIsFull, that.ID)
	}

	if len(that.Players) == 0 {
		player.Mark = PlayerA
	} else {
		player.Mark = PlayerB
	}
	player.GameID = that.ID

	that.Players = append(that.Players, player)

	if len(that.Players) == 2 {
		that.Status = StatusOngoing
		that.Turn = PlayerA
		that.LastMoveAt = time.Now()
	}

	return nil
}

// ForceExpire moves any non-terminal game to finished with the given
// reason and no winner. A no-op when the game is already terminal.
func (that *Game) ForceExpire(reason string) {
	if that.IsFinished() {
		return
	}

	that.Status = StatusFinished
	that.Winner = ""
	that.Reason = reason
	that.Turn = ""
}

// FinishScored closes a naturally completed board: higher score wins,
// equal scores draw.
func (that *Game) FinishScored() {
	that.Status = StatusFinished
	that.Reason = ReasonScored
	that.Turn = ""

	switch {
	case that.Scores[PlayerA] > that.Scores[PlayerB]:
		that.Winner = PlayerA
	case that.Scores[PlayerB] > that.Scores[PlayerA]:
		that.Winner = PlayerB
	default:
		that.Winner = WinnerTie
	}
}

// CheckConsistency verifies that owned plus unowned boxes account for
// the whole board. A violation is fatal for this game only.
func (that *Game) CheckConsistency() error {
	owned := that.Board.OwnedBoxes(PlayerA) + that.Board.OwnedBoxes(PlayerB)
	scored := that.Scores[PlayerA] + that.Scores[PlayerB]
	unowned := that.Board.TotalBoxes() - owned

	if scored != owned || scored+unowned != that.Board.TotalBoxes() {
		return fmt.Errorf("score/box mismatch: scores %d, owned boxes %d, total %d",
			scored, owned, that.Board.TotalBoxes())
	}

	return nil
}

func (that *Game) MarkOf(playerID string) string {
	for _, player := range that.Players {
		if player.ID == playerID {
			return player.Mark
		}
	}

	return ""
}

func (that *Game) HasPlayer(playerID string) bool {
	return that.MarkOf(playerID) != ""
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) ConfirmOngoingState() error {
	switch {
	case that.IsWaiting():
		return apperror.ErrGameIsNotStarted
	case that.IsFinished():
		return apperror.ErrGameAlreadyFinished
	case that.IsOngoing():
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownGameStatus, that.Status)
	}
}

// Snapshot returns a deep copy safe to hand outside the per-game lock.
func (that *Game) Snapshot() *Game {
	snapshot := *that
	snapshot.Board = that.Board.Clone()

	snapshot.Scores = make(map[string]int, len(that.Scores))
	for mark, score := range that.Scores {
		snapshot.Scores[mark] = score
	}

	snapshot.Players = make([]*Player, len(that.Players))
	for i, player := range that.Players {
		playerCopy := *player
		snapshot.Players[i] = &playerCopy
	}

	return &snapshot
}
