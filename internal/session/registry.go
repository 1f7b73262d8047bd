package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/dotsandboxes"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/pkg"
)

// Notifier receives terminal snapshots for games the registry expired
// asynchronously (timer fired), so both players can be told why.
type Notifier interface {
	NotifyGameOver(game *entity.Game)
}

// MoveOutcome is what a dispatched move returns to the transport.
type MoveOutcome struct {
	Game           *entity.Game
	CompletedBoxes []entity.Box
	KeepsTurn      bool
}

type Options struct {
	IdleTimeout   time.Duration
	MaxGameTime   time.Duration
	EvictionGrace time.Duration
	BoardRows     int
	BoardCols     int
}

// handle pairs a game with its exclusive-access lock and timers. At
// most one mutator (move submission or timer expiry) holds mu at any
// instant; this linearizes moves against expiry.
type handle struct {
	mu         sync.Mutex
	game       *entity.Game
	supervisor *Supervisor
}

// Registry owns every running game: creation, concurrent move
// dispatch, timeout enforcement and teardown. The game map has its own
// lock, independent of per-game state, so lookups for different games
// never contend.
type Registry struct {
	logger *slog.Logger
	opts   Options

	notifierMutex sync.RWMutex
	notifier      Notifier

	mu       sync.RWMutex
	games    map[string]*handle
	byPlayer map[string]string
}

func NewRegistry(logger *slog.Logger, opts Options) *Registry {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 300 * time.Second
	}
	if opts.MaxGameTime <= 0 {
		opts.MaxGameTime = 900 * time.Second
	}
	if opts.EvictionGrace <= 0 {
		opts.EvictionGrace = 30 * time.Second
	}
	if opts.BoardRows <= 0 {
		opts.BoardRows = 5
	}
	if opts.BoardCols <= 0 {
		opts.BoardCols = 5
	}

	return &Registry{
		logger:   logger.With("component", "session"),
		opts:     opts,
		games:    make(map[string]*handle),
		byPlayer: make(map[string]string),
	}
}

func (that *Registry) SetNotifier(notifier Notifier) {
	that.notifierMutex.Lock()
	that.notifier = notifier
	that.notifierMutex.Unlock()
}

// CreateGame admits an authenticated identity into a fresh waiting
// game. Both timers are armed at creation, so an unjoined game cannot
// outlive the idle window.
func (that *Registry) CreateGame(playerID string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if gameID, busy := that.byPlayer[playerID]; busy {
		return nil, fmt.Errorf("%w: game id %s", apperror.ErrAlreadyInGame, gameID)
	}

	newGame := entity.NewGame(pkg.GenerateGameID(), that.opts.BoardRows, that.opts.BoardCols)
	if err := newGame.Join(&entity.Player{ID: playerID}); err != nil {
		return nil, fmt.Errorf("failed to seat first player: %w", err)
	}

	gameHandle := &handle{game: newGame}
	gameHandle.supervisor = NewSupervisor(that.opts.IdleTimeout, that.opts.MaxGameTime, func(reason string) {
		that.expire(newGame.ID, reason)
	})

	that.games[newGame.ID] = gameHandle
	that.byPlayer[playerID] = newGame.ID

	that.logger.Info("game created", "gameID", newGame.ID, "playerID", playerID)

	return newGame.Snapshot(), nil
}

// JoinGame seats the second player and starts play. Joining a game the
// player is already seated in returns the current snapshot, which is
// the reconnect path.
func (that *Registry) JoinGame(gameID, playerID string) (*entity.Game, error) {
	that.mu.Lock()
	gameHandle, ok := that.games[gameID]
	if !ok {
		that.mu.Unlock()
		return nil, fmt.Errorf("%w: game id %s", apperror.ErrGameNotFound, gameID)
	}

	if boundGameID, busy := that.byPlayer[playerID]; busy {
		that.mu.Unlock()
		if boundGameID == gameID {
			return that.GetGame(gameID)
		}
		return nil, fmt.Errorf("%w: game id %s", apperror.ErrAlreadyInGame, boundGameID)
	}

	// bind before touching game state so a concurrent join or create
	// for the same identity is rejected; unbound again if the join fails
	that.byPlayer[playerID] = gameID
	that.mu.Unlock()

	gameHandle.mu.Lock()
	if err := gameHandle.game.Join(&entity.Player{ID: playerID}); err != nil {
		gameHandle.mu.Unlock()
		that.unbind(playerID, gameID)
		return nil, fmt.Errorf("failed to join game: %w", err)
	}

	gameHandle.supervisor.ResetIdle()
	snapshot := gameHandle.game.Snapshot()
	gameHandle.mu.Unlock()

	that.logger.Info("game started", "gameID", gameID, "playerID", playerID)

	return snapshot, nil
}

// GetGame returns a snapshot of the game. Terminal games remain
// queryable until evicted.
func (that *Registry) GetGame(gameID string) (*entity.Game, error) {
	gameHandle := that.lookup(gameID)
	if gameHandle == nil {
		return nil, fmt.Errorf("%w: game id %s", apperror.ErrGameNotFound, gameID)
	}

	gameHandle.mu.Lock()
	defer gameHandle.mu.Unlock()

	return gameHandle.game.Snapshot(), nil
}

// DispatchMove routes an authenticated move to its game, serialized
// against every other mutator of that game. A move that loses the race
// against a timer expiry is rejected, never silently applied.
func (that *Registry) DispatchMove(playerID, gameID string, edge entity.Edge) (*MoveOutcome, error) {
	gameHandle := that.lookup(gameID)
	if gameHandle == nil {
		return nil, fmt.Errorf("%w: game id %s", apperror.ErrGameNotFound, gameID)
	}

	gameHandle.mu.Lock()

	mark := gameHandle.game.MarkOf(playerID)
	if mark == "" {
		gameHandle.mu.Unlock()
		return nil, fmt.Errorf("%w: player %s is not seated in game %s", apperror.ErrNotYourTurn, playerID, gameID)
	}

	result, err := dotsandboxes.ApplyMove(gameHandle.game, mark, edge)
	if err != nil {
		gameHandle.mu.Unlock()
		return nil, err
	}

	if invariantErr := gameHandle.game.CheckConsistency(); invariantErr != nil {
		that.logger.Error("game invariant violated, expiring game",
			"gameID", gameID, "error", invariantErr)
		gameHandle.game.ForceExpire(entity.ReasonInvariant)
	}

	finished := gameHandle.game.IsFinished()
	if finished {
		gameHandle.supervisor.Stop()
	} else {
		gameHandle.supervisor.ResetIdle()
	}

	snapshot := gameHandle.game.Snapshot()
	gameHandle.mu.Unlock()

	if finished {
		that.release(snapshot)
	}

	return &MoveOutcome{
		Game:           snapshot,
		CompletedBoxes: result.CompletedBoxes,
		KeepsTurn:      result.KeepsTurn,
	}, nil
}

// Leave lets a seated player concede; the game expires as abandoned.
// The caller is expected to deliver the snapshot to both players.
func (that *Registry) Leave(playerID, gameID string) (*entity.Game, error) {
	gameHandle := that.lookup(gameID)
	if gameHandle == nil {
		return nil, fmt.Errorf("%w: game id %s", apperror.ErrGameNotFound, gameID)
	}

	gameHandle.mu.Lock()
	if !gameHandle.game.HasPlayer(playerID) {
		gameHandle.mu.Unlock()
		return nil, fmt.Errorf("%w: player %s has no seat in game %s", apperror.ErrGameNotFound, playerID, gameID)
	}

	if gameHandle.game.IsFinished() {
		snapshot := gameHandle.game.Snapshot()
		gameHandle.mu.Unlock()
		return snapshot, apperror.ErrGameAlreadyFinished
	}

	gameHandle.game.ForceExpire(entity.ReasonAbandoned)
	gameHandle.supervisor.Stop()
	snapshot := gameHandle.game.Snapshot()
	gameHandle.mu.Unlock()

	that.release(snapshot)

	that.logger.Info("game abandoned", "gameID", gameID, "playerID", playerID)

	return snapshot, nil
}

// expire is the timer callback path. It contends only on the per-game
// lock; a fire that loses against a move applying the last edge (or
// the other timer) observes a terminal game and does nothing.
func (that *Registry) expire(gameID, reason string) {
	gameHandle := that.lookup(gameID)
	if gameHandle == nil {
		return
	}

	gameHandle.mu.Lock()
	if gameHandle.game.IsFinished() {
		gameHandle.mu.Unlock()
		return
	}

	gameHandle.game.ForceExpire(reason)
	gameHandle.supervisor.Stop()
	snapshot := gameHandle.game.Snapshot()
	gameHandle.mu.Unlock()

	that.logger.Info("game expired", "gameID", gameID, "reason", reason)

	that.release(snapshot)

	that.notifierMutex.RLock()
	notifier := that.notifier
	that.notifierMutex.RUnlock()

	if notifier != nil {
		notifier.NotifyGameOver(snapshot)
	}
}

// release frees both identities for new games and schedules eviction
// of the terminal game after the grace period.
func (that *Registry) release(snapshot *entity.Game) {
	that.mu.Lock()
	for _, player := range snapshot.Players {
		if that.byPlayer[player.ID] == snapshot.ID {
			delete(that.byPlayer, player.ID)
		}
	}
	that.mu.Unlock()

	time.AfterFunc(that.opts.EvictionGrace, func() {
		that.evict(snapshot.ID)
	})
}

func (that *Registry) evict(gameID string) {
	that.mu.Lock()
	delete(that.games, gameID)
	that.mu.Unlock()

	that.logger.Info("game evicted", "gameID", gameID)
}

func (that *Registry) unbind(playerID, gameID string) {
	that.mu.Lock()
	if that.byPlayer[playerID] == gameID {
		delete(that.byPlayer, playerID)
	}
	that.mu.Unlock()
}

func (that *Registry) lookup(gameID string) *handle {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.games[gameID]
}
