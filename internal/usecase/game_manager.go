package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/repository"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/session"
)

// Broadcaster pushes a terminal game to both players; the websocket
// server provides it once it is up.
type Broadcaster interface {
	BroadcastGameOver(game *entity.Game)
}

type sessionRegistry interface {
	CreateGame(playerID string) (*entity.Game, error)
	JoinGame(gameID, playerID string) (*entity.Game, error)
	GetGame(gameID string) (*entity.Game, error)
	DispatchMove(playerID, gameID string, edge entity.Edge) (*session.MoveOutcome, error)
	Leave(playerID, gameID string) (*entity.Game, error)
}

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	DeleteByID(ctx context.Context, id string) error
}

// GameManager is the façade the transports talk to: it pairs the
// in-memory session registry with the redis-backed player bindings.
type GameManager struct {
	logger   *slog.Logger
	registry sessionRegistry
	players  playerRepo

	broadcasterMutex sync.RWMutex
	broadcaster      Broadcaster
}

func NewGameManager(logger *slog.Logger, registry sessionRegistry, players playerRepo) *GameManager {
	return &GameManager{
		logger:   logger.With("component", "game-manager"),
		registry: registry,
		players:  players,
	}
}

func (that *GameManager) SetBroadcaster(broadcaster Broadcaster) {
	that.broadcasterMutex.Lock()
	that.broadcaster = broadcaster
	that.broadcasterMutex.Unlock()
}

// ConnectPlayer resolves an authenticated identity to its player
// binding, creating one on first contact.
func (that *GameManager) ConnectPlayer(ctx context.Context, playerID string) (*entity.Player, error) {
	player, err := that.players.GetByID(ctx, playerID)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		player = &entity.Player{ID: playerID}
		if err = that.players.CreateOrUpdate(ctx, player); err != nil {
			return nil, fmt.Errorf("failed to create player: %w", err)
		}

		return player, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	return player, nil
}

func (that *GameManager) CreateGame(ctx context.Context, playerID string) (*entity.Game, error) {
	game, err := that.registry.CreateGame(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.bindPlayers(ctx, game)

	return game, nil
}

func (that *GameManager) JoinGame(ctx context.Context, gameID, playerID string) (*entity.Game, error) {
	game, err := that.registry.JoinGame(gameID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to join game: %w", err)
	}

	that.bindPlayers(ctx, game)

	return game, nil
}

func (that *GameManager) GetGame(_ context.Context, gameID string) (*entity.Game, error) {
	game, err := that.registry.GetGame(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

func (that *GameManager) MakeTurn(ctx context.Context, playerID, gameID string, edge entity.Edge) (*session.MoveOutcome, error) {
	outcome, err := that.registry.DispatchMove(playerID, gameID, edge)
	if err != nil {
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	if outcome.Game.IsFinished() {
		that.unbindPlayers(ctx, outcome.Game)
	}

	return outcome, nil
}

func (that *GameManager) LeaveGame(ctx context.Context, playerID, gameID string) (*entity.Game, error) {
	game, err := that.registry.Leave(playerID, gameID)
	if err != nil {
		return game, fmt.Errorf("failed to leave game: %w", err)
	}

	that.unbindPlayers(ctx, game)

	return game, nil
}

// NotifyGameOver is the registry's callback for asynchronous expiry:
// unbind both identities and forward the snapshot to the transport.
func (that *GameManager) NotifyGameOver(game *entity.Game) {
	that.unbindPlayers(context.Background(), game)

	that.broadcasterMutex.RLock()
	broadcaster := that.broadcaster
	that.broadcasterMutex.RUnlock()

	if broadcaster != nil {
		broadcaster.BroadcastGameOver(game)
	}
}

func (that *GameManager) bindPlayers(ctx context.Context, game *entity.Game) {
	log := that.logger.With("method", "bindPlayers", "gameID", game.ID)

	for _, player := range game.Players {
		if err := that.players.CreateOrUpdate(ctx, player); err != nil {
			log.Error("failed to update player binding", "playerID", player.ID, "error", err)
		}
	}
}

func (that *GameManager) unbindPlayers(ctx context.Context, game *entity.Game) {
	log := that.logger.With("method", "unbindPlayers", "gameID", game.ID)

	for _, player := range game.Players {
		player.Mark = ""
		player.GameID = ""

		if err := that.players.CreateOrUpdate(ctx, player); err != nil {
			log.Error("failed to clear player binding", "playerID", player.ID, "error", err)
		}
	}
}
