package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/repository"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type broadcasterStub struct {
	gameOver chan *entity.Game
}

func (that *broadcasterStub) BroadcastGameOver(game *entity.Game) {
	that.gameOver <- game
}

func newTestGameManager(t *testing.T, opts session.Options) (*GameManager, repository.PlayerRepository) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	players := repository.NewPlayerRepository(client)
	registry := session.NewRegistry(logger, opts)
	manager := NewGameManager(logger, registry, players)
	registry.SetNotifier(manager)

	return manager, players
}

func TestGameManager_ConnectPlayer(t *testing.T) {
	ctx := context.Background()
	manager, players := newTestGameManager(t, session.Options{BoardRows: 1, BoardCols: 1})

	t.Run("First contact creates an empty binding", func(t *testing.T) {
		player, err := manager.ConnectPlayer(ctx, "alice")

		require.NoError(t, err)
		assert.Equal(t, "alice", player.ID)
		assert.Empty(t, player.GameID)

		stored, err := players.GetByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, player, stored)
	})

	t.Run("Reconnect returns the stored binding", func(t *testing.T) {
		require.NoError(t, players.CreateOrUpdate(ctx, &entity.Player{ID: "bobby", Mark: entity.PlayerB, GameID: "game-7"}))

		player, err := manager.ConnectPlayer(ctx, "bobby")

		require.NoError(t, err)
		assert.Equal(t, "game-7", player.GameID)
		assert.Equal(t, entity.PlayerB, player.Mark)
	})
}

func TestGameManager_GameLifecycle(t *testing.T) {
	ctx := context.Background()
	manager, players := newTestGameManager(t, session.Options{BoardRows: 1, BoardCols: 1})

	// Given: a created and joined game
	created, err := manager.CreateGame(ctx, "alice")
	require.NoError(t, err)

	started, err := manager.JoinGame(ctx, created.ID, "bobby")
	require.NoError(t, err)
	require.True(t, started.IsOngoing())

	// Then: both bindings point at the game
	for _, playerID := range []string{"alice", "bobby"} {
		binding, err := players.GetByID(ctx, playerID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, binding.GameID, "binding for %s", playerID)
	}

	// When: the game is played to the end
	moves := []struct {
		player string
		edge   entity.Edge
	}{
		{"alice", entity.Edge{Row: 0, Col: 0, Horizontal: true}},
		{"bobby", entity.Edge{Row: 1, Col: 0, Horizontal: true}},
		{"alice", entity.Edge{Row: 0, Col: 0, Horizontal: false}},
		{"bobby", entity.Edge{Row: 0, Col: 1, Horizontal: false}},
	}

	var outcome *session.MoveOutcome
	for _, move := range moves {
		outcome, err = manager.MakeTurn(ctx, move.player, created.ID, move.edge)
		require.NoError(t, err)
	}

	// Then: the final move reports the scored result
	require.True(t, outcome.Game.IsFinished())
	assert.Equal(t, entity.PlayerB, outcome.Game.Winner)
	assert.Equal(t, entity.ReasonScored, outcome.Game.Reason)

	// And: both bindings are cleared for the next game
	for _, playerID := range []string{"alice", "bobby"} {
		binding, err := players.GetByID(ctx, playerID)
		require.NoError(t, err)
		assert.Empty(t, binding.GameID, "binding for %s", playerID)
	}
}

func TestGameManager_LeaveGame(t *testing.T) {
	ctx := context.Background()
	manager, players := newTestGameManager(t, session.Options{BoardRows: 1, BoardCols: 1})

	created, err := manager.CreateGame(ctx, "alice")
	require.NoError(t, err)

	_, err = manager.JoinGame(ctx, created.ID, "bobby")
	require.NoError(t, err)

	// When: alice leaves mid-game
	game, err := manager.LeaveGame(ctx, "alice", created.ID)

	// Then: the game is abandoned and both bindings are cleared
	require.NoError(t, err)
	assert.True(t, game.IsFinished())
	assert.Equal(t, entity.ReasonAbandoned, game.Reason)

	for _, playerID := range []string{"alice", "bobby"} {
		binding, err := players.GetByID(ctx, playerID)
		require.NoError(t, err)
		assert.Empty(t, binding.GameID, "binding for %s", playerID)
	}
}

func TestGameManager_NotifyGameOver(t *testing.T) {
	ctx := context.Background()
	manager, players := newTestGameManager(t, session.Options{
		IdleTimeout: 60 * time.Millisecond,
		MaxGameTime: time.Minute,
		BoardRows:   1,
		BoardCols:   1,
	})

	broadcaster := &broadcasterStub{gameOver: make(chan *entity.Game, 1)}
	manager.SetBroadcaster(broadcaster)

	created, err := manager.CreateGame(ctx, "alice")
	require.NoError(t, err)

	_, err = manager.JoinGame(ctx, created.ID, "bobby")
	require.NoError(t, err)

	// When: the idle timer expires the game
	select {
	case game := <-broadcaster.gameOver:
		// Then: the terminal snapshot reaches the transport
		assert.Equal(t, created.ID, game.ID)
		assert.Equal(t, entity.ReasonIdleTimeout, game.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("game over was never broadcast")
	}

	// And: both bindings are cleared
	for _, playerID := range []string{"alice", "bobby"} {
		binding, err := players.GetByID(ctx, playerID)
		require.NoError(t, err)
		assert.Empty(t, binding.GameID, "binding for %s", playerID)
	}
}
