package repository_test

import (
	"testing"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/repository"
	"github.com/rocketscienceinc/dotsandboxes-backend/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerRepository(t *testing.T) {
	ctx, testSuite := suite.New(t)

	players := repository.NewPlayerRepository(testSuite.Storage)

	t.Run("GetByID returns ErrPlayerNotFound for an unknown player", func(t *testing.T) {
		_, err := players.GetByID(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrPlayerNotFound)
	})

	t.Run("CreateOrUpdate then GetByID round trip", func(t *testing.T) {
		// Given: a player bound to a game
		player := &entity.Player{ID: "alice", Mark: entity.PlayerA, GameID: "game-1"}

		// When: the binding is stored and read back
		require.NoError(t, players.CreateOrUpdate(ctx, player))

		stored, err := players.GetByID(ctx, "alice")

		// Then: the binding survives intact
		require.NoError(t, err)
		assert.Equal(t, player, stored)
	})

	t.Run("CreateOrUpdate overwrites an existing binding", func(t *testing.T) {
		require.NoError(t, players.CreateOrUpdate(ctx, &entity.Player{ID: "bobby", Mark: entity.PlayerB, GameID: "game-1"}))

		// When: the same player is rebound to a new game
		require.NoError(t, players.CreateOrUpdate(ctx, &entity.Player{ID: "bobby", GameID: ""}))

		stored, err := players.GetByID(ctx, "bobby")
		require.NoError(t, err)
		assert.Empty(t, stored.GameID)
		assert.Empty(t, stored.Mark)
	})

	t.Run("DeleteByID removes the binding", func(t *testing.T) {
		require.NoError(t, players.CreateOrUpdate(ctx, &entity.Player{ID: "carol"}))

		require.NoError(t, players.DeleteByID(ctx, "carol"))

		_, err := players.GetByID(ctx, "carol")
		assert.ErrorIs(t, err, repository.ErrPlayerNotFound)
	})
}
