package websocket

import (
	"context"
	"encoding/json"
	"fmt"
)

func (that *Server) handleConnect(ctx context.Context, cl *client, msg *Message) error {
	log := that.logger.With("method", "handleConnect")

	var payloadReq Payload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payloadReq.Token == "" {
		return that.sendError(cl, msg.Action, "token is required")
	}

	playerID, err := that.auth.ParseToken(payloadReq.Token)
	if err != nil {
		log.Error("failed to parse token", "error", err)
		return that.sendError(cl, msg.Action, "invalid token")
	}

	player, err := that.manager.ConnectPlayer(ctx, playerID)
	if err != nil {
		log.Error("failed to connect player", "playerID", playerID, "error", err)
		return that.sendError(cl, msg.Action, "failed to connect player")
	}

	that.register(cl, player.ID)

	payloadResp := Payload{Player: player}

	// a reconnecting player gets the current snapshot of its game
	if player.GameID != "" {
		game, gameErr := that.manager.GetGame(ctx, player.GameID)
		if gameErr == nil {
			payloadResp.Game = game
		}
	}

	if err = that.sendMessage(cl, msg.Action, payloadResp); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("player connected", "playerID", player.ID)

	return nil
}

func (that *Server) handleNewGame(ctx context.Context, cl *client, msg *Message) error {
	log := that.logger.With("method", "handleNewGame")

	playerID, err := that.requireIdentity(cl, msg.Action)
	if err != nil {
		return err
	}

	game, err := that.manager.CreateGame(ctx, playerID)
	if err != nil {
		log.Error("failed to create game", "playerID", playerID, "error", err)
		return that.sendError(cl, msg.Action, err.Error())
	}

	log.Info("game created", "gameID", game.ID, "playerID", playerID)

	that.broadcast(msg.Action, game, nil)

	return nil
}

func (that *Server) handleJoinGame(ctx context.Context, cl *client, msg *Message) error {
	log := that.logger.With("method", "handleJoinGame")

	playerID, err := that.requireIdentity(cl, msg.Action)
	if err != nil {
		return err
	}

	var payloadReq Payload
	if err = json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payloadReq.Game == nil || payloadReq.Game.ID == "" {
		return that.sendError(cl, msg.Action, "game id is required")
	}

	game, err := that.manager.JoinGame(ctx, payloadReq.Game.ID, playerID)
	if err != nil {
		log.Error("failed to join game", "gameID", payloadReq.Game.ID, "playerID", playerID, "error", err)
		return that.sendError(cl, msg.Action, err.Error())
	}

	log.Info("player joined game", "gameID", game.ID, "playerID", playerID)

	that.broadcast(msg.Action, game, nil)

	return nil
}

func (that *Server) handleMove(ctx context.Context, cl *client, msg *Message) error {
	log := that.logger.With("method", "handleMove")

	playerID, err := that.requireIdentity(cl, msg.Action)
	if err != nil {
		return err
	}

	var payloadReq Payload
	if err = json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payloadReq.Game == nil || payloadReq.Game.ID == "" {
		return that.sendError(cl, msg.Action, "game id is required")
	}

	if payloadReq.Edge == nil {
		return that.sendError(cl, msg.Action, "edge is required")
	}

	outcome, err := that.manager.MakeTurn(ctx, playerID, payloadReq.Game.ID, *payloadReq.Edge)
	if err != nil {
		log.Error("failed to make turn", "gameID", payloadReq.Game.ID, "playerID", playerID, "error", err)
		return that.sendError(cl, msg.Action, err.Error())
	}

	action := msg.Action
	if outcome.Game.IsFinished() {
		action = actionGameOver
	}

	that.broadcast(action, outcome.Game, func(payload *Payload) {
		payload.Completed = outcome.CompletedBoxes
		payload.KeepsTurn = outcome.KeepsTurn
	})

	log.Info("player made a move", "gameID", outcome.Game.ID, "playerID", playerID)

	return nil
}

func (that *Server) handleLeave(ctx context.Context, cl *client, msg *Message) error {
	log := that.logger.With("method", "handleLeave")

	playerID, err := that.requireIdentity(cl, msg.Action)
	if err != nil {
		return err
	}

	var payloadReq Payload
	if err = json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payloadReq.Game == nil || payloadReq.Game.ID == "" {
		return that.sendError(cl, msg.Action, "game id is required")
	}

	game, err := that.manager.LeaveGame(ctx, playerID, payloadReq.Game.ID)
	if err != nil {
		log.Error("failed to leave game", "gameID", payloadReq.Game.ID, "playerID", playerID, "error", err)
		return that.sendError(cl, msg.Action, err.Error())
	}

	log.Info("player left game", "gameID", game.ID, "playerID", playerID)

	that.broadcast(actionGameOver, game, nil)

	return nil
}

func (that *Server) requireIdentity(cl *client, action string) (string, error) {
	that.connectionsMutex.RLock()
	playerID := cl.playerID
	that.connectionsMutex.RUnlock()

	if playerID == "" {
		if err := that.sendError(cl, action, "authentication required"); err != nil {
			return "", err
		}
		return "", errNotAuthenticated
	}

	return playerID, nil
}
