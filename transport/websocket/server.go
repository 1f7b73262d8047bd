package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/session"
)

const (
	actionConnect  = "connect"
	actionNewGame  = "game:new"
	actionJoinGame = "game:join"
	actionMove     = "game:move"
	actionLeave    = "game:leave"
	actionGameOver = "game:over"
)

var errNotAuthenticated = errors.New("connection is not authenticated")

type gameManager interface {
	ConnectPlayer(ctx context.Context, playerID string) (*entity.Player, error)
	CreateGame(ctx context.Context, playerID string) (*entity.Game, error)
	JoinGame(ctx context.Context, gameID, playerID string) (*entity.Game, error)
	GetGame(ctx context.Context, gameID string) (*entity.Game, error)
	MakeTurn(ctx context.Context, playerID, gameID string, edge entity.Edge) (*session.MoveOutcome, error)
	LeaveGame(ctx context.Context, playerID, gameID string) (*entity.Game, error)
}

type tokenParser interface {
	ParseToken(token string) (string, error)
}

// client is one websocket connection. Gorilla connections do not allow
// concurrent writes, so every send goes through writeMutex.
type client struct {
	conn       *websocket.Conn
	writeMutex sync.Mutex

	// identity bound by a successful connect action; empty until then
	playerID string
}

func (that *client) send(message *Message) error {
	that.writeMutex.Lock()
	defer that.writeMutex.Unlock()

	if err := that.conn.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

type Server struct {
	logger  *slog.Logger
	manager gameManager
	auth    tokenParser

	upgrader websocket.Upgrader
	handlers map[string]func(ctx context.Context, cl *client, msg *Message) error

	connectionsMutex sync.RWMutex
	connections      map[string]*client
}

func New(logger *slog.Logger, manager gameManager, auth tokenParser) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		manager: manager,
		auth:    auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[string]*client),
	}

	server.handlers = map[string]func(context.Context, *client, *Message) error{
		actionConnect:  server.handleConnect,
		actionNewGame:  server.handleNewGame,
		actionJoinGame: server.handleJoinGame,
		actionMove:     server.handleMove,
		actionLeave:    server.handleLeave,
	}

	return server
}

// Start - starts the WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 0, // connections are long-lived; liveness is bounded by the game timers
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection", "remote", r.RemoteAddr)

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	cl := &client{conn: conn}

	defer func() {
		that.unregister(cl)
		_ = conn.Close()
	}()

	log.Info("WebSocket connection established")

	for {
		var message Message
		if err = conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("connection closed unexpectedly", "error", err)
			}
			return
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			_ = that.sendError(cl, message.Action, "unknown action")
			continue
		}

		if err = handler(ctx, cl, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// BroadcastGameOver pushes a terminal snapshot to both players of the
// game, used for transitions not driven by a client request (timers).
func (that *Server) BroadcastGameOver(game *entity.Game) {
	that.broadcast(actionGameOver, game, nil)
}

func (that *Server) broadcast(action string, game *entity.Game, extra func(payload *Payload)) {
	log := that.logger.With("method", "broadcast", "gameID", game.ID)

	for _, player := range game.Players {
		that.connectionsMutex.RLock()
		cl, ok := that.connections[player.ID]
		that.connectionsMutex.RUnlock()

		if !ok {
			log.Warn("connection not found for player", "playerID", player.ID)
			continue
		}

		payload := Payload{
			Player: player,
			Game:   game,
		}
		if extra != nil {
			extra(&payload)
		}

		if err := that.sendMessage(cl, action, payload); err != nil {
			log.Error("failed to send game update", "playerID", player.ID, "error", err)
		}
	}
}

func (that *Server) register(cl *client, playerID string) {
	that.connectionsMutex.Lock()
	cl.playerID = playerID
	that.connections[playerID] = cl
	that.connectionsMutex.Unlock()
}

// unregister drops the connection only; the seat stays taken and the
// idle timer bounds how long an absent opponent can stall the game.
func (that *Server) unregister(cl *client) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	if cl.playerID == "" {
		return
	}

	if current, ok := that.connections[cl.playerID]; ok && current == cl {
		delete(that.connections, cl.playerID)
		that.logger.Info("player disconnected", "playerID", cl.playerID)
	}
}

func (that *Server) sendMessage(cl *client, action string, payload Payload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return cl.send(&Message{
		Action:  action,
		Payload: payloadBytes,
	})
}

func (that *Server) sendError(cl *client, action, errorMsg string) error {
	if err := that.sendMessage(cl, action, Payload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}
