package apperror

import "errors"

var (
	// input/validation errors: rejected without mutating any state.
	ErrInvalidEdge              = errors.New("edge is out of range")
	ErrEdgeAlreadyDrawn         = errors.New("edge is already drawn")
	ErrNotYourTurn              = errors.New("it's not your turn")
	ErrInvalidCredentialsFormat = errors.New("username and password must be 4-9 alphanumeric characters")

	// lifecycle errors: stale or duplicate requests, not bugs.
	ErrGameAlreadyFinished = errors.New("game is already finished")
	ErrGameIsNotStarted    = errors.New("game is not started")
	ErrGameIsFull          = errors.New("game already has two players")
	ErrAlreadyInGame       = errors.New("player is already in an active game")
	ErrGameNotFound        = errors.New("game not found")

	// auth errors.
	ErrUserAlreadyExists  = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
