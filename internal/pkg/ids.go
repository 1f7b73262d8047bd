package pkg

import "github.com/google/uuid"

func GenerateGameID() string {
	return uuid.NewString()
}
