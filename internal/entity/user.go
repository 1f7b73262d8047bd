package entity

type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
