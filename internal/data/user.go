package data

import "github.com/google/uuid"

// Identity is what a session is bound to.
type Identity interface {
	UserID() string
	UserName() string
}

type User struct {
	ID             string `json:"id" bson:"_id"`
	Username       string `json:"username" bson:"username"`
	PasswordDigest string `json:"-" bson:"password_hash"`
	Tasks          []Task `json:"tasks" bson:"tasks"`
}

// NewUser returns a user with a fresh id and an empty task list.
func NewUser(username, passwordDigest string) *User {
	return &User{
		ID:             uuid.NewString(),
		Username:       username,
		PasswordDigest: passwordDigest,
		Tasks:          []Task{},
	}
}

func (u *User) UserID() string   { return u.ID }
func (u *User) UserName() string { return u.Username }
