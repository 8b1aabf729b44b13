package model

import "time"

const JoinedDateLayout = "2006-01-02"

type User struct {
	Username   string `json:"username"`
	Password   string `json:"password,omitempty"` // bcrypt hash; cleared before leaving the service layer
	Email      string `json:"email"`
	JoinedDate string `json:"joined_date"`
}

func NewUser(username, hashedPassword, email string, now time.Time) User {
	return User{
		Username:   username,
		Password:   hashedPassword,
		Email:      email,
		JoinedDate: now.Format(JoinedDateLayout),
	}
}

// Public returns a copy safe to hand to clients.
func (u User) Public() User {
	u.Password = ""
	return u
}
