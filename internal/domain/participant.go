// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"
	"time"
)

const MaxUserNameLen = 64

var (
	ErrUserNameEmpty   = errors.New("user name empty")
	ErrUserNameTooLong = errors.New("user name too long")
)

type UserID int64

// Participant is one live connection inside a room. The same UserID may hold
// several Participant entries, one per connection (multi-device presence).
type Participant struct {
	ConnID         ConnID    `json:"connectionId"`
	UserID         UserID    `json:"userId"`
	UserName       string    `json:"userName"`
	Role           Role      `json:"userRole"`
	JoinedAt       time.Time `json:"joinedAt"`
	IsBroadcasting bool      `json:"isBroadcasting"`
	IsListening    bool      `json:"isListening"`
}

// NewParticipant avoids raw literals in handlers and keeps construction obvious.
func NewParticipant(connID ConnID, userID UserID, userName string, role Role) (*Participant, error) {
	if userName == "" {
		return nil, ErrUserNameEmpty
	}
	if len(userName) > MaxUserNameLen {
		return nil, ErrUserNameTooLong
	}
	return &Participant{
		ConnID:      connID,
		UserID:      userID,
		UserName:    userName,
		Role:        role,
		JoinedAt:    time.Now(),
		IsListening: true,
	}, nil
}

// Broadcaster is a participant currently sending media into the room.
type Broadcaster struct {
	ConnID    ConnID    `json:"connectionId"`
	UserID    UserID    `json:"userId"`
	UserName  string    `json:"userName"`
	Role      Role      `json:"userRole"`
	StartedAt time.Time `json:"startedAt"`
}

// Performer is the single on-stage broadcaster of a competition room.
type Performer struct {
	ConnID    ConnID    `json:"connectionId"`
	UserID    UserID    `json:"userId"`
	UserName  string    `json:"userName"`
	StartedAt time.Time `json:"startedAt"`
}
