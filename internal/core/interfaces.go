package core

import "github.com/eliote-geeks/vibestore-live/internal/domain"

// Frame is a raw outbound payload (JSON-encoded event).
type Frame []byte

// SignalConnection abstracts the messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Member binds a participant's meta to its transport endpoint.
// This is what a room stores and fans out to.
type Member struct {
	Info *domain.Participant
	Conn SignalConnection
}

// Recipient is a snapshot entry for fan-out: never iterate the live member
// set while sending.
type Recipient struct {
	ConnID domain.ConnID
	UserID domain.UserID
	Conn   SignalConnection
}

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	MemberCount int           `json:"memberCount"`
}

// RoomStats is the reporting view of one room's presence state.
type RoomStats struct {
	RoomID           string `json:"room_id"`
	TotalConnections int    `json:"total_connections"`
	Broadcasters     int    `json:"broadcasters"`
	Listeners        int    `json:"listeners"`
}
