package app

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/eliote-geeks/vibestore-live/internal/domain"
)

// Outbound event types.
const (
	EvtConnectionEstablished = "connection-established"
	EvtRoomJoined            = "room-joined"
	EvtUserJoined            = "user-joined"
	EvtUserLeft              = "user-left"
	EvtBroadcastingStarted   = "broadcasting-started"
	EvtBroadcastingStopped   = "broadcasting-stopped"
	EvtUserSpeaking          = "user-speaking"
	EvtCompetitionUpdated    = "competition-updated"
	EvtParticipantChanged    = "participant-changed"
	EvtHeartbeatResponse     = "heartbeat-response"
	EvtError                 = "error"
)

type connectionEstablishedEvt struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connectionId"`
	Timestamp    time.Time     `json:"timestamp"`
}

type roomJoinedEvt struct {
	Type                string               `json:"type"`
	RoomID              domain.RoomID        `json:"roomId"`
	CompetitionID       string               `json:"competitionId"`
	Participants        []domain.Participant `json:"participants"`
	CurrentBroadcasters []domain.ConnID      `json:"currentBroadcasters"`
	CurrentPerformer    *domain.Performer    `json:"currentPerformer"`
	Timestamp           time.Time            `json:"timestamp"`
}

type userJoinedEvt struct {
	Type             string        `json:"type"`
	ConnectionID     domain.ConnID `json:"connectionId"`
	UserID           domain.UserID `json:"userId"`
	UserName         string        `json:"userName"`
	UserRole         domain.Role   `json:"userRole"`
	ParticipantCount int           `json:"participantCount"`
	Timestamp        time.Time     `json:"timestamp"`
}

type userLeftEvt struct {
	Type             string        `json:"type"`
	ConnectionID     domain.ConnID `json:"connectionId"`
	UserID           domain.UserID `json:"userId"`
	UserName         string        `json:"userName"`
	ParticipantCount int           `json:"participantCount"`
	Timestamp        time.Time     `json:"timestamp"`
}

type broadcastingStartedEvt struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connectionId"`
	UserID       domain.UserID `json:"userId"`
	UserName     string        `json:"userName"`
	UserRole     domain.Role   `json:"userRole"`
	IsPerformer  bool          `json:"isPerformer"`
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
}

type broadcastingStoppedEvt struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connectionId"`
	UserID       domain.UserID `json:"userId"`
	UserName     string        `json:"userName"`
	Timestamp    time.Time     `json:"timestamp"`
}

type webrtcOfferEvt struct {
	Type         string                    `json:"type"`
	FromUserID   domain.UserID             `json:"fromUserId"`
	FromUserName string                    `json:"fromUserName"`
	Offer        webrtc.SessionDescription `json:"offer"`
	Timestamp    time.Time                 `json:"timestamp"`
}

type webrtcAnswerEvt struct {
	Type         string                    `json:"type"`
	FromUserID   domain.UserID             `json:"fromUserId"`
	FromUserName string                    `json:"fromUserName"`
	Answer       webrtc.SessionDescription `json:"answer"`
	Timestamp    time.Time                 `json:"timestamp"`
}

type webrtcICEEvt struct {
	Type         string                  `json:"type"`
	FromUserID   domain.UserID           `json:"fromUserId"`
	FromUserName string                  `json:"fromUserName"`
	Candidate    webrtc.ICECandidateInit `json:"candidate"`
	Timestamp    time.Time               `json:"timestamp"`
}

type userSpeakingEvt struct {
	Type       string        `json:"type"`
	UserID     domain.UserID `json:"userId"`
	UserRole   string        `json:"userRole"`
	IsSpeaking bool          `json:"isSpeaking"`
	Timestamp  time.Time     `json:"timestamp"`
}

type competitionUpdatedEvt struct {
	Type       string          `json:"type"`
	UpdateType string          `json:"updateType"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
}

type participantChangedEvt struct {
	Type             string        `json:"type"`
	NewPerformerID   domain.UserID `json:"newPerformerId"`
	NewPerformerName string        `json:"newPerformerName"`
	Message          string        `json:"message"`
	Timestamp        time.Time     `json:"timestamp"`
}

type heartbeatResponseEvt struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type errorEvt struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
