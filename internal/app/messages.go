package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pion/webrtc/v4"

	"github.com/eliote-geeks/vibestore-live/internal/domain"
)

// Inbound message types.
const (
	MsgJoinRoom          = "join-room"
	MsgLeaveRoom         = "leave-room"
	MsgStartBroadcasting = "start-broadcasting"
	MsgStopBroadcasting  = "stop-broadcasting"
	MsgWebRTCOffer       = "webrtc-offer"
	MsgWebRTCAnswer      = "webrtc-answer"
	MsgWebRTCICE         = "webrtc-ice-candidate"
	MsgUserSpeaking      = "user-speaking"
	MsgCompetitionUpdate = "competition-update"
	MsgParticipantChange = "participant-change"
	MsgHeartbeat         = "heartbeat"
)

var (
	ErrMissingType             = errors.New("missing message type")
	ErrEmptySessionDescription = errors.New("empty session description")

	validate = validator.New()
)

// Envelope is the tagged outer shape of every inbound message.
type Envelope struct {
	Type string `json:"type"`
}

// ParseEnvelope rejects unparseable payloads and payloads without a type.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return env, ErrMissingType
	}
	return env, nil
}

type joinRoomMsg struct {
	RoomID   string        `json:"roomId" validate:"required"`
	UserID   domain.UserID `json:"userId" validate:"required"`
	UserName string        `json:"userName" validate:"required"`
	UserRole string        `json:"userRole"`
}

type startBroadcastingMsg struct {
	UserID   domain.UserID `json:"userId" validate:"required"`
	UserName string        `json:"userName"`
	UserRole string        `json:"userRole" validate:"required"`
}

type stopBroadcastingMsg struct {
	UserID domain.UserID `json:"userId"`
}

type webrtcOfferMsg struct {
	TargetUserID domain.UserID             `json:"targetUserId" validate:"required"`
	Offer        webrtc.SessionDescription `json:"offer"`
}

type webrtcAnswerMsg struct {
	TargetUserID domain.UserID             `json:"targetUserId" validate:"required"`
	Answer       webrtc.SessionDescription `json:"answer"`
}

// Offer/answer payloads are strictly required, and the SDP content is what
// makes them usable, so the parser checks it directly: struct-level required
// tags do not see inside the pion types.

func decodeOfferMsg(data []byte) (*webrtcOfferMsg, error) {
	msg, err := decodeMsg[webrtcOfferMsg](data)
	if err != nil {
		return nil, err
	}
	if msg.Offer.SDP == "" {
		return nil, ErrEmptySessionDescription
	}
	return msg, nil
}

func decodeAnswerMsg(data []byte) (*webrtcAnswerMsg, error) {
	msg, err := decodeMsg[webrtcAnswerMsg](data)
	if err != nil {
		return nil, err
	}
	if msg.Answer.SDP == "" {
		return nil, ErrEmptySessionDescription
	}
	return msg, nil
}

// ICE relay is best-effort: no validate tags, missing fields are dropped by
// the handler instead of producing an error reply.
type webrtcICEMsg struct {
	TargetUserID domain.UserID           `json:"targetUserId"`
	Candidate    webrtc.ICECandidateInit `json:"candidate"`
}

type userSpeakingMsg struct {
	UserID     domain.UserID `json:"userId"`
	UserRole   string        `json:"userRole"`
	IsSpeaking bool          `json:"isSpeaking"`
}

type competitionUpdateMsg struct {
	UpdateType string          `json:"updateType" validate:"required"`
	Data       json.RawMessage `json:"data"`
}

type participantChangeMsg struct {
	NewPerformerID   domain.UserID `json:"newPerformerId" validate:"required"`
	NewPerformerName string        `json:"newPerformerName" validate:"required"`
}

// decodeMsg pushes the missing-field checks into the parse boundary: handlers
// only ever see a structurally valid message.
func decodeMsg[T any](data []byte) (*T, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := validate.Struct(&msg); err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}
	return &msg, nil
}
