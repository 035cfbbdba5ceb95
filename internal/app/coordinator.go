// Package app holds the broadcast coordinator: the message dispatcher and the
// room/connection state it mutates. Transport adapters feed it raw frames and
// lifecycle notifications; everything else happens here.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eliote-geeks/vibestore-live/internal/core"
	"github.com/eliote-geeks/vibestore-live/internal/domain"
)

// Coordinator routes inbound messages to handlers and owns the live room and
// connection state. All state is volatile: room state is a presence cache,
// not a durable record.
type Coordinator struct {
	Registry *core.Registry
	Rooms    *core.Directory
	Policy   Authorizer

	// AllowMultiConn keeps the historical behavior of letting one user hold
	// several simultaneous connections in a room (multi-device presence).
	AllowMultiConn bool

	// JoinLimiter, when set, throttles join attempts per user.
	JoinLimiter *JoinRateLimiter
}

func NewCoordinator(reg *core.Registry, rooms *core.Directory, policy Authorizer, allowMultiConn bool) *Coordinator {
	return &Coordinator{
		Registry:       reg,
		Rooms:          rooms,
		Policy:         policy,
		AllowMultiConn: allowMultiConn,
	}
}

// Connect registers a new transport connection and acknowledges it.
func (c *Coordinator) Connect(connID domain.ConnID, conn core.SignalConnection) {
	c.Registry.Add(connID, conn)
	c.reply(connID, conn, connectionEstablishedEvt{
		Type:         EvtConnectionEstablished,
		ConnectionID: connID,
		Timestamp:    time.Now(),
	})
}

// Disconnect tears a connection out of every structure. Idempotent: a double
// close, or a close before any join, is a no-op.
func (c *Coordinator) Disconnect(connID domain.ConnID) {
	if roomID, ok := c.Registry.RoomOf(connID); ok {
		c.removeFromRoom(connID, roomID)
	}
	c.Registry.Remove(connID)
}

// HandleMessage is the dispatch boundary. Any handler failure, panics
// included, degrades to an error reply; the connection and room state stay as
// they were before the failed message.
func (c *Coordinator) HandleMessage(connID domain.ConnID, data []byte) {
	conn, ok := c.Registry.Conn(connID)
	if !ok {
		log.Warn().Str("module", "app.coordinator").Str("conn", string(connID)).Msg("message from unregistered connection")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "app.coordinator").Str("conn", string(connID)).
				Interface("panic", r).Msg("handler panic")
			c.replyError(connID, conn, "Erreur interne du serveur")
		}
	}()

	env, err := ParseEnvelope(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("conn", string(connID)).Msg("bad message")
		c.replyError(connID, conn, "Format de message invalide")
		return
	}

	switch env.Type {
	case MsgJoinRoom:
		c.handleJoinRoom(connID, conn, data)
	case MsgLeaveRoom:
		c.handleLeaveRoom(connID)
	case MsgStartBroadcasting:
		c.handleStartBroadcasting(connID, conn, data)
	case MsgStopBroadcasting:
		c.handleStopBroadcasting(connID, data)
	case MsgWebRTCOffer:
		c.handleWebRTCOffer(connID, conn, data)
	case MsgWebRTCAnswer:
		c.handleWebRTCAnswer(connID, conn, data)
	case MsgWebRTCICE:
		c.handleWebRTCICE(connID, data)
	case MsgUserSpeaking:
		c.handleUserSpeaking(connID, data)
	case MsgCompetitionUpdate:
		c.handleCompetitionUpdate(connID, conn, data)
	case MsgParticipantChange:
		c.handleParticipantChange(connID, conn, data)
	case MsgHeartbeat:
		c.reply(connID, conn, heartbeatResponseEvt{Type: EvtHeartbeatResponse, Timestamp: time.Now()})
	default:
		c.replyError(connID, conn, fmt.Sprintf("Type de message non supporté: %s", env.Type))
	}
}

func (c *Coordinator) handleJoinRoom(connID domain.ConnID, conn core.SignalConnection, data []byte) {
	msg, err := decodeMsg[joinRoomMsg](data)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("conn", string(connID)).Msg("bad join-room")
		c.replyError(connID, conn, "Identifiant de salle manquant ou invalide")
		return
	}

	if c.JoinLimiter != nil && !c.JoinLimiter.Allow(msg.UserID) {
		c.replyError(connID, conn, "Trop de tentatives de connexion, réessayez dans un instant")
		return
	}

	participant, err := domain.NewParticipant(connID, msg.UserID, msg.UserName, domain.Role(msg.UserRole))
	if err != nil {
		c.replyError(connID, conn, "Nom d'utilisateur invalide")
		return
	}

	// A connection holds at most one room; joining another moves it, with the
	// old room getting its user-left and empty-room teardown first.
	if oldRoomID, ok := c.Registry.RoomOf(connID); ok {
		c.removeFromRoom(connID, oldRoomID)
	}

	roomID := domain.RoomID(msg.RoomID)
	var room *core.Room
	var addErr error
	for {
		room = c.Rooms.GetOrCreate(roomID)
		addErr = room.AddMember(&core.Member{Info: participant, Conn: conn}, c.AllowMultiConn)
		if !errors.Is(addErr, core.ErrRoomClosed) {
			break
		}
		// Lost the race with the last member's cleanup; the directory hands
		// out a fresh room on the next resolve.
	}
	if addErr != nil {
		if errors.Is(addErr, core.ErrUserAlreadyJoined) {
			c.replyError(connID, conn, "Vous êtes déjà connecté à cette salle")
		} else {
			c.replyError(connID, conn, "Impossible de rejoindre la salle")
		}
		c.Rooms.RemoveIfEmpty(roomID)
		return
	}
	c.Registry.SetRoom(connID, roomID)

	log.Info().Str("module", "app.coordinator").Str("room", string(roomID)).
		Str("conn", string(connID)).Int64("user", int64(msg.UserID)).
		Str("role", msg.UserRole).Msg("joined room")

	c.broadcastRoom(room, userJoinedEvt{
		Type:             EvtUserJoined,
		ConnectionID:     connID,
		UserID:           participant.UserID,
		UserName:         participant.UserName,
		UserRole:         participant.Role,
		ParticipantCount: room.MemberCount(),
		Timestamp:        time.Now(),
	}, connID)

	c.reply(connID, conn, roomJoinedEvt{
		Type:                EvtRoomJoined,
		RoomID:              roomID,
		CompetitionID:       roomID.CompetitionID(),
		Participants:        room.ParticipantsSnapshot(),
		CurrentBroadcasters: room.BroadcasterConnIDs(),
		CurrentPerformer:    room.Performer(),
		Timestamp:           time.Now(),
	})
}

// handleLeaveRoom runs the disconnect cleanup without closing the transport.
func (c *Coordinator) handleLeaveRoom(connID domain.ConnID) {
	roomID, ok := c.Registry.RoomOf(connID)
	if !ok {
		return
	}
	c.removeFromRoom(connID, roomID)
}

func (c *Coordinator) handleStartBroadcasting(connID domain.ConnID, conn core.SignalConnection, data []byte) {
	msg, err := decodeMsg[startBroadcastingMsg](data)
	if err != nil {
		c.replyError(connID, conn, "Informations de diffusion manquantes")
		return
	}

	roomID, ok := c.Registry.RoomOf(connID)
	if !ok {
		c.replyError(connID, conn, "Vous devez d'abord rejoindre une salle")
		return
	}

	role := domain.Role(msg.UserRole)
	if !c.Policy.CanBroadcast(role) {
		c.replyError(connID, conn, fmt.Sprintf("Votre rôle (%s) ne permet pas de diffuser", msg.UserRole))
		return
	}

	room, ok := c.Rooms.Get(roomID)
	if !ok {
		c.replyError(connID, conn, "Vous devez d'abord rejoindre une salle")
		return
	}

	asPerformer := role == domain.RoleCurrentParticipant
	b, err := room.StartBroadcast(connID, role, asPerformer)
	if err != nil {
		c.replyError(connID, conn, "Vous devez d'abord rejoindre une salle")
		return
	}

	log.Info().Str("module", "app.coordinator").Str("room", string(roomID)).
		Str("conn", string(connID)).Int64("user", int64(b.UserID)).
		Bool("performer", asPerformer).Msg("broadcasting started")

	c.broadcastRoom(room, broadcastingStartedEvt{
		Type:         EvtBroadcastingStarted,
		ConnectionID: connID,
		UserID:       b.UserID,
		UserName:     b.UserName,
		UserRole:     b.Role,
		IsPerformer:  asPerformer,
		Message:      broadcastAnnouncement(role, b.UserName),
		Timestamp:    time.Now(),
	})
}

func (c *Coordinator) handleStopBroadcasting(connID domain.ConnID, data []byte) {
	// Payload is informational only; the sender's connection decides whose
	// broadcast stops.
	if _, err := decodeMsg[stopBroadcastingMsg](data); err != nil {
		return
	}

	roomID, ok := c.Registry.RoomOf(connID)
	if !ok {
		return
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	c.stopBroadcast(room, connID)
}

// stopBroadcast is shared between the explicit stop message, performer
// preemption, and nothing else: disconnect cleanup drops broadcaster state
// without a broadcasting-stopped event of its own.
func (c *Coordinator) stopBroadcast(room *core.Room, connID domain.ConnID) {
	b, wasPerformer := room.StopBroadcast(connID)
	if b == nil {
		return
	}
	log.Info().Str("module", "app.coordinator").Str("room", string(room.ID())).
		Str("conn", string(connID)).Bool("was_performer", wasPerformer).Msg("broadcasting stopped")
	c.broadcastRoom(room, broadcastingStoppedEvt{
		Type:         EvtBroadcastingStopped,
		ConnectionID: connID,
		UserID:       b.UserID,
		UserName:     b.UserName,
		Timestamp:    time.Now(),
	})
}

func (c *Coordinator) handleWebRTCOffer(connID domain.ConnID, conn core.SignalConnection, data []byte) {
	msg, err := decodeOfferMsg(data)
	if err != nil {
		c.replyError(connID, conn, "Offre WebRTC incomplète")
		return
	}
	from, room := c.relayContext(connID)
	if room == nil {
		return
	}
	c.relayToUser(room, msg.TargetUserID, webrtcOfferEvt{
		Type:         MsgWebRTCOffer,
		FromUserID:   from.UserID,
		FromUserName: from.UserName,
		Offer:        msg.Offer,
		Timestamp:    time.Now(),
	})
}

func (c *Coordinator) handleWebRTCAnswer(connID domain.ConnID, conn core.SignalConnection, data []byte) {
	msg, err := decodeAnswerMsg(data)
	if err != nil {
		c.replyError(connID, conn, "Réponse WebRTC incomplète")
		return
	}
	from, room := c.relayContext(connID)
	if room == nil {
		return
	}
	c.relayToUser(room, msg.TargetUserID, webrtcAnswerEvt{
		Type:         MsgWebRTCAnswer,
		FromUserID:   from.UserID,
		FromUserName: from.UserName,
		Answer:       msg.Answer,
		Timestamp:    time.Now(),
	})
}

// ICE candidates arrive in bursts and loss is tolerable, so this relay is
// deliberately best-effort: malformed or unroutable candidates are dropped
// with a debug log, never an error reply.
func (c *Coordinator) handleWebRTCICE(connID domain.ConnID, data []byte) {
	msg, err := decodeMsg[webrtcICEMsg](data)
	if err != nil || msg.TargetUserID == 0 || msg.Candidate.Candidate == "" {
		log.Debug().Str("module", "app.coordinator").Str("conn", string(connID)).Msg("dropping incomplete ice candidate")
		return
	}
	from, room := c.relayContext(connID)
	if room == nil {
		return
	}
	c.relayToUser(room, msg.TargetUserID, webrtcICEEvt{
		Type:         MsgWebRTCICE,
		FromUserID:   from.UserID,
		FromUserName: from.UserName,
		Candidate:    msg.Candidate,
		Timestamp:    time.Now(),
	})
}

// relayContext resolves the sender's room and participant info for signaling.
// Senders outside a room get nothing relayed, silently.
func (c *Coordinator) relayContext(connID domain.ConnID) (*domain.Participant, *core.Room) {
	roomID, ok := c.Registry.RoomOf(connID)
	if !ok {
		return nil, nil
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return nil, nil
	}
	from, ok := room.MemberInfo(connID)
	if !ok {
		return nil, nil
	}
	return from, room
}

// relayToUser forwards a signaling event to every connection the target user
// holds in the room. Unknown targets are dropped without an error: signaling
// is a best-effort channel, not guaranteed delivery.
func (c *Coordinator) relayToUser(room *core.Room, target domain.UserID, v any) {
	recipients := room.RecipientsOfUser(target)
	if len(recipients) == 0 {
		log.Debug().Str("module", "app.coordinator").Str("room", string(room.ID())).
			Int64("target", int64(target)).Msg("signaling target not in room, dropping")
		return
	}
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("marshal relay event")
		return
	}
	for _, rcpt := range recipients {
		if err := rcpt.Conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.coordinator").
				Str("conn", string(rcpt.ConnID)).Msg("relay send failed")
		}
	}
}

func (c *Coordinator) handleUserSpeaking(connID domain.ConnID, data []byte) {
	msg, err := decodeMsg[userSpeakingMsg](data)
	if err != nil {
		return
	}
	roomID, ok := c.Registry.RoomOf(connID)
	if !ok {
		return
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	c.broadcastRoom(room, userSpeakingEvt{
		Type:       EvtUserSpeaking,
		UserID:     msg.UserID,
		UserRole:   msg.UserRole,
		IsSpeaking: msg.IsSpeaking,
		Timestamp:  time.Now(),
	}, connID)
}

func (c *Coordinator) handleCompetitionUpdate(connID domain.ConnID, conn core.SignalConnection, data []byte) {
	msg, err := decodeMsg[competitionUpdateMsg](data)
	if err != nil {
		c.replyError(connID, conn, "Type de mise à jour manquant")
		return
	}
	roomID, ok := c.Registry.RoomOf(connID)
	if !ok {
		return
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	c.broadcastRoom(room, competitionUpdatedEvt{
		Type:       EvtCompetitionUpdated,
		UpdateType: msg.UpdateType,
		Data:       msg.Data,
		Timestamp:  time.Now(),
	})
}

func (c *Coordinator) handleParticipantChange(connID domain.ConnID, conn core.SignalConnection, data []byte) {
	msg, err := decodeMsg[participantChangeMsg](data)
	if err != nil {
		c.replyError(connID, conn, "Informations du nouveau participant manquantes")
		return
	}

	roomID, ok := c.Registry.RoomOf(connID)
	if !ok {
		c.replyError(connID, conn, "Vous devez d'abord rejoindre une salle")
		return
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		c.replyError(connID, conn, "Vous devez d'abord rejoindre une salle")
		return
	}

	sender, ok := room.MemberInfo(connID)
	if !ok || !c.Policy.CanChangeParticipant(sender.Role) {
		c.replyError(connID, conn, "Seul un administrateur peut changer de participant")
		return
	}

	// Graceful preemption: the outgoing performer's broadcast is stopped
	// first. The new performer starts nothing until it sends
	// start-broadcasting itself.
	if p := room.Performer(); p != nil {
		c.stopBroadcast(room, p.ConnID)
	}

	log.Info().Str("module", "app.coordinator").Str("room", string(roomID)).
		Int64("new_performer", int64(msg.NewPerformerID)).Msg("participant change")

	c.broadcastRoom(room, participantChangedEvt{
		Type:             EvtParticipantChanged,
		NewPerformerID:   msg.NewPerformerID,
		NewPerformerName: msg.NewPerformerName,
		Message:          performerChangeAnnouncement(msg.NewPerformerName),
		Timestamp:        time.Now(),
	})
}

// removeFromRoom is the shared cleanup path for leave-room and disconnect.
func (c *Coordinator) removeFromRoom(connID domain.ConnID, roomID domain.RoomID) {
	c.Registry.ClearRoom(connID)
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	removed, wasPerformer, remaining := room.RemoveMember(connID)
	if removed == nil {
		return
	}
	log.Info().Str("module", "app.coordinator").Str("room", string(roomID)).
		Str("conn", string(connID)).Bool("was_performer", wasPerformer).
		Int("remaining", remaining).Msg("left room")
	if remaining == 0 {
		c.Rooms.RemoveIfEmpty(roomID)
		return
	}
	c.broadcastRoom(room, userLeftEvt{
		Type:             EvtUserLeft,
		ConnectionID:     connID,
		UserID:           removed.UserID,
		UserName:         removed.UserName,
		ParticipantCount: remaining,
		Timestamp:        time.Now(),
	})
}

// RoomStats reports presence counts for a competition or room id. Absent
// rooms yield zeros, not an error.
func (c *Coordinator) RoomStats(id string) core.RoomStats {
	roomID := domain.RoomIDForCompetition(id)
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return core.RoomStats{RoomID: string(roomID)}
	}
	return room.Stats()
}

// broadcastRoom fans an event out over a recipient snapshot. A failed send to
// one recipient never aborts delivery to the rest.
func (c *Coordinator) broadcastRoom(room *core.Room, v any, exclude ...domain.ConnID) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("marshal broadcast event")
		return
	}
	sent, dropped := 0, 0
	for _, rcpt := range room.Recipients(exclude...) {
		if err := rcpt.Conn.TrySend(frame); err != nil {
			dropped++
			log.Warn().Err(err).Str("module", "app.coordinator").
				Str("conn", string(rcpt.ConnID)).Msg("broadcast send failed")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.coordinator").Str("room", string(room.ID())).
		Int("sent_to", sent).Int("dropped", dropped).Msg("broadcast result")
}

func (c *Coordinator) reply(connID domain.ConnID, conn core.SignalConnection, v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("marshal reply")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").
			Str("conn", string(connID)).Msg("reply send failed")
	}
}

func (c *Coordinator) replyError(connID domain.ConnID, conn core.SignalConnection, msg string) {
	c.reply(connID, conn, errorEvt{Type: EvtError, Message: msg, Timestamp: time.Now()})
}
