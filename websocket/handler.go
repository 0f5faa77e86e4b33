package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/config"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/database"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/handlers"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/middleware"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/presence"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/wire"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ChatHandler authenticates connections, dispatches commands and fans
// conversation events out to patient-scoped rooms.
type ChatHandler struct {
	manager   *Manager
	presence  presence.Store
	jwtSecret string
	cfg       config.WebSocketConfig
}

func NewChatHandler(manager *Manager, store presence.Store, jwtSecret string, cfg config.WebSocketConfig) *ChatHandler {
	return &ChatHandler{
		manager:   manager,
		presence:  store,
		jwtSecret: jwtSecret,
		cfg:       cfg,
	}
}

// HandleWS upgrades the request after validating the bearer token. The
// identity confirmed here is immutable for the connection lifetime.
func (h *ChatHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
			token = auth[7:]
		}
	}
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := middleware.ParseToken(token, h.jwtSecret)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	info := models.UserInfo{
		ID:        claims.UserID,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Specialty: claims.Specialty,
	}
	client := NewClient(info, h.manager, conn, h.cfg)

	h.manager.Register(client)
	client.SendEvent(wire.EventConnectedUserInfo, info)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	first, err := h.presence.MarkOnline(ctx, info.ID)
	cancel()
	if err != nil {
		logging.L().Error().Err(err).Str("doctorId", info.ID).Msg("presence mark online failed")
	} else if first {
		h.manager.BroadcastAll(wire.EventDoctorOnline, wire.DoctorOnlinePayload{
			DoctorID:  info.ID,
			Status:    "online",
			FirstName: info.FirstName,
			LastName:  info.LastName,
		})
	}

	go client.writePump()
	go func() {
		client.readPump(h.dispatch)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		last, err := h.presence.MarkOffline(ctx, info.ID)
		if err != nil {
			logging.L().Error().Err(err).Str("doctorId", info.ID).Msg("presence mark offline failed")
			return
		}
		if last {
			h.manager.BroadcastAll(wire.EventDoctorOffline, wire.DoctorOfflinePayload{
				DoctorID: info.ID,
				Status:   "offline",
			})
		}
	}()
}

func (h *ChatHandler) dispatch(c *Client, env wire.Envelope) {
	var err error
	switch env.Event {
	case wire.CmdSendMessage:
		err = h.handleSendMessage(c, env.Data)
	case wire.CmdMarkAsRead:
		err = h.handleMarkAsRead(c, env.Data)
	case wire.CmdStartTyping:
		err = h.handleTyping(c, env.Data, true)
	case wire.CmdStopTyping:
		err = h.handleTyping(c, env.Data, false)
	case wire.CmdDeleteMessage:
		err = h.handleDeleteMessage(c, env.Data)
	case wire.CmdJoinPatientRoom:
		err = h.handleRoom(c, env.Data, true)
	case wire.CmdLeavePatientRoom:
		err = h.handleRoom(c, env.Data, false)
	case wire.CmdGetOnlineDoctors:
		err = h.handleGetOnlineDoctors(c)
	default:
		logging.L().Warn().Str("event", env.Event).Str("doctorId", c.UserID).Msg("unknown command")
		return
	}

	if err != nil {
		logging.L().Warn().Err(err).Str("event", env.Event).Str("doctorId", c.UserID).Msg("command failed")
		c.SendEvent(wire.EventError, wire.ErrorPayload{Message: err.Error()})
	}
}

func (h *ChatHandler) handleSendMessage(c *Client, data json.RawMessage) error {
	var cmd wire.SendMessageCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return errInvalidPayload(err)
	}
	if cmd.ReceiverID == "" || cmd.PatientID == "" {
		return errMissing("receiverId and patientId are required")
	}
	if cmd.Content == "" && len(cmd.Attachments) == 0 {
		return errMissing("message needs content or attachments")
	}

	now := time.Now().Unix()
	msg := models.Message{
		ID:          primitive.NewObjectID().Hex(),
		SenderID:    c.UserID,
		ReceiverID:  cmd.ReceiverID,
		PatientID:   cmd.PatientID,
		Content:     cmd.Content,
		Attachments: cmd.Attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := database.Messages.InsertOne(ctx, msg); err != nil {
		return err
	}

	room := wire.RoomName(cmd.PatientID, c.UserID, cmd.ReceiverID)

	// Echo to the sender with the correlation id so optimistic UI state can
	// be reconciled; the room fanout carries the canonical message.
	sent := msg
	sent.TempID = cmd.TempID
	c.SendEvent(wire.EventMessageSent, sent)

	if err := h.manager.BroadcastToRoom(room, wire.EventNewMessage, msg, c); err != nil {
		return err
	}
	if err := h.manager.SendToUser(cmd.ReceiverID, room, wire.EventNewMessage, msg); err != nil {
		return err
	}

	online, err := h.presence.IsOnline(ctx, cmd.ReceiverID)
	if err == nil && !online {
		handlers.SendMessagePush(cmd.ReceiverID, c.Info.FirstName+" "+c.Info.LastName, cmd.Content)
	}

	return nil
}

func (h *ChatHandler) handleMarkAsRead(c *Client, data json.RawMessage) error {
	var cmd wire.MarkAsReadCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return errInvalidPayload(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var msg models.Message
	err := database.Messages.FindOne(ctx, bson.M{"_id": cmd.MessageID}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return errMissing("message not found")
	}
	if err != nil {
		return err
	}
	if msg.ReceiverID != c.UserID {
		return errMissing("only the receiver can mark a message as read")
	}

	readAt := time.Now().Unix()
	if _, err := database.Messages.UpdateOne(ctx,
		bson.M{"_id": cmd.MessageID},
		bson.M{"$set": bson.M{"isRead": true, "updatedAt": readAt}},
	); err != nil {
		return err
	}

	room := wire.RoomName(msg.PatientID, msg.SenderID, msg.ReceiverID)
	return h.manager.BroadcastToRoom(room, wire.EventMessageRead, wire.MessageReadPayload{
		MessageID: cmd.MessageID,
		ReadBy:    c.UserID,
		PatientID: msg.PatientID,
		ReadAt:    readAt,
	}, nil)
}

func (h *ChatHandler) handleTyping(c *Client, data json.RawMessage, isTyping bool) error {
	var cmd wire.TypingCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return errInvalidPayload(err)
	}

	room := wire.RoomName(cmd.PatientID, c.UserID, cmd.ReceiverID)
	return h.manager.BroadcastToRoom(room, wire.EventTyping, wire.TypingPayload{
		DoctorID:  c.UserID,
		PatientID: cmd.PatientID,
		IsTyping:  isTyping,
	}, c)
}

func (h *ChatHandler) handleDeleteMessage(c *Client, data json.RawMessage) error {
	var cmd wire.DeleteMessageCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return errInvalidPayload(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := database.Messages.DeleteOne(ctx, bson.M{"_id": cmd.MessageID, "senderId": c.UserID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errMissing("message not found or not yours to delete")
	}

	room := wire.RoomName(cmd.PatientID, c.UserID, cmd.ReceiverID)
	return h.manager.BroadcastToRoom(room, wire.EventMessageDeleted, wire.MessageDeletedPayload{
		MessageID: cmd.MessageID,
		PatientID: cmd.PatientID,
		DeletedBy: c.UserID,
	}, nil)
}

func (h *ChatHandler) handleRoom(c *Client, data json.RawMessage, join bool) error {
	var cmd wire.RoomCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return errInvalidPayload(err)
	}
	if cmd.PatientID == "" || cmd.OtherDoctorID == "" {
		return errMissing("patientId and otherDoctorId are required")
	}

	room := wire.RoomName(cmd.PatientID, c.UserID, cmd.OtherDoctorID)
	event := wire.EventJoinedRoom
	if join {
		h.manager.JoinRoom(c, room)
	} else {
		h.manager.LeaveRoom(c, room)
		event = wire.EventLeftRoom
	}

	return c.SendEvent(event, wire.RoomPayload{RoomName: room, PatientID: cmd.PatientID})
}

func (h *ChatHandler) handleGetOnlineDoctors(c *Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ids, err := h.presence.OnlineDoctors(ctx)
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	return c.SendEvent(wire.EventOnlineDoctors, wire.OnlineDoctorsPayload{DoctorIDs: ids})
}
