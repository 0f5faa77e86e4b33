// Package wire defines the JSON contract shared by the websocket server and
// the chat client: event names, command names, payload types and the
// envelope codec. Payloads form a closed tagged union keyed by event name
// and are validated here, at the deserialization boundary, so neither side
// needs runtime casts downstream.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
)

// Server -> client events.
const (
	EventConnectedUserInfo = "connected_user_info"
	EventNewMessage        = "newMessage"
	EventMessageSent       = "messageSent"
	EventMessageRead       = "messageRead"
	EventTyping            = "typing"
	EventMessageDeleted    = "messageDeleted"
	EventDoctorOnline      = "doctorOnline"
	EventDoctorOffline     = "doctorOffline"
	EventOnlineDoctors     = "onlineDoctors"
	EventJoinedRoom        = "joinedRoom"
	EventLeftRoom          = "leftRoom"
	EventError             = "error"
)

// Client -> server commands.
const (
	CmdSendMessage      = "sendMessage"
	CmdMarkAsRead       = "markAsRead"
	CmdStartTyping      = "startTyping"
	CmdStopTyping       = "stopTyping"
	CmdDeleteMessage    = "deleteMessage"
	CmdJoinPatientRoom  = "joinPatientRoom"
	CmdLeavePatientRoom = "leavePatientRoom"
	CmdGetOnlineDoctors = "getOnlineDoctors"
)

// Envelope is the frame format: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event payloads.

type MessageReadPayload struct {
	MessageID string `json:"messageId"`
	ReadBy    string `json:"readBy"`
	PatientID string `json:"patientId"`
	ReadAt    int64  `json:"readAt"`
}

type TypingPayload struct {
	DoctorID  string `json:"doctorId"`
	PatientID string `json:"patientId"`
	IsTyping  bool   `json:"isTyping"`
}

type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
	PatientID string `json:"patientId"`
	DeletedBy string `json:"deletedBy,omitempty"`
}

type DoctorOnlinePayload struct {
	DoctorID  string `json:"doctorId"`
	Status    string `json:"status"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type DoctorOfflinePayload struct {
	DoctorID string `json:"doctorId"`
	Status   string `json:"status"`
}

type OnlineDoctorsPayload struct {
	DoctorIDs []string `json:"doctorIds"`
}

type RoomPayload struct {
	RoomName  string `json:"roomName"`
	PatientID string `json:"patientId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Command payloads.

type SendMessageCommand struct {
	TempID      string              `json:"tempId,omitempty"`
	ReceiverID  string              `json:"receiverId"`
	PatientID   string              `json:"patientId"`
	Content     string              `json:"content"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

type MarkAsReadCommand struct {
	MessageID string `json:"messageId"`
	PatientID string `json:"patientId"`
}

type TypingCommand struct {
	ReceiverID string `json:"receiverId"`
	PatientID  string `json:"patientId"`
}

type DeleteMessageCommand struct {
	MessageID  string `json:"messageId"`
	PatientID  string `json:"patientId"`
	ReceiverID string `json:"receiverId"`
}

type RoomCommand struct {
	PatientID     string `json:"patientId"`
	OtherDoctorID string `json:"otherDoctorId"`
}

// Encode marshals an event or command into a frame.
func Encode(event string, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// DecodeEnvelope splits a raw frame into event name and raw payload.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("frame has no event name")
	}
	return env, nil
}

// DecodeEvent resolves a server event envelope into its typed payload.
// Unknown event names are an error so protocol drift surfaces immediately.
func DecodeEvent(env Envelope) (any, error) {
	switch env.Event {
	case EventConnectedUserInfo:
		return decodeAs[models.UserInfo](env)
	case EventNewMessage, EventMessageSent:
		return decodeAs[models.Message](env)
	case EventMessageRead:
		return decodeAs[MessageReadPayload](env)
	case EventTyping:
		return decodeAs[TypingPayload](env)
	case EventMessageDeleted:
		return decodeAs[MessageDeletedPayload](env)
	case EventDoctorOnline:
		return decodeAs[DoctorOnlinePayload](env)
	case EventDoctorOffline:
		return decodeAs[DoctorOfflinePayload](env)
	case EventOnlineDoctors:
		return decodeAs[OnlineDoctorsPayload](env)
	case EventJoinedRoom, EventLeftRoom:
		return decodeAs[RoomPayload](env)
	case EventError:
		return decodeAs[ErrorPayload](env)
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
}

func decodeAs[T any](env Envelope) (T, error) {
	var v T
	if len(env.Data) == 0 {
		return v, fmt.Errorf("event %q has no payload", env.Event)
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return v, fmt.Errorf("event %q: bad payload: %w", env.Event, err)
	}
	return v, nil
}

// RoomName builds the canonical broadcast group name for a patient-scoped
// conversation. Doctor ids are sorted so both participants resolve the same
// room.
func RoomName(patientID, doctorA, doctorB string) string {
	lo, hi := doctorA, doctorB
	if hi < lo {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("patient:%s:%s:%s", patientID, lo, hi)
}
