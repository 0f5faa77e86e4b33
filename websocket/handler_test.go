package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/config"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/presence"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/wire"
)

func newTestHandler() (*ChatHandler, *Manager, presence.Store) {
	m := NewManager(config.WebSocketConfig{})
	go m.Run()
	store := presence.NewMemoryStore()
	return NewChatHandler(m, store, "test-secret", config.WebSocketConfig{}), m, store
}

func attachedClient(m *Manager, userID string) *Client {
	c := &Client{
		UserID:  userID,
		Info:    models.UserInfo{ID: userID},
		manager: m,
		send:    make(chan []byte, 8),
	}
	m.Register(c)
	return c
}

func command(t *testing.T, event string, data any) wire.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	return wire.Envelope{Event: event, Data: raw}
}

func TestJoinRoomCommandConfirmsAndSubscribes(t *testing.T) {
	h, m, _ := newTestHandler()
	a := attachedClient(m, "doc-a")
	b := attachedClient(m, "doc-b")

	h.dispatch(a, command(t, wire.CmdJoinPatientRoom, wire.RoomCommand{PatientID: "pat-1", OtherDoctorID: "doc-b"}))

	env := recvFrame(t, a)
	if env.Event != wire.EventJoinedRoom {
		t.Fatalf("event = %q, want %q", env.Event, wire.EventJoinedRoom)
	}
	payload, err := wire.DecodeEvent(env)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	room := payload.(wire.RoomPayload)
	if room.RoomName != wire.RoomName("pat-1", "doc-a", "doc-b") {
		t.Fatalf("roomName = %q", room.RoomName)
	}
	if !m.InRoom(a, room.RoomName) {
		t.Fatal("client not subscribed to room")
	}

	// The counterpart resolves the same room regardless of argument order.
	h.dispatch(b, command(t, wire.CmdJoinPatientRoom, wire.RoomCommand{PatientID: "pat-1", OtherDoctorID: "doc-a"}))
	recvFrame(t, b)
	if !m.InRoom(b, room.RoomName) {
		t.Fatal("counterpart subscribed to a different room")
	}
}

func TestLeaveRoomCommandUnsubscribes(t *testing.T) {
	h, m, _ := newTestHandler()
	a := attachedClient(m, "doc-a")

	h.dispatch(a, command(t, wire.CmdJoinPatientRoom, wire.RoomCommand{PatientID: "pat-1", OtherDoctorID: "doc-b"}))
	recvFrame(t, a)

	h.dispatch(a, command(t, wire.CmdLeavePatientRoom, wire.RoomCommand{PatientID: "pat-1", OtherDoctorID: "doc-b"}))
	env := recvFrame(t, a)
	if env.Event != wire.EventLeftRoom {
		t.Fatalf("event = %q, want %q", env.Event, wire.EventLeftRoom)
	}
	if m.InRoom(a, wire.RoomName("pat-1", "doc-a", "doc-b")) {
		t.Fatal("client still in room after leave")
	}
}

func TestRoomCommandRequiresIDs(t *testing.T) {
	h, m, _ := newTestHandler()
	a := attachedClient(m, "doc-a")

	h.dispatch(a, command(t, wire.CmdJoinPatientRoom, wire.RoomCommand{PatientID: "pat-1"}))

	env := recvFrame(t, a)
	if env.Event != wire.EventError {
		t.Fatalf("event = %q, want %q", env.Event, wire.EventError)
	}
}

func TestTypingFansOutToRoomOnly(t *testing.T) {
	h, m, _ := newTestHandler()
	a := attachedClient(m, "doc-a")
	b := attachedClient(m, "doc-b")
	outsider := attachedClient(m, "doc-c")

	room := wire.RoomName("pat-1", "doc-a", "doc-b")
	m.JoinRoom(a, room)
	m.JoinRoom(b, room)

	h.dispatch(a, command(t, wire.CmdStartTyping, wire.TypingCommand{ReceiverID: "doc-b", PatientID: "pat-1"}))

	env := recvFrame(t, b)
	payload, err := wire.DecodeEvent(env)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	typing := payload.(wire.TypingPayload)
	if !typing.IsTyping || typing.DoctorID != "doc-a" {
		t.Fatalf("unexpected typing payload: %+v", typing)
	}

	assertNoFrame(t, a)        // sender excluded
	assertNoFrame(t, outsider) // not in room

	h.dispatch(a, command(t, wire.CmdStopTyping, wire.TypingCommand{ReceiverID: "doc-b", PatientID: "pat-1"}))
	env = recvFrame(t, b)
	payload, _ = wire.DecodeEvent(env)
	if payload.(wire.TypingPayload).IsTyping {
		t.Fatal("stopTyping should carry isTyping=false")
	}
}

func TestGetOnlineDoctorsReturnsSnapshot(t *testing.T) {
	h, m, store := newTestHandler()
	a := attachedClient(m, "doc-a")
	store.MarkOnline(context.Background(), "doc-b")

	h.dispatch(a, command(t, wire.CmdGetOnlineDoctors, nil))

	env := recvFrame(t, a)
	if env.Event != wire.EventOnlineDoctors {
		t.Fatalf("event = %q, want %q", env.Event, wire.EventOnlineDoctors)
	}
	payload, err := wire.DecodeEvent(env)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	ids := payload.(wire.OnlineDoctorsPayload).DoctorIDs
	if len(ids) != 1 || ids[0] != "doc-b" {
		t.Fatalf("doctorIds = %v, want [doc-b]", ids)
	}
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	h, m, _ := newTestHandler()
	a := attachedClient(m, "doc-a")

	h.dispatch(a, wire.Envelope{Event: "mystery", Data: json.RawMessage(`{}`)})
	assertNoFrame(t, a)
}

func TestMalformedPayloadYieldsErrorEvent(t *testing.T) {
	h, m, _ := newTestHandler()
	a := attachedClient(m, "doc-a")

	h.dispatch(a, wire.Envelope{Event: wire.CmdStartTyping, Data: json.RawMessage(`"not an object"`)})

	env := recvFrame(t, a)
	if env.Event != wire.EventError {
		t.Fatalf("event = %q, want %q", env.Event, wire.EventError)
	}
}
