package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/wire"
)

var testIdentity = models.UserInfo{
	ID:        "doc-1",
	FirstName: "Amel",
	LastName:  "Haddad",
	Specialty: "cardiology",
}

// chatServer is a scripted websocket endpoint: it upgrades /ws, optionally
// sends the identity confirmation, then forwards every client command to a
// channel and hands the raw connection to the test.
type chatServer struct {
	*httptest.Server
	upgrades int32
	commands chan wire.Envelope
	conns    chan *gws.Conn
	confirm  bool
}

func newChatServer(t *testing.T, confirm bool) *chatServer {
	t.Helper()
	s := &chatServer{
		commands: make(chan wire.Envelope, 32),
		conns:    make(chan *gws.Conn, 4),
		confirm:  confirm,
	}
	upgrader := gws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("token") == "bad" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&s.upgrades, 1)
		if s.confirm {
			frame, _ := wire.Encode(wire.EventConnectedUserInfo, testIdentity)
			conn.WriteMessage(gws.TextMessage, frame)
		}
		s.conns <- conn
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if env, err := wire.DecodeEnvelope(raw); err == nil {
				s.commands <- env
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *chatServer) conn(t *testing.T) *gws.Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no websocket connection arrived")
		return nil
	}
}

func (s *chatServer) push(t *testing.T, conn *gws.Conn, event string, data any) {
	t.Helper()
	frame, err := wire.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(gws.TextMessage, frame))
}

func (s *chatServer) nextCommand(t *testing.T) wire.Envelope {
	t.Helper()
	select {
	case env := <-s.commands:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no command arrived")
		return wire.Envelope{}
	}
}

func (s *chatServer) assertNoCommand(t *testing.T) {
	t.Helper()
	select {
	case env := <-s.commands:
		t.Fatalf("unexpected command %q", env.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func connectedClient(t *testing.T, s *chatServer) (*Client, *gws.Conn) {
	t.Helper()
	c := New(Options{ServerURL: s.URL})
	info, err := c.Connect(context.Background(), "token-1")
	require.NoError(t, err)
	require.Equal(t, testIdentity, info)
	t.Cleanup(c.Disconnect)
	return c, s.conn(t)
}

func TestConnectReturnsServerIdentity(t *testing.T) {
	s := newChatServer(t, true)
	c, _ := connectedClient(t, s)

	got, ok := c.Identity()
	if !ok {
		t.Fatal("Identity should be available while connected")
	}
	if got != testIdentity {
		t.Fatalf("identity = %+v, want %+v", got, testIdentity)
	}
	if !c.IsConnected() {
		t.Fatal("IsConnected should be true after Connect")
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	s := newChatServer(t, true)
	c, _ := connectedClient(t, s)

	info, err := c.Connect(context.Background(), "token-1")
	require.NoError(t, err)
	require.Equal(t, testIdentity, info)

	if n := atomic.LoadInt32(&s.upgrades); n != 1 {
		t.Fatalf("second Connect opened another connection: %d upgrades", n)
	}
}

func TestConnectTimesOutWithoutConfirmation(t *testing.T) {
	s := newChatServer(t, false)
	c := New(Options{ServerURL: s.URL, HandshakeTimeout: 200 * time.Millisecond})

	_, err := c.Connect(context.Background(), "token-1")
	if !errors.Is(err, ErrConnectionTimeout) {
		t.Fatalf("err = %v, want ErrConnectionTimeout", err)
	}
	if c.IsConnected() {
		t.Fatal("client should not be connected after a failed handshake")
	}
}

func TestConnectRejectedTokenIsAuthError(t *testing.T) {
	s := newChatServer(t, true)
	c := New(Options{ServerURL: s.URL})

	_, err := c.Connect(context.Background(), "bad")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
}

func TestSendMessageRequiresConnection(t *testing.T) {
	c := New(Options{ServerURL: "http://localhost:0"})
	_, err := c.SendMessage("doc-2", "pat-1", "hello", nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestSignalsNoopWhileDisconnected(t *testing.T) {
	c := New(Options{ServerURL: "http://localhost:0"})

	// None of these may panic or open a connection.
	c.MarkAsRead("m1", "pat-1")
	c.StartTyping("doc-2", "pat-1")
	c.StopTyping("doc-2", "pat-1")
	c.DeleteMessage("m1", "pat-1", "doc-2")
	c.JoinPatientRoom("pat-1", "doc-2")
	c.LeavePatientRoom("pat-1", "doc-2")
	c.RequestOnlineDoctors()

	if c.IsConnected() {
		t.Fatal("client should remain disconnected")
	}
}

func TestSendMessageEmitsCommandWithTempID(t *testing.T) {
	s := newChatServer(t, true)
	c, _ := connectedClient(t, s)

	// Attachments are uploaded first; the message carries their descriptors.
	attachments := []models.Attachment{
		{ID: "att-1", FileName: "ecg.pdf", MimeType: "application/pdf", Size: 9, URL: "https://cdn.example.com/ecg.pdf"},
	}
	tempID, err := c.SendMessage("doc-2", "pat-1", "lab results in", attachments)
	require.NoError(t, err)
	require.NotEmpty(t, tempID)

	env := s.nextCommand(t)
	require.Equal(t, wire.CmdSendMessage, env.Event)

	var cmd wire.SendMessageCommand
	require.NoError(t, unmarshalData(env, &cmd))
	require.Equal(t, tempID, cmd.TempID)
	require.Equal(t, "doc-2", cmd.ReceiverID)
	require.Equal(t, "pat-1", cmd.PatientID)
	require.Equal(t, "lab results in", cmd.Content)
	require.Equal(t, attachments, cmd.Attachments)

	// Distinct sends carry distinct correlation ids.
	tempID2, err := c.SendMessage("doc-2", "pat-1", "second", nil)
	require.NoError(t, err)
	require.NotEqual(t, tempID, tempID2)
	s.nextCommand(t)
}

func TestNewMessageDeliveredExactlyOnce(t *testing.T) {
	s := newChatServer(t, true)
	c, conn := connectedClient(t, s)

	got := make(chan models.Message, 4)
	c.On(wire.EventNewMessage, func(payload any) {
		got <- payload.(models.Message)
	})

	want := models.Message{
		ID:         "66f0a1b2c3d4e5f6a7b8c9d0",
		SenderID:   "doc-2",
		ReceiverID: "doc-1",
		PatientID:  "pat-1",
		Content:    "please review the ECG",
		CreatedAt:  1700000000000,
	}
	s.push(t, conn, wire.EventNewMessage, want)

	select {
	case msg := <-got:
		require.Equal(t, want, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("newMessage never dispatched")
	}

	select {
	case msg := <-got:
		t.Fatalf("message delivered twice: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandlersFireInRegistrationOrder(t *testing.T) {
	s := newChatServer(t, true)
	c, conn := connectedClient(t, s)

	order := make(chan int, 2)
	c.On(wire.EventTyping, func(any) { order <- 1 })
	c.On(wire.EventTyping, func(any) { order <- 2 })

	s.push(t, conn, wire.EventTyping, wire.TypingPayload{DoctorID: "doc-2", PatientID: "pat-1", IsTyping: true})

	for want := 1; want <= 2; want++ {
		select {
		case got := <-order:
			require.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("handler %d never fired", want)
		}
	}
}

func TestPanickingHandlerDoesNotStarveOthers(t *testing.T) {
	s := newChatServer(t, true)
	c, conn := connectedClient(t, s)

	survived := make(chan struct{}, 1)
	c.On(wire.EventTyping, func(any) { panic("boom") })
	c.On(wire.EventTyping, func(any) { survived <- struct{}{} })

	s.push(t, conn, wire.EventTyping, wire.TypingPayload{DoctorID: "doc-2", PatientID: "pat-1"})

	select {
	case <-survived:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler starved by panicking first handler")
	}

	// The read loop must survive too.
	s.push(t, conn, wire.EventTyping, wire.TypingPayload{DoctorID: "doc-2", PatientID: "pat-1"})
	select {
	case <-survived:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop died after handler panic")
	}
}

func TestOffStopsDelivery(t *testing.T) {
	s := newChatServer(t, true)
	c, conn := connectedClient(t, s)

	fired := make(chan struct{}, 2)
	sub := c.On(wire.EventTyping, func(any) { fired <- struct{}{} })
	sentinel := make(chan struct{}, 2)
	c.On(wire.EventTyping, func(any) { sentinel <- struct{}{} })

	c.Off(sub)
	// Removing it again is a no-op.
	c.Off(sub)

	s.push(t, conn, wire.EventTyping, wire.TypingPayload{DoctorID: "doc-2", PatientID: "pat-1"})

	select {
	case <-sentinel:
	case <-time.After(2 * time.Second):
		t.Fatal("sentinel handler never fired")
	}
	select {
	case <-fired:
		t.Fatal("removed handler still fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDisconnectClearsSessionState(t *testing.T) {
	s := newChatServer(t, true)
	c, conn := connectedClient(t, s)

	stale := make(chan struct{}, 2)
	c.On(wire.EventNewMessage, func(any) { stale <- struct{}{} })
	c.JoinPatientRoom("pat-1", "doc-2")
	s.push(t, conn, wire.EventDoctorOnline, wire.DoctorOnlinePayload{DoctorID: "doc-2", Status: "online"})

	s.nextCommand(t) // joinPatientRoom
	waitFor(t, func() bool { return c.IsDoctorOnline("doc-2") })

	c.Disconnect()

	if c.IsConnected() {
		t.Fatal("IsConnected after Disconnect")
	}
	if _, ok := c.Identity(); ok {
		t.Fatal("identity survived Disconnect")
	}
	if rooms := c.JoinedRooms(); len(rooms) != 0 {
		t.Fatalf("room membership survived Disconnect: %v", rooms)
	}
	if ids := c.OnlineDoctors(); len(ids) != 0 {
		t.Fatalf("presence view survived Disconnect: %v", ids)
	}

	// Reconnect: listeners registered before Disconnect must be gone.
	_, err := c.Connect(context.Background(), "token-1")
	require.NoError(t, err)
	conn2 := s.conn(t)

	fresh := make(chan struct{}, 1)
	c.On(wire.EventNewMessage, func(any) { fresh <- struct{}{} })
	s.push(t, conn2, wire.EventNewMessage, models.Message{ID: "66f0a1b2c3d4e5f6a7b8c9d1", SenderID: "doc-2", ReceiverID: "doc-1", PatientID: "pat-1"})

	select {
	case <-fresh:
	case <-time.After(2 * time.Second):
		t.Fatal("fresh handler never fired after reconnect")
	}
	select {
	case <-stale:
		t.Fatal("handler from the previous session fired after reconnect")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRemoteDropInvokesOnDisconnect(t *testing.T) {
	s := newChatServer(t, true)

	dropped := make(chan error, 1)
	c := New(Options{ServerURL: s.URL, OnDisconnect: func(err error) { dropped <- err }})
	_, err := c.Connect(context.Background(), "token-1")
	require.NoError(t, err)
	conn := s.conn(t)

	conn.Close()

	select {
	case cause := <-dropped:
		if cause == nil {
			t.Fatal("OnDisconnect called with nil cause")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect never invoked")
	}
	if c.IsConnected() {
		t.Fatal("client still connected after remote drop")
	}
}

func TestExplicitDisconnectDoesNotInvokeOnDisconnect(t *testing.T) {
	s := newChatServer(t, true)

	dropped := make(chan error, 1)
	c := New(Options{ServerURL: s.URL, OnDisconnect: func(err error) { dropped <- err }})
	_, err := c.Connect(context.Background(), "token-1")
	require.NoError(t, err)
	s.conn(t)

	c.Disconnect()

	select {
	case <-dropped:
		t.Fatal("OnDisconnect fired for an explicit Disconnect")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestJoinPatientRoomDeduplicates(t *testing.T) {
	s := newChatServer(t, true)
	c, _ := connectedClient(t, s)

	c.JoinPatientRoom("pat-1", "doc-2")
	c.JoinPatientRoom("pat-1", "doc-2")

	env := s.nextCommand(t)
	require.Equal(t, wire.CmdJoinPatientRoom, env.Event)
	s.assertNoCommand(t)

	if rooms := c.JoinedRooms(); len(rooms) != 1 {
		t.Fatalf("JoinedRooms = %v, want one entry", rooms)
	}
}

func TestLeaveUnjoinedRoomIsNoop(t *testing.T) {
	s := newChatServer(t, true)
	c, _ := connectedClient(t, s)

	c.LeavePatientRoom("pat-1", "doc-2")
	s.assertNoCommand(t)
}

func TestLeavePatientRoomEmitsOnce(t *testing.T) {
	s := newChatServer(t, true)
	c, _ := connectedClient(t, s)

	c.JoinPatientRoom("pat-1", "doc-2")
	require.Equal(t, wire.CmdJoinPatientRoom, s.nextCommand(t).Event)

	c.LeavePatientRoom("pat-1", "doc-2")
	require.Equal(t, wire.CmdLeavePatientRoom, s.nextCommand(t).Event)

	c.LeavePatientRoom("pat-1", "doc-2")
	s.assertNoCommand(t)
}

func TestPresenceTracksServerEvents(t *testing.T) {
	s := newChatServer(t, true)
	c, conn := connectedClient(t, s)

	s.push(t, conn, wire.EventDoctorOnline, wire.DoctorOnlinePayload{DoctorID: "doc-2", Status: "online"})
	waitFor(t, func() bool { return c.IsDoctorOnline("doc-2") })

	// A full snapshot replaces the incremental view.
	s.push(t, conn, wire.EventOnlineDoctors, wire.OnlineDoctorsPayload{DoctorIDs: []string{"doc-3", "doc-4"}})
	waitFor(t, func() bool { return c.IsDoctorOnline("doc-3") && !c.IsDoctorOnline("doc-2") })

	s.push(t, conn, wire.EventDoctorOffline, wire.DoctorOfflinePayload{DoctorID: "doc-3", Status: "offline"})
	waitFor(t, func() bool { return !c.IsDoctorOnline("doc-3") && c.IsDoctorOnline("doc-4") })
}

func unmarshalData(env wire.Envelope, out any) error {
	return json.Unmarshal(env.Data, out)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never satisfied")
}
