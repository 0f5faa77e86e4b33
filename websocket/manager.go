package websocket

import (
	"sync"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/config"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/wire"
)

// Manager owns every live connection and the patient-scoped rooms they have
// joined. Room fanout goes through a single run loop, so events for one room
// reach members in the order the server emitted them.
type Manager struct {
	clients    map[*Client]bool
	byUser     map[string]map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage
	mu         sync.RWMutex
	cfg        config.WebSocketConfig
}

type roomMessage struct {
	room    string // empty means every connected client
	data    []byte
	exclude *Client
}

func NewManager(cfg config.WebSocketConfig) *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
		cfg:        cfg,
	}
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			if m.byUser[client.UserID] == nil {
				m.byUser[client.UserID] = make(map[*Client]bool)
			}
			m.byUser[client.UserID][client] = true
			m.mu.Unlock()
			logging.L().Debug().Str("doctorId", client.UserID).Int("clients", m.ClientCount()).Msg("client registered")

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				for name, members := range m.rooms {
					delete(members, client)
					if len(members) == 0 {
						delete(m.rooms, name)
					}
				}
				if conns := m.byUser[client.UserID]; conns != nil {
					delete(conns, client)
					if len(conns) == 0 {
						delete(m.byUser, client.UserID)
					}
				}
				delete(m.clients, client)
				client.closeSend()
			}
			m.mu.Unlock()
			logging.L().Debug().Str("doctorId", client.UserID).Int("clients", m.ClientCount()).Msg("client unregistered")

		case msg := <-m.broadcast:
			m.mu.RLock()
			targets := m.clients
			if msg.room != "" {
				targets = m.rooms[msg.room]
			}
			for client := range targets {
				if client == msg.exclude {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Slow client: drop the connection rather than block fanout.
					go m.Unregister(client)
				}
			}
			m.mu.RUnlock()
		}
	}
}

func (m *Manager) Register(client *Client)   { m.register <- client }
func (m *Manager) Unregister(client *Client) { m.unregister <- client }

func (m *Manager) JoinRoom(client *Client, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[room] == nil {
		m.rooms[room] = make(map[*Client]bool)
	}
	m.rooms[room][client] = true
}

func (m *Manager) LeaveRoom(client *Client, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if members, ok := m.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
}

func (m *Manager) InRoom(client *Client, room string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[room][client]
}

// BroadcastToRoom queues an event for every member of a room, optionally
// excluding one client (typically the sender).
func (m *Manager) BroadcastToRoom(room, event string, data any, exclude *Client) error {
	frame, err := wire.Encode(event, data)
	if err != nil {
		return err
	}
	m.broadcast <- &roomMessage{room: room, data: frame, exclude: exclude}
	return nil
}

// BroadcastAll queues an event for every connected client. Used for
// presence transitions.
func (m *Manager) BroadcastAll(event string, data any) error {
	frame, err := wire.Encode(event, data)
	if err != nil {
		return err
	}
	m.broadcast <- &roomMessage{data: frame}
	return nil
}

// SendToUser delivers an event to every connection a doctor holds. When
// skipRoom is non-empty, connections already reached by that room's fanout
// are skipped so nobody sees the event twice.
func (m *Manager) SendToUser(userID, skipRoom, event string, data any) error {
	frame, err := wire.Encode(event, data)
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for client := range m.byUser[userID] {
		if skipRoom != "" && m.rooms[skipRoom][client] {
			continue
		}
		select {
		case client.send <- frame:
		default:
			go m.Unregister(client)
		}
	}
	return nil
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
