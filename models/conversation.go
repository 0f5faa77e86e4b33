package models

// Conversation is a view entity: one (counterpart doctor, patient) pair with
// the last message and unread count. It is rebuilt from the message stream
// on every request, never persisted.
type Conversation struct {
	PatientID   string   `json:"patientId"`
	Doctor      UserInfo `json:"doctor"`
	LastMessage *Message `json:"lastMessage,omitempty"`
	UnreadCount int64    `json:"unreadCount"`
}
