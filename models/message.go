package models

// Message is one chat message between two doctors about a patient. The
// (senderId, receiverId, patientId) triad is the room addressing key; there
// is no separate conversation id. IDs are ObjectID hex strings assigned by
// the server on insert.
type Message struct {
	ID          string       `bson:"_id,omitempty" json:"id,omitempty"`
	TempID      string       `bson:"-" json:"tempId,omitempty"`
	SenderID    string       `bson:"senderId" json:"senderId"`
	ReceiverID  string       `bson:"receiverId" json:"receiverId"`
	PatientID   string       `bson:"patientId" json:"patientId"`
	Content     string       `bson:"content" json:"content"`
	IsRead      bool         `bson:"isRead" json:"isRead"`
	Attachments []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CreatedAt   int64        `bson:"createdAt" json:"createdAt"`
	UpdatedAt   int64        `bson:"updatedAt" json:"updatedAt"`
}
