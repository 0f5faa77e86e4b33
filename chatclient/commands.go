package chatclient

import (
	"github.com/google/uuid"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/wire"
)

// SendMessage submits a message and returns the temp id the caller can use
// to correlate the later messageSent confirmation. Unlike the best-effort
// signals below, sending while disconnected is an error.
func (c *Client) SendMessage(receiverID, patientID, content string, attachments []models.Attachment) (string, error) {
	if !c.IsConnected() {
		return "", ErrNotConnected
	}
	tempID := uuid.NewString()
	err := c.emit(wire.CmdSendMessage, wire.SendMessageCommand{
		TempID:      tempID,
		ReceiverID:  receiverID,
		PatientID:   patientID,
		Content:     content,
		Attachments: attachments,
	})
	if err != nil {
		return "", err
	}
	return tempID, nil
}

// MarkAsRead reports a message as read. Silently no-ops while disconnected.
func (c *Client) MarkAsRead(messageID, patientID string) {
	c.emitBestEffort(wire.CmdMarkAsRead, wire.MarkAsReadCommand{
		MessageID: messageID,
		PatientID: patientID,
	})
}

// StartTyping signals a typing indicator to the conversation partner.
// Silently no-ops while disconnected.
func (c *Client) StartTyping(receiverID, patientID string) {
	c.emitBestEffort(wire.CmdStartTyping, wire.TypingCommand{
		ReceiverID: receiverID,
		PatientID:  patientID,
	})
}

// StopTyping clears the typing indicator. Silently no-ops while
// disconnected.
func (c *Client) StopTyping(receiverID, patientID string) {
	c.emitBestEffort(wire.CmdStopTyping, wire.TypingCommand{
		ReceiverID: receiverID,
		PatientID:  patientID,
	})
}

// DeleteMessage asks the server to remove one of the caller's own messages.
// Silently no-ops while disconnected.
func (c *Client) DeleteMessage(messageID, patientID, receiverID string) {
	c.emitBestEffort(wire.CmdDeleteMessage, wire.DeleteMessageCommand{
		MessageID:  messageID,
		PatientID:  patientID,
		ReceiverID: receiverID,
	})
}

// RequestOnlineDoctors asks for a fresh presence snapshot, delivered as an
// onlineDoctors event. Silently no-ops while disconnected.
func (c *Client) RequestOnlineDoctors() {
	c.emitBestEffort(wire.CmdGetOnlineDoctors, nil)
}
