package chatclient

import "github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/wire"

// roomKey identifies a joined conversation independent of argument order.
type roomKey struct {
	patientID     string
	otherDoctorID string
}

// JoinPatientRoom subscribes this session to the conversation about a
// patient with another doctor. Joining a room that is already joined is a
// no-op, as is joining while disconnected; membership is connection-scoped
// and cleared on disconnect.
func (c *Client) JoinPatientRoom(patientID, otherDoctorID string) {
	key := roomKey{patientID: patientID, otherDoctorID: otherDoctorID}

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	if _, ok := c.rooms[key]; ok {
		c.mu.Unlock()
		return
	}
	c.rooms[key] = struct{}{}
	c.mu.Unlock()

	c.emitBestEffort(wire.CmdJoinPatientRoom, wire.RoomCommand{
		PatientID:     patientID,
		OtherDoctorID: otherDoctorID,
	})
}

// LeavePatientRoom unsubscribes from a conversation. Leaving a room that was
// never joined is a no-op.
func (c *Client) LeavePatientRoom(patientID, otherDoctorID string) {
	key := roomKey{patientID: patientID, otherDoctorID: otherDoctorID}

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	if _, ok := c.rooms[key]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.rooms, key)
	c.mu.Unlock()

	c.emitBestEffort(wire.CmdLeavePatientRoom, wire.RoomCommand{
		PatientID:     patientID,
		OtherDoctorID: otherDoctorID,
	})
}

// JoinedRooms lists current room memberships as canonical room names.
func (c *Client) JoinedRooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity == nil {
		return nil
	}
	names := make([]string, 0, len(c.rooms))
	for key := range c.rooms {
		names = append(names, wire.RoomName(key.patientID, c.identity.ID, key.otherDoctorID))
	}
	return names
}
