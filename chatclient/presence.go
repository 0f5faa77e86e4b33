package chatclient

// IsDoctorOnline reports the last known presence of a doctor. The view is
// maintained from doctorOnline/doctorOffline/onlineDoctors events and is
// empty while disconnected.
func (c *Client) IsDoctorOnline(doctorID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online[doctorID]
}

// OnlineDoctors returns a snapshot of doctor ids currently believed online.
func (c *Client) OnlineDoctors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.online))
	for id := range c.online {
		ids = append(ids, id)
	}
	return ids
}
