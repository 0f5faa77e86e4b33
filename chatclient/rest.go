package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
)

// MessagesPage is one page of conversation history, newest first.
type MessagesPage struct {
	Messages   []models.Message `json:"messages"`
	HasMore    bool             `json:"hasMore"`
	NextCursor string           `json:"nextCursor"`
}

// GetMessages fetches one page of history for a conversation with another
// doctor about a patient. Pass the previous page's NextCursor to continue;
// an empty cursor starts from the newest message. limit <= 0 uses the
// server default.
func (c *Client) GetMessages(ctx context.Context, doctorID, patientID string, limit int, cursor string) (MessagesPage, error) {
	q := url.Values{}
	q.Set("doctorId", doctorID)
	q.Set("patientId", patientID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page MessagesPage
	if err := c.getJSON(ctx, "/api/chat/messages", q, &page); err != nil {
		return MessagesPage{}, err
	}
	return page, nil
}

// GetConversations lists the caller's conversations with their latest
// message and unread count, most recently active first.
func (c *Client) GetConversations(ctx context.Context) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if err := c.getJSON(ctx, "/api/chat/conversations", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// SearchDoctors finds other doctors by name prefix.
func (c *Client) SearchDoctors(ctx context.Context, term string) ([]models.UserInfo, error) {
	q := url.Values{}
	q.Set("term", term)
	var doctors []models.UserInfo
	if err := c.getJSON(ctx, "/api/chat/doctors/search", q, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

// SearchPatients finds patients by name prefix.
func (c *Client) SearchPatients(ctx context.Context, term string) ([]models.Patient, error) {
	q := url.Values{}
	q.Set("term", term)
	var patients []models.Patient
	if err := c.getJSON(ctx, "/api/chat/patients/search", q, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := strings.TrimSuffix(c.opts.ServerURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return requestError(resp.StatusCode, body)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("chat: decoding %s response: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// requestError extracts the server's "message" field, falling back to the
// HTTP status text for non-JSON bodies.
func requestError(statusCode int, body []byte) *RequestError {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return &RequestError{StatusCode: statusCode, Message: parsed.Message}
	}
	return &RequestError{StatusCode: statusCode, Message: http.StatusText(statusCode)}
}
