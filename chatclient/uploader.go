package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
)

// File is one attachment to upload.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// UploadFiles uploads attachments ahead of sending the message that carries
// them. The returned metadata preserves input order so callers can pass it
// straight to SendMessage.
func (c *Client) UploadFiles(ctx context.Context, files []File) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("chat: no files to upload")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreatePart(fileHeader(f))
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, fmt.Errorf("chat: reading %s: %w", f.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(c.opts.ServerURL, "/") + "/api/chat/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, requestError(resp.StatusCode, body)
	}

	var parsed struct {
		Attachments []models.Attachment `json:"attachments"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("chat: decoding upload response: %w", err)
	}
	return parsed.Attachments, nil
}

func fileHeader(f File) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(f.Name)))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	return h
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
