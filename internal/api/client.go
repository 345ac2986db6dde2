// Package api implements the REST client for the chat directory/history
// service. All mutable conversation state lives in the synchronizer; this
// package is a thin, stateless wrapper over the documented endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hishamahammedkm/taza-chat-cli/internal/logger"
)

// defaultHTTPTimeout is the per-request timeout used by the client.
const defaultHTTPTimeout = 15 * time.Second

// Client talks to the chat REST backend using a bearer credential.
type Client struct {
	mu         sync.Mutex
	serverURL  string
	token      string
	httpClient *http.Client
}

// NewClient creates a new REST client for the given base URL.
//
// The client expects a URL without a trailing slash, because request paths are
// joined as `baseURL + "/chats/..."`.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetToken updates the bearer credential used for all requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

// Chats returns the caller's conversation list, ordered by last activity
// descending as returned by the service.
func (c *Client) Chats(ctx context.Context) ([]Chat, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/chats", nil)
	if err != nil {
		return nil, err
	}
	var chats []Chat
	if err := json.Unmarshal(body, &chats); err != nil {
		return nil, fmt.Errorf("parse chats response: %w", err)
	}
	return chats, nil
}

// AvailableUsers returns users a new conversation can be started with.
func (c *Client) AvailableUsers(ctx context.Context) ([]User, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/chats/users", nil)
	if err != nil {
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("parse users response: %w", err)
	}
	return users, nil
}

// GroupInfo returns group metadata (name, participants, admin).
func (c *Client) GroupInfo(ctx context.Context, chatID string) (Chat, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/chats/group/"+url.PathEscape(chatID), nil)
	if err != nil {
		return Chat{}, err
	}
	var chat Chat
	if err := json.Unmarshal(body, &chat); err != nil {
		return Chat{}, fmt.Errorf("parse group info response: %w", err)
	}
	return chat, nil
}

// CreateDirectChat creates (or finds) a one-to-one conversation with a user.
func (c *Client) CreateDirectChat(ctx context.Context, userID string) (Chat, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/chats/c/"+url.PathEscape(userID), nil)
	if err != nil {
		return Chat{}, err
	}
	var chat Chat
	if err := json.Unmarshal(body, &chat); err != nil {
		return Chat{}, fmt.Errorf("parse chat response: %w", err)
	}
	return chat, nil
}

// CreateGroupChat creates a group conversation.
//
// The backend requires at least two other participants; the check is also
// made here so an obviously invalid request never leaves the client.
func (c *Client) CreateGroupChat(ctx context.Context, name string, participants []string) (Chat, error) {
	if strings.TrimSpace(name) == "" {
		return Chat{}, fmt.Errorf("%w: group name is required", ErrValidation)
	}
	if len(participants) < 2 {
		return Chat{}, fmt.Errorf("%w: a group needs at least 2 other participants", ErrValidation)
	}
	payload, err := json.Marshal(map[string]any{
		"name":         name,
		"participants": participants,
	})
	if err != nil {
		return Chat{}, fmt.Errorf("marshal group request: %w", err)
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/chats/group", payload)
	if err != nil {
		return Chat{}, err
	}
	var chat Chat
	if err := json.Unmarshal(body, &chat); err != nil {
		return Chat{}, fmt.Errorf("parse group response: %w", err)
	}
	return chat, nil
}

// RenameGroup updates a group's display name. Admin only.
func (c *Client) RenameGroup(ctx context.Context, chatID, name string) (Chat, error) {
	if strings.TrimSpace(name) == "" {
		return Chat{}, fmt.Errorf("%w: group name is required", ErrValidation)
	}
	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return Chat{}, fmt.Errorf("marshal rename request: %w", err)
	}
	body, err := c.doRequest(ctx, http.MethodPatch, "/chats/group/"+url.PathEscape(chatID), payload)
	if err != nil {
		return Chat{}, err
	}
	var chat Chat
	if err := json.Unmarshal(body, &chat); err != nil {
		return Chat{}, fmt.Errorf("parse rename response: %w", err)
	}
	return chat, nil
}

// DeleteGroup deletes a group conversation. Admin only.
func (c *Client) DeleteGroup(ctx context.Context, chatID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/chats/group/"+url.PathEscape(chatID), nil)
	return err
}

// LeaveDirectChat removes a one-to-one conversation for the caller.
func (c *Client) LeaveDirectChat(ctx context.Context, chatID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/chats/remove/"+url.PathEscape(chatID), nil)
	return err
}

// AddParticipant adds a user to a group. Admin only.
func (c *Client) AddParticipant(ctx context.Context, chatID, participantID string) (Chat, error) {
	path := "/chats/group/" + url.PathEscape(chatID) + "/" + url.PathEscape(participantID)
	body, err := c.doRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return Chat{}, err
	}
	var chat Chat
	if err := json.Unmarshal(body, &chat); err != nil {
		return Chat{}, fmt.Errorf("parse participant response: %w", err)
	}
	return chat, nil
}

// RemoveParticipant removes a user from a group. Admin only.
func (c *Client) RemoveParticipant(ctx context.Context, chatID, participantID string) (Chat, error) {
	path := "/chats/group/" + url.PathEscape(chatID) + "/" + url.PathEscape(participantID)
	body, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return Chat{}, err
	}
	var chat Chat
	if err := json.Unmarshal(body, &chat); err != nil {
		return Chat{}, fmt.Errorf("parse participant response: %w", err)
	}
	return chat, nil
}

// Messages returns the message history for a chat, newest first. Pagination
// is owned by the service.
func (c *Client) Messages(ctx context.Context, chatID string) ([]Message, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/messages/"+url.PathEscape(chatID), nil)
	if err != nil {
		return nil, err
	}
	var messages []Message
	if err := json.Unmarshal(body, &messages); err != nil {
		return nil, fmt.Errorf("parse messages response: %w", err)
	}
	return messages, nil
}

// SendMessage posts a message as multipart form data (content plus any
// attachment files) and returns the server-confirmed message.
func (c *Client) SendMessage(ctx context.Context, chatID, content string, attachments []Attachment) (Message, error) {
	if strings.TrimSpace(content) == "" && len(attachments) == 0 {
		return Message{}, fmt.Errorf("%w: message needs content or attachments", ErrValidation)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if content != "" {
		if err := form.WriteField("content", content); err != nil {
			return Message{}, fmt.Errorf("write content field: %w", err)
		}
	}
	for _, att := range attachments {
		if att.LocalPath == "" {
			continue
		}
		part, err := form.CreateFormFile("attachments", filepath.Base(att.LocalPath))
		if err != nil {
			return Message{}, fmt.Errorf("create attachment part: %w", err)
		}
		file, err := os.Open(att.LocalPath)
		if err != nil {
			return Message{}, fmt.Errorf("%w: open attachment: %v", ErrValidation, err)
		}
		_, err = io.Copy(part, file)
		file.Close()
		if err != nil {
			return Message{}, fmt.Errorf("copy attachment: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return Message{}, fmt.Errorf("finalize form: %w", err)
	}

	body, err := c.doRaw(ctx, http.MethodPost, "/messages/"+url.PathEscape(chatID), &buf, form.FormDataContentType())
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("parse message response: %w", err)
	}
	return msg, nil
}

// DeleteMessage deletes a message and returns the deleted message payload.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID string) (Message, error) {
	path := "/messages/" + url.PathEscape(chatID) + "/" + url.PathEscape(messageID)
	body, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("parse delete response: %w", err)
	}
	return msg, nil
}

// doRequest performs a JSON request and unwraps the response envelope.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	contentType := ""
	if body != nil {
		reader = bytes.NewReader(body)
		contentType = "application/json"
	}
	return c.doRaw(ctx, method, path, reader, contentType)
}

// doRaw performs a request with an arbitrary body and unwraps the response
// envelope. All failures are mapped onto the package error taxonomy.
func (c *Client) doRaw(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	c.mu.Lock()
	token := c.token
	baseURL := c.serverURL
	client := c.httpClient
	c.mu.Unlock()

	if baseURL == "" {
		return nil, fmt.Errorf("server URL not set")
	}
	if token == "" {
		return nil, fmt.Errorf("%w: no bearer credential", ErrAuth)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	logger.Tracef("api: %s %s", method, path)
	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	var envelope apiResponse
	if len(respBody) > 0 {
		// Tolerate non-envelope bodies; classification only needs the message.
		_ = json.Unmarshal(respBody, &envelope)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, classifyStatus(httpResp.StatusCode, envelope.Message)
	}
	if len(envelope.Data) > 0 {
		return []byte(envelope.Data), nil
	}
	return respBody, nil
}
