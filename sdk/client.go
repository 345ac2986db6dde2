// Package sdk is the embeddable chat client: it wires the REST directory
// client, the Socket.IO event channel, local encrypted storage, and the
// conversation state synchronizer into one handle.
package sdk

import (
	"context"
	"fmt"
	"time"

	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
	"github.com/hishamahammedkm/taza-chat-cli/internal/chat"
	"github.com/hishamahammedkm/taza-chat-cli/internal/config"
	"github.com/hishamahammedkm/taza-chat-cli/internal/logger"
	"github.com/hishamahammedkm/taza-chat-cli/internal/notify"
	"github.com/hishamahammedkm/taza-chat-cli/internal/socket"
	"github.com/hishamahammedkm/taza-chat-cli/internal/storage"
)

// connectTimeout bounds the initial event-channel handshake.
const connectTimeout = 10 * time.Second

// Client is the top-level chat client handle.
//
// The synchronizer owns all conversation state; Client methods either
// delegate to it or call the directory service directly for stateless
// membership operations.
type Client struct {
	cfg    *config.Config
	token  string
	self   api.User
	secret [32]byte

	api     *api.Client
	sock    *socket.Client
	runtime *chat.Runtime
	sync    *chat.Synchronizer
}

// New builds a client from config and a valid access token. listener may be
// nil.
func New(cfg *config.Config, token string, listener chat.Listener) (*Client, error) {
	self, err := identityFromToken(token)
	if err != nil {
		return nil, err
	}

	apiClient := api.NewClient(cfg.ServerURL)
	apiClient.SetToken(token)

	key, err := storage.GetOrCreateSecretKey(cfg.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load storage key: %w", err)
	}
	c := &Client{
		cfg:   cfg,
		token: token,
		self:  self,
		api:   apiClient,
	}
	copy(c.secret[:], key)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.PushoverToken != "" && cfg.PushoverUser != "" {
		pn, err := notify.NewPushoverNotifier(notify.PushoverConfig{
			Token:    cfg.PushoverToken,
			UserKey:  cfg.PushoverUser,
			Cooldown: 30 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("pushover config: %w", err)
		}
		notifier = pn
	}

	c.runtime = chat.NewRuntime(apiClient, nil, cfg.TazaHome, &c.secret, notifier)
	c.sync = chat.NewSynchronizer(self.ID, c.runtime, listener)
	return c, nil
}

// Self returns the authenticated user's identity.
func (c *Client) Self() api.User { return c.self }

// Start launches the synchronizer loop. Call before Connect.
func (c *Client) Start() {
	c.sync.Start()
}

// Connect establishes the event channel and binds its events to the
// synchronizer. Returns once the transport reports connected or the timeout
// elapses.
func (c *Client) Connect() error {
	sock := socket.NewClient(c.cfg.SocketURL, c.token)
	c.bindSocket(sock)

	if err := sock.Connect(); err != nil {
		return err
	}
	c.sock = sock
	c.runtime.SetChannel(sock)

	if !sock.WaitForConnect(connectTimeout) {
		return fmt.Errorf("%w: event channel connect timed out", api.ErrNetwork)
	}
	return nil
}

// Close stops the synchronizer and tears down the event channel.
func (c *Client) Close() error {
	c.sync.Stop()
	if c.sock != nil {
		return c.sock.Close()
	}
	return nil
}

// LoadChats refreshes and returns the conversation list.
func (c *Client) LoadChats(ctx context.Context) ([]api.Chat, error) {
	return c.sync.LoadChats(ctx)
}

// Open makes a conversation active and loads its timeline.
func (c *Client) Open(ctx context.Context, chatID, name string, group bool) error {
	return c.sync.Open(ctx, chatID, name, group)
}

// CloseChat clears the active conversation.
func (c *Client) CloseChat() { c.sync.Close() }

// Send performs an optimistic send into a conversation.
func (c *Client) Send(ctx context.Context, chatID, content string, attachments []api.Attachment) (string, error) {
	return c.sync.Send(ctx, chatID, content, attachments, c.self)
}

// Retry re-issues a failed send identified by its temporary id.
func (c *Client) Retry(ctx context.Context, tempID string) error {
	return c.sync.Retry(ctx, tempID)
}

// Delete removes a message.
func (c *Client) Delete(ctx context.Context, chatID, messageID string) error {
	return c.sync.Delete(ctx, chatID, messageID)
}

// Keystroke records composer activity for the typing indicator.
func (c *Client) Keystroke(chatID string) { c.sync.Keystroke(chatID) }

// MarkRead clears a conversation's unread count.
func (c *Client) MarkRead(chatID string) { c.sync.MarkRead(chatID) }

// Snapshot returns a copy of the current synchronizer state.
func (c *Client) Snapshot() chat.State { return c.sync.Snapshot() }

// RestoreCurrentChat reopens the conversation persisted by the last session,
// if any. Returns the restored chat id, or "" when nothing was persisted.
func (c *Client) RestoreCurrentChat(ctx context.Context) (string, error) {
	rec, ok, err := storage.LoadCurrentChat(c.cfg.TazaHome, &c.secret)
	if err != nil {
		logger.Warnf("sdk: current chat restore failed: %v", err)
		return "", err
	}
	if !ok {
		return "", nil
	}
	if err := c.sync.Open(ctx, rec.ChatID, rec.Name, rec.IsGroupChat); err != nil {
		return "", err
	}
	return rec.ChatID, nil
}

// Directory operations below are stateless pass-throughs; mutations refresh
// the synchronizer's list afterwards.

// AvailableUsers lists users a conversation can be started with.
func (c *Client) AvailableUsers(ctx context.Context) ([]api.User, error) {
	return c.api.AvailableUsers(ctx)
}

// GroupInfo returns group metadata.
func (c *Client) GroupInfo(ctx context.Context, chatID string) (api.Chat, error) {
	return c.api.GroupInfo(ctx, chatID)
}

// CreateDirectChat creates or finds a one-to-one conversation.
func (c *Client) CreateDirectChat(ctx context.Context, userID string) (api.Chat, error) {
	created, err := c.api.CreateDirectChat(ctx, userID)
	if err != nil {
		return api.Chat{}, err
	}
	c.refreshChats(ctx)
	return created, nil
}

// CreateGroupChat creates a group with at least two other participants.
func (c *Client) CreateGroupChat(ctx context.Context, name string, participants []string) (api.Chat, error) {
	created, err := c.api.CreateGroupChat(ctx, name, participants)
	if err != nil {
		return api.Chat{}, err
	}
	c.refreshChats(ctx)
	return created, nil
}

// RenameGroup renames a group (admin only).
func (c *Client) RenameGroup(ctx context.Context, chatID, name string) error {
	if _, err := c.api.RenameGroup(ctx, chatID, name); err != nil {
		return err
	}
	c.refreshChats(ctx)
	return nil
}

// DeleteGroup deletes a group (admin only).
func (c *Client) DeleteGroup(ctx context.Context, chatID string) error {
	if err := c.api.DeleteGroup(ctx, chatID); err != nil {
		return err
	}
	c.refreshChats(ctx)
	return nil
}

// LeaveDirectChat removes a one-to-one conversation for the local user.
func (c *Client) LeaveDirectChat(ctx context.Context, chatID string) error {
	if err := c.api.LeaveDirectChat(ctx, chatID); err != nil {
		return err
	}
	c.refreshChats(ctx)
	return nil
}

// AddParticipant adds a user to a group (admin only).
func (c *Client) AddParticipant(ctx context.Context, chatID, userID string) error {
	if _, err := c.api.AddParticipant(ctx, chatID, userID); err != nil {
		return err
	}
	c.refreshChats(ctx)
	return nil
}

// RemoveParticipant removes a user from a group (admin only).
func (c *Client) RemoveParticipant(ctx context.Context, chatID, userID string) error {
	if _, err := c.api.RemoveParticipant(ctx, chatID, userID); err != nil {
		return err
	}
	c.refreshChats(ctx)
	return nil
}

func (c *Client) refreshChats(ctx context.Context) {
	if _, err := c.sync.LoadChats(ctx); err != nil {
		logger.Warnf("sdk: list refresh after mutation failed: %v", err)
	}
}
