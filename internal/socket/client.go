// Package socket wraps the Socket.IO event channel used for real-time chat
// updates. It delivers raw event payloads to registered handlers; all
// interpretation happens in the synchronizer.
package socket

import (
	"fmt"
	"sync"
	"time"

	socketio "github.com/zishang520/socket.io/clients/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/hishamahammedkm/taza-chat-cli/internal/logger"
)

// EventType names a Socket.IO chat event.
type EventType string

// Server-to-client and client-to-server event names. These match the backend
// contract exactly; the server ignores unknown names silently.
const (
	EventConnected       EventType = "connected"
	EventDisconnect      EventType = "disconnect"
	EventJoinChat        EventType = "joinChat"
	EventNewChat         EventType = "newChat"
	EventTyping          EventType = "typing"
	EventStopTyping      EventType = "stopTyping"
	EventMessageReceived EventType = "messageReceived"
	EventMessageDeleted  EventType = "messageDeleted"
	EventLeaveChat       EventType = "leaveChat"
	EventUpdateGroupName EventType = "updateGroupName"
	EventSocketError     EventType = "socketError"
)

// inboundEvents are the events the client subscribes to on connect.
var inboundEvents = []EventType{
	EventConnected,
	EventNewChat,
	EventTyping,
	EventStopTyping,
	EventMessageReceived,
	EventMessageDeleted,
	EventLeaveChat,
	EventUpdateGroupName,
	EventSocketError,
}

// Client is a Socket.IO client for the chat event channel.
type Client struct {
	serverURL string
	token     string

	mu        sync.RWMutex
	socket    *socketio.Socket
	handlers  map[EventType]func(any)
	connected bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new event-channel client. Connect must be called before
// any emit.
func NewClient(serverURL, token string) *Client {
	return &Client{
		serverURL: serverURL,
		token:     token,
		handlers:  make(map[EventType]func(any)),
		done:      make(chan struct{}),
	}
}

// On registers an event handler. Handlers run synchronously on the transport's
// receive path so events reach them in server delivery order; they must not
// block.
func (c *Client) On(eventType EventType, handler func(any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = handler
}

// Connect establishes the Socket.IO connection, authenticating through the
// handshake auth payload the way the mobile client does.
func (c *Client) Connect() error {
	logger.Debugf("socket: connecting to %s", c.serverURL)

	opts := socketio.DefaultOptions()
	opts.SetTransports(types.NewSet(socketio.Polling, socketio.WebSocket))
	opts.SetAuth(map[string]interface{}{
		"token": c.token,
	})

	sock, err := socketio.Connect(c.serverURL, opts)
	if err != nil {
		return fmt.Errorf("socket connect: %w", err)
	}

	c.mu.Lock()
	c.socket = sock
	c.mu.Unlock()

	sock.On(types.EventName("connect"), func(args ...any) {
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		logger.Debugf("socket: transport connected, id=%s", sock.Id())
	})

	sock.On(types.EventName(EventDisconnect), func(args ...any) {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		reason := ""
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}
		logger.Infof("socket: disconnected: %s", reason)
		c.dispatch(EventDisconnect, reason)
	})

	sock.On(types.EventName("connect_error"), func(args ...any) {
		if len(args) > 0 {
			logger.Warnf("socket: connection error: %v", args[0])
		}
	})

	for _, eventType := range inboundEvents {
		et := eventType
		sock.On(types.EventName(et), func(args ...any) {
			logger.Tracef("socket: event %s", et)
			var payload any
			if len(args) > 0 {
				payload = args[0]
			}
			c.dispatch(et, payload)
		})
	}

	return nil
}

// dispatch hands a payload to the registered handler, if any. The call is
// synchronous: spawning a goroutine per event would let two events race to the
// handler and arrive out of server delivery order.
func (c *Client) dispatch(eventType EventType, payload any) {
	c.mu.RLock()
	handler, ok := c.handlers[eventType]
	c.mu.RUnlock()

	if ok && handler != nil {
		handler(payload)
	}
}

// WaitForConnect waits for the socket to report connected or times out.
func (c *Client) WaitForConnect(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.IsConnected() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return c.IsConnected()
}

// Emit sends an event to the server.
func (c *Client) Emit(eventType EventType, data any) error {
	c.mu.RLock()
	sock := c.socket
	c.mu.RUnlock()

	if sock == nil {
		return fmt.Errorf("not connected")
	}

	logger.Tracef("socket: emit %s", eventType)
	sock.Emit(string(eventType), data)
	return nil
}

// JoinChat subscribes this client to a conversation's event room.
func (c *Client) JoinChat(chatID string) error {
	return c.Emit(EventJoinChat, chatID)
}

// EmitTyping announces that the local user started typing in a chat.
func (c *Client) EmitTyping(chatID string) error {
	return c.Emit(EventTyping, chatID)
}

// EmitStopTyping announces that the local user stopped typing in a chat.
func (c *Client) EmitStopTyping(chatID string) error {
	return c.Emit(EventStopTyping, chatID)
}

// Close tears down the connection. Safe to call multiple times.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.socket != nil {
		c.socket.Disconnect()
		c.socket = nil
	}
	c.connected = false
	return nil
}

// IsConnected reports whether the transport is currently connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	sock := c.socket
	connected := c.connected
	c.mu.RUnlock()

	if connected {
		return true
	}
	if sock != nil && sock.Connected() {
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		return true
	}
	return false
}
