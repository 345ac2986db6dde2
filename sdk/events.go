package sdk

import (
	"encoding/json"

	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
	"github.com/hishamahammedkm/taza-chat-cli/internal/chat"
	"github.com/hishamahammedkm/taza-chat-cli/internal/logger"
	"github.com/hishamahammedkm/taza-chat-cli/internal/socket"
)

// bindSocket routes event-channel payloads into the synchronizer mailbox.
// Decoding happens here so the synchronizer only ever sees typed inputs.
func (c *Client) bindSocket(sock *socket.Client) {
	sock.On(socket.EventConnected, func(any) {
		c.sync.Deliver(chat.Connected())
	})
	sock.On(socket.EventDisconnect, func(payload any) {
		reason, _ := payload.(string)
		c.sync.Deliver(chat.Disconnected(reason))
	})
	sock.On(socket.EventTyping, func(payload any) {
		if chatID := asChatID(payload); chatID != "" {
			c.sync.Deliver(chat.TypingReceived(chatID))
		}
	})
	sock.On(socket.EventStopTyping, func(payload any) {
		if chatID := asChatID(payload); chatID != "" {
			c.sync.Deliver(chat.StopTypingReceived(chatID))
		}
	})
	sock.On(socket.EventMessageReceived, func(payload any) {
		var msg api.Message
		if decodePayload("messageReceived", payload, &msg) {
			c.sync.Deliver(chat.MessageReceived(msg))
		}
	})
	sock.On(socket.EventMessageDeleted, func(payload any) {
		var msg api.Message
		if decodePayload("messageDeleted", payload, &msg) {
			c.sync.Deliver(chat.MessageDeleted(msg))
		}
	})
	sock.On(socket.EventNewChat, func(payload any) {
		var conv api.Chat
		if decodePayload("newChat", payload, &conv) {
			c.sync.Deliver(chat.NewChat(conv))
		}
	})
	sock.On(socket.EventLeaveChat, func(payload any) {
		var conv api.Chat
		if decodePayload("leaveChat", payload, &conv) {
			c.sync.Deliver(chat.ChatLeft(conv))
		}
	})
	sock.On(socket.EventUpdateGroupName, func(payload any) {
		var conv api.Chat
		if decodePayload("updateGroupName", payload, &conv) {
			c.sync.Deliver(chat.GroupNameUpdated(conv))
		}
	})
	sock.On(socket.EventSocketError, func(payload any) {
		logger.Warnf("sdk: server reported socket error: %v", payload)
	})
}

// asChatID extracts a conversation id from a typing payload. The server sends
// the bare id; older revisions wrapped it in an object.
func asChatID(payload any) string {
	switch v := payload.(type) {
	case string:
		return v
	case map[string]interface{}:
		if id, ok := v["chatId"].(string); ok {
			return id
		}
		if id, ok := v["_id"].(string); ok {
			return id
		}
	}
	return ""
}

// decodePayload converts a decoded Socket.IO payload into a typed struct via
// a JSON round trip.
func decodePayload(event string, payload any, target any) bool {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Warnf("sdk: undecodable %s payload: %v", event, err)
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		logger.Warnf("sdk: malformed %s payload: %v", event, err)
		return false
	}
	return true
}
