package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/hishamahammedkm/taza-chat-cli/internal/actor"
	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
)

// tempIDPrefix marks client-generated provisional message ids. The prefix
// guarantees a temporary id can never collide with a server-assigned one.
const tempIDPrefix = "tmp-"

// clock is the time source for provisional message timestamps. Tests swap it
// for a fake; the reducer itself never reads it.
var clock actor.Clock = actor.RealClock{}

// LoadChats returns a command input that refreshes the conversation list.
// If reply is non-nil, it is completed when the fetch finishes.
func LoadChats(reply chan error) actor.Input {
	return cmdLoadChats{Reply: reply}
}

// OpenChat returns a command input that makes a conversation active. Name and
// group are used for the persisted current-chat record when the conversation
// is not yet in the local list.
func OpenChat(chatID, name string, group bool, reply chan error) actor.Input {
	return cmdOpenChat{ChatID: chatID, Name: name, Group: group, Reply: reply}
}

// CloseChat returns a command input that clears the active conversation.
func CloseChat() actor.Input {
	return cmdCloseChat{}
}

// SendMessage returns a command input for an optimistic send, along with the
// generated temporary id the caller can use to correlate a later retry.
func SendMessage(chatID, content string, attachments []api.Attachment, sender api.User, reply chan error) (actor.Input, string) {
	tempID := tempIDPrefix + uuid.NewString()
	return cmdSendMessage{
		ChatID:      chatID,
		Content:     content,
		Attachments: attachments,
		TempID:      tempID,
		Sender:      sender,
		NowISO:      clock.Now().UTC().Format(time.RFC3339Nano),
		Reply:       reply,
	}, tempID
}

// RetrySend returns a command input that re-issues a failed optimistic send.
func RetrySend(tempID string, reply chan error) actor.Input {
	return cmdRetrySend{TempID: tempID, Reply: reply}
}

// DeleteMessage returns a command input that deletes a message server-side.
func DeleteMessage(chatID, messageID string, reply chan error) actor.Input {
	return cmdDeleteMessage{ChatID: chatID, MessageID: messageID, Reply: reply}
}

// Keystroke returns a command input recording composer activity in a chat.
func Keystroke(chatID string) actor.Input {
	return cmdKeystroke{ChatID: chatID}
}

// MarkRead returns a command input that clears a chat's unread count.
func MarkRead(chatID string) actor.Input {
	return cmdMarkRead{ChatID: chatID}
}

// Connected returns an event input for event-channel connection.
func Connected() actor.Input {
	return evConnected{}
}

// Disconnected returns an event input for event-channel disconnection.
func Disconnected(reason string) actor.Input {
	return evDisconnected{Reason: reason}
}

// MessageReceived returns an event input for a pushed message.
func MessageReceived(msg api.Message) actor.Input {
	return evMessageReceived{Message: msg}
}

// MessageDeleted returns an event input for a pushed message deletion.
func MessageDeleted(msg api.Message) actor.Input {
	return evMessageDeleted{Message: msg}
}

// TypingReceived returns an event input for a peer typing signal.
func TypingReceived(chatID string) actor.Input {
	return evTypingReceived{ChatID: chatID}
}

// StopTypingReceived returns an event input for a peer stop-typing signal.
func StopTypingReceived(chatID string) actor.Input {
	return evStopTypingReceived{ChatID: chatID}
}

// NewChat returns an event input for a pushed new conversation.
func NewChat(chat api.Chat) actor.Input {
	return evNewChat{Chat: chat}
}

// ChatLeft returns an event input for a conversation the local user left or
// was removed from.
func ChatLeft(chat api.Chat) actor.Input {
	return evChatLeft{Chat: chat}
}

// GroupNameUpdated returns an event input for a pushed group rename.
func GroupNameUpdated(chat api.Chat) actor.Input {
	return evGroupNameUpdated{Chat: chat}
}
