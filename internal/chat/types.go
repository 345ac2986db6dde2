// Package chat implements the conversation state synchronizer: the single
// owner of the conversation list, the active timeline, unread counts, and
// typing-indicator state.
//
// All mutations flow through one actor loop. User actions and pushed server
// events are both inputs; network calls and socket emits are effects the
// runtime interprets asynchronously, re-entering the loop as events.
package chat

import (
	"github.com/hishamahammedkm/taza-chat-cli/internal/actor"
	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
)

const (
	// typingTimeoutMs is how long after the last local keystroke the outgoing
	// typing signal stays active before stopTyping is emitted.
	typingTimeoutMs = 3000

	typingTimerPrefix = "typing:"
)

func typingTimerName(chatID string) string { return typingTimerPrefix + chatID }

// pendingSend tracks an optimistic message between issue and server confirm.
type pendingSend struct {
	ChatID string
	// Message is the provisional timeline entry, keyed by its temporary id.
	Message api.Message
	Reply   chan error
}

// State is the loop-owned state of the synchronizer.
type State struct {
	// SelfID is the local user's id, used to keep own echoed messages out of
	// unread counts.
	SelfID string

	// Connected reflects the event channel transport status.
	Connected bool

	// Chats is the conversation list, ordered by last activity descending.
	Chats []api.Chat

	// ActiveChatID is the currently open conversation, or "" for none.
	ActiveChatID string

	// HistoryGen increments on every history fetch so a late response for a
	// previously active conversation can be discarded.
	HistoryGen int64

	// Timelines caches message timelines per chat, newest first.
	Timelines map[string][]api.Message

	// Unread holds, per chat, the set of message ids received while the chat
	// was not active. Tracking ids (not a counter) makes increments idempotent
	// and deletes safe.
	Unread map[string]map[string]struct{}

	// PeerTyping marks chats where a peer is currently composing.
	PeerTyping map[string]bool

	// SelfTyping marks chats where our outgoing typing signal is active.
	SelfTyping map[string]bool

	// PendingSends maps temporary message id to the in-flight send.
	PendingSends map[string]pendingSend

	// FailedSends keeps failed optimistic sends around for manual retry.
	FailedSends map[string]pendingSend

	// PendingLoadReply is completed when the next conversation-list fetch
	// finishes. Latest caller wins.
	PendingLoadReply chan error

	// PendingOpenReply is completed when the active chat's history fetch
	// finishes. Latest caller wins.
	PendingOpenReply chan error

	// PendingDeletes maps message id to the reply for an in-flight delete.
	PendingDeletes map[string]chan error
}

// NewState returns an empty synchronizer state for the given local user.
func NewState(selfID string) State {
	return State{
		SelfID:         selfID,
		Timelines:      make(map[string][]api.Message),
		Unread:         make(map[string]map[string]struct{}),
		PeerTyping:     make(map[string]bool),
		SelfTyping:     make(map[string]bool),
		PendingSends:   make(map[string]pendingSend),
		FailedSends:    make(map[string]pendingSend),
		PendingDeletes: make(map[string]chan error),
	}
}

// clone returns a deep copy of the state, detached from every map and slice
// the reducer mutates in place. Reply channels and pending sends are carried
// over as-is; they are not part of the display surface.
func (s State) clone() State {
	out := s

	out.Chats = append([]api.Chat(nil), s.Chats...)

	out.Timelines = make(map[string][]api.Message, len(s.Timelines))
	for chatID, tl := range s.Timelines {
		out.Timelines[chatID] = append([]api.Message(nil), tl...)
	}

	out.Unread = make(map[string]map[string]struct{}, len(s.Unread))
	for chatID, set := range s.Unread {
		dup := make(map[string]struct{}, len(set))
		for id := range set {
			dup[id] = struct{}{}
		}
		out.Unread[chatID] = dup
	}

	out.PeerTyping = make(map[string]bool, len(s.PeerTyping))
	for chatID, v := range s.PeerTyping {
		out.PeerTyping[chatID] = v
	}
	out.SelfTyping = make(map[string]bool, len(s.SelfTyping))
	for chatID, v := range s.SelfTyping {
		out.SelfTyping[chatID] = v
	}

	out.PendingSends = make(map[string]pendingSend, len(s.PendingSends))
	for id, pend := range s.PendingSends {
		out.PendingSends[id] = pend
	}
	out.FailedSends = make(map[string]pendingSend, len(s.FailedSends))
	for id, pend := range s.FailedSends {
		out.FailedSends[id] = pend
	}
	out.PendingDeletes = make(map[string]chan error, len(s.PendingDeletes))
	for id, reply := range s.PendingDeletes {
		out.PendingDeletes[id] = reply
	}
	return out
}

// UnreadCount returns the number of unread messages for a chat.
func (s State) UnreadCount(chatID string) int {
	return len(s.Unread[chatID])
}

// Timeline returns a copy of the cached timeline for a chat, newest first.
func (s State) Timeline(chatID string) []api.Message {
	src := s.Timelines[chatID]
	if len(src) == 0 {
		return nil
	}
	out := make([]api.Message, len(src))
	copy(out, src)
	return out
}

// ChatByID returns the conversation with the given id, if present.
func (s State) ChatByID(chatID string) (api.Chat, bool) {
	for _, c := range s.Chats {
		if c.ID == chatID {
			return c, true
		}
	}
	return api.Chat{}, false
}

// Inputs

// Event is a marker interface for events consumed by the chat reducer.
type Event interface {
	actor.Input
	isChatEvent()
}

// Command is a marker interface for commands consumed by the chat reducer.
type Command interface {
	actor.Input
	isChatCommand()
}

// cmdLoadChats requests a full refresh of the conversation list.
type cmdLoadChats struct {
	actor.InputBase
	Reply chan error
}

func (cmdLoadChats) isChatCommand() {}

// cmdOpenChat makes a conversation active: joins its event room, clears its
// unread set, and fetches history if the timeline is not cached.
type cmdOpenChat struct {
	actor.InputBase
	ChatID string
	Name   string
	Group  bool
	Reply  chan error
}

func (cmdOpenChat) isChatCommand() {}

// cmdCloseChat clears the active conversation pointer.
type cmdCloseChat struct {
	actor.InputBase
}

func (cmdCloseChat) isChatCommand() {}

// cmdSendMessage issues an optimistic send. TempID, Sender, and NowISO are
// supplied by the caller so the reducer stays deterministic.
type cmdSendMessage struct {
	actor.InputBase
	ChatID      string
	Content     string
	Attachments []api.Attachment
	TempID      string
	Sender      api.User
	NowISO      string
	Reply       chan error
}

func (cmdSendMessage) isChatCommand() {}

// cmdRetrySend re-issues a previously failed optimistic send.
type cmdRetrySend struct {
	actor.InputBase
	TempID string
	Reply  chan error
}

func (cmdRetrySend) isChatCommand() {}

// cmdDeleteMessage requests a server-side delete. The message is only removed
// locally after the server confirms.
type cmdDeleteMessage struct {
	actor.InputBase
	ChatID    string
	MessageID string
	Reply     chan error
}

func (cmdDeleteMessage) isChatCommand() {}

// cmdKeystroke records a local keystroke in a chat's composer, driving the
// outgoing typing signal.
type cmdKeystroke struct {
	actor.InputBase
	ChatID string
}

func (cmdKeystroke) isChatCommand() {}

// cmdMarkRead clears a chat's unread set without opening it.
type cmdMarkRead struct {
	actor.InputBase
	ChatID string
}

func (cmdMarkRead) isChatCommand() {}

// Events emitted by the runtime (or the event channel) back into the reducer.

type evConnected struct {
	actor.InputBase
}

func (evConnected) isChatEvent() {}

type evDisconnected struct {
	actor.InputBase
	Reason string
}

func (evDisconnected) isChatEvent() {}

type evChatsLoaded struct {
	actor.InputBase
	Chats []api.Chat
	Err   error
}

func (evChatsLoaded) isChatEvent() {}

type evHistoryLoaded struct {
	actor.InputBase
	ChatID   string
	Gen      int64
	Messages []api.Message
	Err      error
}

func (evHistoryLoaded) isChatEvent() {}

type evSendCompleted struct {
	actor.InputBase
	TempID  string
	Message api.Message
	Err     error
}

func (evSendCompleted) isChatEvent() {}

type evDeleteCompleted struct {
	actor.InputBase
	ChatID    string
	MessageID string
	Message   api.Message
	Err       error
}

func (evDeleteCompleted) isChatEvent() {}

type evLastMessageFetched struct {
	actor.InputBase
	ChatID  string
	Message *api.Message
	Err     error
}

func (evLastMessageFetched) isChatEvent() {}

type evMessageReceived struct {
	actor.InputBase
	Message api.Message
}

func (evMessageReceived) isChatEvent() {}

type evMessageDeleted struct {
	actor.InputBase
	Message api.Message
}

func (evMessageDeleted) isChatEvent() {}

type evTypingReceived struct {
	actor.InputBase
	ChatID string
}

func (evTypingReceived) isChatEvent() {}

type evStopTypingReceived struct {
	actor.InputBase
	ChatID string
}

func (evStopTypingReceived) isChatEvent() {}

type evNewChat struct {
	actor.InputBase
	Chat api.Chat
}

func (evNewChat) isChatEvent() {}

type evChatLeft struct {
	actor.InputBase
	Chat api.Chat
}

func (evChatLeft) isChatEvent() {}

type evGroupNameUpdated struct {
	actor.InputBase
	Chat api.Chat
}

func (evGroupNameUpdated) isChatEvent() {}

type evTimerFired struct {
	actor.InputBase
	Name string
}

func (evTimerFired) isChatEvent() {}

// Effects

// Effect is a marker interface for effects emitted by the chat reducer.
type Effect interface {
	actor.Effect
	isChatEffect()
}

type effFetchChats struct {
	actor.EffectBase
}

func (effFetchChats) isChatEffect() {}

// effFetchHistory carries the generation it was issued under so the reducer
// can discard a late response after the active chat changed.
type effFetchHistory struct {
	actor.EffectBase
	ChatID string
	Gen    int64
}

func (effFetchHistory) isChatEffect() {}

type effSendMessage struct {
	actor.EffectBase
	TempID      string
	ChatID      string
	Content     string
	Attachments []api.Attachment
}

func (effSendMessage) isChatEffect() {}

type effDeleteMessage struct {
	actor.EffectBase
	ChatID    string
	MessageID string
}

func (effDeleteMessage) isChatEffect() {}

// effFetchLastMessage re-derives a chat's last-message pointer after the
// previous one was deleted.
type effFetchLastMessage struct {
	actor.EffectBase
	ChatID string
}

func (effFetchLastMessage) isChatEffect() {}

type effJoinChat struct {
	actor.EffectBase
	ChatID string
}

func (effJoinChat) isChatEffect() {}

type effEmitTyping struct {
	actor.EffectBase
	ChatID string
}

func (effEmitTyping) isChatEffect() {}

type effEmitStopTyping struct {
	actor.EffectBase
	ChatID string
}

func (effEmitStopTyping) isChatEffect() {}

type effStartTimer struct {
	actor.EffectBase
	Name    string
	AfterMs int64
}

func (effStartTimer) isChatEffect() {}

type effCancelTimer struct {
	actor.EffectBase
	Name string
}

func (effCancelTimer) isChatEffect() {}

// effPersistCurrentChat durably records the active conversation so it can be
// restored on relaunch.
type effPersistCurrentChat struct {
	actor.EffectBase
	ChatID string
	Name   string
	Group  bool
}

func (effPersistCurrentChat) isChatEffect() {}

type effClearCurrentChat struct {
	actor.EffectBase
}

func (effClearCurrentChat) isChatEffect() {}

// effNotify raises an out-of-app notification for a message received in a
// non-active conversation.
type effNotify struct {
	actor.EffectBase
	ChatID string
	Title  string
	Body   string
}

func (effNotify) isChatEffect() {}
