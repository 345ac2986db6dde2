package chat

import (
	"context"
	"sync"
	"time"

	"github.com/hishamahammedkm/taza-chat-cli/internal/actor"
	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
	"github.com/hishamahammedkm/taza-chat-cli/internal/logger"
	"github.com/hishamahammedkm/taza-chat-cli/internal/notify"
	"github.com/hishamahammedkm/taza-chat-cli/internal/storage"
)

// EventChannel is the outgoing side of the push transport the runtime needs.
// *socket.Client satisfies it.
type EventChannel interface {
	JoinChat(chatID string) error
	EmitTyping(chatID string) error
	EmitStopTyping(chatID string) error
}

// Runtime interprets synchronizer effects: REST calls, socket emits, timers,
// and local persistence.
//
// Network-bound effects run on their own goroutines and re-enter the actor
// loop as events; the runtime never mutates synchronizer state directly.
type Runtime struct {
	api      *api.Client
	channel  EventChannel
	home     string
	secret   *[32]byte
	notifier notify.Notifier

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewRuntime returns a Runtime backed by the given collaborators. channel may
// be nil before the event channel connects; notifier may be nil.
func NewRuntime(apiClient *api.Client, channel EventChannel, home string, secret *[32]byte, notifier notify.Notifier) *Runtime {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Runtime{
		api:      apiClient,
		channel:  channel,
		home:     home,
		secret:   secret,
		notifier: notifier,
		timers:   make(map[string]*time.Timer),
	}
}

// SetChannel swaps the event channel, e.g. after a reconnect created a new
// socket client.
func (r *Runtime) SetChannel(channel EventChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel = channel
}

// HandleEffects implements actor.Runtime.
func (r *Runtime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	for _, eff := range effects {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch e := eff.(type) {
		case effFetchChats:
			go r.fetchChats(ctx, emit)
		case effFetchHistory:
			go r.fetchHistory(ctx, e, emit)
		case effSendMessage:
			go r.sendMessage(ctx, e, emit)
		case effDeleteMessage:
			go r.deleteMessage(ctx, e, emit)
		case effFetchLastMessage:
			go r.fetchLastMessage(ctx, e, emit)
		case effJoinChat:
			r.joinChat(e)
		case effEmitTyping:
			r.emitTyping(e)
		case effEmitStopTyping:
			r.emitStopTyping(e)
		case effStartTimer:
			r.startTimer(e, emit)
		case effCancelTimer:
			r.cancelTimer(e.Name)
		case effPersistCurrentChat:
			r.persistCurrentChat(e)
		case effClearCurrentChat:
			r.clearCurrentChat()
		case effNotify:
			go r.sendNotification(ctx, e)
		default:
			// Unknown effect: ignore.
		}
	}
}

// Stop implements actor.Runtime.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, t := range r.timers {
		t.Stop()
		delete(r.timers, name)
	}
}

func (r *Runtime) fetchChats(ctx context.Context, emit func(actor.Input)) {
	chats, err := r.api.Chats(ctx)
	if err != nil {
		logger.Warnf("chat: conversation list fetch failed: %v", err)
	}
	emit(evChatsLoaded{Chats: chats, Err: err})
}

func (r *Runtime) fetchHistory(ctx context.Context, eff effFetchHistory, emit func(actor.Input)) {
	messages, err := r.api.Messages(ctx, eff.ChatID)
	if err != nil {
		logger.Warnf("chat: history fetch for %s failed: %v", eff.ChatID, err)
	}
	emit(evHistoryLoaded{ChatID: eff.ChatID, Gen: eff.Gen, Messages: messages, Err: err})
}

func (r *Runtime) sendMessage(ctx context.Context, eff effSendMessage, emit func(actor.Input)) {
	msg, err := r.api.SendMessage(ctx, eff.ChatID, eff.Content, eff.Attachments)
	if err != nil {
		logger.Warnf("chat: send in %s failed: %v", eff.ChatID, err)
	}
	emit(evSendCompleted{TempID: eff.TempID, Message: msg, Err: err})
}

func (r *Runtime) deleteMessage(ctx context.Context, eff effDeleteMessage, emit func(actor.Input)) {
	msg, err := r.api.DeleteMessage(ctx, eff.ChatID, eff.MessageID)
	if err != nil {
		logger.Warnf("chat: delete %s failed: %v", eff.MessageID, err)
	}
	emit(evDeleteCompleted{ChatID: eff.ChatID, MessageID: eff.MessageID, Message: msg, Err: err})
}

func (r *Runtime) fetchLastMessage(ctx context.Context, eff effFetchLastMessage, emit func(actor.Input)) {
	messages, err := r.api.Messages(ctx, eff.ChatID)
	if err != nil {
		logger.Warnf("chat: last-message fetch for %s failed: %v", eff.ChatID, err)
		emit(evLastMessageFetched{ChatID: eff.ChatID, Err: err})
		return
	}
	var last *api.Message
	if len(messages) > 0 {
		// History is newest first.
		last = &messages[0]
	}
	emit(evLastMessageFetched{ChatID: eff.ChatID, Message: last})
}

func (r *Runtime) joinChat(eff effJoinChat) {
	r.mu.Lock()
	channel := r.channel
	r.mu.Unlock()
	if channel == nil {
		return
	}
	if err := channel.JoinChat(eff.ChatID); err != nil {
		logger.Warnf("chat: joinChat %s failed: %v", eff.ChatID, err)
	}
}

func (r *Runtime) emitTyping(eff effEmitTyping) {
	r.mu.Lock()
	channel := r.channel
	r.mu.Unlock()
	if channel == nil {
		return
	}
	if err := channel.EmitTyping(eff.ChatID); err != nil {
		logger.Debugf("chat: typing emit failed: %v", err)
	}
}

func (r *Runtime) emitStopTyping(eff effEmitStopTyping) {
	r.mu.Lock()
	channel := r.channel
	r.mu.Unlock()
	if channel == nil {
		return
	}
	if err := channel.EmitStopTyping(eff.ChatID); err != nil {
		logger.Debugf("chat: stopTyping emit failed: %v", err)
	}
}

func (r *Runtime) startTimer(eff effStartTimer, emit func(actor.Input)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.timers[eff.Name]; ok {
		prev.Stop()
	}
	name := eff.Name
	r.timers[name] = time.AfterFunc(time.Duration(eff.AfterMs)*time.Millisecond, func() {
		r.mu.Lock()
		delete(r.timers, name)
		r.mu.Unlock()
		emit(evTimerFired{Name: name})
	})
}

func (r *Runtime) cancelTimer(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[name]; ok {
		t.Stop()
		delete(r.timers, name)
	}
}

func (r *Runtime) persistCurrentChat(eff effPersistCurrentChat) {
	if r.home == "" || r.secret == nil {
		return
	}
	rec := storage.CurrentChatRecord{
		ChatID:      eff.ChatID,
		Name:        eff.Name,
		IsGroupChat: eff.Group,
	}
	if err := storage.SaveCurrentChat(r.home, r.secret, rec); err != nil {
		logger.Warnf("chat: persisting current chat failed: %v", err)
	}
}

func (r *Runtime) clearCurrentChat() {
	if r.home == "" {
		return
	}
	if err := storage.ClearCurrentChat(r.home); err != nil {
		logger.Warnf("chat: clearing current chat failed: %v", err)
	}
}

func (r *Runtime) sendNotification(ctx context.Context, eff effNotify) {
	if err := r.notifier.MessageReceived(ctx, eff.ChatID, eff.Title, eff.Body); err != nil {
		logger.Debugf("chat: notification failed: %v", err)
	}
}
