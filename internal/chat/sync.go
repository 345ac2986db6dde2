package chat

import (
	"context"

	"github.com/hishamahammedkm/taza-chat-cli/internal/actor"
	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
	"github.com/hishamahammedkm/taza-chat-cli/internal/logger"
)

// Listener observes synchronizer transitions. All callbacks run on the actor
// loop goroutine and must return quickly.
type Listener interface {
	// ChatsUpdated fires whenever the conversation list changes shape or order.
	ChatsUpdated(chats []api.Chat)
	// MessageReceived fires for every pushed message that was merged.
	MessageReceived(msg api.Message, active bool)
	// MessageDeleted fires when a message is removed from local state.
	MessageDeleted(chatID, messageID string)
	// TypingChanged fires when a peer starts or stops composing.
	TypingChanged(chatID string, typing bool)
}

// Synchronizer is the blocking facade over the conversation state actor.
//
// Commands enqueue inputs and wait on reply channels; the single actor loop
// serializes them with pushed server events so there is exactly one writer of
// conversation state.
type Synchronizer struct {
	actor    *actor.Actor[State]
	listener Listener
}

// NewSynchronizer builds a synchronizer for the local user on top of the
// given runtime. listener may be nil.
func NewSynchronizer(selfID string, runtime actor.Runtime, listener Listener) *Synchronizer {
	s := &Synchronizer{listener: listener}

	hooks := actor.Hooks[State]{
		OnTransition: s.notifyListener,
		OnPanic: func(recovered any) {
			logger.Errorf("chat: synchronizer loop panic: %v", recovered)
		},
	}
	s.actor = actor.New(NewState(selfID), Reduce, runtime, actor.WithHooks(hooks))
	return s
}

// Start launches the synchronizer loop.
func (s *Synchronizer) Start() { s.actor.Start() }

// Stop shuts the loop down and stops the runtime.
func (s *Synchronizer) Stop() { s.actor.Stop() }

// Done returns a channel that closes when the loop exits.
func (s *Synchronizer) Done() <-chan struct{} { return s.actor.Done() }

// Deliver enqueues an input built with this package's constructors. It is the
// entry point for event-channel payloads decoded by the owner.
func (s *Synchronizer) Deliver(input actor.Input) bool {
	return s.actor.Enqueue(input)
}

// Snapshot returns a deep copy of the current state for display. The copy is
// detached from the loop, so callers may read it at leisure while the actor
// keeps processing events.
func (s *Synchronizer) Snapshot() State {
	var snap State
	s.actor.Read(func(state State) {
		snap = state.clone()
	})
	return snap
}

// LoadChats refreshes the conversation list and returns it.
func (s *Synchronizer) LoadChats(ctx context.Context) ([]api.Chat, error) {
	reply := make(chan error, 1)
	if !s.actor.Enqueue(LoadChats(reply)) {
		return nil, actor.ErrStopped
	}
	if err := s.await(ctx, reply); err != nil {
		return nil, err
	}
	return s.Snapshot().Chats, nil
}

// Open makes a conversation active, joining its event room and loading its
// history if not cached.
func (s *Synchronizer) Open(ctx context.Context, chatID, name string, group bool) error {
	reply := make(chan error, 1)
	if !s.actor.Enqueue(OpenChat(chatID, name, group, reply)) {
		return actor.ErrStopped
	}
	return s.await(ctx, reply)
}

// Close clears the active conversation pointer.
func (s *Synchronizer) Close() {
	s.actor.Enqueue(CloseChat())
}

// Send issues an optimistic send and waits for server confirmation. On
// failure the returned error is a *SendFailedError carrying the temporary id
// for manual retry; the provisional message stays visible.
func (s *Synchronizer) Send(ctx context.Context, chatID, content string, attachments []api.Attachment, sender api.User) (string, error) {
	reply := make(chan error, 1)
	input, tempID := SendMessage(chatID, content, attachments, sender, reply)
	if !s.actor.Enqueue(input) {
		return "", actor.ErrStopped
	}
	return tempID, s.await(ctx, reply)
}

// Retry re-issues a failed optimistic send.
func (s *Synchronizer) Retry(ctx context.Context, tempID string) error {
	reply := make(chan error, 1)
	if !s.actor.Enqueue(RetrySend(tempID, reply)) {
		return actor.ErrStopped
	}
	return s.await(ctx, reply)
}

// Delete removes a message server-side, then locally on confirmation.
func (s *Synchronizer) Delete(ctx context.Context, chatID, messageID string) error {
	reply := make(chan error, 1)
	if !s.actor.Enqueue(DeleteMessage(chatID, messageID, reply)) {
		return actor.ErrStopped
	}
	return s.await(ctx, reply)
}

// Keystroke records composer activity, driving the outgoing typing signal.
func (s *Synchronizer) Keystroke(chatID string) {
	s.actor.Enqueue(Keystroke(chatID))
}

// MarkRead clears a chat's unread count without opening it.
func (s *Synchronizer) MarkRead(chatID string) {
	s.actor.Enqueue(MarkRead(chatID))
}

func (s *Synchronizer) await(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.actor.Done():
		return actor.ErrStopped
	}
}

// notifyListener translates transitions into listener callbacks. The input
// that caused the transition tells us what changed without diffing state.
func (s *Synchronizer) notifyListener(prev State, next State, input actor.Input) {
	if s.listener == nil {
		return
	}
	switch in := input.(type) {
	case evMessageReceived:
		s.listener.MessageReceived(in.Message, in.Message.ChatID == next.ActiveChatID)
	case evMessageDeleted:
		s.listener.MessageDeleted(in.Message.ChatID, in.Message.ID)
	case evDeleteCompleted:
		if in.Err == nil {
			s.listener.MessageDeleted(in.ChatID, in.MessageID)
		}
	case evTypingReceived:
		s.listener.TypingChanged(in.ChatID, true)
	case evStopTypingReceived:
		s.listener.TypingChanged(in.ChatID, false)
	case evChatsLoaded:
		if in.Err == nil {
			s.listener.ChatsUpdated(next.Chats)
		}
	case evNewChat, evChatLeft, evGroupNameUpdated:
		s.listener.ChatsUpdated(next.Chats)
	}
}
