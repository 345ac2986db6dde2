package chat

import (
	"strings"

	"github.com/hishamahammedkm/taza-chat-cli/internal/actor"
	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
)

// Reduce is the synchronizer reducer. It is pure: clocks, random ids, and all
// I/O are injected through inputs and interpreted through effects.
func Reduce(state State, input actor.Input) (State, []actor.Effect) {
	switch in := input.(type) {
	case cmdLoadChats:
		return reduceLoadChats(state, in)
	case cmdOpenChat:
		return reduceOpenChat(state, in)
	case cmdCloseChat:
		return reduceCloseChat(state)
	case cmdSendMessage:
		return reduceSendMessage(state, in)
	case cmdRetrySend:
		return reduceRetrySend(state, in)
	case cmdDeleteMessage:
		return reduceDeleteMessage(state, in)
	case cmdKeystroke:
		return reduceKeystroke(state, in)
	case cmdMarkRead:
		delete(state.Unread, in.ChatID)
		return state, nil

	case evConnected:
		return reduceConnected(state)
	case evDisconnected:
		return reduceDisconnected(state)
	case evChatsLoaded:
		return reduceChatsLoaded(state, in)
	case evHistoryLoaded:
		return reduceHistoryLoaded(state, in)
	case evSendCompleted:
		return reduceSendCompleted(state, in)
	case evDeleteCompleted:
		return reduceDeleteCompleted(state, in)
	case evLastMessageFetched:
		return reduceLastMessageFetched(state, in)
	case evMessageReceived:
		return reduceMessageReceived(state, in)
	case evMessageDeleted:
		return applyMessageDeleted(state, in.Message.ChatID, in.Message.ID)
	case evTypingReceived:
		state.PeerTyping[in.ChatID] = true
		return state, nil
	case evStopTypingReceived:
		delete(state.PeerTyping, in.ChatID)
		return state, nil
	case evNewChat:
		return reduceNewChat(state, in)
	case evChatLeft:
		return reduceChatLeft(state, in)
	case evGroupNameUpdated:
		return reduceGroupNameUpdated(state, in)
	case evTimerFired:
		return reduceTimerFired(state, in)
	default:
		return state, nil
	}
}

func reduceLoadChats(state State, cmd cmdLoadChats) (State, []actor.Effect) {
	// Only keep the latest pending reply; list refreshes are idempotent.
	state.PendingLoadReply = cmd.Reply
	return state, []actor.Effect{effFetchChats{}}
}

func reduceOpenChat(state State, cmd cmdOpenChat) (State, []actor.Effect) {
	if cmd.ChatID == "" {
		completeReply(cmd.Reply, ErrUnknownChat)
		return state, nil
	}

	// Reopening the active conversation is idempotent but still clears unread.
	if cmd.ChatID == state.ActiveChatID {
		delete(state.Unread, cmd.ChatID)
		completeReply(cmd.Reply, nil)
		return state, nil
	}

	var effects []actor.Effect
	if prev := state.ActiveChatID; prev != "" {
		var stopEffects []actor.Effect
		state, stopEffects = stopSelfTyping(state, prev)
		effects = append(effects, stopEffects...)
	}
	state = supersedePendingOpen(state)

	state.ActiveChatID = cmd.ChatID
	delete(state.Unread, cmd.ChatID)

	name := cmd.Name
	group := cmd.Group
	if chat, ok := state.ChatByID(cmd.ChatID); ok {
		name = chat.Name
		group = chat.IsGroupChat
	}
	effects = append(effects,
		effJoinChat{ChatID: cmd.ChatID},
		effPersistCurrentChat{ChatID: cmd.ChatID, Name: name, Group: group},
	)

	if len(state.Timelines[cmd.ChatID]) == 0 {
		state.HistoryGen++
		state.PendingOpenReply = cmd.Reply
		effects = append(effects, effFetchHistory{ChatID: cmd.ChatID, Gen: state.HistoryGen})
	} else {
		completeReply(cmd.Reply, nil)
	}
	return state, effects
}

func reduceCloseChat(state State) (State, []actor.Effect) {
	if state.ActiveChatID == "" {
		return state, nil
	}
	state, effects := stopSelfTyping(state, state.ActiveChatID)
	state = supersedePendingOpen(state)
	state.ActiveChatID = ""
	effects = append(effects, effClearCurrentChat{})
	return state, effects
}

func reduceSendMessage(state State, cmd cmdSendMessage) (State, []actor.Effect) {
	if strings.TrimSpace(cmd.Content) == "" && len(cmd.Attachments) == 0 {
		completeReply(cmd.Reply, ErrEmptyMessage)
		return state, nil
	}
	if cmd.TempID == "" {
		completeReply(cmd.Reply, ErrUnknownSend)
		return state, nil
	}

	provisional := api.Message{
		ID:          cmd.TempID,
		ChatID:      cmd.ChatID,
		Sender:      cmd.Sender,
		Content:     cmd.Content,
		Attachments: cmd.Attachments,
		CreatedAt:   cmd.NowISO,
	}

	state.Timelines[cmd.ChatID], _ = prependIfAbsent(state.Timelines[cmd.ChatID], provisional)
	state.PendingSends[cmd.TempID] = pendingSend{
		ChatID:  cmd.ChatID,
		Message: provisional,
		Reply:   cmd.Reply,
	}

	state, effects := upsertOnActivity(state, cmd.ChatID, provisional)

	// Sending counts as "stopped typing".
	var stopEffects []actor.Effect
	state, stopEffects = stopSelfTyping(state, cmd.ChatID)
	effects = append(effects, stopEffects...)

	effects = append(effects, effSendMessage{
		TempID:      cmd.TempID,
		ChatID:      cmd.ChatID,
		Content:     cmd.Content,
		Attachments: cmd.Attachments,
	})
	return state, effects
}

func reduceRetrySend(state State, cmd cmdRetrySend) (State, []actor.Effect) {
	pend, ok := state.FailedSends[cmd.TempID]
	if !ok {
		completeReply(cmd.Reply, ErrUnknownSend)
		return state, nil
	}
	delete(state.FailedSends, cmd.TempID)
	pend.Reply = cmd.Reply
	state.PendingSends[cmd.TempID] = pend

	return state, []actor.Effect{effSendMessage{
		TempID:      cmd.TempID,
		ChatID:      pend.ChatID,
		Content:     pend.Message.Content,
		Attachments: pend.Message.Attachments,
	}}
}

func reduceSendCompleted(state State, ev evSendCompleted) (State, []actor.Effect) {
	pend, ok := state.PendingSends[ev.TempID]
	if !ok {
		return state, nil
	}
	delete(state.PendingSends, ev.TempID)

	if ev.Err != nil {
		// Keep the provisional entry visible, marked failed, for manual retry.
		state.FailedSends[ev.TempID] = pend
		completeReply(pend.Reply, &SendFailedError{TempID: ev.TempID, Err: ev.Err})
		return state, nil
	}

	timeline := state.Timelines[pend.ChatID]
	if containsID(timeline, ev.Message.ID) {
		// The server echo already landed; drop the provisional entry.
		timeline, _ = removeMessage(timeline, ev.TempID)
	} else {
		for i := range timeline {
			if timeline[i].ID == ev.TempID {
				timeline[i] = ev.Message
				break
			}
		}
	}
	state.Timelines[pend.ChatID] = timeline

	for i := range state.Chats {
		c := &state.Chats[i]
		if c.ID == pend.ChatID && c.LastMessage != nil && c.LastMessage.ID == ev.TempID {
			confirmed := ev.Message
			c.LastMessage = &confirmed
		}
	}

	completeReply(pend.Reply, nil)
	return state, nil
}

func reduceDeleteMessage(state State, cmd cmdDeleteMessage) (State, []actor.Effect) {
	if cmd.MessageID == "" {
		completeReply(cmd.Reply, ErrUnknownChat)
		return state, nil
	}
	// No optimistic removal; the message stays until the server confirms.
	state.PendingDeletes[cmd.MessageID] = cmd.Reply
	return state, []actor.Effect{effDeleteMessage{ChatID: cmd.ChatID, MessageID: cmd.MessageID}}
}

func reduceDeleteCompleted(state State, ev evDeleteCompleted) (State, []actor.Effect) {
	reply := state.PendingDeletes[ev.MessageID]
	delete(state.PendingDeletes, ev.MessageID)

	if ev.Err != nil {
		completeReply(reply, ev.Err)
		return state, nil
	}
	state, effects := applyMessageDeleted(state, ev.ChatID, ev.MessageID)
	completeReply(reply, nil)
	return state, effects
}

// applyMessageDeleted removes a message wherever it appears. A second delete
// for an already-absent message (local action racing a push event) is a no-op.
func applyMessageDeleted(state State, chatID, messageID string) (State, []actor.Effect) {
	if chatID == "" || messageID == "" {
		return state, nil
	}
	if tl, ok := state.Timelines[chatID]; ok {
		state.Timelines[chatID], _ = removeMessage(tl, messageID)
	}
	if set, ok := state.Unread[chatID]; ok {
		delete(set, messageID)
		if len(set) == 0 {
			delete(state.Unread, chatID)
		}
	}

	var effects []actor.Effect
	for i := range state.Chats {
		c := &state.Chats[i]
		if c.ID == chatID && c.LastMessage != nil && c.LastMessage.ID == messageID {
			// The preview pointer is gone; the local timeline for a non-active
			// chat is not guaranteed loaded, so re-derive from the service.
			c.LastMessage = nil
			effects = append(effects, effFetchLastMessage{ChatID: chatID})
		}
	}
	return state, effects
}

func reduceLastMessageFetched(state State, ev evLastMessageFetched) (State, []actor.Effect) {
	if ev.Err != nil {
		return state, nil
	}
	for i := range state.Chats {
		if state.Chats[i].ID == ev.ChatID {
			state.Chats[i].LastMessage = ev.Message
		}
	}
	return state, nil
}

func reduceMessageReceived(state State, ev evMessageReceived) (State, []actor.Effect) {
	msg := ev.Message
	if msg.ID == "" || msg.ChatID == "" {
		return state, nil
	}

	if msg.ChatID == state.ActiveChatID {
		timeline, added := prependIfAbsent(state.Timelines[msg.ChatID], msg)
		state.Timelines[msg.ChatID] = timeline
		if !added {
			// Duplicate echo (e.g. our own confirmed send broadcast back).
			return state, nil
		}
	} else {
		if msg.Sender.ID != state.SelfID {
			set := state.Unread[msg.ChatID]
			if set == nil {
				set = make(map[string]struct{})
				state.Unread[msg.ChatID] = set
			}
			set[msg.ID] = struct{}{}
		}
		// Keep a cached timeline coherent if we have one.
		if tl := state.Timelines[msg.ChatID]; len(tl) > 0 {
			state.Timelines[msg.ChatID], _ = prependIfAbsent(tl, msg)
		}
	}

	state, effects := upsertOnActivity(state, msg.ChatID, msg)

	if msg.ChatID != state.ActiveChatID && msg.Sender.ID != state.SelfID {
		effects = append(effects, effNotify{
			ChatID: msg.ChatID,
			Title:  notifyTitle(state, msg),
			Body:   notifyBody(msg),
		})
	}
	return state, effects
}

func reduceConnected(state State) (State, []actor.Effect) {
	state.Connected = true

	// No replay or gap-filling from the channel; refetch what we display.
	effects := []actor.Effect{effFetchChats{}}
	if state.ActiveChatID != "" {
		state.HistoryGen++
		effects = append(effects,
			effJoinChat{ChatID: state.ActiveChatID},
			effFetchHistory{ChatID: state.ActiveChatID, Gen: state.HistoryGen},
		)
	}
	return state, effects
}

func reduceDisconnected(state State) (State, []actor.Effect) {
	state.Connected = false

	// Peer typing indicators are ephemeral; drop them rather than show stale
	// composing state across an outage.
	state.PeerTyping = make(map[string]bool)

	var effects []actor.Effect
	for chatID := range state.SelfTyping {
		effects = append(effects, effCancelTimer{Name: typingTimerName(chatID)})
	}
	state.SelfTyping = make(map[string]bool)
	return state, effects
}

func reduceChatsLoaded(state State, ev evChatsLoaded) (State, []actor.Effect) {
	reply := state.PendingLoadReply
	state.PendingLoadReply = nil

	if ev.Err != nil {
		completeReply(reply, ev.Err)
		return state, nil
	}
	// The service returns the list in last-activity order already.
	state.Chats = ev.Chats
	completeReply(reply, nil)
	return state, nil
}

func reduceHistoryLoaded(state State, ev evHistoryLoaded) (State, []actor.Effect) {
	// A fetch issued for a previously active conversation must not overwrite
	// the current one.
	if ev.Gen != state.HistoryGen || ev.ChatID != state.ActiveChatID {
		return state, nil
	}

	reply := state.PendingOpenReply
	state.PendingOpenReply = nil

	if ev.Err != nil {
		completeReply(reply, ev.Err)
		return state, nil
	}

	timeline := make([]api.Message, 0, len(ev.Messages))
	seen := make(map[string]struct{}, len(ev.Messages))
	for _, msg := range ev.Messages {
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		timeline = append(timeline, msg)
	}

	// Provisional sends not yet confirmed stay visible on top of the fetch.
	for _, pend := range state.PendingSends {
		if pend.ChatID == ev.ChatID {
			timeline, _ = prependIfAbsent(timeline, pend.Message)
		}
	}
	for _, pend := range state.FailedSends {
		if pend.ChatID == ev.ChatID {
			timeline, _ = prependIfAbsent(timeline, pend.Message)
		}
	}

	state.Timelines[ev.ChatID] = timeline
	completeReply(reply, nil)
	return state, nil
}

func reduceKeystroke(state State, cmd cmdKeystroke) (State, []actor.Effect) {
	if cmd.ChatID == "" {
		return state, nil
	}

	var effects []actor.Effect
	if !state.SelfTyping[cmd.ChatID] {
		state.SelfTyping[cmd.ChatID] = true
		effects = append(effects, effEmitTyping{ChatID: cmd.ChatID})
	}
	// Every keystroke resets (never stacks) the stop timer.
	name := typingTimerName(cmd.ChatID)
	effects = append(effects,
		effCancelTimer{Name: name},
		effStartTimer{Name: name, AfterMs: typingTimeoutMs},
	)
	return state, effects
}

func reduceTimerFired(state State, ev evTimerFired) (State, []actor.Effect) {
	if !strings.HasPrefix(ev.Name, typingTimerPrefix) {
		return state, nil
	}
	chatID := strings.TrimPrefix(ev.Name, typingTimerPrefix)
	if !state.SelfTyping[chatID] {
		return state, nil
	}
	delete(state.SelfTyping, chatID)
	return state, []actor.Effect{effEmitStopTyping{ChatID: chatID}}
}

func reduceNewChat(state State, ev evNewChat) (State, []actor.Effect) {
	if ev.Chat.ID == "" {
		return state, nil
	}
	if _, ok := state.ChatByID(ev.Chat.ID); ok {
		return state, nil
	}
	next := make([]api.Chat, 0, len(state.Chats)+1)
	next = append(next, ev.Chat)
	next = append(next, state.Chats...)
	state.Chats = next
	return state, nil
}

func reduceChatLeft(state State, ev evChatLeft) (State, []actor.Effect) {
	chatID := ev.Chat.ID
	if chatID == "" {
		return state, nil
	}

	next := state.Chats[:0:0]
	for _, c := range state.Chats {
		if c.ID != chatID {
			next = append(next, c)
		}
	}
	state.Chats = next

	delete(state.Timelines, chatID)
	delete(state.Unread, chatID)
	delete(state.PeerTyping, chatID)

	state, effects := stopSelfTyping(state, chatID)
	if state.ActiveChatID == chatID {
		state = supersedePendingOpen(state)
		state.ActiveChatID = ""
		effects = append(effects, effClearCurrentChat{})
	}
	return state, effects
}

func reduceGroupNameUpdated(state State, ev evGroupNameUpdated) (State, []actor.Effect) {
	// Rename updates in place; it is not activity, so no reordering.
	for i := range state.Chats {
		if state.Chats[i].ID == ev.Chat.ID {
			state.Chats[i].Name = ev.Chat.Name
		}
	}
	return state, nil
}

// upsertOnActivity moves the conversation to the front of the list and points
// its preview at msg. An unknown conversation (brand-new chat pushed before we
// heard about it) triggers a list refresh instead.
func upsertOnActivity(state State, chatID string, msg api.Message) (State, []actor.Effect) {
	idx := -1
	for i, c := range state.Chats {
		if c.ID == chatID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return state, []actor.Effect{effFetchChats{}}
	}

	chat := state.Chats[idx]
	last := msg
	chat.LastMessage = &last
	if msg.CreatedAt != "" {
		chat.UpdatedAt = msg.CreatedAt
	}

	next := make([]api.Chat, 0, len(state.Chats))
	next = append(next, chat)
	next = append(next, state.Chats[:idx]...)
	next = append(next, state.Chats[idx+1:]...)
	state.Chats = next
	return state, nil
}

// supersedePendingOpen fails an in-flight open's reply promptly instead of
// leaving its caller to wait out a context deadline. The fetch itself keeps
// running; its response is discarded by the generation check.
func supersedePendingOpen(state State) State {
	if state.PendingOpenReply != nil {
		completeReply(state.PendingOpenReply, ErrOpenSuperseded)
		state.PendingOpenReply = nil
	}
	return state
}

// stopSelfTyping clears the outgoing typing flag for a chat, cancelling its
// timer and emitting stopTyping if the flag was active.
func stopSelfTyping(state State, chatID string) (State, []actor.Effect) {
	if !state.SelfTyping[chatID] {
		return state, nil
	}
	delete(state.SelfTyping, chatID)
	return state, []actor.Effect{
		effCancelTimer{Name: typingTimerName(chatID)},
		effEmitStopTyping{ChatID: chatID},
	}
}

func prependIfAbsent(timeline []api.Message, msg api.Message) ([]api.Message, bool) {
	if containsID(timeline, msg.ID) {
		return timeline, false
	}
	next := make([]api.Message, 0, len(timeline)+1)
	next = append(next, msg)
	next = append(next, timeline...)
	return next, true
}

func removeMessage(timeline []api.Message, messageID string) ([]api.Message, bool) {
	for i := range timeline {
		if timeline[i].ID == messageID {
			next := make([]api.Message, 0, len(timeline)-1)
			next = append(next, timeline[:i]...)
			next = append(next, timeline[i+1:]...)
			return next, true
		}
	}
	return timeline, false
}

func containsID(timeline []api.Message, messageID string) bool {
	for _, m := range timeline {
		if m.ID == messageID {
			return true
		}
	}
	return false
}

func notifyTitle(state State, msg api.Message) string {
	if chat, ok := state.ChatByID(msg.ChatID); ok && chat.IsGroupChat && chat.Name != "" {
		return chat.Name
	}
	if msg.Sender.Username != "" {
		return msg.Sender.Username
	}
	return "New message"
}

func notifyBody(msg api.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	if n := len(msg.Attachments); n == 1 {
		return "sent an attachment"
	} else if n > 1 {
		return "sent attachments"
	}
	return "sent a message"
}

func completeReply(reply chan error, err error) {
	if reply == nil {
		return
	}
	select {
	case reply <- err:
	default:
	}
}
