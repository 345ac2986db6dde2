package chat

import (
	"errors"
	"testing"

	"github.com/hishamahammedkm/taza-chat-cli/internal/actor"
	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
)

func msg(id, chatID, senderID, content string) api.Message {
	return api.Message{
		ID:        id,
		ChatID:    chatID,
		Sender:    api.User{ID: senderID, Username: senderID},
		Content:   content,
		CreatedAt: "2026-08-30T10:00:00.000Z",
	}
}

func seedState(chatIDs ...string) State {
	state := NewState("me")
	for _, id := range chatIDs {
		state.Chats = append(state.Chats, api.Chat{ID: id, Name: "chat-" + id})
	}
	return state
}

func effectTypes(effects []actor.Effect) []string {
	var out []string
	for _, eff := range effects {
		switch eff.(type) {
		case effFetchChats:
			out = append(out, "fetchChats")
		case effFetchHistory:
			out = append(out, "fetchHistory")
		case effSendMessage:
			out = append(out, "sendMessage")
		case effDeleteMessage:
			out = append(out, "deleteMessage")
		case effFetchLastMessage:
			out = append(out, "fetchLastMessage")
		case effJoinChat:
			out = append(out, "joinChat")
		case effEmitTyping:
			out = append(out, "emitTyping")
		case effEmitStopTyping:
			out = append(out, "emitStopTyping")
		case effStartTimer:
			out = append(out, "startTimer")
		case effCancelTimer:
			out = append(out, "cancelTimer")
		case effPersistCurrentChat:
			out = append(out, "persistCurrentChat")
		case effClearCurrentChat:
			out = append(out, "clearCurrentChat")
		case effNotify:
			out = append(out, "notify")
		default:
			out = append(out, "unknown")
		}
	}
	return out
}

func countEffect(effects []actor.Effect, name string) int {
	n := 0
	for _, t := range effectTypes(effects) {
		if t == name {
			n++
		}
	}
	return n
}

func TestReceiveIsIdempotentInActiveTimeline(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state.ActiveChatID = "A"

	m := msg("m1", "A", "peer", "hello")
	state, _ = Reduce(state, evMessageReceived{Message: m})
	state, _ = Reduce(state, evMessageReceived{Message: m})

	if got := len(state.Timelines["A"]); got != 1 {
		t.Fatalf("timeline length=%d, want 1", got)
	}
}

func TestReceiveMovesChatToFront(t *testing.T) {
	t.Parallel()

	state := seedState("A", "B", "C")
	state.ActiveChatID = "A"

	state, _ = Reduce(state, evMessageReceived{Message: msg("m1", "C", "peer", "yo")})

	if state.Chats[0].ID != "C" {
		t.Fatalf("front chat=%s, want C", state.Chats[0].ID)
	}
	if state.Chats[0].LastMessage == nil || state.Chats[0].LastMessage.ID != "m1" {
		t.Fatalf("last message not updated: %+v", state.Chats[0].LastMessage)
	}
}

func TestReceiveForUnknownChatRefreshesList(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	_, effects := Reduce(state, evMessageReceived{Message: msg("m1", "Z", "peer", "hi")})

	if countEffect(effects, "fetchChats") != 1 {
		t.Fatalf("expected a list refresh, got: %v", effectTypes(effects))
	}
}

func TestUnreadIncrementsOnlyForInactiveChats(t *testing.T) {
	t.Parallel()

	state := seedState("A", "B")
	state.ActiveChatID = "A"

	state, _ = Reduce(state, evMessageReceived{Message: msg("m1", "B", "peer", "one")})
	state, _ = Reduce(state, evMessageReceived{Message: msg("m2", "B", "peer", "two")})
	// Duplicate push must not double count.
	state, _ = Reduce(state, evMessageReceived{Message: msg("m2", "B", "peer", "two")})
	state, _ = Reduce(state, evMessageReceived{Message: msg("m3", "A", "peer", "active")})

	if got := state.UnreadCount("B"); got != 2 {
		t.Fatalf("unread B=%d, want 2", got)
	}
	if got := state.UnreadCount("A"); got != 0 {
		t.Fatalf("unread A=%d, want 0", got)
	}
}

func TestUnreadIgnoresOwnMessages(t *testing.T) {
	t.Parallel()

	state := seedState("A", "B")
	state.ActiveChatID = "A"

	state, effects := Reduce(state, evMessageReceived{Message: msg("m1", "B", "me", "from another device")})

	if got := state.UnreadCount("B"); got != 0 {
		t.Fatalf("unread B=%d, want 0", got)
	}
	if countEffect(effects, "notify") != 0 {
		t.Fatalf("own message must not notify: %v", effectTypes(effects))
	}
}

func TestOpenClearsUnreadAndFetchesHistory(t *testing.T) {
	t.Parallel()

	state := seedState("A", "B")
	state.ActiveChatID = "A"
	state, _ = Reduce(state, evMessageReceived{Message: msg("m1", "B", "peer", "hi")})

	reply := make(chan error, 1)
	state, effects := Reduce(state, cmdOpenChat{ChatID: "B", Reply: reply})

	if state.ActiveChatID != "B" {
		t.Fatalf("active=%s, want B", state.ActiveChatID)
	}
	if got := state.UnreadCount("B"); got != 0 {
		t.Fatalf("unread B=%d, want 0 after open", got)
	}
	if countEffect(effects, "joinChat") != 1 || countEffect(effects, "fetchHistory") != 1 {
		t.Fatalf("effects=%v", effectTypes(effects))
	}
	if countEffect(effects, "persistCurrentChat") != 1 {
		t.Fatalf("expected current chat persistence: %v", effectTypes(effects))
	}
	if state.HistoryGen != 1 {
		t.Fatalf("HistoryGen=%d, want 1", state.HistoryGen)
	}
}

func TestOpenWithCachedTimelineSkipsFetch(t *testing.T) {
	t.Parallel()

	state := seedState("A", "B")
	state.Timelines["B"] = []api.Message{msg("m1", "B", "peer", "cached")}

	reply := make(chan error, 1)
	_, effects := Reduce(state, cmdOpenChat{ChatID: "B", Reply: reply})

	if countEffect(effects, "fetchHistory") != 0 {
		t.Fatalf("unexpected history fetch: %v", effectTypes(effects))
	}
	select {
	case err := <-reply:
		if err != nil {
			t.Fatalf("reply err=%v, want nil", err)
		}
	default:
		t.Fatalf("expected immediate reply for cached open")
	}
}

func TestStaleHistoryResponseIsDiscarded(t *testing.T) {
	t.Parallel()

	state := seedState("A", "B")

	state, _ = Reduce(state, cmdOpenChat{ChatID: "A"})
	genA := state.HistoryGen
	state, _ = Reduce(state, cmdOpenChat{ChatID: "B"})

	// A's fetch resolves after B became active.
	state, _ = Reduce(state, evHistoryLoaded{
		ChatID:   "A",
		Gen:      genA,
		Messages: []api.Message{msg("a1", "A", "peer", "late")},
	})

	if len(state.Timelines["B"]) != 0 {
		t.Fatalf("B timeline polluted: %+v", state.Timelines["B"])
	}
	if len(state.Timelines["A"]) != 0 {
		t.Fatalf("stale A response applied: %+v", state.Timelines["A"])
	}

	// B's own fetch still lands.
	state, _ = Reduce(state, evHistoryLoaded{
		ChatID:   "B",
		Gen:      state.HistoryGen,
		Messages: []api.Message{msg("b1", "B", "peer", "fresh")},
	})
	if len(state.Timelines["B"]) != 1 || state.Timelines["B"][0].ID != "b1" {
		t.Fatalf("B timeline=%+v", state.Timelines["B"])
	}
}

func TestSupersededOpenFailsFast(t *testing.T) {
	t.Parallel()

	state := seedState("A", "B")

	replyA := make(chan error, 1)
	state, _ = Reduce(state, cmdOpenChat{ChatID: "A", Reply: replyA})
	genA := state.HistoryGen

	// Opening B while A's fetch is in flight must fail A's caller promptly,
	// not leave it waiting for a deadline.
	replyB := make(chan error, 1)
	state, _ = Reduce(state, cmdOpenChat{ChatID: "B", Reply: replyB})

	select {
	case err := <-replyA:
		if !errors.Is(err, ErrOpenSuperseded) {
			t.Fatalf("replyA err=%v, want ErrOpenSuperseded", err)
		}
	default:
		t.Fatalf("superseded open must be completed immediately")
	}

	// A's stale response neither completes B's reply nor applies.
	state, _ = Reduce(state, evHistoryLoaded{ChatID: "A", Gen: genA})
	select {
	case err := <-replyB:
		t.Fatalf("replyB completed early with %v", err)
	default:
	}

	state, _ = Reduce(state, evHistoryLoaded{ChatID: "B", Gen: state.HistoryGen})
	select {
	case err := <-replyB:
		if err != nil {
			t.Fatalf("replyB err=%v, want nil", err)
		}
	default:
		t.Fatalf("B's open must complete when its history lands")
	}
}

func TestCloseChatFailsPendingOpen(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	reply := make(chan error, 1)
	state, _ = Reduce(state, cmdOpenChat{ChatID: "A", Reply: reply})
	_, _ = Reduce(state, cmdCloseChat{})

	select {
	case err := <-reply:
		if !errors.Is(err, ErrOpenSuperseded) {
			t.Fatalf("reply err=%v, want ErrOpenSuperseded", err)
		}
	default:
		t.Fatalf("closing must complete the pending open")
	}
}

func TestHistoryLoadDeduplicatesAndKeepsPendingSends(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state, _ = Reduce(state, cmdOpenChat{ChatID: "A"})
	state, _ = Reduce(state, cmdSendMessage{
		ChatID: "A", Content: "hi", TempID: "tmp-1",
		Sender: api.User{ID: "me"}, NowISO: "2026-08-30T10:00:00.000Z",
	})

	state, _ = Reduce(state, evHistoryLoaded{
		ChatID: "A",
		Gen:    state.HistoryGen,
		Messages: []api.Message{
			msg("m2", "A", "peer", "two"),
			msg("m2", "A", "peer", "two"),
			msg("m1", "A", "peer", "one"),
		},
	})

	tl := state.Timelines["A"]
	if len(tl) != 3 {
		t.Fatalf("timeline length=%d, want 3 (tmp-1, m2, m1): %+v", len(tl), tl)
	}
	if tl[0].ID != "tmp-1" {
		t.Fatalf("pending send not on top: %+v", tl)
	}
}

func TestTypingBurstEmitsOnce(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state.ActiveChatID = "A"

	typingEmits := 0
	var allEffects []actor.Effect
	for i := 0; i < 10; i++ {
		var effects []actor.Effect
		state, effects = Reduce(state, cmdKeystroke{ChatID: "A"})
		typingEmits += countEffect(effects, "emitTyping")
		allEffects = append(allEffects, effects...)
	}

	if typingEmits != 1 {
		t.Fatalf("typing emissions=%d, want 1", typingEmits)
	}
	// Every keystroke resets the timer.
	if countEffect(allEffects, "startTimer") != 10 {
		t.Fatalf("timer starts=%d, want 10", countEffect(allEffects, "startTimer"))
	}

	state, effects := Reduce(state, evTimerFired{Name: typingTimerName("A")})
	if countEffect(effects, "emitStopTyping") != 1 {
		t.Fatalf("expected one stopTyping: %v", effectTypes(effects))
	}
	if state.SelfTyping["A"] {
		t.Fatalf("SelfTyping still set after timeout")
	}

	// A fire with no active flag is a no-op.
	_, effects = Reduce(state, evTimerFired{Name: typingTimerName("A")})
	if len(effects) != 0 {
		t.Fatalf("expected no effects, got %v", effectTypes(effects))
	}
}

func TestSendEmitsStopTyping(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state.ActiveChatID = "A"
	state, _ = Reduce(state, cmdKeystroke{ChatID: "A"})

	state, effects := Reduce(state, cmdSendMessage{
		ChatID: "A", Content: "hi", TempID: "tmp-1",
		Sender: api.User{ID: "me"}, NowISO: "2026-08-30T10:00:00.000Z",
	})

	if countEffect(effects, "emitStopTyping") != 1 {
		t.Fatalf("send must stop typing: %v", effectTypes(effects))
	}
	if state.SelfTyping["A"] {
		t.Fatalf("SelfTyping still set after send")
	}
}

func TestPeerTypingLifecycle(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state, _ = Reduce(state, evTypingReceived{ChatID: "A"})
	if !state.PeerTyping["A"] {
		t.Fatalf("PeerTyping not set")
	}
	state, _ = Reduce(state, evStopTypingReceived{ChatID: "A"})
	if state.PeerTyping["A"] {
		t.Fatalf("PeerTyping not cleared")
	}
}

func TestOptimisticSendConfirmReplacesTempID(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state.ActiveChatID = "A"

	reply := make(chan error, 1)
	state, effects := Reduce(state, cmdSendMessage{
		ChatID: "A", Content: "hi", TempID: "tmp-1",
		Sender: api.User{ID: "me"}, NowISO: "2026-08-30T10:00:00.000Z",
		Reply: reply,
	})
	if countEffect(effects, "sendMessage") != 1 {
		t.Fatalf("expected send effect: %v", effectTypes(effects))
	}
	if state.Timelines["A"][0].ID != "tmp-1" {
		t.Fatalf("provisional not prepended: %+v", state.Timelines["A"])
	}

	state, _ = Reduce(state, evSendCompleted{TempID: "tmp-1", Message: msg("srv-1", "A", "me", "hi")})

	tl := state.Timelines["A"]
	if len(tl) != 1 || tl[0].ID != "srv-1" {
		t.Fatalf("timeline=%+v, want single srv-1", tl)
	}
	if state.Chats[0].LastMessage == nil || state.Chats[0].LastMessage.ID != "srv-1" {
		t.Fatalf("preview not updated: %+v", state.Chats[0].LastMessage)
	}
	select {
	case err := <-reply:
		if err != nil {
			t.Fatalf("reply err=%v, want nil", err)
		}
	default:
		t.Fatalf("expected completed reply")
	}
}

func TestServerEchoBeforeConfirmDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state.ActiveChatID = "A"

	state, _ = Reduce(state, cmdSendMessage{
		ChatID: "A", Content: "hi", TempID: "tmp-1",
		Sender: api.User{ID: "me"}, NowISO: "2026-08-30T10:00:00.000Z",
	})
	// Broadcast echo lands before the REST confirmation.
	state, _ = Reduce(state, evMessageReceived{Message: msg("srv-1", "A", "me", "hi")})
	state, _ = Reduce(state, evSendCompleted{TempID: "tmp-1", Message: msg("srv-1", "A", "me", "hi")})

	tl := state.Timelines["A"]
	if len(tl) != 1 || tl[0].ID != "srv-1" {
		t.Fatalf("timeline=%+v, want single srv-1", tl)
	}
}

func TestFailedSendStaysVisibleAndRetries(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state.ActiveChatID = "A"

	reply := make(chan error, 1)
	state, _ = Reduce(state, cmdSendMessage{
		ChatID: "A", Content: "hi", TempID: "tmp-1",
		Sender: api.User{ID: "me"}, NowISO: "2026-08-30T10:00:00.000Z",
		Reply: reply,
	})
	state, _ = Reduce(state, evSendCompleted{TempID: "tmp-1", Err: api.ErrNetwork})

	var sendErr *SendFailedError
	select {
	case err := <-reply:
		if !errors.As(err, &sendErr) {
			t.Fatalf("err=%v, want *SendFailedError", err)
		}
		if sendErr.TempID != "tmp-1" {
			t.Fatalf("TempID=%s, want tmp-1", sendErr.TempID)
		}
	default:
		t.Fatalf("expected failed reply")
	}
	if state.Timelines["A"][0].ID != "tmp-1" {
		t.Fatalf("failed provisional must stay visible: %+v", state.Timelines["A"])
	}

	retryReply := make(chan error, 1)
	state, effects := Reduce(state, cmdRetrySend{TempID: "tmp-1", Reply: retryReply})
	if countEffect(effects, "sendMessage") != 1 {
		t.Fatalf("retry must re-issue send: %v", effectTypes(effects))
	}
	if _, ok := state.PendingSends["tmp-1"]; !ok {
		t.Fatalf("retry not tracked as pending")
	}

	// Retry for an unknown id fails fast.
	badReply := make(chan error, 1)
	_, _ = Reduce(state, cmdRetrySend{TempID: "tmp-404", Reply: badReply})
	select {
	case err := <-badReply:
		if !errors.Is(err, ErrUnknownSend) {
			t.Fatalf("err=%v, want ErrUnknownSend", err)
		}
	default:
		t.Fatalf("expected reply")
	}
}

func TestEmptySendIsRejected(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	reply := make(chan error, 1)
	_, effects := Reduce(state, cmdSendMessage{ChatID: "A", Content: "   ", TempID: "tmp-1", Reply: reply})

	if len(effects) != 0 {
		t.Fatalf("expected no effects: %v", effectTypes(effects))
	}
	select {
	case err := <-reply:
		if !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("err=%v, want ErrEmptyMessage", err)
		}
	default:
		t.Fatalf("expected reply")
	}
}

func TestDeleteIsNotOptimistic(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state.ActiveChatID = "A"
	state.Timelines["A"] = []api.Message{msg("m1", "A", "me", "hi")}

	reply := make(chan error, 1)
	state, effects := Reduce(state, cmdDeleteMessage{ChatID: "A", MessageID: "m1", Reply: reply})

	if countEffect(effects, "deleteMessage") != 1 {
		t.Fatalf("expected delete effect: %v", effectTypes(effects))
	}
	if len(state.Timelines["A"]) != 1 {
		t.Fatalf("message removed before server confirm")
	}

	// Failure keeps the message.
	state, _ = Reduce(state, evDeleteCompleted{ChatID: "A", MessageID: "m1", Err: api.ErrPermission})
	if len(state.Timelines["A"]) != 1 {
		t.Fatalf("message removed despite failed delete")
	}
	select {
	case err := <-reply:
		if !errors.Is(err, api.ErrPermission) {
			t.Fatalf("err=%v, want ErrPermission", err)
		}
	default:
		t.Fatalf("expected reply")
	}
}

func TestDeletingLastMessageRederivesPreview(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	last := msg("m2", "A", "peer", "newest")
	state.Chats[0].LastMessage = &last
	state.Timelines["A"] = []api.Message{last, msg("m1", "A", "peer", "older")}

	state, effects := Reduce(state, evMessageDeleted{Message: last})

	if countEffect(effects, "fetchLastMessage") != 1 {
		t.Fatalf("expected last-message re-derivation: %v", effectTypes(effects))
	}
	if containsID(state.Timelines["A"], "m2") {
		t.Fatalf("deleted message still in timeline")
	}

	older := msg("m1", "A", "peer", "older")
	state, _ = Reduce(state, evLastMessageFetched{ChatID: "A", Message: &older})
	if state.Chats[0].LastMessage == nil || state.Chats[0].LastMessage.ID != "m1" {
		t.Fatalf("preview not re-derived: %+v", state.Chats[0].LastMessage)
	}
}

func TestDeleteRaceIsNoOp(t *testing.T) {
	t.Parallel()

	state := seedState("A", "B")
	state.ActiveChatID = "A"
	state, _ = Reduce(state, evMessageReceived{Message: msg("m1", "B", "peer", "hi")})
	if state.UnreadCount("B") != 1 {
		t.Fatalf("setup: unread=%d", state.UnreadCount("B"))
	}

	// Push event and local confirmation both remove the same message.
	state, _ = Reduce(state, evMessageDeleted{Message: msg("m1", "B", "peer", "hi")})
	state, _ = Reduce(state, evDeleteCompleted{ChatID: "B", MessageID: "m1"})

	if got := state.UnreadCount("B"); got != 0 {
		t.Fatalf("unread B=%d, want 0 (never negative)", got)
	}
}

func TestChatLeftWhileActiveClearsPointer(t *testing.T) {
	t.Parallel()

	state := seedState("A", "B")
	state.ActiveChatID = "A"
	state.Timelines["A"] = []api.Message{msg("m1", "A", "peer", "hi")}

	state, effects := Reduce(state, evChatLeft{Chat: api.Chat{ID: "A"}})

	if state.ActiveChatID != "" {
		t.Fatalf("active pointer not cleared")
	}
	if countEffect(effects, "clearCurrentChat") != 1 {
		t.Fatalf("expected persisted pointer clear: %v", effectTypes(effects))
	}
	if _, ok := state.ChatByID("A"); ok {
		t.Fatalf("chat A still listed")
	}
	if len(state.Timelines["A"]) != 0 {
		t.Fatalf("timeline A not dropped")
	}
}

func TestGroupRenameDoesNotReorder(t *testing.T) {
	t.Parallel()

	state := seedState("A", "B")
	state, _ = Reduce(state, evGroupNameUpdated{Chat: api.Chat{ID: "B", Name: "renamed"}})

	if state.Chats[0].ID != "A" {
		t.Fatalf("rename reordered the list")
	}
	if state.Chats[1].Name != "renamed" {
		t.Fatalf("name not updated: %+v", state.Chats[1])
	}
}

func TestNewChatInsertsOnceAtFront(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state, _ = Reduce(state, evNewChat{Chat: api.Chat{ID: "B"}})
	state, _ = Reduce(state, evNewChat{Chat: api.Chat{ID: "B"}})

	if len(state.Chats) != 2 || state.Chats[0].ID != "B" {
		t.Fatalf("chats=%+v", state.Chats)
	}
}

func TestReconnectRejoinsAndRefetches(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state.ActiveChatID = "A"
	gen := state.HistoryGen

	state, effects := Reduce(state, evConnected{})

	if !state.Connected {
		t.Fatalf("Connected not set")
	}
	if countEffect(effects, "fetchChats") != 1 || countEffect(effects, "joinChat") != 1 || countEffect(effects, "fetchHistory") != 1 {
		t.Fatalf("effects=%v", effectTypes(effects))
	}
	if state.HistoryGen != gen+1 {
		t.Fatalf("HistoryGen=%d, want %d", state.HistoryGen, gen+1)
	}
}

func TestDisconnectClearsEphemeralTypingState(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state, _ = Reduce(state, evTypingReceived{ChatID: "A"})
	state, _ = Reduce(state, cmdKeystroke{ChatID: "A"})

	state, effects := Reduce(state, evDisconnected{Reason: "transport close"})

	if state.Connected {
		t.Fatalf("Connected still set")
	}
	if len(state.PeerTyping) != 0 || len(state.SelfTyping) != 0 {
		t.Fatalf("typing state not cleared: %+v %+v", state.PeerTyping, state.SelfTyping)
	}
	if countEffect(effects, "cancelTimer") != 1 {
		t.Fatalf("expected timer cancellation: %v", effectTypes(effects))
	}
}

func TestRemovedParticipantKeepsConversationListed(t *testing.T) {
	t.Parallel()

	state := seedState("A")
	state.Chats[0].IsGroupChat = true
	state.Chats[0].Participants = []api.User{{ID: "me"}, {ID: "peer"}}
	state.ActiveChatID = "A"

	// A membership refresh arrives with the only other member removed.
	state, _ = Reduce(state, evChatsLoaded{Chats: []api.Chat{{
		ID: "A", IsGroupChat: true, Participants: []api.User{{ID: "me"}},
	}}})

	if _, ok := state.ChatByID("A"); !ok {
		t.Fatalf("conversation dropped; must stay listed until the user leaves")
	}
	if state.ActiveChatID != "A" {
		t.Fatalf("active pointer lost")
	}
}
