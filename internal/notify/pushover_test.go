package notify

import (
	"testing"
	"time"
)

func newTestNotifier(t *testing.T, cooldown time.Duration) *PushoverNotifier {
	t.Helper()
	n, err := NewPushoverNotifier(PushoverConfig{
		Token:    "app-token",
		UserKey:  "user-key",
		Cooldown: cooldown,
	})
	if err != nil {
		t.Fatalf("NewPushoverNotifier failed: %v", err)
	}
	return n
}

func TestNewPushoverNotifierValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewPushoverNotifier(PushoverConfig{UserKey: "u"}); err == nil {
		t.Fatal("missing token accepted")
	}
	if _, err := NewPushoverNotifier(PushoverConfig{Token: "t"}); err == nil {
		t.Fatal("missing user key accepted")
	}
	if _, err := NewPushoverNotifier(PushoverConfig{Token: "t", UserKey: "u", Cooldown: -time.Second}); err == nil {
		t.Fatal("negative cooldown accepted")
	}
}

func TestCooldownSuppressesRepeatsPerKey(t *testing.T) {
	t.Parallel()

	n := newTestNotifier(t, time.Minute)
	now := time.Now()

	if !n.shouldSend("chat-a", now) {
		t.Fatal("first notification for a key must pass")
	}
	n.markSent("chat-a", now)

	if n.shouldSend("chat-a", now.Add(30*time.Second)) {
		t.Fatal("repeat within cooldown must be suppressed")
	}
	if !n.shouldSend("chat-b", now.Add(30*time.Second)) {
		t.Fatal("cooldown is per conversation, other keys must pass")
	}
	if !n.shouldSend("chat-a", now.Add(time.Minute)) {
		t.Fatal("notification after cooldown must pass")
	}
}

func TestZeroCooldownNeverSuppresses(t *testing.T) {
	t.Parallel()

	n := newTestNotifier(t, 0)
	now := time.Now()
	n.markSent("chat-a", now)
	if !n.shouldSend("chat-a", now) {
		t.Fatal("zero cooldown must never suppress")
	}
}
