package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/hishamahammedkm/taza-chat-cli/internal/actor/actortest"
	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
)

// Not parallel: swaps the package clock.
func TestSendMessageStampsProvisionalFromClock(t *testing.T) {
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fake := actortest.NewFakeClock(fixed)
	prev := clock
	clock = fake
	defer func() { clock = prev }()

	input, tempID := SendMessage("A", "hi", nil, api.User{ID: "me"}, nil)

	if !strings.HasPrefix(tempID, tempIDPrefix) {
		t.Fatalf("tempID=%q, want %q prefix", tempID, tempIDPrefix)
	}

	cmd, ok := input.(cmdSendMessage)
	if !ok {
		t.Fatalf("input type=%T, want cmdSendMessage: %s", input, actortest.Pretty(input))
	}
	if cmd.TempID != tempID {
		t.Fatalf("TempID mismatch: %s vs %s", cmd.TempID, tempID)
	}
	if cmd.NowISO != fixed.Format(time.RFC3339Nano) {
		t.Fatalf("NowISO=%q, want %q", cmd.NowISO, fixed.Format(time.RFC3339Nano))
	}

	// Each send gets a fresh temporary id.
	_, second := SendMessage("A", "hi", nil, api.User{ID: "me"}, nil)
	if second == tempID {
		t.Fatalf("temporary ids must be unique")
	}
}
