package storage

import (
	"path/filepath"
	"testing"
)

func testSecret() *[32]byte {
	var secret [32]byte
	for i := 0; i < 32; i++ {
		secret[i] = byte(i * 3)
	}
	return &secret
}

func TestCurrentChatRoundtrip(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	secret := testSecret()

	rec := CurrentChatRecord{ChatID: "chat-1", Name: "ops", IsGroupChat: true}
	if err := SaveCurrentChat(home, secret, rec); err != nil {
		t.Fatalf("SaveCurrentChat failed: %v", err)
	}

	loaded, ok, err := LoadCurrentChat(home, secret)
	if err != nil {
		t.Fatalf("LoadCurrentChat failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to exist")
	}
	if loaded.ChatID != "chat-1" || loaded.Name != "ops" || !loaded.IsGroupChat {
		t.Fatalf("record mismatch: %+v", loaded)
	}
	if loaded.UpdatedAtMs == 0 {
		t.Fatalf("UpdatedAtMs not set")
	}
}

func TestCurrentChatMissing(t *testing.T) {
	t.Parallel()

	_, ok, err := LoadCurrentChat(t.TempDir(), testSecret())
	if err != nil {
		t.Fatalf("LoadCurrentChat failed: %v", err)
	}
	if ok {
		t.Fatalf("expected no record")
	}
}

func TestCurrentChatClear(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	secret := testSecret()

	if err := SaveCurrentChat(home, secret, CurrentChatRecord{ChatID: "chat-2"}); err != nil {
		t.Fatalf("SaveCurrentChat failed: %v", err)
	}
	if err := ClearCurrentChat(home); err != nil {
		t.Fatalf("ClearCurrentChat failed: %v", err)
	}
	// Clearing again is a no-op.
	if err := ClearCurrentChat(home); err != nil {
		t.Fatalf("second ClearCurrentChat failed: %v", err)
	}

	_, ok, err := LoadCurrentChat(home, secret)
	if err != nil {
		t.Fatalf("LoadCurrentChat failed: %v", err)
	}
	if ok {
		t.Fatalf("record should be gone")
	}
}

func TestCurrentChatSaveRequiresChatID(t *testing.T) {
	t.Parallel()

	if err := SaveCurrentChat(t.TempDir(), testSecret(), CurrentChatRecord{}); err == nil {
		t.Fatalf("expected error for missing chat id")
	}
}

func TestSecretKeyRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "storage.key")
	key, err := GetOrCreateSecretKey(path)
	if err != nil {
		t.Fatalf("GetOrCreateSecretKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("key length=%d, want 32", len(key))
	}

	again, err := GetOrCreateSecretKey(path)
	if err != nil {
		t.Fatalf("second GetOrCreateSecretKey failed: %v", err)
	}
	if string(key) != string(again) {
		t.Fatalf("key changed between loads")
	}
}
