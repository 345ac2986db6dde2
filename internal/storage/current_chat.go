package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hishamahammedkm/taza-chat-cli/internal/crypto"
)

// CurrentChatRecord is the durable, machine-local pointer to the last-opened
// conversation. It is encrypted at rest with the local storage key so the
// record mirrors the mobile app's secure store entry.
type CurrentChatRecord struct {
	// ChatID is the server-assigned conversation id.
	ChatID string `json:"chatId"`
	// Name is the display name at the time of the last open (groups only).
	Name string `json:"name,omitempty"`
	// IsGroupChat mirrors the conversation kind.
	IsGroupChat bool `json:"isGroupChat,omitempty"`
	// UpdatedAtMs is the wall-clock timestamp of the most recent write.
	UpdatedAtMs int64 `json:"updatedAtMs,omitempty"`
}

// LoadCurrentChat reads and decrypts the current-conversation record.
//
// ok is false when no record exists.
func LoadCurrentChat(tazaHome string, secret *[32]byte) (rec CurrentChatRecord, ok bool, err error) {
	path, err := currentChatPath(tazaHome)
	if err != nil {
		return CurrentChatRecord{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CurrentChatRecord{}, false, nil
		}
		return CurrentChatRecord{}, false, err
	}
	if err := crypto.Open(data, secret, &rec); err != nil {
		return CurrentChatRecord{}, false, err
	}
	if strings.TrimSpace(rec.ChatID) == "" {
		return CurrentChatRecord{}, false, nil
	}
	return rec, true, nil
}

// SaveCurrentChat encrypts and writes the current-conversation record.
func SaveCurrentChat(tazaHome string, secret *[32]byte, rec CurrentChatRecord) error {
	if strings.TrimSpace(rec.ChatID) == "" {
		return fmt.Errorf("missing chat id")
	}
	path, err := currentChatPath(tazaHome)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	rec.UpdatedAtMs = time.Now().UnixMilli()
	sealed, err := crypto.Seal(rec, secret)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ClearCurrentChat removes the current-conversation record, if present.
func ClearCurrentChat(tazaHome string) error {
	path, err := currentChatPath(tazaHome)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// currentChatPath returns the absolute path for the current-chat record.
func currentChatPath(tazaHome string) (string, error) {
	if strings.TrimSpace(tazaHome) == "" {
		return "", fmt.Errorf("missing taza home")
	}
	return filepath.Join(tazaHome, "state", "current_chat.bin"), nil
}
