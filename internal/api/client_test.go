package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func envelope(data any) []byte {
	body, _ := json.Marshal(map[string]any{
		"statusCode": 200,
		"data":       data,
		"message":    "ok",
		"success":    true,
	})
	return body
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL)
	client.SetToken("test-token")
	return client
}

func TestChatsUnwrapsEnvelope(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/chats" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization=%q", got)
		}
		w.Write(envelope([]map[string]any{
			{"_id": "c1", "isGroupChat": false},
			{"_id": "c2", "name": "ops", "isGroupChat": true},
		}))
	})

	chats, err := client.Chats(context.Background())
	if err != nil {
		t.Fatalf("Chats failed: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}
	if chats[1].ID != "c2" || !chats[1].IsGroupChat || chats[1].Name != "ops" {
		t.Fatalf("chat mismatch: %+v", chats[1])
	}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuth},
		{"forbidden", http.StatusForbidden, ErrPermission},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"bad request", http.StatusBadRequest, ErrValidation},
		{"server error", http.StatusInternalServerError, ErrNetwork},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(`{"message":"nope","success":false}`))
			})

			_, err := client.Chats(context.Background())
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMissingTokenIsAuthError(t *testing.T) {
	t.Parallel()

	client := NewClient("http://localhost:1")
	_, err := client.Chats(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("got %v, want ErrAuth", err)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	t.Parallel()

	// Nothing listens on this port.
	client := NewClient("http://127.0.0.1:1")
	client.SetToken("tok")
	_, err := client.Chats(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("got %v, want ErrNetwork", err)
	}
}

func TestSendMessageMultipart(t *testing.T) {
	t.Parallel()

	attPath := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(attPath, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write attachment: %v", err)
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/c1" {
			t.Errorf("path=%q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("content"); got != "hi there" {
			t.Errorf("content=%q", got)
		}
		files := r.MultipartForm.File["attachments"]
		if len(files) != 1 || files[0].Filename != "note.txt" {
			t.Errorf("attachments=%+v", files)
		}
		w.Write(envelope(map[string]any{
			"_id": "m1", "chat": "c1", "content": "hi there",
		}))
	})

	msg, err := client.SendMessage(context.Background(), "c1", "hi there", []Attachment{{LocalPath: attPath}})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.ID != "m1" || msg.ChatID != "c1" {
		t.Fatalf("message mismatch: %+v", msg)
	}
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	t.Parallel()

	client := NewClient("http://127.0.0.1:1")
	client.SetToken("tok")
	_, err := client.SendMessage(context.Background(), "c1", "   ", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestCreateGroupChatValidatesParticipants(t *testing.T) {
	t.Parallel()

	client := NewClient("http://127.0.0.1:1")
	client.SetToken("tok")
	_, err := client.CreateGroupChat(context.Background(), "team", []string{"u1"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/messages/c1/m9" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write(envelope(map[string]any{"_id": "m9", "chat": "c1"}))
	})

	msg, err := client.DeleteMessage(context.Background(), "c1", "m9")
	if err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	if msg.ID != "m9" {
		t.Fatalf("message mismatch: %+v", msg)
	}
}
