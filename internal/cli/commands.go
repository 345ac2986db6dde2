package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hishamahammedkm/taza-chat-cli/internal/api"
	"github.com/hishamahammedkm/taza-chat-cli/internal/chat"
	"github.com/hishamahammedkm/taza-chat-cli/internal/config"
	"github.com/hishamahammedkm/taza-chat-cli/sdk"
)

// commandTimeout bounds individual REST-backed operations.
const commandTimeout = 30 * time.Second

// AuthCommand stores an access token obtained from the chat backend's login
// flow.
func AuthCommand(cfg *config.Config, token string) error {
	if err := SaveAccessToken(cfg, token); err != nil {
		return err
	}
	identity, err := ParseIdentity(token)
	if err != nil {
		return err
	}
	fmt.Printf("Authenticated as %s (%s)\n", identity.Username, identity.ID)
	return nil
}

// ChatsCommand prints the conversation list, newest activity first.
func ChatsCommand(cfg *config.Config) error {
	client, err := newClient(cfg, nil)
	if err != nil {
		return err
	}
	defer client.Close()
	client.Start()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	chats, err := client.LoadChats(ctx)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}
	for _, conv := range chats {
		fmt.Println(formatChatLine(conv, client.Self().ID))
	}
	return nil
}

// UsersCommand prints the users a new conversation can be started with.
func UsersCommand(cfg *config.Config) error {
	client, err := newClient(cfg, nil)
	if err != nil {
		return err
	}
	defer client.Close()
	client.Start()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	users, err := client.AvailableUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Printf("%-24s  %s\n", u.Username, u.ID)
	}
	return nil
}

// WatchCommand opens a conversation and bridges it to the terminal: incoming
// events print as they arrive, typed lines are sent. chatID may be empty, in
// which case the last-opened conversation is restored.
func WatchCommand(cfg *config.Config, chatID string) error {
	listener := &printListener{}
	client, err := newClient(cfg, listener)
	if err != nil {
		return err
	}
	defer client.Close()
	listener.self = client.Self().ID

	client.Start()
	if err := client.Connect(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if chatID == "" {
		restored, err := client.RestoreCurrentChat(ctx)
		if err != nil {
			return err
		}
		if restored == "" {
			return fmt.Errorf("no previous conversation; run `tazachat watch <chatId>`")
		}
		chatID = restored
	} else if err := client.Open(ctx, chatID, "", false); err != nil {
		return err
	}

	printTimeline(client.Snapshot().Timeline(chatID), client.Self().ID)
	fmt.Println("-- watching; type to send, /delete <id>, /retry <id>, /quit --")

	return watchLoop(client, chatID)
}

// watchLoop reads terminal input until EOF, /quit, or an interrupt.
func watchLoop(client *sdk.Client, chatID string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-sigCh:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleWatchLine(client, chatID, line); err != nil {
				if err == errQuit {
					return nil
				}
				fmt.Printf("!! %v\n", err)
			}
		}
	}
}

var errQuit = fmt.Errorf("quit")

func handleWatchLine(client *sdk.Client, chatID, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch {
	case line == "/quit":
		return errQuit
	case strings.HasPrefix(line, "/delete "):
		return client.Delete(ctx, chatID, strings.TrimSpace(strings.TrimPrefix(line, "/delete ")))
	case strings.HasPrefix(line, "/retry "):
		return client.Retry(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/retry ")))
	default:
		client.Keystroke(chatID)
		tempID, err := client.Send(ctx, chatID, line, nil)
		if err != nil {
			return fmt.Errorf("%w (retry with `/retry %s`)", err, tempID)
		}
		return nil
	}
}

// printListener prints synchronizer events to the terminal.
type printListener struct {
	self string
}

func (l *printListener) ChatsUpdated([]api.Chat) {}

func (l *printListener) MessageReceived(msg api.Message, active bool) {
	if msg.Sender.ID == l.self {
		return
	}
	marker := " "
	if !active {
		marker = "*"
	}
	fmt.Printf("%s [%s] %s: %s\n", marker, msg.ID, msg.Sender.Username, messagePreview(msg))
}

func (l *printListener) MessageDeleted(chatID, messageID string) {
	fmt.Printf("  message %s deleted\n", messageID)
}

func (l *printListener) TypingChanged(chatID string, typing bool) {
	if typing {
		fmt.Println("  ... peer is typing")
	}
}

func newClient(cfg *config.Config, listener chat.Listener) (*sdk.Client, error) {
	token, err := EnsureAccessToken(cfg)
	if err != nil {
		return nil, err
	}
	return sdk.New(cfg, token, listener)
}

func printTimeline(timeline []api.Message, selfID string) {
	// Timelines are newest first; print oldest first for reading order.
	for i := len(timeline) - 1; i >= 0; i-- {
		msg := timeline[i]
		who := msg.Sender.Username
		if msg.Sender.ID == selfID {
			who = "you"
		}
		fmt.Printf("  [%s] %s: %s\n", msg.ID, who, messagePreview(msg))
	}
}

func formatChatLine(conv api.Chat, selfID string) string {
	kind := "direct"
	name := conv.Name
	if conv.IsGroupChat {
		kind = "group"
	} else {
		for _, p := range conv.Participants {
			if p.ID != selfID {
				name = p.Username
				break
			}
		}
	}
	preview := ""
	if conv.LastMessage != nil {
		preview = messagePreview(*conv.LastMessage)
	}
	return fmt.Sprintf("%-26s %-6s %-20s %s", conv.ID, kind, name, preview)
}

func messagePreview(msg api.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	if len(msg.Attachments) > 0 {
		return fmt.Sprintf("(%d attachment(s))", len(msg.Attachments))
	}
	return "(empty)"
}
