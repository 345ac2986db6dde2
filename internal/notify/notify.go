package notify

import "context"

// Notifier raises a notification for a chat message received while its
// conversation was in the background.
type Notifier interface {
	// MessageReceived notifies about a new message. chatID doubles as the
	// de-duplication key so one busy conversation cannot flood the channel.
	MessageReceived(ctx context.Context, chatID, title, body string) error
}

// MessageReceived implements Notifier for Pushover delivery.
func (n *PushoverNotifier) MessageReceived(ctx context.Context, chatID, title, body string) error {
	return n.Notify(ctx, PushoverMessage{
		Title:    title,
		Message:  body,
		AlertKey: chatID,
	})
}

// Nop is a Notifier that discards everything. Used when no notification
// backend is configured.
type Nop struct{}

// MessageReceived implements Notifier.
func (Nop) MessageReceived(context.Context, string, string, string) error { return nil }
