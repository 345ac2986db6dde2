package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrOpenSuperseded indicates an open was replaced by a later open or a
	// close before its history fetch finished.
	ErrOpenSuperseded = errors.New("open superseded")
	// ErrUnknownChat indicates the target conversation is not in the local list.
	ErrUnknownChat = errors.New("unknown chat")
	// ErrUnknownSend indicates a retry for a temporary id with no failed send.
	ErrUnknownSend = errors.New("unknown send")
	// ErrEmptyMessage indicates a send with no content and no attachments.
	ErrEmptyMessage = errors.New("empty message")
)

// SendFailedError reports a failed optimistic send. It carries the temporary
// id so the caller can offer a manual retry; the provisional message stays in
// the timeline marked failed.
type SendFailedError struct {
	TempID string
	Err    error
}

func (e *SendFailedError) Error() string {
	return fmt.Sprintf("send %s failed: %v", e.TempID, e.Err)
}

func (e *SendFailedError) Unwrap() error { return e.Err }
