// Package delivery publishes posts to the messaging platform. The
// dispatch loop calls a Sender at most once per claimed slot; retries of
// transient transport errors, if any, belong to the Sender itself.
package delivery

import "context"

// Message is the payload for one publication.
type Message struct {
	PostID      int64
	CompanyName string
	Title       string
	Body        string
}

// Result describes a successful publication.
type Result struct {
	ChatID    int64
	MessageID int
	ViewCount int
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
}
