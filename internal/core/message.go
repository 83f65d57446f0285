package core

import "time"

// Message is a bridged chat message. It is immutable once it has been
// appended to the backlog.
type Message struct {
	ID        int64
	From      string
	Text      string
	Channel   string
	Server    string
	CreatedAt time.Time
}
