package core

import "sync"

// Backlog keeps the last N bridged messages in insertion order and hands out
// message identifiers.
type Backlog struct {
	mu       sync.RWMutex
	capacity int
	lastID   int64
	messages []Message
}

// NewBacklog creates a backlog holding at most capacity messages.
func NewBacklog(capacity int) *Backlog {
	capacity = max(capacity, 0)
	return &Backlog{
		capacity: capacity,
		messages: make([]Message, 0, capacity),
	}
}

// Append assigns the next identifier to msg, stores it and evicts the oldest
// message when over capacity. The stored message is returned.
func (b *Backlog) Append(msg Message) Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	msg.ID = b.lastID

	switch {
	case b.capacity <= 0:
	case len(b.messages) == b.capacity:
		copy(b.messages, b.messages[1:])
		b.messages[len(b.messages)-1] = msg
	default:
		b.messages = append(b.messages, msg)
	}
	return msg
}

// Messages returns a copy of all retained messages, oldest first.
func (b *Backlog) Messages() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// ForChannel returns the retained messages of one internal channel.
func (b *Backlog) ForChannel(ch Channel) []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Message, 0)
	for _, msg := range b.messages {
		if msg.Server == ch.Server && msg.Channel == ch.Name {
			out = append(out, msg)
		}
	}
	return out
}

// Len returns the number of retained messages.
func (b *Backlog) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages)
}
