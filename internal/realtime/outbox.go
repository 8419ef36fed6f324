package realtime

import (
	"sync"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// DefaultOutboxSize bounds how far a slow connection may fall behind.
const DefaultOutboxSize = 16

// Outbox is a bounded Listener drained by a connection's writer goroutine.
type Outbox struct {
	ch   chan world.Message
	done chan struct{}
	once sync.Once
}

var _ Listener = (*Outbox)(nil)

func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Outbox{
		ch:   make(chan world.Message, size),
		done: make(chan struct{}),
	}
}

func (o *Outbox) Send(msg world.Message) bool {
	select {
	case <-o.done:
		return false
	default:
	}
	select {
	case o.ch <- msg:
		return true
	default:
		return false
	}
}

// Messages is the queue the writer drains.
func (o *Outbox) Messages() <-chan world.Message {
	return o.ch
}

// Done is closed once the outbox is closed.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

func (o *Outbox) Close() {
	o.once.Do(func() { close(o.done) })
}
