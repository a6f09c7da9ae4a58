// Package actor implements the cooperative, single-goroutine execution
// model each DomainParticipant runs under (§4.8): every submessage
// event, local API call, and timer firing for one participant is folded
// through a single mailbox, so the protocol state machines in
// rtps/endpoint and rtps/proxy never need their own locking.
package actor

import (
	"gopkg.in/eapache/channels.v1"

	"github.com/charmbracelet/log"

	"github.com/opendds-go/rtps/internal/worker"
)

// Message is one unit of work posted to a Mailbox. Handlers run on the
// Mailbox's own goroutine, in posting order.
type Message interface {
	Handle()
}

// funcMessage adapts a plain function to Message, for callers that don't
// want to define a named type per message kind.
type funcMessage func()

func (f funcMessage) Handle() { f() }

// FuncMessage wraps fn as a Message.
func FuncMessage(fn func()) Message { return funcMessage(fn) }

// Mailbox is a single-consumer actor: Post never blocks the caller (the
// underlying queue grows as needed), and messages are handled strictly
// one at a time on the Mailbox's worker goroutine.
type Mailbox struct {
	worker.Worker
	queue *channels.InfiniteChannel
	log   *log.Logger
}

// NewMailbox creates a Mailbox and starts its processing goroutine.
// Logger may be nil.
func NewMailbox(logger *log.Logger) *Mailbox {
	m := &Mailbox{queue: channels.NewInfiniteChannel(), log: logger}
	m.Go(m.run)
	return m
}

// Post enqueues msg for handling on the Mailbox goroutine. Safe to call
// from any goroutine, including from within a Message.Handle itself.
func (m *Mailbox) Post(msg Message) {
	m.queue.In() <- msg
}

// PostFunc is shorthand for Post(FuncMessage(fn)).
func (m *Mailbox) PostFunc(fn func()) {
	m.Post(FuncMessage(fn))
}

func (m *Mailbox) run() {
	out := m.queue.Out()
	for {
		select {
		case <-m.HaltCh():
			m.drain(out)
			return
		case v, ok := <-out:
			if !ok {
				return
			}
			m.dispatch(v)
		}
	}
}

// drain handles whatever is already queued before shutting down, so a
// Halt doesn't silently drop work the caller already committed to.
func (m *Mailbox) drain(out <-chan interface{}) {
	for {
		select {
		case v, ok := <-out:
			if !ok {
				return
			}
			m.dispatch(v)
		default:
			return
		}
	}
}

func (m *Mailbox) dispatch(v interface{}) {
	msg, ok := v.(Message)
	if !ok {
		if m.log != nil {
			m.log.Error("dropping mailbox value of unexpected type")
		}
		return
	}
	defer func() {
		if r := recover(); r != nil && m.log != nil {
			m.log.Error("mailbox handler panicked", "recover", r)
		}
	}()
	msg.Handle()
}

// Close stops accepting new work, lets the current queue drain, and
// halts the processing goroutine.
func (m *Mailbox) Close() {
	m.queue.Close()
	m.Halt()
}
