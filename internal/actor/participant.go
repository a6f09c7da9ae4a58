package actor

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/opendds-go/rtps/internal/worker"
)

// ParticipantLoop binds a Mailbox to a TimerWheel so every timer firing
// is re-posted as a Mailbox message instead of running on the timer
// goroutine directly: protocol state (HistoryCache, proxies, discovery
// tables) is only ever touched from the Mailbox goroutine (§4.8).
type ParticipantLoop struct {
	Mailbox *Mailbox
	timers  *worker.TimerWheel
}

// NewParticipantLoop creates a participant's actor loop and starts its
// timer wheel.
func NewParticipantLoop(logger *log.Logger) *ParticipantLoop {
	mb := NewMailbox(logger)
	p := &ParticipantLoop{Mailbox: mb}
	p.timers = worker.NewTimerWheel(func(id uint64, payload interface{}) {
		if msg, ok := payload.(Message); ok {
			mb.Post(msg)
		}
	})
	p.timers.Start()
	return p
}

// ScheduleOnce arranges for msg to be posted to the Mailbox once, after d.
func (p *ParticipantLoop) ScheduleOnce(id uint64, d time.Duration, msg Message) {
	p.timers.Schedule(id, time.Now().Add(d), msg)
}

// SchedulePeriodic arranges for msg to be posted to the Mailbox every
// period, starting after the first period elapses; the handler is
// responsible for calling SchedulePeriodic again to keep recurring
// (the TimerWheel itself only fires once per Schedule call, matching the
// ARQ-style one-shot retransmission timer it's grounded on).
func (p *ParticipantLoop) SchedulePeriodic(id uint64, period time.Duration, msg Message) {
	p.timers.Schedule(id, time.Now().Add(period), msg)
}

// CancelTimer cancels a previously scheduled timer by id, if still pending.
func (p *ParticipantLoop) CancelTimer(id uint64) {
	p.timers.Cancel(id)
}

// Close stops the timer wheel and the mailbox goroutine.
func (p *ParticipantLoop) Close() {
	p.timers.Stop()
	p.Mailbox.Close()
}
