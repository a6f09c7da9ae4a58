package actor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMailboxHandlesPostedMessagesInOrder(t *testing.T) {
	mb := NewMailbox(nil)
	defer mb.Close()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		mb.PostFunc(func() { order = append(order, i) })
	}
	mb.PostFunc(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mailbox to drain")
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestMailboxRecoversFromPanickingHandler(t *testing.T) {
	mb := NewMailbox(nil)
	defer mb.Close()

	ran := make(chan struct{})
	mb.PostFunc(func() { panic("boom") })
	mb.PostFunc(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("handler after panic never ran")
	}
}

func TestParticipantLoopFiresScheduledMessage(t *testing.T) {
	p := NewParticipantLoop(nil)
	defer p.Close()

	fired := make(chan struct{})
	p.ScheduleOnce(1, 10*time.Millisecond, FuncMessage(func() { close(fired) }))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestParticipantLoopCancelPreventsFiring(t *testing.T) {
	p := NewParticipantLoop(nil)
	defer p.Close()

	fired := make(chan struct{})
	p.ScheduleOnce(2, 50*time.Millisecond, FuncMessage(func() { close(fired) }))
	p.CancelTimer(2)

	select {
	case <-fired:
		t.Fatal("timer fired despite cancellation")
	case <-time.After(150 * time.Millisecond):
	}
}
