package worker

import (
	"container/heap"
	"sync"
	"time"
)

// TimerWheel is a binary-heap-backed timer queue: entries are popped in
// deadline order, and every expired entry on a given wake is fired in one
// pass. It is the concrete form of the "timer wheel" in §4.8/§9 — a heap
// keyed by deadline is sufficient because the wake loop drains all expired
// timers each tick, mirroring the ARQ retransmission timer in the teacher's
// client2/arq.go (a priority queue of SURB-ID deadlines).
type TimerWheel struct {
	Worker

	mu    sync.Mutex
	items timerHeap
	wake  chan struct{}
	fire  func(id uint64, payload interface{})
	timer *time.Timer
}

type timerItem struct {
	deadline time.Time
	id       uint64
	payload  interface{}
	index    int
}

type timerHeap []*timerItem

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x interface{}) {
	item := x.(*timerItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// NewTimerWheel creates a TimerWheel whose fire callback is invoked for
// every timer that has reached its deadline. Call Start to launch the
// background dispatch goroutine.
func NewTimerWheel(fire func(id uint64, payload interface{})) *TimerWheel {
	return &TimerWheel{
		items: make(timerHeap, 0, 16),
		wake:  make(chan struct{}, 1),
		fire:  fire,
	}
}

// Start launches the background goroutine that dispatches expired timers.
func (t *TimerWheel) Start() {
	t.Go(t.run)
}

// Stop halts the dispatch goroutine and waits for it to exit.
func (t *TimerWheel) Stop() {
	t.Halt()
	t.Wait()
}

// Schedule arms a timer identified by id to fire at deadline with payload.
// If id is already scheduled its deadline is updated (reschedule).
func (t *TimerWheel) Schedule(id uint64, deadline time.Time, payload interface{}) {
	t.mu.Lock()
	for _, it := range t.items {
		if it.id == id {
			it.deadline = deadline
			it.payload = payload
			heap.Fix(&t.items, it.index)
			t.mu.Unlock()
			t.nudge()
			return
		}
	}
	heap.Push(&t.items, &timerItem{deadline: deadline, id: id, payload: payload})
	t.mu.Unlock()
	t.nudge()
}

// Cancel removes a scheduled timer by id, if present.
func (t *TimerWheel) Cancel(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, it := range t.items {
		if it.id == id {
			heap.Remove(&t.items, it.index)
			return
		}
	}
}

func (t *TimerWheel) nudge() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *TimerWheel) nextDeadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == 0 {
		return time.Time{}, false
	}
	return t.items[0].deadline, true
}

func (t *TimerWheel) popExpired(now time.Time) []*timerItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []*timerItem
	for len(t.items) > 0 && !t.items[0].deadline.After(now) {
		expired = append(expired, heap.Pop(&t.items).(*timerItem))
	}
	return expired
}

func (t *TimerWheel) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		deadline, ok := t.nextDeadline()
		var wait time.Duration
		if ok {
			wait = time.Until(deadline)
			if wait < 0 {
				wait = 0
			}
		} else {
			wait = time.Hour
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-t.HaltCh():
			return
		case <-t.wake:
			continue
		case now := <-timer.C:
			for _, item := range t.popExpired(now) {
				t.fire(item.id, item.payload)
			}
		}
	}
}
