package audiounlock

import (
	"sync"
	"time"
)

// Reporter is notified once for every task that reaches a terminal state.
//
// Pool calls Report from a single collector goroutine and Session from
// its loop goroutine, so a Reporter used by one substrate sees calls
// serially. Implementations shared between substrates must synchronize.
type Reporter interface {
	Report(Task)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Task)

// Report calls f.
func (f ReporterFunc) Report(t Task) {
	f(t)
}

// MultiReporter fans a report out to every reporter in order.
type MultiReporter []Reporter

// Report calls Report on each non-nil reporter.
func (m MultiReporter) Report(t Task) {
	for _, r := range m {
		if r != nil {
			r.Report(t)
		}
	}
}

type nopReporter struct{}

func (nopReporter) Report(Task) {}

// Event is a sequenced record of one terminal task, consumed by UIs.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Output    string    `json:"output,omitempty"`
	Message   string    `json:"message,omitempty"`
	Seq       int64     `json:"seq"`
	TaskID    TaskID    `json:"taskId"`
	State     TaskState `json:"state"`
}

// NewEvent builds the event describing t.
func NewEvent(t Task) Event {
	ts := t.FinishedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return Event{
		Timestamp: ts.UTC(),
		TaskID:    t.ID,
		State:     t.State,
		Name:      t.Name,
		Output:    t.OutputName(),
		Message:   t.Message(),
	}
}

// EventBus keeps a bounded history of events and pushes new ones to
// subscribers. It implements Reporter and is safe for concurrent use.
type EventBus struct {
	subs      map[chan Event]struct{}
	events    []Event
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
}

// NewEventBus creates a bus that retains at most maxEvents events.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
		subs:      make(map[chan Event]struct{}),
	}
}

// Report publishes the event for t.
func (b *EventBus) Report(t Task) {
	b.Publish(NewEvent(t))
}

// Publish appends one event, assigns its sequence number and delivers it
// to subscribers. Subscribers that are not keeping up miss the event; they
// can recover it with Since.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return event
}

// Since returns retained events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe returns a channel receiving every event published after the
// call, and a function that unsubscribes and closes the channel.
func (b *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}
