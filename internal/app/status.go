package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// StatusKind identifies a status transition.
type StatusKind string

const (
	StatusStarted         StatusKind = "started"
	StatusCountdown       StatusKind = "countdown"
	StatusBackgroundReady StatusKind = "background_ready"
	StatusGestureDetected StatusKind = "gesture_detected"
	StatusFadeComplete    StatusKind = "fade_complete"
	StatusReset           StatusKind = "reset"
	StatusError           StatusKind = "error"
	StatusStopped         StatusKind = "stopped"
)

// ErrorKind classifies fatal session errors.
type ErrorKind string

const (
	ErrorDeviceUnavailable ErrorKind = "device_unavailable"
	ErrorSinkUnavailable   ErrorKind = "sink_unavailable"
)

// Status is one status transition emitted by the pipeline.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Session string     `json:"session,omitempty"`
	Tick    int        `json:"tick,omitempty"`
	Error   ErrorKind  `json:"error,omitempty"`
	Message string     `json:"message"`
	Time    time.Time  `json:"time"`
}

// statusBus fans status events out to subscribers without ever blocking
// the publisher. A subscriber whose buffer is full misses the event.
type statusBus struct {
	mu      sync.Mutex
	subs    map[int]chan Status
	nextID  int
	last    Status
	dropped atomic.Uint64
}

func newStatusBus() *statusBus {
	return &statusBus{subs: make(map[int]chan Status)}
}

func (b *statusBus) publish(s Status) {
	if s.Time.IsZero() {
		s.Time = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.last = s
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
			b.dropped.Inc()
		}
	}
}

func (b *statusBus) subscribe(buffer int) (<-chan Status, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Status, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *statusBus) lastStatus() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// publish records a status for session s and logs it.
func (a *App) publish(s *session, st Status) {
	if s != nil {
		st.Session = s.id
	}

	ev := log.Info()
	if st.Kind == StatusError {
		ev = log.Error()
	}
	ev.Str("session", st.Session).
		Str("kind", string(st.Kind)).
		Str("error", string(st.Error)).
		Int("tick", st.Tick).
		Msg(st.Message)

	a.status.publish(st)
}

// Subscribe returns a channel of status events and a function that
// unsubscribes and closes it. Events are dropped for a subscriber whose
// buffer is full.
func (a *App) Subscribe(buffer int) (<-chan Status, func()) {
	return a.status.subscribe(buffer)
}

// LastStatus returns the most recent status, or the zero Status if none.
func (a *App) LastStatus() Status {
	return a.status.lastStatus()
}
