package refresh

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/verin/internal/logfields"
	"git.home.luguber.info/inful/verin/internal/metrics"
)

// Frames sent to subscribers.
const (
	MessageReload = "reload"
	MessagePing   = "ping"
)

const (
	outboxSize = 8
	queueSize  = 16
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("refresh hub closed")

// Subscriber is one registered connection.
type Subscriber struct {
	id     string
	outbox chan string
	done   chan struct{}
}

// ID returns the connection id.
func (s *Subscriber) ID() string { return s.id }

// Messages delivers frames to write to the connection.
func (s *Subscriber) Messages() <-chan string { return s.outbox }

// Done is closed once the hub has dropped the subscriber.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Hub is the in-memory subscriber registry plus its broadcaster goroutine.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber
	closed      bool

	queue     chan string
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewHub creates a hub and starts its broadcaster. Call Close to stop it.
func NewHub(recorder metrics.Recorder, logger *slog.Logger) *Hub {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		subscribers: map[string]*Subscriber{},
		queue:       make(chan string, queueSize),
		quit:        make(chan struct{}),
		stopped:     make(chan struct{}),
		recorder:    recorder,
		logger:      logger,
	}
	go h.broadcaster()
	return h
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() (*Subscriber, error) {
	s := &Subscriber{
		id:     uuid.NewString(),
		outbox: make(chan string, outboxSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.subscribers[s.id] = s
	n := len(h.subscribers)
	h.mu.Unlock()

	h.recorder.SetSubscribers(n)
	h.logger.Debug("Refresh subscriber connected", logfields.SubscriberID(s.id), logfields.Subscribers(n))
	return s, nil
}

// Remove unregisters a subscriber. Removing an unknown id is a no-op.
func (h *Hub) Remove(id string) {
	h.remove(id, "")
}

func (h *Hub) remove(id, reason string) bool {
	h.mu.Lock()
	s, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		close(s.done)
	}
	n := len(h.subscribers)
	h.mu.Unlock()

	if !ok {
		return false
	}
	h.recorder.SetSubscribers(n)
	if reason != "" {
		h.recorder.IncSubscriberDropped(reason)
	}
	h.logger.Debug("Refresh subscriber removed", logfields.SubscriberID(id), logfields.Subscribers(n), slog.String("reason", reason))
	return true
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Publish queues msg for every current subscriber and returns immediately.
// It reports false when the hub is closed or the queue is full; a full queue
// already holds a pending notification, so nothing is lost for reloads.
func (h *Hub) Publish(msg string) bool {
	select {
	case <-h.quit:
		return false
	default:
	}
	select {
	case h.queue <- msg:
		return true
	default:
		h.logger.Debug("Refresh queue full, coalescing", slog.String("message", msg))
		return false
	}
}

func (h *Hub) broadcaster() {
	defer close(h.stopped)
	for {
		select {
		case <-h.quit:
			return
		case msg := <-h.queue:
			h.fanout(msg)
		}
	}
}

// fanout hands msg to a snapshot of the subscribers. Subscribers whose
// outbox is full are dropped.
func (h *Hub) fanout(msg string) {
	h.mu.Lock()
	snapshot := make([]*Subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		snapshot = append(snapshot, s)
	}
	h.mu.Unlock()

	dropped := 0
	for _, s := range snapshot {
		select {
		case s.outbox <- msg:
		default:
			if h.remove(s.id, metrics.DropBackpressure) {
				dropped++
			}
		}
	}
	if msg == MessageReload {
		h.recorder.IncBroadcast()
	}
	h.logger.Debug("Refresh broadcast",
		slog.String("message", msg),
		logfields.Subscribers(len(snapshot)),
		slog.Int("dropped", dropped))
}

// Close drops every subscriber and stops the broadcaster. It is idempotent.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
		<-h.stopped

		h.mu.Lock()
		h.closed = true
		subs := h.subscribers
		h.subscribers = map[string]*Subscriber{}
		h.mu.Unlock()

		for _, s := range subs {
			close(s.done)
		}
		h.recorder.SetSubscribers(0)
	})
}
