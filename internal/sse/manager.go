package sse

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/id"
	"github.com/munajjam/munajjam/internal/logger"
)

const (
	// subscriberBuffer bounds both the live backlog of one subscriber and how
	// many missed events a reconnecting subscriber gets replayed.
	subscriberBuffer = 32
	historySize      = 256
)

// Subscription is one open stream. Events is closed when the subscription
// ends, whether by Unsubscribe, DisconnectAll or Close.
type Subscription struct {
	ID           string
	RecitationID string
	Since        time.Time
	Events       chan Event
	dropped      int
}

func (s *Subscription) wants(e Event) bool {
	return s.RecitationID == "" || e.RecitationID == "" || s.RecitationID == e.RecitationID
}

// Manager fans published events out to subscribers and keeps the most recent
// ones so a client that reconnects with Last-Event-ID misses nothing still in
// history. Delivery never blocks the publisher: a full subscriber loses the
// event.
type Manager struct {
	mu      sync.Mutex
	subs    map[string]*Subscription
	history []Event
	seq     uint64
	closed  bool
	logger  *slog.Logger
}

func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		subs:   make(map[string]*Subscription),
		logger: logger.OrDiscard(log),
	}
}

// Subscribe opens a stream of events for recitationID, or for every
// recitation when it is empty. Events in history with an ID above
// lastEventID are queued first.
func (m *Manager) Subscribe(recitationID string, lastEventID uint64) (*Subscription, error) {
	subID, err := id.Generate(id.PrefixSubscriber)
	if err != nil {
		return nil, err
	}
	sub := &Subscription{
		ID:           subID,
		RecitationID: recitationID,
		Since:        time.Now(),
		Events:       make(chan Event, subscriberBuffer),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(sub.Events)
		return sub, nil
	}

	var missed []Event
	if lastEventID > 0 {
		for _, e := range m.history {
			if e.ID > lastEventID && sub.wants(e) {
				missed = append(missed, e)
			}
		}
		if n := len(missed) - subscriberBuffer; n > 0 {
			missed = missed[n:]
		}
	}
	for _, e := range missed {
		sub.Events <- e
	}
	m.subs[sub.ID] = sub

	m.logger.Info("event subscriber connected",
		"subscriber", sub.ID, "recitation_id", recitationID,
		"replayed", len(missed), "subscribers", len(m.subs))
	return sub, nil
}

// Unsubscribe ends one subscription. Unknown IDs are ignored.
func (m *Manager) Unsubscribe(subID string) {
	m.mu.Lock()
	sub, ok := m.subs[subID]
	if ok {
		delete(m.subs, subID)
		close(sub.Events)
	}
	left := len(m.subs)
	m.mu.Unlock()

	if ok {
		m.logger.Info("event subscriber left",
			"subscriber", subID, "connected_for", time.Since(sub.Since),
			"dropped", sub.dropped, "subscribers", left)
	}
}

// Publish stamps e with the next ID, records it and delivers it. It returns
// the stamped event; after Close it is neither recorded nor delivered.
func (m *Manager) Publish(e Event) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return e
	}

	m.seq++
	e.ID = m.seq
	m.history = append(m.history, e)
	if len(m.history) > historySize {
		m.history = slices.Delete(m.history, 0, len(m.history)-historySize)
	}

	var delivered int
	for _, sub := range m.subs {
		if !sub.wants(e) {
			continue
		}
		select {
		case sub.Events <- e:
			delivered++
		default:
			sub.dropped++
			m.logger.Warn("subscriber backlog full, event dropped",
				"subscriber", sub.ID, "event_id", e.ID, "type", e.Type)
		}
	}
	m.logger.Debug("event published", "event_id", e.ID, "type", e.Type, "delivered", delivered)
	return e
}

// PublishSurahRun announces a finished surah. It fits the pipeline's
// progress hook.
func (m *Manager) PublishSurahRun(run *domain.SurahRun) {
	m.Publish(NewSurahEvent(run))
}

// Subscribers returns the number of open subscriptions.
func (m *Manager) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// DisconnectAll ends every open subscription. Publishing continues and new
// subscribers are still accepted.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, sub := range m.subs {
		close(sub.Events)
		delete(m.subs, key)
	}
}

// Close ends every subscription and turns later Publish and Subscribe calls
// into no-ops. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.DisconnectAll()
	return nil
}
