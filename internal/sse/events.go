// Package sse streams alignment progress to HTTP clients as Server-Sent
// Events. Every published event gets an increasing ID so clients can resume
// after a dropped connection.
package sse

import (
	"time"

	"github.com/munajjam/munajjam/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventSurahAligned is sent when a surah passed validation.
	EventSurahAligned EventType = "surah.aligned"
	// EventSurahReview is sent when a surah exhausted its attempts and went
	// to manual review.
	EventSurahReview EventType = "surah.review"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one published message. ID is assigned by Manager.Publish;
// heartbeats are never published and keep ID zero.
type Event struct {
	ID           uint64    `json:"id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Data         any       `json:"data"`
	Type         EventType `json:"type"`
	RecitationID string    `json:"recitation_id,omitempty"`
}

// SurahEventData is the payload of surah events.
type SurahEventData struct {
	Surah    int     `json:"surah"`
	Expected int     `json:"expected"`
	Aligned  int     `json:"aligned"`
	Attempts int     `json:"attempts"`
	AvgScore float64 `json:"avg_similarity"`
	Reason   string  `json:"reason,omitempty"`
}

// NewSurahEvent creates the event for a finished surah run.
func NewSurahEvent(run *domain.SurahRun) Event {
	typ := EventSurahAligned
	if run.State != domain.SurahSuccess {
		typ = EventSurahReview
	}
	return Event{
		Type:         typ,
		RecitationID: run.RecitationID,
		Timestamp:    time.Now(),
		Data: SurahEventData{
			Surah:    run.SurahNum,
			Expected: run.Expected,
			Aligned:  run.Aligned,
			Attempts: len(run.Attempts),
			AvgScore: run.AvgScore,
			Reason:   run.Reason,
		},
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      map[string]any{},
	}
}
