package watcher

import "time"

// EventType says what happened to an inbox file.
type EventType int

const (
	// EventAdded: a new file stopped changing.
	EventAdded EventType = iota
	// EventModified: a known file was rewritten and stopped changing.
	EventModified
	// EventRemoved: a file was deleted or renamed away. Not settled.
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	}
	return "unknown"
}

// Event is one settled change to an inbox file.
type Event struct {
	Type    EventType
	Path    string
	Size    int64 // zero for EventRemoved
	ModTime time.Time
}

// Settled reports whether the file is complete and can be read.
func (e Event) Settled() bool {
	return e.Type != EventRemoved
}
