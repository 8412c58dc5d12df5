package providers

import (
	"github.com/samber/do/v2"

	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/sse"
)

// EventManagerHandle closes every progress stream on container shutdown.
type EventManagerHandle struct {
	*sse.Manager
}

func (h *EventManagerHandle) Shutdown() error {
	return h.Close()
}

// ProvideEventManager provides the progress event hub shared by the inbox
// watcher, which publishes, and the HTTP server, which streams.
func ProvideEventManager(i do.Injector) (*EventManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return &EventManagerHandle{Manager: sse.NewManager(log.Logger)}, nil
}
