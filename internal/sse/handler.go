package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/munajjam/munajjam/internal/logger"
)

const (
	heartbeatInterval = 30 * time.Second
	writeDeadline     = 60 * time.Second
)

// Handler serves a Manager as a text/event-stream.
//
// Query parameters:
//
//	recitation_id   only events of this recitation
//	last_event_id   resume after this event (the Last-Event-ID header wins)
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

func NewHandler(manager *Manager, log *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger.OrDiscard(log)}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "event stream is GET only", http.StatusMethodNotAllowed)
		return
	}

	resume := r.Header.Get("Last-Event-ID")
	if resume == "" {
		resume = r.URL.Query().Get("last_event_id")
	}
	var after uint64
	if resume != "" {
		n, err := strconv.ParseUint(resume, 10, 64)
		if err != nil {
			http.Error(w, "last event id must be a positive integer", http.StatusBadRequest)
			return
		}
		after = n
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("X-Accel-Buffering", "no")

	s := stream{w: w, rc: http.NewResponseController(w)}
	if err := s.rc.Flush(); err != nil {
		h.logger.Error("response does not support streaming", "error", err)
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := h.manager.Subscribe(r.URL.Query().Get("recitation_id"), after)
	if err != nil {
		h.logger.Error("subscribe failed", "error", err)
		return
	}
	defer h.manager.Unsubscribe(sub.ID)
	log := h.logger.With("subscriber", sub.ID)

	if err := s.write("", "connected", map[string]string{"subscriber": sub.ID}); err != nil {
		return
	}

	tick := time.NewTicker(heartbeatInterval)
	defer tick.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-sub.Events:
			if !ok {
				return
			}
			err = s.write(strconv.FormatUint(e.ID, 10), string(e.Type), e)
		case <-tick.C:
			hb := NewHeartbeatEvent()
			err = s.write("", string(hb.Type), hb)
		}
		if err != nil {
			log.Debug("event stream closed by client", "error", err)
			return
		}
	}
}

type stream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// write sends one frame. An empty id leaves the client's last event ID as is.
func (s stream) write(id, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if id != "" {
		if _, err := fmt.Fprintf(s.w, "id: %s\n", id); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		return err
	}
	// Recorders and some middleware writers have no deadline support.
	_ = s.rc.SetWriteDeadline(time.Now().Add(writeDeadline))
	return nil
}
