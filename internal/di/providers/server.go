package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/munajjam/munajjam/internal/align"
	"github.com/munajjam/munajjam/internal/api"
	"github.com/munajjam/munajjam/internal/config"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/quran"
)

const (
	// Per-client limit on POST /api/v1/align.
	alignRequestsPerSecond = 2
	alignBurst             = 5

	shutdownTimeout = 30 * time.Second
)

// HTTPServerHandle drains in-flight requests on shutdown, giving up after
// shutdownTimeout.
type HTTPServerHandle struct {
	*http.Server
}

func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer builds the alignment API and starts serving it. Listen
// errors after startup are logged, not returned.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	events := do.MustInvoke[*EventManagerHandle](i)

	handler := api.NewServer(api.Config{
		Store:      do.MustInvoke[*StoreHandle](i).Store,
		Search:     do.MustInvoke[*SearchIndexHandle](i).SearchIndex,
		Reference:  do.MustInvoke[*quran.Reference](i),
		Aligner:    do.MustInvoke[*align.Aligner](i),
		Events:     events.Manager,
		AlignRate:  alignRequestsPerSecond,
		AlignBurst: alignBurst,
		Logger:     log.Logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	// Open event streams never go idle on their own.
	srv.RegisterOnShutdown(events.DisconnectAll)

	go func() {
		log.Info("Serving alignment API", "addr", srv.Addr, "strategy", cfg.Alignment.Strategy)
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("Alignment API stopped", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
