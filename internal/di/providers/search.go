package providers

import (
	"github.com/samber/do/v2"

	"github.com/munajjam/munajjam/internal/config"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/quran"
	"github.com/munajjam/munajjam/internal/search"
)

// SearchIndexHandle closes the ayah index when the container shuts down.
type SearchIndexHandle struct {
	*search.SearchIndex
}

func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex opens the ayah index and brings it in line with the
// loaded reference text, reindexing only when that text changed.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	ref := do.MustInvoke[*quran.Reference](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Data.SearchPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	indexed, err := index.Sync(ref)
	if err != nil {
		_ = index.Close()
		return nil, err
	}
	count, _ := index.DocumentCount()
	log.Info("Search index ready", "documents", count, "reindexed", indexed, "reference", search.Fingerprint(ref))

	return &SearchIndexHandle{SearchIndex: index}, nil
}
