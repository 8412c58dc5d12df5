// Package providers contains dependency injection providers for the alignment engine.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/munajjam/munajjam/internal/config"
	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/id"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/util"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"strategy", cfg.Alignment.Strategy,
	)

	return log, nil
}

// ProvideRecitation provides the recitation being processed. An empty
// configured ID is derived from the reciter name, or is a fresh UUID when
// there is no name either.
func ProvideRecitation(i do.Injector) (domain.Recitation, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	rec := domain.Recitation{
		ID:          cfg.Recitation.ID,
		ReciterName: cfg.Recitation.ReciterName,
	}
	if rec.ID == "" {
		rec.ID = util.Slug(rec.ReciterName)
	}
	if rec.ID == "" {
		rec.ID = id.NewRecitationID()
		log.Info("generated recitation id", "recitation_id", rec.ID)
	}
	return rec, nil
}
