package providers

import (
	"github.com/samber/do/v2"

	"github.com/munajjam/munajjam/internal/align"
	"github.com/munajjam/munajjam/internal/config"
	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/pipeline"
	"github.com/munajjam/munajjam/internal/quran"
	"github.com/munajjam/munajjam/internal/ratelimit"
	"github.com/munajjam/munajjam/internal/transcribe"
)

// ProvideReference provides the canonical ayah text. Without a configured
// file only the embedded Al-Fatiha is available.
func ProvideReference(i do.Injector) (*quran.Reference, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Data.ReferencePath == "" {
		log.Warn("no reference file configured, only Al-Fatiha is available")
		return quran.Fatiha(), nil
	}

	ref, err := quran.LoadFile(cfg.Data.ReferencePath)
	if err != nil {
		return nil, err
	}
	log.Info("Reference text loaded", "path", cfg.Data.ReferencePath, "surahs", len(ref.Surahs()))
	return ref, nil
}

// ProvideAligner provides the aligner configured from the alignment section.
func ProvideAligner(i do.Injector) (*align.Aligner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	strategy, err := domain.ParseStrategy(cfg.Alignment.Strategy)
	if err != nil {
		return nil, err
	}

	opts := align.DefaultOptions()
	opts.Strategy = strategy
	opts.QualityThreshold = cfg.Alignment.QualityThreshold
	opts.MinSimilarity = cfg.Alignment.MinSimilarity
	opts.MaxSpan = cfg.Alignment.MaxSpan
	opts.Logger = log.Logger

	return align.New(opts)
}

// ProvideTranscriber provides the transcription chain. Without a configured
// command, segment files are read from the inbox as they are. A command is
// throttled per reciter and its output cached in Badger.
func ProvideTranscriber(i do.Injector) (transcribe.Transcriber, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Pipeline.TranscriberCommand == "" {
		log.Info("Reading transcriptions from inbox", "path", cfg.Data.InboxPath)
		return transcribe.NewFileSource(cfg.Data.InboxPath), nil
	}

	command, err := transcribe.NewCommandTranscriber(cfg.Pipeline.TranscriberCommand, log.Logger)
	if err != nil {
		return nil, err
	}
	cache := do.MustInvoke[*TranscriptionCacheHandle](i)

	throttled := transcribe.NewThrottled(command, ratelimit.New(cfg.Pipeline.TranscriptionRate, 1))
	log.Info("Transcribing with external command",
		"command", command.Command,
		"rate", cfg.Pipeline.TranscriptionRate,
	)
	return transcribe.NewCached(throttled, cache.Store, log.Logger), nil
}

// ProvideController provides the retry controller.
func ProvideController(i do.Injector) (*pipeline.Controller, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	opts := pipeline.DefaultOptions()
	opts.Retry.MaxAttempts = cfg.Pipeline.MaxAttempts
	opts.Workers = cfg.Pipeline.Workers
	opts.AudioDir = cfg.Data.AudioPath
	opts.LogDir = cfg.Data.OutputPath
	opts.OutputDir = cfg.Data.OutputPath
	opts.FixDrift = cfg.Alignment.FixDrift
	opts.Drift.ZoneSize = cfg.Alignment.DriftZoneSize
	opts.Drift.Tolerance = cfg.Alignment.DriftTolerance

	return pipeline.New(pipeline.Deps{
		Transcriber: do.MustInvoke[transcribe.Transcriber](i),
		Aligner:     do.MustInvoke[*align.Aligner](i),
		Reference:   do.MustInvoke[*quran.Reference](i),
		Sink:        storeHandle.Store,
		Logger:      log.Logger,
	}, opts)
}
