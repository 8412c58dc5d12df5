// Package pipeline drives one recitation through transcription, alignment,
// and persistence, one surah at a time.
//
// Each surah moves Pending -> InProgress -> Success | ManualReview. An attempt
// transcribes, aligns, corrects drift, writes the log, and checks that every
// ayah was aligned before anything is persisted. Attempts are idempotent: the
// sink upserts by (recitation, surah, ayah), so a retried attempt overwrites
// whatever a failed one left behind.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/munajjam/munajjam/internal/align"
	"github.com/munajjam/munajjam/internal/domain"
	domainerrors "github.com/munajjam/munajjam/internal/errors"
	"github.com/munajjam/munajjam/internal/drift"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/report"
	"github.com/munajjam/munajjam/internal/transcribe"
)

// Sink receives per-ayah timestamps and run bookkeeping.
// *sqlite.Store satisfies it.
type Sink interface {
	SaveAyah(ctx context.Context, r domain.AyahRecord) error
	TrimAyahs(ctx context.Context, recitationID string, surah, keep int) (int64, error)
	SaveSurahRun(ctx context.Context, run *domain.SurahRun) error
	SaveReview(ctx context.Context, item domain.ReviewItem) error
	ClearReview(ctx context.Context, recitationID string, surah int) error
}

// Reference supplies the canonical ayahs of a surah.
type Reference interface {
	Surah(n int) ([]domain.Ayah, error)
}

// DurationProbe returns the length of an audio file in seconds.
type DurationProbe func(ctx context.Context, path string) (float64, error)

// RetryPolicy bounds the attempts made per surah.
type RetryPolicy struct {
	MaxAttempts int `json:"max_attempts" validate:"gte=1"`
}

// DefaultRetryPolicy allows three attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3}
}

// Options configures a Controller.
type Options struct {
	Retry   RetryPolicy
	Workers int // Surahs processed concurrently by RunBatch

	AudioDir  string // Holds 001.wav...; empty disables duration clamping
	LogDir    string // Base directory of the per-surah Logging.csv; empty disables
	OutputDir string // surah_XXX.json destination; empty disables

	FixDrift bool
	Drift    drift.Options

	// OnSurahDone, if set, is called once per surah with its terminal run.
	// RunBatch calls it from several goroutines.
	OnSurahDone func(run *domain.SurahRun)
}

// DefaultOptions returns three attempts, four workers, and drift correction.
func DefaultOptions() Options {
	return Options{
		Retry:    DefaultRetryPolicy(),
		Workers:  4,
		FixDrift: true,
		Drift:    drift.DefaultOptions(),
	}
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Transcriber transcribe.Transcriber
	Aligner     *align.Aligner
	Reference   Reference
	Sink        Sink
	Probe       DurationProbe // Defaults to transcribe.ProbeDuration
	Logger      *slog.Logger
}

// Controller runs the retry loop for surahs of a recitation.
type Controller struct {
	transcriber transcribe.Transcriber
	aligner     *align.Aligner
	reference   Reference
	sink        Sink
	probe       DurationProbe
	opts        Options
	logger      *slog.Logger
}

// New creates a Controller.
func New(deps Deps, opts Options) (*Controller, error) {
	if deps.Transcriber == nil || deps.Aligner == nil || deps.Reference == nil || deps.Sink == nil {
		return nil, domainerrors.Validation("pipeline requires a transcriber, aligner, reference, and sink")
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	probe := deps.Probe
	if probe == nil {
		probe = transcribe.ProbeDuration
	}
	return &Controller{
		transcriber: deps.Transcriber,
		aligner:     deps.Aligner,
		reference:   deps.Reference,
		sink:        deps.Sink,
		probe:       probe,
		opts:        opts,
		logger:      logger.OrDiscard(deps.Logger),
	}, nil
}

// WithProgress returns a copy of c that calls fn after each surah, after any
// OnSurahDone already configured.
func (c *Controller) WithProgress(fn func(run *domain.SurahRun)) *Controller {
	cp := *c
	prev := c.opts.OnSurahDone
	cp.opts.OnSurahDone = func(run *domain.SurahRun) {
		if prev != nil {
			prev(run)
		}
		fn(run)
	}
	return &cp
}

// outcome is what one attempt produced.
type outcome struct {
	results []domain.AlignmentResult
	stats   domain.AlignmentStats
}

// RunSurah processes one surah until it succeeds or attempts run out. The
// returned run is always in a terminal state. An error is returned only when
// ctx ends; the run is then not persisted.
func (c *Controller) RunSurah(ctx context.Context, rec domain.Recitation, surah int) (*domain.SurahRun, error) {
	log := logger.ForSurah(c.logger, rec, surah)
	run := &domain.SurahRun{
		RecitationID: rec.ID,
		SurahNum:     surah,
		State:        domain.SurahPending,
		Attempts:     []domain.SurahAttempt{},
	}

	ayahs, err := c.reference.Surah(surah)
	if err != nil {
		run.State = domain.SurahManualReview
		run.Reason = err.Error()
		log.Warn("no reference text, sending to manual review", "error", err)
		c.finish(ctx, rec, run, nil)
		return run, nil
	}
	run.Expected = len(ayahs)

	var last outcome
	for attempt := 1; attempt <= c.opts.Retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			run.State = domain.SurahManualReview
			run.Reason = "interrupted"
			return run, err
		}

		run.State = domain.SurahInProgress
		log.Debug("attempt started", "attempt", attempt, "max_attempts", c.opts.Retry.MaxAttempts)

		out, err := c.attempt(ctx, rec, surah, ayahs, attempt)
		record := domain.SurahAttempt{
			Attempt:  attempt,
			Expected: len(ayahs),
			Aligned:  len(out.results),
		}
		if out.results != nil {
			last = out
		}

		if err == nil {
			record.Success = true
			run.Attempts = append(run.Attempts, record)
			run.State = domain.SurahSuccess
			run.Reason = ""
			log.Info("surah aligned",
				"attempt", attempt,
				"ayahs", len(out.results),
				"avg_similarity", domain.AverageSimilarity(out.results),
			)
			c.finish(ctx, rec, run, out.results)
			return run, nil
		}

		record.Err = err.Error()
		run.Attempts = append(run.Attempts, record)
		run.Reason = err.Error()
		if ctx.Err() != nil {
			run.State = domain.SurahManualReview
			return run, ctx.Err()
		}
		log.Warn("attempt failed",
			"attempt", attempt,
			"aligned", len(out.results),
			"expected", len(ayahs),
			"code", domainerrors.CodeOf(err),
			"error", err,
		)
	}

	run.State = domain.SurahManualReview
	log.Warn("attempts exhausted, sending to manual review",
		"attempts", len(run.Attempts),
		"aligned", len(last.results),
		"expected", len(ayahs),
	)

	// Whatever the last attempt produced is still worth keeping.
	if err := c.persist(ctx, rec, last.results); err != nil {
		log.Error("failed to persist partial alignment", "error", err)
	}
	c.finish(ctx, rec, run, last.results)
	return run, nil
}

// attempt is one transcribe, align, validate, and persist cycle.
func (c *Controller) attempt(ctx context.Context, rec domain.Recitation, surah int, ayahs []domain.Ayah, n int) (outcome, error) {
	log := logger.ForAttempt(c.logger, rec, surah, n)

	req := transcribe.Request{
		Recitation: rec,
		Surah:      surah,
		AudioPath:  c.audioPath(surah),
		Fresh:      n > 1,
	}
	t, err := c.transcriber.Transcribe(ctx, req)
	if err != nil {
		return outcome{}, err
	}

	segments, dropped := transcribe.FilterSpecial(t.Segments, surah)
	if dropped > 0 {
		log.Debug("dropped special segments", "count", dropped)
	}

	aligned, err := c.aligner.Align(ctx, align.Input{
		Segments: segments,
		Ayahs:    ayahs,
		Silences: t.Silences,
	})
	if err != nil {
		return outcome{}, err
	}
	out := outcome{results: aligned.Results, stats: aligned.Stats}

	if c.opts.FixDrift && len(t.Silences) > 0 && len(out.results) > 0 {
		var rep drift.Report
		out.results, rep = drift.Correct(out.results, t.Silences, c.opts.Drift)
		if rep.Shifted > 0 {
			log.Debug("corrected drift", "anchors", len(rep.Anchors), "shifted", rep.Shifted)
		}
		align.FixOverlaps(out.results)
	}

	c.clamp(ctx, log, req.AudioPath, out.results)

	if c.opts.LogDir != "" {
		path := report.LogPath(c.opts.LogDir, rec, surah)
		if err := report.WriteLog(path, out.results); err != nil {
			log.Warn("failed to write alignment log", "path", path, "error", err)
		}
	}

	if len(out.results) != len(ayahs) {
		return out, domainerrors.IncompleteAlignmentf("aligned %d of %d ayahs", len(out.results), len(ayahs))
	}

	if err := c.persist(ctx, rec, out.results); err != nil {
		return out, err
	}
	return out, nil
}

// persist writes results in ayah order and stops at the first failure. Rows
// past the last result, left by an earlier and longer run, are deleted so the
// surah holds one run's timestamps.
func (c *Controller) persist(ctx context.Context, rec domain.Recitation, results []domain.AlignmentResult) error {
	if len(results) == 0 {
		return nil
	}
	for _, r := range results {
		if err := c.sink.SaveAyah(ctx, domain.NewAyahRecord(rec, r)); err != nil {
			return domainerrors.PersistenceFailure(
				fmt.Sprintf("save ayah %d:%d", r.Ayah.SurahID, r.Ayah.Number),
			).WithCause(err)
		}
	}

	last := results[len(results)-1].Ayah
	n, err := c.sink.TrimAyahs(ctx, rec.ID, last.SurahID, last.Number)
	if err != nil {
		return domainerrors.PersistenceFailure(
			fmt.Sprintf("trim surah %d after ayah %d", last.SurahID, last.Number),
		).WithCause(err)
	}
	if n > 0 {
		c.logger.Debug("dropped stale ayah rows", "recitation_id", rec.ID, "surah", last.SurahID, "rows", n)
	}
	return nil
}

// clamp trims spans that run past the end of the audio.
func (c *Controller) clamp(ctx context.Context, log *slog.Logger, audioPath string, results []domain.AlignmentResult) {
	if audioPath == "" || len(results) == 0 {
		return
	}
	if _, err := os.Stat(audioPath); err != nil {
		return
	}
	duration, err := c.probe(ctx, audioPath)
	if err != nil || duration <= 0 {
		log.Debug("audio duration unavailable", "path", audioPath, "error", err)
		return
	}
	for i := range results {
		r := &results[i]
		if r.End > duration {
			r.End = duration
			r.AddNote("clamped to audio duration")
		}
		if r.Start > r.End {
			r.Start = r.End
		}
	}
}

// finish records the terminal run, the review list, and the output file.
func (c *Controller) finish(ctx context.Context, rec domain.Recitation, run *domain.SurahRun, results []domain.AlignmentResult) {
	log := logger.ForSurah(c.logger, rec, run.SurahNum)

	run.Aligned = len(results)
	run.AvgScore = domain.AverageSimilarity(results)
	run.UpdatedAt = time.Now()

	if err := c.sink.SaveSurahRun(ctx, run); err != nil {
		log.Error("failed to save surah run", "error", err)
	}

	switch run.State {
	case domain.SurahSuccess:
		if err := c.sink.ClearReview(ctx, rec.ID, run.SurahNum); err != nil {
			log.Error("failed to clear review entry", "error", err)
		}
	case domain.SurahManualReview:
		if err := c.sink.SaveReview(ctx, reviewItem(run)); err != nil {
			log.Error("failed to save review entry", "error", err)
		}
	}

	if c.opts.OutputDir != "" && len(results) > 0 {
		out := report.NewSurahOutput(rec, run.SurahNum, run.Expected, results)
		if path, err := report.WriteOutput(c.opts.OutputDir, out); err != nil {
			log.Warn("failed to write surah output", "error", err)
		} else {
			log.Debug("wrote surah output", "path", path)
		}
	}

	if c.opts.OnSurahDone != nil {
		c.opts.OnSurahDone(run)
	}
}

func (c *Controller) audioPath(surah int) string {
	if c.opts.AudioDir == "" {
		return ""
	}
	return filepath.Join(c.opts.AudioDir, transcribe.AudioFileName(surah))
}

func reviewItem(run *domain.SurahRun) domain.ReviewItem {
	return domain.ReviewItem{
		RecitationID: run.RecitationID,
		SurahNum:     run.SurahNum,
		Attempts:     len(run.Attempts),
		Expected:     run.Expected,
		Aligned:      run.Aligned,
		Reason:       run.Reason,
		CreatedAt:    run.UpdatedAt,
	}
}
