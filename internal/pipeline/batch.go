package pipeline

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/id"
)

// BatchReport summarizes a RunBatch call.
type BatchReport struct {
	RunID        string              `json:"run_id"`
	Succeeded    []int               `json:"succeeded"`
	ManualReview []domain.ReviewItem `json:"manual_review"`
	Attempts     int                 `json:"attempts"`
	Runs         []*domain.SurahRun  `json:"runs"`
	Duration     time.Duration       `json:"duration"`
}

// RunBatch processes surahs concurrently, at most Workers at a time. A surah
// that fails goes to manual review and the batch carries on; only ctx ending
// stops it early, in which case the partial report is returned with the error.
func (c *Controller) RunBatch(ctx context.Context, rec domain.Recitation, surahs []int) (*BatchReport, error) {
	started := time.Now()
	report := &BatchReport{
		RunID:        id.MustGenerate(id.PrefixRun),
		Succeeded:    []int{},
		ManualReview: []domain.ReviewItem{},
	}
	log := c.logger.With("run_id", report.RunID, "recitation_id", rec.ID)
	log.Info("batch started", "surahs", len(surahs), "workers", c.opts.Workers)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for _, surah := range surahs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			run, err := c.RunSurah(gctx, rec, surah)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			report.Runs = append(report.Runs, run)
			report.Attempts += len(run.Attempts)
			if run.State == domain.SurahSuccess {
				report.Succeeded = append(report.Succeeded, surah)
			} else {
				report.ManualReview = append(report.ManualReview, reviewItem(run))
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	slices.Sort(report.Succeeded)
	slices.SortFunc(report.ManualReview, func(a, b domain.ReviewItem) int {
		return a.SurahNum - b.SurahNum
	})
	slices.SortFunc(report.Runs, func(a, b *domain.SurahRun) int {
		return a.SurahNum - b.SurahNum
	})
	report.Duration = time.Since(started)

	log.Info("batch finished",
		"succeeded", len(report.Succeeded),
		"manual_review", len(report.ManualReview),
		"attempts", report.Attempts,
		"duration", report.Duration,
	)
	return report, err
}
