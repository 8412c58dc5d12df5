// Package main provides the munajjam command: batch alignment, the HTTP API,
// the inbox watcher and quality reports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/samber/do/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/munajjam/munajjam/internal/config"
	"github.com/munajjam/munajjam/internal/di"
	"github.com/munajjam/munajjam/internal/di/providers"
	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/pipeline"
	"github.com/munajjam/munajjam/internal/quran"
	"github.com/munajjam/munajjam/internal/report"
)

const usage = `usage: munajjam <command> [flags] [args]

commands:
  align  [surah...]   align surahs from the inbox or transcriber (default: all reference surahs)
  serve               run the HTTP API and the inbox watcher; progress streams at /api/v1/events
  watch               align surahs as segment files land in the inbox
  report [surah...]   summarize output files and investigate surahs (default: the worst five)
`

const investigatedByDefault = 5

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "munajjam: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, out io.Writer) error {
	switch command {
	case "align", "serve", "watch", "report":
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}

	cfg, positional, err := config.LoadConfig(args)
	if err != nil {
		return err
	}
	surahs, err := parseSurahs(positional)
	if err != nil {
		return err
	}

	injector := di.NewContainer(cfg)
	defer func() {
		if err := injector.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()

	switch command {
	case "align":
		return runAlign(ctx, injector, surahs, out)
	case "serve":
		if err := di.StartServer(injector); err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		if err := di.StartWatcher(injector); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		return waitForSignal(ctx, injector)
	case "watch":
		if err := di.StartWatcher(injector); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		return waitForSignal(ctx, injector)
	default:
		return runReport(ctx, injector, cfg.Data.OutputPath, surahs, out)
	}
}

func waitForSignal(ctx context.Context, injector do.Injector) error {
	<-ctx.Done()
	do.MustInvoke[*logger.Logger](injector).Info("Shutting down gracefully...")
	return nil
}

// parseSurahs turns positional arguments into validated surah numbers.
func parseSurahs(args []string) ([]int, error) {
	surahs := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || !quran.ValidSurah(n) {
			return nil, fmt.Errorf("invalid surah %q: must be a number from 1 to 114", arg)
		}
		surahs = append(surahs, n)
	}
	return surahs, nil
}

func runAlign(ctx context.Context, injector do.Injector, surahs []int, out io.Writer) error {
	controller := do.MustInvoke[*pipeline.Controller](injector)
	rec := do.MustInvoke[domain.Recitation](injector)
	if len(surahs) == 0 {
		surahs = do.MustInvoke[*quran.Reference](injector).Surahs()
	}

	p := mpb.New(mpb.WithOutput(out), mpb.WithWidth(64))
	bar := p.AddBar(int64(len(surahs)),
		mpb.PrependDecorators(
			decor.Name("Aligning: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 30),
		),
	)

	var (
		mu   sync.Mutex
		last = time.Now()
	)
	controller = controller.WithProgress(func(*domain.SurahRun) {
		mu.Lock()
		defer mu.Unlock()
		bar.EwmaIncrement(time.Since(last))
		last = time.Now()
	})

	rep, err := controller.RunBatch(ctx, rec, surahs)
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	if rep != nil {
		printBatch(out, rep)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printBatch(out io.Writer, rep *pipeline.BatchReport) {
	fmt.Fprintf(out, "\nrun %s: %d aligned, %d for manual review, %d attempts in %s\n",
		rep.RunID, len(rep.Succeeded), len(rep.ManualReview), rep.Attempts, rep.Duration.Round(time.Millisecond))
	if len(rep.ManualReview) == 0 {
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SURAH\tALIGNED\tATTEMPTS\tREASON")
	for _, item := range rep.ManualReview {
		fmt.Fprintf(tw, "%d %s\t%d/%d\t%d\t%s\n",
			item.SurahNum, quran.SurahName(item.SurahNum), item.Aligned, item.Expected, item.Attempts, item.Reason)
	}
	_ = tw.Flush()
}

func runReport(ctx context.Context, injector do.Injector, dir string, surahs []int, out io.Writer) error {
	log := do.MustInvoke[*logger.Logger](injector)

	outputs, errs := report.LoadOutputs(dir)
	for _, err := range errs {
		log.Warn("skipping output file", "error", err)
	}
	if len(outputs) == 0 {
		return fmt.Errorf("no surah output files in %s", dir)
	}

	analysis := report.Analyze(outputs)
	printAnalysis(out, analysis)

	if len(surahs) == 0 {
		for _, s := range analysis.WorstSurahs(investigatedByDefault) {
			surahs = append(surahs, s.SurahID)
		}
	}

	var loc report.Locator
	if index, err := do.Invoke[*providers.SearchIndexHandle](injector); err == nil {
		loc = index.SearchIndex
	} else {
		log.Warn("search index unavailable, misplaced ayahs will not be detected", "error", err)
	}

	byID := make(map[int]*report.SurahOutput, len(outputs))
	for _, o := range outputs {
		byID[o.SurahID] = o
	}
	for _, surah := range surahs {
		o, ok := byID[surah]
		if !ok {
			log.Warn("no output file for surah", "surah", surah)
			continue
		}
		inv, err := report.Investigate(ctx, o, loc)
		if err != nil {
			return fmt.Errorf("investigate surah %d: %w", surah, err)
		}
		printInvestigation(out, inv)
	}
	return nil
}

func printAnalysis(out io.Writer, a report.Analysis) {
	fmt.Fprintf(out, "%d ayahs: mean %.3f, std dev %.3f, min %.3f (%d:%d), max %.3f (%d:%d)\n",
		a.Count, a.Mean, a.StdDev,
		a.Min.Similarity, a.Min.SurahID, a.Min.AyahNumber,
		a.Max.Similarity, a.Max.SurahID, a.Max.AyahNumber)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nBAND\tCOUNT\tPERCENT")
	for _, b := range a.Bands {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", b.Label, b.Count, b.Percent)
	}
	fmt.Fprintln(tw, "\nSURAH\tAVG\tMIN\t<90\t<80\t<70")
	for _, s := range a.WorstSurahs(10) {
		fmt.Fprintf(tw, "%d %s\t%.3f\t%.3f\t%d\t%d\t%d\n",
			s.SurahID, s.SurahName, s.AvgSimilarity, s.MinSimilarity, s.Below90, s.Below80, s.Below70)
	}
	_ = tw.Flush()
}

func printInvestigation(out io.Writer, inv *report.Investigation) {
	fmt.Fprintf(out, "\nsurah %d %s: %d of %d ayahs below threshold\n",
		inv.SurahID, inv.SurahName, inv.LowScoring, inv.Total)

	p := inv.Patterns
	if len(p.CascadeSequences) > 0 {
		fmt.Fprintf(out, "  cascades: %v\n", p.CascadeSequences)
	}
	if len(p.CriticalFailures) > 0 {
		fmt.Fprintf(out, "  critical: %v\n", p.CriticalFailures)
	}
	if len(p.Misplaced) > 0 {
		fmt.Fprintf(out, "  misplaced: %v\n", p.Misplaced)
	}
	for _, a := range inv.Worst {
		fmt.Fprintf(out, "  ayah %d  %.3f  %.2fs-%.2fs\n", a.AyahNumber, a.Similarity, a.Start, a.End)
		for _, issue := range a.Issues {
			fmt.Fprintf(out, "    %s\n", issue)
		}
	}
}
