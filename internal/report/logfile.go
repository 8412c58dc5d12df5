// Package report writes the per-surah alignment log and output files, and
// analyzes finished outputs to find weak alignments.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/quran"
)

// LogFileName is the name of the per-surah CSV log.
const LogFileName = "Logging.csv"

//nolint:gochecknoglobals // Column order of the log
var logHeader = []string{
	"sura_id", "ayah_index", "ayah_text",
	"model_text", "start_time", "end_time",
	"similarity_score", "status", "notes",
	"overlap_status",
}

// LogPath returns {base}/{reciter}-{recitationID}/{surah}-{surahName}/Logging.csv.
func LogPath(base string, rec domain.Recitation, surah int) string {
	return filepath.Join(base,
		rec.ReciterName+"-"+rec.ID,
		strconv.Itoa(surah)+"-"+quran.SurahName(surah),
		LogFileName,
	)
}

// WriteLog replaces the log at path with one row per result.
func WriteLog(path string, results []domain.AlignmentResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create log: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(logHeader); err != nil {
		f.Close()
		return fmt.Errorf("write log header: %w", err)
	}
	for _, r := range results {
		if err := w.Write(logRow(r)); err != nil {
			f.Close()
			return fmt.Errorf("write log row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush log: %w", err)
	}
	return f.Close()
}

func logRow(r domain.AlignmentResult) []string {
	return []string{
		strconv.Itoa(r.Ayah.SurahID),
		strconv.Itoa(r.Ayah.Number),
		r.Ayah.Text,
		r.Transcript,
		formatFloat(r.Start),
		formatFloat(r.End),
		formatFloat(r.Similarity),
		string(r.Status),
		r.Notes,
		string(r.OverlapStatus),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
