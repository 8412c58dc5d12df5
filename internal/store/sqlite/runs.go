package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/munajjam/munajjam/internal/domain"
	domainerrors "github.com/munajjam/munajjam/internal/errors"
)

const runColumns = `recitation_id, surah_num, state, attempts, expected, aligned,
	avg_similarity, reason, updated_at`

func scanRun(scanner interface{ Scan(dest ...any) error }) (*domain.SurahRun, error) {
	var (
		run       domain.SurahRun
		state     string
		attempts  string
		updatedAt string
	)
	err := scanner.Scan(
		&run.RecitationID,
		&run.SurahNum,
		&state,
		&attempts,
		&run.Expected,
		&run.Aligned,
		&run.AvgScore,
		&run.Reason,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.State = domain.SurahState(state)
	if err := json.Unmarshal([]byte(attempts), &run.Attempts); err != nil {
		return nil, fmt.Errorf("decode attempts: %w", err)
	}
	run.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveSurahRun upserts the retry controller's state for one surah.
func (s *Store) SaveSurahRun(ctx context.Context, run *domain.SurahRun) error {
	attempts := run.Attempts
	if attempts == nil {
		attempts = []domain.SurahAttempt{}
	}
	data, err := json.Marshal(attempts)
	if err != nil {
		return fmt.Errorf("encode attempts: %w", err)
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO surah_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recitation_id, surah_num) DO UPDATE SET
			state = excluded.state,
			attempts = excluded.attempts,
			expected = excluded.expected,
			aligned = excluded.aligned,
			avg_similarity = excluded.avg_similarity,
			reason = excluded.reason,
			updated_at = excluded.updated_at`,
		run.RecitationID,
		run.SurahNum,
		string(run.State),
		string(data),
		run.Expected,
		run.Aligned,
		run.AvgScore,
		run.Reason,
		formatTime(run.UpdatedAt),
	)
	return err
}

// GetSurahRun returns the last recorded run of one surah.
func (s *Store) GetSurahRun(ctx context.Context, recitationID string, surah int) (*domain.SurahRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM surah_runs WHERE recitation_id = ? AND surah_num = ?`,
		recitationID, surah)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("no run for surah %d of %s", surah, recitationID)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListSurahRuns returns every run of a recitation ordered by surah.
func (s *Store) ListSurahRuns(ctx context.Context, recitationID string) ([]*domain.SurahRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM surah_runs WHERE recitation_id = ? ORDER BY surah_num ASC`,
		recitationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*domain.SurahRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
