package sqlite

import (
	"context"
	"time"

	"github.com/munajjam/munajjam/internal/domain"
)

// SaveReview adds a surah to the manual-review list, replacing any earlier
// entry for the same surah.
func (s *Store) SaveReview(ctx context.Context, item domain.ReviewItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manual_review (
			recitation_id, surah_num, attempts, expected, aligned, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recitation_id, surah_num) DO UPDATE SET
			attempts = excluded.attempts,
			expected = excluded.expected,
			aligned = excluded.aligned,
			reason = excluded.reason,
			created_at = excluded.created_at`,
		item.RecitationID,
		item.SurahNum,
		item.Attempts,
		item.Expected,
		item.Aligned,
		item.Reason,
		formatTime(item.CreatedAt),
	)
	return err
}

// ClearReview removes a surah from the manual-review list. Used when a later
// run of the surah succeeds.
func (s *Store) ClearReview(ctx context.Context, recitationID string, surah int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM manual_review WHERE recitation_id = ? AND surah_num = ?`,
		recitationID, surah)
	return err
}

// ListManualReview returns the surahs awaiting review, ordered by surah.
func (s *Store) ListManualReview(ctx context.Context, recitationID string) ([]domain.ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recitation_id, surah_num, attempts, expected, aligned, reason, created_at
		FROM manual_review WHERE recitation_id = ?
		ORDER BY surah_num ASC`,
		recitationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.ReviewItem{}
	for rows.Next() {
		var (
			item      domain.ReviewItem
			createdAt string
		)
		err := rows.Scan(
			&item.RecitationID,
			&item.SurahNum,
			&item.Attempts,
			&item.Expected,
			&item.Aligned,
			&item.Reason,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}
		item.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
