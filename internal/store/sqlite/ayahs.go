package sqlite

import (
	"context"
	"time"

	"github.com/munajjam/munajjam/internal/domain"
)

// ayahColumns is the ordered list of columns selected in ayah queries.
// Must match the scan order in scanAyah.
const ayahColumns = `recitation_id, surah_num, ayah_num, start_time, end_time,
	reciter_name, similarity_score, status`

func scanAyah(scanner interface{ Scan(dest ...any) error }) (domain.AyahRecord, error) {
	var (
		r      domain.AyahRecord
		status string
	)
	err := scanner.Scan(
		&r.RecitationID,
		&r.SurahNum,
		&r.AyahNum,
		&r.StartTime,
		&r.EndTime,
		&r.ReciterName,
		&r.Similarity,
		&status,
	)
	if err != nil {
		return domain.AyahRecord{}, err
	}
	r.Status = domain.Status(status)
	return r, nil
}

// SaveAyah upserts one timestamp row keyed by (recitation, surah, ayah).
func (s *Store) SaveAyah(ctx context.Context, r domain.AyahRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ayah_timestamps (
			recitation_id, surah_num, ayah_num, start_time, end_time,
			reciter_name, similarity_score, status, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recitation_id, surah_num, ayah_num) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			reciter_name = excluded.reciter_name,
			similarity_score = excluded.similarity_score,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		r.RecitationID,
		r.SurahNum,
		r.AyahNum,
		r.StartTime,
		r.EndTime,
		r.ReciterName,
		r.Similarity,
		string(r.Status),
		formatTime(time.Now()),
	)
	return err
}

// TrimAyahs deletes the rows of one surah numbered above keep and reports how
// many went.
func (s *Store) TrimAyahs(ctx context.Context, recitationID string, surah, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ayah_timestamps WHERE recitation_id = ? AND surah_num = ? AND ayah_num > ?`,
		recitationID, surah, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListAyahs returns the stored rows of one surah ordered by ayah number.
func (s *Store) ListAyahs(ctx context.Context, recitationID string, surah int) ([]domain.AyahRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ayahColumns+` FROM ayah_timestamps
		WHERE recitation_id = ? AND surah_num = ?
		ORDER BY ayah_num ASC`,
		recitationID, surah)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.AyahRecord{}
	for rows.Next() {
		r, err := scanAyah(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// CountAyahs returns the number of stored rows per status for a recitation.
func (s *Store) CountAyahs(ctx context.Context, recitationID string) (map[domain.Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM ayah_timestamps
		WHERE recitation_id = ? GROUP BY status`,
		recitationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}
