package domain

import "time"

// Recitation identifies one reciter's recording of the Quran. It is passed
// explicitly to every transcription and alignment call.
type Recitation struct {
	ID          string `json:"recitation_id"`
	ReciterName string `json:"reciter_name"`
}

// SurahState is the retry controller's state for one surah.
type SurahState string

const (
	SurahPending      SurahState = "pending"
	SurahInProgress   SurahState = "in_progress"
	SurahSuccess      SurahState = "success"
	SurahManualReview SurahState = "manual_review"
)

// Terminal reports whether no further attempts will be made.
func (s SurahState) Terminal() bool {
	return s == SurahSuccess || s == SurahManualReview
}

// SurahAttempt is one transcribe, align, and validate cycle.
type SurahAttempt struct {
	Attempt  int    `json:"attempt"`
	Expected int    `json:"expected"`
	Aligned  int    `json:"aligned"`
	Success  bool   `json:"success"`
	Err      string `json:"error,omitempty"`
}

// AyahRecord is the persisted timestamp row, keyed by
// (RecitationID, SurahNum, AyahNum).
type AyahRecord struct {
	RecitationID string  `json:"recitation_id"`
	SurahNum     int     `json:"surah_num"`
	AyahNum      int     `json:"ayah_num"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	ReciterName  string  `json:"reciter_name"`
	Similarity   float64 `json:"similarity_score"`
	Status       Status  `json:"status"`
}

// NewAyahRecord builds the sink row for one alignment result.
func NewAyahRecord(rec Recitation, r AlignmentResult) AyahRecord {
	return AyahRecord{
		RecitationID: rec.ID,
		SurahNum:     r.Ayah.SurahID,
		AyahNum:      r.Ayah.Number,
		StartTime:    r.Start,
		EndTime:      r.End,
		ReciterName:  rec.ReciterName,
		Similarity:   r.Similarity,
		Status:       r.Status,
	}
}

// SurahRun is the outcome of the retry loop for one surah.
type SurahRun struct {
	RecitationID string         `json:"recitation_id"`
	SurahNum     int            `json:"surah_num"`
	State        SurahState     `json:"state"`
	Attempts     []SurahAttempt `json:"attempts"`
	Expected     int            `json:"expected"`
	Aligned      int            `json:"aligned"`
	AvgScore     float64        `json:"avg_similarity"`
	Reason       string         `json:"reason,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ReviewItem is one entry of the manual-review list.
type ReviewItem struct {
	RecitationID string    `json:"recitation_id"`
	SurahNum     int       `json:"surah_num"`
	Attempts     int       `json:"attempts"`
	Expected     int       `json:"expected"`
	Aligned      int       `json:"aligned"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}
