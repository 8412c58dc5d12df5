package domain

// Ayah is one canonical verse of a surah.
type Ayah struct {
	SurahID int    `json:"surah_id" validate:"surah"`
	Number  int    `json:"ayah_number" validate:"gte=1"`
	Text    string `json:"text" validate:"required"`
}

// SegmentKind classifies a transcribed segment.
type SegmentKind string

const (
	SegmentAyah     SegmentKind = "ayah"
	SegmentIstiadha SegmentKind = "istiadha"
	SegmentBasmala  SegmentKind = "basmala"
)

// WordTimestamp is a word-level timing emitted by some ASR backends.
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one ASR chunk. Times are seconds from the start of the audio.
type Segment struct {
	ID         int             `json:"id,omitempty"`
	SurahID    int             `json:"surah_id,omitempty"`
	Text       string          `json:"text"`
	Start      float64         `json:"start" validate:"gte=0"`
	End        float64         `json:"end" validate:"gtefield=Start"`
	Words      []WordTimestamp `json:"words,omitempty"`
	Kind       SegmentKind     `json:"type,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Silence is a detected pause in the audio, in seconds.
type Silence struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtefield=Start"`
}

// Transcription is everything the transcriber produces for one surah.
type Transcription struct {
	SurahID  int       `json:"surah_id"`
	Segments []Segment `json:"segments"`
	Silences []Silence `json:"silences,omitempty"`
}
