package transcribe

import (
	"regexp"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/normalize"
)

// Matched against normalized text, so hamza and diacritics are already gone.
var (
	istiadhaPattern = regexp.MustCompile(`ا?عوذ بالله من الشيطان الرجيم`)
	basmalaPattern  = regexp.MustCompile(`بسم الله الرحمن الرحيم`)
)

// IsIstiadha reports whether a segment is the formula of seeking refuge.
func IsIstiadha(s domain.Segment) bool {
	return s.Kind == domain.SegmentIstiadha || istiadhaPattern.MatchString(normalize.Arabic(s.Text))
}

// IsBasmala reports whether a segment contains the basmala.
func IsBasmala(s domain.Segment) bool {
	return s.Kind == domain.SegmentBasmala || basmalaPattern.MatchString(normalize.Arabic(s.Text))
}

// FilterSpecial drops segments that are recited but not part of the surah's
// ayahs: the isti'adha always, and the basmala unless surah is Al-Fatiha,
// where it is the first ayah. It returns the kept segments and how many were
// dropped.
func FilterSpecial(segments []domain.Segment, surah int) ([]domain.Segment, int) {
	kept := make([]domain.Segment, 0, len(segments))
	for _, s := range segments {
		if IsIstiadha(s) {
			continue
		}
		if surah != 1 && IsBasmala(s) {
			continue
		}
		kept = append(kept, s)
	}
	return kept, len(segments) - len(kept)
}
