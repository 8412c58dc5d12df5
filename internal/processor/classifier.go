// Package processor turns settled inbox events into surah alignment runs.
package processor

import (
	"path/filepath"
	"strings"

	"github.com/munajjam/munajjam/internal/transcribe"
)

// FileType represents the type of file detected by the classifier.
type FileType int

const (
	// FileTypeSegments is a surah_XXX_segments.json transcript.
	FileTypeSegments FileType = iota
	// FileTypeSilences is a surah_XXX_silences.json pause list.
	FileTypeSilences
	// FileTypeAudio is a recording (.wav, .mp3, ...).
	FileTypeAudio
	// FileTypeIgnored is everything else.
	FileTypeIgnored
)

// String returns the string representation of a FileType.
func (ft FileType) String() string {
	switch ft {
	case FileTypeSegments:
		return "segments"
	case FileTypeSilences:
		return "silences"
	case FileTypeAudio:
		return "audio"
	case FileTypeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// classifyFile determines what an inbox file is and, for transcript files,
// which surah it belongs to. Audio files report surah 0.
func classifyFile(path string) (FileType, int) {
	if path == "" {
		return FileTypeIgnored, 0
	}
	if n, ok := transcribe.ParseSegmentsFileName(path); ok {
		return FileTypeSegments, n
	}
	if n, ok := transcribe.ParseSilencesFileName(path); ok {
		return FileTypeSilences, n
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3", ".flac", ".m4a", ".ogg", ".opus":
		return FileTypeAudio, 0
	}
	return FileTypeIgnored, 0
}
