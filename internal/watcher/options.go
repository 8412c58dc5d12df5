package watcher

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const defaultSettleDelay = 200 * time.Millisecond

// Options selects which inbox files are reported and how long a file must
// stay unchanged before it is.
type Options struct {
	// Extensions restricts file events to these extensions (".json").
	// Matching ignores case. Nil reports segment and silence files only;
	// an empty slice reports every file.
	Extensions []string

	// IgnorePatterns are filepath.Match patterns tested against base names.
	// Nil selects the partial-write patterns ASR helpers leave behind.
	IgnorePatterns []string

	SettleDelay  time.Duration
	IgnoreHidden bool
}

func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = defaultSettleDelay
	}
	if o.Extensions == nil {
		o.Extensions = []string{".json"}
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{"*.tmp", "*.part", "*.partial", "*.swp", "*~", ".DS_Store"}
		o.IgnoreHidden = true
	}
}

// shouldIgnore reports whether path, file or directory, is skipped entirely.
func (o *Options) shouldIgnore(path string) bool {
	if o.IgnoreHidden {
		for part := range strings.SplitSeq(filepath.Clean(path), string(filepath.Separator)) {
			if len(part) > 1 && part[0] == '.' && part != ".." {
				return true
			}
		}
	}

	base := filepath.Base(path)
	return slices.ContainsFunc(o.IgnorePatterns, func(pattern string) bool {
		matched, err := filepath.Match(pattern, base)
		return err == nil && matched
	})
}

// wantsFile reports whether events for the file at path are delivered.
func (o *Options) wantsFile(path string) bool {
	if len(o.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	return slices.ContainsFunc(o.Extensions, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}
