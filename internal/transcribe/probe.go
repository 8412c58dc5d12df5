package transcribe

import (
	"context"
	"fmt"

	"github.com/simonhull/audiometa"
)

// ProbeDuration reads a surah recording's length, in seconds, from its
// container metadata without decoding audio.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	f, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	return f.Audio.Duration.Seconds(), nil
}
