package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/munajjam/munajjam/internal/domain"
	domainerrors "github.com/munajjam/munajjam/internal/errors"
	"github.com/munajjam/munajjam/internal/logger"
)

// CommandTranscriber runs an external ASR helper once per surah. The helper
// is invoked as
//
//	<Command> <Args...> --audio <path> --surah <n>
//
// and must print {"segments": [...], "silences": [[start_ms, end_ms], ...]}
// on stdout, with segment records in the same shape as the segments files.
type CommandTranscriber struct {
	Command string
	Args    []string
	Logger  *slog.Logger
}

// NewCommandTranscriber parses a command line such as "python3 asr.py --model large".
func NewCommandTranscriber(commandLine string, l *slog.Logger) (*CommandTranscriber, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, errors.New("empty transcriber command")
	}
	return &CommandTranscriber{Command: fields[0], Args: fields[1:], Logger: l}, nil
}

type helperOutput struct {
	Segments []fileSegment `json:"segments"`
	Silences [][2]float64  `json:"silences"`
}

// Transcribe implements Transcriber.
func (c *CommandTranscriber) Transcribe(ctx context.Context, req Request) (*domain.Transcription, error) {
	if req.AudioPath == "" {
		return nil, domainerrors.Validationf("no audio path for surah %d", req.Surah)
	}

	args := append(append([]string{}, c.Args...),
		"--audio", req.AudioPath,
		"--surah", strconv.Itoa(req.Surah),
	)
	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Env = os.Environ()

	started := time.Now()
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, domainerrors.Transcription(
				fmt.Sprintf("transcriber failed: %s", strings.TrimSpace(string(ee.Stderr))),
			).WithCause(err)
		}
		return nil, domainerrors.Transcription("run transcriber").WithCause(err)
	}

	var parsed helperOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, domainerrors.Transcription("parse transcriber output").WithCause(err)
	}

	t := &domain.Transcription{
		SurahID:  req.Surah,
		Segments: make([]domain.Segment, 0, len(parsed.Segments)),
		Silences: silencesFromMillis(parsed.Silences),
	}
	for _, s := range parsed.Segments {
		seg := s.segment()
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.SurahID == 0 {
			seg.SurahID = req.Surah
		}
		t.Segments = append(t.Segments, seg)
	}

	logger.OrDiscard(c.Logger).Debug("transcribed surah",
		"surah", req.Surah,
		"segments", len(t.Segments),
		"silences", len(t.Silences),
		"duration", time.Since(started),
	)
	return t, nil
}
