package store

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munajjam/munajjam/internal/domain"
)

func setupTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Path == "" && !opts.InMemory {
		opts.Path = t.TempDir()
	}
	s, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// plant writes a value under a cache key without the envelope.
func plant(t *testing.T, s *Store, recitationID string, surah int, value []byte) {
	t.Helper()
	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(recitationID, surah), value)
	}))
}

func sampleTranscription(surah int) *domain.Transcription {
	return &domain.Transcription{
		SurahID: surah,
		Segments: []domain.Segment{
			{ID: 1, SurahID: surah, Text: "قل هو الله احد", Start: 0.5, End: 3.1, Kind: domain.SegmentAyah},
			{ID: 2, SurahID: surah, Text: "الله الصمد", Start: 3.6, End: 5.2, Kind: domain.SegmentAyah},
		},
		Silences: []domain.Silence{{Start: 3.1, End: 3.6}},
	}
}

func TestStore_PutGet(t *testing.T) {
	s := setupTestStore(t, Options{})

	want := sampleTranscription(112)
	require.NoError(t, s.PutTranscription("rec-1", want))

	got, err := s.GetTranscription("rec-1", 112)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_GetMissing(t *testing.T) {
	s := setupTestStore(t, Options{InMemory: true})

	_, err := s.GetTranscription("rec-1", 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PutNil(t *testing.T) {
	s := setupTestStore(t, Options{InMemory: true})
	assert.Error(t, s.PutTranscription("rec-1", nil))
}

func TestStore_RecitationsAreIsolated(t *testing.T) {
	s := setupTestStore(t, Options{InMemory: true})

	require.NoError(t, s.PutTranscription("rec-1", sampleTranscription(112)))

	_, err := s.GetTranscription("rec-10", 112)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetTranscription("rec-1", 112)
	assert.NoError(t, err)
}

func TestStore_PutReplaces(t *testing.T) {
	s := setupTestStore(t, Options{InMemory: true})

	require.NoError(t, s.PutTranscription("rec-1", sampleTranscription(1)))
	fresh := sampleTranscription(1)
	fresh.Segments = fresh.Segments[:1]
	require.NoError(t, s.PutTranscription("rec-1", fresh))

	got, err := s.GetTranscription("rec-1", 1)
	require.NoError(t, err)
	assert.Len(t, got.Segments, 1)
}

func TestStore_StaleEntriesAreDropped(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "{{"},
		{"old format", `{"format":0,"transcription":{"surah_id":1}}`},
		{"bare transcription", `{"surah_id":1,"segments":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t, Options{InMemory: true})
			plant(t, s, "rec-1", 1, []byte(tt.value))

			_, err := s.GetTranscription("rec-1", 1)
			assert.ErrorIs(t, err, ErrNotFound)

			err = s.db.View(func(txn *badger.Txn) error {
				_, err := txn.Get(key("rec-1", 1))
				return err
			})
			assert.ErrorIs(t, err, badger.ErrKeyNotFound)
		})
	}
}

func TestStore_TTL(t *testing.T) {
	s := setupTestStore(t, Options{InMemory: true, TTL: time.Hour})
	require.NoError(t, s.PutTranscription("rec-1", sampleTranscription(112)))

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key("rec-1", 112))
		if err != nil {
			return err
		}
		expires := time.Unix(int64(item.ExpiresAt()), 0)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.PutTranscription("rec-1", sampleTranscription(112)))
	require.NoError(t, s.Close())

	s, err = Open(Options{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetTranscription("rec-1", 112)
	require.NoError(t, err)
	assert.Len(t, got.Segments, 2)
}
