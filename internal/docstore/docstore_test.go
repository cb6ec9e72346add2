package docstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"guandan-scorekeeper/internal/apperr"
	"guandan-scorekeeper/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := Open(filepath.Join(t.TempDir(), "data", "data.json"), 0, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func game(id, createdAt string) *domain.GameState {
	dealer := "B"
	return &domain.GameState{
		ID:      id,
		ALevel:  3,
		BLevel:  5,
		Dealer:  &dealer,
		A1Fails: domain.FailCounts{A: 0, B: 2},
		Teams:   domain.TeamNames{A: "X", B: "Y"},
		History: []domain.HistoryEntry{
			{Winner: "B", Delta: 3, Pattern: "bomb", Notes: map[string]any{"k": "v"}, TS: 1748779200000},
		},
		Meta: domain.Meta{ID: id, CreatedAt: createdAt, UpdatedAt: createdAt},
	}
}

func TestStore_FetchFromMissingFile(t *testing.T) {
	s := testStore(t)
	_, err := s.Fetch(context.Background(), "202506010001")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStore_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	g := game("202506010001", "2025-06-01T10:00:00.000Z")
	require.NoError(t, s.Persist(ctx, g))

	found, err := s.Fetch(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g, found)
}

func TestStore_HistoryReplacementIsTotal(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	g := game("202506010001", "2025-06-01T10:00:00.000Z")
	require.NoError(t, s.Persist(ctx, g))
	g.History = []domain.HistoryEntry{}
	require.NoError(t, s.Persist(ctx, g))

	found, err := s.Fetch(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, found.History)
}

func TestStore_WritePrunesExpiredAndInvalidGames(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seed := document{Games: map[string]*domain.GameState{
		"202406010001": game("202406010001", "2024-05-01T00:00:00.000Z"),
		"202406020001": game("202406020001", "2024-06-02T00:00:00.000Z"),
		"202406030001": game("202406030001", ""),
		"202406040001": game("202406040001", "yesterday"),
	}}
	require.NoError(t, s.flush(&seed))

	require.NoError(t, s.Persist(ctx, game("202506010001", "2025-06-01T09:00:00.000Z")))

	_, err := s.Fetch(ctx, "202406010001")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "older than 365 days")
	_, err = s.Fetch(ctx, "202406030001")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "missing createdAt")
	_, err = s.Fetch(ctx, "202406040001")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "unparseable createdAt")

	_, err = s.Fetch(ctx, "202406020001")
	assert.NoError(t, err, "within the retention window")
	_, err = s.Fetch(ctx, "202506010001")
	assert.NoError(t, err)
}

func TestStore_FetchDoesNotPrune(t *testing.T) {
	s := testStore(t)
	old := document{Games: map[string]*domain.GameState{
		"202301010001": game("202301010001", "2023-01-01T00:00:00.000Z"),
	}}
	require.NoError(t, s.flush(&old))

	_, err := s.Fetch(context.Background(), "202301010001")
	assert.NoError(t, err)
}

func TestStore_Prune(t *testing.T) {
	s := testStore(t)
	seed := document{Games: map[string]*domain.GameState{
		"202301010001": game("202301010001", "2023-01-01T00:00:00.000Z"),
		"202506010001": game("202506010001", "2025-06-01T00:00:00.000Z"),
	}}
	require.NoError(t, s.flush(&seed))

	dropped, err := s.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)

	_, err = s.Fetch(context.Background(), "202506010001")
	assert.NoError(t, err)
}

func TestStore_CustomRetention(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "data.json"), 24*time.Hour, zerolog.Nop())
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Persist(ctx, game("202505300001", "2025-05-30T12:00:00.000Z")))

	_, err := s.Fetch(ctx, "202505300001")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStore_CreateAllocatesIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Persist(ctx, game("202506010002", "2025-06-01T10:00:00.000Z")))

	build := func(id string) domain.GameState {
		return *game(id, "2025-06-01T11:00:00.000Z")
	}
	created, err := s.Create(ctx, now, build)
	require.NoError(t, err)
	assert.Equal(t, "202506010003", created.ID)
	assert.Equal(t, "202506010003", created.Meta.ID)

	found, err := s.Fetch(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestStore_FileIsCompleteJSONAndNoTempFilesRemain(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, now, func(id string) domain.GameState {
			return *game(id, "2025-06-01T11:00:00.000Z")
		})
		require.NoError(t, err)
	}

	raw, err := os.ReadFile(s.path)
	require.NoError(t, err)
	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc["games"], 3)

	entries, err := os.ReadDir(filepath.Dir(s.path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.json", entries[0].Name())
}

func TestStore_CorruptFileIsAStorageErrorAndIsLeftAlone(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.path), 0o755))
	require.NoError(t, os.WriteFile(s.path, []byte(`{"games": {`), 0o644))

	err := s.Persist(context.Background(), game("202506010001", "2025-06-01T10:00:00.000Z"))
	assert.ErrorIs(t, err, apperr.ErrStorage)

	raw, err := os.ReadFile(s.path)
	require.NoError(t, err)
	assert.Equal(t, `{"games": {`, string(raw))
}

func TestStore_PersistRejectsEmptyID(t *testing.T) {
	s := testStore(t)
	g := game("", "2025-06-01T10:00:00.000Z")
	err := s.Persist(context.Background(), g)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, statErr := os.Stat(s.path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_ZeroTimestampRoundTrips(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	g := game("202506010001", "2025-06-01T10:00:00.000Z")
	g.History = []domain.HistoryEntry{{Winner: "A", Notes: []any{}, TS: 0}}
	require.NoError(t, s.Persist(ctx, g))

	found, err := s.Fetch(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, found.History, 1)
	assert.Equal(t, int64(0), found.History[0].TS)
}

func TestStore_ConcurrentCreatesGetUniqueIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	const creators = 8
	ids := make([]string, creators)
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < creators; i++ {
		g.Go(func() error {
			created, err := s.Create(gCtx, now, func(id string) domain.GameState {
				return *game(id, "2025-06-01T11:00:00.000Z")
			})
			if err != nil {
				return err
			}
			ids[i] = created.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool, creators)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, creators)
}
