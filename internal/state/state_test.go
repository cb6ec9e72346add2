package state

import (
	"testing"
	"time"

	"guandan-scorekeeper/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 1, 8, 0, 0, 123_000_000, time.UTC)

func TestForStore_NewGameStampsBothTimestamps(t *testing.T) {
	game := ForStore(map[string]any{
		"aLevel": float64(1),
		"bLevel": float64(0),
		"teams":  map[string]any{"A": "X", "B": "Y"},
	}, "202501010001", nil, now)

	assert.Equal(t, "202501010001", game.ID)
	assert.Equal(t, domain.Meta{
		ID:        "202501010001",
		CreatedAt: "2025-01-01T08:00:00.123Z",
		UpdatedAt: "2025-01-01T08:00:00.123Z",
	}, game.Meta)
	assert.Equal(t, 1, game.ALevel)
	assert.Equal(t, 0, game.BLevel)
	assert.Equal(t, domain.TeamNames{A: "X", B: "Y"}, game.Teams)
	assert.Nil(t, game.Dealer)
	assert.False(t, game.GameOver)
	assert.NotNil(t, game.History)
	assert.Empty(t, game.History)
}

func TestForStore_PreservesPriorCreatedAt(t *testing.T) {
	prior := &domain.Meta{
		ID:        "202401010001",
		CreatedAt: "2024-01-01T00:00:00.000Z",
		UpdatedAt: "2024-06-01T00:00:00.000Z",
	}
	game := ForStore(map[string]any{"aLevel": float64(3)}, "202401010001", prior, now)

	assert.Equal(t, "2024-01-01T00:00:00.000Z", game.Meta.CreatedAt)
	assert.Equal(t, "2025-01-01T08:00:00.123Z", game.Meta.UpdatedAt)
	assert.Equal(t, "2024-06-01T00:00:00.000Z", prior.UpdatedAt, "prior meta must not be mutated")
}

func TestForStore_IncomingMetaWinsButIDAndUpdatedAtAreForced(t *testing.T) {
	prior := &domain.Meta{CreatedAt: "2024-01-01T00:00:00.000Z"}
	raw := map[string]any{
		"meta": map[string]any{
			"id":        "spoofed",
			"createdAt": "2023-05-05T05:05:05.000Z",
			"updatedAt": "2030-01-01T00:00:00.000Z",
		},
	}
	game := ForStore(raw, "202501010002", prior, now)

	assert.Equal(t, "202501010002", game.Meta.ID)
	assert.Equal(t, "2023-05-05T05:05:05.000Z", game.Meta.CreatedAt)
	assert.Equal(t, "2025-01-01T08:00:00.123Z", game.Meta.UpdatedAt)
}

func TestForStore_EmptyIncomingCreatedAtIsRestamped(t *testing.T) {
	prior := &domain.Meta{CreatedAt: "2024-01-01T00:00:00.000Z"}
	raw := map[string]any{"meta": map[string]any{"createdAt": ""}}
	game := ForStore(raw, "202501010002", prior, now)
	assert.Equal(t, "2025-01-01T08:00:00.123Z", game.Meta.CreatedAt)
}

func TestForStore_NilRaw(t *testing.T) {
	game := ForStore(nil, "202501010003", nil, now)
	assert.Equal(t, "202501010003", game.Meta.ID)
	assert.Equal(t, domain.FailCounts{}, game.A1Fails)
	assert.Empty(t, game.History)
}

func TestForStore_ParsesScalarFields(t *testing.T) {
	game := ForStore(map[string]any{
		"aLevel":   "5",
		"bLevel":   7.8,
		"dealer":   " B ",
		"a1Fails":  map[string]any{"A": float64(2)},
		"gameOver": true,
	}, "202501010004", nil, now)

	require.NotNil(t, game.Dealer)
	assert.Equal(t, "B", *game.Dealer)
	assert.Equal(t, 5, game.ALevel)
	assert.Equal(t, 7, game.BLevel)
	assert.Equal(t, domain.FailCounts{A: 2, B: 0}, game.A1Fails)
	assert.True(t, game.GameOver)
}

func TestHistory(t *testing.T) {
	history := History([]any{
		map[string]any{"winner": "A", "delta": float64(2), "pattern": "double", "notes": map[string]any{"x": float64(1)}, "ts": float64(1700000000000)},
		"not an entry",
		map[string]any{"winner": "B", "delta": "1", "notes": "bad"},
		map[string]any{"winner": "A", "ts": nil},
	}, now)

	require.Len(t, history, 3)
	assert.Equal(t, domain.HistoryEntry{
		Winner:  "A",
		Delta:   2,
		Pattern: "double",
		Notes:   map[string]any{"x": float64(1)},
		TS:      1700000000000,
	}, history[0])
	assert.Equal(t, "B", history[1].Winner)
	assert.Equal(t, 1, history[1].Delta)
	assert.Equal(t, []any{}, history[1].Notes)
	assert.Equal(t, now.UnixMilli(), history[1].TS)
	assert.Equal(t, now.UnixMilli(), history[2].TS)
}

func TestHistory_ExplicitZeroTimestamp(t *testing.T) {
	history := History([]any{map[string]any{"winner": "A", "ts": float64(0)}}, now)

	require.Len(t, history, 1)
	assert.Equal(t, int64(0), history[0].TS)
}

func TestHistory_NotAList(t *testing.T) {
	assert.Empty(t, History(map[string]any{"0": map[string]any{}}, now))
	assert.Empty(t, History(nil, now))
}
