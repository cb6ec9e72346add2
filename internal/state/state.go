// Package state turns a client-submitted state object into a canonical
// domain.GameState ready to be stored.
package state

import (
	"time"

	"guandan-scorekeeper/internal/constants"
	"guandan-scorekeeper/internal/domain"
	"guandan-scorekeeper/internal/normalize"
)

// ForStore merges prior meta with any meta embedded in raw (incoming keys
// win), stamps createdAt when it is still empty, always stamps updatedAt
// and forces the meta id to id. Every other field is parsed through the
// value normalizers. raw may be nil.
func ForStore(raw map[string]any, id string, prior *domain.Meta, now time.Time) domain.GameState {
	meta := mergeMeta(raw["meta"], prior)
	nowISO := FormatTime(now)
	if meta.CreatedAt == "" {
		meta.CreatedAt = nowISO
	}
	meta.UpdatedAt = nowISO
	meta.ID = id

	return domain.GameState{
		ID:       id,
		ALevel:   normalize.Int(raw["aLevel"]),
		BLevel:   normalize.Int(raw["bLevel"]),
		Dealer:   normalize.Dealer(raw["dealer"]),
		A1Fails:  normalize.A1Fails(raw["a1Fails"]),
		Teams:    normalize.Teams(raw["teams"]),
		GameOver: normalize.Bool(raw["gameOver"]),
		History:  History(raw["history"], now),
		Meta:     meta,
	}
}

// History parses a raw history list. Entries that are not objects are
// skipped; a missing ts defaults to now.
func History(v any, now time.Time) []domain.HistoryEntry {
	items, _ := v.([]any)
	history := make([]domain.HistoryEntry, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ts := now.UnixMilli()
		if raw, ok := entry["ts"]; ok && raw != nil {
			ts = normalize.Int64(raw)
		}
		history = append(history, domain.HistoryEntry{
			Winner:  normalize.String(entry["winner"]),
			Delta:   normalize.Int(entry["delta"]),
			Pattern: normalize.String(entry["pattern"]),
			Notes:   normalize.Notes(entry["notes"]),
			TS:      ts,
		})
	}
	return history
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(constants.ISOMillis)
}

func mergeMeta(incoming any, prior *domain.Meta) domain.Meta {
	var meta domain.Meta
	if prior != nil {
		meta = *prior
	}
	m, ok := incoming.(map[string]any)
	if !ok {
		return meta
	}
	if v, ok := m["createdAt"]; ok {
		meta.CreatedAt = normalize.String(v)
	}
	if v, ok := m["updatedAt"]; ok {
		meta.UpdatedAt = normalize.String(v)
	}
	return meta
}
