// Package docstore keeps every game in a single JSON document. Each write
// loads the whole document, drops games past the retention window, merges
// the written game and replaces the file atomically through a temp file and
// rename.
//
// Writes inside one process are serialized. Two processes sharing the same
// file can still overwrite each other's games.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"guandan-scorekeeper/internal/apperr"
	"guandan-scorekeeper/internal/config"
	"guandan-scorekeeper/internal/constants"
	"guandan-scorekeeper/internal/domain"
	"guandan-scorekeeper/internal/gameid"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type document struct {
	Games map[string]*domain.GameState `json:"games"`
}

type Store struct {
	path      string
	retention time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	mu sync.Mutex
}

func New(cfg *config.Config, logger zerolog.Logger) *Store {
	return Open(cfg.DataFile, cfg.Retention, logger)
}

func Open(path string, retention time.Duration, logger zerolog.Logger) *Store {
	if retention <= 0 {
		retention = constants.RetentionWindow
	}
	return &Store{
		path:      path,
		retention: retention,
		logger:    logger.With().Str("store", "docstore").Str("path", path).Logger(),
		now:       time.Now,
	}
}

func (s *Store) Fetch(ctx context.Context, id string) (*domain.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	game, ok := doc.Games[id]
	if !ok || game == nil {
		return nil, apperr.NotFound(id)
	}
	game.ID = id
	fillDefaults(game)
	return game, nil
}

func (s *Store) Persist(ctx context.Context, game *domain.GameState) error {
	if game == nil || strings.TrimSpace(game.Meta.ID) == "" {
		return apperr.Validation(apperr.CodeInvalidState, "state.meta.id must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	id := strings.TrimSpace(game.Meta.ID)
	stored := *game
	stored.ID = id
	doc.Games[id] = &stored
	return s.write(doc)
}

func (s *Store) Create(ctx context.Context, now time.Time, build func(id string) domain.GameState) (*domain.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(doc.Games))
	for id := range doc.Games {
		ids = append(ids, id)
	}
	id, err := gameid.Next(now, ids)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to allocate game id")
		return nil, apperr.Storage(apperr.CodeIDExhausted, "allocate game id", err)
	}

	game := build(id)
	game.ID = id
	game.Meta.ID = id
	doc.Games[id] = &game
	if err := s.write(doc); err != nil {
		return nil, err
	}

	s.logger.Info().Str("game_id", id).Msg("game created")
	return &game, nil
}

// Prune rewrites the document without expired games and reports how many
// were dropped.
func (s *Store) Prune(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return 0, err
	}
	dropped := s.prune(doc)
	if err := s.flush(doc); err != nil {
		return 0, err
	}
	return dropped, nil
}

func (s *Store) read() (*document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &document{Games: map[string]*domain.GameState{}}, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read store")
		return nil, apperr.Storage(apperr.CodeStoreIO, "read "+s.path, err)
	}

	var doc document
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			s.logger.Error().Err(err).Msg("failed to decode store")
			return nil, apperr.Storage(apperr.CodeStoreIO, "decode "+s.path, err)
		}
	}
	if doc.Games == nil {
		doc.Games = map[string]*domain.GameState{}
	}
	return &doc, nil
}

func (s *Store) write(doc *document) error {
	s.prune(doc)
	return s.flush(doc)
}

func (s *Store) prune(doc *document) int {
	now := s.now()
	dropped := 0
	for id, game := range doc.Games {
		if s.expired(game, now) {
			delete(doc.Games, id)
			dropped++
		}
	}
	if dropped > 0 {
		s.logger.Info().Int("dropped", dropped).Dur("retention", s.retention).Msg("pruned expired games")
	}
	return dropped
}

// flush replaces the file with doc. The content goes to a sibling temp file
// that is synced and then renamed over the target, so a reader sees either
// the old file or the new one in full.
func (s *Store) flush(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperr.Storage(apperr.CodeStoreIO, "encode "+s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Storage(apperr.CodeStoreIO, "mkdir "+dir, err)
	}

	suffix, err := gonanoid.New()
	if err != nil {
		return apperr.Storage(apperr.CodeStoreIO, "temp name", fmt.Errorf("failed to generate nanoid: %w", err))
	}
	tmp := filepath.Join(dir, "."+filepath.Base(s.path)+"."+suffix+".tmp")

	if err := writeSynced(tmp, data); err != nil {
		os.Remove(tmp)
		s.logger.Error().Err(err).Str("temp", tmp).Msg("failed to write temp store")
		return apperr.Storage(apperr.CodeStoreIO, "write temp file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		s.logger.Error().Err(err).Msg("failed to replace store")
		return apperr.Storage(apperr.CodeStoreIO, "rename temp file", err)
	}

	s.logger.Debug().Int("games", len(doc.Games)).Msg("store written")
	return nil
}

// expired reports whether game has no valid createdAt or was created more
// than the retention window before now.
func (s *Store) expired(game *domain.GameState, now time.Time) bool {
	if game == nil {
		return true
	}
	created, err := parseTime(game.Meta.CreatedAt)
	if err != nil {
		return true
	}
	return now.Sub(created) > s.retention
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(constants.ISOMillis, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func fillDefaults(game *domain.GameState) {
	if game.History == nil {
		game.History = []domain.HistoryEntry{}
	}
	for i := range game.History {
		if game.History[i].Notes == nil {
			game.History[i].Notes = []any{}
		}
	}
}
