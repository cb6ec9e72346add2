package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"guandan-scorekeeper/internal/apperr"
	"guandan-scorekeeper/internal/constants"
	"guandan-scorekeeper/internal/domain"
	"guandan-scorekeeper/internal/state"

	"github.com/rs/zerolog"
)

// GameStore is the persistence contract shared by the SQLite repository and
// the JSON document store.
type GameStore interface {
	// Fetch returns apperr.ErrNotFound (by errors.Is) for unknown ids.
	Fetch(ctx context.Context, id string) (*domain.GameState, error)
	// Persist replaces the stored snapshot and its whole history.
	Persist(ctx context.Context, game *domain.GameState) error
	// Create allocates a fresh id for now's date and stores build(id).
	Create(ctx context.Context, now time.Time, build func(id string) domain.GameState) (*domain.GameState, error)
}

type Outcome int

const (
	Fetched Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "fetched"
	}
}

type Result struct {
	Outcome Outcome
	ID      string
	State   *domain.GameState
}

type GameService struct {
	store  GameStore
	logger zerolog.Logger
	now    func() time.Time
}

func NewGameService(store GameStore, logger zerolog.Logger) *GameService {
	return &GameService{store: store, logger: logger, now: time.Now}
}

// WithClock returns a copy of the service that reads time from now.
func (s *GameService) WithClock(now func() time.Time) *GameService {
	cp := *s
	cp.now = now
	return &cp
}

func (s *GameService) Get(ctx context.Context, id string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation(apperr.CodeIDRequired, "game id is required")
	}

	game, err := s.store.Fetch(ctx, id)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Error().Err(err).Str("game_id", id).Msg("failed to fetch game")
		}
		return nil, err
	}

	s.logger.Debug().Str("game_id", id).Int("history_count", len(game.History)).Msg("game fetched")
	return &Result{Outcome: Fetched, ID: id, State: game}, nil
}

// Save stores body["state"] under id. When id names an existing game the
// state replaces it and the original createdAt is kept; otherwise a new game
// is created with a freshly allocated id and any supplied id is dropped.
func (s *GameService) Save(ctx context.Context, id string, body map[string]any) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	raw, hasState := stateOf(body)

	id = strings.TrimSpace(id)
	if id != "" {
		existing, err := s.store.Fetch(ctx, id)
		switch {
		case err == nil:
			if !hasState {
				return nil, apperr.Validation(apperr.CodeStateRequired, "a valid state object is required")
			}
			return s.update(ctx, id, raw, existing)
		case errors.Is(err, apperr.ErrNotFound):
			s.logger.Debug().Str("requested_id", id).Msg("requested game not found, creating a new one")
		default:
			return nil, err
		}
	}

	return s.create(ctx, raw)
}

// Update replaces an existing game and never creates one.
func (s *GameService) Update(ctx context.Context, id string, body map[string]any) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation(apperr.CodeIDRequired, "game id is required")
	}
	raw, hasState := stateOf(body)
	if !hasState {
		return nil, apperr.Validation(apperr.CodeStateRequired, "a valid state object is required")
	}

	existing, err := s.store.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, id, raw, existing)
}

// Create always stores a new game.
func (s *GameService) Create(ctx context.Context, body map[string]any) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	raw, _ := stateOf(body)
	return s.create(ctx, raw)
}

func (s *GameService) update(ctx context.Context, id string, raw map[string]any, existing *domain.GameState) (*Result, error) {
	game := state.ForStore(raw, id, &existing.Meta, s.now())
	if err := s.store.Persist(ctx, &game); err != nil {
		s.logger.Error().Err(err).Str("game_id", id).Msg("failed to persist game")
		return nil, err
	}

	s.logger.Info().Str("game_id", id).Int("history_count", len(game.History)).Msg("game updated")
	return &Result{Outcome: Updated, ID: id, State: &game}, nil
}

func (s *GameService) create(ctx context.Context, raw map[string]any) (*Result, error) {
	now := s.now()
	game, err := s.store.Create(ctx, now, func(id string) domain.GameState {
		return state.ForStore(raw, id, nil, now)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create game")
		return nil, err
	}

	return &Result{Outcome: Created, ID: game.ID, State: game}, nil
}

// stateOf extracts body["state"], which only counts when it is an object.
func stateOf(body map[string]any) (map[string]any, bool) {
	raw, ok := body["state"].(map[string]any)
	return raw, ok
}
