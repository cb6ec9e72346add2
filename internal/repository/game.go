package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"guandan-scorekeeper/internal/apperr"
	"guandan-scorekeeper/internal/db"
	"guandan-scorekeeper/internal/domain"
	"guandan-scorekeeper/internal/gameid"
	"guandan-scorekeeper/internal/normalize"
	"guandan-scorekeeper/internal/state"

	"github.com/rs/zerolog"
)

// GameRepository stores games in SQLite: one games row per id plus its
// game_history rows. Concurrent updates to the same id are last-commit-wins;
// no version token is kept.
//
// Writes go through writer, whose transactions take the write lock on BEGIN.
// Fetch reads through reader, a query-only pool with deferred transactions.
type GameRepository struct {
	queries     *db.Queries
	readQueries *db.Queries
	db          *sql.DB
	reader      *sql.DB
	logger      zerolog.Logger
	now         func() time.Time
}

func NewGameRepository(writer, reader *sql.DB, logger zerolog.Logger) *GameRepository {
	return &GameRepository{
		queries:     db.New(writer),
		readQueries: db.New(reader),
		db:          writer,
		reader:      reader,
		logger:      logger,
		now:         time.Now,
	}
}

func (r *GameRepository) Fetch(ctx context.Context, id string) (*domain.GameState, error) {
	tx, err := r.reader.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage(apperr.CodeSQL, "BEGIN", err)
	}
	defer tx.Rollback()

	qtx := r.readQueries.WithTx(tx)

	row, err := qtx.GetGame(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(id)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("game_id", id).Msg("failed to load game")
		return nil, apperr.Storage(apperr.CodeSQL, db.GetGameSQL, err)
	}

	rows, err := qtx.ListGameHistory(ctx, id)
	if err != nil {
		r.logger.Error().Err(err).Str("game_id", id).Msg("failed to load game history")
		return nil, apperr.Storage(apperr.CodeSQL, db.ListGameHistorySQL, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage(apperr.CodeSQL, "COMMIT", err)
	}

	game := toDomain(row)
	game.History = make([]domain.HistoryEntry, len(rows))
	for i, h := range rows {
		game.History[i] = domain.HistoryEntry{
			Winner:  h.Winner,
			Delta:   int(h.Delta),
			Pattern: h.Pattern,
			Notes:   decodeNotes(h.Notes),
			TS:      h.Ts,
		}
	}
	return game, nil
}

// Persist upserts the games row and replaces the whole history ledger for
// the game in one transaction. On any failure the transaction is rolled
// back and the previously stored game stays as it was.
func (r *GameRepository) Persist(ctx context.Context, game *domain.GameState) error {
	id, err := gameID(game)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Storage(apperr.CodeSQL, "BEGIN", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	if err := qtx.UpsertGame(ctx, r.gameParams(id, game)); err != nil {
		r.logger.Error().Err(err).Str("game_id", id).Msg("failed to upsert game")
		return apperr.Storage(apperr.CodeSQL, db.UpsertGameSQL, err)
	}
	if err := r.replaceHistory(ctx, qtx, id, game.History); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Str("game_id", id).Msg("failed to commit game")
		return apperr.Storage(apperr.CodeSQL, "COMMIT", err)
	}

	r.logger.Debug().Str("game_id", id).Int("history_count", len(game.History)).Msg("game persisted")
	return nil
}

// Create allocates the next id for now's date and inserts the game built
// for it, all inside one immediate transaction so two creators never
// receive the same id.
func (r *GameRepository) Create(ctx context.Context, now time.Time, build func(id string) domain.GameState) (*domain.GameState, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage(apperr.CodeSQL, "BEGIN", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	existing, err := qtx.ListGameIDsLike(ctx, gameid.DatePart(now)+"____")
	if err != nil {
		return nil, apperr.Storage(apperr.CodeSQL, db.ListGameIDsLikeSQL, err)
	}
	id, err := gameid.Next(now, existing)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to allocate game id")
		return nil, apperr.Storage(apperr.CodeIDExhausted, "allocate game id", err)
	}

	game := build(id)
	game.ID = id
	game.Meta.ID = id

	if err := qtx.InsertGame(ctx, r.gameParams(id, &game)); err != nil {
		r.logger.Error().Err(err).Str("game_id", id).Msg("failed to insert game")
		return nil, apperr.Storage(apperr.CodeSQL, db.InsertGameSQL, err)
	}
	if err := r.replaceHistory(ctx, qtx, id, game.History); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Str("game_id", id).Msg("failed to commit new game")
		return nil, apperr.Storage(apperr.CodeSQL, "COMMIT", err)
	}

	r.logger.Info().Str("game_id", id).Msg("game created")
	return &game, nil
}

func (r *GameRepository) replaceHistory(ctx context.Context, qtx *db.Queries, id string, history []domain.HistoryEntry) error {
	if err := qtx.DeleteGameHistory(ctx, id); err != nil {
		r.logger.Error().Err(err).Str("game_id", id).Msg("failed to clear game history")
		return apperr.Storage(apperr.CodeSQL, db.DeleteGameHistorySQL, err)
	}

	for i, entry := range history {
		err := qtx.InsertGameHistory(ctx, db.InsertGameHistoryParams{
			GameID:  id,
			Winner:  entry.Winner,
			Delta:   int64(entry.Delta),
			Pattern: entry.Pattern,
			Notes:   encodeNotes(entry.Notes),
			Ts:      entry.TS,
		})
		if err != nil {
			r.logger.Error().Err(err).Str("game_id", id).Int("entry", i).Msg("failed to insert history entry")
			return apperr.Storage(apperr.CodeSQL, db.InsertGameHistorySQL, fmt.Errorf("history entry %d: %w", i, err))
		}
	}
	return nil
}

func (r *GameRepository) gameParams(id string, game *domain.GameState) db.GameParams {
	createdAt := game.Meta.CreatedAt
	if createdAt == "" {
		createdAt = state.FormatTime(r.now())
	}
	updatedAt := game.Meta.UpdatedAt
	if updatedAt == "" {
		updatedAt = createdAt
	}

	var dealer sql.NullString
	if game.Dealer != nil {
		dealer = sql.NullString{String: *game.Dealer, Valid: true}
	}

	var gameOver int64
	if game.GameOver {
		gameOver = 1
	}

	return db.GameParams{
		ID:        id,
		ALevel:    int64(game.ALevel),
		BLevel:    int64(game.BLevel),
		Dealer:    dealer,
		A1FailA:   int64(game.A1Fails.A),
		A1FailB:   int64(game.A1Fails.B),
		TeamAName: game.Teams.A,
		TeamBName: game.Teams.B,
		GameOver:  gameOver,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

func toDomain(row db.Game) *domain.GameState {
	var dealer *string
	if row.Dealer.Valid {
		dealer = normalize.Dealer(row.Dealer.String)
	}
	return &domain.GameState{
		ID:       row.ID,
		ALevel:   int(row.ALevel),
		BLevel:   int(row.BLevel),
		Dealer:   dealer,
		A1Fails:  domain.FailCounts{A: int(row.A1FailA), B: int(row.A1FailB)},
		Teams:    domain.TeamNames{A: row.TeamAName, B: row.TeamBName},
		GameOver: row.GameOver != 0,
		Meta: domain.Meta{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
	}
}

func gameID(game *domain.GameState) (string, error) {
	if game == nil {
		return "", apperr.Validation(apperr.CodeInvalidState, "state must not be empty")
	}
	id := strings.TrimSpace(game.Meta.ID)
	if id == "" {
		id = strings.TrimSpace(game.ID)
	}
	if id == "" {
		return "", apperr.Validation(apperr.CodeInvalidState, "state.meta.id must not be empty")
	}
	return id, nil
}

// encodeNotes renders notes as compact JSON without HTML escaping. Values
// that are not an object or array are stored as "[]".
func encodeNotes(notes any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalize.Notes(notes)); err != nil {
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}

// decodeNotes never fails: empty or malformed text decodes to an empty array.
func decodeNotes(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return []any{}
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return []any{}
	}
	return normalize.Notes(v)
}
