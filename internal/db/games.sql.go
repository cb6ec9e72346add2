package db

import (
	"context"
	"database/sql"
)

const GetGameSQL = `SELECT id, a_level, b_level, dealer, a1_fail_A, a1_fail_B, team_a_name, team_b_name, game_over, created_at, updated_at
FROM games
WHERE id = ?`

func (q *Queries) GetGame(ctx context.Context, id string) (Game, error) {
	row := q.db.QueryRowContext(ctx, GetGameSQL, id)
	var i Game
	err := row.Scan(
		&i.ID,
		&i.ALevel,
		&i.BLevel,
		&i.Dealer,
		&i.A1FailA,
		&i.A1FailB,
		&i.TeamAName,
		&i.TeamBName,
		&i.GameOver,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const ListGameHistorySQL = `SELECT id, game_id, winner, delta, pattern, notes, ts
FROM game_history
WHERE game_id = ?
ORDER BY ts ASC, id ASC`

func (q *Queries) ListGameHistory(ctx context.Context, gameID string) ([]GameHistory, error) {
	rows, err := q.db.QueryContext(ctx, ListGameHistorySQL, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GameHistory{}
	for rows.Next() {
		var i GameHistory
		if err := rows.Scan(
			&i.ID,
			&i.GameID,
			&i.Winner,
			&i.Delta,
			&i.Pattern,
			&i.Notes,
			&i.Ts,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const ListGameIDsLikeSQL = `SELECT id FROM games WHERE id LIKE ? ORDER BY id`

func (q *Queries) ListGameIDsLike(ctx context.Context, pattern string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, ListGameIDsLikeSQL, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const InsertGameSQL = `INSERT INTO games (id, a_level, b_level, dealer, a1_fail_A, a1_fail_B, team_a_name, team_b_name, game_over, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type GameParams struct {
	ID        string
	ALevel    int64
	BLevel    int64
	Dealer    sql.NullString
	A1FailA   int64
	A1FailB   int64
	TeamAName string
	TeamBName string
	GameOver  int64
	CreatedAt string
	UpdatedAt string
}

func (arg GameParams) args() []interface{} {
	return []interface{}{
		arg.ID,
		arg.ALevel,
		arg.BLevel,
		arg.Dealer,
		arg.A1FailA,
		arg.A1FailB,
		arg.TeamAName,
		arg.TeamBName,
		arg.GameOver,
		arg.CreatedAt,
		arg.UpdatedAt,
	}
}

// InsertGame fails with a constraint error when the id is already taken.
func (q *Queries) InsertGame(ctx context.Context, arg GameParams) error {
	_, err := q.db.ExecContext(ctx, InsertGameSQL, arg.args()...)
	return err
}

const UpsertGameSQL = `INSERT INTO games (id, a_level, b_level, dealer, a1_fail_A, a1_fail_B, team_a_name, team_b_name, game_over, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    a_level = excluded.a_level,
    b_level = excluded.b_level,
    dealer = excluded.dealer,
    a1_fail_A = excluded.a1_fail_A,
    a1_fail_B = excluded.a1_fail_B,
    team_a_name = excluded.team_a_name,
    team_b_name = excluded.team_b_name,
    game_over = excluded.game_over,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertGame(ctx context.Context, arg GameParams) error {
	_, err := q.db.ExecContext(ctx, UpsertGameSQL, arg.args()...)
	return err
}

const DeleteGameHistorySQL = `DELETE FROM game_history WHERE game_id = ?`

func (q *Queries) DeleteGameHistory(ctx context.Context, gameID string) error {
	_, err := q.db.ExecContext(ctx, DeleteGameHistorySQL, gameID)
	return err
}

const InsertGameHistorySQL = `INSERT INTO game_history (game_id, winner, delta, pattern, notes, ts)
VALUES (?, ?, ?, ?, ?, ?)`

type InsertGameHistoryParams struct {
	GameID  string
	Winner  string
	Delta   int64
	Pattern string
	Notes   string
	Ts      int64
}

func (q *Queries) InsertGameHistory(ctx context.Context, arg InsertGameHistoryParams) error {
	_, err := q.db.ExecContext(ctx, InsertGameHistorySQL,
		arg.GameID,
		arg.Winner,
		arg.Delta,
		arg.Pattern,
		arg.Notes,
		arg.Ts,
	)
	return err
}
