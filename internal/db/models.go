package db

import (
	"database/sql"
)

type Game struct {
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

type GameHistory struct {
	ID      int64
	GameID  string
	Winner  string
	Delta   int64
	Pattern string
	Notes   string
	Ts      int64
}
