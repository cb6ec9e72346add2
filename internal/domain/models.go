package domain

// GameState is the canonical stored snapshot of one game.
type GameState struct {
	ID       string         `json:"-"`
	ALevel   int            `json:"aLevel"`
	BLevel   int            `json:"bLevel"`
	Dealer   *string        `json:"dealer"` // nil until a dealer is chosen
	A1Fails  FailCounts     `json:"a1Fails"`
	Teams    TeamNames      `json:"teams"`
	GameOver bool           `json:"gameOver"`
	History  []HistoryEntry `json:"history"`
	Meta     Meta           `json:"meta"`
}

type FailCounts struct {
	A int `json:"A"`
	B int `json:"B"`
}

type TeamNames struct {
	A string `json:"A"`
	B string `json:"B"`
}

type HistoryEntry struct {
	Winner  string `json:"winner"`
	Delta   int    `json:"delta"`
	Pattern string `json:"pattern"`
	Notes   any    `json:"notes"` // JSON object or array, never nil once normalized
	TS      int64  `json:"ts"`    // epoch milliseconds
}

type Meta struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}
