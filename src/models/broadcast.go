package models

// Broadcast is a lichess broadcast (tournament) with its rounds.
type Broadcast struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	StartDate int64   `json:"startDate,omitempty"` // unix millis
	Rounds    []Round `json:"rounds"`
}

// Round is one round of a broadcast.
type Round struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate int64  `json:"startsAt,omitempty"` // unix millis
}

// Opening is a masters explorer answer for one position.
type Opening struct {
	Opening *struct {
		ECO  string `json:"eco"`
		Name string `json:"name"`
	} `json:"opening"`
	Moves []ExplorerMove `json:"moves"`
}

// ExplorerMove is one candidate move with its game statistics.
type ExplorerMove struct {
	UCI   string `json:"uci"`
	SAN   string `json:"san"`
	White int    `json:"white"`
	Draws int    `json:"draws"`
	Black int    `json:"black"`
}

// Total returns the number of games that reached the move.
func (m ExplorerMove) Total() int {
	return m.White + m.Draws + m.Black
}
