package models

// Score is an engine evaluation from the point of view of the side to move
// at the analyzed position. Exactly one of CP and Mate is set.
type Score struct {
	CP   *int `json:"cp,omitempty"`   // centipawns
	Mate *int `json:"mate,omitempty"` // plies to mate, negative when being mated
}

// Centipawns returns a centipawn score.
func Centipawns(cp int) Score {
	return Score{CP: &cp}
}

// MateIn returns a mate score.
func MateIn(plies int) Score {
	return Score{Mate: &plies}
}

// IsMate reports whether s is a mate score.
func (s Score) IsMate() bool {
	return s.Mate != nil
}

// Sample is one engine report for a single principal variation.
type Sample struct {
	Depth int      `json:"depth"`
	Line  int      `json:"multipv"` // 1-based
	PV    []string `json:"pv"`      // coordinate notation
	Score Score    `json:"score"`
	Nodes int64    `json:"nodes,omitempty"`
	NPS   int64    `json:"nps,omitempty"`
}
