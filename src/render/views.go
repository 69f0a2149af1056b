package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corentings/chess/v2"

	"github.com/jacokyle01/blindbase/src/models"
	"github.com/jacokyle01/blindbase/src/movetree"
	"github.com/jacokyle01/blindbase/src/rules"
)

// MaxBranches is the number of variations listed under the board.
const MaxBranches = 4

const commentWidth = 70

// GameView is everything shown above the command prompt.
type GameView struct {
	Title     string
	Tree      *movetree.Tree
	ShowBoard bool
	Broadcast bool
	Status    string // result of the previous command
}

// Game renders the game view.
func (r *Renderer) Game(v GameView) []string {
	t := v.Tree
	pos := t.Position()
	lines := []string{r.paint(titleStyle, v.Title)}

	side := "White to move"
	if pos.Turn() == chess.Black {
		side = "Black to move"
	}
	if v.ShowBoard {
		lines = append(lines, fmt.Sprintf("Move %d. %s", rules.MoveNumber(pos), side))
		lines = append(lines, BoardDiagram(pos)...)
	} else {
		lines = append(lines, fmt.Sprintf("Move %d. %s. (Board printing disabled)", rules.MoveNumber(pos), side))
	}
	if v.Broadcast {
		white, black := t.Clocks()
		lines = append(lines, fmt.Sprintf("White clock: %s, Black clock: %s", white, black))
	}
	if c := t.Comment(); c != "" {
		if len([]rune(c)) > commentWidth {
			c = string([]rune(c)[:commentWidth]) + "..."
		}
		lines = append(lines, "Comment: "+c)
	}
	if over, result := t.Terminal(); over {
		lines = append(lines, r.paint(markStyle, "Game over: "+result))
	}
	if b := t.Branches(); len(b) > 0 {
		lines = append(lines, "", r.paint(headingStyle, "Available moves/variations:"))
		lines = append(lines, BranchLines(b)...)
	}
	if v.Status != "" {
		lines = append(lines, "", v.Status)
	}
	return lines
}

// BranchLines lists at most MaxBranches variations with 1-based indices.
func BranchLines(branches []movetree.Branch) []string {
	var lines []string
	for i, b := range branches {
		if i >= MaxBranches {
			lines = append(lines, "  ... (more variations exist)")
			break
		}
		line := fmt.Sprintf("  %d. %s", b.Index, b.Notation)
		if b.Comment != "" {
			line += " (" + b.Comment + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

// BoardDiagram draws the board from White's side, rank 8 first, with
// letters for pieces and dots for empty squares.
func BoardDiagram(pos *chess.Position) []string {
	board := pos.Board()
	lines := make([]string, 0, 8)
	for rank := 7; rank >= 0; rank-- {
		cells := make([]string, 8)
		for file := 0; file < 8; file++ {
			p := board.Piece(chess.Square(rank*8 + file))
			cells[file] = pieceLetter(p)
		}
		lines = append(lines, strings.Join(cells, " "))
	}
	return lines
}

var pieceOrder = map[chess.PieceType]int{
	chess.King: 0, chess.Queen: 1, chess.Rook: 2, chess.Bishop: 3, chess.Knight: 4, chess.Pawn: 5,
}

var pieceLetters = map[chess.PieceType]string{
	chess.King: "K", chess.Queen: "Q", chess.Rook: "R", chess.Bishop: "B", chess.Knight: "N", chess.Pawn: "P",
}

func pieceLetter(p chess.Piece) string {
	if p == chess.NoPiece {
		return "."
	}
	l := pieceLetters[p.Type()]
	if p.Color() == chess.Black {
		return strings.ToLower(l)
	}
	return l
}

// PieceList returns the pieces of one colour ordered king first and pawns
// last, then by file and rank. Pawns are named by their square only.
func PieceList(pos *chess.Position, c chess.Color) []string {
	type placed struct {
		sq chess.Square
		pt chess.PieceType
	}
	var ps []placed
	for sq, p := range pos.Board().SquareMap() {
		if p.Color() == c {
			ps = append(ps, placed{sq, p.Type()})
		}
	}
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if pieceOrder[a.pt] != pieceOrder[b.pt] {
			return pieceOrder[a.pt] < pieceOrder[b.pt]
		}
		if a.sq.File() != b.sq.File() {
			return a.sq.File() < b.sq.File()
		}
		return a.sq.Rank() < b.sq.Rank()
	})
	out := make([]string, len(ps))
	for i, p := range ps {
		if p.pt == chess.Pawn {
			out[i] = p.sq.String()
		} else {
			out[i] = pieceLetters[p.pt] + p.sq.String()
		}
	}
	return out
}

// BoardReading lists both sides' pieces for reading aloud.
func (r *Renderer) BoardReading(pos *chess.Position) []string {
	lines := []string{r.paint(titleStyle, "--- BOARD READING ---")}
	for _, side := range []struct {
		name  string
		color chess.Color
	}{{"White Pieces:", chess.White}, {"Black Pieces:", chess.Black}} {
		if side.color == chess.Black {
			lines = append(lines, "")
		}
		lines = append(lines, r.paint(headingStyle, side.name))
		pieces := PieceList(pos, side.color)
		if len(pieces) == 0 {
			lines = append(lines, "  None")
		}
		for _, p := range pieces {
			lines = append(lines, "  "+p)
		}
	}
	return lines
}

// AnalysisHeight is the number of lines an analysis block occupies.
func AnalysisHeight(lines, padding int) int {
	return 1 + lines + padding
}

// Analysis renders a snapshot as a fixed-height block.
func (r *Renderer) Analysis(s models.Snapshot, lines, padding int) []string {
	out := make([]string, 0, AnalysisHeight(lines, padding))
	if s.Err != "" {
		out = append(out, "Analysis stopped: "+s.Err)
	} else {
		out = append(out, fmt.Sprintf("Depth: %d", s.Depth))
	}
	for i := 0; i < lines; i++ {
		content := "..."
		if i < len(s.Lines) && s.Lines[i] != "" {
			content = s.Lines[i]
		}
		out = append(out, fmt.Sprintf("Line %d: %s", i+1, content))
	}
	for i := 0; i < padding; i++ {
		out = append(out, "")
	}
	return out
}

// Opening renders the masters explorer answer for the top n moves.
func (r *Renderer) Opening(op models.Opening, n int) []string {
	lines := []string{r.paint(headingStyle, "--- Lichess Masters Database ---")}
	if op.Opening != nil && op.Opening.Name != "" {
		lines = append(lines, "Opening: "+op.Opening.Name)
	}
	if len(op.Moves) == 0 {
		return append(lines, "No Lichess Masters data for this position.")
	}
	if n > len(op.Moves) {
		n = len(op.Moves)
	}
	lines = append(lines, fmt.Sprintf("Top %d moves:", n))
	for _, m := range op.Moves[:n] {
		total := m.Total()
		if total == 0 {
			continue
		}
		pct := func(v int) float64 { return float64(v) / float64(total) * 100 }
		lines = append(lines, fmt.Sprintf("  %s: %d games (W:%.0f%%, D:%.0f%%, B:%.0f%%)",
			m.SAN, total, pct(m.White), pct(m.Draws), pct(m.Black)))
	}
	return lines
}

// GameLine renders one entry of the game list.
func (r *Renderer) GameLine(i int, t *movetree.Tree, selected bool) string {
	marker := "    "
	if selected {
		marker = r.paint(markStyle, ">>> ")
	}
	event := ""
	if e := clip(t.Header("Event"), 20); e != "" {
		event = " (" + e + ")"
	}
	return fmt.Sprintf("%s%3d. %s vs %s [%s] %s%s", marker, i+1,
		clip(orNA(t.Header("White")), 15), clip(orNA(t.Header("Black")), 15),
		orDefault(t.Header("Result"), "*"), orNA(t.Header("Date")), event)
}

func clip(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func orNA(s string) string { return orDefault(s, "N/A") }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
