package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacokyle01/blindbase/src/models"
	"github.com/jacokyle01/blindbase/src/movetree"
	"github.com/jacokyle01/blindbase/src/rules"
)

func TestBranchLines_CapsAtFour(t *testing.T) {
	tr := movetree.New(rules.Standard{}, nil)
	for _, m := range []string{"e4", "d4", "c4", "Nf3", "g3"} {
		_, err := tr.Play(m)
		require.NoError(t, err)
		tr.GoBack()
	}
	lines := BranchLines(tr.Branches())
	assert.Equal(t, []string{"  1. e4", "  2. d4", "  3. c4", "  4. Nf3", "  ... (more variations exist)"}, lines)
}

func TestBoardDiagram_Start(t *testing.T) {
	pos, err := rules.Standard{}.Start("")
	require.NoError(t, err)
	lines := BoardDiagram(pos)
	require.Len(t, lines, 8)
	assert.Equal(t, "r n b q k b n r", lines[0])
	assert.Equal(t, ". . . . . . . .", lines[4])
	assert.Equal(t, "R N B Q K B N R", lines[7])
}

func TestPieceList_Order(t *testing.T) {
	pos, err := rules.Standard{}.Start("4k3/8/8/8/8/8/1P3P2/R3K1NR w - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ke1", "Ra1", "Rh1", "Ng1", "b2", "f2"}, PieceList(pos, chess.White))
	assert.Equal(t, []string{"Ke8"}, PieceList(pos, chess.Black))
}

func TestBoardReading_EmptySide(t *testing.T) {
	pos, err := rules.Standard{}.Start("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)
	lines := NewPlain(&bytes.Buffer{}).BoardReading(pos)
	assert.Equal(t, []string{"--- BOARD READING ---", "White Pieces:", "  Ke1", "", "Black Pieces:", "  Ke8"}, lines)
}

func TestAnalysis_Block(t *testing.T) {
	r := NewPlain(&bytes.Buffer{})
	block := r.Analysis(models.Snapshot{Depth: 12, Lines: []string{"0.31 1. e4", ""}}, 3, 2)
	assert.Equal(t, []string{"Depth: 12", "Line 1: 0.31 1. e4", "Line 2: ...", "Line 3: ...", "", ""}, block)
	assert.Len(t, block, AnalysisHeight(3, 2))

	failed := r.Analysis(models.Snapshot{Depth: 12, Err: "engine exited"}, 1, 0)
	assert.Equal(t, "Analysis stopped: engine exited", failed[0])
}

func TestOpening(t *testing.T) {
	r := NewPlain(&bytes.Buffer{})
	op := models.Opening{Moves: []models.ExplorerMove{
		{SAN: "e4", White: 50, Draws: 30, Black: 20},
		{SAN: "d4", White: 1, Draws: 1, Black: 2},
		{SAN: "c4", White: 1},
	}}
	lines := r.Opening(op, 2)
	assert.Equal(t, []string{
		"--- Lichess Masters Database ---",
		"Top 2 moves:",
		"  e4: 100 games (W:50%, D:30%, B:20%)",
		"  d4: 4 games (W:25%, D:25%, B:50%)",
	}, lines)

	assert.Contains(t, r.Opening(models.Opening{}, 5), "No Lichess Masters data for this position.")
}

func TestGame_ShowsCommentResultAndClocks(t *testing.T) {
	tr, err := movetree.Parse(rules.Standard{}, `[White "A"]
[Black "B"]

1. f3 { [%clk 0:10:00] } e5 2. g4 Qh4# { mate } 0-1`)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := tr.Play("")
		require.NoError(t, err)
	}

	r := NewPlain(&bytes.Buffer{})
	lines := r.Game(GameView{Title: "Broadcast Game: A vs B", Tree: tr, Broadcast: true})
	text := strings.Join(lines, "\n")
	assert.Contains(t, text, "Move 3. White to move. (Board printing disabled)")
	assert.Contains(t, text, "White clock: 0:10:00, Black clock: N/A")
	assert.Contains(t, text, "Comment: mate")
	assert.Contains(t, text, "Game over: 0-1")
	assert.NotContains(t, text, "Available moves")
}

func TestBlock_PlainOutputHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlain(&buf)
	r.Block([]string{"one", strings.Repeat("x", 100)}, 2)
	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, strings.Repeat("x", 77)+"...\n")
}

func TestGameLine(t *testing.T) {
	tr := movetree.New(rules.Standard{}, movetree.Headers{
		{Key: "Event", Value: "World Championship Match 2023 Astana"},
		{Key: "White", Value: "Ding Liren"},
		{Key: "Black", Value: "Nepomniachtchi, Ian"},
		{Key: "Result", Value: "1-0"},
		{Key: "Date", Value: "2023.04.30"},
	})
	line := NewPlain(&bytes.Buffer{}).GameLine(11, tr, true)
	assert.Equal(t, ">>>  12. Ding Liren vs Nepomniachtchi, [1-0] 2023.04.30 (World Championship M)", line)
}
