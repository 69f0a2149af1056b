package movetree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacokyle01/blindbase/src/rules"
)

const annotated = `[Event "Casual"]
[Site "https://lichess.org/abcd1234"]
[White "Alice \"A\" Smith"]
[Black "Bob"]
[Result "1-0"]

{ A short game. }
1. e4 { [%clk 0:05:00] } 1... e5 { [%clk 0:05:00] } (1... c5 {Sicilian} 2. Nf3 (2. c3) 2... d6)
2. Nf3!? $14 Nc6 3. Bb5 ; the Spanish
3... a6 1-0
`

func TestParse_AnnotatedGame(t *testing.T) {
	tr, err := Parse(rules.Standard{}, annotated)
	require.NoError(t, err)

	assert.Equal(t, `Alice "A" Smith`, tr.Header("White"))
	assert.Equal(t, "1-0", tr.Header("Result"))
	assert.Equal(t, Root, tr.Current())
	assert.False(t, tr.Dirty())
	assert.Equal(t, "A short game.", tr.Comment())

	require.NoError(t, playAll(tr, "e4"))
	branches := tr.Branches()
	require.Len(t, branches, 2)
	assert.Equal(t, "e5", branches[0].Notation)
	assert.Equal(t, "[%clk 0:05:00]", branches[0].Comment)
	assert.Equal(t, "c5", branches[1].Notation)
	assert.Equal(t, "Sicilian", branches[1].Comment)

	require.NoError(t, playAll(tr, "c5"))
	assert.Equal(t, []string{"Nf3", "c3"}, notations(tr.Branches()))

	tr.GoBack()
	require.NoError(t, playAll(tr, "", "", "", ""))
	assert.Equal(t, "the Spanish", tr.Comment())
	assert.Equal(t, []int{5, 14}, tr.nodes[tr.nodes[tr.nodes[tr.Current()].parent].parent].nags)
}

func TestSerialize_RoundTrip(t *testing.T) {
	tr, err := Parse(rules.Standard{}, annotated)
	require.NoError(t, err)

	out := tr.Serialize()
	assert.True(t, strings.HasPrefix(out, "[Event \"Casual\"]\n"))
	assert.Contains(t, out, `[White "Alice \"A\" Smith"]`)
	flat := strings.Join(strings.Fields(out), " ")
	assert.Contains(t, flat, "{ A short game. } 1. e4 { [%clk 0:05:00] } 1... e5")
	assert.Contains(t, flat, "( 1... c5 { Sicilian } 2. Nf3 ( 2. c3 ) 2... d6 )")
	assert.Contains(t, flat, "2. Nf3 $5 $14 Nc6 3. Bb5 { the Spanish } 3... a6 1-0")

	again, err := Parse(rules.Standard{}, out)
	require.NoError(t, err)
	assert.Equal(t, out, again.Serialize())
	assert.Equal(t, tr.Headers(), again.Headers())

	// Navigating the same sequence reaches the same position in both trees.
	for _, seq := range [][]string{{"e4", "c5", "c3"}, {"e4", "e5", "Nf3", "Nc6", "Bb5", "a6"}} {
		a, b := tr.Clone(), again.Clone()
		require.NoError(t, playAll(a, seq...))
		require.NoError(t, playAll(b, seq...))
		assert.Equal(t, a.Position().String(), b.Position().String())
		assert.False(t, a.Dirty(), "sequence must already exist in the tree")
	}
}

func TestSerialize_WrapsLongMovetext(t *testing.T) {
	tr := New(rules.Standard{}, nil)
	moves := strings.Fields("Nf3 Nf6 Ng1 Ng8 Nf3 Nf6 Ng1 Ng8 Nc3 Nc6 Nb1 Nb8 Nc3 Nc6 Nb1 Nb8 Nf3 Nf6 Ng1 Ng8")
	require.NoError(t, playAll(tr, moves...))
	for _, line := range strings.Split(tr.Serialize(), "\n") {
		assert.LessOrEqual(t, len(line), lineWidth)
	}
	again, err := Parse(rules.Standard{}, tr.Serialize())
	require.NoError(t, err)
	assert.Equal(t, len(moves), pathLen(again))
}

func TestParse_MoveNumbersWithoutSpaces(t *testing.T) {
	tr, err := Parse(rules.Standard{}, "1.e4 e5 2.Nf3 2...Nc6 *")
	require.NoError(t, err)
	assert.Equal(t, 4, pathLen(tr))
}

func TestParse_HeaderOnly(t *testing.T) {
	tr, err := Parse(rules.Standard{}, "[White \"A\"]\n[Black \"B\"]\n")
	require.NoError(t, err)
	assert.Equal(t, Root, tr.MainLineEnd())
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"unterminated comment":   "1. e4 { never closed",
		"illegal move":           "1. e4 e4 *",
		"unbalanced close":       "1. e4 ) e5 *",
		"unterminated variation": "1. e4 ( 1. d4 *",
		"variation first":        "( 1. d4 ) 1. e4 *",
		"bad tag":                "[White Bob]\n1. e4 *",
		"bad FEN":                "[FEN \"nope\"]\n1. e4 *",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(rules.Standard{}, text)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}

	_, err := Parse(rules.Standard{}, "   \n")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParseAll_SkipsMalformedRecords(t *testing.T) {
	stream := `[Event "one"]
[White "A"]

1. e4 e5 *

[Event "two"]

1. e4 e4 *

% escaped line
[Event "three"]

1. d4 { multi
[%clk 1:00:00] line } d5 1/2-1/2
`
	trees, errs := ParseAll(rules.Standard{}, strings.NewReader(stream))
	require.Len(t, trees, 2)
	require.Len(t, errs, 1)

	var recErr *RecordError
	require.ErrorAs(t, errs[0], &recErr)
	assert.Equal(t, 2, recErr.Index)
	assert.ErrorIs(t, errs[0], ErrSyntax)

	assert.Equal(t, "one", trees[0].Header("Event"))
	assert.Equal(t, "three", trees[1].Header("Event"))
	require.NoError(t, playAll(trees[1], ""))
	assert.Equal(t, "multi line [%clk 1:00:00]", trees[1].Comment())
}

func TestParseAll_BraceInsideLineComment(t *testing.T) {
	stream := "[White \"A\"]\n\n1. e4 ; see {x\n1-0\n\n[White \"B\"]\n\n1. d4 *\n"
	trees, errs := ParseAll(rules.Standard{}, strings.NewReader(stream))
	require.Len(t, trees, 2)
	assert.Empty(t, errs)

	assert.Equal(t, "B", trees[1].Header("White"))
	require.NoError(t, playAll(trees[0], ""))
	assert.Equal(t, "see {x", trees[0].Comment())
}

func TestParse_DrawAndZeroCastling(t *testing.T) {
	tr, err := Parse(rules.Standard{}, "1. e4 e5 2. Nf3 Nc6 3. Bc4 Bc5 4. 0-0 Nf6 1/2-1/2")
	require.NoError(t, err)
	assert.Equal(t, "1/2-1/2", tr.Header("Result"))
	assert.Equal(t, 8, pathLen(tr))
}

func TestParse_CommandsKeptApartFromText(t *testing.T) {
	tr, err := Parse(rules.Standard{}, "1. e4 { [%eval 0.2] good [%clk 0:01:00] } *")
	require.NoError(t, err)
	require.NoError(t, playAll(tr, ""))

	n := tr.nodes[tr.Current()]
	assert.Equal(t, "good", n.comment)
	assert.Equal(t, []Command{{Name: "eval", Value: "0.2"}, {Name: "clk", Value: "0:01:00"}}, n.commands)
	assert.Equal(t, "good [%eval 0.2] [%clk 0:01:00]", tr.Comment())
}

func TestSerialize_BlackToMoveStart(t *testing.T) {
	tr, err := Parse(rules.Standard{}, `[FEN "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"]
[SetUp "1"]

1... e5 2. Nf3 *`)
	require.NoError(t, err)

	out := tr.Serialize()
	assert.Contains(t, out, "1... e5 2. Nf3 *")

	again, err := Parse(rules.Standard{}, out)
	require.NoError(t, err)
	assert.Equal(t, 2, pathLen(again))
}

func TestSerialize_CommentBeforeVariationMove(t *testing.T) {
	tr, err := Parse(rules.Standard{}, "1. e4 e5 ( {Sharp} 1... c5 ) 2. Nf3 *")
	require.NoError(t, err)

	flat := strings.Join(strings.Fields(tr.Serialize()), " ")
	assert.Contains(t, flat, "( { Sharp } 1... c5 )")

	require.NoError(t, playAll(tr, "e4"))
	branches := tr.Branches()
	require.Len(t, branches, 2)
	assert.Equal(t, "", branches[1].Comment, "a leading comment is not the move's annotation")

	again, err := Parse(rules.Standard{}, tr.Serialize())
	require.NoError(t, err)
	assert.Equal(t, tr.Serialize(), again.Serialize())
}

func TestSerialize_ClosingBraceInComment(t *testing.T) {
	tr := New(rules.Standard{}, nil)
	require.NoError(t, playAll(tr, "e4"))
	tr.nodes[tr.Current()].comment = "a } b"

	out := tr.Serialize()
	assert.Contains(t, out, "1. e4 { a ) b } *")

	again, err := Parse(rules.Standard{}, out)
	require.NoError(t, err)
	require.NoError(t, playAll(again, ""))
	assert.Equal(t, "a ) b", again.Comment())
}

func TestParse_ResultHeaderFilledFromMovetext(t *testing.T) {
	tr, err := Parse(rules.Standard{}, "1. e4 e5 0-1")
	require.NoError(t, err)
	assert.Equal(t, "0-1", tr.Header("Result"))
}

func playAll(tr *Tree, moves ...string) error {
	for _, m := range moves {
		if _, err := tr.Play(m); err != nil {
			return err
		}
	}
	return nil
}

func pathLen(tr *Tree) int {
	return len(tr.pathTo(tr.MainLineEnd()))
}
