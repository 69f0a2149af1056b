package movetree

import (
	"testing"

	"github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacokyle01/blindbase/src/rules"
)

func newTree(t *testing.T, moves ...string) *Tree {
	t.Helper()
	tr := New(rules.Standard{}, nil)
	for _, m := range moves {
		_, err := tr.Play(m)
		require.NoError(t, err, m)
	}
	return tr
}

func notations(bs []Branch) []string {
	var out []string
	for _, b := range bs {
		out = append(out, b.Notation)
	}
	return out
}

func TestPlay_BranchingEndToEnd(t *testing.T) {
	tr := newTree(t, "e4", "e5")
	require.True(t, tr.GoBack())
	_, err := tr.Play("c5")
	require.NoError(t, err)

	require.True(t, tr.GoBack())
	branches := tr.Branches()
	require.Len(t, branches, 2)
	assert.Equal(t, []string{"e5", "c5"}, notations(branches))
	assert.Equal(t, 1, branches[0].Index)
	assert.Equal(t, 2, branches[1].Index)

	assert.Equal(t, "1. e4 e5 ( 1... c5 ) *\n", tr.Serialize())
	assert.True(t, tr.Dirty())
}

func TestPlay_EmptyInput(t *testing.T) {
	tr := New(rules.Standard{}, nil)
	_, err := tr.Play("")
	assert.ErrorIs(t, err, ErrNoMoveAvailable)
	assert.Equal(t, Root, tr.Current())
	assert.False(t, tr.Dirty())

	tr = newTree(t, "e4", "e5")
	tr.GoBack()
	tr.GoBack()
	m, err := tr.Play("")
	require.NoError(t, err)
	assert.Equal(t, "e2e4", m.String())
	assert.Equal(t, 1, tr.Ply())
}

func TestPlay_ExistingMoveIsReused(t *testing.T) {
	tr := newTree(t, "e4")
	tr.GoBack()
	tr.MarkSaved()

	m, err := tr.Play("e2e4")
	require.NoError(t, err)
	assert.Equal(t, "e2e4", m.String())
	tr.GoBack()
	assert.Len(t, tr.Branches(), 1)
	assert.False(t, tr.Dirty())
}

func TestPlay_BranchIndex(t *testing.T) {
	tr := newTree(t, "e4")
	tr.GoBack()
	_, err := tr.Play("d4")
	require.NoError(t, err)
	tr.GoBack()

	m, err := tr.Play("2")
	require.NoError(t, err)
	assert.Equal(t, "d2d4", m.String())
	tr.GoBack()

	for _, in := range []string{"0", "3", "-1"} {
		_, err = tr.Play(in)
		assert.ErrorIs(t, err, ErrInvalidBranch, in)
		assert.Equal(t, Root, tr.Current())
	}
}

func TestPlay_InvalidMove(t *testing.T) {
	tr := newTree(t, "e4")
	before := tr.Current()
	_, err := tr.Play("Ke3")
	assert.ErrorIs(t, err, ErrInvalidMove)
	assert.EqualError(t, err, `invalid move or command: "Ke3"`)
	assert.Equal(t, before, tr.Current())
}

func TestGoBack_AtRoot(t *testing.T) {
	tr := New(rules.Standard{}, nil)
	assert.False(t, tr.GoBack())
}

func TestDeleteBranch(t *testing.T) {
	tr := newTree(t, "e4")
	tr.GoBack()
	_, err := tr.Play("d4")
	require.NoError(t, err)
	tr.GoBack()
	tr.MarkSaved()

	for _, i := range []int{0, 3} {
		_, err := tr.DeleteBranch(i)
		assert.ErrorIs(t, err, ErrInvalidBranch)
		assert.EqualError(t, err, "invalid branch: must be 1-2")
		assert.Len(t, tr.Branches(), 2)
		assert.False(t, tr.Dirty())
	}

	m, err := tr.DeleteBranch(1)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", m.String())
	assert.Equal(t, []string{"d4"}, notations(tr.Branches()))
	assert.True(t, tr.Dirty())

	_, err = tr.Play("1")
	require.NoError(t, err)
	_, err = tr.DeleteBranch(1)
	assert.ErrorIs(t, err, ErrNoBranches)
}

func TestPositionReplaysPath(t *testing.T) {
	tr := newTree(t, "e4", "e5", "Nf3")
	assert.Equal(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2", tr.Position().String())
	assert.Equal(t, 3, tr.Ply())
}

func TestPathFollowMainLineEnd(t *testing.T) {
	tr := newTree(t, "e4", "e5", "Nf3")
	path := tr.Path()
	require.Len(t, path, 3)
	assert.Equal(t, "g1f3", path[2].String())

	id, matched := tr.Follow(path)
	assert.Equal(t, tr.Current(), id)
	assert.Equal(t, 3, matched)

	other, err := rules.ParseUCI("b1c3")
	require.NoError(t, err)
	_, matched = tr.Follow(Path{path[0], path[1], other})
	assert.Equal(t, 2, matched)

	tr.GoBack()
	tr.GoBack()
	_, err = tr.Play("c5")
	require.NoError(t, err)
	assert.Equal(t, Path{path[0], path[1], path[2]}, tr.pathTo(tr.MainLineEnd()))
}

func TestSetCurrent(t *testing.T) {
	tr := newTree(t, "e4", "e5")
	leaf := tr.Current()
	tr.GoBack()
	tr.GoBack()
	require.NoError(t, tr.SetCurrent(leaf))
	assert.Equal(t, 2, tr.Ply())

	assert.Error(t, tr.SetCurrent(NodeID(99)))
	tr.GoBack()
	_, err := tr.DeleteBranch(1)
	require.NoError(t, err)
	assert.Error(t, tr.SetCurrent(leaf))
}

func TestClone_IsIndependent(t *testing.T) {
	tr := newTree(t, "e4")
	c := tr.Clone()
	_, err := c.Play("e5")
	require.NoError(t, err)
	c.SetHeader("White", "Carlsen")

	assert.Equal(t, 1, tr.Ply())
	assert.Empty(t, tr.Branches())
	assert.Equal(t, "", tr.Header("White"))
	assert.Equal(t, "Carlsen", c.Header("White"))
}

func TestNew_FENHeader(t *testing.T) {
	h := DefaultHeaders()
	h.Set("FEN", "8/8/8/4k3/8/8/4P3/4K3 b - - 0 40")
	h.Set("SetUp", "1")
	tr := New(rules.Standard{}, h)
	require.NoError(t, tr.StartErr())
	assert.Equal(t, chess.Black, tr.Position().Turn())

	h.Set("FEN", "garbage")
	tr = New(rules.Standard{}, h)
	assert.ErrorIs(t, tr.StartErr(), rules.ErrInvalidFEN)
	assert.Equal(t, chess.StartingPosition().String(), tr.Position().String())
}

func TestTerminal(t *testing.T) {
	tr := newTree(t, "f3", "e5", "g4", "Qh4#")
	over, result := tr.Terminal()
	assert.True(t, over)
	assert.Equal(t, "0-1", result)
}
