package movetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacokyle01/blindbase/src/rules"
)

func TestClocks(t *testing.T) {
	tr, err := Parse(rules.Standard{}, `1. e4 { [%clk 1:30:00] } e5 { [%clk 1:29:58] }
2. Nf3 { [%clk 1:29:40] } Nc6 { no clock here } 3. Bb5 *`)
	require.NoError(t, err)

	white, black := tr.Clocks()
	assert.Equal(t, "N/A", white)
	assert.Equal(t, "N/A", black)

	require.NoError(t, playAll(tr, "", "", "", "", ""))
	white, black = tr.Clocks()
	assert.Equal(t, "1:29:40", white, "nearest white clock wins")
	assert.Equal(t, "1:29:58", black, "falls back to an earlier black clock")

	tr.GoBack()
	tr.GoBack()
	tr.GoBack()
	white, black = tr.Clocks()
	assert.Equal(t, "1:30:00", white)
	assert.Equal(t, "1:29:58", black)
}

func TestClocks_BlackToMoveStart(t *testing.T) {
	tr, err := Parse(rules.Standard{}, `[FEN "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"]
[SetUp "1"]

1... e5 { [%clk 0:03:00] } 2. Nf3 { [%clk 0:02:55] } *`)
	require.NoError(t, err)
	require.NoError(t, playAll(tr, "", ""))

	white, black := tr.Clocks()
	assert.Equal(t, "0:02:55", white)
	assert.Equal(t, "0:03:00", black)
}
