package analysis

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacokyle01/blindbase/src/models"
	"github.com/jacokyle01/blindbase/src/rules"
)

var t0 = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func startPos(t *testing.T) *chess.Position {
	t.Helper()
	pos, err := rules.Standard{}.Start("")
	require.NoError(t, err)
	return pos
}

func sample(depth, line, cp int, pv string) models.Sample {
	return models.Sample{Depth: depth, Line: line, Score: models.Centipawns(cp), PV: strings.Fields(pv)}
}

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestAggregator_Initial(t *testing.T) {
	agg := NewAggregator(rules.Standard{}, startPos(t), 3, t0)
	want := models.Snapshot{Depth: 0, Lines: []string{"...", "...", "..."}}
	if diff := cmp.Diff(want, agg.Initial()); diff != "" {
		t.Errorf("initial snapshot (-want +got):\n%s", diff)
	}
}

func TestAggregator_DepthNeverRegresses(t *testing.T) {
	agg := NewAggregator(rules.Standard{}, startPos(t), 2, t0)

	feed := []models.Sample{
		sample(5, 1, 20, "e2e4 e7e5"),
		sample(5, 2, 10, "d2d4 d7d5"),
		sample(6, 1, 25, "e2e4 c7c5"),
		sample(5, 1, -300, "a2a3"),
		sample(6, 2, 15, "d2d4 g8f6"),
		sample(6, 1, 30, "e2e4 e7e5 g1f3"),
	}
	var got []models.Snapshot
	for i, s := range feed {
		if snap, ok := agg.Add(s, at(200*(i+1))); ok {
			got = append(got, snap)
		}
	}

	want := []models.Snapshot{
		{Depth: 5, Lines: []string{"0.20 1. e4 e5", "..."}},
		{Depth: 5, Lines: []string{"0.20 1. e4 e5", "0.10 1. d4 d5"}},
		{Depth: 6, Lines: []string{"0.25 1. e4 c5", "0.10 1. d4 d5"}},
		{Depth: 6, Lines: []string{"0.25 1. e4 c5", "0.15 1. d4 Nf6"}},
		{Depth: 6, Lines: []string{"0.30 1. e4 e5 2. Nf3", "0.15 1. d4 Nf6"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshots (-want +got):\n%s", diff)
	}
}

func TestAggregator_NewDepthWaitsForFirstLine(t *testing.T) {
	agg := NewAggregator(rules.Standard{}, startPos(t), 2, t0)

	_, ok := agg.Add(sample(7, 2, 5, "c2c4"), at(200))
	assert.False(t, ok, "line 2 alone must not confirm a new depth")
	assert.Equal(t, 0, agg.Depth())

	snap, ok := agg.Add(sample(7, 1, 40, "e2e4"), at(400))
	require.True(t, ok)
	assert.Equal(t, 7, snap.Depth)
	assert.Equal(t, []string{"0.40 1. e4", "0.05 1. c4"}, snap.Lines)
}

func TestAggregator_UnchangedLineIsNotReemitted(t *testing.T) {
	agg := NewAggregator(rules.Standard{}, startPos(t), 1, t0)

	_, ok := agg.Add(sample(3, 1, 20, "e2e4"), at(200))
	require.True(t, ok)
	_, ok = agg.Add(sample(3, 1, 20, "e2e4"), at(400))
	assert.False(t, ok)
}

func TestAggregator_RateLimitsBursts(t *testing.T) {
	agg := NewAggregator(rules.Standard{}, startPos(t), 1, t0)

	emitted := 0
	for i := 0; i < 1000; i++ {
		if _, ok := agg.Add(sample(i+1, 1, i, "e2e4"), at(10)); ok {
			emitted++
		}
	}
	assert.Zero(t, emitted, "no snapshot within 150ms of the initial one")

	snap, ok := agg.Add(sample(1001, 1, 0, "d2d4"), at(160))
	require.True(t, ok)
	assert.Equal(t, 1001, snap.Depth)

	_, ok = agg.Add(sample(1002, 1, 0, "c2c4"), at(200))
	assert.False(t, ok, "40ms after the previous emission")

	snap, ok = agg.Add(sample(1002, 1, 1, "g1f3"), at(320))
	require.True(t, ok)
	assert.Equal(t, []string{"0.01 1. Nf3"}, snap.Lines)
}

func TestAggregator_IgnoresUnusableSamples(t *testing.T) {
	agg := NewAggregator(rules.Standard{}, startPos(t), 2, t0)

	for _, s := range []models.Sample{
		{Depth: 4, Line: 1, Score: models.Centipawns(10)},
		sample(4, 0, 10, "e2e4"),
		sample(4, 3, 10, "e2e4"),
	} {
		_, ok := agg.Add(s, at(500))
		assert.False(t, ok)
	}
	assert.Equal(t, 0, agg.Depth())
}

func TestFormatLine(t *testing.T) {
	r := rules.Standard{}
	afterE4, err := r.Start("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	require.NoError(t, err)

	cases := []struct {
		name string
		pos  *chess.Position
		s    models.Sample
		want string
	}{
		{"centipawns", startPos(t), sample(1, 1, 35, "e2e4 e7e5 g1f3"), "0.35 1. e4 e5 2. Nf3"},
		{"negative", startPos(t), sample(1, 1, -120, "f2f3"), "-1.20 1. f3"},
		{"black to move", afterE4, sample(1, 1, 0, "c7c5 g1f3"), "0.00 1... c5 2. Nf3"},
		{"mate", afterE4, models.Sample{Line: 1, Score: models.MateIn(-3), PV: []string{"e7e5"}}, "M3 1... e5"},
		{"illegal pv", startPos(t), sample(1, 1, 10, "e2e5 e7e5"), "0.10 e2e5 e7e5 (UCI)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatLine(r, tc.pos, tc.s))
		})
	}
}
