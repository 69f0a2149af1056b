// Package analysis turns an unordered multi-line engine stream into
// depth-monotonic, rate-limited display snapshots.
package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/corentings/chess/v2"
	"golang.org/x/time/rate"

	"github.com/jacokyle01/blindbase/src/models"
	"github.com/jacokyle01/blindbase/src/rules"
)

// MinRedraw is the minimum interval between two emitted snapshots.
const MinRedraw = 150 * time.Millisecond

const placeholder = "..."

// Aggregator consumes samples for one fixed position. It is not safe for
// concurrent use; Session drives it from a single goroutine.
type Aggregator struct {
	rules   rules.Rules
	pos     *chess.Position
	lines   int
	limiter *rate.Limiter

	frontierDepth int
	frontier      []string // 0-based, "" when not seen at frontierDepth

	confirmedDepth int
	confirmed      []string
}

// NewAggregator starts aggregation for pos with the given number of lines.
// The initial snapshot counts as emitted at start.
func NewAggregator(r rules.Rules, pos *chess.Position, lines int, start time.Time) *Aggregator {
	if lines < 1 {
		lines = 1
	}
	a := &Aggregator{
		rules:     r,
		pos:       pos,
		lines:     lines,
		limiter:   rate.NewLimiter(rate.Every(MinRedraw), 1),
		frontier:  make([]string, lines),
		confirmed: make([]string, lines),
	}
	for i := range a.confirmed {
		a.confirmed[i] = placeholder
	}
	a.limiter.AllowN(start, 1)
	return a
}

// Initial returns the snapshot shown before any sample arrives.
func (a *Aggregator) Initial() models.Snapshot {
	return a.snapshot()
}

// Latest returns the last emitted snapshot.
func (a *Aggregator) Latest() models.Snapshot {
	return a.snapshot()
}

// Depth returns the last emitted depth.
func (a *Aggregator) Depth() int {
	return a.confirmedDepth
}

// Add folds one sample into the aggregation and returns a snapshot when one
// should be displayed.
func (a *Aggregator) Add(s models.Sample, now time.Time) (models.Snapshot, bool) {
	if s.Line < 1 || s.Line > a.lines || len(s.PV) == 0 {
		return models.Snapshot{}, false
	}
	switch {
	case s.Depth > a.frontierDepth:
		a.frontierDepth = s.Depth
		for i := range a.frontier {
			a.frontier[i] = ""
		}
	case s.Depth < a.frontierDepth:
		return models.Snapshot{}, false
	}
	a.frontier[s.Line-1] = FormatLine(a.rules, a.pos, s)

	depth, lines, changed := a.candidate()
	if !changed || !a.limiter.AllowN(now, 1) {
		return models.Snapshot{}, false
	}
	a.confirmedDepth = depth
	a.confirmed = lines
	return a.snapshot(), true
}

// candidate merges the frontier into the confirmed state. A deeper frontier
// is only promoted once its first line is known.
func (a *Aggregator) candidate() (int, []string, bool) {
	lines := append([]string(nil), a.confirmed...)
	switch {
	case a.frontierDepth > a.confirmedDepth:
		if a.frontier[0] == "" {
			return 0, nil, false
		}
		for i, l := range a.frontier {
			if l != "" {
				lines[i] = l
			}
		}
		return a.frontierDepth, lines, true
	case a.frontierDepth == a.confirmedDepth:
		changed := false
		for i, l := range a.frontier {
			if l != "" && l != lines[i] {
				lines[i] = l
				changed = true
			}
		}
		return a.confirmedDepth, lines, changed
	}
	return 0, nil, false
}

func (a *Aggregator) snapshot() models.Snapshot {
	return models.Snapshot{Depth: a.confirmedDepth, Lines: append([]string(nil), a.confirmed...)}
}

// FormatLine renders a sample as "<evaluation> <principal variation>".
func FormatLine(r rules.Rules, pos *chess.Position, s models.Sample) string {
	return FormatScore(s.Score) + " " + formatPV(r, pos, s.PV)
}

// FormatScore renders mates as M<n> and centipawns as pawns with two decimals.
func FormatScore(sc models.Score) string {
	switch {
	case sc.Mate != nil:
		n := *sc.Mate
		if n < 0 {
			n = -n
		}
		return fmt.Sprintf("M%d", n)
	case sc.CP != nil:
		return fmt.Sprintf("%.2f", float64(*sc.CP)/100)
	}
	return "N/A"
}

func formatPV(r rules.Rules, pos *chess.Position, pv []string) string {
	moves := make([]rules.Move, 0, len(pv))
	for _, s := range pv {
		m, err := rules.ParseUCI(s)
		if err != nil {
			return strings.Join(pv, " ") + " (UCI)"
		}
		moves = append(moves, m)
	}
	san, err := rules.VariationSAN(r, pos, moves)
	if err != nil {
		return strings.Join(pv, " ") + " (UCI)"
	}
	return san
}
