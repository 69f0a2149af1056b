package movetree

import (
	"strings"

	"github.com/corentings/chess/v2"
)

// Command is one "[%name value]" entry embedded in an annotation, such as
// the clock "[%clk 0:05:00]".
type Command struct {
	Name  string
	Value string
}

func (c Command) String() string {
	return "[%" + c.Name + " " + c.Value + "]"
}

// annotation renders the free text followed by the embedded commands.
func (n *node) annotation() string {
	parts := make([]string, 0, 1+len(n.commands))
	if n.comment != "" {
		parts = append(parts, n.comment)
	}
	for _, c := range n.commands {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " ")
}

func (n *node) annotated() bool {
	return n.comment != "" || len(n.commands) > 0
}

// command returns the last value recorded for name.
func (n *node) command(name string) (string, bool) {
	for i := len(n.commands) - 1; i >= 0; i-- {
		if n.commands[i].Name == name {
			return n.commands[i].Value, true
		}
	}
	return "", false
}

// Clocks scans from the current node toward the root and returns, per side,
// the clock command of the nearest move by that side.
// A side with no clock reads "N/A".
func (t *Tree) Clocks() (white, black string) {
	white, black = "N/A", "N/A"
	foundWhite, foundBlack := false, false

	// The mover of the node at ply d is the root's side to move for odd d.
	d := t.depth(t.current)
	for id := t.current; id != Root && !(foundWhite && foundBlack); id = t.nodes[id].parent {
		mover := t.start.Turn()
		if d%2 == 0 {
			mover = mover.Other()
		}
		d--

		clk, ok := t.nodes[id].command("clk")
		if !ok {
			continue
		}
		if mover == chess.White && !foundWhite {
			white, foundWhite = clk, true
		} else if mover == chess.Black && !foundBlack {
			black, foundBlack = clk, true
		}
	}
	return white, black
}
