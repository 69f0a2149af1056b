package movetree

import (
	"fmt"
	"io"
	"strings"

	"github.com/corentings/chess/v2"

	"github.com/jacokyle01/blindbase/src/rules"
)

const lineWidth = 80

// braceSubstitute stands in for a "}" inside annotation text, which a brace
// comment cannot carry.
const braceSubstitute = ")"

var escapeHeader = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Serialize renders the whole tree from the root: headers, every variation
// in order, annotations and the result.
func (t *Tree) Serialize() string {
	var sb strings.Builder
	for _, h := range t.headers {
		fmt.Fprintf(&sb, "[%s \"%s\"]\n", h.Key, escapeHeader.Replace(h.Value))
	}
	if len(t.headers) > 0 {
		sb.WriteByte('\n')
	}

	w := &movetextWriter{t: t}
	w.writeComments(&t.nodes[Root])
	w.writeMoves(Root, t.start, true)
	result, ok := t.headers.Get("Result")
	if !ok || result == "" {
		result = "*"
	}
	w.token(result)
	sb.WriteString(w.sb.String())
	sb.WriteByte('\n')
	return sb.String()
}

// WriteTo writes Serialize to w.
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.Serialize())
	return int64(n), err
}

type movetextWriter struct {
	t    *Tree
	sb   strings.Builder
	line int
}

func (w *movetextWriter) token(s string) {
	switch {
	case w.sb.Len() == 0:
	case w.line+1+len(s) > lineWidth:
		w.sb.WriteByte('\n')
		w.line = 0
	default:
		w.sb.WriteByte(' ')
		w.line++
	}
	w.sb.WriteString(s)
	w.line += len(s)
}

// writeMoves writes the main line continuing from parent, whose position is
// pos. Each main move is followed by the variations that replace it.
// forceNumber prints the move number even for a black move.
func (w *movetextWriter) writeMoves(parent NodeID, pos *chess.Position, forceNumber bool) {
	for {
		children := w.t.nodes[parent].children
		if len(children) == 0 {
			return
		}
		main := children[0]
		w.writeMove(pos, main, forceNumber)
		closed := w.writeVariations(parent, pos)
		forceNumber = closed || w.t.nodes[main].annotated()
		pos = w.apply(pos, main)
		parent = main
	}
}

// writeVariations writes every child of parent but the first, each in
// parentheses. It reports whether any was written.
func (w *movetextWriter) writeVariations(parent NodeID, pos *chess.Position) bool {
	children := w.t.nodes[parent].children
	if len(children) < 2 {
		return false
	}
	for _, side := range children[1:] {
		w.token("(")
		w.writeMove(pos, side, true)
		w.writeMoves(side, w.apply(pos, side), w.t.nodes[side].annotated())
		w.token(")")
	}
	return true
}

func (w *movetextWriter) writeMove(pos *chess.Position, id NodeID, forceNumber bool) {
	n := &w.t.nodes[id]
	if n.preComment != "" {
		w.comment(n.preComment)
		forceNumber = true
	}
	w.writeMoveNumber(pos, forceNumber)
	w.token(w.t.rules.Notate(pos, n.move))
	for _, nag := range n.nags {
		w.token(fmt.Sprintf("$%d", nag))
	}
	w.writeComments(n)
}

func (w *movetextWriter) writeMoveNumber(pos *chess.Position, forceNumber bool) {
	num := rules.MoveNumber(pos)
	if pos.Turn() == chess.White {
		w.token(fmt.Sprintf("%d.", num))
	} else if forceNumber {
		w.token(fmt.Sprintf("%d...", num))
	}
}

// writeComments writes the text and the commands of n as one brace comment.
func (w *movetextWriter) writeComments(n *node) {
	if n.annotated() {
		w.comment(n.annotation())
	}
}

func (w *movetextWriter) comment(text string) {
	w.token("{ " + strings.ReplaceAll(text, "}", braceSubstitute) + " }")
}

func (w *movetextWriter) apply(pos *chess.Position, id NodeID) *chess.Position {
	next, err := w.t.rules.Apply(pos, w.t.nodes[id].move)
	if err != nil {
		panic(fmt.Sprintf("movetree: node %d replays an illegal move: %v", id, err))
	}
	return next
}
