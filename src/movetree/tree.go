// Package movetree models a chess game as a tree of positions reached by
// move variations. Nodes live in an arena addressed by stable NodeIDs; a node
// stores the move that led to it and never a board, so every position is
// obtained by replaying moves from the root.
package movetree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/corentings/chess/v2"

	"github.com/jacokyle01/blindbase/src/rules"
)

// NodeID addresses a node within one Tree.
type NodeID int

const (
	// NoNode is the parent of the root.
	NoNode NodeID = -1
	// Root is the id of every tree's root node.
	Root NodeID = 0
)

var (
	// ErrNoMoveAvailable is returned by Play("") at a leaf.
	ErrNoMoveAvailable = errors.New("no move available")
	// ErrInvalidBranch is returned for a branch index outside [1, children].
	ErrInvalidBranch = errors.New("invalid branch")
	// ErrInvalidMove is returned when input resolves to no legal move.
	ErrInvalidMove = errors.New("invalid move or command")
	// ErrNoBranches is returned by DeleteBranch at a leaf.
	ErrNoBranches = errors.New("no variations to delete")
)

type node struct {
	move       rules.Move
	preComment string // written before the move, e.g. "( {Sharp} 1... c5 )"
	comment    string
	commands   []Command
	nags       []int
	parent     NodeID
	children   []NodeID
	removed    bool
}

// Branch describes one child of the current node.
type Branch struct {
	Index    int // 1-based
	Move     rules.Move
	Notation string
	Comment  string
}

// Path is the move sequence from the root to a node.
type Path []rules.Move

// Tree is one game: the node arena, the ordered headers, the user's cursor
// and a dirty flag. A Tree is not safe for concurrent use.
type Tree struct {
	rules    rules.Rules
	headers  Headers
	start    *chess.Position
	startErr error
	nodes    []node
	current  NodeID
	dirty    bool
}

// New returns a tree holding only the root. A FEN header overrides the
// starting position; an unusable one falls back to the standard start and
// is reported by StartErr.
func New(r rules.Rules, headers Headers) *Tree {
	t := &Tree{
		rules:   r,
		headers: append(Headers(nil), headers...),
		nodes:   []node{{parent: NoNode}},
		current: Root,
	}
	fen, _ := t.headers.Get("FEN")
	start, err := r.Start(fen)
	if err != nil {
		t.startErr = err
		start, _ = r.Start("")
	}
	t.start = start
	return t
}

// StartErr reports why the FEN header was ignored, if it was.
func (t *Tree) StartErr() error {
	return t.startErr
}

// Rules returns the rules the tree was built with.
func (t *Tree) Rules() rules.Rules {
	return t.rules
}

// Headers returns a copy of the game headers in order.
func (t *Tree) Headers() Headers {
	return append(Headers(nil), t.headers...)
}

// Header returns the value of one header, or "" if absent.
func (t *Tree) Header(key string) string {
	v, _ := t.headers.Get(key)
	return v
}

// SetHeader sets a header and marks the tree dirty.
func (t *Tree) SetHeader(key, value string) {
	t.headers.Set(key, value)
	t.dirty = true
}

// Current returns the cursor.
func (t *Tree) Current() NodeID {
	return t.current
}

// SetCurrent moves the cursor to id.
func (t *Tree) SetCurrent(id NodeID) error {
	if !t.valid(id) {
		return fmt.Errorf("movetree: node %d is not in the tree", id)
	}
	t.current = id
	return nil
}

// Dirty reports whether the tree changed since it was loaded or saved.
func (t *Tree) Dirty() bool {
	return t.dirty
}

// MarkSaved clears the dirty flag.
func (t *Tree) MarkSaved() {
	t.dirty = false
}

// Comment returns the annotation of the current node, embedded commands
// included.
func (t *Tree) Comment() string {
	return t.nodes[t.current].annotation()
}

// Move returns the move leading to id (zero for the root).
func (t *Tree) Move(id NodeID) rules.Move {
	return t.nodes[id].move
}

// Children returns the children of id, main line first.
func (t *Tree) Children(id NodeID) []NodeID {
	return append([]NodeID(nil), t.nodes[id].children...)
}

// Parent returns the parent of id, NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.nodes[id].parent
}

// StartPosition returns the position at the root.
func (t *Tree) StartPosition() *chess.Position {
	return t.start
}

// Position replays the path from the root to the current node.
func (t *Tree) Position() *chess.Position {
	return t.positionAt(t.current)
}

// Ply returns the number of moves from the root to the current node.
func (t *Tree) Ply() int {
	return t.depth(t.current)
}

// Terminal reports whether the current position ends the game.
func (t *Tree) Terminal() (bool, string) {
	return t.rules.IsTerminal(t.Position())
}

// Branches lists the children of the current node with their notation.
func (t *Tree) Branches() []Branch {
	children := t.nodes[t.current].children
	if len(children) == 0 {
		return nil
	}
	pos := t.Position()
	branches := make([]Branch, 0, len(children))
	for i, id := range children {
		n := t.nodes[id]
		branches = append(branches, Branch{
			Index:    i + 1,
			Move:     n.move,
			Notation: t.rules.Notate(pos, n.move),
			Comment:  n.annotation(),
		})
	}
	return branches
}

// Play resolves input against the current node and descends:
// "" follows the main line, an integer selects a 1-based branch, anything
// else is parsed as a move and reuses a matching child or appends a new one.
// On error the tree is unchanged.
func (t *Tree) Play(input string) (rules.Move, error) {
	input = strings.TrimSpace(input)
	children := t.nodes[t.current].children

	if input == "" {
		if len(children) == 0 {
			return rules.Move{}, ErrNoMoveAvailable
		}
		t.current = children[0]
		return t.nodes[t.current].move, nil
	}

	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(children) {
			return rules.Move{}, fmt.Errorf("%w: %d", ErrInvalidBranch, n)
		}
		t.current = children[n-1]
		return t.nodes[t.current].move, nil
	}

	m, err := t.rules.ParseMove(t.Position(), input)
	if err != nil {
		return rules.Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, input)
	}
	if id, ok := t.child(t.current, m); ok {
		t.current = id
		return m, nil
	}
	t.current = t.addChild(t.current, m)
	t.dirty = true
	return m, nil
}

// GoBack moves the cursor to its parent. It returns false at the root.
func (t *Tree) GoBack() bool {
	parent := t.nodes[t.current].parent
	if parent == NoNode {
		return false
	}
	t.current = parent
	return true
}

// DeleteBranch removes the 1-based child i of the current node together with
// its subtree and returns the move that led to it.
func (t *Tree) DeleteBranch(i int) (rules.Move, error) {
	children := t.nodes[t.current].children
	if len(children) == 0 {
		return rules.Move{}, ErrNoBranches
	}
	if i < 1 || i > len(children) {
		return rules.Move{}, fmt.Errorf("%w: must be 1-%d", ErrInvalidBranch, len(children))
	}
	id := children[i-1]
	t.nodes[t.current].children = append(children[:i-1:i-1], children[i:]...)
	t.release(id)
	t.dirty = true
	return t.nodes[id].move, nil
}

// Path returns the moves from the root to the current node.
func (t *Tree) Path() Path {
	return t.pathTo(t.current)
}

// Follow walks path from the root, descending into the child whose move
// matches each element. It returns the node reached and how many moves
// matched before the walk stopped.
func (t *Tree) Follow(path Path) (NodeID, int) {
	id := Root
	for i, m := range path {
		next, ok := t.child(id, m)
		if !ok {
			return id, i
		}
		id = next
	}
	return id, len(path)
}

// MainLineEnd returns the leaf reached by following first children from the root.
func (t *Tree) MainLineEnd() NodeID {
	id := Root
	for len(t.nodes[id].children) > 0 {
		id = t.nodes[id].children[0]
	}
	return id
}

// Clone returns an independent copy of the tree.
func (t *Tree) Clone() *Tree {
	c := *t
	c.headers = append(Headers(nil), t.headers...)
	c.nodes = make([]node, len(t.nodes))
	for i, n := range t.nodes {
		n.children = append([]NodeID(nil), n.children...)
		n.nags = append([]int(nil), n.nags...)
		n.commands = append([]Command(nil), n.commands...)
		c.nodes[i] = n
	}
	return &c
}

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes) && !t.nodes[id].removed
}

func (t *Tree) child(parent NodeID, m rules.Move) (NodeID, bool) {
	for _, id := range t.nodes[parent].children {
		if t.nodes[id].move == m {
			return id, true
		}
	}
	return NoNode, false
}

func (t *Tree) addChild(parent NodeID, m rules.Move) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{move: m, parent: parent})
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	return id
}

// release tombstones a detached subtree.
func (t *Tree) release(id NodeID) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.nodes[n].removed = true
		stack = append(stack, t.nodes[n].children...)
	}
}

func (t *Tree) depth(id NodeID) int {
	d := 0
	for t.nodes[id].parent != NoNode {
		id = t.nodes[id].parent
		d++
	}
	return d
}

func (t *Tree) pathTo(id NodeID) Path {
	var path Path
	for t.nodes[id].parent != NoNode {
		path = append(path, t.nodes[id].move)
		id = t.nodes[id].parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (t *Tree) positionAt(id NodeID) *chess.Position {
	pos := t.start
	for _, m := range t.pathTo(id) {
		next, err := t.rules.Apply(pos, m)
		if err != nil {
			panic(fmt.Sprintf("movetree: node %d replays an illegal move: %v", id, err))
		}
		pos = next
	}
	return pos
}
