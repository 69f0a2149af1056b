// Package livemerge reconciles a re-fetched broadcast game with the tree a
// user is viewing. The new tree always replaces the old one wholesale; only
// the user's position is carried over.
package livemerge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jacokyle01/blindbase/src/movetree"
	"github.com/jacokyle01/blindbase/src/rules"
)

var (
	// ErrMismatch is returned when the re-fetched game is between other players.
	ErrMismatch = errors.New("re-fetched game does not match the followed game")
	// ErrMalformed is returned when a re-fetched blob does not parse.
	ErrMalformed = errors.New("malformed game update")
)

// GameID identifies a broadcast game by its participants.
type GameID struct {
	White string
	Black string
}

// IDOf returns the participant pair recorded in t's headers.
func IDOf(t *movetree.Tree) GameID {
	return GameID{White: t.Header("White"), Black: t.Header("Black")}
}

// Result describes how the user's position was relocated.
type Result struct {
	Matched  int  // moves of the stored path found in the new tree
	FellBack bool // the cursor was moved to the end of the main line
}

// Merge validates refetched against id and relocates path in it. When the
// whole path is found the cursor lands on the node it reaches; otherwise it
// lands on the end of the new main line. On error current is returned
// untouched.
func Merge(current *movetree.Tree, path movetree.Path, refetched *movetree.Tree, id GameID) (*movetree.Tree, Result, error) {
	if got := IDOf(refetched); got != id {
		return current, Result{}, fmt.Errorf("%w: got %s vs %s, want %s vs %s",
			ErrMismatch, got.White, got.Black, id.White, id.Black)
	}

	node, matched := refetched.Follow(path)
	res := Result{Matched: matched}
	if matched < len(path) {
		node = refetched.MainLineEnd()
		res.FellBack = true
	}
	if err := refetched.SetCurrent(node); err != nil {
		return current, Result{}, err
	}
	return refetched, res, nil
}

// Apply parses blob as one game and merges it into current at current's
// cursor. A blob that fails to parse, or whose movetext does not end with a
// game termination marker, leaves current untouched.
func Apply(r rules.Rules, current *movetree.Tree, blob string, id GameID) (*movetree.Tree, Result, error) {
	if !terminated(blob) {
		return current, Result{}, fmt.Errorf("%w: no termination marker", ErrMalformed)
	}
	refetched, err := movetree.Parse(r, blob)
	if err != nil {
		return current, Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Merge(current, current.Path(), refetched, id)
}

var terminations = map[string]bool{"1-0": true, "0-1": true, "1/2-1/2": true, "*": true}

// terminated reports whether the last token of blob ends a game. A stream
// cut off mid-record, even one holding only headers, fails this.
func terminated(blob string) bool {
	fields := strings.Fields(blob)
	return len(fields) > 0 && terminations[fields[len(fields)-1]]
}
