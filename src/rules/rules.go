// Package rules adapts github.com/corentings/chess/v2 to the small rules surface the
// move tree, the analysis aggregator and the live merge need: legal move
// enumeration, move parsing and notation, move application and game-over
// detection.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/corentings/chess/v2"
)

// ErrIllegalMove is returned when text does not resolve to a legal move.
var ErrIllegalMove = errors.New("illegal move")

// ErrInvalidFEN is returned by Start for an unparsable starting position.
var ErrInvalidFEN = errors.New("invalid FEN")

// Move is a move in coordinate form. Two moves are equal iff they compare ==.
type Move struct {
	From  chess.Square
	To    chess.Square
	Promo chess.PieceType
}

// String returns the coordinate (UCI) form, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	return m.From.String() + m.To.String() + promoLetter(m.Promo)
}

// IsZero reports whether m is the zero move (used for the root node).
func (m Move) IsZero() bool {
	return m == Move{}
}

// Rules is the chess rules capability.
type Rules interface {
	// Start returns the starting position for fen, or the standard
	// starting position when fen is empty.
	Start(fen string) (*chess.Position, error)
	LegalMoves(pos *chess.Position) []Move
	// ParseMove resolves text as algebraic notation first, then as
	// coordinate notation, against the legal moves of pos.
	ParseMove(pos *chess.Position, text string) (Move, error)
	Notate(pos *chess.Position, m Move) string
	Apply(pos *chess.Position, m Move) (*chess.Position, error)
	IsTerminal(pos *chess.Position) (bool, string)
}

// Standard implements Rules for orthodox chess.
type Standard struct{}

var _ Rules = Standard{}

func (Standard) Start(fen string) (*chess.Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return chess.StartingPosition(), nil
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return chess.NewGame(opt).Position(), nil
}

func (Standard) LegalMoves(pos *chess.Position) []Move {
	valid := pos.ValidMoves()
	moves := make([]Move, 0, len(valid))
	for i := range valid {
		moves = append(moves, fromChess(&valid[i]))
	}
	return moves
}

func (Standard) ParseMove(pos *chess.Position, text string) (Move, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Move{}, fmt.Errorf("%w: empty input", ErrIllegalMove)
	}

	want := normalizeSAN(text)
	valid := pos.ValidMoves()
	for i := range valid {
		if normalizeSAN(chess.AlgebraicNotation{}.Encode(pos, &valid[i])) == want {
			return fromChess(&valid[i]), nil
		}
	}
	// over-specified forms such as "Ng1f3"
	if cm, err := (chess.AlgebraicNotation{}).Decode(pos, text); err == nil {
		return fromChess(cm), nil
	}

	uci := strings.ToLower(text)
	for i := range valid {
		if fromChess(&valid[i]).String() == uci {
			return fromChess(&valid[i]), nil
		}
	}
	return Move{}, fmt.Errorf("%w: %q", ErrIllegalMove, text)
}

// Notate renders m in algebraic notation. A move that is not legal in pos is
// rendered in coordinate form with a "(raw UCI)" marker.
func (Standard) Notate(pos *chess.Position, m Move) string {
	cm := find(pos, m)
	if cm == nil {
		return m.String() + " (raw UCI)"
	}
	return chess.AlgebraicNotation{}.Encode(pos, cm)
}

func (Standard) Apply(pos *chess.Position, m Move) (*chess.Position, error) {
	cm := find(pos, m)
	if cm == nil {
		return nil, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	return pos.Update(cm), nil
}

func (Standard) IsTerminal(pos *chess.Position) (bool, string) {
	switch pos.Status() {
	case chess.Checkmate:
		if pos.Turn() == chess.White {
			return true, "0-1"
		}
		return true, "1-0"
	case chess.Stalemate:
		return true, "1/2-1/2"
	}
	if insufficientMaterial(pos) {
		return true, "1/2-1/2"
	}
	return false, ""
}

// MoveNumber returns the fullmove number of pos.
func MoveNumber(pos *chess.Position) int {
	fields := strings.Fields(pos.String())
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// VariationSAN renders moves played from pos as numbered algebraic
// notation ("1. e4 e5 2. Nf3", or "1... e5 2. Nf3" when black starts).
func VariationSAN(r Rules, pos *chess.Position, moves []Move) (string, error) {
	var sb strings.Builder
	for i, m := range moves {
		if i > 0 {
			sb.WriteByte(' ')
		}
		num := MoveNumber(pos)
		if pos.Turn() == chess.White {
			fmt.Fprintf(&sb, "%d. ", num)
		} else if i == 0 {
			fmt.Fprintf(&sb, "%d... ", num)
		}
		san := r.Notate(pos, m)
		next, err := r.Apply(pos, m)
		if err != nil {
			return "", err
		}
		sb.WriteString(san)
		pos = next
	}
	return sb.String(), nil
}

// ParseUCI parses coordinate notation without checking legality.
func ParseUCI(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}
	from, ok1 := squareOf(s[0:2])
	to, ok2 := squareOf(s[2:4])
	if !ok1 || !ok2 {
		return Move{}, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		m.Promo = promoType(s[4])
		if m.Promo == chess.NoPieceType {
			return Move{}, fmt.Errorf("%w: %q", ErrIllegalMove, s)
		}
	}
	return m, nil
}

func fromChess(m *chess.Move) Move {
	return Move{From: m.S1(), To: m.S2(), Promo: m.Promo()}
}

func find(pos *chess.Position, m Move) *chess.Move {
	valid := pos.ValidMoves()
	for i := range valid {
		if fromChess(&valid[i]) == m {
			return &valid[i]
		}
	}
	return nil
}

func normalizeSAN(s string) string {
	s = strings.TrimRight(s, "+#!?")
	s = strings.ReplaceAll(s, "e.p.", "")
	s = strings.ReplaceAll(s, "=", "")
	switch s {
	case "0-0", "o-o":
		return "O-O"
	case "0-0-0", "o-o-o":
		return "O-O-O"
	}
	return s
}

func promoLetter(p chess.PieceType) string {
	switch p {
	case chess.Queen:
		return "q"
	case chess.Rook:
		return "r"
	case chess.Bishop:
		return "b"
	case chess.Knight:
		return "n"
	}
	return ""
}

func promoType(c byte) chess.PieceType {
	switch c {
	case 'q':
		return chess.Queen
	case 'r':
		return chess.Rook
	case 'b':
		return chess.Bishop
	case 'n':
		return chess.Knight
	}
	return chess.NoPieceType
}

func squareOf(s string) (chess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return chess.NoSquare, false
	}
	return chess.Square(int(s[1]-'1')*8 + int(s[0]-'a')), true
}

// insufficientMaterial covers bare kings and a single minor piece.
func insufficientMaterial(pos *chess.Position) bool {
	minors := 0
	for _, p := range pos.Board().SquareMap() {
		switch p.Type() {
		case chess.King:
		case chess.Bishop, chess.Knight:
			minors++
		default:
			return false
		}
	}
	return minors <= 1
}
