// Package rules defines the chess rules collaborator the bots search against
// and ships backends for it.
package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIllegalMove    = errors.New("illegal move")
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrInvalidFEN     = errors.New("invalid FEN")
	ErrUnknownBackend = errors.New("unknown rules backend")
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type Color int8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	}
	return NoColor
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

type PieceType int8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (p PieceType) String() string {
	return string(" pnbrqk"[p])
}

type Piece struct {
	Type  PieceType
	Color Color
}

// Square indexes the board from a1 = 0 to h8 = 63, file-major within a rank.
type Square uint8

const NoSquare Square = 64

func NewSquare(file, rank int) Square {
	return Square(file + rank*8)
}

func (sq Square) File() int { return int(sq) % 8 }
func (sq Square) Rank() int { return int(sq) / 8 }

func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// ParseSquare reads algebraic coordinates such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("bad square %q", s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// Move is produced by a backend's enumeration and never built by the search.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
	Capture   bool
}

// String renders the move in UCI long algebraic form.
func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPieceType {
		s += m.Promotion.String()
	}
	return s
}

// Same reports whether two moves describe the same from/to/promotion triple.
func (m Move) Same(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promotion == o.Promotion
}

// ParseUCI reads "e2e4" / "e7e8q" into the from/to/promotion part of a Move.
func ParseUCI(s string) (Move, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("bad move %q", s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			m.Promotion = Knight
		case 'b':
			m.Promotion = Bishop
		case 'r':
			m.Promotion = Rook
		case 'q':
			m.Promotion = Queen
		default:
			return Move{}, fmt.Errorf("bad promotion in %q", s)
		}
	}
	return m, nil
}

type Status int8

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
	ThreefoldRepetition
	InsufficientMaterial
	FiftyMoveRule
)

// Terminal reports whether the game is over.
func (s Status) Terminal() bool { return s != Ongoing }

// Draw reports whether the status ends the game without a winner.
func (s Status) Draw() bool { return s.Terminal() && s != Checkmate }

func (s Status) String() string {
	switch s {
	case Ongoing:
		return "ongoing"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case ThreefoldRepetition:
		return "threefold-repetition"
	case InsufficientMaterial:
		return "insufficient-material"
	case FiftyMoveRule:
		return "fifty-move-rule"
	}
	return "unknown"
}

// Position is a single mutable game state. Apply and Undo must be strictly
// paired by callers: every applied move is undone before an ancestor resumes.
type Position interface {
	Turn() Color
	LegalMoves() []Move
	LegalMovesFrom(sq Square) []Move
	Apply(m Move) error
	Undo() error
	Status() Status
	PieceAt(sq Square) (Piece, bool)
	FEN() string
}

// Notator is implemented by backends that can render standard algebraic notation.
type Notator interface {
	SAN(m Move) (string, error)
}

const (
	BackendNotnil      = "notnil"
	BackendDragontooth = "dragontooth"
)

// New builds a position from fen (the start position if empty) on the named backend.
func New(backend, fen string) (Position, error) {
	if fen == "" {
		fen = StartFEN
	}
	switch backend {
	case "", BackendNotnil:
		return NewGame(fen)
	case BackendDragontooth:
		return NewBitboard(fen)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

// repetitionKey drops the half-move and full-move counters from a FEN.
func repetitionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

// insufficientMaterial covers K v K, K+minor v K and bishops confined to one square colour.
func insufficientMaterial(pos Position) bool {
	var minors int
	var bishopColors [2]bool
	var knights int
	for sq := Square(0); sq < NoSquare; sq++ {
		p, ok := pos.PieceAt(sq)
		if !ok {
			continue
		}
		switch p.Type {
		case King:
		case Bishop:
			minors++
			bishopColors[(sq.File()+sq.Rank())%2] = true
		case Knight:
			minors++
			knights++
		default:
			return false
		}
	}
	if minors <= 1 {
		return true
	}
	return knights == 0 && !(bishopColors[0] && bishopColors[1])
}
