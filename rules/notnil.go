package rules

import (
	"fmt"

	"github.com/notnil/chess"
	"golang.org/x/exp/slices"
)

// Game is the default backend on top of notnil/chess. notnil positions are
// immutable, so the game keeps a stack of them: Apply pushes, Undo pops.
type Game struct {
	positions []*chess.Position
	keys      []string
	moves     []*chess.Move
}

func NewGame(fen string) (*Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	pos := chess.NewGame(opt).Position()
	return &Game{
		positions: []*chess.Position{pos},
		keys:      []string{repetitionKey(pos.String())},
	}, nil
}

func (g *Game) current() *chess.Position {
	return g.positions[len(g.positions)-1]
}

func (g *Game) Turn() Color {
	return fromChessColor(g.current().Turn())
}

func (g *Game) LegalMoves() []Move {
	valid := g.current().ValidMoves()
	moves := make([]Move, 0, len(valid))
	for _, m := range valid {
		moves = append(moves, fromChessMove(m))
	}
	return moves
}

func (g *Game) LegalMovesFrom(sq Square) []Move {
	var moves []Move
	for _, m := range g.current().ValidMoves() {
		if m.S1() == chess.Square(sq) {
			moves = append(moves, fromChessMove(m))
		}
	}
	return moves
}

func (g *Game) find(m Move) (*chess.Move, bool) {
	valid := g.current().ValidMoves()
	i := slices.IndexFunc(valid, func(c *chess.Move) bool {
		return c.S1() == chess.Square(m.From) && c.S2() == chess.Square(m.To) && c.Promo() == toChessType(m.Promotion)
	})
	if i < 0 {
		return nil, false
	}
	return valid[i], true
}

func (g *Game) Apply(m Move) error {
	cm, ok := g.find(m)
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrIllegalMove, m, g.FEN())
	}
	next := g.current().Update(cm)
	g.positions = append(g.positions, next)
	g.keys = append(g.keys, repetitionKey(next.String()))
	g.moves = append(g.moves, cm)
	return nil
}

func (g *Game) Undo() error {
	if len(g.moves) == 0 {
		return ErrNothingToUndo
	}
	n := len(g.positions) - 1
	g.positions = g.positions[:n]
	g.keys = g.keys[:n]
	g.moves = g.moves[:len(g.moves)-1]
	return nil
}

func (g *Game) Status() Status {
	switch g.current().Status() {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	}
	if insufficientMaterial(g) {
		return InsufficientMaterial
	}
	if g.current().HalfMoveClock() >= 100 {
		return FiftyMoveRule
	}
	key := g.keys[len(g.keys)-1]
	seen := 0
	for _, k := range g.keys {
		if k == key {
			seen++
		}
	}
	if seen >= 3 {
		return ThreefoldRepetition
	}
	return Ongoing
}

func (g *Game) PieceAt(sq Square) (Piece, bool) {
	p := g.current().Board().Piece(chess.Square(sq))
	if p == chess.NoPiece {
		return Piece{}, false
	}
	return Piece{Type: fromChessType(p.Type()), Color: fromChessColor(p.Color())}, true
}

func (g *Game) FEN() string {
	return g.current().String()
}

func (g *Game) SAN(m Move) (string, error) {
	cm, ok := g.find(m)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	return chess.AlgebraicNotation{}.Encode(g.current(), cm), nil
}

// PGN replays the applied moves into a notnil game and renders it.
func (g *Game) PGN() (string, error) {
	opt, err := chess.FEN(g.positions[0].String())
	if err != nil {
		return "", err
	}
	cg := chess.NewGame(opt)
	for _, m := range g.moves {
		if err := cg.Move(m); err != nil {
			return "", err
		}
	}
	return cg.String(), nil
}

func fromChessMove(m *chess.Move) Move {
	return Move{
		From:      Square(m.S1()),
		To:        Square(m.S2()),
		Promotion: fromChessType(m.Promo()),
		Capture:   m.HasTag(chess.Capture) || m.HasTag(chess.EnPassant),
	}
}

func fromChessColor(c chess.Color) Color {
	switch c {
	case chess.White:
		return White
	case chess.Black:
		return Black
	}
	return NoColor
}

func fromChessType(t chess.PieceType) PieceType {
	switch t {
	case chess.Pawn:
		return Pawn
	case chess.Knight:
		return Knight
	case chess.Bishop:
		return Bishop
	case chess.Rook:
		return Rook
	case chess.Queen:
		return Queen
	case chess.King:
		return King
	}
	return NoPieceType
}

func toChessType(t PieceType) chess.PieceType {
	switch t {
	case Pawn:
		return chess.Pawn
	case Knight:
		return chess.Knight
	case Bishop:
		return chess.Bishop
	case Rook:
		return chess.Rook
	case Queen:
		return chess.Queen
	case King:
		return chess.King
	}
	return chess.NoPieceType
}
