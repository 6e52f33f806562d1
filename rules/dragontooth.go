package rules

import (
	"fmt"
	"math/bits"

	"github.com/dylhunn/dragontoothmg"
	"golang.org/x/exp/slices"
)

// Bitboard is the make/unmake backend on top of dragontoothmg. Apply keeps
// the closure returned by Board.Apply; Undo calls the most recent one.
type Bitboard struct {
	board  dragontoothmg.Board
	undo   []func()
	hashes []uint64
}

func NewBitboard(fen string) (b *Bitboard, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("%w: %v", ErrInvalidFEN, r)
		}
	}()
	if _, err := NewGame(fen); err != nil {
		return nil, err
	}
	board := dragontoothmg.ParseFen(fen)
	return &Bitboard{board: board, hashes: []uint64{board.Hash()}}, nil
}

func (b *Bitboard) Turn() Color {
	if b.board.Wtomove {
		return White
	}
	return Black
}

func (b *Bitboard) LegalMoves() []Move {
	legal := b.board.GenerateLegalMoves()
	moves := make([]Move, 0, len(legal))
	for _, m := range legal {
		moves = append(moves, b.fromDragonMove(m))
	}
	return moves
}

func (b *Bitboard) LegalMovesFrom(sq Square) []Move {
	var moves []Move
	for _, m := range b.board.GenerateLegalMoves() {
		if Square(m.From()) == sq {
			moves = append(moves, b.fromDragonMove(m))
		}
	}
	return moves
}

func (b *Bitboard) Apply(m Move) error {
	legal := b.board.GenerateLegalMoves()
	i := slices.IndexFunc(legal, func(d dragontoothmg.Move) bool {
		return Square(d.From()) == m.From && Square(d.To()) == m.To && fromDragonPiece(d.Promote()) == m.Promotion
	})
	if i < 0 {
		return fmt.Errorf("%w: %s in %s", ErrIllegalMove, m, b.FEN())
	}
	b.undo = append(b.undo, b.board.Apply(legal[i]))
	b.hashes = append(b.hashes, b.board.Hash())
	return nil
}

func (b *Bitboard) Undo() error {
	if len(b.undo) == 0 {
		return ErrNothingToUndo
	}
	n := len(b.undo) - 1
	b.undo[n]()
	b.undo = b.undo[:n]
	b.hashes = b.hashes[:len(b.hashes)-1]
	return nil
}

func (b *Bitboard) Status() Status {
	if len(b.board.GenerateLegalMoves()) == 0 {
		if b.board.OurKingInCheck() {
			return Checkmate
		}
		return Stalemate
	}
	if insufficientMaterial(b) {
		return InsufficientMaterial
	}
	if b.board.Halfmoveclock >= 100 {
		return FiftyMoveRule
	}
	h := b.hashes[len(b.hashes)-1]
	seen := 0
	for _, k := range b.hashes {
		if k == h {
			seen++
		}
	}
	if seen >= 3 {
		return ThreefoldRepetition
	}
	return Ongoing
}

func (b *Bitboard) PieceAt(sq Square) (Piece, bool) {
	mask := uint64(1) << sq
	for _, side := range []struct {
		bb    *dragontoothmg.Bitboards
		color Color
	}{{&b.board.White, White}, {&b.board.Black, Black}} {
		if side.bb.All&mask == 0 {
			continue
		}
		switch {
		case side.bb.Pawns&mask != 0:
			return Piece{Pawn, side.color}, true
		case side.bb.Knights&mask != 0:
			return Piece{Knight, side.color}, true
		case side.bb.Bishops&mask != 0:
			return Piece{Bishop, side.color}, true
		case side.bb.Rooks&mask != 0:
			return Piece{Rook, side.color}, true
		case side.bb.Queens&mask != 0:
			return Piece{Queen, side.color}, true
		case side.bb.Kings&mask != 0:
			return Piece{King, side.color}, true
		}
	}
	return Piece{}, false
}

// Material counts pieces of one type and colour straight off the bitboards.
func (b *Bitboard) Material(t PieceType, c Color) int {
	bb := &b.board.White
	if c == Black {
		bb = &b.board.Black
	}
	switch t {
	case Pawn:
		return bits.OnesCount64(bb.Pawns)
	case Knight:
		return bits.OnesCount64(bb.Knights)
	case Bishop:
		return bits.OnesCount64(bb.Bishops)
	case Rook:
		return bits.OnesCount64(bb.Rooks)
	case Queen:
		return bits.OnesCount64(bb.Queens)
	case King:
		return bits.OnesCount64(bb.Kings)
	}
	return 0
}

func (b *Bitboard) FEN() string {
	return b.board.ToFen()
}

func (b *Bitboard) fromDragonMove(m dragontoothmg.Move) Move {
	mv := Move{
		From:      Square(m.From()),
		To:        Square(m.To()),
		Promotion: fromDragonPiece(m.Promote()),
		Capture:   dragontoothmg.IsCapture(m, &b.board),
	}
	// en passant lands on an empty square
	if !mv.Capture && mv.From.File() != mv.To.File() {
		if p, ok := b.PieceAt(mv.From); ok && p.Type == Pawn {
			mv.Capture = true
		}
	}
	return mv
}

func fromDragonPiece(p dragontoothmg.Piece) PieceType {
	switch p {
	case dragontoothmg.Pawn:
		return Pawn
	case dragontoothmg.Knight:
		return Knight
	case dragontoothmg.Bishop:
		return Bishop
	case dragontoothmg.Rook:
		return Rook
	case dragontoothmg.Queen:
		return Queen
	case dragontoothmg.King:
		return King
	}
	return NoPieceType
}
