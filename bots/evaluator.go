package bots

import (
	"math"

	"github.com/charawein/chessgo/rules"
)

// Score is measured in centipawns from White's point of view.
type Score float64

var Infinity = Score(math.Inf(1))

const (
	// MateScore is what a checkmated position is worth when terminal scoring is on.
	MateScore Score = 1e6

	MobilityWeight Score = 0.5
)

var pieceValues = map[rules.PieceType]Score{
	rules.Pawn:   100,
	rules.Knight: 320,
	rules.Bishop: 330,
	rules.Rook:   500,
	rules.Queen:  900,
	rules.King:   0,
}

// PieceValue returns the material value of a piece type.
func PieceValue(t rules.PieceType) Score {
	return pieceValues[t]
}

type Evaluator interface {
	Evaluate(pos rules.Position) Score
}

// DefaultEvaluator scores material plus the mobility of the side to move only.
// With TerminalScores set, checkmates and draws short-circuit the heuristic.
type DefaultEvaluator struct {
	TerminalScores bool
}

func NewEvaluator() DefaultEvaluator {
	return DefaultEvaluator{TerminalScores: true}
}

func (e DefaultEvaluator) Evaluate(pos rules.Position) Score {
	if e.TerminalScores {
		switch status := pos.Status(); {
		case status == rules.Checkmate:
			if pos.Turn() == rules.White {
				return -MateScore
			}
			return MateScore
		case status.Draw():
			return 0
		}
	}
	return e.material(pos) + e.mobility(pos)
}

type materialCounter interface {
	Material(t rules.PieceType, c rules.Color) int
}

func (e DefaultEvaluator) material(pos rules.Position) Score {
	var score Score
	if mc, ok := pos.(materialCounter); ok {
		for t, v := range pieceValues {
			score += v * Score(mc.Material(t, rules.White)-mc.Material(t, rules.Black))
		}
		return score
	}
	for sq := rules.Square(0); sq < rules.NoSquare; sq++ {
		p, ok := pos.PieceAt(sq)
		if !ok {
			continue
		}
		if p.Color == rules.White {
			score += pieceValues[p.Type]
		} else {
			score -= pieceValues[p.Type]
		}
	}
	return score
}

func (e DefaultEvaluator) mobility(pos rules.Position) Score {
	n := Score(len(pos.LegalMoves())) * MobilityWeight
	if pos.Turn() == rules.White {
		return n
	}
	return -n
}
