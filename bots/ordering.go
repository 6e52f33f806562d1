package bots

import "github.com/charawein/chessgo/rules"

type MoveOrderer interface {
	Order(moves []rules.Move) []rules.Move
}

// CapturesFirst is a stable partition: captures, then quiet moves, each group
// in the order the rules engine produced it.
type CapturesFirst struct{}

func (CapturesFirst) Order(moves []rules.Move) []rules.Move {
	ordered := make([]rules.Move, 0, len(moves))
	for _, m := range moves {
		if m.Capture {
			ordered = append(ordered, m)
		}
	}
	for _, m := range moves {
		if !m.Capture {
			ordered = append(ordered, m)
		}
	}
	return ordered
}
