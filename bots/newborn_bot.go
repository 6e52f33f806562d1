package bots

import "github.com/charawein/chessgo/rules"

// NewbornBot plays the first legal move the rules engine lists.
type NewbornBot struct{}

func NewNewbornBot() *NewbornBot {
	return &NewbornBot{}
}

func (b *NewbornBot) Choose(pos rules.Position) (*rules.Move, error) {
	moves := pos.LegalMoves()
	if len(moves) > 0 {
		return &moves[0], nil
	}
	return nil, nil
}

func (b *NewbornBot) Name() string {
	return "Newborn"
}
