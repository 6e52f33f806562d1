package bots

import (
	"math/rand"
	"sync"

	"github.com/charawein/chessgo/rules"
)

type RandomBot struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomBot(seed int64) *RandomBot {
	return &RandomBot{rng: rand.New(rand.NewSource(seed))}
}

func (b *RandomBot) Choose(pos rules.Position) (*rules.Move, error) {
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return nil, nil
	}
	b.mu.Lock()
	i := b.rng.Intn(len(moves))
	b.mu.Unlock()
	return &moves[i], nil
}

func (b *RandomBot) Name() string {
	return "Random Bot"
}
