package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/charawein/chessgo/bots"
	"github.com/charawein/chessgo/rules"
)

// Engine is the search the controller calls; *bots.MinimaxBot implements it.
type Engine interface {
	BestMove(pos rules.Position, depth int) (*bots.Result, error)
}

// Controller plays the automated side of a session.
type Controller struct {
	Engine Engine
	Depth  int
	// ThinkDelay is slept before the search so a UI can show that the bot is thinking.
	ThinkDelay time.Duration
	// Fallback picks a move when the engine returns none.
	Fallback bots.ChessBot
}

func NewController(engine Engine, depth int, thinkDelay time.Duration) *Controller {
	return &Controller{
		Engine:     engine,
		Depth:      depth,
		ThinkDelay: thinkDelay,
		Fallback:   bots.NewNewbornBot(),
	}
}

// Play searches and applies one move for the automated side to move. The
// session rejects human moves and other Play calls until it returns.
func (c *Controller) Play(ctx context.Context, s *Session) (AppliedMove, error) {
	if !s.thinking.CompareAndSwap(false, true) {
		return AppliedMove{}, ErrBusy
	}
	defer s.thinking.Store(false)

	if err := c.precondition(s); err != nil {
		return AppliedMove{}, err
	}

	if c.ThinkDelay > 0 {
		t := time.NewTimer(c.ThinkDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return AppliedMove{}, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	applied, err := c.play(s)
	s.mu.Unlock()
	if err != nil {
		return AppliedMove{}, err
	}
	s.notify(applied)
	return applied, nil
}

func (c *Controller) precondition(s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos.Status().Terminal() {
		return ErrGameOver
	}
	if !s.automated[s.pos.Turn()] {
		return ErrNotAutomatedTurn
	}
	return nil
}

func (c *Controller) play(s *Session) (AppliedMove, error) {
	res, err := c.Engine.BestMove(s.pos, c.Depth)
	if err != nil {
		return AppliedMove{}, fmt.Errorf("search: %w", err)
	}
	if res != nil {
		return s.apply(res.Move, res.Score, true, false)
	}

	fallback := c.Fallback
	if fallback == nil {
		fallback = bots.NewNewbornBot()
	}
	m, err := fallback.Choose(s.pos)
	if err != nil {
		return AppliedMove{}, err
	}
	if m == nil {
		return AppliedMove{}, ErrNoLegalMoves
	}
	log.Warn().Str("fen", s.pos.FEN()).Str("move", m.String()).Msg("controller-fallback")
	return s.apply(*m, 0, false, true)
}

// Run keeps playing while the side to move is automated and the game is not
// over. It returns the moves it applied.
func (c *Controller) Run(ctx context.Context, s *Session) ([]AppliedMove, error) {
	var played []AppliedMove
	for s.automated[s.Turn()] && !s.Status().Terminal() {
		if err := ctx.Err(); err != nil {
			return played, err
		}
		m, err := c.Play(ctx, s)
		if err != nil {
			return played, err
		}
		played = append(played, m)
	}
	return played, nil
}

// BotEngine lets a bot that does not search, such as the random bot, stand in
// for the engine. Depth is ignored.
type BotEngine struct {
	Bot bots.ChessBot
}

func (e BotEngine) BestMove(pos rules.Position, _ int) (*bots.Result, error) {
	m, err := e.Bot.Choose(pos)
	if err != nil || m == nil {
		return nil, err
	}
	return &bots.Result{Move: *m}, nil
}
