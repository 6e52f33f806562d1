package bots

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/charawein/chessgo/rules"
)

var (
	ErrInvalidDepth = errors.New("search depth must be at least 1")
	// ErrInconsistent means the rules engine contradicted itself mid-search.
	ErrInconsistent = errors.New("rules engine inconsistency")
)

type MinimaxBot struct {
	Depth     int
	TimeLimit time.Duration
	Evaluator Evaluator
	Orderer   MoveOrderer
}

func NewMinimaxBot(depth int, timeLimit time.Duration) *MinimaxBot {
	return &MinimaxBot{
		Depth:     depth,
		TimeLimit: timeLimit,
		Evaluator: NewEvaluator(),
		Orderer:   CapturesFirst{},
	}
}

func (b *MinimaxBot) Name() string {
	return fmt.Sprintf("Minimax Bot (depth %d)", b.Depth)
}

func (b *MinimaxBot) Choose(pos rules.Position) (*rules.Move, error) {
	res, err := b.BestMove(pos, b.Depth)
	if err != nil || res == nil {
		return nil, err
	}
	return &res.Move, nil
}

type Result struct {
	Move  rules.Move
	Score Score
	Stats Stats
}

type Stats struct {
	Nodes    int
	Leaves   int
	Cutoffs  int
	TimedOut bool
	Elapsed  time.Duration
}

// frame is one level of the recursion.
type frame struct {
	depth       int
	alpha, beta Score
	maximizing  bool
}

type search struct {
	bot      *MinimaxBot
	pos      rules.Position
	deadline time.Time
	stats    Stats
}

// BestMove runs a fixed-depth alpha-beta search for the side to move. White
// maximizes, Black minimizes, and the first move reaching the best score wins
// ties. A nil result with a nil error means pos is terminal. pos is borrowed:
// every move applied during the search is undone before BestMove returns.
func (b *MinimaxBot) BestMove(pos rules.Position, depth int) (*Result, error) {
	if depth < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDepth, depth)
	}
	start := time.Now()
	s := &search{bot: b, pos: pos}
	if b.TimeLimit > 0 {
		s.deadline = start.Add(b.TimeLimit)
	}

	// Draws by rule end the game even when moves remain.
	if pos.Status().Terminal() {
		return nil, nil
	}
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return nil, fmt.Errorf("%w: no legal moves in non-terminal position %s", ErrInconsistent, pos.FEN())
	}
	moves = b.orderer().Order(moves)

	maximizing := pos.Turn() == rules.White
	alpha, beta := -Infinity, Infinity
	var best *Result
	for _, m := range moves {
		score, err := s.child(m, frame{depth: depth - 1, alpha: alpha, beta: beta, maximizing: !maximizing})
		if err != nil {
			return nil, err
		}
		if best == nil || (maximizing && score > best.Score) || (!maximizing && score < best.Score) {
			best = &Result{Move: m, Score: score}
		}
		if maximizing && best.Score > alpha {
			alpha = best.Score
		}
		if !maximizing && best.Score < beta {
			beta = best.Score
		}
	}

	s.stats.Elapsed = time.Since(start)
	best.Stats = s.stats
	log.Debug().
		Str("fen", pos.FEN()).
		Int("depth", depth).
		Str("move", best.Move.String()).
		Float64("score", float64(best.Score)).
		Int("nodes", s.stats.Nodes).
		Int("cutoffs", s.stats.Cutoffs).
		Bool("timed-out", s.stats.TimedOut).
		Dur("elapsed", s.stats.Elapsed).
		Msg("best-move")
	return best, nil
}

func (b *MinimaxBot) evaluator() Evaluator {
	if b.Evaluator == nil {
		return DefaultEvaluator{}
	}
	return b.Evaluator
}

func (b *MinimaxBot) orderer() MoveOrderer {
	if b.Orderer == nil {
		return CapturesFirst{}
	}
	return b.Orderer
}

// child applies m, scores the resulting position and undoes m on every path.
func (s *search) child(m rules.Move, f frame) (score Score, err error) {
	if aerr := s.pos.Apply(m); aerr != nil {
		return 0, fmt.Errorf("%w: apply %s: %v", ErrInconsistent, m, aerr)
	}
	defer func() {
		if uerr := s.pos.Undo(); uerr != nil && err == nil {
			err = fmt.Errorf("%w: undo %s: %v", ErrInconsistent, m, uerr)
		}
	}()
	return s.search(f)
}

func (s *search) search(f frame) (Score, error) {
	s.stats.Nodes++
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.stats.TimedOut = true
		return s.leaf(f.depth), nil
	}
	if f.depth == 0 {
		return s.leaf(0), nil
	}
	if s.pos.Status().Terminal() {
		return s.leaf(f.depth), nil
	}

	moves := s.pos.LegalMoves()
	if len(moves) == 0 {
		return 0, fmt.Errorf("%w: no legal moves in non-terminal position %s", ErrInconsistent, s.pos.FEN())
	}
	moves = s.bot.orderer().Order(moves)

	alpha, beta := f.alpha, f.beta
	if f.maximizing {
		value := -Infinity
		for _, m := range moves {
			score, err := s.child(m, frame{depth: f.depth - 1, alpha: alpha, beta: beta, maximizing: false})
			if err != nil {
				return 0, err
			}
			if score > value {
				value = score
			}
			if value > alpha {
				alpha = value
			}
			if beta <= alpha {
				s.stats.Cutoffs++
				break
			}
		}
		return value, nil
	}

	value := Infinity
	for _, m := range moves {
		score, err := s.child(m, frame{depth: f.depth - 1, alpha: alpha, beta: beta, maximizing: true})
		if err != nil {
			return 0, err
		}
		if score < value {
			value = score
		}
		if value < beta {
			beta = value
		}
		if beta <= alpha {
			s.stats.Cutoffs++
			break
		}
	}
	return value, nil
}

// leaf evaluates statically. Mate scores are pushed away from zero by the
// remaining depth so that a shorter mate outranks a longer one.
func (s *search) leaf(depth int) Score {
	s.stats.Leaves++
	score := s.bot.evaluator().Evaluate(s.pos)
	switch {
	case score >= MateScore:
		score += Score(depth)
	case score <= -MateScore:
		score -= Score(depth)
	}
	return score
}
