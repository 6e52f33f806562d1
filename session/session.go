// Package session owns a game in progress and drives the automated side.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/charawein/chessgo/bots"
	"github.com/charawein/chessgo/rules"
)

var (
	ErrGameOver         = errors.New("game is over")
	ErrNotYourTurn      = errors.New("side to move is automated")
	ErrNotAutomatedTurn = errors.New("side to move is not automated")
	ErrBusy             = errors.New("a search is already running")
	ErrNoLegalMoves     = errors.New("no legal moves")
)

// AppliedMove is what the session reports after a move lands on the board.
type AppliedMove struct {
	Ply      int
	Color    rules.Color
	Move     rules.Move
	SAN      string
	Score    bots.Score
	Searched bool
	Fallback bool
}

// view is a copy of the position taken after every applied move, so readers
// never touch the live position while a search is running.
type view struct {
	board  [64]rules.Piece
	fen    string
	turn   rules.Color
	status rules.Status
}

type Session struct {
	// mu guards pos. The controller holds it for the whole search.
	mu        sync.Mutex
	pos       rules.Position
	automated map[rules.Color]bool
	thinking  atomic.Bool

	viewMu sync.RWMutex
	view   view
	moves  []AppliedMove

	// OnApplied, if set, is called after every applied move, outside any lock.
	OnApplied func(AppliedMove)
}

func New(pos rules.Position, automated ...rules.Color) *Session {
	s := &Session{pos: pos, automated: make(map[rules.Color]bool)}
	for _, c := range automated {
		s.automated[c] = true
	}
	s.refresh()
	return s
}

func (s *Session) Automated(c rules.Color) bool {
	return s.automated[c]
}

func (s *Session) Thinking() bool {
	return s.thinking.Load()
}

func (s *Session) FEN() string {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view.fen
}

func (s *Session) Turn() rules.Color {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view.turn
}

func (s *Session) Status() rules.Status {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view.status
}

func (s *Session) PieceAt(sq rules.Square) (rules.Piece, bool) {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	p := s.view.board[sq]
	return p, p.Type != rules.NoPieceType
}

// Moves returns the move log.
func (s *Session) Moves() []AppliedMove {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return append([]AppliedMove(nil), s.moves...)
}

// Targets lists the legal moves starting on sq, or nothing while a search runs.
func (s *Session) Targets(sq rules.Square) []rules.Move {
	if s.Thinking() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos.LegalMovesFrom(sq)
}

// PGN renders the game when the position backend supports it.
func (s *Session) PGN() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.pos.(interface{ PGN() (string, error) })
	if !ok {
		return "", fmt.Errorf("backend %T cannot export PGN", s.pos)
	}
	return g.PGN()
}

// Move plays a human move. A promotion defaults to a queen when promo is
// NoPieceType.
func (s *Session) Move(from, to rules.Square, promo rules.PieceType) (AppliedMove, error) {
	if s.Thinking() {
		return AppliedMove{}, ErrBusy
	}
	s.mu.Lock()
	applied, err := s.humanMove(from, to, promo)
	s.mu.Unlock()
	if err != nil {
		return AppliedMove{}, err
	}
	s.notify(applied)
	return applied, nil
}

func (s *Session) humanMove(from, to rules.Square, promo rules.PieceType) (AppliedMove, error) {
	if s.pos.Status().Terminal() {
		return AppliedMove{}, ErrGameOver
	}
	if s.automated[s.pos.Turn()] {
		return AppliedMove{}, ErrNotYourTurn
	}
	if promo == rules.NoPieceType {
		promo = rules.Queen
	}
	var chosen *rules.Move
	for _, m := range s.pos.LegalMovesFrom(from) {
		if m.To != to {
			continue
		}
		if m.Promotion == rules.NoPieceType || m.Promotion == promo {
			m := m
			chosen = &m
			break
		}
	}
	if chosen == nil {
		return AppliedMove{}, fmt.Errorf("%w: %s%s", rules.ErrIllegalMove, from, to)
	}
	return s.apply(*chosen, 0, false, false)
}

// apply plays m on the live position and records it. Callers hold mu.
func (s *Session) apply(m rules.Move, score bots.Score, searched, fallback bool) (AppliedMove, error) {
	color := s.pos.Turn()
	var san string
	if n, ok := s.pos.(rules.Notator); ok {
		if v, err := n.SAN(m); err == nil {
			san = v
		}
	}
	if err := s.pos.Apply(m); err != nil {
		return AppliedMove{}, err
	}
	s.viewMu.RLock()
	ply := len(s.moves) + 1
	s.viewMu.RUnlock()
	applied := AppliedMove{
		Ply:      ply,
		Color:    color,
		Move:     m,
		SAN:      san,
		Score:    score,
		Searched: searched,
		Fallback: fallback,
	}
	s.viewMu.Lock()
	s.moves = append(s.moves, applied)
	s.viewMu.Unlock()
	s.refresh()
	log.Info().
		Int("ply", applied.Ply).
		Str("side", color.String()).
		Str("move", m.String()).
		Str("san", san).
		Msg("move-applied")
	return applied, nil
}

// refresh rebuilds the view from the live position. Callers hold mu or own s exclusively.
func (s *Session) refresh() {
	var v view
	for sq := rules.Square(0); sq < rules.NoSquare; sq++ {
		if p, ok := s.pos.PieceAt(sq); ok {
			v.board[sq] = p
		}
	}
	v.fen = s.pos.FEN()
	v.turn = s.pos.Turn()
	v.status = s.pos.Status()
	s.viewMu.Lock()
	s.view = v
	s.viewMu.Unlock()
}

func (s *Session) notify(m AppliedMove) {
	if s.OnApplied != nil {
		s.OnApplied(m)
	}
}
