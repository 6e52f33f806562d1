// bot.go
package bots

import "github.com/charawein/chessgo/rules"

// ChessBot picks a move for the side to move. A nil move with a nil error
// means the position has no legal moves.
type ChessBot interface {
	Choose(pos rules.Position) (*rules.Move, error)
	Name() string
}
