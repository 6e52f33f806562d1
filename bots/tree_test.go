package bots

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/charawein/chessgo/rules"
)

// treeNode is a hand-built game tree; a node without children is terminal.
type treeNode struct {
	value    Score
	capture  bool
	children []*treeNode
}

// treePos walks a treeNode as a rules.Position and counts apply/undo calls.
type treePos struct {
	root    *treeNode
	path    []*treeNode
	moves   []int
	applies int
	undos   int
	// emptyButOngoing makes leaves report Ongoing, which is a rules contradiction.
	emptyButOngoing bool
}

func newTreePos(root *treeNode) *treePos {
	return &treePos{root: root, path: []*treeNode{root}}
}

func (p *treePos) node() *treeNode { return p.path[len(p.path)-1] }

func (p *treePos) Turn() rules.Color {
	if len(p.moves)%2 == 0 {
		return rules.White
	}
	return rules.Black
}

func (p *treePos) LegalMoves() []rules.Move {
	var moves []rules.Move
	for i, c := range p.node().children {
		moves = append(moves, rules.Move{From: rules.Square(i), To: rules.Square(i), Capture: c.capture})
	}
	return moves
}

func (p *treePos) LegalMovesFrom(sq rules.Square) []rules.Move {
	var moves []rules.Move
	for _, m := range p.LegalMoves() {
		if m.From == sq {
			moves = append(moves, m)
		}
	}
	return moves
}

func (p *treePos) Apply(m rules.Move) error {
	i := int(m.From)
	if i >= len(p.node().children) {
		return rules.ErrIllegalMove
	}
	p.applies++
	p.path = append(p.path, p.node().children[i])
	p.moves = append(p.moves, i)
	return nil
}

func (p *treePos) Undo() error {
	if len(p.moves) == 0 {
		return rules.ErrNothingToUndo
	}
	p.undos++
	p.path = p.path[:len(p.path)-1]
	p.moves = p.moves[:len(p.moves)-1]
	return nil
}

func (p *treePos) Status() rules.Status {
	if len(p.node().children) == 0 && !p.emptyButOngoing {
		return rules.Stalemate
	}
	return rules.Ongoing
}

func (p *treePos) PieceAt(rules.Square) (rules.Piece, bool) { return rules.Piece{}, false }

func (p *treePos) FEN() string {
	parts := make([]string, len(p.moves))
	for i, m := range p.moves {
		parts[i] = fmt.Sprint(m)
	}
	return "/" + strings.Join(parts, "/")
}

// nodeEvaluator reads the static value stored on the current tree node.
type nodeEvaluator struct{}

func (nodeEvaluator) Evaluate(pos rules.Position) Score {
	return pos.(*treePos).node().value
}

func randomTree(rng *rand.Rand, depth int) *treeNode {
	n := &treeNode{value: Score(rng.Intn(201) - 100), capture: rng.Intn(4) == 0}
	if depth == 0 {
		return n
	}
	width := 1 + rng.Intn(4)
	for i := 0; i < width; i++ {
		n.children = append(n.children, randomTree(rng, depth-1))
	}
	return n
}

// minimax is the unpruned reference search over the same move ordering.
func minimax(pos rules.Position, eval Evaluator, order MoveOrderer, depth int, maximizing bool) Score {
	if depth == 0 || pos.Status().Terminal() {
		return eval.Evaluate(pos)
	}
	best := Infinity
	if maximizing {
		best = -Infinity
	}
	for _, m := range order.Order(pos.LegalMoves()) {
		if err := pos.Apply(m); err != nil {
			panic(err)
		}
		score := minimax(pos, eval, order, depth-1, !maximizing)
		if err := pos.Undo(); err != nil {
			panic(err)
		}
		if maximizing && score > best || !maximizing && score < best {
			best = score
		}
	}
	return best
}
