package bots

import (
	"testing"

	"github.com/charawein/chessgo/rules"
)

func evalFEN(t *testing.T, e Evaluator, backend, fen string) Score {
	t.Helper()
	pos, err := rules.New(backend, fen)
	if err != nil {
		t.Fatalf("%s: %v", fen, err)
	}
	return e.Evaluate(pos)
}

func TestEvaluateStartPosition(t *testing.T) {
	for _, backend := range backends {
		white := evalFEN(t, DefaultEvaluator{}, backend, rules.StartFEN)
		if white != 10 {
			t.Fatalf("%s: white to move scored %v, want 10", backend, white)
		}
		black := evalFEN(t, DefaultEvaluator{}, backend, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1")
		if black != -10 {
			t.Fatalf("%s: black to move scored %v, want -10", backend, black)
		}
	}
}

func TestEvaluateMaterial(t *testing.T) {
	cases := []struct {
		fen  string
		want Score
	}{
		// rook against three pawns, black to move with 8 replies
		{"6k1/5ppp/8/8/8/8/R7/6K1 b - - 0 1", 500 - 300 - 4},
		// level material, white to move with 23 moves
		{"4k3/8/8/3q4/8/8/3Q4/4K3 w - - 0 1", 11.5},
	}
	for _, backend := range backends {
		for _, tc := range cases {
			if got := evalFEN(t, DefaultEvaluator{}, backend, tc.fen); got != tc.want {
				t.Fatalf("%s: %s scored %v, want %v", backend, tc.fen, got, tc.want)
			}
		}
	}
}

func TestExtraQueenScoresHigher(t *testing.T) {
	pairs := [][2]string{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", "4k3/8/8/8/8/8/8/Q3K3 w - - 0 1"},
		{"4k3/8/8/8/8/8/8/4K3 b - - 0 1", "4k3/8/8/8/8/8/8/Q3K3 b - - 0 1"},
		{rules.StartFEN, "rnbqkbnr/pppppppp/8/8/8/3Q4/PPPPPPPP/RNBQKBNR w KQkq - 0 1"},
	}
	for _, backend := range backends {
		for _, e := range []Evaluator{DefaultEvaluator{}, NewEvaluator()} {
			for _, p := range pairs {
				base := evalFEN(t, e, backend, p[0])
				more := evalFEN(t, e, backend, p[1])
				if more <= base {
					t.Fatalf("%s: extra queen %v <= base %v for %s", backend, more, base, p[0])
				}
			}
		}
	}
}

func TestMobilityOnlyCountsSideToMove(t *testing.T) {
	// same board, different side to move: the sign of the mobility term flips
	w := evalFEN(t, DefaultEvaluator{}, rules.BackendNotnil, "4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	b := evalFEN(t, DefaultEvaluator{}, rules.BackendNotnil, "4k3/8/8/8/8/8/8/4K3 b - - 0 1")
	if w != 2.5 || b != -2.5 {
		t.Fatalf("white to move %v, black to move %v; want 2.5 and -2.5", w, b)
	}
}

func TestTerminalScores(t *testing.T) {
	cases := []struct {
		fixture string
		plain   Score
		scored  Score
	}{
		{"checkmated", 500 - 300, MateScore},
		{"stalemate", 900, 0},
		{"bare-kings", 4, 0},
	}
	for _, backend := range backends {
		for _, tc := range cases {
			fen := rules.Fixtures[tc.fixture]
			if got := evalFEN(t, DefaultEvaluator{}, backend, fen); got != tc.plain {
				t.Fatalf("%s/%s plain: %v, want %v", backend, tc.fixture, got, tc.plain)
			}
			if got := evalFEN(t, NewEvaluator(), backend, fen); got != tc.scored {
				t.Fatalf("%s/%s terminal: %v, want %v", backend, tc.fixture, got, tc.scored)
			}
		}
	}
}

func TestEvaluateIsPure(t *testing.T) {
	pos, err := rules.New(rules.BackendNotnil, rules.Fixtures["kiwipete"])
	if err != nil {
		t.Fatal(err)
	}
	fen := pos.FEN()
	first := NewEvaluator().Evaluate(pos)
	for i := 0; i < 3; i++ {
		if got := NewEvaluator().Evaluate(pos); got != first {
			t.Fatalf("evaluation drifted: %v then %v", first, got)
		}
	}
	if pos.FEN() != fen {
		t.Fatalf("evaluation mutated the position")
	}
}
