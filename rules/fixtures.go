package rules

import (
	"fmt"
	"sort"
)

// Fixtures are named positions used by the CLI and the test suites.
var Fixtures = map[string]string{
	"start":            StartFEN,
	"queen-hangs":      "4k3/8/8/3q4/8/8/3Q4/4K3 w - - 0 1",
	"stalemate":        "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1",
	"back-rank-mate":   "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1",
	"checkmated":       "R5k1/5ppp/8/8/8/8/8/6K1 b - - 1 1",
	"kiwipete":         "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"promotion":        "8/P6k/8/8/8/8/8/K7 w - - 0 1",
	"en-passant":       "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 2",
	"bare-kings":       "8/8/4k3/8/8/3K4/8/8 w - - 0 1",
	"fifty-move":       "4k3/8/8/8/8/8/R7/4K3 w - - 100 80",
	"black-queen-hang": "4k3/3q4/8/8/8/8/8/3Q3K b - - 0 1",
}

// Fixture looks up a named position.
func Fixture(name string) (string, error) {
	fen, ok := Fixtures[name]
	if !ok {
		return "", fmt.Errorf("unknown fixture %q", name)
	}
	return fen, nil
}

// FixtureNames lists the fixtures in a stable order.
func FixtureNames() []string {
	names := make([]string, 0, len(Fixtures))
	for name := range Fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
