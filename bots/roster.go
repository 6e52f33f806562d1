package bots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrUnknownBot = errors.New("unknown bot")

// Lookup builds a bot from its level name: "newborn", "random" or
// "minimaxN" where N is the search depth.
func Lookup(name string, timeLimit time.Duration, seed int64) (ChessBot, error) {
	switch name {
	case "newborn":
		return NewNewbornBot(), nil
	case "random":
		return NewRandomBot(seed), nil
	}
	if rest, ok := strings.CutPrefix(name, "minimax"); ok {
		depth, err := strconv.Atoi(rest)
		if err != nil || depth < 1 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBot, name)
		}
		return NewMinimaxBot(depth, timeLimit), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBot, name)
}
