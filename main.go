package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/charawein/chessgo/bots"
	"github.com/charawein/chessgo/config"
	"github.com/charawein/chessgo/logging"
	"github.com/charawein/chessgo/rules"
	"github.com/charawein/chessgo/server"
	"github.com/charawein/chessgo/session"
)

// maxSelfPlayPlies stops a self-play game that neither side can finish.
const maxSelfPlayPlies = 300

func main() {
	var (
		fen      = flag.String("fen", "", "position to search, start position when empty")
		fixture  = flag.String("fixture", "", "named test position, one of: "+strings.Join(rules.FixtureNames(), ", "))
		depth    = flag.Int("depth", 0, "search depth, CHESS_DEPTH when 0")
		backend  = flag.String("backend", "", "rules backend (notnil or dragontooth), CHESS_BACKEND when empty")
		selfPlay = flag.Int("selfplay", 0, "play N games of minimax (white) against the random bot")
		serve    = flag.Bool("serve", false, "run the HTTP server on HTTP_ADDR")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := logging.Setup(cfg.Logs, nil); err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	if *depth > 0 {
		cfg.Engine.Depth = *depth
	}
	if *backend != "" {
		cfg.Engine.Backend = *backend
	}

	switch {
	case *serve:
		log.Info().Str("addr", cfg.Http.Addr).Str("backend", cfg.Engine.Backend).Msg("server-starting")
		if err := server.New(cfg.Engine).Run(cfg.Http.Addr); err != nil {
			log.Fatal().Err(err).Msg("server-stopped")
		}
	case *selfPlay > 0:
		for i := 0; i < *selfPlay; i++ {
			pgn, status, err := playSelf(cfg.Engine, int64(i))
			if err != nil {
				log.Fatal().Err(err).Int("game", i+1).Msg("self-play failed")
			}
			fmt.Printf("[Game %d: %s]\n%s\n\n", i+1, status, pgn)
		}
	default:
		if *fixture != "" {
			v, err := rules.Fixture(*fixture)
			if err != nil {
				log.Fatal().Err(err).Msg("fixture")
			}
			*fen = v
		}
		if err := bestMove(cfg.Engine, *fen); err != nil {
			log.Fatal().Err(err).Msg("search failed")
		}
	}
}

func bestMove(cfg config.EngineConfig, fen string) error {
	pos, err := rules.New(cfg.Backend, fen)
	if err != nil {
		return err
	}
	bot := bots.NewMinimaxBot(cfg.Depth, cfg.TimeLimit)
	bot.Evaluator = bots.DefaultEvaluator{TerminalScores: cfg.TerminalScores}
	res, err := bot.BestMove(pos, cfg.Depth)
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Printf("no move: %s\n", pos.Status())
		return nil
	}
	move := res.Move.String()
	if n, ok := pos.(rules.Notator); ok {
		if san, err := n.SAN(res.Move); err == nil {
			move = san + " (" + move + ")"
		}
	}
	fmt.Printf("bestmove %s score %.1f depth %d nodes %d cutoffs %d time %s\n",
		move, float64(res.Score), cfg.Depth, res.Stats.Nodes, res.Stats.Cutoffs, res.Stats.Elapsed)
	return nil
}

// playSelf runs one game and returns its PGN, or the UCI move list when the
// backend has no notation.
func playSelf(cfg config.EngineConfig, seed int64) (string, rules.Status, error) {
	pos, err := rules.New(cfg.Backend, "")
	if err != nil {
		return "", rules.Ongoing, err
	}
	s := session.New(pos, rules.White, rules.Black)

	minimax := bots.NewMinimaxBot(cfg.Depth, cfg.TimeLimit)
	minimax.Evaluator = bots.DefaultEvaluator{TerminalScores: cfg.TerminalScores}
	players := map[rules.Color]*session.Controller{
		rules.White: session.NewController(minimax, cfg.Depth, 0),
		rules.Black: session.NewController(session.BotEngine{Bot: bots.NewRandomBot(seed)}, 1, 0),
	}

	ctx := context.Background()
	for ply := 0; ply < maxSelfPlayPlies && !s.Status().Terminal(); ply++ {
		if _, err := players[s.Turn()].Play(ctx, s); err != nil {
			return "", s.Status(), err
		}
	}

	if pgn, err := s.PGN(); err == nil {
		return pgn, s.Status(), nil
	}
	var b strings.Builder
	for i, m := range s.Moves() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(m.Move.String())
	}
	return b.String(), s.Status(), nil
}
