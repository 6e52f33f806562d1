package main

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/rs/zerolog/log"

	"github.com/charawein/chessgo/bots"
	"github.com/charawein/chessgo/config"
	"github.com/charawein/chessgo/logging"
	"github.com/charawein/chessgo/rules"
	"github.com/charawein/chessgo/session"
)

const (
	squareSize   = 64
	statusHeight = 40
	screenWidth  = squareSize * 8
	screenHeight = squareSize*8 + statusHeight
)

var (
	lightSquare = color.RGBA{240, 217, 181, 255}
	darkSquare  = color.RGBA{181, 136, 99, 255}
	lastMoveClr = color.RGBA{205, 210, 106, 255}
	targetClr   = color.RGBA{120, 170, 110, 255}
)

// levels are the bots offered on the start screen, picked with keys 1 to 3.
var (
	levels    = []string{"newborn", "minimax3", "minimax5"}
	levelKeys = []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3}
)

type Game struct {
	cfg         *config.Config
	sess        *session.Session
	ctrl        *session.Controller
	playerColor rules.Color
	level       int
	gameStarted bool

	selected     rules.Square
	targets      []rules.Move
	dragging     bool
	dragX, dragY int

	mu       sync.Mutex
	lastMove *rules.Move
	botErr   error

	light, dark, last, target *ebiten.Image
}

func NewGame(cfg *config.Config) *Game {
	g := &Game{cfg: cfg, selected: rules.NoSquare, level: 1}
	g.light = square(lightSquare)
	g.dark = square(darkSquare)
	g.last = square(lastMoveClr)
	g.target = square(targetClr)
	return g
}

func square(clr color.Color) *ebiten.Image {
	img := ebiten.NewImage(squareSize, squareSize)
	img.Fill(clr)
	return img
}

func (g *Game) Update() error {
	if !g.gameStarted {
		for i, k := range levelKeys {
			if inpututil.IsKeyJustPressed(k) {
				g.level = i
			}
		}
		switch {
		case inpututil.IsKeyJustPressed(ebiten.KeyW):
			return g.startGame(rules.White)
		case inpututil.IsKeyJustPressed(ebiten.KeyB):
			return g.startGame(rules.Black)
		}
		return nil
	}

	if g.sess.Thinking() || g.sess.Turn() != g.playerColor || g.sess.Status().Terminal() {
		return nil
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		if sq, ok := g.squareAt(ebiten.CursorPosition()); ok {
			if p, ok := g.sess.PieceAt(sq); ok && p.Color == g.playerColor {
				g.selected = sq
				g.targets = g.sess.Targets(sq)
				g.dragging = true
			}
		}
	}
	if g.dragging {
		g.dragX, g.dragY = ebiten.CursorPosition()
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) && g.dragging {
		if to, ok := g.squareAt(ebiten.CursorPosition()); ok && to != g.selected {
			if _, err := g.sess.Move(g.selected, to, rules.NoPieceType); err != nil {
				log.Debug().Err(err).Str("from", g.selected.String()).Str("to", to.String()).Msg("move-rejected")
			} else {
				go g.makeBotMove()
			}
		}
		g.selected = rules.NoSquare
		g.targets = nil
		g.dragging = false
	}
	return nil
}

func (g *Game) startGame(human rules.Color) error {
	pos, err := rules.New(g.cfg.Engine.Backend, "")
	if err != nil {
		return err
	}
	bot, err := bots.Lookup(levels[g.level], g.cfg.Engine.TimeLimit, 0)
	if err != nil {
		return err
	}
	if mb, ok := bot.(*bots.MinimaxBot); ok {
		mb.Evaluator = bots.DefaultEvaluator{TerminalScores: g.cfg.Engine.TerminalScores}
		g.ctrl = session.NewController(mb, mb.Depth, g.cfg.Engine.ThinkDelay)
	} else {
		g.ctrl = session.NewController(session.BotEngine{Bot: bot}, 1, g.cfg.Engine.ThinkDelay)
	}

	g.playerColor = human
	g.sess = session.New(pos, human.Other())
	g.sess.OnApplied = func(m session.AppliedMove) {
		g.mu.Lock()
		mv := m.Move
		g.lastMove = &mv
		g.mu.Unlock()
	}
	g.gameStarted = true
	log.Info().Str("human", human.String()).Str("bot", bot.Name()).Msg("game-started")

	if human == rules.Black {
		go g.makeBotMove()
	}
	return nil
}

// makeBotMove runs off the update loop; the session's snapshot keeps Draw
// working while the search holds the position.
func (g *Game) makeBotMove() {
	_, err := g.ctrl.Run(context.Background(), g.sess)
	if err != nil {
		log.Error().Err(err).Str("fen", g.sess.FEN()).Msg("bot-move-failed")
	}
	g.mu.Lock()
	g.botErr = err
	g.mu.Unlock()
}

// squareAt maps a cursor position to a board square from the player's side.
func (g *Game) squareAt(x, y int) (rules.Square, bool) {
	if x < 0 || x >= squareSize*8 || y < 0 || y >= squareSize*8 {
		return rules.NoSquare, false
	}
	file, rank := x/squareSize, 7-y/squareSize
	if g.playerColor == rules.Black {
		file, rank = 7-file, 7-rank
	}
	return rules.NewSquare(file, rank), true
}

// screenPos is the top-left corner of sq on screen.
func (g *Game) screenPos(sq rules.Square) (int, int) {
	file, rank := sq.File(), sq.Rank()
	if g.playerColor == rules.Black {
		file, rank = 7-file, 7-rank
	}
	return file * squareSize, (7 - rank) * squareSize
}

func pieceLabel(p rules.Piece) string {
	s := p.Type.String()
	if p.Color == rules.White {
		return strings.ToUpper(s)
	}
	return s
}

func (g *Game) Draw(screen *ebiten.Image) {
	if !g.gameStarted {
		ebitenutil.DebugPrintAt(screen, "Chess on Go", screenWidth/2-40, screenHeight/2-80)
		for i, name := range levels {
			marker := "  "
			if i == g.level {
				marker = "> "
			}
			ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s%d: %s", marker, i+1, name), screenWidth/2-60, screenHeight/2-40+i*16)
		}
		ebitenutil.DebugPrintAt(screen, "W: play white   B: play black", screenWidth/2-90, screenHeight/2+30)
		return
	}

	g.mu.Lock()
	last := g.lastMove
	botErr := g.botErr
	g.mu.Unlock()

	for sq := rules.Square(0); sq < rules.NoSquare; sq++ {
		x, y := g.screenPos(sq)
		img := g.light
		if (sq.File()+sq.Rank())%2 == 0 {
			img = g.dark
		}
		if last != nil && (sq == last.From || sq == last.To) {
			img = g.last
		}
		for _, m := range g.targets {
			if m.To == sq {
				img = g.target
			}
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(x), float64(y))
		screen.DrawImage(img, op)

		if p, ok := g.sess.PieceAt(sq); ok && !(g.dragging && sq == g.selected) {
			ebitenutil.DebugPrintAt(screen, pieceLabel(p), x+squareSize/2-3, y+squareSize/2-8)
		}
	}

	if g.dragging {
		if p, ok := g.sess.PieceAt(g.selected); ok {
			ebitenutil.DebugPrintAt(screen, pieceLabel(p), g.dragX-3, g.dragY-8)
		}
	}

	status := "Your move"
	switch {
	case botErr != nil:
		status = "Bot error: " + botErr.Error()
	case g.sess.Status().Terminal():
		status = "Game over: " + g.sess.Status().String()
	case g.sess.Thinking():
		status = "Bot is thinking..."
	case g.sess.Turn() != g.playerColor:
		status = "Bot to move"
	}
	ebitenutil.DebugPrintAt(screen, status, 8, squareSize*8+12)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if err := logging.Setup(cfg.Logs, nil); err != nil {
		log.Fatal().Err(err).Msg("logging")
	}
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Chess on Go")
	ebiten.SetWindowResizable(true)
	if err := ebiten.RunGame(NewGame(cfg)); err != nil {
		log.Fatal().Err(err).Msg("game")
	}
}
