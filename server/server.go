// Package server exposes the engine over HTTP and lets a client play a
// session against the controller over a websocket.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/charawein/chessgo/bots"
	"github.com/charawein/chessgo/config"
	"github.com/charawein/chessgo/rules"
)

type Server struct {
	cfg    config.EngineConfig
	router *gin.Engine
	// active counts open /v1/play sessions.
	active atomic.Int64
}

func New(cfg config.EngineConfig) *Server {
	s := &Server{cfg: cfg, router: gin.New()}
	s.router.Use(gin.Recovery())
	s.router.GET("/healthz", s.health)
	s.router.POST("/v1/bestmove", s.bestMove)
	s.router.POST("/v1/evaluate", s.evaluate)
	s.router.GET("/v1/play", s.play)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

type positionRequest struct {
	FEN     string `json:"fen"`
	Backend string `json:"backend"`
	Depth   int    `json:"depth"`
}

type moveJSON struct {
	UCI       string `json:"uci"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Capture   bool   `json:"capture"`
	SAN       string `json:"san,omitempty"`
}

type bestMoveResponse struct {
	Move      *moveJSON `json:"move"`
	Score     float64   `json:"score"`
	Status    string    `json:"status"`
	Depth     int       `json:"depth"`
	Nodes     int       `json:"nodes"`
	Cutoffs   int       `json:"cutoffs"`
	TimedOut  bool      `json:"timed_out"`
	ElapsedMS int64     `json:"elapsed_ms"`
}

func toMoveJSON(m rules.Move, san string) *moveJSON {
	out := &moveJSON{
		UCI:     m.String(),
		From:    m.From.String(),
		To:      m.To.String(),
		Capture: m.Capture,
		SAN:     san,
	}
	if m.Promotion != rules.NoPieceType {
		out.Promotion = m.Promotion.String()
	}
	return out
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.active.Load()})
}

func (s *Server) position(req positionRequest) (rules.Position, error) {
	backend := req.Backend
	if backend == "" {
		backend = s.cfg.Backend
	}
	return rules.New(backend, req.FEN)
}

func (s *Server) evaluator() bots.Evaluator {
	return bots.DefaultEvaluator{TerminalScores: s.cfg.TerminalScores}
}

func (s *Server) bestMove(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Depth == 0 {
		req.Depth = s.cfg.Depth
	}
	if req.Depth < 1 || req.Depth > s.cfg.MaxDepth {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("depth must be between 1 and %d", s.cfg.MaxDepth)})
		return
	}
	pos, err := s.position(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bot := bots.NewMinimaxBot(req.Depth, s.cfg.TimeLimit)
	bot.Evaluator = s.evaluator()
	res, err := bot.BestMove(pos, req.Depth)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bots.ErrInvalidDepth) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	out := bestMoveResponse{Status: pos.Status().String(), Depth: req.Depth}
	if res != nil {
		var san string
		if n, ok := pos.(rules.Notator); ok {
			san, _ = n.SAN(res.Move)
		}
		out.Move = toMoveJSON(res.Move, san)
		out.Score = float64(res.Score)
		out.Nodes = res.Stats.Nodes
		out.Cutoffs = res.Stats.Cutoffs
		out.TimedOut = res.Stats.TimedOut
		out.ElapsedMS = res.Stats.Elapsed.Milliseconds()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) evaluate(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pos, err := s.position(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"score":  float64(s.evaluator().Evaluate(pos)),
		"turn":   pos.Turn().String(),
		"status": pos.Status().String(),
		"moves":  len(pos.LegalMoves()),
	})
}
