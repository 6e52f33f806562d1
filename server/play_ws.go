package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/charawein/chessgo/bots"
	"github.com/charawein/chessgo/rules"
	"github.com/charawein/chessgo/session"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type movePayload struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type statePayload struct {
	FEN    string `json:"fen"`
	Turn   string `json:"turn"`
	Status string `json:"status"`
	Human  string `json:"human"`
	Bot    string `json:"bot"`
}

type appliedPayload struct {
	Ply      int       `json:"ply"`
	Side     string    `json:"side"`
	Move     *moveJSON `json:"move"`
	Score    float64   `json:"score"`
	Searched bool      `json:"searched"`
	Fallback bool      `json:"fallback,omitempty"`
	FEN      string    `json:"fen"`
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func promotionFromString(s string) rules.PieceType {
	switch s {
	case "n":
		return rules.Knight
	case "b":
		return rules.Bishop
	case "r":
		return rules.Rook
	case "q":
		return rules.Queen
	}
	return rules.NoPieceType
}

// play upgrades to a websocket and runs one session: the client moves for
// ?color= (white by default) and the bot named by ?level= answers.
func (s *Server) play(c *gin.Context) {
	human := rules.White
	if c.Query("color") == "black" {
		human = rules.Black
	}
	level := c.DefaultQuery("level", "minimax"+strconv.Itoa(s.cfg.Depth))
	bot, err := bots.Lookup(level, s.cfg.TimeLimit, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pos, err := rules.New(s.cfg.Backend, c.Query("fen"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ctrl *session.Controller
	if mb, ok := bot.(*bots.MinimaxBot); ok {
		mb.Evaluator = s.evaluator()
		ctrl = session.NewController(mb, mb.Depth, s.cfg.ThinkDelay)
	} else {
		ctrl = session.NewController(session.BotEngine{Bot: bot}, 1, s.cfg.ThinkDelay)
	}
	sess := session.New(pos, human.Other())

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.active.Add(1)
	defer s.active.Add(-1)

	// The request context is not cancelled once the connection is hijacked,
	// so the player cancels its own when the socket fails.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	p := &player{conn: conn, sess: sess, ctrl: ctrl, human: human, bot: bot.Name(), cancel: cancel}
	p.run(ctx)
}

type player struct {
	conn   *websocket.Conn
	sess   *session.Session
	ctrl   *session.Controller
	human  rules.Color
	bot    string
	cancel context.CancelFunc
}

// run is the only writer on conn: every reply, including the bot's moves, is
// sent from this goroutine. Reads happen in read so that a disconnect during
// the bot's turn cancels ctx.
func (p *player) run(ctx context.Context) {
	incoming := make(chan wsMessage)
	go p.read(ctx, incoming)

	p.send("state", p.state())
	if !p.botTurn(ctx) {
		return
	}
	for {
		var msg wsMessage
		select {
		case <-ctx.Done():
			return
		case msg = <-incoming:
		}
		switch msg.Type {
		case "move":
			var mp movePayload
			if err := json.Unmarshal(msg.Payload, &mp); err != nil {
				p.sendError(err)
				continue
			}
			from, err := rules.ParseSquare(mp.From)
			if err != nil {
				p.sendError(err)
				continue
			}
			to, err := rules.ParseSquare(mp.To)
			if err != nil {
				p.sendError(err)
				continue
			}
			applied, err := p.sess.Move(from, to, promotionFromString(mp.Promotion))
			if err != nil {
				p.sendError(err)
				continue
			}
			p.send("applied", p.applied(applied))
			if !p.botTurn(ctx) {
				return
			}
		case "state":
			p.send("state", p.state())
		default:
			p.sendError(errUnknownMessage(msg.Type))
		}
	}
}

func (p *player) read(ctx context.Context, incoming chan<- wsMessage) {
	defer p.cancel()
	for {
		var msg wsMessage
		if err := p.conn.ReadJSON(&msg); err != nil {
			log.Debug().Err(err).Msg("ws-read-failed")
			return
		}
		select {
		case incoming <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// botTurn lets the controller answer and reports whether the connection should
// stay open.
func (p *player) botTurn(ctx context.Context) bool {
	if p.sess.Status().Terminal() {
		p.send("game-over", p.state())
		return true
	}
	if !p.sess.Automated(p.sess.Turn()) {
		return true
	}
	p.send("thinking", nil)
	played, err := p.ctrl.Run(ctx, p.sess)
	for _, m := range played {
		p.send("applied", p.applied(m))
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if err != nil {
		log.Error().Err(err).Str("fen", p.sess.FEN()).Msg("controller-failed")
		p.sendError(err)
		return false
	}
	if p.sess.Status().Terminal() {
		p.send("game-over", p.state())
	}
	return true
}

func (p *player) state() statePayload {
	return statePayload{
		FEN:    p.sess.FEN(),
		Turn:   p.sess.Turn().String(),
		Status: p.sess.Status().String(),
		Human:  p.human.String(),
		Bot:    p.bot,
	}
}

func (p *player) applied(m session.AppliedMove) appliedPayload {
	return appliedPayload{
		Ply:      m.Ply,
		Side:     m.Color.String(),
		Move:     toMoveJSON(m.Move, m.SAN),
		Score:    float64(m.Score),
		Searched: m.Searched,
		Fallback: m.Fallback,
		FEN:      p.sess.FEN(),
	}
}

func (p *player) send(typ string, payload any) {
	msg := wsMessage{Type: typ}
	if payload != nil {
		msg.Payload = mustMarshal(payload)
	}
	if err := p.conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("type", typ).Msg("ws-write-failed")
		p.cancel()
	}
}

func (p *player) sendError(err error) {
	p.send("error", gin.H{"error": err.Error()})
}

type errUnknownMessage string

func (e errUnknownMessage) Error() string {
	return "unknown message type " + string(e)
}
