package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/charawein/chessgo/config"
	"github.com/charawein/chessgo/rules"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.EngineConfig {
	cfg := config.Default().Engine
	cfg.Depth = 1
	cfg.MaxDepth = 3
	cfg.ThinkDelay = 0
	return cfg
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	New(testConfig()).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
}

func TestBestMoveEndpoint(t *testing.T) {
	h := New(testConfig()).Handler()
	cases := []struct {
		name     string
		body     positionRequest
		code     int
		wantMove string
		status   string
	}{
		{"start", positionRequest{}, http.StatusOK, "", "ongoing"},
		{"hanging queen", positionRequest{FEN: rules.Fixtures["queen-hangs"], Depth: 2}, http.StatusOK, "d2d5", "ongoing"},
		{"dragontooth", positionRequest{FEN: rules.Fixtures["queen-hangs"], Backend: "dragontooth"}, http.StatusOK, "d2d5", "ongoing"},
		{"stalemate", positionRequest{FEN: rules.Fixtures["stalemate"]}, http.StatusOK, "", "stalemate"},
		{"bad fen", positionRequest{FEN: "rubbish"}, http.StatusBadRequest, "", ""},
		{"bad backend", positionRequest{Backend: "stockfish"}, http.StatusBadRequest, "", ""},
		{"too deep", positionRequest{Depth: 9}, http.StatusBadRequest, "", ""},
		{"negative depth", positionRequest{Depth: -1}, http.StatusBadRequest, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, h, "/v1/bestmove", tc.body)
			if w.Code != tc.code {
				t.Fatalf("status %d, want %d: %s", w.Code, tc.code, w.Body.String())
			}
			if tc.code != http.StatusOK {
				return
			}
			var res bestMoveResponse
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatal(err)
			}
			if res.Status != tc.status {
				t.Fatalf("status field %q, want %q", res.Status, tc.status)
			}
			switch {
			case tc.status == "stalemate":
				if res.Move != nil {
					t.Fatalf("stalemate returned %+v", res.Move)
				}
			case tc.wantMove != "":
				if res.Move == nil || res.Move.UCI != tc.wantMove {
					t.Fatalf("move %+v, want %s", res.Move, tc.wantMove)
				}
			default:
				if res.Move == nil || res.Nodes == 0 {
					t.Fatalf("no move from the start position: %+v", res)
				}
			}
		})
	}
}

func TestBestMoveReportsSAN(t *testing.T) {
	w := postJSON(t, New(testConfig()).Handler(), "/v1/bestmove", positionRequest{FEN: rules.Fixtures["back-rank-mate"]})
	var res bestMoveResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Move == nil || res.Move.SAN != "Ra8#" || res.Move.From != "a1" || res.Move.To != "a8" {
		t.Fatalf("move %+v", res.Move)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	h := New(testConfig()).Handler()
	w := postJSON(t, h, "/v1/evaluate", positionRequest{})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var res struct {
		Score  float64 `json:"score"`
		Turn   string  `json:"turn"`
		Status string  `json:"status"`
		Moves  int     `json:"moves"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Score != 10 || res.Turn != "white" || res.Status != "ongoing" || res.Moves != 20 {
		t.Fatalf("evaluate = %+v", res)
	}

	if w := postJSON(t, h, "/v1/evaluate", positionRequest{FEN: "rubbish"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad fen status %d", w.Code)
	}
}

func dialPlay(t *testing.T, query url.Values) (*websocket.Conn, func()) {
	t.Helper()
	return dialServer(t, New(testConfig()), query)
}

func dialServer(t *testing.T, s *Server, query url.Values) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/play?" + query.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		srv.Close()
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readMsg(t *testing.T, conn *websocket.Conn, want string) wsMessage {
	t.Helper()
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("waiting for %s: %v", want, err)
	}
	if msg.Type != want {
		t.Fatalf("got %s (%s), want %s", msg.Type, msg.Payload, want)
	}
	return msg
}

func TestPlayHumanDeliversMate(t *testing.T) {
	conn, done := dialPlay(t, url.Values{"fen": {rules.Fixtures["back-rank-mate"]}, "level": {"minimax1"}})
	defer done()

	readMsg(t, conn, "state")
	if err := conn.WriteJSON(wsMessage{Type: "move", Payload: mustMarshal(movePayload{From: "a1", To: "a8"})}); err != nil {
		t.Fatal(err)
	}
	var applied appliedPayload
	if err := json.Unmarshal(readMsg(t, conn, "applied").Payload, &applied); err != nil {
		t.Fatal(err)
	}
	if applied.Move.SAN != "Ra8#" || applied.Side != "white" {
		t.Fatalf("applied %+v", applied)
	}
	var state statePayload
	if err := json.Unmarshal(readMsg(t, conn, "game-over").Payload, &state); err != nil {
		t.Fatal(err)
	}
	if state.Status != "checkmate" {
		t.Fatalf("final state %+v", state)
	}
}

func TestPlayBotOpensAsWhite(t *testing.T) {
	conn, done := dialPlay(t, url.Values{"color": {"black"}, "level": {"minimax1"}})
	defer done()

	var state statePayload
	if err := json.Unmarshal(readMsg(t, conn, "state").Payload, &state); err != nil {
		t.Fatal(err)
	}
	if state.Human != "black" || state.Turn != "white" {
		t.Fatalf("initial state %+v", state)
	}
	readMsg(t, conn, "thinking")
	var applied appliedPayload
	if err := json.Unmarshal(readMsg(t, conn, "applied").Payload, &applied); err != nil {
		t.Fatal(err)
	}
	if applied.Side != "white" || !applied.Searched || applied.Ply != 1 {
		t.Fatalf("bot move %+v", applied)
	}

	// moving a white piece as black is rejected without ending the session
	if err := conn.WriteJSON(wsMessage{Type: "move", Payload: mustMarshal(movePayload{From: "b1", To: "c3"})}); err != nil {
		t.Fatal(err)
	}
	readMsg(t, conn, "error")
	if err := conn.WriteJSON(wsMessage{Type: "move", Payload: mustMarshal(movePayload{From: "g8", To: "f6"})}); err != nil {
		t.Fatal(err)
	}
	readMsg(t, conn, "applied")
	readMsg(t, conn, "thinking")
	readMsg(t, conn, "applied")
}

func activeSessions(t *testing.T, s *Server) int64 {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var res struct {
		Sessions int64 `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res.Sessions
}

func TestPlayDisconnectStopsThinking(t *testing.T) {
	cfg := testConfig()
	cfg.ThinkDelay = time.Hour
	s := New(cfg)
	conn, done := dialServer(t, s, url.Values{"color": {"black"}, "level": {"minimax1"}})
	defer done()

	readMsg(t, conn, "state")
	readMsg(t, conn, "thinking")
	if n := activeSessions(t, s); n != 1 {
		t.Fatalf("%d sessions while the bot thinks, want 1", n)
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for activeSessions(t, s) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session still open after the client went away")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPlayRejectsUnknownLevel(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/play?level=grandmaster", nil)
	New(testConfig()).Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}
