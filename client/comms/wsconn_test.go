// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package comms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"xrplink.org/xrplink/xrp/wire"
)

var upgrader = websocket.Upgrader{}

// testServer is a minimal rippled stand-in. Each received command is
// dispatched to the registered handler, which returns the result payload
// or an error triple.
type testServer struct {
	*httptest.Server
	mtx      sync.Mutex
	handlers map[string]func(params map[string]any) (any, *wire.RPCError)
	conns    []*websocket.Conn
}

func newTestServer(t *testing.T) *testServer {
	s := &testServer{
		handlers: make(map[string]func(map[string]any) (any, *wire.RPCError)),
	}
	s.handle("subscribe", func(map[string]any) (any, *wire.RPCError) {
		return map[string]any{"ledger_index": 100}, nil
	})
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade error: %v", err)
			return
		}
		s.mtx.Lock()
		s.conns = append(s.conns, ws)
		s.mtx.Unlock()
		for {
			msg := make(map[string]any)
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			cmd, _ := msg["command"].(string)
			s.mtx.Lock()
			handler := s.handlers[cmd]
			s.mtx.Unlock()
			resp := map[string]any{"id": msg["id"], "type": "response"}
			if handler == nil {
				resp["status"] = "error"
				resp["error"] = "unknownCmd"
				resp["error_message"] = "unknown command " + cmd
			} else if result, rpcErr := handler(msg); rpcErr != nil {
				resp["status"] = "error"
				resp["error"] = rpcErr.Name
				resp["error_code"] = rpcErr.Code
				resp["error_message"] = rpcErr.Message
			} else {
				resp["status"] = "success"
				resp["result"] = result
			}
			if err := ws.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	return s
}

func (s *testServer) handle(cmd string, f func(map[string]any) (any, *wire.RPCError)) {
	s.mtx.Lock()
	s.handlers[cmd] = f
	s.mtx.Unlock()
}

// stream pushes a raw message to every connected client.
func (s *testServer) stream(msg any) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, ws := range s.conns {
		ws.WriteJSON(msg)
	}
}

func (s *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func newTestConn(t *testing.T, s *testServer) (*WsConn, func()) {
	t.Helper()
	conn, err := NewWsConn(&WsCfg{URL: s.wsURL()})
	if err != nil {
		t.Fatalf("NewWsConn: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return conn, func() {
		conn.Disconnect()
		cancel()
	}
}

func TestRequestResponse(t *testing.T) {
	s := newTestServer(t)
	defer s.Close()

	s.handle("account_info", func(params map[string]any) (any, *wire.RPCError) {
		acct, _ := params["account"].(string)
		if acct != "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh" {
			return nil, &wire.RPCError{Name: "actNotFound", Code: 19, Message: "Account not found."}
		}
		return map[string]any{
			"account_data": map[string]any{
				"Account":  acct,
				"Balance":  "1000000",
				"Sequence": 7,
			},
		}, nil
	})

	conn, shutdown := newTestConn(t, s)
	defer shutdown()

	if !conn.IsConnected() {
		t.Fatal("not connected after Connect")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var res wire.AccountInfoResult
	err := conn.Request(ctx, "account_info", map[string]any{
		"account": "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
	}, &res)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if res.AccountData.Sequence != 7 || res.AccountData.Balance != "1000000" {
		t.Fatalf("unexpected account data: %+v", res.AccountData)
	}

	// Unknown account surfaces the RPC error.
	err = conn.Request(ctx, "account_info", map[string]any{
		"account": "rrrrrrrrrrrrrrrrrrrrBZbvji",
	}, &res)
	var rpcErr *wire.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Name != "actNotFound" {
		t.Fatalf("expected actNotFound, got %v", err)
	}
	if !wire.IsNotFound(err) {
		t.Fatalf("IsNotFound = false for %v", err)
	}
}

func TestConcurrentRequests(t *testing.T) {
	s := newTestServer(t)
	defer s.Close()

	s.handle("echo", func(params map[string]any) (any, *wire.RPCError) {
		return map[string]any{"n": params["n"]}, nil
	})

	conn, shutdown := newTestConn(t, s)
	defer shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n float64) {
			defer wg.Done()
			var res struct {
				N json.Number `json:"n"`
			}
			if err := conn.Request(ctx, "echo", map[string]any{"n": n}, &res); err != nil {
				t.Errorf("Request %v: %v", n, err)
				return
			}
			got, _ := res.N.Float64()
			if got != n {
				t.Errorf("response mismatch: sent %v, got %v", n, got)
			}
		}(float64(i))
	}
	wg.Wait()
}

func TestLedgerStream(t *testing.T) {
	s := newTestServer(t)
	defer s.Close()

	conn, shutdown := newTestConn(t, s)
	defer shutdown()

	// The subscribe result seeds the index.
	if idx := conn.LastLedgerSequence(); idx != 100 {
		t.Fatalf("initial ledger index = %d, want 100", idx)
	}

	s.stream(map[string]any{
		"type":         "ledgerClosed",
		"ledger_index": 101,
		"ledger_hash":  "ABCDEF",
		"txn_count":    3,
	})

	deadline := time.Now().Add(5 * time.Second)
	for conn.LastLedgerSequence() != 101 {
		if time.Now().After(deadline) {
			t.Fatalf("ledger index = %d, want 101", conn.LastLedgerSequence())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRequestContextCancel(t *testing.T) {
	s := newTestServer(t)
	defer s.Close()

	block := make(chan struct{})
	s.handle("slow", func(map[string]any) (any, *wire.RPCError) {
		<-block
		return map[string]any{}, nil
	})
	defer close(block)

	conn, shutdown := newTestConn(t, s)
	defer shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := conn.Request(ctx, "slow", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestConcurrentConnect(t *testing.T) {
	// A server whose handshake stalls until released, holding the first
	// Connect's dial in flight while a second Connect arrives. The second
	// call must block until the attempt resolves; a nil return with the
	// connection still down would make callers abort spuriously.
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			msg := make(map[string]any)
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			ws.WriteJSON(map[string]any{
				"id":     msg["id"],
				"type":   "response",
				"status": "success",
				"result": map[string]any{"ledger_index": 100},
			})
		}
	}))
	defer srv.Close()

	conn, err := NewWsConn(&WsCfg{URL: "ws" + strings.TrimPrefix(srv.URL, "http")})
	if err != nil {
		t.Fatalf("NewWsConn: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- conn.Connect(ctx) }()
	time.Sleep(50 * time.Millisecond) // first dial now in flight
	go func() { errs <- conn.Connect(ctx) }()
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("Connect: %v", err)
			}
			if !conn.IsConnected() {
				t.Fatal("Connect returned nil while not connected")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Connect did not return")
		}
	}
	conn.Disconnect()
}

func TestDisconnectedRequest(t *testing.T) {
	s := newTestServer(t)
	conn, shutdown := newTestConn(t, s)

	shutdown()
	s.Close()

	err := conn.Request(context.Background(), "fee", nil, nil)
	if !errors.Is(err, ErrConnectionDown) {
		t.Fatalf("expected connection down, got %v", err)
	}
	if conn.IsConnected() {
		t.Fatal("IsConnected after Disconnect")
	}
}
