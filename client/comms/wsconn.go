// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package comms

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/wire"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = time.Second * 3

	// defaultPingWait is the read deadline extension granted on each
	// server ping when WsCfg.PingWait is not set.
	defaultPingWait = time.Second * 30

	// reconnectDelay is the pause between reconnection attempts.
	reconnectDelay = time.Second * 5
)

// ErrConnectionDown is returned for requests made while the websocket
// connection is not established.
const ErrConnectionDown = xrp.ErrorKind("connection down")

// ErrInvalidResponse indicates a response that could not be decoded.
const ErrInvalidResponse = xrp.ErrorKind("invalid response")

// WsCfg is the configuration struct for initializing a WsConn.
type WsCfg struct {
	// URL is the full websocket endpoint, e.g.
	// wss://s.altnet.rippletest.net:51233.
	URL string
	// PingWait is the maximum time to wait between pings from the server
	// before the connection is considered dead.
	PingWait time.Duration
	// Cert is an optional TLS root certificate file for servers with
	// self-signed certificates.
	Cert string
	// ReconnectSync is run after each successful (re)connection, once the
	// ledger stream subscription is re-established.
	ReconnectSync func()
}

// response is the rippled message envelope. Command responses carry an id
// and a status, stream messages carry a type.
type response struct {
	ID          uint64          `json:"id"`
	Status      string          `json:"status"`
	Type        string          `json:"type"`
	Result      json.RawMessage `json:"result"`
	ErrName     string          `json:"error"`
	ErrCode     int             `json:"error_code"`
	ErrMsg      string          `json:"error_message"`
	LedgerIndex uint32          `json:"ledger_index"`
}

// WsConn maintains a websocket connection to a rippled server, matching
// command responses to requests by id and tracking the validated ledger
// stream.
type WsConn struct {
	reconnects uint64
	rID        uint64
	lastLedger uint32
	cfg        *WsCfg
	tlsCfg     *tls.Config
	ctx        context.Context
	cancel     context.CancelFunc

	// connectMtx serializes Connect calls, so a call made while another's
	// dial is in flight blocks until that attempt resolves.
	connectMtx sync.Mutex

	wsMtx sync.Mutex
	ws    *websocket.Conn

	connectedMtx sync.RWMutex
	connected    bool

	respMtx     sync.Mutex
	respChans   map[uint64]chan *response
	reconnectCh chan struct{}
	wg          sync.WaitGroup
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return !os.IsNotExist(err)
}

// NewWsConn creates a client websocket connection. The connection is not
// established until Connect is called.
func NewWsConn(cfg *WsCfg) (*WsConn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("no server URL configured")
	}
	if cfg.PingWait < 0 {
		return nil, fmt.Errorf("ping wait cannot be negative")
	}
	if cfg.PingWait == 0 {
		cfg.PingWait = defaultPingWait
	}

	var tlsConfig *tls.Config
	if cfg.Cert != "" {
		if !fileExists(cfg.Cert) {
			return nil, fmt.Errorf("the TLS cert provided (%v) does not exist", cfg.Cert)
		}

		rootCAs, _ := x509.SystemCertPool()
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}

		certs, err := os.ReadFile(cfg.Cert)
		if err != nil {
			return nil, fmt.Errorf("file reading error: %w", err)
		}
		if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
			return nil, fmt.Errorf("unable to append cert")
		}

		tlsConfig = &tls.Config{
			RootCAs:    rootCAs,
			MinVersion: tls.VersionTLS12,
		}
	}

	return &WsConn{
		cfg:         cfg,
		tlsCfg:      tlsConfig,
		respChans:   make(map[uint64]chan *response),
		reconnectCh: make(chan struct{}, 1),
	}, nil
}

// Connect establishes the websocket connection and starts the keep-alive
// loop. Concurrent calls are serialized: a Connect made while another's
// handshake is in flight blocks until that attempt resolves, so a nil
// return always means the connection was up when Connect returned. On a
// running WsConn whose connection has dropped, reconnection belongs to the
// keep-alive loop and Connect reports the connection down.
func (conn *WsConn) Connect(ctx context.Context) error {
	conn.connectMtx.Lock()
	defer conn.connectMtx.Unlock()

	conn.connectedMtx.Lock()
	if conn.ctx != nil && conn.ctx.Err() == nil {
		connected := conn.connected
		conn.connectedMtx.Unlock()
		if connected {
			return nil
		}
		return xrp.NewError(ErrConnectionDown, "reconnect pending")
	}
	conn.ctx, conn.cancel = context.WithCancel(ctx)
	conn.connectedMtx.Unlock()

	if err := conn.connect(); err != nil {
		conn.cancel()
		return err
	}

	conn.wg.Add(1)
	go conn.keepAlive()

	conn.setConnected(true)
	if err := conn.subscribeLedger(); err != nil {
		log.Errorf("ledger stream subscription error: %v", err)
	}
	if conn.cfg.ReconnectSync != nil {
		conn.cfg.ReconnectSync()
	}
	return nil
}

// Disconnect closes the connection and stops the keep-alive loop.
func (conn *WsConn) Disconnect() {
	conn.connectedMtx.Lock()
	cancel := conn.cancel
	conn.connectedMtx.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	conn.wg.Wait()
}

// IsConnected reports whether the connection is currently established.
func (conn *WsConn) IsConnected() bool {
	conn.connectedMtx.RLock()
	defer conn.connectedMtx.RUnlock()
	return conn.connected
}

func (conn *WsConn) setConnected(connected bool) {
	conn.connectedMtx.Lock()
	conn.connected = connected
	conn.connectedMtx.Unlock()
}

// LastLedgerSequence is the index of the most recently closed ledger seen
// on the ledger stream, zero before the first ledgerClosed message.
func (conn *WsConn) LastLedgerSequence() uint32 {
	return atomic.LoadUint32(&conn.lastLedger)
}

// connect attempts to establish the websocket connection.
func (conn *WsConn) connect() error {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
		TLSClientConfig:  conn.tlsCfg,
	}

	ws, _, err := dialer.DialContext(conn.ctx, conn.cfg.URL, nil)
	if err != nil {
		return err
	}

	ws.SetPingHandler(func(string) error {
		conn.wsMtx.Lock()
		defer conn.wsMtx.Unlock()

		now := time.Now()
		err := ws.SetReadDeadline(now.Add(conn.cfg.PingWait))
		if err != nil {
			log.Errorf("read deadline error: %v", err)
			return err
		}

		return ws.WriteControl(websocket.PongMessage, []byte{}, now.Add(writeWait))
	})

	conn.wsMtx.Lock()
	conn.ws = ws
	conn.wsMtx.Unlock()

	conn.wg.Add(1)
	go conn.read(ws)

	return nil
}

// close terminates the underlying websocket connection.
func (conn *WsConn) close() {
	conn.wsMtx.Lock()
	defer conn.wsMtx.Unlock()

	if conn.ws == nil {
		return
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.ws.Close()
	conn.ws = nil
}

// read decodes incoming messages, routing command responses to their
// waiting requesters and tracking the ledger stream. Runs as a goroutine
// per connection.
func (conn *WsConn) read(ws *websocket.Conn) {
	defer conn.wg.Done()

	for {
		resp := new(response)
		err := ws.ReadJSON(resp)
		if err != nil {
			if _, ok := err.(*json.UnmarshalTypeError); ok {
				// Decode errors are not fatal, log and proceed.
				log.Errorf("json decode error: %v", err)
				continue
			}

			if websocket.IsCloseError(err, websocket.CloseGoingAway,
				websocket.CloseNormalClosure) ||
				strings.Contains(err.Error(), "websocket: close sent") {
				return
			}

			if opErr, ok := err.(*net.OpError); ok && opErr.Op == "read" &&
				strings.Contains(opErr.Err.Error(), "use of closed network connection") {
				return
			}

			if conn.ctx.Err() != nil {
				return
			}

			// All other errors trigger a reconnection.
			log.Errorf("read error: %v", err)
			conn.signalReconnect()
			return
		}

		if resp.Type == "ledgerClosed" {
			atomic.StoreUint32(&conn.lastLedger, resp.LedgerIndex)
			continue
		}

		conn.respMtx.Lock()
		ch, found := conn.respChans[resp.ID]
		if found {
			delete(conn.respChans, resp.ID)
		}
		conn.respMtx.Unlock()
		if !found {
			log.Warnf("no request found for response id %d", resp.ID)
			continue
		}
		ch <- resp
	}
}

func (conn *WsConn) signalReconnect() {
	select {
	case conn.reconnectCh <- struct{}{}:
	default:
	}
}

// keepAlive re-establishes the connection when the read loop reports a
// broken one. Runs as a goroutine for the lifetime of the WsConn.
func (conn *WsConn) keepAlive() {
	defer conn.wg.Done()
	for {
		select {
		case <-conn.reconnectCh:
			conn.setConnected(false)
			conn.failPending(ErrConnectionDown)
			conn.close()

			atomic.AddUint64(&conn.reconnects, 1)
			err := conn.connect()
			if err != nil {
				log.Errorf("reconnection error: %v", err)
				go func() {
					select {
					case <-time.After(reconnectDelay):
						conn.signalReconnect()
					case <-conn.ctx.Done():
					}
				}()
				continue
			}

			conn.setConnected(true)
			if err := conn.subscribeLedger(); err != nil {
				log.Errorf("ledger stream resubscription error: %v", err)
			}
			if conn.cfg.ReconnectSync != nil {
				conn.cfg.ReconnectSync()
			}

		case <-conn.ctx.Done():
			conn.setConnected(false)
			conn.failPending(ErrConnectionDown)
			conn.close()
			return
		}
	}
}

// failPending sends an error response to all waiting requesters.
func (conn *WsConn) failPending(kind xrp.ErrorKind) {
	conn.respMtx.Lock()
	defer conn.respMtx.Unlock()
	for id, ch := range conn.respChans {
		ch <- &response{
			ID:      id,
			Status:  "error",
			ErrName: string(kind),
			ErrMsg:  string(kind),
		}
		delete(conn.respChans, id)
	}
}

// subscribeLedger subscribes to the validated ledger stream. The subscribe
// result seeds LastLedgerSequence so callers have a current index before
// the first ledgerClosed message arrives.
func (conn *WsConn) subscribeLedger() error {
	ctx, cancel := context.WithTimeout(conn.ctx, 10*time.Second)
	defer cancel()
	var res struct {
		LedgerIndex uint32 `json:"ledger_index"`
	}
	err := conn.Request(ctx, "subscribe", map[string]any{
		"streams": []string{"ledger"},
	}, &res)
	if err != nil {
		return err
	}
	if res.LedgerIndex > 0 {
		atomic.StoreUint32(&conn.lastLedger, res.LedgerIndex)
	}
	return nil
}

// Request sends a command with the given parameters and decodes the result
// into result, which may be nil to discard it. An error status response is
// returned as a *wire.RPCError.
func (conn *WsConn) Request(ctx context.Context, cmd string, params map[string]any, result any) error {
	if !conn.IsConnected() {
		return xrp.NewError(ErrConnectionDown, cmd)
	}

	id := atomic.AddUint64(&conn.rID, 1)
	msg := make(map[string]any, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["id"] = id
	msg["command"] = cmd

	respCh := make(chan *response, 1)
	conn.respMtx.Lock()
	conn.respChans[id] = respCh
	conn.respMtx.Unlock()

	removeChan := func() {
		conn.respMtx.Lock()
		delete(conn.respChans, id)
		conn.respMtx.Unlock()
	}

	conn.wsMtx.Lock()
	ws := conn.ws
	if ws == nil {
		conn.wsMtx.Unlock()
		removeChan()
		return xrp.NewError(ErrConnectionDown, cmd)
	}
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	err := ws.WriteJSON(msg)
	conn.wsMtx.Unlock()
	if err != nil {
		removeChan()
		log.Errorf("write error (%s): %v", cmd, err)
		return err
	}

	select {
	case resp := <-respCh:
		if resp.Status != "success" {
			return &wire.RPCError{
				Name:    resp.ErrName,
				Code:    resp.ErrCode,
				Message: resp.ErrMsg,
			}
		}
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return xrp.NewError(ErrInvalidResponse, fmt.Sprintf("%s: %v", cmd, err))
		}
		return nil
	case <-ctx.Done():
		removeChan()
		return ctx.Err()
	case <-conn.ctx.Done():
		removeChan()
		return xrp.NewError(ErrConnectionDown, cmd)
	}
}
