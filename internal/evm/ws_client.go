package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
)

// ErrClientClosed is returned by operations on a closed WebSocket client.
var ErrClientClosed = errors.New("client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      90 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket.
// When the connection drops every subscription channel is closed; callers
// fall back to interval polling.
type WSClientImpl struct {
	config WSClientConfig

	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to channel
	subs   map[string]chan Head
	subsMu sync.Mutex

	// pending maps request ID to channel waiting for subscription ID
	pending   map[uint64]chan subscribeReply
	pendingMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type subscribeReply struct {
	id  string
	err error
}

// NewWSClient connects to endpoint and starts the read and ping loops.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSClientImpl{
		config:  cfg,
		conn:    conn,
		subs:    make(map[string]chan Head),
		pending: make(map[uint64]chan subscribeReply),
		done:    make(chan struct{}),
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// SubscribeNewHeads subscribes to new block headers. Cancelling ctx ends the
// subscription and closes the returned channel.
func (c *WSClientImpl) SubscribeNewHeads(ctx context.Context) (<-chan Head, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	reqID := c.requestID.Add(1)
	replyCh := make(chan subscribeReply, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = replyCh
	c.pendingMu.Unlock()

	forget := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "eth_subscribe",
		Params:  []interface{}{"newHeads"},
	}
	if err := c.writeJSON(req); err != nil {
		forget()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	var reply subscribeReply
	select {
	case r, ok := <-replyCh:
		if !ok {
			return nil, ErrClientClosed
		}
		reply = r
	case <-timer.C:
		forget()
		return nil, fmt.Errorf("subscription timeout after %v", c.config.SubscribeTimeout)
	case <-c.done:
		return nil, ErrClientClosed
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}
	if reply.err != nil {
		return nil, reply.err
	}

	ch := make(chan Head, 64)
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	select {
	case <-c.done:
		return nil, ErrClientClosed
	default:
	}
	c.subs[reply.id] = ch

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-ctx.Done():
			c.unsubscribe(reply.id)
		case <-c.done:
		}
	}()

	return ch, nil
}

// unsubscribe closes the subscriber channel for id and tells the node to
// stop sending heads. The reply is not awaited.
func (c *WSClientImpl) unsubscribe(id string) {
	c.subsMu.Lock()
	ch, ok := c.subs[id]
	if ok {
		delete(c.subs, id)
		close(ch)
	}
	c.subsMu.Unlock()
	if !ok || c.closed.Load() {
		return
	}

	c.writeJSON(wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "eth_unsubscribe",
		Params:  []interface{}{id},
	})
}

// Close closes the WebSocket connection and every subscription channel.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.shutdown()

	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()

	c.wg.Wait()
	return err
}

// shutdown signals the loops and closes subscriber channels exactly once.
func (c *WSClientImpl) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.subsMu.Lock()
		for id, ch := range c.subs {
			close(ch)
			delete(c.subs, id)
		}
		c.subsMu.Unlock()

		c.pendingMu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()
	})
}

func (c *WSClientImpl) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// readLoop reads messages and dispatches them until the connection fails.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()
	defer c.shutdown()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(message)
	}
}

// handleMessage routes a frame to a pending subscribe call or a subscriber.
func (c *WSClientImpl) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	if msg.ID != nil {
		c.pendingMu.Lock()
		ch, ok := c.pending[*msg.ID]
		delete(c.pending, *msg.ID)
		c.pendingMu.Unlock()
		if !ok {
			return
		}

		var reply subscribeReply
		if msg.Error != nil {
			reply.err = msg.Error
		} else if err := json.Unmarshal(msg.Result, &reply.id); err != nil {
			reply.err = fmt.Errorf("decode subscription id: %w", err)
		}
		ch <- reply
		return
	}

	if msg.Method != "eth_subscription" || msg.Params == nil {
		return
	}

	var raw wsHead
	if err := json.Unmarshal(msg.Params.Result, &raw); err != nil {
		return
	}
	head := Head{
		Number:    uint64(raw.Number),
		Hash:      raw.Hash,
		Timestamp: uint64(raw.Timestamp),
	}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	ch, ok := c.subs[msg.Params.Subscription]
	if !ok {
		return
	}

	// Drop the head if the consumer is behind.
	select {
	case ch <- head:
	default:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id"`
	Method  string          `json:"method"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	Params  *wsParams       `json:"params"`
}

type wsParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type wsHead struct {
	Number    hexutil.Uint64 `json:"number"`
	Hash      common.Hash    `json:"hash"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}
