package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dgnsrekt/wa_relay/internal/metrics"
	"github.com/dgnsrekt/wa_relay/internal/types"
)

// Client talks to the messaging-account gateway over a single WebSocket.
// Requests are matched to responses by id; events are delivered in arrival
// order on one dispatch goroutine, so handlers may issue requests themselves.
type Client struct {
	url         string
	callTimeout time.Duration

	mu      sync.Mutex
	conn    net.Conn
	rw      io.ReadWriter
	writeMu sync.Mutex
	seq     atomic.Int64

	pending   map[int64]chan json.RawMessage
	pendingMu sync.Mutex

	handlerMu sync.RWMutex
	handlers  map[string][]eventHandler

	queue *eventQueue

	statusMu sync.RWMutex
	status   Status
}

type eventHandler struct {
	id int64
	fn func(data json.RawMessage)
}

// NewClient creates a gateway client. callTimeout bounds every request; zero
// disables the bound.
func NewClient(url string, callTimeout time.Duration) *Client {
	return &Client{
		url:         url,
		callTimeout: callTimeout,
		pending:     make(map[int64]chan json.RawMessage),
		handlers:    make(map[string][]eventHandler),
		status:      Status{State: StateConnecting, Since: time.Now()},
	}
}

// Connect dials the gateway and starts the read and dispatch loops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	slog.Debug("account gateway connecting", "url", c.url)
	conn, br, _, err := ws.Dial(ctx, c.url)
	if err != nil {
		c.setState(StateDisconnected, err.Error())
		return types.NewError(types.CodeAccountUnavailable, "dial gateway", err)
	}

	// Frames that arrived with the handshake sit in br.
	var r io.Reader = conn
	if br != nil {
		r = br
	}
	c.conn = conn
	c.rw = struct {
		io.Reader
		io.Writer
	}{r, &lockedWriter{mu: &c.writeMu, w: conn}}
	c.pendingMu.Lock()
	c.pending = make(map[int64]chan json.RawMessage)
	c.pendingMu.Unlock()
	c.queue = newEventQueue()
	c.setState(StateConnecting, "")

	go c.readLoop(c.rw, c.queue)
	go c.dispatchLoop(c.queue)
	slog.Info("account gateway connected", "url", c.url)
	return nil
}

// Connected reports whether a gateway connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// KeepConnected dials the gateway and redials every interval while the
// connection is down. It returns when ctx is cancelled.
func (c *Client) KeepConnected(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if !c.Connected() {
			if err := c.Connect(ctx); err != nil {
				slog.Warn("account gateway unavailable, retrying", "url", c.url, "retry_in", interval, "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close tears down the connection. Pending requests fail immediately.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.rw = nil
	c.closeAllPending()
	c.setState(StateDisconnected, "closed")
	return err
}

// Status returns the last known account state.
func (c *Client) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// On registers fn for the named gateway event. Returns an unregister function.
func (c *Client) On(event string, fn func(data json.RawMessage)) func() {
	id := c.seq.Add(1)
	c.handlerMu.Lock()
	c.handlers[event] = append(c.handlers[event], eventHandler{id: id, fn: fn})
	c.handlerMu.Unlock()
	return func() {
		c.handlerMu.Lock()
		defer c.handlerMu.Unlock()
		handlers := c.handlers[event]
		for i, h := range handlers {
			if h.id == id {
				c.handlers[event] = append(handlers[:i], handlers[i+1:]...)
				break
			}
		}
	}
}

// OnMessage registers fn for decoded "message" events.
func (c *Client) OnMessage(fn func(IncomingMessage)) func() {
	return c.On(EventMessage, func(data json.RawMessage) {
		var msg IncomingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("account: malformed message event dropped", "error", err)
			return
		}
		fn(msg)
	})
}

// SendText sends text to the recipient through the account.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	params := struct {
		To   string `json:"to"`
		Text string `json:"text"`
	}{To: to, Text: text}
	_, err := c.call(ctx, "sendMessage", params)
	return err
}

// Contact fetches the contact profile for a sender id.
func (c *Client) Contact(ctx context.Context, id string) (Contact, error) {
	params := struct {
		ID string `json:"id"`
	}{ID: id}
	raw, err := c.call(ctx, "getContact", params)
	if err != nil {
		return Contact{}, err
	}
	var contact Contact
	if len(raw) == 0 || string(raw) == "null" {
		return contact, nil
	}
	if err := json.Unmarshal(raw, &contact); err != nil {
		return Contact{}, fmt.Errorf("account: decode contact: %w", err)
	}
	return contact, nil
}

// DownloadMedia fetches the attachment of a message. A nil result with a nil
// error means the gateway had no data for it.
func (c *Client) DownloadMedia(ctx context.Context, messageID string) (*types.Media, error) {
	params := struct {
		MessageID string `json:"messageId"`
	}{MessageID: messageID}
	raw, err := c.call(ctx, "downloadMedia", params)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var media types.Media
	if err := json.Unmarshal(raw, &media); err != nil {
		return nil, fmt.Errorf("account: decode media: %w", err)
	}
	return &media, nil
}

// call sends a request and waits for the matching response.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		metrics.AccountCallLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, types.NewError(types.CodeAccountUnavailable, "gateway not connected", nil)
	}

	id := c.seq.Add(1)
	req := struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
		Params any    `json:"params,omitempty"`
	}{ID: id, Method: method, Params: params}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("account: marshal %s: %w", method, err)
	}

	ch := make(chan json.RawMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.writeMu.Lock()
	err = wsutil.WriteClientText(conn, data)
	c.writeMu.Unlock()
	if err != nil {
		c.deletePending(id)
		return nil, types.NewError(types.CodeAccountUnavailable, method+": write", err)
	}

	var resp json.RawMessage
	select {
	case r, ok := <-ch:
		if !ok {
			return nil, types.NewError(types.CodeAccountUnavailable, method+": connection closed", nil)
		}
		resp = r
	case <-ctx.Done():
		c.deletePending(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, types.NewError(types.CodeAccountTimeout, method+": no response", ctx.Err())
		}
		return nil, ctx.Err()
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp, &envelope); err != nil {
		return nil, fmt.Errorf("account: decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return nil, types.NewError(types.CodeAccountRejected, method+": "+envelope.Error.Message, nil)
	}
	return envelope.Result, nil
}

func (c *Client) readLoop(rw io.ReadWriter, q *eventQueue) {
	defer q.close()
	for {
		data, err := wsutil.ReadServerText(rw)
		if err != nil {
			// Only the loop of the live connection may tear it down. After a
			// local Close or a redial, rw is stale and pending belongs to
			// someone else.
			c.mu.Lock()
			current := c.rw == rw
			if current {
				_ = c.conn.Close()
				c.conn = nil
				c.rw = nil
				c.closeAllPending()
			}
			c.mu.Unlock()
			if !current {
				return
			}
			slog.Warn("account gateway read loop exit", "error", err)
			c.setState(StateDisconnected, err.Error())
			reason, _ := json.Marshal(map[string]string{"reason": err.Error()})
			q.push(Event{Name: EventDisconnected, Data: reason})
			return
		}

		var msg struct {
			ID    int64           `json:"id"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if json.Unmarshal(data, &msg) != nil {
			slog.Debug("account: unparseable frame", "bytes", len(data))
			continue
		}
		if msg.ID > 0 {
			c.pendingMu.Lock()
			ch, ok := c.pending[msg.ID]
			if ok {
				delete(c.pending, msg.ID)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- json.RawMessage(data)
			}
			continue
		}
		if msg.Event != "" {
			c.trackState(msg.Event, msg.Data)
			q.push(Event{Name: msg.Event, Data: msg.Data})
		}
	}
}

func (c *Client) dispatchLoop(q *eventQueue) {
	for {
		evt, ok := q.pop()
		if !ok {
			return
		}
		c.dispatchEvent(evt)
	}
}

func (c *Client) dispatchEvent(evt Event) {
	c.handlerMu.RLock()
	handlers := make([]eventHandler, len(c.handlers[evt.Name]))
	copy(handlers, c.handlers[evt.Name])
	c.handlerMu.RUnlock()
	for _, h := range handlers {
		h.fn(evt.Data)
	}
}

func (c *Client) trackState(event string, data json.RawMessage) {
	switch event {
	case EventQR:
		c.setState(StateAwaitingLogin, "")
	case EventAuthenticated:
		c.setState(StateAuthenticated, "")
	case EventReady:
		c.setState(StateReady, "")
	case EventDisconnected:
		var d struct {
			Reason string `json:"reason"`
		}
		_ = json.Unmarshal(data, &d)
		c.setState(StateDisconnected, d.Reason)
	}
}

func (c *Client) setState(state State, reason string) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	if c.status.State == state && c.status.Reason == reason {
		return
	}
	c.status = Status{State: state, Since: time.Now(), Reason: reason}
	slog.Info("account state changed", "state", state, "reason", reason)
}

func (c *Client) closeAllPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) deletePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// lockedWriter serialises control replies issued by wsutil while reading with
// request frames written under writeMu. wsutil emits each control reply in a
// single Write.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
