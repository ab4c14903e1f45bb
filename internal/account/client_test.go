package account

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dgnsrekt/wa_relay/internal/types"
)

type gatewayRequest struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// startGateway runs a fake gateway. onConnect may push events; reply answers
// each request and returns the raw result or error frame body (without id).
func startGateway(t *testing.T, onConnect func(conn net.Conn), reply func(req gatewayRequest) string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			t.Errorf("UpgradeHTTP() error = %v", err)
			return
		}
		defer func() { _ = conn.Close() }()
		if onConnect != nil {
			onConnect(conn)
		}
		for {
			data, err := wsutil.ReadClientText(conn)
			if err != nil {
				return
			}
			var req gatewayRequest
			if err := json.Unmarshal(data, &req); err != nil {
				t.Errorf("unmarshal request: %v", err)
				return
			}
			if reply == nil {
				continue
			}
			body := reply(req)
			if body == "" {
				continue
			}
			frame := `{"id":` + jsonInt(req.ID) + `,` + body + `}`
			if err := wsutil.WriteServerText(conn, []byte(frame)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/gateway"
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func connectClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	c := NewClient(url, timeout)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSendTextForwardsRecipientAndText(t *testing.T) {
	var (
		mu  sync.Mutex
		got gatewayRequest
	)
	url := startGateway(t, nil, func(req gatewayRequest) string {
		mu.Lock()
		got = req
		mu.Unlock()
		return `"result":{}`
	})
	c := connectClient(t, url, time.Second)

	if err := c.SendText(context.Background(), "B", "yo"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got.Method != "sendMessage" {
		t.Fatalf("method = %q; want %q", got.Method, "sendMessage")
	}
	var params struct {
		To   string `json:"to"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(got.Params, &params); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if params.To != "B" || params.Text != "yo" {
		t.Fatalf("params = %+v; want to=B text=yo", params)
	}
}

func TestSendTextRejectedByGateway(t *testing.T) {
	url := startGateway(t, nil, func(gatewayRequest) string {
		return `"error":{"message":"recipient not found"}`
	})
	c := connectClient(t, url, time.Second)

	err := c.SendText(context.Background(), "B", "yo")
	if err == nil {
		t.Fatal("SendText() = nil; want error")
	}
	var coded *types.CodedError
	if !errors.As(err, &coded) {
		t.Fatalf("SendText() error type = %T; want *types.CodedError", err)
	}
	if coded.Code != types.CodeAccountRejected {
		t.Fatalf("code = %q; want %q", coded.Code, types.CodeAccountRejected)
	}
	if !strings.Contains(coded.Message, "recipient not found") {
		t.Fatalf("message = %q; want gateway reason", coded.Message)
	}
}

func TestCallTimesOutWhenGatewaySilent(t *testing.T) {
	url := startGateway(t, nil, nil)
	c := connectClient(t, url, 50*time.Millisecond)

	err := c.SendText(context.Background(), "B", "yo")
	if !types.HasCode(err, types.CodeAccountTimeout) {
		t.Fatalf("SendText() error = %v; want %s", err, types.CodeAccountTimeout)
	}
}

func TestCallWithoutConnection(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/gateway", time.Second)
	_, err := c.Contact(context.Background(), "A")
	if !types.HasCode(err, types.CodeAccountUnavailable) {
		t.Fatalf("Contact() error = %v; want %s", err, types.CodeAccountUnavailable)
	}
}

func TestContactAndMediaDecoding(t *testing.T) {
	url := startGateway(t, nil, func(req gatewayRequest) string {
		switch req.Method {
		case "getContact":
			return `"result":{"pushname":"Anna","number":"36301234567"}`
		case "downloadMedia":
			var p struct {
				MessageID string `json:"messageId"`
			}
			_ = json.Unmarshal(req.Params, &p)
			if p.MessageID == "empty" {
				return `"result":null`
			}
			return `"result":{"mimetype":"image/png","data":"iVBORw0KGgo="}`
		}
		return `"error":{"message":"unknown method"}`
	})
	c := connectClient(t, url, time.Second)
	ctx := context.Background()

	contact, err := c.Contact(ctx, "A")
	if err != nil {
		t.Fatalf("Contact() error = %v", err)
	}
	if contact.PushName != "Anna" || contact.Number != "36301234567" {
		t.Fatalf("Contact() = %+v; want Anna/36301234567", contact)
	}

	media, err := c.DownloadMedia(ctx, "m1")
	if err != nil {
		t.Fatalf("DownloadMedia() error = %v", err)
	}
	if media == nil || media.MimeType != "image/png" || media.Data != "iVBORw0KGgo=" {
		t.Fatalf("DownloadMedia() = %+v; want png payload", media)
	}

	media, err = c.DownloadMedia(ctx, "empty")
	if err != nil {
		t.Fatalf("DownloadMedia(empty) error = %v", err)
	}
	if media != nil {
		t.Fatalf("DownloadMedia(empty) = %+v; want nil", media)
	}
}

func TestEventsDispatchInOrderAndTrackState(t *testing.T) {
	url := startGateway(t, func(conn net.Conn) {
		frames := []string{
			`{"event":"qr","data":{"code":"2@abc"}}`,
			`{"event":"authenticated"}`,
			`{"event":"ready"}`,
			`{"event":"message","data":{"id":"m1","from":"A","body":"first"}}`,
			`{"event":"message","data":{"id":"m2","from":"A","body":"second","hasMedia":true}}`,
		}
		for _, f := range frames {
			if err := wsutil.WriteServerText(conn, []byte(f)); err != nil {
				return
			}
		}
	}, nil)

	c := NewClient(url, time.Second)
	got := make(chan IncomingMessage, 2)
	c.OnMessage(func(m IncomingMessage) { got <- m })
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	for _, want := range []string{"first", "second"} {
		select {
		case m := <-got:
			if m.Body != want {
				t.Fatalf("message body = %q; want %q", m.Body, want)
			}
			if want == "second" && !m.HasMedia {
				t.Fatalf("second message HasMedia = false; want true")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	if st := c.Status(); st.State != StateReady {
		t.Fatalf("Status().State = %q; want %q", st.State, StateReady)
	}
}

func TestHandlerMayCallGateway(t *testing.T) {
	url := startGateway(t, func(conn net.Conn) {
		_ = wsutil.WriteServerText(conn, []byte(`{"event":"message","data":{"id":"m1","from":"A","body":"hi"}}`))
	}, func(req gatewayRequest) string {
		return `"result":{"pushname":"Anna"}`
	})

	c := NewClient(url, time.Second)
	names := make(chan string, 1)
	c.OnMessage(func(m IncomingMessage) {
		contact, err := c.Contact(context.Background(), m.From)
		if err != nil {
			names <- "error: " + err.Error()
			return
		}
		names <- contact.PushName
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	select {
	case name := <-names:
		if name != "Anna" {
			t.Fatalf("name = %q; want %q", name, "Anna")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	c := NewClient("ws://unused", 0)
	calls := 0
	unregister := c.On(EventReady, func(json.RawMessage) { calls++ })
	c.dispatchEvent(Event{Name: EventReady})
	unregister()
	c.dispatchEvent(Event{Name: EventReady})
	if calls != 1 {
		t.Fatalf("calls = %d; want 1", calls)
	}
}

func TestKeepConnectedRedialsAfterDrop(t *testing.T) {
	var (
		mu    sync.Mutex
		dials int
	)
	url := startGateway(t, func(conn net.Conn) {
		mu.Lock()
		dials++
		first := dials == 1
		mu.Unlock()
		if first {
			_ = conn.Close()
		}
	}, func(gatewayRequest) string { return `"result":{}` })

	c := NewClient(url, time.Second)
	disconnected := make(chan struct{}, 1)
	c.On(EventDisconnected, func(json.RawMessage) {
		select {
		case disconnected <- struct{}{}:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = c.Close()
	})
	go c.KeepConnected(ctx, 20*time.Millisecond)

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect event")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := c.SendText(context.Background(), "B", "yo"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client did not reconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if dials < 2 {
		t.Fatalf("dials = %d; want at least 2", dials)
	}
	if st := c.Status(); st.State != StateConnecting || st.Reason != "" {
		t.Fatalf("Status() after redial = %+v; want %q with no reason", st, StateConnecting)
	}
}

func TestReconnectAfterCloseKeepsNewConnection(t *testing.T) {
	url := startGateway(t, nil, func(gatewayRequest) string { return `"result":{}` })
	c := NewClient(url, time.Second)
	disconnects := make(chan struct{}, 1)
	c.On(EventDisconnected, func(json.RawMessage) {
		select {
		case disconnects <- struct{}{}:
		default:
		}
	})

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if st := c.Status(); st.State != StateDisconnected {
		t.Fatalf("Status() after Close = %q; want %q", st.State, StateDisconnected)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	// The first read loop exits while the second connection is live; it must
	// not close the new waiters or report a disconnect.
	for range 10 {
		if err := c.SendText(context.Background(), "B", "yo"); err != nil {
			t.Fatalf("SendText() on new connection error = %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-disconnects:
		t.Fatal("stale read loop reported a disconnect")
	default:
	}
	if st := c.Status(); st.State != StateConnecting {
		t.Fatalf("Status() = %q; want %q", st.State, StateConnecting)
	}
	if !c.Connected() {
		t.Fatal("Connected() = false; want true")
	}
}
