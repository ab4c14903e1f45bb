package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dgnsrekt/wa_relay/internal/types"
)

func dialViewer(t *testing.T, h *Hub) io.ReadWriter {
	t.Helper()
	srv := httptest.NewServer(WebSocketHandler(h, time.Second))
	t.Cleanup(srv.Close)

	conn, br, _, err := ws.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	var r io.Reader = conn
	if br != nil {
		r = br
	}
	return struct {
		io.Reader
		io.Writer
	}{r, conn}
}

func readFrame(t *testing.T, rw io.ReadWriter) frame {
	t.Helper()
	data, err := wsutil.ReadServerText(rw)
	if err != nil {
		t.Fatalf("ReadServerText() error = %v", err)
	}
	var fr frame
	if err := json.Unmarshal(data, &fr); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return fr
}

func TestWebSocketViewerEndToEnd(t *testing.T) {
	acct := &fakeAccount{}
	h := startHub(t, DefaultOptions(), acct)
	h.HandleIncoming(context.Background(), inbound("A", "hi"))
	waitFor(t, "record", func() bool { return len(h.History()) == 1 })

	rw := dialViewer(t, h)

	hist := readFrame(t, rw)
	if hist.Type != types.EnvelopeHistory {
		t.Fatalf("first frame type = %q; want %q", hist.Type, types.EnvelopeHistory)
	}
	if recs := hist.records(t); len(recs) != 1 || recs[0].Text != "hi" {
		t.Fatalf("history = %+v; want [hi]", recs)
	}

	if err := wsutil.WriteClientText(rw, []byte(`not json`)); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := wsutil.WriteClientText(rw, []byte(`{"type":"send","payload":{"to":"B","text":"yo"}}`)); err != nil {
		t.Fatalf("write send: %v", err)
	}

	echo := readFrame(t, rw)
	if echo.Type != types.EnvelopeMessage {
		t.Fatalf("echo type = %q; want %q", echo.Type, types.EnvelopeMessage)
	}
	if rec := echo.record(t); rec.From != "self" || rec.Text != "yo" {
		t.Fatalf("echo = %+v; want self/yo", rec)
	}
	if sent := acct.sends(); len(sent) != 1 || sent[0].To != "B" {
		t.Fatalf("account sends = %+v; want one to B", sent)
	}
	if n := h.ViewerCount(); n != 1 {
		t.Fatalf("ViewerCount() = %d; want 1", n)
	}
}

func TestWebSocketViewerRemovedOnClose(t *testing.T) {
	h := startHub(t, DefaultOptions(), &fakeAccount{})
	srv := httptest.NewServer(WebSocketHandler(h, time.Second))
	t.Cleanup(srv.Close)

	conn, _, _, err := ws.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitFor(t, "viewer registered", func() bool { return h.ViewerCount() == 1 })

	_ = conn.Close()
	waitFor(t, "viewer removed", func() bool { return h.ViewerCount() == 0 })
}
