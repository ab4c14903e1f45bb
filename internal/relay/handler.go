package relay

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
)

// WebSocketHandler returns an http.HandlerFunc that upgrades the request and
// attaches the connection to the hub as a viewer. Frames from the viewer are
// parsed as send requests; anything else is ignored.
func WebSocketHandler(hub *Hub, writeTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, brw, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Warn("viewer upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		t := newWSTransport(conn, brw, writeTimeout)
		v := NewViewer(uuid.NewString(), t, hub.Options().ViewerQueue)
		v.Remote = r.RemoteAddr
		if err := hub.Connect(r.Context(), v); err != nil {
			slog.Warn("viewer rejected", "remote", r.RemoteAddr, "error", err)
			_ = t.Close()
			return
		}
		defer hub.Disconnect(v.ID)

		for {
			data, op, err := wsutil.ReadClientData(t.rw)
			if err != nil {
				slog.Debug("viewer read loop exit", "viewer_id", v.ID, "error", err)
				return
			}
			if op != ws.OpText {
				continue
			}
			req, ok := ParseViewerFrame(data)
			if !ok {
				slog.Debug("viewer frame ignored", "viewer_id", v.ID, "bytes", len(data))
				continue
			}
			hub.RequestSend(v.ID, req)
		}
	}
}

// wsTransport writes server text frames to a hijacked connection.
type wsTransport struct {
	conn         net.Conn
	rw           io.ReadWriter
	mu           sync.Mutex
	writeTimeout time.Duration
}

func newWSTransport(conn net.Conn, brw *bufio.ReadWriter, writeTimeout time.Duration) *wsTransport {
	t := &wsTransport{conn: conn, writeTimeout: writeTimeout}
	var r io.Reader = conn
	if brw != nil {
		r = brw.Reader
	}
	// Control replies written by wsutil while reading share the write lock.
	t.rw = struct {
		io.Reader
		io.Writer
	}{r, writerFunc(func(p []byte) (int, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		return conn.Write(p)
	})}
	return t
}

func (t *wsTransport) WriteText(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}
	return wsutil.WriteServerText(t.conn, p)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
