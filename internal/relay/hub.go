package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/wa_relay/internal/account"
	"github.com/dgnsrekt/wa_relay/internal/history"
	"github.com/dgnsrekt/wa_relay/internal/metrics"
	"github.com/dgnsrekt/wa_relay/internal/types"
)

const eventQueueSize = 1024

// Options controls relay behaviour.
type Options struct {
	HistorySize  int
	LocalEcho    bool
	RelayMedia   bool
	SelfID       string
	SelfName     string
	SendErrorAck bool
	ViewerQueue  int
}

// DefaultOptions returns the stock relay behaviour.
func DefaultOptions() Options {
	return Options{
		HistorySize:  history.DefaultCapacity,
		LocalEcho:    true,
		RelayMedia:   true,
		SelfID:       "self",
		SelfName:     "Me",
		SendErrorAck: true,
		ViewerQueue:  defaultViewerQueue,
	}
}

// Account is the part of the messaging account the relay consumes.
type Account interface {
	SendText(ctx context.Context, to, text string) error
	Contact(ctx context.Context, id string) (account.Contact, error)
	DownloadMedia(ctx context.Context, messageID string) (*types.Media, error)
}

// Archiver receives every committed record. Write must not block.
type Archiver interface {
	Write(record any) error
}

// Hub owns the history buffer and viewer registry. A single Run loop
// consumes events, which makes append-then-broadcast atomic per record.
type Hub struct {
	opts    Options
	account Account
	archive Archiver

	history *history.Buffer
	viewers *Registry

	events chan Event
	done   chan struct{}

	now   func() time.Time
	lastT int64
}

// NewHub creates a hub. archive may be nil.
func NewHub(opts Options, acct Account, archive Archiver) *Hub {
	if opts.SelfID == "" {
		opts.SelfID = "self"
	}
	if opts.SelfName == "" {
		opts.SelfName = "Me"
	}
	if opts.ViewerQueue < 1 {
		opts.ViewerQueue = defaultViewerQueue
	}
	return &Hub{
		opts:    opts,
		account: acct,
		archive: archive,
		history: history.NewBuffer(opts.HistorySize),
		viewers: NewRegistry(),
		events:  make(chan Event, eventQueueSize),
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

// Run consumes events until ctx is cancelled. All viewers are closed on exit.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.viewers.CloseAll()

	slog.Info("relay hub started",
		"history_size", h.history.Cap(),
		"local_echo", h.opts.LocalEcho,
		"relay_media", h.opts.RelayMedia,
	)
	for {
		select {
		case <-ctx.Done():
			slog.Info("relay hub stopped", "viewers", h.viewers.Len())
			return nil
		case evt := <-h.events:
			h.handle(ctx, evt)
		}
	}
}

func (h *Hub) handle(ctx context.Context, evt Event) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("relay hub event panicked", "event", fmt.Sprintf("%T", evt), "panic", rec)
		}
	}()

	switch e := evt.(type) {
	case InboundChat:
		h.commit(e.Record, "inbound")
	case ViewerConnected:
		h.register(e.Viewer)
	case ViewerDisconnected:
		h.unregister(e.ID, e.Reason)
	case ViewerSendRequest:
		h.startSend(ctx, e)
	case sendCompleted:
		h.finishSend(e)
	default:
		slog.Warn("relay hub: unknown event", "event", fmt.Sprintf("%T", evt))
	}
}

// post hands an event to the loop. It fails once the hub has stopped.
func (h *Hub) post(ctx context.Context, evt Event) error {
	select {
	case h.events <- evt:
		return nil
	case <-h.done:
		return types.NewError(types.CodeRelayStopped, "relay hub is not running", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect registers a viewer. The history snapshot is its first frame.
func (h *Hub) Connect(ctx context.Context, v *Viewer) error {
	return h.post(ctx, ViewerConnected{Viewer: v})
}

// Disconnect removes a viewer. Unknown ids and a stopped hub are ignored.
func (h *Hub) Disconnect(id string) {
	_ = h.post(context.Background(), ViewerDisconnected{ID: id})
}

// RequestSend queues a send on behalf of a viewer. Invalid requests are
// dropped by the loop without a reply.
func (h *Hub) RequestSend(viewerID string, req types.SendPayload) {
	if err := h.post(context.Background(), ViewerSendRequest{ViewerID: viewerID, To: req.To, Text: req.Text}); err != nil {
		slog.Debug("send request dropped", "viewer_id", viewerID, "error", err)
	}
}

// Send forwards text through the account and waits for the outcome.
func (h *Hub) Send(ctx context.Context, to, text string) error {
	if strings.TrimSpace(to) == "" {
		return types.NewError(types.CodeValidation, "to is required", nil)
	}
	if strings.TrimSpace(text) == "" {
		return types.NewError(types.CodeValidation, "text is required", nil)
	}
	result := make(chan error, 1)
	if err := h.post(ctx, ViewerSendRequest{To: to, Text: text, result: result}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// History returns the buffered records in arrival order.
func (h *Hub) History() []types.Record {
	return h.history.Snapshot()
}

// ViewerCount returns the number of registered viewers.
func (h *Hub) ViewerCount() int {
	return h.viewers.Len()
}

// Options returns the effective options.
func (h *Hub) Options() Options {
	return h.opts
}

// commit stamps, appends, archives and broadcasts a record. A record that
// already carries its receipt time keeps it unless that would step back
// behind the last commit.
func (h *Hub) commit(rec types.Record, source string) {
	t := rec.T
	if t == 0 {
		t = h.now().UnixMilli()
	}
	if t < h.lastT {
		t = h.lastT
	}
	h.lastT = t
	rec.T = t

	if evicted := h.history.Append(rec); evicted > 0 {
		metrics.RecordsEvicted.Add(float64(evicted))
	}
	metrics.RecordsCommitted.WithLabelValues(source).Inc()
	metrics.HistorySize.Set(float64(h.history.Len()))

	if h.archive != nil {
		if err := h.archive.Write(rec); err != nil {
			slog.Warn("transcript write failed", "error", err)
		}
	}

	slog.Debug("record committed", "source", source, "from", rec.From, "has_media", rec.Media != nil)
	h.broadcast(types.Envelope{Type: types.EnvelopeMessage, Payload: rec})
}

func (h *Hub) register(v *Viewer) {
	if !v.Open() {
		return
	}
	h.viewers.Add(v)
	metrics.ViewersConnected.Set(float64(h.viewers.Len()))

	go v.writeLoop(func(err error) {
		slog.Debug("viewer write failed", "viewer_id", v.ID, "error", err)
		_ = h.post(context.Background(), ViewerDisconnected{ID: v.ID, Reason: "write_error"})
	})

	h.sendHistory(v)
	slog.Info("viewer registered", "viewer_id", v.ID, "remote", v.Remote, "viewers", h.viewers.Len())
}

func (h *Hub) unregister(id, reason string) {
	v, ok := h.viewers.Remove(id)
	if !ok {
		return
	}
	_ = v.Close()
	metrics.ViewersConnected.Set(float64(h.viewers.Len()))
	if reason != "" {
		metrics.ViewersEvicted.WithLabelValues(reason).Inc()
	}
	slog.Info("viewer removed", "viewer_id", id, "reason", reason, "viewers", h.viewers.Len())
}
