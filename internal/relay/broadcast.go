package relay

import (
	"encoding/json"
	"log/slog"

	"github.com/dgnsrekt/wa_relay/internal/types"
)

// broadcast queues env to every open viewer. A viewer whose queue is full is
// evicted rather than left with a gap in its stream.
func (h *Hub) broadcast(env types.Envelope) {
	frame, err := json.Marshal(env)
	if err != nil {
		slog.Error("broadcast marshal failed", "type", env.Type, "error", err)
		return
	}

	var overflow []string
	h.viewers.Each(func(v *Viewer) {
		if !v.Open() {
			return
		}
		if !v.enqueue(frame) {
			overflow = append(overflow, v.ID)
		}
	})
	for _, id := range overflow {
		slog.Warn("viewer queue full, evicting", "viewer_id", id)
		h.unregister(id, "queue_full")
	}
}

func (h *Hub) sendHistory(v *Viewer) {
	env := types.Envelope{Type: types.EnvelopeHistory, Payload: h.history.Snapshot()}
	frame, err := json.Marshal(env)
	if err != nil {
		slog.Error("history marshal failed", "viewer_id", v.ID, "error", err)
		return
	}
	if !v.enqueue(frame) {
		h.unregister(v.ID, "queue_full")
	}
}

// sendTo queues env for one viewer only.
func (h *Hub) sendTo(id string, env types.Envelope) {
	v, ok := h.viewers.Get(id)
	if !ok || !v.Open() {
		return
	}
	frame, err := json.Marshal(env)
	if err != nil {
		slog.Error("viewer frame marshal failed", "viewer_id", id, "error", err)
		return
	}
	if !v.enqueue(frame) {
		h.unregister(id, "queue_full")
	}
}
