package relay

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dgnsrekt/wa_relay/internal/account"
	"github.com/dgnsrekt/wa_relay/internal/metrics"
	"github.com/dgnsrekt/wa_relay/internal/types"
)

// HandleIncoming turns a gateway message event into a record and commits it.
// The receipt instant is taken here; contact and media lookups then run on
// their own goroutine so a hung lookup delays only this message. Failures
// degrade the record and are never returned to the gateway.
func (h *Hub) HandleIncoming(ctx context.Context, msg account.IncomingMessage) {
	if strings.TrimSpace(msg.From) == "" {
		slog.Warn("inbound message without sender dropped", "message_id", msg.ID)
		return
	}
	receivedAt := h.now().UnixMilli()

	go func() {
		rec := types.Record{
			From: msg.From,
			Name: h.resolveName(ctx, msg.From),
			Text: msg.Body,
			T:    receivedAt,
		}
		if msg.HasMedia && h.opts.RelayMedia {
			rec.Media = h.fetchMedia(ctx, msg)
		}

		if err := h.post(ctx, InboundChat{Record: rec}); err != nil {
			slog.Warn("inbound message not committed", "message_id", msg.ID, "error", err)
		}
	}()
}

func (h *Hub) resolveName(ctx context.Context, from string) string {
	contact, err := h.account.Contact(ctx, from)
	if err != nil {
		slog.Debug("contact lookup failed", "from", from, "error", err)
		return from
	}
	switch {
	case contact.PushName != "":
		return contact.PushName
	case contact.Number != "":
		return contact.Number
	default:
		return from
	}
}

func (h *Hub) fetchMedia(ctx context.Context, msg account.IncomingMessage) *types.Media {
	media, err := h.account.DownloadMedia(ctx, msg.ID)
	if err != nil {
		metrics.MediaFetchFailures.Inc()
		slog.Warn("media download failed, relaying text only", "message_id", msg.ID, "error", err)
		return nil
	}
	if media == nil || media.Data == "" {
		return nil
	}
	return &types.Media{MimeType: media.MimeType, Data: media.Data}
}
