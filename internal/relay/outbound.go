package relay

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dgnsrekt/wa_relay/internal/metrics"
	"github.com/dgnsrekt/wa_relay/internal/types"
)

// startSend validates a request and runs the account call off the loop.
func (h *Hub) startSend(ctx context.Context, req ViewerSendRequest) {
	to := strings.TrimSpace(req.To)
	if to == "" || strings.TrimSpace(req.Text) == "" {
		metrics.OutboundSends.WithLabelValues("invalid").Inc()
		slog.Debug("send request ignored", "viewer_id", req.ViewerID)
		if req.result != nil {
			req.result <- types.NewError(types.CodeValidation, "to and text are required", nil)
		}
		return
	}

	go func() {
		err := h.account.SendText(ctx, to, req.Text)
		done := sendCompleted{req: req, to: to, text: req.Text, err: err}
		if postErr := h.post(context.Background(), done); postErr != nil && req.result != nil {
			if err == nil {
				err = postErr
			}
			req.result <- err
		}
	}()
}

func (h *Hub) finishSend(done sendCompleted) {
	if done.err != nil {
		metrics.OutboundSends.WithLabelValues("error").Inc()
		slog.Error("outbound send failed", "to", done.to, "viewer_id", done.req.ViewerID, "error", done.err)
		if done.req.result != nil {
			done.req.result <- done.err
			return
		}
		if h.opts.SendErrorAck && done.req.ViewerID != "" {
			h.sendTo(done.req.ViewerID, types.Envelope{
				Type:    types.EnvelopeError,
				Payload: types.ErrorPayload{Op: "send", To: done.to, Error: done.err.Error()},
			})
		}
		return
	}

	metrics.OutboundSends.WithLabelValues("ok").Inc()
	slog.Info("outbound message sent", "to", done.to, "viewer_id", done.req.ViewerID)
	if h.opts.LocalEcho {
		h.commit(types.Record{From: h.opts.SelfID, Name: h.opts.SelfName, Text: done.text}, "echo")
	}
	if done.req.result != nil {
		done.req.result <- nil
	}
}
