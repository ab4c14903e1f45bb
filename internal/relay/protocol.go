package relay

import (
	"encoding/json"
	"strings"

	"github.com/dgnsrekt/wa_relay/internal/types"
)

// ParseViewerFrame decodes a viewer "send" envelope. Anything else, including
// a send with an empty recipient or text, reports false.
func ParseViewerFrame(data []byte) (types.SendPayload, bool) {
	var env types.InboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return types.SendPayload{}, false
	}
	if env.Type != types.EnvelopeSend || len(env.Payload) == 0 {
		return types.SendPayload{}, false
	}
	var p types.SendPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return types.SendPayload{}, false
	}
	if strings.TrimSpace(p.To) == "" || strings.TrimSpace(p.Text) == "" {
		return types.SendPayload{}, false
	}
	return p, true
}
