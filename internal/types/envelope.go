package types

import "encoding/json"

// Envelope types exchanged with viewers.
const (
	EnvelopeHistory = "history"
	EnvelopeMessage = "message"
	EnvelopeSend    = "send"
	EnvelopeError   = "error"
)

// Envelope is the outer frame of every viewer push message.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// InboundEnvelope is an envelope received from a viewer. The payload is kept
// raw until the type is known.
type InboundEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SendPayload is the payload of a viewer "send" envelope.
type SendPayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// ErrorPayload reports a failed viewer operation back to that viewer only.
type ErrorPayload struct {
	Op    string `json:"op"`
	To    string `json:"to,omitempty"`
	Error string `json:"error"`
}
