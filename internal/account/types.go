// Package account is the client side of the messaging-account gateway: the
// opaque process that owns the messaging session, emits chat events and
// accepts outbound sends.
package account

import (
	"encoding/json"
	"sync"
	"time"
)

// Gateway event names.
const (
	EventMessage       = "message"
	EventQR            = "qr"
	EventAuthenticated = "authenticated"
	EventReady         = "ready"
	EventDisconnected  = "disconnected"
)

// State is the lifecycle phase of the messaging account.
type State string

const (
	StateConnecting    State = "connecting"
	StateAwaitingLogin State = "awaiting_login"
	StateAuthenticated State = "authenticated"
	StateReady         State = "ready"
	StateDisconnected  State = "disconnected"
)

// Status is a point-in-time view of the account state.
type Status struct {
	State  State     `json:"state"`
	Since  time.Time `json:"since"`
	Reason string    `json:"reason,omitempty"`
}

// IncomingMessage is a raw "message" event from the gateway.
type IncomingMessage struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Body     string `json:"body"`
	HasMedia bool   `json:"hasMedia"`
}

// Contact is the profile the gateway returns for a sender id.
type Contact struct {
	PushName string `json:"pushname"`
	Number   string `json:"number"`
}

// Event is a gateway event awaiting dispatch.
type Event struct {
	Name string
	Data json.RawMessage
}

// eventQueue is an unbounded FIFO between the read loop and the dispatch
// loop. push never blocks, so a slow handler cannot stall response routing.
type eventQueue struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

func (q *eventQueue) push(evt Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, evt)
	q.mu.Unlock()
	q.signal()
}

// close lets pop drain what is left and then report false.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) pop() (Event, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			evt := q.items[0]
			q.items[0] = Event{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return evt, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Event{}, false
		}
		<-q.notify
	}
}

func (q *eventQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
