package relay

import (
	"sync"
)

const defaultViewerQueue = 256

// Transport is the write side of a viewer push channel.
type Transport interface {
	WriteText(p []byte) error
	Close() error
}

// Viewer is one connected browser channel. Frames are queued by the hub loop
// and written by a dedicated goroutine, so the loop never waits on a socket.
type Viewer struct {
	ID     string
	Remote string

	transport Transport
	queue     chan []byte
	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// NewViewer wraps a transport. queueSize bounds the frames waiting to be
// written; below 1 the default is used.
func NewViewer(id string, t Transport, queueSize int) *Viewer {
	if queueSize < 1 {
		queueSize = defaultViewerQueue
	}
	return &Viewer{
		ID:        id,
		transport: t,
		queue:     make(chan []byte, queueSize),
		closed:    make(chan struct{}),
	}
}

// Open reports whether the channel still accepts frames.
func (v *Viewer) Open() bool {
	select {
	case <-v.closed:
		return false
	default:
		return true
	}
}

// Done is closed once the viewer has been closed.
func (v *Viewer) Done() <-chan struct{} {
	return v.closed
}

// Close closes the transport. Safe to call more than once.
func (v *Viewer) Close() error {
	v.closeOnce.Do(func() {
		close(v.closed)
		v.closeErr = v.transport.Close()
	})
	return v.closeErr
}

// enqueue queues a frame without blocking. It returns false when the queue
// is full.
func (v *Viewer) enqueue(frame []byte) bool {
	select {
	case v.queue <- frame:
		return true
	default:
		return false
	}
}

func (v *Viewer) writeLoop(onFail func(error)) {
	for {
		select {
		case <-v.closed:
			return
		case frame := <-v.queue:
			if err := v.transport.WriteText(frame); err != nil {
				_ = v.Close()
				onFail(err)
				return
			}
		}
	}
}
