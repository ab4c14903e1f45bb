package relay

import "github.com/dgnsrekt/wa_relay/internal/types"

// Event is one unit of work for the hub loop. The set of variants is closed.
type Event interface {
	hubEvent()
}

// InboundChat carries a record resolved by the inbound adapter. Record.T is
// the receipt instant; zero means stamp at commit.
type InboundChat struct {
	Record types.Record
}

// ViewerConnected registers a viewer and replays history to it.
type ViewerConnected struct {
	Viewer *Viewer
}

// ViewerDisconnected removes a viewer. Reason is empty for a normal close.
type ViewerDisconnected struct {
	ID     string
	Reason string
}

// ViewerSendRequest asks the hub to forward text through the account.
// ViewerID is empty for requests that did not come from a viewer channel.
type ViewerSendRequest struct {
	ViewerID string
	To       string
	Text     string

	result chan<- error
}

// sendCompleted reports the outcome of an outbound send.
type sendCompleted struct {
	req  ViewerSendRequest
	to   string
	text string
	err  error
}

func (InboundChat) hubEvent()        {}
func (ViewerConnected) hubEvent()    {}
func (ViewerDisconnected) hubEvent() {}
func (ViewerSendRequest) hubEvent()  {}
func (sendCompleted) hubEvent()      {}
