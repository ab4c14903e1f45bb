package types

// Media is an attachment relayed alongside a record. Data is base64 text.
type Media struct {
	MimeType string `json:"mimetype"`
	Data     string `json:"data"`
}

// Record is the canonical unit of relayed chat content. It is never mutated
// after it has been appended to history.
type Record struct {
	From string `json:"from"`
	Name string `json:"name"`
	Text string `json:"text,omitempty"`
	// T is milliseconds since the Unix epoch, assigned by the relay.
	T     int64  `json:"t"`
	Media *Media `json:"media,omitempty"`
}

