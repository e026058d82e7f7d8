package gmail

// MessageSummary is the metadata shown in listings.
type MessageSummary struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	From     string   `json:"from"`
	To       string   `json:"to,omitempty"`
	Subject  string   `json:"subject"`
	Date     string   `json:"date"`
	Snippet  string   `json:"snippet,omitempty"`
	Labels   []string `json:"labels,omitempty"`
	Unread   bool     `json:"unread,omitempty"`
}

// MessageDetail is a full message plus, optionally, the rest of its thread.
type MessageDetail struct {
	MessageSummary
	Cc         string           `json:"cc,omitempty"`
	MessageID  string           `json:"messageId,omitempty"`
	References string           `json:"references,omitempty"`
	Body       string           `json:"body"`
	Thread     []MessageSummary `json:"thread,omitempty"`
}

// EmailMessage is an outgoing message. When ReplyToID is set the message is
// threaded onto that message, and empty To and Subject are derived from it.
type EmailMessage struct {
	To        []string
	Cc        []string
	Bcc       []string
	Subject   string
	Body      string
	IsHTML    bool
	ReplyToID string
}
