package gmail

import (
	"fmt"
	"net/mail"
	"strings"
)

// Draft is a composed reply that has not been sent.
type Draft struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	ReplyToID string `json:"replyToId"`
}

// DraftReply composes a reply to original following instructions. The
// original message is quoted below the reply.
func DraftReply(original *MessageDetail, instructions string) Draft {
	name := SenderName(original.From)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n%s\n\nBest,\n", name, strings.TrimSpace(instructions))
	if body := strings.TrimSpace(original.Body); body != "" {
		fmt.Fprintf(&b, "\nOn %s, %s wrote:\n", original.Date, original.From)
		for _, line := range strings.Split(body, "\n") {
			b.WriteString("> ")
			b.WriteString(strings.TrimRight(line, "\r"))
			b.WriteString("\n")
		}
	}

	return Draft{
		To:        original.From,
		Subject:   ReplySubject(original.Subject),
		Body:      b.String(),
		ReplyToID: original.ID,
	}
}

// SenderName returns a friendly name for a From header: the display name if
// present, otherwise the local part of the address.
func SenderName(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		if addr.Name != "" {
			return addr.Name
		}
		from = addr.Address
	}
	if local, _, ok := strings.Cut(from, "@"); ok && local != "" {
		return local
	}
	if from == "" {
		return "there"
	}
	return from
}
