package gmail

import (
	"encoding/base64"
	"mime"
	"slices"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

type threadHeaders struct {
	inReplyTo  string
	references string
}

func replyHeaders(orig *gmail.Message) threadHeaders {
	msgID := headerValue(orig.Payload, "Message-ID")
	refs := headerValue(orig.Payload, "References")
	if refs != "" && msgID != "" {
		refs += " " + msgID
	} else if refs == "" {
		refs = msgID
	}
	return threadHeaders{inReplyTo: msgID, references: refs}
}

// ReplySubject prefixes subject with "Re: " unless it already has it.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "Re: " + subject
}

// buildRawMessage assembles an RFC 2822 message.
func buildRawMessage(msg *EmailMessage, thread threadHeaders) string {
	var b strings.Builder
	header := func(name, value string) {
		if value == "" {
			return
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	header("To", strings.Join(msg.To, ", "))
	header("Cc", strings.Join(msg.Cc, ", "))
	header("Bcc", strings.Join(msg.Bcc, ", "))
	header("Subject", encodeRFC2047(msg.Subject))
	header("In-Reply-To", thread.inReplyTo)
	header("References", thread.references)
	if msg.IsHTML {
		header("Content-Type", `text/html; charset="UTF-8"`)
	} else {
		header("Content-Type", `text/plain; charset="UTF-8"`)
	}
	header("MIME-Version", "1.0")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

// encodeRFC2047 encodes non-ASCII header text; ASCII is returned unchanged.
func encodeRFC2047(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

func headerValue(part *gmail.MessagePart, name string) string {
	if part == nil {
		return ""
	}
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func toSummary(m *gmail.Message) MessageSummary {
	if m == nil {
		return MessageSummary{}
	}
	return MessageSummary{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		From:     headerValue(m.Payload, "From"),
		To:       headerValue(m.Payload, "To"),
		Subject:  headerValue(m.Payload, "Subject"),
		Date:     headerValue(m.Payload, "Date"),
		Snippet:  m.Snippet,
		Labels:   m.LabelIds,
		Unread:   slices.Contains(m.LabelIds, "UNREAD"),
	}
}

func toDetail(m *gmail.Message) *MessageDetail {
	return &MessageDetail{
		MessageSummary: toSummary(m),
		Cc:             headerValue(m.Payload, "Cc"),
		MessageID:      headerValue(m.Payload, "Message-ID"),
		References:     headerValue(m.Payload, "References"),
		Body:           extractBody(m.Payload),
	}
}

// extractBody returns the first text/plain part, or the first text/html part
// when there is no plain text.
func extractBody(payload *gmail.MessagePart) string {
	var plain, html string
	walkParts(payload, func(p *gmail.MessagePart) {
		if p.Body == nil || p.Body.Data == "" || p.Filename != "" {
			return
		}
		switch {
		case plain == "" && strings.HasPrefix(p.MimeType, "text/plain"):
			plain = decodeBody(p.Body.Data)
		case html == "" && strings.HasPrefix(p.MimeType, "text/html"):
			html = decodeBody(p.Body.Data)
		}
	})
	if plain != "" {
		return plain
	}
	return html
}

func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

// decodeBody decodes Gmail's base64url body data, tolerating missing padding.
func decodeBody(data string) string {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if out, err := enc.DecodeString(data); err == nil {
			return string(out)
		}
	}
	return ""
}
