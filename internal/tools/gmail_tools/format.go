package gmail_tools

import (
	"fmt"
	"strings"

	"github.com/teemow/inboxassist/internal/gmail"
)

func formatSummaries(title string, msgs []gmail.MessageSummary) string {
	if len(msgs) == 0 {
		return title + ": no emails found."
	}

	var b strings.Builder
	noun := "emails"
	if len(msgs) == 1 {
		noun = "email"
	}
	fmt.Fprintf(&b, "%s (%d %s):\n", title, len(msgs), noun)
	for i, m := range msgs {
		marker := ""
		if m.Unread {
			marker = " [unread]"
		}
		fmt.Fprintf(&b, "\n%d.%s %s\n", i+1, marker, subjectOrPlaceholder(m.Subject))
		fmt.Fprintf(&b, "   From: %s\n", m.From)
		if m.Date != "" {
			fmt.Fprintf(&b, "   Date: %s\n", m.Date)
		}
		fmt.Fprintf(&b, "   ID: %s\n", m.ID)
		if m.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", m.Snippet)
		}
	}
	return b.String()
}

func formatDetail(d *gmail.MessageDetail, includeThread bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", subjectOrPlaceholder(d.Subject))
	fmt.Fprintf(&b, "From: %s\n", d.From)
	if d.To != "" {
		fmt.Fprintf(&b, "To: %s\n", d.To)
	}
	if d.Cc != "" {
		fmt.Fprintf(&b, "Cc: %s\n", d.Cc)
	}
	fmt.Fprintf(&b, "Date: %s\n", d.Date)
	fmt.Fprintf(&b, "ID: %s\n", d.ID)
	if len(d.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(d.Labels, ", "))
	}

	body := strings.TrimSpace(d.Body)
	if body == "" {
		body = "(no text content)"
	}
	fmt.Fprintf(&b, "\n%s\n", body)

	if includeThread && len(d.Thread) > 1 {
		fmt.Fprintf(&b, "\nConversation (%d messages):\n", len(d.Thread))
		for i, m := range d.Thread {
			current := ""
			if m.ID == d.ID {
				current = " (this email)"
			}
			fmt.Fprintf(&b, "%d. %s - %s%s\n", i+1, m.Date, m.From, current)
			if m.Snippet != "" {
				fmt.Fprintf(&b, "   %s\n", m.Snippet)
			}
		}
	}
	return b.String()
}

func formatDraft(d gmail.Draft) string {
	var b strings.Builder
	b.WriteString("Draft reply (not sent):\n\n")
	fmt.Fprintf(&b, "To: %s\n", d.To)
	fmt.Fprintf(&b, "Subject: %s\n\n", d.Subject)
	b.WriteString(d.Body)
	fmt.Fprintf(&b, "\nTo send it, call gmail_send_email with replyToId %q and this body.", d.ReplyToID)
	return b.String()
}

func subjectOrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(no subject)"
	}
	return s
}
