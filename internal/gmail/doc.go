// Package gmail is a small Gmail API client for the assistant tools.
//
// Client implements Mailbox: listing the inbox, searching, reading a message
// with its thread, sending (including threaded replies) and changing labels.
// Message bodies are extracted from the MIME tree with a text/plain
// preference, and outgoing mail is assembled as RFC 2822 with RFC 2047
// encoded subjects.
//
// DraftReply builds a reply text from a message without sending it.
package gmail
