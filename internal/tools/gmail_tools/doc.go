// Package gmail_tools exposes the mailbox to MCP clients.
//
// Read tools:
//   - gmail_list_emails: recent inbox messages
//   - gmail_search_emails: messages matching a Gmail query
//   - gmail_get_email: one message with its body and thread
//   - gmail_draft_reply: compose a reply without sending it
//
// Write tools, registered only when writes are enabled:
//   - gmail_send_email: send a new message or a threaded reply
//   - gmail_batch_modify: add or remove labels on many messages
//
// Reads go through the shared cache with retries and a stale fallback.
// Writes run once and invalidate the listings they change.
package gmail_tools
