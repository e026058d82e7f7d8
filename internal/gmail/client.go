package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	me = "me"

	// maxPageSize is the Gmail API cap on messages.list page size.
	maxPageSize = 500

	// metadataFetchLimit bounds concurrent per-message metadata requests.
	metadataFetchLimit = 8
)

var summaryHeaders = []string{"From", "To", "Subject", "Date"}

// Mailbox is the mail surface used by the tool layer.
type Mailbox interface {
	ListInbox(ctx context.Context, maxResults int64) ([]MessageSummary, error)
	Search(ctx context.Context, query string, maxResults int64) ([]MessageSummary, error)
	GetMessage(ctx context.Context, messageID string, includeThread bool) (*MessageDetail, error)
	SendEmail(ctx context.Context, msg *EmailMessage) (string, error)
	ModifyLabels(ctx context.Context, messageID string, add, remove []string) error
}

// Client wraps the Gmail users service for one account.
type Client struct {
	svc     *gmail.UsersService
	account string

	sigOnce   sync.Once
	signature string
}

var _ Mailbox = (*Client)(nil)

// NewClient builds a client from an authenticated HTTP client.
func NewClient(ctx context.Context, account string, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users, account: account}, nil
}

// Account returns the account this client acts for.
func (c *Client) Account() string {
	return c.account
}

// ListInbox returns the newest inbox messages.
func (c *Client) ListInbox(ctx context.Context, maxResults int64) ([]MessageSummary, error) {
	return c.list(ctx, "", []string{"INBOX"}, maxResults)
}

// Search returns messages matching a Gmail search query.
func (c *Client) Search(ctx context.Context, query string, maxResults int64) ([]MessageSummary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is required")
	}
	return c.list(ctx, query, nil, maxResults)
}

func (c *Client) list(ctx context.Context, query string, labels []string, maxResults int64) ([]MessageSummary, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	var refs []*gmail.Message
	pageToken := ""
	for int64(len(refs)) < maxResults {
		pageSize := min(maxResults-int64(len(refs)), maxPageSize)
		call := c.svc.Messages.List(me).MaxResults(pageSize).Context(ctx)
		if query != "" {
			call = call.Q(query)
		}
		if len(labels) > 0 {
			call = call.LabelIds(labels...)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		refs = append(refs, res.Messages...)
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	if int64(len(refs)) > maxResults {
		refs = refs[:maxResults]
	}

	return c.summaries(ctx, refs)
}

// summaries fetches metadata for each reference, preserving order.
func (c *Client) summaries(ctx context.Context, refs []*gmail.Message) ([]MessageSummary, error) {
	out := make([]MessageSummary, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataFetchLimit)
	for i, ref := range refs {
		g.Go(func() error {
			msg, err := c.svc.Messages.Get(me, ref.Id).
				Format("metadata").
				MetadataHeaders(summaryHeaders...).
				Context(gctx).
				Do()
			if err != nil {
				return fmt.Errorf("failed to get message %s: %w", ref.Id, err)
			}
			out[i] = toSummary(msg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMessage returns a full message. With includeThread the other messages
// of its thread are attached as summaries.
func (c *Client) GetMessage(ctx context.Context, messageID string, includeThread bool) (*MessageDetail, error) {
	if messageID == "" {
		return nil, fmt.Errorf("message ID is required")
	}
	msg, err := c.svc.Messages.Get(me, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	detail := toDetail(msg)

	if includeThread && msg.ThreadId != "" {
		thread, err := c.svc.Threads.Get(me, msg.ThreadId).
			Format("metadata").
			MetadataHeaders(summaryHeaders...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get thread %s: %w", msg.ThreadId, err)
		}
		if len(thread.Messages) > 1 {
			for _, m := range thread.Messages {
				detail.Thread = append(detail.Thread, toSummary(m))
			}
		}
	}
	return detail, nil
}

// SendEmail sends msg and returns the new message ID.
func (c *Client) SendEmail(ctx context.Context, msg *EmailMessage) (string, error) {
	if msg == nil {
		return "", fmt.Errorf("message is required")
	}
	if msg.Body == "" {
		return "", fmt.Errorf("body is required")
	}

	out := *msg
	var threadID string
	var thread threadHeaders
	if msg.ReplyToID != "" {
		orig, err := c.svc.Messages.Get(me, msg.ReplyToID).
			Format("metadata").
			MetadataHeaders("From", "Subject", "Message-ID", "References").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("failed to get original message: %w", err)
		}
		threadID = orig.ThreadId
		thread = replyHeaders(orig)
		if len(out.To) == 0 {
			from := headerValue(orig.Payload, "From")
			if from == "" {
				return "", fmt.Errorf("original message has no From header")
			}
			out.To = []string{from}
		}
		if out.Subject == "" {
			out.Subject = ReplySubject(headerValue(orig.Payload, "Subject"))
		}
	}

	if len(out.To) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}
	if out.Subject == "" {
		return "", fmt.Errorf("subject is required")
	}

	out.Body = c.appendSignature(ctx, out.Body, out.IsHTML)
	raw := buildRawMessage(&out, thread)

	sent, err := c.svc.Messages.Send(me, &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(raw)),
		ThreadId: threadID,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return sent.Id, nil
}

// ModifyLabels adds and removes label IDs on one message.
func (c *Client) ModifyLabels(ctx context.Context, messageID string, add, remove []string) error {
	if messageID == "" {
		return fmt.Errorf("message ID is required")
	}
	if len(add) == 0 && len(remove) == 0 {
		return fmt.Errorf("no label changes requested")
	}
	_, err := c.svc.Messages.Modify(me, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to modify message %s: %w", messageID, err)
	}
	return nil
}

// getSignature returns the primary send-as signature, fetched once. A failed
// fetch yields an empty signature.
func (c *Client) getSignature(ctx context.Context) string {
	c.sigOnce.Do(func() {
		sendAs, err := c.svc.Settings.SendAs.Get(me, me).Context(ctx).Do()
		if err == nil {
			c.signature = sendAs.Signature
		}
	})
	return c.signature
}

func (c *Client) appendSignature(ctx context.Context, body string, isHTML bool) string {
	sig := c.getSignature(ctx)
	if sig == "" {
		return body
	}
	if isHTML {
		return body + "<br><br>-- <br>" + sig
	}
	return body + "\n\n-- \n" + sig
}
