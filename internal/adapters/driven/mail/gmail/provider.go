// Package gmail provides a mail provider adapter backed by the
// Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
)

// gmailUser is the special "me" user id for the authenticated account.
const gmailUser = "me"

// Ensure Provider implements the interface.
var _ driven.MailProvider = (*Provider)(nil)

// Provider fetches messages for an address via the Gmail API. One
// Fetch call covers a single address so per-address failures stay
// isolated at the caller.
type Provider struct {
	svc     *gmail.Service
	limiter *RateLimiter
}

// NewProvider creates a Gmail provider using the provided token source.
func NewProvider(ctx context.Context, ts oauth2.TokenSource) (*Provider, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return &Provider{
		svc:     svc,
		limiter: NewRateLimiter(DefaultRateLimit),
	}, nil
}

// Fetch lists and retrieves all messages exchanged with the query
// address within the date range. Failures wrap domain.ErrFetch so the
// caller can distinguish provider faults from malformed messages.
func (p *Provider) Fetch(ctx context.Context, q driven.MailQuery) ([]domain.MailMessage, error) {
	if q.Address == "" {
		return nil, fmt.Errorf("%w: address is required", domain.ErrInvalidInput)
	}

	query := buildQuery(q)

	var ids []string
	pageToken := ""
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
		}

		call := p.svc.Users.Messages.List(gmailUser).Q(query).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			p.recordRateLimit(err)
			return nil, fmt.Errorf("%w: listing messages for %s: %v", domain.ErrFetch, q.Address, err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	messages := make([]domain.MailMessage, 0, len(ids))
	for _, id := range ids {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
		}

		msg, err := p.svc.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
		if err != nil {
			p.recordRateLimit(err)
			return nil, fmt.Errorf("%w: fetching message %s: %v", domain.ErrFetch, id, err)
		}
		messages = append(messages, toMailMessage(msg))
	}

	return messages, nil
}

// recordRateLimit backs the limiter off when Google reports quota
// exhaustion.
func (p *Provider) recordRateLimit(err error) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		p.limiter.RecordRateLimitError(0)
	}
}

// toMailMessage converts a Gmail message to the domain shape.
func toMailMessage(msg *gmail.Message) domain.MailMessage {
	out := domain.MailMessage{ID: msg.Id}
	if msg.Payload == nil {
		return out
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "from":
			out.Sender = parseAddress(header.Value)
		case "to", "cc":
			out.Recipients = append(out.Recipients, parseAddressList(header.Value)...)
		case "subject":
			out.Subject = header.Value
		case "date":
			if t, err := mail.ParseDate(header.Value); err == nil {
				utc := t.UTC()
				out.Date = &utc
			}
		}
	}

	out.Body = extractBody(msg.Payload)
	return out
}

// parseAddress extracts the bare address from a From-style header,
// falling back to the raw value.
func parseAddress(value string) string {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return addr.Address
}

// parseAddressList extracts bare addresses from a To/Cc-style header.
func parseAddressList(value string) []string {
	addrs, err := mail.ParseAddressList(value)
	if err != nil {
		return []string{strings.TrimSpace(value)}
	}
	out := make([]string, len(addrs))
	for i, addr := range addrs {
		out[i] = addr.Address
	}
	return out
}

// extractBody walks the MIME tree and returns the first text/plain
// part, falling back to text/html, then the top-level body.
func extractBody(payload *gmail.MessagePart) string {
	if body := findPart(payload, "text/plain"); body != "" {
		return body
	}
	if body := findPart(payload, "text/html"); body != "" {
		return body
	}
	return decodePartBody(payload)
}

// findPart depth-first searches for a part with the given MIME type.
func findPart(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if part.MimeType == mimeType {
		if body := decodePartBody(part); body != "" {
			return body
		}
	}
	for _, child := range part.Parts {
		if body := findPart(child, mimeType); body != "" {
			return body
		}
	}
	return ""
}

// decodePartBody decodes a part's base64url-encoded body data.
func decodePartBody(part *gmail.MessagePart) string {
	if part == nil || part.Body == nil || part.Body.Data == "" {
		return ""
	}
	data, err := base64.URLEncoding.DecodeString(part.Body.Data)
	if err != nil {
		return ""
	}
	return string(data)
}

// buildQuery builds the Gmail search query covering mail sent to or
// from the address within the date window. Gmail's before: operator
// is exclusive, so the end bound is pushed one day forward.
func buildQuery(q driven.MailQuery) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(from:%s OR to:%s OR cc:%s OR bcc:%s)", q.Address, q.Address, q.Address, q.Address)

	if q.Range.Start != nil {
		fmt.Fprintf(&sb, " after:%s", q.Range.Start.UTC().Format("2006/01/02"))
	}
	if q.Range.End != nil {
		fmt.Fprintf(&sb, " before:%s", q.Range.End.UTC().Add(24*time.Hour).Format("2006/01/02"))
	}
	return sb.String()
}
