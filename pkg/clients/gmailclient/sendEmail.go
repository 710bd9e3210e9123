package gmailclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/waterwatch/lifedrop/pkg/utils/metrics"
)

const EMAIL_INTERVAL = 3 * time.Second

// buildMessage renders a plain-text RFC 822 message
func buildMessage(to []string, subject, body string) string {
	return fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		strings.Join(to, ", "), subject, body)
}

// SendEmail sends an email with the specified subject and body.
// Sends are serialised and spaced EMAIL_INTERVAL apart to respect Gmail API rate limits.
func (c *Client) SendEmail(ctx context.Context, to []string, subject, body string) (err error) {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if !c.lastSendTime.IsZero() {
		if wait := EMAIL_INTERVAL - time.Since(c.lastSendTime); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	start := time.Now()
	defer func() { metrics.ObserveCollaborator("gmail", start, err) }()

	gmailMessage := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(buildMessage(to, subject, body))),
	}

	if _, err := c.service.Users.Messages.Send("me", gmailMessage).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.lastSendTime = time.Now()
	return nil
}
