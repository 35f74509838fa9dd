package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"postrelay/internal/pipeline"
	"postrelay/internal/ratelimit"
)

const (
	sendAttempts  = 3
	sendRetryWait = 2 * time.Second
)

// Sender publishes accepted posts into forum topics of the destination
// supergroup. It implements pipeline.Sink.
type Sender struct {
	client    *Client
	chatID    int64
	limiter   *ratelimit.Limiter
	log       *slog.Logger
	retryWait time.Duration
}

func NewSender(client *Client, chatID int64, limiter *ratelimit.Limiter, log *slog.Logger) *Sender {
	if log == nil {
		log = slog.Default()
	}
	return &Sender{
		client:    client,
		chatID:    chatID,
		limiter:   limiter,
		log:       log,
		retryWait: sendRetryWait,
	}
}

// Deliver sends one formatted post, retrying transient API failures.
func (s *Sender) Deliver(ctx context.Context, d pipeline.Delivery) error {
	msg := SendMessage{
		ChatID:    s.chatID,
		ThreadID:  d.Topic.ThreadID,
		Text:      formatPost(d),
		ParseMode: "HTML",
	}

	var lastErr error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryWait * time.Duration(attempt)):
			}
		}

		if err := s.limiter.Acquire(ctx, ratelimit.ProviderTelegram); err != nil {
			return err
		}

		err := s.client.Send(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		s.log.Warn("send failed, retrying", "attempt", attempt+1, "error", err)
	}

	return fmt.Errorf("send after %d attempts: %w", sendAttempts, lastErr)
}

// formatPost renders the delivery as HTML: topic header, body, attribution
// footer.
func formatPost(d pipeline.Delivery) string {
	var b strings.Builder

	if d.Topic.Emoji != "" {
		b.WriteString(d.Topic.Emoji)
		b.WriteString(" ")
	}
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(d.Topic.Name))
	b.WriteString("</b>\n\n")
	b.WriteString(html.EscapeString(d.Text))

	var footer []string
	if d.SourceLink != "" {
		footer = append(footer, fmt.Sprintf(`<a href="%s">Источник</a>`, d.SourceLink))
	}
	if d.AuthorLink != "" {
		footer = append(footer, fmt.Sprintf(`<a href="%s">Автор</a>`, d.AuthorLink))
	}
	if len(footer) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(footer, " | "))
	}

	return b.String()
}

// isRetryable reports whether a send error is worth another attempt.
// Flood control and server-side failures are; a bad chat id or a kicked
// bot is not.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	// Network-level failure.
	return true
}
