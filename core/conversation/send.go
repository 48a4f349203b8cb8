package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/metrics"
)

// Sender delivers a text message to a conversation.
type Sender interface {
	SendText(ctx context.Context, conversationID, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, conversationID, text string) error

// SendText calls f.
func (f SenderFunc) SendText(ctx context.Context, conversationID, text string) error {
	return f(ctx, conversationID, text)
}

// outbox sends replies one by one, each bounded by timeout. The first failure
// aborts the remaining texts; there are no retries.
type outbox struct {
	sender  Sender
	timeout time.Duration
}

func (o outbox) send(ctx context.Context, id string, texts ...string) error {
	for i, text := range texts {
		sendCtx, cancel := context.WithTimeout(ctx, o.timeout)
		start := time.Now()
		err := o.sender.SendText(sendCtx, id, text)
		cancel()
		metrics.RecordSend(err)
		if err != nil {
			logger.Warn(ctx, logger.CompConversation, "send",
				slog.String("status", "fail"),
				slog.Int("index", i),
				slog.Duration("duration", time.Since(start)),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("send reply %d/%d: %w", i+1, len(texts), err)
		}
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, logger.CompConversation, "send",
				slog.String("status", "ok"),
				slog.Duration("duration", time.Since(start)),
				slog.Int("len", len(text)),
			)
		}
	}
	return nil
}
