package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/menubot/core/logger"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// API is the part of *tele.Bot used for outbound messages.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Error is a failed send with the bot token redacted from its message.
type Error struct {
	Kind string
	msg  string
	err  error
}

func (e *Error) Error() string { return "telegram send (" + e.Kind + "): " + e.msg }

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error { return e.err }

// Sender delivers conversation replies to Telegram chats. Each call is a
// single attempt bounded by the caller's context.
type Sender struct {
	api API
}

// New returns a Sender backed by api, normally the running *tele.Bot.
func New(api API) *Sender {
	return &Sender{api: api}
}

// SendText sends text to the chat whose id is conversationID.
func (s *Sender) SendText(ctx context.Context, conversationID, text string) error {
	chatID, err := strconv.ParseInt(conversationID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram send: invalid chat id %q: %w", conversationID, err)
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		_, err := s.api.Send(&tele.Chat{ID: chatID}, text)
		done <- err
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	elapsed := time.Since(start)

	if err != nil {
		sendErr := &Error{Kind: classifyError(err), msg: sanitizeErrorMessage(err), err: err}
		logger.Error(ctx, logger.CompTelegram, "send.fail",
			slog.String("endpoint", "sendMessage"),
			slog.String("err", sendErr.msg),
			slog.String("err_kind", sendErr.Kind),
			slog.Duration("duration", elapsed),
		)
		return sendErr
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, logger.CompTelegram, "send.ok",
			slog.String("endpoint", "sendMessage"),
			slog.Duration("duration", elapsed),
		)
	}
	return nil
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
		if kind := classifyError(urlErr.Err); kind != "unknown" {
			return kind
		}
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	status := httpStatusFromError(err)
	switch {
	case status == http.StatusForbidden:
		return "blocked"
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// sanitizeErrorMessage strips bot tokens that telebot embeds in request URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

func httpStatusFromError(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}

	msg := err.Error()
	lastOpen := strings.LastIndex(msg, "(")
	lastClose := strings.LastIndex(msg, ")")
	if lastOpen >= 0 && lastClose > lastOpen+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[lastOpen+1 : lastClose])); convErr == nil {
			return code
		}
	}
	return 0
}
