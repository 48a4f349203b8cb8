package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/menubot/core/logger"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageAPI is the part of the Twilio REST client used for replies.
type MessageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// SendError is a failed Twilio send.
type SendError struct {
	Kind string
	err  error
}

func (e *SendError) Error() string { return "whatsapp send (" + e.Kind + "): " + e.err.Error() }

// Unwrap returns the underlying Twilio error.
func (e *SendError) Unwrap() error { return e.err }

// Sender delivers conversation replies through the Twilio Messages API.
type Sender struct {
	api  MessageAPI
	from string
}

// NewSender returns a Sender posting from the given Twilio WhatsApp number.
func NewSender(api MessageAPI, from string) *Sender {
	return &Sender{api: api, from: from}
}

// NewTwilioSender builds a Sender with a REST client for accountSID.
func NewTwilioSender(accountSID, authToken, from string) *Sender {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewSender(rest.Api, from)
}

// SendText sends text to conversationID, which is the user's Twilio address.
func (s *Sender) SendText(ctx context.Context, conversationID, text string) error {
	params := &openapi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(conversationID)
	params.SetBody(text)

	start := time.Now()
	type result struct {
		sid string
		err error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := s.api.CreateMessage(params)
		var sid string
		if resp != nil && resp.Sid != nil {
			sid = *resp.Sid
		}
		done <- result{sid: sid, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	elapsed := logger.RoundMS(time.Since(start))

	if res.err != nil {
		sendErr := &SendError{Kind: classifyError(res.err), err: res.err}
		logger.Error(ctx, logger.CompWhatsApp, "send.fail",
			slog.String("err", logger.SanitizeLimit(res.err.Error(), 256)),
			slog.String("err_kind", sendErr.Kind),
			slog.Duration("duration", elapsed),
		)
		return sendErr
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, logger.CompWhatsApp, "send.ok",
			slog.String("sid", res.sid),
			slog.Duration("duration", elapsed),
		)
	}
	return nil
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		switch {
		case restErr.Status == http.StatusTooManyRequests:
			return "flood"
		case restErr.Status >= 500:
			return "http_5xx"
		case restErr.Status >= 400:
			return fmt.Sprintf("twilio_%d", restErr.Code)
		}
	}
	return "unknown"
}
