package middleware

import (
	"github.com/m3rciful/menubot/core/metrics"

	tele "gopkg.in/telebot.v4"
)

// metricsContext counts replies sent through tele.Context, which admin
// commands use. Conversation replies are counted by the conversation outbox.
type metricsContext struct{ tele.Context }

func (m metricsContext) count(err error) error {
	metrics.RecordSend(err)
	if err == nil {
		n, _ := m.Get("messages").(int)
		m.Set("messages", n+1)
	}
	return err
}

// Send proxies tele.Context.Send while updating message counters.
func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Send(what, opts...))
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Reply(what, opts...))
}

// MessageMetricsMiddleware instruments the context to count sent replies.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set("messages", 0)
		return next(metricsContext{Context: c})
	}
}

// SentMessages reads the reply count recorded by MessageMetricsMiddleware.
func SentMessages(c tele.Context) int {
	n, _ := c.Get("messages").(int)
	return n
}
