// Package metrics exposes Prometheus instrumentation for the menu bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message directions.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

var (
	// ConversationsStarted counts fresh conversations entering the terms stage.
	ConversationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "menubot_conversations_started_total",
			Help: "Conversations started by a trigger word or an implicit start",
		},
	)

	// ConversationsEnded counts torn down conversations by reason.
	ConversationsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menubot_conversations_ended_total",
			Help: "Conversations ended, by reason",
		},
		[]string{"reason"},
	)

	// Handoffs counts transitions to a human agent by category.
	Handoffs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menubot_handoffs_total",
			Help: "Conversations handed off to an agent, by category",
		},
		[]string{"category"},
	)

	// Messages counts chat messages handled by the bot.
	Messages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menubot_messages_total",
			Help: "Chat messages received and sent",
		},
		[]string{"direction"},
	)

	// SendFailures counts outbound messages the transport rejected.
	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "menubot_send_failures_total",
			Help: "Outbound messages that failed to send",
		},
	)

	// ActiveConversations tracks conversations currently held in memory.
	ActiveConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "menubot_active_conversations",
			Help: "Number of conversations currently in memory",
		},
	)
)

// RecordStart records a new conversation.
func RecordStart() {
	ConversationsStarted.Inc()
}

// RecordEnd records a conversation teardown.
func RecordEnd(reason string) {
	ConversationsEnded.WithLabelValues(reason).Inc()
}

// RecordHandoff records a handoff for category.
func RecordHandoff(category string) {
	if category == "" {
		category = "none"
	}
	Handoffs.WithLabelValues(category).Inc()
}

// RecordInbound counts one inbound message.
func RecordInbound() {
	Messages.WithLabelValues(DirectionIn).Inc()
}

// RecordSend counts one outbound attempt.
func RecordSend(err error) {
	if err != nil {
		SendFailures.Inc()
		return
	}
	Messages.WithLabelValues(DirectionOut).Inc()
}

// SetActive publishes the number of live conversations.
func SetActive(n int) {
	ActiveConversations.Set(float64(n))
}
