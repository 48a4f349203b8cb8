package whatsapp

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/m3rciful/menubot/core/conversation"
)

// Transport is the transport name carried in log context.
const Transport = "whatsapp"

// Dispatcher receives inbound conversation messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg conversation.Message) error
}

// Inbound is the subset of a Twilio messaging webhook the bot reads.
type Inbound struct {
	MessageSid        string `form:"MessageSid"`
	From              string `form:"From"`
	To                string `form:"To"`
	Body              string `form:"Body"`
	NumMedia          string `form:"NumMedia"`
	MediaContentType0 string `form:"MediaContentType0"`
}

// mediaCount parses NumMedia; malformed values count as zero.
func (in Inbound) mediaCount() int {
	n, err := strconv.Atoi(strings.TrimSpace(in.NumMedia))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ToMessage maps a webhook post to a conversation message keyed by the
// sender's address. Any attached media turns the message into a document.
func ToMessage(in Inbound, self string) conversation.Message {
	rid := in.MessageSid
	if rid == "" {
		rid = uuid.NewString()
	}
	msg := conversation.Message{
		ConversationID: in.From,
		FromSelf:       self != "" && in.From == self,
		RID:            rid,
	}
	switch {
	case in.mediaCount() > 0:
		msg.Content = conversation.Document{MimeType: in.MediaContentType0}
	case in.Body != "":
		msg.Content = conversation.Text{Body: in.Body}
	}
	return msg
}
