package router

import (
	"context"
	"time"

	"github.com/m3rciful/menubot/core/conversation"
	tg "github.com/m3rciful/menubot/core/telegram"
	tghelpers "github.com/m3rciful/menubot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Dispatcher receives inbound conversation messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg conversation.Message) error
}

// ConversationOptions configures ConversationRoutes.
type ConversationOptions struct {
	// SelfID is the bot's own user id; its messages are flagged FromSelf.
	SelfID int64
}

// ConversationRoutes feeds every user message into the conversation
// dispatcher. Content other than text or a document arrives empty.
func ConversationRoutes(d Dispatcher, opts ConversationOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		msg := ToMessage(c, opts.SelfID)
		return handleWithSummary(c, "conversation."+msg.Kind(), start, func() error {
			return d.Dispatch(tghelpers.BuildContext(c), msg)
		})
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: handler},
		{Endpoint: tele.OnDocument, Handler: handler},
		{Endpoint: tele.OnMedia, Handler: handler},
		{Endpoint: tele.OnSticker, Handler: handler},
		{Endpoint: tele.OnContact, Handler: handler},
		{Endpoint: tele.OnLocation, Handler: handler},
		{Endpoint: tele.OnVenue, Handler: handler},
		{Endpoint: tele.OnDice, Handler: handler},
	}
}

// ToMessage converts a Telegram update into a conversation message keyed by chat id.
func ToMessage(c tele.Context, selfID int64) conversation.Message {
	msg := conversation.Message{
		ConversationID: tghelpers.ConversationID(c.Chat()),
		RID:            ridFrom(c),
	}
	if user := c.Sender(); user != nil && selfID != 0 && user.ID == selfID {
		msg.FromSelf = true
	}

	m := c.Message()
	switch {
	case m == nil:
	case m.Document != nil:
		msg.Content = conversation.Document{MimeType: m.Document.MIME, FileName: m.Document.FileName}
	case m.Text != "":
		msg.Content = conversation.Text{Body: m.Text}
	}
	return msg
}

func ridFrom(c tele.Context) string {
	rid, _ := c.Get("rid").(string)
	return rid
}
