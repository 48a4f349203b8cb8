package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/menubot/core/conversation"
	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/telegram/format"
	tghelpers "github.com/m3rciful/menubot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// SessionAdmin is what the admin commands need from the conversation dispatcher.
type SessionAdmin interface {
	Sessions() []conversation.State
	Release(ctx context.Context, id string) (bool, error)
}

// Sessions lists live conversations.
func Sessions(admin SessionAdmin) Command {
	return Command{
		Description: "Conversaciones activas",
		AdminOnly:   true,
		Handler: func(c tele.Context) error {
			return c.Send(RenderSessions(admin.Sessions()), &tele.SendOptions{ParseMode: tele.ModeMarkdown})
		},
	}
}

// RenderSessions formats the session list as Telegram Markdown.
func RenderSessions(states []conversation.State) string {
	if len(states) == 0 {
		return "No hay conversaciones activas."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Conversaciones activas: %d*\n", len(states))
	for _, st := range states {
		id, _ := format.EscapeMarkdown(st.ID, format.MarkdownV1)
		stage, _ := format.EscapeMarkdown(string(st.Stage), format.MarkdownV1)
		fmt.Fprintf(&b, "\n%s: %s", id, stage)
		if st.Category != conversation.CategoryNone {
			fmt.Fprintf(&b, " (%s)", st.Category)
		}
		if st.Armed {
			b.WriteString(" ⏱")
		}
	}
	return b.String()
}

// Release ends a conversation, typically one parked with an agent.
func Release(admin SessionAdmin) Command {
	return Command{
		Description: "Liberar una conversación: /release <id>",
		AdminOnly:   true,
		Handler: func(c tele.Context) error {
			args := c.Args()
			if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
				return c.Send("Uso: /release <id de conversación>")
			}
			id := strings.TrimSpace(args[0])
			ctx := tghelpers.BuildContext(c)

			found, err := admin.Release(ctx, id)
			switch {
			case !found:
				return c.Send(fmt.Sprintf("Conversación %s no encontrada.", id))
			case err != nil:
				logger.Warn(ctx, logger.CompTelegram, "release.notify",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
				return c.Send(fmt.Sprintf("Conversación %s liberada, pero no se pudo avisar al usuario.", id))
			}
			return c.Send(fmt.Sprintf("Conversación %s liberada.", id))
		},
	}
}
