package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds the bot's slash commands.
type Registry struct {
	commands map[string]commands.Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]commands.Command)}
}

// RegisterCommand adds cmd under name, which must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	ctx := context.Background()
	if r == nil || name == "" || cmd.Handler == nil || cmd.Description == "" {
		logger.Warn(ctx, logger.CompTelegramWire, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return fmt.Errorf("telegram: invalid command %q", name)
	}
	if !strings.HasPrefix(name, "/") {
		logger.Warn(ctx, logger.CompTelegramWire, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "no_slash_prefix"),
		)
		return fmt.Errorf("telegram: command %q must start with /", name)
	}
	if _, exists := r.commands[name]; exists {
		logger.Warn(ctx, logger.CompTelegramWire, "register.command.duplicate", slog.String("name", name))
		return fmt.Errorf("telegram: command %q already registered", name)
	}
	r.commands[name] = cmd
	logger.Debug(ctx, logger.CompTelegramWire, "register.command",
		slog.String("name", name),
		slog.String("scope", cmd.Scope()),
	)
	return nil
}

// ListCommands returns the commands of one menu scope sorted by name.
func (r *Registry) ListCommands(adminOnly bool) []tele.Command {
	var list []tele.Command
	for cmd, meta := range r.commands {
		if meta.AdminOnly != adminOnly {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(cmd, "/"), Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// SetupCommands publishes the public commands in the default Telegram
// command menu and the admin commands in the admin's private chat only.
func SetupCommands(bot *tele.Bot, reg *Registry, adminID int64) {
	publish := func(scope string, list []tele.Command, opts ...interface{}) {
		if len(list) == 0 {
			return
		}
		if err := bot.SetCommands(append([]interface{}{list}, opts...)...); err != nil {
			logger.Error(context.Background(), logger.CompTelegramWire, "register.commands.set_failed",
				slog.String("scope", scope),
				slog.String("err", err.Error()),
			)
		}
	}
	publish("public", reg.ListCommands(false))
	if adminID != 0 {
		publish("admin", reg.ListCommands(true), tele.CommandScope{Type: tele.CommandScopeChat, ChatID: adminID})
	}
}
