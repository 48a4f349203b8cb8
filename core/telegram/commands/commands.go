package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is an operator slash command served alongside the menu conversation.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run only for the configured admin and are listed
	// only in the admin's chat menu.
	AdminOnly bool
}

// Scope reports which command menu lists the command.
func (c Command) Scope() string {
	if c.AdminOnly {
		return "admin"
	}
	return "public"
}
