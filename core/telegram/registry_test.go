package telegram

import (
	"testing"

	"github.com/m3rciful/menubot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommandValidation(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCommand("sessions", commands.Command{Handler: noop, Description: "x"}); err == nil {
		t.Fatal("expected error for name without slash")
	}
	if err := reg.RegisterCommand("/sessions", commands.Command{Description: "x"}); err == nil {
		t.Fatal("expected error for nil handler")
	}
	if err := reg.RegisterCommand("/sessions", commands.Command{Handler: noop, Description: "x"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterCommand("/sessions", commands.Command{Handler: noop, Description: "y"}); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestListCommandsByScope(t *testing.T) {
	reg := NewRegistry()
	for name, cmd := range map[string]commands.Command{
		"/sessions": {Handler: noop, Description: "list sessions", AdminOnly: true},
		"/release":  {Handler: noop, Description: "release", AdminOnly: true},
		"/help":     {Handler: noop, Description: "help"},
	} {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	public := reg.ListCommands(false)
	if len(public) != 1 || public[0].Text != "help" {
		t.Fatalf("public commands = %+v", public)
	}
	admin := reg.ListCommands(true)
	if len(admin) != 2 || admin[0].Text != "release" || admin[1].Text != "sessions" {
		t.Fatalf("admin commands = %+v", admin)
	}
	if got := reg.Commands()["/sessions"].Scope(); got != "admin" {
		t.Fatalf("scope = %q, want admin", got)
	}
	if got := reg.Commands()["/help"].Scope(); got != "public" {
		t.Fatalf("scope = %q, want public", got)
	}
}
