package commands

import (
	"strings"
	"testing"

	"github.com/m3rciful/menubot/core/conversation"
)

func TestRenderSessions(t *testing.T) {
	if got := RenderSessions(nil); got != "No hay conversaciones activas." {
		t.Fatalf("empty render = %q", got)
	}

	out := RenderSessions([]conversation.State{
		{ID: "42", Stage: conversation.StageWithAgent, Category: conversation.CategoryOrder},
		{ID: "43", Stage: conversation.StageMain, Armed: true},
	})
	for _, want := range []string{"*Conversaciones activas: 2*", `42: WITH\_AGENT (order)`, "43: main ⏱"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q in:\n%s", want, out)
		}
	}
}
