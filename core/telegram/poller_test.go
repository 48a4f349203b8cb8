package telegram

import (
	"testing"
	"time"

	coreconfig "github.com/m3rciful/menubot/core/config"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPollerWebhook(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook = coreconfig.WebhookConfig{URL: "https://bot.example.com/hook", Listen: "0.0.0.0", Port: 8443}

	wh, ok := BuildPoller(cfg).(*tele.Webhook)
	if !ok {
		t.Fatal("expected webhook poller")
	}
	if wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://bot.example.com/hook" {
		t.Fatalf("unexpected webhook %+v", wh)
	}
}

func TestBuildPollerLongpollDefaults(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll

	lp, ok := BuildPoller(cfg).(*tele.LongPoller)
	if !ok {
		t.Fatal("expected long poller")
	}
	if lp.Timeout != 10*time.Second {
		t.Fatalf("timeout = %s, want 10s", lp.Timeout)
	}

	cfg.Telegram.LongPollTimeoutSeconds = 30
	if lp := BuildPoller(cfg).(*tele.LongPoller); lp.Timeout != 30*time.Second {
		t.Fatalf("timeout = %s, want 30s", lp.Timeout)
	}
}

func TestDefaultMiddlewaresRateLimitOptional(t *testing.T) {
	cfg := &coreconfig.Config{}
	names := func(mws []Middleware) []string {
		var out []string
		for _, mw := range mws {
			out = append(out, mw.Name)
		}
		return out
	}

	got := names(DefaultMiddlewares(cfg, nil))
	if len(got) != 2 || got[0] != "recover" || got[1] != "logger" {
		t.Fatalf("unexpected chain %v", got)
	}

	cfg.RateLimit.IntervalMS = 500
	got = names(DefaultMiddlewares(cfg, nil))
	if len(got) != 3 || got[1] != "rate_limit" {
		t.Fatalf("unexpected chain %v", got)
	}
}

func TestSettingsSynchronous(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.Token = "token"

	s := Settings(cfg)
	if !s.Synchronous {
		t.Fatal("updates must be handled synchronously")
	}
	if s.Token != "token" || s.Poller == nil || s.Client == nil {
		t.Fatalf("unexpected settings %+v", s)
	}
}
