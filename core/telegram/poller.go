package telegram

import (
	"fmt"
	"time"

	coreconfig "github.com/m3rciful/menubot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollSeconds = 10

// BuildPoller returns the webhook or long-polling poller selected by cfg.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg)}
}

func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	sec := cfg.Telegram.LongPollTimeoutSeconds
	if sec <= 0 {
		sec = defaultLongPollSeconds
	}
	return time.Duration(sec) * time.Second
}
