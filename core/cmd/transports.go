package cmd

import (
	"context"
	"log/slog"

	coreconfig "github.com/m3rciful/menubot/core/config"
	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/metrics"
	coretelegram "github.com/m3rciful/menubot/core/telegram"
	"github.com/m3rciful/menubot/core/telegram/commands"
	tghelpers "github.com/m3rciful/menubot/core/telegram/helpers"
	tgrouter "github.com/m3rciful/menubot/core/telegram/router"
	tgsender "github.com/m3rciful/menubot/core/telegram/sender"
	"github.com/m3rciful/menubot/core/whatsapp"

	"golang.org/x/sync/errgroup"
)

// DefaultTransports maps transport names to their runners.
func DefaultTransports() map[string]TransportRunner {
	return map[string]TransportRunner{
		coreconfig.TransportTelegram: RunTelegram,
		coreconfig.TransportWhatsApp: RunWhatsApp,
	}
}

// RunTelegram serves conversations through the Telegram Bot API.
func RunTelegram(ctx context.Context, env Env) error {
	cfg := env.Config
	bot, err := coretelegram.NewBot(cfg)
	if err != nil {
		return err
	}

	disp, err := NewDispatcher(env, tghelpers.Transport, tgsender.New(bot))
	if err != nil {
		return err
	}

	reg := coretelegram.NewRegistry()
	if err := reg.RegisterCommand("/sessions", commands.Sessions(disp)); err != nil {
		return err
	}
	if err := reg.RegisterCommand("/release", commands.Release(disp)); err != nil {
		return err
	}

	var selfID int64
	if bot.Me != nil {
		selfID = bot.Me.ID
	}
	routes := tgrouter.CommandRoutes(reg, tgrouter.CommandRouteOptions{AdminID: cfg.Telegram.AdminID})
	routes = append(routes, tgrouter.ConversationRoutes(disp, tgrouter.ConversationOptions{SelfID: selfID})...)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	if cfg.Metrics.Listen != "" {
		g.Go(func() error { return metrics.Serve(gctx, cfg.Metrics.Listen) })
	}
	g.Go(func() error {
		defer stop()
		return coretelegram.RunTelegram(gctx, coretelegram.RunOptions{
			Config:      cfg,
			Bot:         bot,
			Registry:    reg,
			Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
			Routes:      routes,
			OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
				logReady(ctx, env)
				return nil
			},
			OnStop: func(context.Context, coretelegram.Runtime) error {
				disp.Close()
				return nil
			},
		})
	})
	if err := g.Wait(); err != nil {
		logger.Error(ctx, logger.CompApp, "transport", slog.String("err", err.Error()))
		return err
	}
	return ctx.Err()
}

// RunWhatsApp serves conversations through Twilio's WhatsApp webhook.
func RunWhatsApp(ctx context.Context, env Env) error {
	wa := env.Config.WhatsApp
	sender := whatsapp.NewTwilioSender(wa.AccountSID, wa.AuthToken, wa.From)
	disp, err := NewDispatcher(env, whatsapp.Transport, sender)
	if err != nil {
		return err
	}
	defer disp.Close()

	srv := whatsapp.NewServer(wa, disp)
	logReady(ctx, env)
	return srv.Run(ctx)
}
