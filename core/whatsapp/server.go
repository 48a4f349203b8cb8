package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/twilio/twilio-go/client"

	coreconfig "github.com/m3rciful/menubot/core/config"
	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/metrics"
)

const (
	signatureHeader = "X-Twilio-Signature"
	emptyTwiML      = "<Response></Response>"
	shutdownTimeout = 5 * time.Second
)

// Server receives Twilio webhooks and feeds them to the dispatcher.
type Server struct {
	cfg       coreconfig.WhatsAppConfig
	app       *fiber.App
	disp      Dispatcher
	validator client.RequestValidator
}

// NewServer builds the fiber app with the webhook, /healthz and /metrics routes.
func NewServer(cfg coreconfig.WhatsAppConfig, d Dispatcher) *Server {
	s := &Server{
		cfg:       cfg,
		disp:      d,
		validator: client.NewRequestValidator(cfg.AuthToken),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			logger.Warn(logger.Background(), logger.CompWhatsApp, "http.error",
				slog.String("path", c.Path()),
				slog.Int("status", code),
				slog.String("err", err.Error()),
			)
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handlers := []fiber.Handler{}
	if cfg.ValidateSignature {
		handlers = append(handlers, s.verifySignature)
	}
	handlers = append(handlers, s.handleWebhook)
	app.Post(cfg.Path, handlers...)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run serves until ctx is done, then shuts the app down.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Listen, s.cfg.Port)
	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(addr) }()

	logger.Info(ctx, logger.CompWhatsApp, "listen",
		slog.String("addr", addr),
		slog.String("path", s.cfg.Path),
		slog.Bool("validate_signature", s.cfg.ValidateSignature),
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("whatsapp: listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("whatsapp: shutdown: %w", err)
	}
	logger.Info(ctx, logger.CompWhatsApp, "shutdown", slog.String("status", "ok"))
	return nil
}

func (s *Server) verifySignature(c *fiber.Ctx) error {
	sig := c.Get(signatureHeader)
	params := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		params[string(k)] = string(v)
	})
	if sig == "" || !s.validator.Validate(s.cfg.PublicURL, params, sig) {
		logger.Warn(logger.Background(), logger.CompWhatsApp, "signature.reject",
			slog.Bool("present", sig != ""),
		)
		return fiber.NewError(fiber.StatusForbidden, "invalid signature")
	}
	return c.Next()
}

// handleWebhook dispatches each message as its request arrives. Twilio does
// not guarantee delivery order, so neither does this handler.
func (s *Server) handleWebhook(c *fiber.Ctx) error {
	var in Inbound
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid webhook payload")
	}
	if in.From == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing From")
	}

	msg := ToMessage(in, s.cfg.From)
	ctx := logger.WithLogger(c.UserContext(), logger.Component(logger.CompWhatsApp))
	if msg.RID != "" {
		ctx = logger.WithRID(ctx, msg.RID)
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(logger.WithConversation(ctx, msg.ConversationID), logger.CompWhatsApp, "update.received",
			slog.String("kind", msg.Kind()),
			slog.Int("media", in.mediaCount()),
		)
	}

	if err := s.disp.Dispatch(ctx, msg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextXMLCharsetUTF8)
	return c.SendString(emptyTwiML)
}
