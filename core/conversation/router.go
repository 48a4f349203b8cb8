package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/metrics"
)

// option is one entry of a menu table. end tears the conversation down
// after replies are sent.
type option struct {
	next     Stage
	category Category
	replies  []string
	end      bool
	reason   string
}

type menu struct {
	options map[string]option
	invalid string
}

func goTo(next Stage, replies ...string) option {
	return option{next: next, replies: replies}
}

func handTo(category Category, reply string) option {
	return option{next: StageWithAgent, category: category, replies: []string{reply}}
}

func finish(reason, reply string) option {
	return option{end: true, reason: reason, replies: []string{reply}}
}

var menus = map[Stage]menu{
	StageTerms: {
		options: map[string]option{
			"1": goTo(StageMain, mainPrompt),
			"2": finish(EndTermsRejected, msgTermsRejected),
		},
		invalid: "Opción no válida. Selecciona 1 para aceptar o 2 para rechazar.",
	},
	StageMain: {
		options: map[string]option{
			"1": goTo(StageAgentCategory, agentCategoryPrompt),
			"2": goTo(StageOrder, orderPrompt),
			"3": goTo(StageComplaints, complaintsPrompt),
			"4": goTo(StageAwaitingResume, msgResumePrompt),
			"5": finish(EndGoodbye, msgGoodbye),
		},
		invalid: "Opción no válida. Seleccione un número del 1 al 5.",
	},
	StageAgentCategory: {
		options: map[string]option{
			"1": handTo(CategorySales, "¡Ok! 😉 Un asesor de Ventas y Productos te contactará en breve."),
			"2": handTo(CategorySupport, "¡Ok! 😉 Un asesor de Soporte Técnico te contactará en breve."),
			"3": goTo(StageMain, mainPrompt),
		},
		invalid: "Opción no válida. Seleccione un número del 1 al 3.",
	},
	StageOrder: {
		options: map[string]option{
			"1": goTo(StageAwaitingOrderNumber, "Por favor, indique el número de su pedido."),
			"2": goTo(StageOrder,
				"Consultando sus pedidos recientes... Un momento, por favor.",
				"No hay pedidos recientes registrados. Si desea, indique un número de pedido específico.",
			),
			"3": goTo(StageMain, mainPrompt),
		},
		invalid: "Opción no válida. Seleccione un número del 1 al 3.",
	},
	StageComplaints: {
		options: map[string]option{
			"1": goTo(StageAwaitingComplaintDescription, "Por favor, describa brevemente su reclamo."),
			"2": goTo(StageAwaitingComplaintNumber, "Por favor, indique el número de su reclamo."),
			"3": goTo(StageAwaitingReturnNumber, "Por favor, indique el número de pedido para la devolución."),
			"4": goTo(StageMain, mainPrompt),
		},
		invalid: "Opción no válida. Seleccione un número del 1 al 4.",
	},
}

// collector captures one free-form value and hands the conversation to an agent.
type collector struct {
	category     Category
	needDocument bool
	ack          func(detail string) []string
}

var collectors = map[Stage]collector{
	StageAwaitingOrderNumber: {
		category: CategoryOrder,
		ack: func(v string) []string {
			return []string{
				fmt.Sprintf("Gracias. Su pedido es el #%s.", v),
				"Un asesor está revisando el estado de su pedido. Por favor, espere un momento.",
			}
		},
	},
	StageAwaitingComplaintDescription: {
		category: CategoryComplaint,
		ack: func(v string) []string {
			return []string{fmt.Sprintf("Reclamo registrado: \"%s\". Un asesor lo revisará pronto.", v)}
		},
	},
	StageAwaitingComplaintNumber: {
		category: CategoryComplaint,
		ack: func(v string) []string {
			return []string{
				fmt.Sprintf("Gracias. Su reclamo es el #%s.", v),
				"Un asesor está revisando el estado de su reclamo. Por favor, espere un momento.",
			}
		},
	},
	StageAwaitingReturnNumber: {
		category: CategoryReturn,
		ack: func(v string) []string {
			return []string{fmt.Sprintf("Solicitud de devolución para el pedido #%s registrada. Un asesor lo contactará pronto.", v)}
		},
	},
	StageAwaitingResume: {
		category:     CategoryResume,
		needDocument: true,
		ack: func(v string) []string {
			return []string{
				fmt.Sprintf("¡Gracias! Recibimos tu hoja de vida (%s).", v),
				"Nuestro equipo de talento humano la revisará y te contactará si tu perfil se ajusta a alguna vacante.",
			}
		},
	},
}

// router applies one inbound message to the conversation's current stage.
type router struct {
	store     *Store
	sched     *Scheduler
	out       outbox
	journal   journalWriter
	transport string
	now       func() time.Time
}

func (r *router) route(ctx context.Context, st State, msg Message) error {
	switch st.Stage {
	case StageTerms, StageMain, StageAgentCategory, StageOrder, StageComplaints:
		return r.choose(ctx, st, menus[st.Stage], msg)
	case StageAwaitingOrderNumber, StageAwaitingComplaintDescription, StageAwaitingComplaintNumber,
		StageAwaitingReturnNumber, StageAwaitingResume:
		return r.collect(ctx, st, collectors[st.Stage], msg)
	case StageWithAgent:
		logger.Debug(ctx, logger.CompConversation, "agent.passthrough")
		return nil
	default:
		if st.Stage != StageStart {
			logger.Warn(ctx, logger.CompConversation, "stage.unknown", slog.String("stage", string(st.Stage)))
		}
		return r.begin(ctx, st.ID)
	}
}

// begin sends the terms prompt and installs a fresh state at the terms stage.
func (r *router) begin(ctx context.Context, id string) error {
	if err := r.out.send(ctx, id, termsPrompt); err != nil {
		return err
	}
	_, existed := r.store.Get(id)
	r.store.Create(id, StageTerms)
	if !existed {
		metrics.RecordStart()
	}
	logger.Info(ctx, logger.CompConversation, "conversation.start",
		slog.String("to_stage", string(StageTerms)),
		slog.Bool("restart", existed),
	)
	return nil
}

func (r *router) choose(ctx context.Context, st State, m menu, msg Message) error {
	choice := normalizeChoice(msg.Text())
	opt, ok := m.options[choice]
	if !ok {
		logger.Debug(ctx, logger.CompConversation, "option.invalid",
			slog.String("stage", string(st.Stage)),
			slog.String("choice", logger.SanitizeLimit(choice, 32)),
		)
		return r.out.send(ctx, st.ID, m.invalid)
	}

	if opt.end {
		r.sched.Disarm(st.ID)
		r.store.Delete(st.ID)
		metrics.RecordEnd(opt.reason)
		logger.Info(ctx, logger.CompConversation, "conversation.end",
			slog.String("from_stage", string(st.Stage)),
			slog.String("reason", opt.reason),
		)
		return r.out.send(ctx, st.ID, opt.replies...)
	}

	if err := r.out.send(ctx, st.ID, opt.replies...); err != nil {
		return err
	}
	r.advance(ctx, st, opt.next, opt.category, "")
	return nil
}

func (r *router) collect(ctx context.Context, st State, c collector, msg Message) error {
	detail := strings.TrimSpace(msg.Text())
	if c.needDocument {
		doc, ok := msg.Document()
		if !ok {
			return r.out.send(ctx, st.ID, msgResumePrompt)
		}
		detail = doc.describe()
	}

	if err := r.out.send(ctx, st.ID, c.ack(detail)...); err != nil {
		return err
	}
	r.advance(ctx, st, StageWithAgent, c.category, detail)
	return nil
}

// advance applies a transition and emits a handoff when it reaches WITH_AGENT.
func (r *router) advance(ctx context.Context, st State, next Stage, category Category, detail string) {
	r.store.Transition(st.ID, next, category)
	logger.Info(ctx, logger.CompConversation, "stage.transition",
		slog.String("from_stage", string(st.Stage)),
		slog.String("to_stage", string(next)),
		slog.String("category", string(category)),
	)
	if next != StageWithAgent {
		return
	}

	// Agent conversations never expire.
	r.sched.Disarm(st.ID)
	if category == CategoryNone {
		category = st.Category
	}
	metrics.RecordHandoff(string(category))
	h := Handoff{
		ConversationID: st.ID,
		Transport:      r.transport,
		Category:       category,
		Detail:         detail,
		CreatedAt:      r.now(),
	}
	if err := r.journal.record(ctx, h); err != nil {
		logger.Warn(ctx, logger.CompConversation, "handoff.record",
			slog.String("status", "fail"),
			slog.String("category", string(category)),
			slog.String("err", err.Error()),
		)
	}
}
