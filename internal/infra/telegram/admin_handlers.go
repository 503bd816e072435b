package telegram

import (
	"context"
	"errors"
	"strings"

	"birthday_notification_bot/internal/app"
	"birthday_notification_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// maxMessageRunes stays under Telegram's 4096 character limit.
const maxMessageRunes = 4000

// Operator is the set of admin actions the chat exposes. *app.AdminService implements it.
type Operator interface {
	IsAdmin(telegramID int64) bool
	Queue(ctx context.Context, performingAdminID int64) (*app.QueuePreview, error)
	TriggerRun(ctx context.Context, performingAdminID int64, force bool) (*notification.RunResult, error)
	DailyReport(ctx context.Context, performingAdminID int64) (*notification.Report, error)
	Health(ctx context.Context, performingAdminID int64) (*app.HealthReport, error)
}

type adminHandlers struct {
	ctx    context.Context
	op     Operator
	logger *logrus.Entry
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, op Operator, baseLogger *logrus.Entry) {
	h := &adminHandlers{ctx: ctx, op: op, logger: baseLogger}
	b.Handle("/queue", h.queue)
	b.Handle("/run", h.run)
	b.Handle("/report", h.report)
	b.Handle("/health", h.health)
}

func (h *adminHandlers) handlerLogger(c telebot.Context, name string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"handler":   name,
		"sender_id": c.Sender().ID,
	})
}

func (h *adminHandlers) queue(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/queue")
	handlerLogger.Info("Command received")

	preview, err := h.op.Queue(h.ctx, c.Sender().ID)
	if err != nil {
		return h.replyError(c, handlerLogger, err, "consultar a fila")
	}
	handlerLogger.WithField("queue_size", len(preview.Items)).Info("Queue listed")
	return c.Send(clip(formatQueue(preview)))
}

// run triggers a dispatch now. "/run force" also skips the send-time gate.
func (h *adminHandlers) run(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/run")
	handlerLogger.Info("Command received")

	force := false
	if args := c.Args(); len(args) > 0 {
		if strings.ToLower(args[0]) != "force" {
			return c.Send("Formato inválido. Use: /run [force]")
		}
		force = true
	}

	res, err := h.op.TriggerRun(h.ctx, c.Sender().ID, force)
	if err != nil && res == nil {
		return h.replyError(c, handlerLogger, err, "executar as notificações")
	}
	if err != nil {
		handlerLogger.WithError(err).Warn("Run finished with error")
	}
	handlerLogger.WithFields(logrus.Fields{
		"execution_id": res.ExecutionID,
		"status":       res.Status,
		"force":        force,
	}).Info("Run triggered from chat")
	return c.Send(clip(formatRun(res)))
}

func (h *adminHandlers) report(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/report")
	handlerLogger.Info("Command received")

	rep, err := h.op.DailyReport(h.ctx, c.Sender().ID)
	if err != nil {
		return h.replyError(c, handlerLogger, err, "gerar o relatório")
	}
	return c.Send(clip(app.RenderShortReport(rep)))
}

func (h *adminHandlers) health(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/health")
	handlerLogger.Info("Command received")

	rep, err := h.op.Health(h.ctx, c.Sender().ID)
	if err != nil {
		return h.replyError(c, handlerLogger, err, "verificar a saúde do sistema")
	}
	return c.Send(formatHealth(rep))
}

func (h *adminHandlers) replyError(c telebot.Context, log *logrus.Entry, err error, action string) error {
	logWithError := log.WithError(err)
	switch {
	case errors.Is(err, app.ErrAdminNotAuthorized):
		logWithError.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	case errors.Is(err, app.ErrAdminNotConfigured):
		logWithError.Warn("Admin command used without a configured admin")
		return c.Send(msgNotConfigured)
	case errors.Is(err, app.ErrRunInProgress):
		logWithError.Info("Run already in progress")
		return c.Send(msgBusy)
	default:
		logWithError.Error("Command failed")
		return c.Send("Ocorreu um erro ao " + action + ": " + err.Error())
	}
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageRunes {
		return s
	}
	return string(r[:maxMessageRunes]) + "\n…"
}
