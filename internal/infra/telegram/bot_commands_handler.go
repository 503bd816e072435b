// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

type commandHandlers struct {
	op     Operator
	logger *logrus.Entry
}

func RegisterBotCommands(b *telebot.Bot, op Operator, baseLogger *logrus.Entry) {
	h := &commandHandlers{op: op, logger: baseLogger.WithField("handler_group", "start_help")}
	b.Handle("/start", h.start)
	b.Handle("/help", h.help)
}

func (h *commandHandlers) start(c telebot.Context) error {
	senderID := c.Sender().ID
	logCtx := h.logger.WithField("command", "/start").WithField("sender_id", senderID)
	logCtx.Info("Processing /start command")

	if h.op.IsAdmin(senderID) {
		logCtx.Info("User identified as Admin")
		return c.Send(fmt.Sprintf("Olá, administrador %s! O bot de aniversários está ativo. Use /help para ver os comandos.", c.Sender().FirstName))
	}

	logCtx.Info("User is unknown")
	return c.Send(fmt.Sprintf("Olá! Este bot envia lembretes de aniversário e só responde ao administrador. Seu ID do Telegram é %d.", senderID))
}

func (h *commandHandlers) help(c telebot.Context) error {
	senderID := c.Sender().ID
	logCtx := h.logger.WithField("command", "/help").WithField("sender_id", senderID)
	logCtx.Info("Processing /help command")

	if !h.op.IsAdmin(senderID) {
		logCtx.Info("User is not an admin, sending restricted help.")
		return c.Send("Nenhum comando disponível para você. Peça ao administrador para configurar seu acesso.")
	}

	var helpText strings.Builder
	helpText.WriteString("Comandos do administrador:\n\n")
	helpText.WriteString("/queue - aniversários com notificação hoje e o estado de cada envio\n")
	helpText.WriteString("/run - executa o envio agora, respeitando o horário configurado\n")
	helpText.WriteString("/run force - executa o envio agora, ignorando o horário\n")
	helpText.WriteString("/report - gera e salva o relatório diário\n")
	helpText.WriteString("/health - verifica banco de dados, envio e configuração\n")
	helpText.WriteString("/help - mostra esta mensagem")
	return c.Send(helpText.String())
}
