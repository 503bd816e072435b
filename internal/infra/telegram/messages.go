package telegram

import (
	"fmt"
	"strings"
	"time"

	"birthday_notification_bot/internal/app"
	"birthday_notification_bot/internal/domain/notification"
)

const (
	msgUnauthorized  = "Erro: você não tem permissão para executar este comando."
	msgNotConfigured = "Erro: nenhum administrador configurado (ADMIN_TELEGRAM_ID)."
	msgBusy          = "⏳ Já existe uma execução em andamento. Tente novamente em instantes."
)

func formatQueue(p *app.QueuePreview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Fila de hoje (%s %s)\n\n", p.Date, p.CurrentTime)
	if len(p.Items) == 0 {
		b.WriteString("📝 Nenhuma notificação para hoje.\n")
	}
	for _, it := range p.Items {
		state := "⏳ pendente"
		switch {
		case it.AlreadySent:
			state = "✅ enviado"
		case !it.Due:
			state = "🕒 aguardando " + it.SendAt
		}
		fmt.Fprintf(&b, "• %s - %s (%s) %s\n", it.Name, shortDate(it.Date), app.WhenText(it.DaysUntilEvent), state)
	}
	if n := len(p.DataErrors); n > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d registro(s) com dados inválidos ignorado(s).\n", n)
	}
	return b.String()
}

func formatRun(r *notification.RunResult) string {
	var b strings.Builder
	switch r.Status {
	case notification.RunStatusCompleted:
		b.WriteString("✅ Execução concluída\n")
	case notification.RunStatusNoNotifications:
		b.WriteString("📝 Nenhuma notificação pendente\n")
	case notification.RunStatusWaiting:
		b.WriteString("🕒 Aguardando horário de envio\n")
	case notification.RunStatusDisabled:
		b.WriteString("⏸️ Notificações desativadas\n")
	case notification.RunStatusAborted:
		b.WriteString("⚠️ Execução interrompida\n")
	default:
		b.WriteString("❌ Erro na execução\n")
	}
	fmt.Fprintf(&b, "ID: %s\n", r.ExecutionID)
	if r.TestMode {
		b.WriteString("🧪 Modo de teste\n")
	}
	fmt.Fprintf(&b, "Fila: %d | Enviadas: %d | Erros: %d | Já notificados: %d\n", r.Eligible, r.Sent, r.Failed, r.Skipped)
	if r.Tested > 0 {
		fmt.Fprintf(&b, "Testadas: %d\n", r.Tested)
	}
	if r.Message != "" {
		b.WriteString(r.Message + "\n")
	}
	if r.Error != "" {
		b.WriteString("Erro: " + r.Error + "\n")
	}
	return b.String()
}

func formatHealth(h *app.HealthReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔧 Saúde do sistema: %s\n\n", h.Status)
	for _, c := range h.Checks {
		fmt.Fprintf(&b, "• %s: %s", c.Name, c.Status)
		if c.Latency > 0 {
			fmt.Fprintf(&b, " (%s)", c.Latency.Round(time.Millisecond))
		}
		if c.Message != "" {
			fmt.Fprintf(&b, " - %s", c.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// shortDate turns YYYY-MM-DD into DD/MM.
func shortDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01")
}
