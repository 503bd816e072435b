package app

import (
	"fmt"
	"strings"

	"birthday_notification_bot/internal/domain/notification"
)

const reportRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// RenderReport is the long markdown version saved next to the JSON data.
func RenderReport(r *notification.Report) string {
	var b strings.Builder
	section := func(title string) {
		fmt.Fprintf(&b, "\n%s\n%s\n%s\n", reportRule, title, reportRule)
	}

	b.WriteString("# 🎖️ RELATÓRIO DIÁRIO - SISTEMA PM\n\n")
	fmt.Fprintf(&b, "📅 Data: %s\n", r.Date)
	fmt.Fprintf(&b, "⏰ Horário: %s (%s)\n", r.GeneratedAt.Format("02/01/2006 15:04:05"), r.Timezone)

	section("📊 RESUMO GERAL")
	fmt.Fprintf(&b, "👥 Total de Policiais: %d\n", r.TotalRecords)
	if r.InvalidRecords > 0 {
		fmt.Fprintf(&b, "⚠️ Registros inválidos: %d\n", r.InvalidRecords)
	}
	fmt.Fprintf(&b, "🎂 Aniversários Hoje: %d\n", len(r.Today))
	fmt.Fprintf(&b, "📱 Notificações Hoje: %d\n", r.NotificationsToday)
	fmt.Fprintf(&b, "📅 Esta Semana: %d\n", r.ThisWeekCount())
	fmt.Fprintf(&b, "📆 Este Mês: %d\n", r.ThisMonthCount)

	section("🎂 ANIVERSÁRIOS HOJE")
	if len(r.Today) == 0 {
		b.WriteString("📝 Nenhum aniversário hoje\n")
	}
	for _, e := range r.Today {
		fmt.Fprintf(&b, "🎉 %s%s\n", displayEntry(e), agePart(e.NextAge))
	}

	section("📅 PRÓXIMOS 7 DIAS")
	if len(r.Next7Days) == 0 {
		b.WriteString("📝 Nenhum aniversário na próxima semana\n")
	}
	for _, e := range r.Next7Days {
		fmt.Fprintf(&b, "%s: %s%s\n", daysLabel(e.DaysUntil), displayEntry(e), agePart(e.NextAge))
	}

	section("🎖️ POR GRADUAÇÃO")
	for _, c := range r.ByGraduation {
		fmt.Fprintf(&b, "%s: %s\n", c.Label, policeCount(c.Count))
	}

	section("🏢 MAIORES UNIDADES")
	for _, c := range r.ByUnit {
		fmt.Fprintf(&b, "%s: %s\n", c.Label, policeCount(c.Count))
	}

	section("🔧 SAÚDE DO SISTEMA")
	fmt.Fprintf(&b, "🗄️ Banco de dados: %s\n", r.Health.Store)
	fmt.Fprintf(&b, "📱 Mensageria: %s\n", r.Health.Transport)
	fmt.Fprintf(&b, "❌ Erros Hoje: %d\n", r.Health.ErrorsToday)
	fmt.Fprintf(&b, "⏰ Última Execução: %s\n", r.Health.LastExecution)
	fmt.Fprintf(&b, "🔄 Próxima Execução: %s\n", r.Health.NextExecution)

	section("📈 ESTATÍSTICAS")
	fmt.Fprintf(&b, "📊 Idade Média (Este Mês): %.1f anos\n", r.ThisMonthAvgAge)
	fmt.Fprintf(&b, "📆 Próximos 15 dias: %d\n", len(r.Next15Days))
	fmt.Fprintf(&b, "🗓️ Próximos 30 dias: %d\n", len(r.Next30Days))
	fmt.Fprintf(&b, "📱 Fila de Envio: %d\n", r.QueueNow)

	return b.String()
}

// RenderShortReport fits in one chat message.
func RenderShortReport(r *notification.Report) string {
	var b strings.Builder
	b.WriteString("🎖️ RELATÓRIO DIÁRIO PM 📊\n\n")
	fmt.Fprintf(&b, "📅 %s\n\n", r.Date)
	fmt.Fprintf(&b, "🎂 Hoje: %d aniversário%s\n", len(r.Today), plural(len(r.Today), "", "s"))
	fmt.Fprintf(&b, "📅 Esta semana: %d\n", r.ThisWeekCount())
	fmt.Fprintf(&b, "📆 Este mês: %d\n", r.ThisMonthCount)
	fmt.Fprintf(&b, "👥 Total: %d policiais\n", r.TotalRecords)

	if len(r.Today) > 0 {
		b.WriteString("\n🎉 ANIVERSÁRIOS HOJE:\n")
		for _, e := range r.Today {
			fmt.Fprintf(&b, "%s%s\n", displayEntry(e), agePart(e.NextAge))
		}
	}
	if len(r.Next7Days) > 0 {
		b.WriteString("\n📅 PRÓXIMOS 7 DIAS:\n")
		for i, e := range r.Next7Days {
			if i == 5 {
				fmt.Fprintf(&b, "...e mais %d\n", len(r.Next7Days)-5)
				break
			}
			fmt.Fprintf(&b, "%dd: %s\n", e.DaysUntil, displayEntry(e))
		}
	}

	online := "✅"
	if r.Health.Store != notification.HealthHealthy {
		online = "❌"
	}
	fmt.Fprintf(&b, "\n🔧 Sistema: %s Online\n", online)
	fmt.Fprintf(&b, "📱 Última exec: %s\n", r.Health.LastExecution)
	return b.String()
}

func displayEntry(e notification.ReportEntry) string {
	if e.Graduation == "" {
		return e.Name
	}
	return e.Graduation + " " + e.Name
}

func agePart(age int) string {
	if age <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%d anos)", age)
}

func daysLabel(days int) string {
	switch days {
	case 0:
		return "🎂 HOJE"
	case 1:
		return "📅 AMANHÃ"
	default:
		return fmt.Sprintf("📅 %d dias", days)
	}
}

func policeCount(n int) string {
	return fmt.Sprintf("%d policia%s", n, plural(n, "l", "is"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
