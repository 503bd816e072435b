package app

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
)

const reminderTemplate = `🎉 *LEMBRETE DE ANIVERSÁRIO PM* 🎂

📅 *Data:* {{.Date}} ({{.When}}!)
🎖️ *Graduação:* {{.Graduation}}
👤 *Nome:* {{.Name}}
{{- if .Age}}
🎈 *Idade:* {{.Age}} anos
{{- end}}
📞 *Telefone:* {{.Phone}}
👥 *Relacionamento:* {{.Relationship}}
{{- if .Unit}}
🏢 *Unidade:* {{.Unit}}
{{- end}}

🎁 *Não esqueça de parabenizar nosso companheiro da PM!*
💐 *Sugestões:* Ligação, mensagem, presente ou visita

---
_Sistema Automático PM_ 🎖️
_{{.Timestamp}}_
{{- if .ExecutionID}}
_Execução: {{.ExecutionID}}_
{{- end}}`

type reminderView struct {
	Date         string
	When         string
	Graduation   string
	Name         string
	Age          int
	Phone        string
	Relationship string
	Unit         string
	Timestamp    string
	ExecutionID  string
}

// Composer renders the reminder text. It performs no I/O.
type Composer struct {
	loc  *time.Location
	tmpl *template.Template
}

func NewComposer(loc *time.Location) *Composer {
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{
		loc:  loc,
		tmpl: template.Must(template.New("reminder").Parse(reminderTemplate)),
	}
}

// Compose builds the message for one candidate. now only feeds the footer timestamp.
func (c *Composer) Compose(cand Candidate, now time.Time, executionID string) (string, error) {
	r := cand.Record
	view := reminderView{
		Date:         cand.Occurrence.Format("02/01/2006"),
		When:         WhenText(cand.DaysUntilEvent),
		Graduation:   orDash(r.Graduation),
		Name:         orDash(r.Name),
		Age:          birthday.AgeAt(cand.Schedule.Birth, cand.Occurrence),
		Phone:        orDash(r.Phone),
		Relationship: orDash(r.Relationship),
		Unit:         strings.TrimSpace(r.Unit),
		Timestamp:    now.In(c.loc).Format("02/01/2006, 15:04:05"),
		ExecutionID:  executionID,
	}

	var b strings.Builder
	if err := c.tmpl.Execute(&b, view); err != nil {
		return "", fmt.Errorf("failed to render reminder for record %s: %w", r.ID, err)
	}
	return b.String(), nil
}

// WhenText phrases the distance to the birthday the way the reminder headline shows it.
func WhenText(days int) string {
	switch days {
	case 0:
		return "HOJE"
	case 1:
		return "AMANHÃ"
	default:
		return fmt.Sprintf("EM %d DIAS", days)
	}
}

func orDash(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return s
}
