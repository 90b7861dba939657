package mailer

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	contracts "contentboard/contracts/mq"
	"contentboard/internal/model"
)

var weekdayLabels = map[string]string{
	"Sunday":    "Domingo",
	"Monday":    "Segunda-feira",
	"Tuesday":   "Terça-feira",
	"Wednesday": "Quarta-feira",
	"Thursday":  "Quinta-feira",
	"Friday":    "Sexta-feira",
	"Saturday":  "Sábado",
}

type taskView struct {
	Type        string
	Platforms   string
	Format      string
	When        string
	ContentIdea string
}

const textBody = `Olá!

Uma nova tarefa de conteúdo foi atribuída a você.

Tipo: {{.Type}}
Plataformas: {{.Platforms}}
{{- if .Format}}
Formato: {{.Format}}
{{- end}}
Quando: {{.When}}

Ideia de conteúdo:
{{.ContentIdea}}
`

const htmlBody = `<html><body>
<p>Olá!</p>
<p>Uma nova tarefa de conteúdo foi atribuída a você.</p>
<ul>
<li><strong>Tipo:</strong> {{.Type}}</li>
<li><strong>Plataformas:</strong> {{.Platforms}}</li>
{{- if .Format}}
<li><strong>Formato:</strong> {{.Format}}</li>
{{- end}}
<li><strong>Quando:</strong> {{.When}}</li>
</ul>
<p><strong>Ideia de conteúdo:</strong><br>{{.ContentIdea}}</p>
</body></html>
`

var (
	textTmpl = texttemplate.Must(texttemplate.New("text").Parse(textBody))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlBody))
)

// RenderTaskCreated builds the notification sent to a new task's responsible users.
func RenderTaskCreated(p contracts.ScheduleCreatedPayload, from, domain string, recipients []string) (*Message, error) {
	v := taskView{
		Type:        orDash(p.Type),
		Platforms:   orDash(strings.Join(p.Platforms, ", ")),
		Format:      p.Format,
		When:        describeWhen(p),
		ContentIdea: orDash(p.ContentIdea),
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, v); err != nil {
		return nil, err
	}
	if err := htmlTmpl.Execute(&html, v); err != nil {
		return nil, err
	}

	return &Message{
		ID:       NewMessageID(domain),
		From:     from,
		To:       recipients,
		Subject:  "Nova tarefa de conteúdo: " + v.Type,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

func describeWhen(p contracts.ScheduleCreatedPayload) string {
	var parts []string
	if p.PublishDate != "" {
		if d, err := model.ParseDate(p.PublishDate); err == nil {
			parts = append(parts, d.In(time.UTC).Format("02/01/2006"))
		} else {
			parts = append(parts, p.PublishDate)
		}
	}
	if len(p.RecurrenceDays) > 0 {
		days := make([]string, 0, len(p.RecurrenceDays))
		for _, d := range p.RecurrenceDays {
			if label, ok := weekdayLabels[d]; ok {
				days = append(days, label)
			} else {
				days = append(days, d)
			}
		}
		parts = append(parts, "toda "+strings.Join(days, ", "))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "; ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
