// Package notification delivers public form submissions and appointment
// reminders to the shop and its clients.
package notification

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"text/template"
	"time"
)

// FormSubmission is a public form as it reaches the shop inbox
type FormSubmission struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Message     string            `json:"message"`
	Fields      map[string]string `json:"fields,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// AppointmentReminder is sent to a client ahead of a booked slot.
// SendAt is when the reminder should go out; senders without a queue send it right away.
type AppointmentReminder struct {
	AppointmentID string    `json:"appointment_id"`
	ClientName    string    `json:"client_name"`
	Email         string    `json:"email"`
	Plate         string    `json:"plate"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	SendAt        time.Time `json:"send_at"`
}

// Sender is the notification collaborator used by the services
type Sender interface {
	SendFormSubmission(ctx context.Context, form FormSubmission) error
	SendAppointmentReminder(ctx context.Context, reminder AppointmentReminder) error
}

var subjects = map[string]string{
	"contact":       "Nuovo messaggio dal sito",
	"quote_request": "Nuova richiesta di preventivo",
	"booking":       "Nuova richiesta di appuntamento",
}

// Subject returns the inbox subject line for a form kind
func (f FormSubmission) Subject() string {
	if s, ok := subjects[f.Kind]; ok {
		return s + " - " + f.Name
	}
	return "Nuovo modulo dal sito - " + f.Name
}

type field struct{ Key, Value string }

// SortedFields returns the extra form fields ordered by key
func (f FormSubmission) SortedFields() []field {
	fields := make([]field, 0, len(f.Fields))
	for k, v := range f.Fields {
		fields = append(fields, field{k, v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	return fields
}

var formTemplate = template.Must(template.New("form").Parse(`Tipo: {{.Kind}}
Nome: {{.Name}}
Email: {{.Email}}
Telefono: {{.Phone}}
Inviato: {{.SubmittedAt.Format "02/01/2006 15:04"}}
{{range .SortedFields}}
{{.Key}}: {{.Value}}{{end}}

{{.Message}}
`))

var reminderTemplate = template.Must(template.New("reminder").Parse(`Gentile {{.ClientName}},

le ricordiamo l'appuntamento in officina per il veicolo {{.Plate}}
il giorno {{.Date}} alle ore {{.Time}}.

Per spostare o annullare l'appuntamento risponda a questa email.
`))

// FormBody renders the plain text body of a form submission email
func FormBody(form FormSubmission) (string, error) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, form); err != nil {
		return "", fmt.Errorf("render form body: %w", err)
	}
	return buf.String(), nil
}

// ReminderBody renders the plain text body of a reminder email
func ReminderBody(r AppointmentReminder) (string, error) {
	var buf bytes.Buffer
	if err := reminderTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render reminder body: %w", err)
	}
	return buf.String(), nil
}
