package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// MailConfig holds the SMTP settings of MailSender
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string // shop inbox for form submissions
}

// MailSender delivers notifications over SMTP
type MailSender struct {
	cfg MailConfig
}

func NewMailSender(cfg MailConfig) *MailSender {
	return &MailSender{cfg: cfg}
}

func (s *MailSender) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return mail.NewClient(s.cfg.Host, opts...)
}

func (s *MailSender) send(ctx context.Context, to, replyTo, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	if replyTo != "" {
		if err := msg.ReplyTo(replyTo); err != nil {
			return fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	c, err := s.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (s *MailSender) SendFormSubmission(ctx context.Context, form FormSubmission) error {
	body, err := FormBody(form)
	if err != nil {
		return err
	}
	return s.send(ctx, s.cfg.To, form.Email, form.Subject(), body)
}

func (s *MailSender) SendAppointmentReminder(ctx context.Context, r AppointmentReminder) error {
	if r.Email == "" {
		return fmt.Errorf("reminder for appointment %s has no recipient", r.AppointmentID)
	}
	body, err := ReminderBody(r)
	if err != nil {
		return err
	}
	return s.send(ctx, r.Email, "", "Promemoria appuntamento "+r.Date+" "+r.Time, body)
}
