package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogSender only writes notifications to the log. Used when SMTP is not configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("notification")}
}

func (s *LogSender) SendFormSubmission(_ context.Context, form FormSubmission) error {
	s.log.Info("form submission",
		zap.String("kind", form.Kind),
		zap.String("name", form.Name),
		zap.String("email", form.Email),
		zap.String("phone", form.Phone),
		zap.Any("fields", form.Fields),
	)
	return nil
}

func (s *LogSender) SendAppointmentReminder(_ context.Context, r AppointmentReminder) error {
	s.log.Info("appointment reminder",
		zap.String("appointment_id", r.AppointmentID),
		zap.String("email", r.Email),
		zap.String("date", r.Date),
		zap.String("time", r.Time),
	)
	return nil
}
