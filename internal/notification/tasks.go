package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeFormSubmission      = "notification:form_submission"
	TypeAppointmentReminder = "notification:appointment_reminder"
)

const maxRetry = 5

func NewFormSubmissionTask(form FormSubmission) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(form)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeFormSubmission, b)
	return task, []asynq.Option{asynq.MaxRetry(maxRetry)}, nil
}

// NewReminderTask schedules a reminder at r.SendAt. The task id is derived from the
// appointment and its slot, so rescheduling enqueues a new reminder and repeats are dropped.
func NewReminderTask(r AppointmentReminder) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeAppointmentReminder, b)
	opts := []asynq.Option{
		asynq.MaxRetry(maxRetry),
		asynq.TaskID(fmt.Sprintf("reminder:%s:%sT%s", r.AppointmentID, r.Date, r.Time)),
	}
	if !r.SendAt.IsZero() {
		opts = append(opts, asynq.ProcessAt(r.SendAt))
	}
	return task, opts, nil
}

// Enqueuer is the part of *asynq.Client QueueSender needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSender hands notifications to the background worker instead of sending them inline
type QueueSender struct {
	client Enqueuer
}

func NewQueueSender(client Enqueuer) *QueueSender {
	return &QueueSender{client: client}
}

func (s *QueueSender) SendFormSubmission(ctx context.Context, form FormSubmission) error {
	task, opts, err := NewFormSubmissionTask(form)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue form submission: %w", err)
	}
	return nil
}

func (s *QueueSender) SendAppointmentReminder(ctx context.Context, r AppointmentReminder) error {
	task, opts, err := NewReminderTask(r)
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	return nil
}

// ReminderTime is when a reminder for a slot goes out: lead before the appointment,
// or now when that moment has already passed.
func ReminderTime(date, slot string, lead time.Duration, now time.Time, loc *time.Location) (time.Time, error) {
	at, err := time.ParseInLocation("2006-01-02 15:04", date+" "+slot, loc)
	if err != nil {
		return time.Time{}, err
	}
	sendAt := at.Add(-lead)
	if sendAt.Before(now) {
		return now, nil
	}
	return sendAt, nil
}
