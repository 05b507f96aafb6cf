package worker

import (
	"context"
	"errors"
	"testing"

	"officina/internal/notification"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	forms     []notification.FormSubmission
	reminders []notification.AppointmentReminder
	err       error
}

func (r *recordingSender) SendFormSubmission(_ context.Context, f notification.FormSubmission) error {
	r.forms = append(r.forms, f)
	return r.err
}

func (r *recordingSender) SendAppointmentReminder(_ context.Context, a notification.AppointmentReminder) error {
	r.reminders = append(r.reminders, a)
	return r.err
}

func TestMuxDispatchesTasks(t *testing.T) {
	sender := &recordingSender{}
	mux := NewMux(sender, zap.NewNop())
	ctx := context.Background()

	formTask, _, err := notification.NewFormSubmissionTask(notification.FormSubmission{Kind: "contact", Name: "Anna"})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(ctx, formTask))

	reminderTask, _, err := notification.NewReminderTask(notification.AppointmentReminder{AppointmentID: "a1", Email: "anna@example.com"})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(ctx, reminderTask))

	require.Len(t, sender.forms, 1)
	assert.Equal(t, "Anna", sender.forms[0].Name)
	require.Len(t, sender.reminders, 1)
	assert.Equal(t, "a1", sender.reminders[0].AppointmentID)
}

func TestMuxSkipsBadPayloadAndMissingRecipient(t *testing.T) {
	sender := &recordingSender{}
	mux := NewMux(sender, zap.NewNop())
	ctx := context.Background()

	err := mux.ProcessTask(ctx, asynq.NewTask(notification.TypeFormSubmission, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	reminderTask, _, err := notification.NewReminderTask(notification.AppointmentReminder{AppointmentID: "a1"})
	require.NoError(t, err)
	assert.NoError(t, mux.ProcessTask(ctx, reminderTask))
	assert.Empty(t, sender.reminders)
}

func TestMuxReturnsDeliveryErrorsForRetry(t *testing.T) {
	boom := errors.New("smtp down")
	mux := NewMux(&recordingSender{err: boom}, zap.NewNop())

	task, _, err := notification.NewFormSubmissionTask(notification.FormSubmission{Kind: "contact"})
	require.NoError(t, err)
	assert.ErrorIs(t, mux.ProcessTask(context.Background(), task), boom)
}
