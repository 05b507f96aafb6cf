package notification

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "1"}, nil
}

func TestFormBody(t *testing.T) {
	form := FormSubmission{
		Kind:        "quote_request",
		Name:        "Mario Rossi",
		Email:       "mario@example.com",
		Phone:       "333111",
		Message:     "Vorrei un preventivo per il tagliando",
		Fields:      map[string]string{"targa": "AB123CD", "modello": "Panda"},
		SubmittedAt: time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC),
	}

	body, err := FormBody(form)
	require.NoError(t, err)
	assert.Contains(t, body, "Nome: Mario Rossi")
	assert.Contains(t, body, "Inviato: 10/06/2024 09:30")
	assert.Contains(t, body, "targa: AB123CD")
	assert.Less(t, strings.Index(body, "modello"), strings.Index(body, "targa"))
	assert.Equal(t, "Nuova richiesta di preventivo - Mario Rossi", form.Subject())
}

func TestReminderBody(t *testing.T) {
	body, err := ReminderBody(AppointmentReminder{ClientName: "Mario", Plate: "AB123CD", Date: "2024-06-10", Time: "10:00"})
	require.NoError(t, err)
	assert.Contains(t, body, "AB123CD")
	assert.Contains(t, body, "alle ore 10:00")
}

func TestQueueSender(t *testing.T) {
	q := &fakeEnqueuer{}
	sender := NewQueueSender(q)
	ctx := context.Background()

	require.NoError(t, sender.SendFormSubmission(ctx, FormSubmission{Kind: "contact", Name: "Anna"}))
	require.NoError(t, sender.SendAppointmentReminder(ctx, AppointmentReminder{
		AppointmentID: "abc", Date: "2024-06-10", Time: "10:00", Email: "a@example.com",
		SendAt: time.Date(2024, 6, 9, 10, 0, 0, 0, time.UTC),
	}))

	require.Len(t, q.tasks, 2)
	assert.Equal(t, TypeFormSubmission, q.tasks[0].Type())
	assert.Equal(t, TypeAppointmentReminder, q.tasks[1].Type())

	var r AppointmentReminder
	require.NoError(t, json.Unmarshal(q.tasks[1].Payload(), &r))
	assert.Equal(t, "abc", r.AppointmentID)
	assert.Len(t, q.opts[1], 3, "retry, task id and process-at options")
}

func TestQueueSenderIgnoresDuplicateReminder(t *testing.T) {
	sender := NewQueueSender(&fakeEnqueuer{err: asynq.ErrTaskIDConflict})
	assert.NoError(t, sender.SendAppointmentReminder(context.Background(), AppointmentReminder{AppointmentID: "abc"}))
	assert.Error(t, sender.SendFormSubmission(context.Background(), FormSubmission{}))
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewLogSender(zap.New(core))

	require.NoError(t, sender.SendFormSubmission(context.Background(), FormSubmission{Kind: "contact", Name: "Anna"}))
	require.NoError(t, sender.SendAppointmentReminder(context.Background(), AppointmentReminder{AppointmentID: "abc"}))

	assert.Equal(t, 1, logs.FilterMessage("form submission").Len())
	assert.Equal(t, 1, logs.FilterMessage("appointment reminder").Len())
}

func TestReminderTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	at, err := ReminderTime("2024-06-10", "10:00", 24*time.Hour, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 9, 10, 0, 0, 0, time.UTC), at)

	at, err = ReminderTime("2024-06-01", "12:00", 24*time.Hour, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, now, at)

	_, err = ReminderTime("2024-06-01", "noon", 24*time.Hour, now, time.UTC)
	assert.Error(t, err)
}
