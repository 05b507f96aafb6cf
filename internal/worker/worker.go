// Package worker runs the background notification queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"officina/internal/notification"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker consumes notification tasks and delivers them through a direct sender
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	sender notification.Sender
	log    *zap.Logger
}

func New(redisOpt asynq.RedisClientOpt, sender notification.Sender, log *zap.Logger) *Worker {
	log = log.Named("worker")
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"default": 1,
		},
		Logger:   zapAdapter{log.Sugar()},
		LogLevel: asynq.WarnLevel,
	})

	w := &Worker{srv: srv, sender: sender, log: log}
	w.mux = NewMux(sender, log)
	return w
}

// NewMux registers the notification handlers on a fresh mux
func NewMux(sender notification.Sender, log *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TypeFormSubmission, handleFormSubmission(sender, log))
	mux.HandleFunc(notification.TypeAppointmentReminder, handleReminder(sender, log))
	return mux
}

// Start runs the worker in the background, retrying the startup a few times
func (w *Worker) Start() {
	go func() {
		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := w.srv.Run(w.mux)
			if err == nil {
				return
			}
			w.log.Error("worker failed to start", zap.Int("attempt", attempt), zap.Error(err))
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
		w.log.Error("worker gave up after max attempts")
	}()
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

func handleFormSubmission(sender notification.Sender, log *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var form notification.FormSubmission
		if err := json.Unmarshal(task.Payload(), &form); err != nil {
			log.Error("invalid form submission payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if err := sender.SendFormSubmission(ctx, form); err != nil {
			log.Warn("form submission delivery failed", zap.String("kind", form.Kind), zap.Error(err))
			return err
		}
		return nil
	}
}

func handleReminder(sender notification.Sender, log *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var r notification.AppointmentReminder
		if err := json.Unmarshal(task.Payload(), &r); err != nil {
			log.Error("invalid reminder payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if r.Email == "" {
			log.Warn("reminder without recipient dropped", zap.String("appointment_id", r.AppointmentID))
			return nil
		}
		if err := sender.SendAppointmentReminder(ctx, r); err != nil {
			log.Warn("reminder delivery failed", zap.String("appointment_id", r.AppointmentID), zap.Error(err))
			return err
		}
		log.Info("reminder sent", zap.String("appointment_id", r.AppointmentID))
		return nil
	}
}

// zapAdapter lets asynq log through zap
type zapAdapter struct {
	s *zap.SugaredLogger
}

func (a zapAdapter) Debug(args ...interface{}) { a.s.Debug(args...) }
func (a zapAdapter) Info(args ...interface{})  { a.s.Info(args...) }
func (a zapAdapter) Warn(args ...interface{})  { a.s.Warn(args...) }
func (a zapAdapter) Error(args ...interface{}) { a.s.Error(args...) }
func (a zapAdapter) Fatal(args ...interface{}) { a.s.Fatal(args...) }
