package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"officina/internal/model"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to model.AppointmentStatus
		ok       bool
	}{
		{model.AppointmentScheduled, model.AppointmentInProgress, true},
		{model.AppointmentScheduled, model.AppointmentCancelled, true},
		{model.AppointmentInProgress, model.AppointmentCompleted, true},
		{model.AppointmentInProgress, model.AppointmentCancelled, true},
		{model.AppointmentCompleted, model.AppointmentScheduled, false},
		{model.AppointmentCompleted, model.AppointmentInProgress, false},
		{model.AppointmentCancelled, model.AppointmentScheduled, false},
		{model.AppointmentScheduled, model.AppointmentCompleted, false},
		{model.AppointmentScheduled, model.AppointmentScheduled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := Transition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestCheckReopen(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * time.Hour)
	old := now.Add(-25 * time.Hour)

	assert.NoError(t, CheckReopen(model.AppointmentCompleted, &recent, now, 24*time.Hour))
	assert.ErrorIs(t, CheckReopen(model.AppointmentCompleted, &old, now, 24*time.Hour), ErrReopenWindowExpired)
	assert.ErrorIs(t, CheckReopen(model.AppointmentCompleted, nil, now, 24*time.Hour), ErrReopenWindowExpired)
	assert.ErrorIs(t, CheckReopen(model.AppointmentCancelled, &recent, now, 24*time.Hour), ErrNotReopenable)
	assert.ErrorIs(t, CheckReopen(model.AppointmentInProgress, &recent, now, 24*time.Hour), ErrNotReopenable)
}
