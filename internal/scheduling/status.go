package scheduling

import (
	"errors"
	"fmt"
	"time"

	"officina/internal/model"
)

var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotReopenable       = errors.New("only completed appointments can be reopened")
	ErrReopenWindowExpired = errors.New("reopen window expired")
)

// transitions lists the ordinary moves of the workshop flow.
// completato and annullato are terminal; reopening goes through CheckReopen.
var transitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.AppointmentScheduled:  {model.AppointmentInProgress, model.AppointmentCancelled},
	model.AppointmentInProgress: {model.AppointmentCompleted, model.AppointmentCancelled},
}

func CanTransition(from, to model.AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a status change, returning ErrInvalidTransition when it is not allowed
func Transition(from, to model.AppointmentStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CheckReopen validates moving a completed appointment back to in_lavorazione.
// lastSessionEnd is the end of the latest work session; nil means no closed session exists.
func CheckReopen(status model.AppointmentStatus, lastSessionEnd *time.Time, now time.Time, window time.Duration) error {
	if status != model.AppointmentCompleted {
		return fmt.Errorf("%w: status is %s", ErrNotReopenable, status)
	}
	if lastSessionEnd == nil {
		return fmt.Errorf("%w: no closed work session", ErrReopenWindowExpired)
	}
	if now.Sub(*lastSessionEnd) > window {
		return fmt.Errorf("%w: completed at %s", ErrReopenWindowExpired, lastSessionEnd.Format(time.RFC3339))
	}
	return nil
}
