package service

import (
	"errors"
	"fmt"
	"time"

	"officina/internal/scheduling"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")

	// Status machine errors are shared with the scheduling package so errors.Is works on both.
	ErrInvalidTransition   = scheduling.ErrInvalidTransition
	ErrReopenWindowExpired = scheduling.ErrReopenWindowExpired
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// lookupErr turns a repository error into ErrNotFound or a wrapped fetch failure
func lookupErr(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", entity, err)
}

func parseID(id, entity string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, invalidf("invalid %s id %q", entity, id)
	}
	return parsed, nil
}

func parseOptionalID(id, entity string) (*uuid.UUID, error) {
	if id == "" {
		return nil, nil
	}
	parsed, err := parseID(id, entity)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseMoney reads a decimal field; empty means zero, negative or garbage is rejected
func parseMoney(value, field string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, invalidf("%s must be a number, got %q", field, value)
	}
	if d.IsNegative() {
		return decimal.Zero, invalidf("%s must not be negative", field)
	}
	return d, nil
}

func parseDate(value, field string) (time.Time, error) {
	t, err := time.Parse(scheduling.DateFormat, value)
	if err != nil {
		return time.Time{}, invalidf("invalid %s date format (expected YYYY-MM-DD)", field)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
