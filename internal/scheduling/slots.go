package scheduling

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"officina/internal/model"
)

const (
	// DateFormat is the layout of appointment dates (yyyy-MM-dd)
	DateFormat = "2006-01-02"
	// TimeFormat is the layout of slot times (HH:mm)
	TimeFormat = "15:04"
)

var (
	ErrSlotConflict = errors.New("slot already booked")
	ErrInvalidDate  = errors.New("invalid date, expected yyyy-MM-dd")
	ErrInvalidTime  = errors.New("invalid time, expected HH:mm")
)

// SlotConflictError is returned when a requested slot is taken by a live appointment
type SlotConflictError struct {
	Date string
	Time string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot %s %s is already booked, please choose another", e.Date, e.Time)
}

func (e *SlotConflictError) Is(target error) bool {
	return target == ErrSlotConflict
}

// Booking is the part of an appointment the resolver looks at
type Booking struct {
	Date   string
	Time   string
	Status model.AppointmentStatus
}

// BookingsFrom projects stored appointments onto bookings
func BookingsFrom(appointments []model.Appointment) []Booking {
	bookings := make([]Booking, 0, len(appointments))
	for _, a := range appointments {
		bookings = append(bookings, Booking{Date: a.Date, Time: a.Time, Status: a.Status})
	}
	return bookings
}

// occupies reports whether b holds the slot; cancelled appointments free their slot
func (b Booking) occupies(date, slot string) bool {
	return b.Status != model.AppointmentCancelled && b.Date == date && b.Time == slot
}

// Catalog is a day's list of bookable start times, from Start inclusive to End exclusive
type Catalog struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// NewCatalog builds a catalog from HH:mm bounds
func NewCatalog(start, end string, step time.Duration) (Catalog, error) {
	s, err := time.Parse(TimeFormat, start)
	if err != nil {
		return Catalog{}, fmt.Errorf("start %q: %w", start, ErrInvalidTime)
	}
	e, err := time.Parse(TimeFormat, end)
	if err != nil {
		return Catalog{}, fmt.Errorf("end %q: %w", end, ErrInvalidTime)
	}
	if !s.Before(e) {
		return Catalog{}, fmt.Errorf("catalog start %s must be before end %s", start, end)
	}
	if step <= 0 {
		return Catalog{}, fmt.Errorf("catalog step must be positive, got %s", step)
	}
	return Catalog{Start: s, End: e, Step: step}, nil
}

// Slots lists the catalog times in ascending order
func (c Catalog) Slots() []string {
	var slots []string
	for t := c.Start; t.Before(c.End); t = t.Add(c.Step) {
		slots = append(slots, t.Format(TimeFormat))
	}
	return slots
}

// Contains reports whether slot is one of the catalog times
func (c Catalog) Contains(slot string) bool {
	for _, s := range c.Slots() {
		if s == slot {
			return true
		}
	}
	return false
}

// AvailableSlots returns the catalog times on date not occupied by a non-cancelled booking
func AvailableSlots(date string, catalog Catalog, bookings []Booking) []string {
	taken := make(map[string]bool)
	for _, b := range bookings {
		if b.Status != model.AppointmentCancelled && b.Date == date {
			taken[b.Time] = true
		}
	}

	available := make([]string, 0)
	for _, slot := range catalog.Slots() {
		if !taken[slot] {
			available = append(available, slot)
		}
	}
	sort.Strings(available)
	return available
}

// ValidateSlotRequest returns nil when (date, slot) is free, a *SlotConflictError otherwise
func ValidateSlotRequest(date, slot string, bookings []Booking) error {
	for _, b := range bookings {
		if b.occupies(date, slot) {
			return &SlotConflictError{Date: date, Time: slot}
		}
	}
	return nil
}

// ValidateDate checks the yyyy-MM-dd layout
func ValidateDate(date string) error {
	if _, err := time.Parse(DateFormat, date); err != nil {
		return fmt.Errorf("%q: %w", date, ErrInvalidDate)
	}
	return nil
}

// ValidateTime checks the HH:mm layout
func ValidateTime(slot string) error {
	if len(slot) != len(TimeFormat) {
		return fmt.Errorf("%q: %w", slot, ErrInvalidTime)
	}
	if _, err := time.Parse(TimeFormat, slot); err != nil {
		return fmt.Errorf("%q: %w", slot, ErrInvalidTime)
	}
	return nil
}
