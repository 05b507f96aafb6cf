package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"officina/internal/model"
)

func publicCatalog(t *testing.T) Catalog {
	t.Helper()
	c, err := NewCatalog("09:00", "18:00", 30*time.Minute)
	require.NoError(t, err)
	return c
}

func TestCatalogSlots(t *testing.T) {
	t.Run("public catalog", func(t *testing.T) {
		slots := publicCatalog(t).Slots()
		require.Len(t, slots, 18)
		assert.Equal(t, "09:00", slots[0])
		assert.Equal(t, "17:30", slots[len(slots)-1])
	})

	t.Run("calendar catalog", func(t *testing.T) {
		c, err := NewCatalog("08:00", "19:00", 30*time.Minute)
		require.NoError(t, err)
		assert.Len(t, c.Slots(), 22)
		assert.True(t, c.Contains("18:30"))
		assert.False(t, c.Contains("19:00"))
	})

	t.Run("invalid bounds", func(t *testing.T) {
		_, err := NewCatalog("18:00", "09:00", 30*time.Minute)
		assert.Error(t, err)
		_, err = NewCatalog("9am", "18:00", 30*time.Minute)
		assert.ErrorIs(t, err, ErrInvalidTime)
		_, err = NewCatalog("09:00", "18:00", 0)
		assert.Error(t, err)
	})
}

func TestAvailableSlots(t *testing.T) {
	catalog := publicCatalog(t)
	bookings := []Booking{
		{Date: "2024-06-10", Time: "10:00", Status: model.AppointmentScheduled},
		{Date: "2024-06-10", Time: "11:00", Status: model.AppointmentCancelled},
		{Date: "2024-06-11", Time: "09:00", Status: model.AppointmentScheduled},
	}

	slots := AvailableSlots("2024-06-10", catalog, bookings)

	assert.Len(t, slots, 17)
	assert.NotContains(t, slots, "10:00")
	assert.Contains(t, slots, "11:00")
	assert.Contains(t, slots, "09:00")
	assert.IsNonDecreasing(t, slots)
}

func TestAvailableSlotsCount(t *testing.T) {
	catalog := publicCatalog(t)
	bookings := []Booking{
		{Date: "2024-06-10", Time: "09:00", Status: model.AppointmentScheduled},
		{Date: "2024-06-10", Time: "09:00", Status: model.AppointmentInProgress},
		{Date: "2024-06-10", Time: "12:30", Status: model.AppointmentCompleted},
		{Date: "2024-06-10", Time: "07:15", Status: model.AppointmentScheduled}, // outside catalog
		{Date: "2024-06-10", Time: "15:00", Status: model.AppointmentCancelled},
	}

	slots := AvailableSlots("2024-06-10", catalog, bookings)

	// two distinct live slots inside the catalog
	assert.Len(t, slots, len(catalog.Slots())-2)
	for _, b := range bookings {
		if b.Status != model.AppointmentCancelled {
			assert.NotContains(t, slots, b.Time)
		}
	}
}

func TestValidateSlotRequest(t *testing.T) {
	existing := []Booking{{Date: "2024-06-10", Time: "10:00", Status: model.AppointmentScheduled}}

	err := ValidateSlotRequest("2024-06-10", "10:00", existing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSlotConflict))
	var conflict *SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "10:00", conflict.Time)

	assert.NoError(t, ValidateSlotRequest("2024-06-10", "11:30", existing))
	assert.NoError(t, ValidateSlotRequest("2024-06-11", "10:00", existing))

	cancelled := []Booking{{Date: "2024-06-10", Time: "10:00", Status: model.AppointmentCancelled}}
	assert.NoError(t, ValidateSlotRequest("2024-06-10", "10:00", cancelled))
}

func TestBookingsFrom(t *testing.T) {
	bookings := BookingsFrom([]model.Appointment{
		{Date: "2024-06-10", Time: "10:00", Status: model.AppointmentScheduled},
	})
	require.Len(t, bookings, 1)
	assert.Equal(t, Booking{Date: "2024-06-10", Time: "10:00", Status: model.AppointmentScheduled}, bookings[0])
}

func TestValidateDateAndTime(t *testing.T) {
	assert.NoError(t, ValidateDate("2024-06-10"))
	assert.ErrorIs(t, ValidateDate("10/06/2024"), ErrInvalidDate)
	assert.ErrorIs(t, ValidateDate("2024-02-30"), ErrInvalidDate)

	assert.NoError(t, ValidateTime("09:30"))
	assert.ErrorIs(t, ValidateTime("9:30"), ErrInvalidTime)
	assert.ErrorIs(t, ValidateTime("25:00"), ErrInvalidTime)
}
