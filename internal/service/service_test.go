package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"officina/internal/cache"
	"officina/internal/database"
	"officina/internal/model"
	"officina/internal/notification"
	"officina/internal/repository"
	"officina/internal/scheduling"
	"officina/internal/websocket"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

type recordedEvents struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (r *recordedEvents) Publish(e websocket.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type stubSender struct {
	mu        sync.Mutex
	fail      bool
	forms     []notification.FormSubmission
	reminders []notification.AppointmentReminder
}

func (s *stubSender) SendFormSubmission(_ context.Context, form notification.FormSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp down")
	}
	s.forms = append(s.forms, form)
	return nil
}

func (s *stubSender) SendAppointmentReminder(_ context.Context, r notification.AppointmentReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp down")
	}
	s.reminders = append(s.reminders, r)
	return nil
}

type testEnv struct {
	db           *gorm.DB
	clients      repository.ClientRepository
	quotesRepo   repository.QuoteRepository
	auditRepo    repository.AuditRepository
	holds        *cache.MemorySlotHolds
	events       *recordedEvents
	sender       *stubSender
	clock        time.Time
	quotes       QuoteService
	appointments AppointmentService
	leads        LeadService
	taxes        TaxService

	appointmentRepo repository.AppointmentRepository
	tx              repository.TransactionManager
	settings        AppointmentSettings
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	log := zap.NewNop()

	public, err := scheduling.NewCatalog("09:00", "18:00", 30*time.Minute)
	require.NoError(t, err)
	calendar, err := scheduling.NewCatalog("08:00", "19:00", 30*time.Minute)
	require.NoError(t, err)

	env := &testEnv{
		db:         db,
		clients:    repository.NewClientRepository(db),
		quotesRepo: repository.NewQuoteRepository(db),
		auditRepo:  repository.NewAuditRepository(db),
		holds:      cache.NewMemorySlotHolds(),
		events:     &recordedEvents{},
		sender:     &stubSender{},
		clock:      time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	tx := repository.NewTransactionManager(db)
	appointmentRepo := repository.NewAppointmentRepository(db)

	env.taxes = NewTaxService(repository.NewTaxRuleRepository(db), tx, env.auditRepo, decimal.NewFromInt(22))
	env.quotes = NewQuoteService(env.quotesRepo, env.clients, repository.NewServiceTypeRepository(db), appointmentRepo, env.taxes, tx, env.auditRepo)
	env.appointmentRepo = appointmentRepo
	env.tx = tx
	env.settings = AppointmentSettings{
		PublicCatalog:   public,
		CalendarCatalog: calendar,
		HoldTTL:         5 * time.Minute,
		ReopenWindow:    24 * time.Hour,
		ReminderLead:    24 * time.Hour,
		Location:        time.UTC,
		Now:             func() time.Time { return env.clock },
	}
	env.appointments = NewAppointmentService(appointmentRepo, env.clients, env.quotesRepo, tx, env.auditRepo, env.holds, env.events, env.sender, env.settings, log)
	env.leads = NewLeadService(repository.NewLeadRepository(db), env.clients, env.appointments, tx, env.sender, log)
	return env
}

func (e *testEnv) client(t *testing.T) *model.Client {
	t.Helper()
	c := &model.Client{Name: "Mario", Surname: "Rossi", Email: "mario@example.com", Phone: "333111", Plate: "AB123CD", Model: "Panda"}
	require.NoError(t, e.clients.Create(context.Background(), c))
	return c
}

func TestQuoteService_TotalsArePersisted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.client(t)
	actor := uuid.New()

	req := QuoteRequest{
		ClientID:   c.ID.String(),
		Date:       "2024-06-10",
		LaborPrice: "40",
		LaborHours: "1.5",
		Items: []QuoteItemRequest{{
			ServiceName: "Tagliando",
			LaborPrice:  "50",
			LaborHours:  "2",
			Parts: []SparePartRequest{
				{Name: "Filtro olio", Quantity: 2, UnitPrice: "20"},
				{Name: "Guarnizione", Quantity: 0, UnitPrice: "3.333"},
			},
		}},
	}

	created, err := env.quotes.CreateQuote(ctx, req, &actor)
	require.NoError(t, err)

	assert.Equal(t, "Mario Rossi", created.ClientName, "client fields default from the client")
	assert.Equal(t, "AB123CD", created.Plate)
	assert.Equal(t, "22.00", created.TaxRate)
	require.Len(t, created.Items, 1)
	require.Len(t, created.Items[0].Parts, 2)
	assert.Equal(t, 1, created.Items[0].Parts[1].Quantity, "quantity below 1 is clamped")
	assert.Equal(t, "3.33", created.Items[0].Parts[1].FinalPrice)
	assert.Equal(t, "143.33", created.Items[0].TotalPrice)

	// subtotal = parts 43.33 + extra labor 60; item labor stays out of the summary
	assert.Equal(t, "103.33", created.Subtotal)
	assert.Equal(t, "22.73", created.TaxAmount)
	assert.Equal(t, "126.06", created.Total)

	stored, err := env.quotesRepo.FindByID(ctx, uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.True(t, stored.Total.Equal(decimal.RequireFromString("126.06")))

	preview, err := env.quotes.PreviewQuote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, created.Total, preview.Total)
	assert.Equal(t, uuid.Nil.String(), preview.ID, "preview is not stored")

	logs, total, err := env.auditRepo.List(ctx, repository.AuditFilter{Action: model.ActionCreateQuote}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, created.ID, logs[0].EntityID)
}

func TestQuoteService_StoredFiguresStayConsistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.client(t)

	created, err := env.quotes.CreateQuote(ctx, QuoteRequest{
		ClientID:   c.ID.String(),
		Date:       "2024-06-10",
		LaborPrice: "33.335",
		LaborHours: "0.333",
		Items: []QuoteItemRequest{{
			ServiceName: "Impianto elettrico",
			Parts:       []SparePartRequest{{Name: "Fusibile", Quantity: 3, UnitPrice: "0.125"}},
		}},
	}, nil)
	require.NoError(t, err)

	stored, err := env.quotesRepo.FindByID(ctx, uuid.MustParse(created.ID))
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	require.Len(t, stored.Items[0].Parts, 1)

	part := stored.Items[0].Parts[0]
	assert.Equal(t, "0.13", part.UnitPrice.StringFixed(2))
	assert.True(t, part.FinalPrice.Equal(part.UnitPrice.Mul(decimal.NewFromInt(int64(part.Quantity))).Round(2)),
		"final %s, unit %s", part.FinalPrice, part.UnitPrice)
	assert.True(t, stored.Total.Equal(stored.Subtotal.Add(stored.TaxAmount)))
	assert.Equal(t, "11.39", stored.Subtotal.StringFixed(2))

	got, err := env.quotes.GetQuote(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.39", got.PartsTotal)
	assert.Equal(t, created.Total, got.Total)
}

func TestQuoteService_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.client(t)

	_, err := env.quotes.CreateQuote(ctx, QuoteRequest{ClientID: uuid.NewString()}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.quotes.CreateQuote(ctx, QuoteRequest{ClientID: c.ID.String(), Items: []QuoteItemRequest{{}}}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput, "item needs a service name")

	_, err = env.quotes.CreateQuote(ctx, QuoteRequest{ClientID: c.ID.String(), LaborPrice: "-5"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.quotes.CreateQuote(ctx, QuoteRequest{ClientID: c.ID.String(), Status: "approved"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQuoteService_DeleteDetachesAppointments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.client(t)

	q, err := env.quotes.CreateQuote(ctx, QuoteRequest{ClientID: c.ID.String()}, nil)
	require.NoError(t, err)
	a, err := env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientID: c.ID.String(), Date: "2024-06-12", Time: "10:00", QuoteID: q.ID}, nil)
	require.NoError(t, err)
	require.NotNil(t, a.QuoteID)

	_, err = env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientID: c.ID.String(), Date: "2024-06-12", Time: "11:00", QuoteID: q.ID}, nil)
	assert.ErrorIs(t, err, ErrConflict, "a quote links to one appointment only")

	require.NoError(t, env.quotes.DeleteQuote(ctx, q.ID, nil))
	got, err := env.appointments.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.QuoteID)
}

func TestAppointmentService_DoubleBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientName: "Mario Rossi", Date: "2024-06-12", Time: "10:00"}, nil)
	require.NoError(t, err)
	assert.Equal(t, string(model.AppointmentScheduled), first.Status)
	assert.Equal(t, 1.0, first.Duration)

	_, err = env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientName: "Luigi Verdi", Date: "2024-06-12", Time: "10:00"}, nil)
	require.Error(t, err)
	var conflict *scheduling.SlotConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.ErrorIs(t, err, scheduling.ErrSlotConflict)

	slots, err := env.appointments.AvailableSlots(ctx, "2024-06-12", false)
	require.NoError(t, err)
	assert.NotContains(t, slots.Available, "10:00")
	assert.Len(t, slots.Available, 21)

	_, err = env.appointments.ChangeStatus(ctx, first.ID, string(model.AppointmentCancelled), nil)
	require.NoError(t, err)

	slots, err = env.appointments.AvailableSlots(ctx, "2024-06-12", false)
	require.NoError(t, err)
	assert.Contains(t, slots.Available, "10:00", "a cancelled appointment frees its slot")

	_, err = env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientName: "Luigi Verdi", Date: "2024-06-12", Time: "10:00"}, nil)
	assert.NoError(t, err)

	assert.Equal(t, []string{
		websocket.EventAppointmentCreated,
		websocket.EventAppointmentUpdated,
		websocket.EventAppointmentCreated,
	}, env.events.types())
}

func TestAppointmentService_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientName: "x", Date: "12/06/2024", Time: "10:00"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientName: "x", Date: "2024-06-12", Time: "25:00"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.appointments.CreateAppointment(ctx, AppointmentRequest{Date: "2024-06-12", Time: "10:00"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput, "client name is required")

	_, err = env.appointments.BookPublic(ctx, AppointmentRequest{ClientName: "x", Date: "2024-06-12", Time: "08:00"})
	assert.ErrorIs(t, err, ErrInvalidInput, "08:00 is calendar only")

	_, err = env.appointments.AvailableSlots(ctx, "2024-13-01", true)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAppointmentService_Reschedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientName: "Mario", Date: "2024-06-12", Time: "10:00"}, nil)
	require.NoError(t, err)
	_, err = env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientName: "Luigi", Date: "2024-06-12", Time: "11:00"}, nil)
	require.NoError(t, err)

	notes := "cambio gomme"
	same := "10:00"
	updated, err := env.appointments.UpdateAppointment(ctx, a.ID, UpdateAppointmentRequest{Time: &same, Notes: &notes}, nil)
	require.NoError(t, err, "keeping its own slot is not a conflict")
	assert.Equal(t, notes, updated.Notes)

	taken := "11:00"
	_, err = env.appointments.UpdateAppointment(ctx, a.ID, UpdateAppointmentRequest{Time: &taken}, nil)
	assert.ErrorIs(t, err, scheduling.ErrSlotConflict)

	free := "12:00"
	ordered := true
	updated, err = env.appointments.UpdateAppointment(ctx, a.ID, UpdateAppointmentRequest{Time: &free, PartsOrdered: &ordered}, nil)
	require.NoError(t, err)
	assert.Equal(t, "12:00", updated.Time)
	assert.True(t, updated.PartsOrdered)
}

func TestAppointmentService_StatusAndReopen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientName: "Mario", Date: "2024-06-10", Time: "09:00"}, nil)
	require.NoError(t, err)

	_, err = env.appointments.ChangeStatus(ctx, a.ID, string(model.AppointmentCompleted), nil)
	assert.ErrorIs(t, err, ErrInvalidTransition, "programmato cannot jump to completato")

	_, err = env.appointments.Reopen(ctx, a.ID, nil)
	assert.ErrorIs(t, err, scheduling.ErrNotReopenable)

	got, err := env.appointments.ChangeStatus(ctx, a.ID, string(model.AppointmentInProgress), nil)
	require.NoError(t, err)
	require.Len(t, got.WorkSessions, 1)
	assert.Nil(t, got.WorkSessions[0].EndedAt)

	env.clock = env.clock.Add(3 * time.Hour)
	got, err = env.appointments.ChangeStatus(ctx, a.ID, string(model.AppointmentCompleted), nil)
	require.NoError(t, err)
	require.Len(t, got.WorkSessions, 1)
	assert.NotNil(t, got.WorkSessions[0].EndedAt)

	t.Run("within the window", func(t *testing.T) {
		env.clock = env.clock.Add(23 * time.Hour)
		got, err := env.appointments.Reopen(ctx, a.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, string(model.AppointmentInProgress), got.Status)
		require.Len(t, got.WorkSessions, 2)
		assert.NotNil(t, got.WorkSessions[0].EndedAt, "the completed session is kept")
		assert.Nil(t, got.WorkSessions[1].EndedAt)
	})

	t.Run("after the window", func(t *testing.T) {
		_, err := env.appointments.ChangeStatus(ctx, a.ID, string(model.AppointmentCompleted), nil)
		require.NoError(t, err)
		env.clock = env.clock.Add(25 * time.Hour)
		_, err = env.appointments.Reopen(ctx, a.ID, nil)
		assert.ErrorIs(t, err, ErrReopenWindowExpired)
	})

	_, err = env.appointments.ChangeStatus(ctx, a.ID, "finito", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAppointmentService_Holds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hold, err := env.appointments.HoldSlot(ctx, SlotHoldRequest{Date: "2024-06-12", Time: "10:00"})
	require.NoError(t, err)
	assert.NotEmpty(t, hold.Token)

	_, err = env.appointments.HoldSlot(ctx, SlotHoldRequest{Date: "2024-06-12", Time: "10:00"})
	assert.ErrorIs(t, err, scheduling.ErrSlotConflict)

	slots, err := env.appointments.AvailableSlots(ctx, "2024-06-12", true)
	require.NoError(t, err)
	assert.NotContains(t, slots.Available, "10:00", "held slots are hidden from the public")
	assert.Len(t, slots.Available, 17)

	_, err = env.appointments.BookPublic(ctx, AppointmentRequest{ClientName: "Luigi", Date: "2024-06-12", Time: "10:00"})
	assert.ErrorIs(t, err, scheduling.ErrSlotConflict, "booking without the token")

	_, err = env.appointments.BookPublic(ctx, AppointmentRequest{ClientName: "Luigi", Date: "2024-06-12", Time: "10:00", HoldToken: "wrong"})
	assert.ErrorIs(t, err, ErrConflict)

	booked, err := env.appointments.BookPublic(ctx, AppointmentRequest{ClientName: "Mario", Date: "2024-06-12", Time: "10:00", HoldToken: hold.Token})
	require.NoError(t, err)
	assert.Equal(t, "10:00", booked.Time)

	held, err := env.holds.IsHeld(ctx, "2024-06-12", "10:00")
	require.NoError(t, err)
	assert.False(t, held, "the hold is consumed by the booking")

	_, err = env.appointments.HoldSlot(ctx, SlotHoldRequest{Date: "2024-06-12", Time: "10:00"})
	assert.ErrorIs(t, err, scheduling.ErrSlotConflict, "booked slots cannot be held")

	t.Run("release", func(t *testing.T) {
		hold, err := env.appointments.HoldSlot(ctx, SlotHoldRequest{Date: "2024-06-12", Time: "14:00"})
		require.NoError(t, err)

		err = env.appointments.ReleaseHold(ctx, SlotReleaseRequest{Date: "2024-06-12", Time: "14:00", Token: "someone-else"})
		assert.ErrorIs(t, err, ErrConflict)

		require.NoError(t, env.appointments.ReleaseHold(ctx, SlotReleaseRequest{Date: "2024-06-12", Time: "14:00", Token: hold.Token}))
		slots, err := env.appointments.AvailableSlots(ctx, "2024-06-12", true)
		require.NoError(t, err)
		assert.Contains(t, slots.Available, "14:00")
		assert.Contains(t, env.events.types(), websocket.EventSlotReleased)

		assert.NoError(t, env.appointments.ReleaseHold(ctx, SlotReleaseRequest{Date: "2024-06-12", Time: "14:00", Token: hold.Token}), "releasing twice is harmless")
	})
}

type failingAudit struct {
	repository.AuditRepository
}

func (failingAudit) Log(context.Context, *model.AuditLog) error {
	return errors.New("audit store down")
}

func TestAppointmentService_HoldSurvivesFailedBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	broken := NewAppointmentService(env.appointmentRepo, env.clients, env.quotesRepo, env.tx, failingAudit{env.auditRepo}, env.holds, env.events, env.sender, env.settings, zap.NewNop())

	hold, err := env.appointments.HoldSlot(ctx, SlotHoldRequest{Date: "2024-06-12", Time: "11:00"})
	require.NoError(t, err)

	_, err = broken.BookPublic(ctx, AppointmentRequest{ClientName: "Mario", ClientEmail: "mario@example.com", Date: "2024-06-12", Time: "11:00", HoldToken: hold.Token})
	require.Error(t, err)

	held, err := env.holds.IsHeld(ctx, "2024-06-12", "11:00")
	require.NoError(t, err)
	assert.True(t, held, "a rolled back booking leaves the hold in place")
	assert.NotContains(t, env.events.types(), websocket.EventAppointmentCreated)
	assert.Empty(t, env.sender.reminders)

	booked, err := env.appointments.BookPublic(ctx, AppointmentRequest{ClientName: "Mario", Date: "2024-06-12", Time: "11:00", HoldToken: hold.Token})
	require.NoError(t, err)
	assert.Equal(t, "11:00", booked.Time)
}

func TestAppointmentService_SideEffectsWaitForOuterCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.tx.RunInTx(ctx, func(txCtx context.Context) error {
		_, err := env.appointments.CreateAppointment(txCtx, AppointmentRequest{ClientName: "Mario", ClientEmail: "mario@example.com", Date: "2024-06-12", Time: "09:00"}, nil)
		require.NoError(t, err)
		assert.Empty(t, env.events.types(), "nothing is published before the commit")
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, env.events.types())
	assert.Empty(t, env.sender.reminders)

	list, _, err := env.appointments.ListAppointments(ctx, repository.AppointmentFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = env.tx.RunInTx(ctx, func(txCtx context.Context) error {
		_, err := env.appointments.CreateAppointment(txCtx, AppointmentRequest{ClientName: "Mario", ClientEmail: "mario@example.com", Date: "2024-06-12", Time: "09:00"}, nil)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{websocket.EventAppointmentCreated}, env.events.types())
	assert.Len(t, env.sender.reminders, 1)
}

func TestAppointmentService_Reminder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.client(t)

	_, err := env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientID: c.ID.String(), Date: "2024-06-12", Time: "10:00"}, nil)
	require.NoError(t, err)
	require.Len(t, env.sender.reminders, 1)
	r := env.sender.reminders[0]
	assert.Equal(t, "mario@example.com", r.Email)
	assert.Equal(t, time.Date(2024, 6, 11, 10, 0, 0, 0, time.UTC), r.SendAt)

	env.sender.fail = true
	_, err = env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientID: c.ID.String(), Date: "2024-06-12", Time: "11:00"}, nil)
	assert.NoError(t, err, "reminder failures do not fail the booking")
}

func TestLeadService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("contact is stored and notified", func(t *testing.T) {
		lead, err := env.leads.SubmitContact(ctx, ContactRequest{Name: "Anna", Email: "anna@example.com", Message: "Orari?"})
		require.NoError(t, err)
		assert.True(t, lead.Notified)
		require.Len(t, env.sender.forms, 1)
		assert.Equal(t, "contact", env.sender.forms[0].Kind)
	})

	t.Run("failed notification still succeeds", func(t *testing.T) {
		env.sender.fail = true
		defer func() { env.sender.fail = false }()
		lead, err := env.leads.SubmitQuoteRequest(ctx, QuoteRequestForm{Name: "Anna", Email: "anna@example.com", Phone: "333", Plate: "zz 999 zz", Services: []string{"Freni"}})
		require.NoError(t, err)
		assert.False(t, lead.Notified)
		assert.Contains(t, string(lead.Payload), "ZZ999ZZ")
	})

	t.Run("booking reuses the client by plate", func(t *testing.T) {
		existing := env.client(t)
		res, err := env.leads.SubmitBooking(ctx, BookingRequest{Name: "Mario", Surname: "Rossi", Phone: "333111", Plate: "ab-123-cd", Date: "2024-06-13", Time: "09:30"})
		require.NoError(t, err)
		require.NotNil(t, res.Appointment.ClientID)
		assert.Equal(t, existing.ID.String(), *res.Appointment.ClientID)
		assert.Equal(t, "booking", res.Lead.Kind)

		_, err = env.leads.SubmitBooking(ctx, BookingRequest{Name: "Luigi", Surname: "Verdi", Phone: "333222", Plate: "NEW1", Date: "2024-06-13", Time: "09:30"})
		assert.ErrorIs(t, err, scheduling.ErrSlotConflict)
		_, err = env.clients.FindByPlate(ctx, "NEW1")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "the new client is rolled back with the booking")
	})

	leads, total, err := env.leads.ListLeads(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, leads, 3)

	_, _, err = env.leads.ListLeads(ctx, "spam", 1, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserService(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	secret := []byte("test-secret")
	svc := NewUserService(repository.NewUserRepository(db), secret, time.Hour, zap.NewNop())

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@officina.it", "password123"))
	require.NoError(t, svc.EnsureAdmin(ctx, "other@officina.it", "password123"), "second call is a no-op")

	users, total, err := svc.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.RoleAdmin, users[0].Role)

	_, err = svc.Login(ctx, LoginUserRequest{Email: "admin@officina.it", Password: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, LoginUserRequest{Email: "nobody@officina.it", Password: "password123"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	tok, err := svc.Login(ctx, LoginUserRequest{Email: "ADMIN@officina.it", Password: "password123"})
	require.NoError(t, err)
	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return secret, nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, users[0].ID, claims["sub"])
	assert.Equal(t, model.RoleAdmin, claims["role"])
	assert.Contains(t, claims, "exp")

	staff, err := svc.CreateUser(ctx, CreateUserRequest{Name: "Luca", Email: "luca@officina.it", Password: "password123", Role: model.RoleStaff})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, CreateUserRequest{Name: "Luca", Email: "luca@officina.it", Password: "password123", Role: model.RoleStaff})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.CreateUser(ctx, CreateUserRequest{Name: "Eva", Email: "eva@officina.it", Password: "password123", Role: "root"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.ErrorIs(t, svc.DeleteUser(ctx, users[0].ID), ErrConflict, "last admin stays")
	require.NoError(t, svc.DeleteUser(ctx, staff.ID))
	_, err = svc.GetUser(ctx, staff.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatisticsService_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.client(t)

	q, err := env.quotes.CreateQuote(ctx, QuoteRequest{ClientID: c.ID.String(), LaborPrice: "50", LaborHours: "2", TaxRate: strPtr("0")}, nil)
	require.NoError(t, err)
	_, err = env.quotes.UpdateQuoteStatus(ctx, q.ID, string(model.QuoteStatusAccepted), nil)
	require.NoError(t, err)
	_, err = env.quotes.CreateQuote(ctx, QuoteRequest{ClientID: c.ID.String()}, nil)
	require.NoError(t, err)

	today := env.clock.Format(scheduling.DateFormat)
	_, err = env.appointments.CreateAppointment(ctx, AppointmentRequest{ClientName: "Mario", Date: today, Time: "10:00"}, nil)
	require.NoError(t, err)

	svc := NewStatisticsService(
		repository.NewStatisticsRepository(env.db),
		repository.NewAppointmentRepository(env.db),
		env.quotesRepo,
		env.clients,
		repository.NewLeadRepository(env.db),
	).(*statisticsService)
	svc.now = func() time.Time { return env.clock }

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dash.AppointmentsToday)
	assert.Equal(t, int64(1), dash.AppointmentsByStatus[string(model.AppointmentScheduled)])
	assert.Equal(t, int64(0), dash.AppointmentsByStatus[string(model.AppointmentCancelled)])
	assert.Equal(t, int64(1), dash.QuotesByStatus[string(model.QuoteStatusAccepted)])
	assert.Equal(t, int64(1), dash.QuotesByStatus[string(model.QuoteStatusDraft)])
	assert.Equal(t, "100.00", dash.AcceptedQuotesTotal)
	assert.Equal(t, int64(1), dash.ClientCount)
	require.Len(t, dash.WeekLoad, 1)
	assert.Equal(t, today, dash.WeekLoad[0].Date)
}

func strPtr(s string) *string { return &s }
