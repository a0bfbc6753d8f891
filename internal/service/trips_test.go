package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grafik/internal/domain"
	"grafik/internal/notify"
)

func TestTripCreate(t *testing.T) {
	f := newFixture(t)
	mgr := f.user(t, "kierownik", domain.StatusManager)
	w := f.user(t, "anna", domain.StatusWorker)
	g := f.user(t, "zloty", domain.StatusGoldenWorker)
	f.user(t, "admin", domain.StatusAdmin)

	trip, failed, err := f.svc.Trips.Create(f.ctx, mgr, CreateTripInput{
		Title: "  Magazyn  ", Date: "2025-11-20", Spots: "3", IsConfirmed: true, Notes: "brama 2",
	})
	require.NoError(t, err)
	assert.Zero(t, failed)
	assert.Equal(t, "Magazyn", trip.Title)
	require.NotNil(t, trip.ManagerID)
	assert.Equal(t, mgr.ID, *trip.ManagerID)
	assert.Equal(t, domain.SignupConfirmed, f.signupStatus(t, trip.ID, mgr.ID))
	assert.Equal(t, domain.SignupTentative, f.signupStatus(t, trip.ID, g.ID))
	assert.Empty(t, f.signupStatus(t, trip.ID, w.ID))

	// 只通知 pracownik / złoty pracownik
	msgs := f.rec.sent()
	require.Len(t, msgs, 2)
	to := []string{msgs[0].To[0], msgs[1].To[0]}
	assert.ElementsMatch(t, []string{w.Email, g.Email}, to)
	assert.Equal(t, "Nowe zlecenie w grafiku: Magazyn", msgs[0].Subject)
	assert.Equal(t, notify.TemplateNewTrip, msgs[0].Template)
}

func TestTripCreate_Validation(t *testing.T) {
	f := newFixture(t)
	mgr := f.user(t, "kierownik", domain.StatusManager)

	cases := []struct {
		in  CreateTripInput
		msg string
	}{
		{CreateTripInput{Title: " ", Date: "2025-11-20"}, "Nazwa zlecenia jest wymagana."},
		{CreateTripInput{Title: "A", Date: "2025-11-20", Spots: "8"}, "Liczba miejsc musi być w zakresie od 1 do 7."},
		{CreateTripInput{Title: "A", Date: "2025-11-20", Spots: "0"}, "Liczba miejsc musi być w zakresie od 1 do 7."},
		{CreateTripInput{Title: "A", Date: "2025-11-20", Spots: "dwa"}, "Liczba miejsc musi być liczbą całkowitą."},
	}
	for _, tc := range cases {
		_, _, err := f.svc.Trips.Create(f.ctx, mgr, tc.in)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, tc.msg, ve.Msg)
	}

	_, _, err := f.svc.Trips.Create(f.ctx, mgr, CreateTripInput{Title: "A", Date: "20.11.2025"})
	assert.True(t, domain.IsValidation(err))
}

func TestTripCreate_NotifyFailureDoesNotRollback(t *testing.T) {
	f := newFixture(t)
	mgr := f.user(t, "kierownik", domain.StatusManager)
	f.user(t, "anna", domain.StatusWorker)
	f.rec.fail = true

	trip, failed, err := f.svc.Trips.Create(f.ctx, mgr, CreateTripInput{Title: "Hala", Date: "2025-11-20"})
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	_, err = f.store.Trips.FindByID(f.ctx, trip.ID)
	assert.NoError(t, err)
}

func TestTripEdit(t *testing.T) {
	f := newFixture(t)
	trip := f.trip(t, "Hala", "2025-11-20", 2)

	got, err := f.svc.Trips.Edit(f.ctx, trip.ID, EditTripInput{
		Spots:         strPtr("12"),
		StartTime:     strPtr("06:30"),
		WorkStartTime: strPtr("08:00"),
		Kilometers:    strPtr("123,456"),
		Notes:         strPtr("nowe uwagi"),
		IsConfirmed:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, got.Spots)
	assert.Equal(t, 12, *got.Spots)
	require.NotNil(t, got.StartTime)
	assert.Equal(t, domain.Clock("06:30:00"), *got.StartTime)
	require.NotNil(t, got.Kilometers)
	assert.InDelta(t, 123.46, *got.Kilometers, 1e-9)
	assert.True(t, got.IsConfirmed)

	// 修改时间取注入的时钟
	stored, err := f.store.Trips.FindByID(f.ctx, trip.ID)
	require.NoError(t, err)
	assert.True(t, testNow.Equal(stored.LastModified), "%v", stored.LastModified)

	// 未提交的字段保持不变，空串清空
	got, err = f.svc.Trips.Edit(f.ctx, trip.ID, EditTripInput{StartTime: strPtr(""), Spots: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, got.StartTime)
	require.NotNil(t, got.WorkStartTime)
	assert.Equal(t, "08:00", got.WorkStartTime.HHMM())
	assert.Equal(t, 1, *got.Spots)
	assert.Equal(t, "nowe uwagi", got.Notes)
	assert.False(t, got.IsConfirmed)

	_, err = f.svc.Trips.Edit(f.ctx, trip.ID, EditTripInput{DepartureTime: strPtr("25:99")})
	assert.True(t, domain.IsValidation(err))

	// 小时必须两位
	_, err = f.svc.Trips.Edit(f.ctx, trip.ID, EditTripInput{DepartureTime: strPtr("6:30")})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Nieprawidłowy format godziny: 6:30", ve.Msg)

	_, err = f.svc.Trips.Edit(f.ctx, 999, EditTripInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTripDelete_CascadesSignups(t *testing.T) {
	f := newFixture(t)
	mgr := f.user(t, "kierownik", domain.StatusManager)
	trip, _, err := f.svc.Trips.Create(f.ctx, mgr, CreateTripInput{Title: "Hala", Date: "2025-11-20"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Trips.Delete(f.ctx, trip.ID))
	assert.Empty(t, f.signupStatus(t, trip.ID, mgr.ID))
	assert.ErrorIs(t, f.svc.Trips.Delete(f.ctx, trip.ID), domain.ErrNotFound)
}

func TestTripDetails_ArchivedHiddenFromWorkers(t *testing.T) {
	f := newFixture(t)
	mgr := f.user(t, "kierownik", domain.StatusManager)
	w := f.user(t, "anna", domain.StatusWorker)
	trip := f.trip(t, "Stare", "2025-01-10", 2)
	trip.IsArchived = true
	require.NoError(t, f.store.Trips.Save(f.ctx, trip))

	_, err := f.svc.Trips.Details(f.ctx, trip.ID, w)
	assert.ErrorIs(t, err, domain.ErrTripArchived)

	d, err := f.svc.Trips.Details(f.ctx, trip.ID, mgr)
	require.NoError(t, err)
	assert.True(t, d.IsPast)
	assert.Nil(t, d.Own)
}

func TestSendToOffice(t *testing.T) {
	f := newFixture(t)
	mgr := f.user(t, "kierownik", domain.StatusManager)
	w := f.user(t, "anna", domain.StatusWorker)
	r := f.user(t, "rezerwa", domain.StatusWorker)

	trip, _, err := f.svc.Trips.Create(f.ctx, mgr, CreateTripInput{Title: "Hala", Date: "2025-11-20", Spots: "2"})
	require.NoError(t, err)
	_, err = f.svc.Signups.Apply(f.ctx, trip.ID, w, domain.ActionSignup)
	require.NoError(t, err)
	_, err = f.svc.Signups.Apply(f.ctx, trip.ID, r, domain.ActionSignup)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Trips.SendToOffice(f.ctx, trip.ID, mgr), domain.ErrNoRecipients)

	_, err = f.svc.Users.AddRecipient(f.ctx, mgr, "biuro@example.com")
	require.NoError(t, err)
	before := len(f.rec.sent())
	require.NoError(t, f.svc.Trips.SendToOffice(f.ctx, trip.ID, mgr))

	msgs := f.rec.sent()
	require.Len(t, msgs, before+1)
	msg := msgs[len(msgs)-1]
	assert.Equal(t, []string{"biuro@example.com"}, msg.To)
	assert.Equal(t, "Lista Uczestników: Hala - 20.11.2025", msg.Subject)
	participants, ok := msg.Data["participants"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, participants, 2, "reserve is not a participant")

	f.rec.fail = true
	assert.ErrorIs(t, f.svc.Trips.SendToOffice(f.ctx, trip.ID, mgr), domain.ErrDeliveryFailed)
}

func TestEventsAndFragment(t *testing.T) {
	f := newFixture(t)
	a := f.trip(t, "Hala", "2025-11-20", 2)
	b := f.trip(t, "Stare", "2025-01-10", 2)
	b.IsArchived = true
	require.NoError(t, f.store.Trips.Save(f.ctx, b))

	events, err := f.svc.Trips.Events(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []Event{{ID: a.ID, Title: "Hala", Start: "2025-11-20"}}, events)

	fr, err := f.svc.Trips.Fragment(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-11-20", fr.Date)

	_, err = f.svc.Trips.Fragment(f.ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
