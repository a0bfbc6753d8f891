package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grafik/internal/domain"
)

func TestDecide(t *testing.T) {
	confirmed := &domain.Signup{ID: 1, Status: domain.SignupConfirmed}
	tentative := &domain.Signup{ID: 2, Status: domain.SignupTentative}
	reserve := &domain.Signup{ID: 3, Status: domain.SignupReserve}

	cases := []struct {
		name      string
		existing  *domain.Signup
		action    domain.SignupAction
		available int
		want      Transition
	}{
		{"signup with free spot", nil, domain.ActionSignup, 1, Transition{EffectCreate, domain.SignupConfirmed}},
		{"signup when full", nil, domain.ActionSignup, 0, Transition{EffectCreate, domain.SignupReserve}},
		{"signup when overbooked", nil, domain.ActionSignup, -2, Transition{EffectCreate, domain.SignupReserve}},
		{"decline without signup", nil, domain.ActionDecline, 0, Transition{EffectCreate, domain.SignupUnavailable}},
		{"cancel without signup", nil, domain.ActionCancel, 3, Transition{Effect: EffectNone}},
		{"confirm without signup", nil, domain.ActionConfirm, 3, Transition{Effect: EffectNone}},
		{"cancel confirmed", confirmed, domain.ActionCancel, 0, Transition{Effect: EffectDelete}},
		{"cancel reserve", reserve, domain.ActionCancel, 0, Transition{Effect: EffectDelete}},
		{"confirm tentative", tentative, domain.ActionConfirm, 0, Transition{EffectUpdate, domain.SignupConfirmed}},
		{"confirm already confirmed", confirmed, domain.ActionConfirm, 0, Transition{EffectNone, domain.SignupConfirmed}},
		{"confirm reserve", reserve, domain.ActionConfirm, 5, Transition{EffectNone, domain.SignupReserve}},
		{"signup twice", confirmed, domain.ActionSignup, 5, Transition{EffectNone, domain.SignupConfirmed}},
		{"decline while tentative", tentative, domain.ActionDecline, 5, Transition{EffectNone, domain.SignupTentative}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.existing, tc.action, tc.available))
		})
	}
}

func TestApply_CapacityAndLifecycle(t *testing.T) {
	f := newFixture(t)
	mgr := f.user(t, "kierownik", domain.StatusManager)
	w1 := f.user(t, "anna", domain.StatusWorker)
	w2 := f.user(t, "bartek", domain.StatusWorker)
	w3 := f.user(t, "celina", domain.StatusWorker)

	trip, _, err := f.svc.Trips.Create(f.ctx, mgr, CreateTripInput{Title: "Hala", Date: "2025-11-20", Spots: "2"})
	require.NoError(t, err)

	res, err := f.svc.Signups.Apply(f.ctx, trip.ID, w1, domain.ActionSignup)
	require.NoError(t, err)
	assert.Equal(t, domain.SignupConfirmed, res.Status)
	assert.Equal(t, "Zostałeś zapisany/a na zlecenie.", res.Message)

	res, err = f.svc.Signups.Apply(f.ctx, trip.ID, w2, domain.ActionSignup)
	require.NoError(t, err)
	assert.Equal(t, domain.SignupReserve, res.Status)

	res, err = f.svc.Signups.Apply(f.ctx, trip.ID, w3, domain.ActionDecline)
	require.NoError(t, err)
	assert.Equal(t, domain.SignupUnavailable, res.Status)

	// 已确认再 confirm 不变
	res, err = f.svc.Signups.Apply(f.ctx, trip.ID, w1, domain.ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, EffectNone, res.Effect)
	assert.Equal(t, "Brak zmian.", res.Message)

	res, err = f.svc.Signups.Apply(f.ctx, trip.ID, w1, domain.ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, EffectDelete, res.Effect)
	assert.Empty(t, f.signupStatus(t, trip.ID, w1.ID))

	// 名额释放后 reserve 不会自动晋升
	assert.Equal(t, domain.SignupReserve, f.signupStatus(t, trip.ID, w2.ID))

	occupied, err := f.store.Signups.CountOccupied(f.ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, occupied)
}

func TestApply_UnknownTrip(t *testing.T) {
	f := newFixture(t)
	w := f.user(t, "anna", domain.StatusWorker)

	_, err := f.svc.Signups.Apply(f.ctx, 999, w, domain.ActionSignup)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApply_ConfirmTentative(t *testing.T) {
	f := newFixture(t)
	mgr := f.user(t, "kierownik", domain.StatusManager)
	gold := f.user(t, "zloty", domain.StatusGoldenWorker)

	trip, _, err := f.svc.Trips.Create(f.ctx, mgr, CreateTripInput{Title: "Hala", Date: "2025-11-20", Spots: "1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SignupTentative, f.signupStatus(t, trip.ID, gold.ID))

	res, err := f.svc.Signups.Apply(f.ctx, trip.ID, gold, domain.ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, EffectUpdate, res.Effect)
	assert.Equal(t, domain.SignupConfirmed, f.signupStatus(t, trip.ID, gold.ID))
}

func TestEnrollGolden_IgnoresCapacityAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	mgr := f.user(t, "kierownik", domain.StatusManager)
	g1 := f.user(t, "zloty1", domain.StatusGoldenWorker)
	g2 := f.user(t, "zloty2", domain.StatusGoldenWorker)

	trip, _, err := f.svc.Trips.Create(f.ctx, mgr, CreateTripInput{Title: "Hala", Date: "2025-11-20", Spots: "1"})
	require.NoError(t, err)

	details, err := f.svc.Trips.Details(f.ctx, trip.ID, mgr)
	require.NoError(t, err)
	assert.Equal(t, 3, details.Occupied)
	assert.Equal(t, -2, details.Available)

	n, err := f.svc.Signups.EnrollGolden(f.ctx, trip.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	// 已有其他状态的报名不会被改写
	g3 := f.user(t, "zloty3", domain.StatusGoldenWorker)
	_, err = f.svc.Signups.Apply(f.ctx, trip.ID, g3, domain.ActionDecline)
	require.NoError(t, err)
	n, err = f.svc.Signups.EnrollGolden(f.ctx, trip.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, domain.SignupUnavailable, f.signupStatus(t, trip.ID, g3.ID))

	for _, g := range []*domain.User{g1, g2} {
		assert.Equal(t, domain.SignupTentative, f.signupStatus(t, trip.ID, g.ID))
	}
}
