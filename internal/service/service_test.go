package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"grafik/internal/core/auth"
	"grafik/internal/core/database"
	"grafik/internal/domain"
	"grafik/internal/notify"
	"grafik/internal/repo"
	"grafik/pkg/utils"
)

var testNow = time.Date(2025, time.November, 15, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
	fail bool
}

func (r *recorder) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("smtp down")
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

type fixture struct {
	ctx   context.Context
	db    *gorm.DB
	store *repo.Store
	rec   *recorder
	svc   *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	utils.HashCost = bcrypt.MinCost

	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	now := func() time.Time { return testNow }
	rec := &recorder{}
	store := repo.NewStore(db)
	d := &Deps{
		Store:    store,
		Notifier: rec,
		JWT:      &auth.JWTer{Secret: []byte("test-secret"), Issuer: "grafik", TTL: time.Hour, Now: now},
		Log:      zap.NewNop(),
		BaseURL:  "http://grafik.test",
		Now:      now,
	}
	return &fixture{ctx: context.Background(), db: db, store: store, rec: rec, svc: New(d)}
}

func (f *fixture) user(t *testing.T, name string, status domain.UserStatus) *domain.User {
	t.Helper()
	hash, err := utils.HashPassword("secret1")
	require.NoError(t, err)
	u := &domain.User{
		Name:         name,
		Surname:      "Testowy",
		Email:        name + "@example.com",
		Agency:       domain.AgencyDPL,
		PasswordHash: hash,
		Status:       status,
		Theme:        domain.ThemeDefault,
		AcceptedTOS:  true,
	}
	require.NoError(t, f.store.Users.Create(f.ctx, u))
	return u
}

func (f *fixture) trip(t *testing.T, title, date string, spots int) *domain.Trip {
	t.Helper()
	d, err := domain.ParseDate(date)
	require.NoError(t, err)
	tr := &domain.Trip{Title: title, TripDate: d, Spots: domain.IntPtr(spots)}
	require.NoError(t, f.store.Trips.Create(f.ctx, tr))
	return tr
}

func (f *fixture) signupStatus(t *testing.T, tripID, userID uint) domain.SignupStatus {
	t.Helper()
	s, err := f.store.Signups.Find(f.ctx, tripID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return ""
	}
	require.NoError(t, err)
	return s.Status
}

func strPtr(s string) *string { return &s }
