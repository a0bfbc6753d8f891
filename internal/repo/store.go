package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"grafik/internal/domain"
)

type base struct{ db *gorm.DB }

func (b base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Store 聚合各仓储；Transaction 内拿到的是绑定同一事务的 Store
type Store struct {
	db         *gorm.DB
	Users      *UserRepo
	Trips      *TripRepo
	Signups    *SignupRepo
	Recipients *RecipientRepo
}

func NewStore(db *gorm.DB) *Store {
	b := base{db: db}
	return &Store{
		db:         db,
		Users:      &UserRepo{base: b},
		Trips:      &TripRepo{base: b},
		Signups:    &SignupRepo{base: b},
		Recipients: &RecipientRepo{base: b},
	}
}

func (s *Store) DB(ctx context.Context) *gorm.DB { return base{db: s.db}.DB(ctx) }

func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
