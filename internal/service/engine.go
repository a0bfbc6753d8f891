package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"grafik/internal/core/metrics"
	"grafik/internal/domain"
	"grafik/internal/repo"
)

// Effect 状态机对存储的动作
type Effect int

const (
	EffectNone Effect = iota
	EffectCreate
	EffectUpdate
	EffectDelete
)

// Transition Decide 的结果，Status 为创建/更新后的状态
type Transition struct {
	Effect Effect
	Status domain.SignupStatus
}

// Decide 纯函数：已有报名 + 动作 + 当前可用名额 -> 存储动作
func Decide(existing *domain.Signup, action domain.SignupAction, available int) Transition {
	if existing != nil {
		switch action {
		case domain.ActionCancel:
			return Transition{Effect: EffectDelete}
		case domain.ActionConfirm:
			if existing.Status == domain.SignupTentative {
				return Transition{Effect: EffectUpdate, Status: domain.SignupConfirmed}
			}
		}
		return Transition{Effect: EffectNone, Status: existing.Status}
	}
	switch action {
	case domain.ActionSignup:
		if available > 0 {
			return Transition{Effect: EffectCreate, Status: domain.SignupConfirmed}
		}
		return Transition{Effect: EffectCreate, Status: domain.SignupReserve}
	case domain.ActionDecline:
		return Transition{Effect: EffectCreate, Status: domain.SignupUnavailable}
	}
	return Transition{Effect: EffectNone}
}

// SignupResult Status 为空表示当前无报名
type SignupResult struct {
	Transition
	Message string
}

func (t Transition) message() string {
	switch t.Effect {
	case EffectDelete:
		return "Zrezygnowałeś/aś z udziału w zleceniu (lub niedyspozycji)."
	case EffectUpdate:
		return "Twój udział w zleceniu został potwierdzony."
	case EffectCreate:
		switch t.Status {
		case domain.SignupConfirmed:
			return "Zostałeś zapisany/a na zlecenie."
		case domain.SignupReserve:
			return "Brak wolnych miejsc. Zostałeś zapisany/a na listę rezerwową."
		case domain.SignupUnavailable:
			return "Zgłoszono niedyspozycję dla tego zlecenia."
		}
	}
	return "Brak zmian."
}

type SignupService struct{ d *Deps }

// Apply 在一个事务里锁行程行、计数、按状态机落库
func (s *SignupService) Apply(ctx context.Context, tripID uint, user *domain.User, action domain.SignupAction) (SignupResult, error) {
	var res SignupResult
	err := s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
		trip, err := tx.Trips.LockByID(ctx, tripID)
		if err != nil {
			return err
		}
		existing, err := tx.Signups.Find(ctx, tripID, user.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		available := 0
		if existing == nil && action == domain.ActionSignup {
			occupied, err := tx.Signups.CountOccupied(ctx, tripID)
			if err != nil {
				return err
			}
			available = domain.Available(trip.Spots, occupied)
		}

		t := Decide(existing, action, available)
		switch t.Effect {
		case EffectCreate:
			err = tx.Signups.Create(ctx, &domain.Signup{TripID: tripID, UserID: user.ID, Status: t.Status})
		case EffectUpdate:
			err = tx.Signups.UpdateStatus(ctx, existing.ID, t.Status)
		case EffectDelete:
			err = tx.Signups.Delete(ctx, existing.ID)
		}
		if err != nil {
			return err
		}
		res = SignupResult{Transition: t, Message: t.message()}
		return nil
	})
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup action %s on trip %d: %w", action, tripID, err)
	}
	if res.Effect == EffectCreate {
		metrics.Signups.WithLabelValues(string(res.Status)).Inc()
	}
	s.d.Log.Info("signup action",
		zap.Uint("trip_id", tripID), zap.Uint("user_id", user.ID),
		zap.String("action", string(action)), zap.Int("effect", int(res.Effect)))
	return res, nil
}

// enrollGolden 金牌员工集合差补报名 wstępnie zapisany；不受名额限制，重复调用无副作用
func enrollGolden(ctx context.Context, tx *repo.Store, tripID uint) (int, error) {
	golden, err := tx.Users.IDsByStatus(ctx, domain.StatusGoldenWorker)
	if err != nil {
		return 0, err
	}
	if len(golden) == 0 {
		return 0, nil
	}
	enrolled, err := tx.Signups.EnrolledUserIDs(ctx, tripID, golden)
	if err != nil {
		return 0, err
	}
	skip := make(map[uint]struct{}, len(enrolled))
	for _, id := range enrolled {
		skip[id] = struct{}{}
	}
	var batch []domain.Signup
	for _, id := range golden {
		if _, ok := skip[id]; ok {
			continue
		}
		batch = append(batch, domain.Signup{TripID: tripID, UserID: id, Status: domain.SignupTentative})
	}
	if err := tx.Signups.CreateBatch(ctx, batch); err != nil {
		return 0, err
	}
	if len(batch) > 0 {
		metrics.Signups.WithLabelValues(string(domain.SignupTentative)).Add(float64(len(batch)))
	}
	return len(batch), nil
}

// EnrollGolden 对已存在的行程补报名金牌员工
func (s *SignupService) EnrollGolden(ctx context.Context, tripID uint) (int, error) {
	var n int
	err := s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
		if _, err := tx.Trips.FindByID(ctx, tripID); err != nil {
			return err
		}
		var err error
		n, err = enrollGolden(ctx, tx, tripID)
		return err
	})
	return n, err
}
