package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"grafik/internal/core/cache"
	"grafik/internal/domain"
	"grafik/internal/notify"
	"grafik/internal/repo"
)

type TripService struct{ d *Deps }

type CreateTripInput struct {
	Title       string
	Date        string // YYYY-MM-DD
	Spots       string
	IsConfirmed bool
	Notes       string
}

// parseNewSpots 仅手动新增校验 [1,7]
func parseNewSpots(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.NewValidationError("spots", v, "Liczba miejsc musi być liczbą całkowitą.")
	}
	if n < domain.MinSpots || n > domain.MaxSpots {
		return 0, domain.NewValidationError("spots", v, "Liczba miejsc musi być w zakresie od 1 do 7.")
	}
	return n, nil
}

// Create 新建行程：创建者确认报名、金牌员工自动报名，提交后通知员工
func (s *TripService) Create(ctx context.Context, creator *domain.User, in CreateTripInput) (*domain.Trip, int, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, 0, domain.NewValidationError("title", "", "Nazwa zlecenia jest wymagana.")
	}
	date, err := domain.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return nil, 0, err
	}
	spots, err := parseNewSpots(in.Spots)
	if err != nil {
		return nil, 0, err
	}

	trip := &domain.Trip{
		Title:        title,
		TripDate:     date,
		Spots:        &spots,
		IsConfirmed:  in.IsConfirmed,
		Notes:        in.Notes,
		ManagerID:    &creator.ID,
		LastModified: s.d.now(),
	}
	err = s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
		if err := tx.Trips.Create(ctx, trip); err != nil {
			return err
		}
		if err := tx.Signups.Create(ctx, &domain.Signup{TripID: trip.ID, UserID: creator.ID, Status: domain.SignupConfirmed}); err != nil {
			return err
		}
		_, err := enrollGolden(ctx, tx, trip.ID)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create trip: %w", err)
	}
	s.d.invalidateEvents(ctx)

	workers, err := s.d.Store.Users.ListByStatus(ctx, domain.StatusWorker, domain.StatusGoldenWorker)
	if err != nil {
		s.d.Log.Error("list workers for notification", zap.Error(err))
		return trip, 0, nil
	}
	failed := s.d.notifyAll(ctx, newTripMessages([]*domain.Trip{trip}, workers, s.d.BaseURL, "Nowe zlecenie w grafiku: "))
	return trip, failed, nil
}

// newTripMessages 每个行程 × 每个员工一条
func newTripMessages(trips []*domain.Trip, workers []domain.User, baseURL, subjectPrefix string) []notify.Message {
	msgs := make([]notify.Message, 0, len(trips)*len(workers))
	for _, t := range trips {
		data := notify.TripData(t, baseURL)
		for i := range workers {
			w := &workers[i]
			msgs = append(msgs, notify.Message{
				To:       []string{w.Email},
				Subject:  subjectPrefix + t.Title,
				Template: notify.TemplateNewTrip,
				Data:     map[string]any{"trip": data, "user": notify.UserData(w)},
			})
		}
	}
	return msgs
}

// TripDetails 详情页数据
type TripDetails struct {
	Trip      *domain.Trip    `json:"trip"`
	Signups   []domain.Signup `json:"signups"`
	Own       *domain.Signup  `json:"ownSignup"`
	Occupied  int             `json:"occupied"`
	Available int             `json:"available"`
	IsPast    bool            `json:"isPast"`
}

func (s *TripService) Details(ctx context.Context, tripID uint, viewer *domain.User) (*TripDetails, error) {
	trip, err := s.d.Store.Trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.IsArchived && !viewer.CanManage() {
		return nil, domain.ErrTripArchived
	}
	signups, err := s.d.Store.Signups.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	out := &TripDetails{Trip: trip, Signups: signups, IsPast: trip.IsPast(s.d.today())}
	out.Occupied = domain.Occupied(signups)
	out.Available = domain.Available(trip.Spots, out.Occupied)
	for i := range signups {
		if signups[i].UserID == viewer.ID {
			out.Own = &signups[i]
			break
		}
	}
	return out, nil
}

// EditTripInput nil 字段表示表单未提交该字段；复选框按是否出现取值
type EditTripInput struct {
	Spots               *string
	StartTime           *string
	DepartureTime       *string
	WorkStartTime       *string
	WorkEndTime         *string
	Kilometers          *string
	Notes               *string
	IsConfirmed         bool
	ManagerWasPassenger bool
}

func (s *TripService) Edit(ctx context.Context, tripID uint, in EditTripInput) (*domain.Trip, error) {
	var trip *domain.Trip
	err := s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
		var err error
		if trip, err = tx.Trips.FindByID(ctx, tripID); err != nil {
			return err
		}
		if in.Spots != nil {
			if trip.Spots, err = parseSpotsField(*in.Spots); err != nil {
				return err
			}
		}
		clocks := []struct {
			field string
			v     *string
			dst   **domain.Clock
		}{
			{"start_time", in.StartTime, &trip.StartTime},
			{"departure_time", in.DepartureTime, &trip.DepartureTime},
			{"work_start_time", in.WorkStartTime, &trip.WorkStartTime},
			{"work_end_time", in.WorkEndTime, &trip.WorkEndTime},
		}
		for _, c := range clocks {
			if c.v == nil {
				continue
			}
			if *c.dst, err = parseClockField(c.field, *c.v); err != nil {
				return err
			}
		}
		if in.Kilometers != nil {
			if trip.Kilometers, err = parseKilometers(*in.Kilometers); err != nil {
				return err
			}
		}
		if in.Notes != nil {
			trip.Notes = *in.Notes
		}
		trip.IsConfirmed = in.IsConfirmed
		trip.ManagerWasPassenger = in.ManagerWasPassenger
		trip.LastModified = s.d.now()
		return tx.Trips.Save(ctx, trip)
	})
	if err != nil {
		return nil, err
	}
	s.d.invalidateEvents(ctx)
	return trip, nil
}

func (s *TripService) Delete(ctx context.Context, tripID uint) error {
	err := s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
		return tx.Trips.Delete(ctx, tripID)
	})
	if err != nil {
		return err
	}
	s.d.invalidateEvents(ctx)
	s.d.Log.Info("trip deleted", zap.Uint("trip_id", tripID))
	return nil
}

// SendToOffice 把确认/预报名名单发给发送者配置的收件人
func (s *TripService) SendToOffice(ctx context.Context, tripID uint, sender *domain.User) error {
	trip, err := s.d.Store.Trips.FindByID(ctx, tripID)
	if err != nil {
		return err
	}
	recipients, err := s.d.Store.Recipients.ListByUser(ctx, sender.ID)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return domain.ErrNoRecipients
	}
	participants, err := s.d.Store.Signups.ListByTrip(ctx, tripID, domain.SignupConfirmed, domain.SignupTentative)
	if err != nil {
		return err
	}
	to := make([]string, 0, len(recipients))
	for _, r := range recipients {
		to = append(to, r.Email)
	}
	msg := notify.Message{
		To:       to,
		Subject:  fmt.Sprintf("Lista Uczestników: %s - %s", trip.Title, trip.TripDate.Format("02.01.2006")),
		Template: notify.TemplateParticipants,
		Data: map[string]any{
			"trip":         notify.TripData(trip, s.d.BaseURL),
			"participants": notify.ParticipantsData(participants),
			"sender":       notify.UserData(sender),
		},
	}
	if s.d.notifyAll(ctx, []notify.Message{msg}) > 0 {
		return domain.ErrDeliveryFailed
	}
	return nil
}

// Event 日历条目
type Event struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
}

// Events 未归档行程的日历数据，走缓存
func (s *TripService) Events(ctx context.Context) ([]Event, error) {
	return cache.GetOrLoadJSON(s.d.Cache, ctx, eventsCacheKey, eventsTTL(s.d.EventsTTL), func(ctx context.Context) ([]Event, error) {
		trips, err := s.d.Store.Trips.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Event, 0, len(trips))
		for _, t := range trips {
			out = append(out, Event{ID: t.ID, Title: t.Title, Start: t.TripDate.Format(domain.DateLayout)})
		}
		return out, nil
	})
}

type Fragment struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

func (s *TripService) Fragment(ctx context.Context, tripID uint) (*Fragment, error) {
	t, err := s.d.Store.Trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return &Fragment{ID: t.ID, Title: t.Title, Date: t.TripDate.Format(domain.DateLayout), Notes: t.Notes}, nil
}

// eventsTTL 兜底
func eventsTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Minute
	}
	return d
}
