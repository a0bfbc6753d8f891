package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"grafik/internal/domain"
	"grafik/internal/repo"
)

// ArchiveAfterDays 超过该天数的行程被归档
const ArchiveAfterDays = 180

type AdminService struct{ d *Deps }

// ---------- users ----------

func (s *AdminService) Users(ctx context.Context) ([]domain.User, error) {
	return s.d.Store.Users.List(ctx)
}

// SetStatus 修改角色；唯一的 admin 不能被降级
func (s *AdminService) SetStatus(ctx context.Context, userID uint, raw string) (*domain.User, error) {
	status, err := domain.ParseUserStatus(raw)
	if err != nil {
		return nil, domain.NewValidationError("status", raw, "Wybrano nieprawidłowy status.")
	}
	var u *domain.User
	err = s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
		var err error
		if u, err = tx.Users.FindByID(ctx, userID); err != nil {
			return err
		}
		if u.Status == domain.StatusAdmin && status != domain.StatusAdmin {
			admins, err := tx.Users.CountByStatus(ctx, domain.StatusAdmin)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return domain.ErrLastAdmin
			}
		}
		if err := tx.Users.UpdateFields(ctx, u.ID, map[string]any{"status": status}); err != nil {
			return err
		}
		u.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.d.Log.Info("user status changed", zap.Uint("user_id", userID), zap.String("status", string(status)))
	return u, nil
}

func (s *AdminService) SetAgency(ctx context.Context, userID uint, raw string) (*domain.User, error) {
	agency, err := domain.ParseAgency(raw)
	if err != nil {
		return nil, domain.NewValidationError("agency", raw, "Wybrano nieprawidłową agencję.")
	}
	u, err := s.d.Store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.d.Store.Users.UpdateFields(ctx, u.ID, map[string]any{"agency": agency}); err != nil {
		return nil, err
	}
	u.Agency = agency
	return u, nil
}

// ---------- settlements ----------

// SettlementView 当年未归档行程，按今天拆成未来/过去两组，均按日期升序
type SettlementView struct {
	Year   int           `json:"year"`
	Month  int           `json:"month"` // 0 = 全年
	Search string        `json:"search"`
	Future []domain.Trip `json:"future"`
	Past   []domain.Trip `json:"past"`
}

// Settlements month 为 nil 时取当月，空串表示全年
func (s *AdminService) Settlements(ctx context.Context, month *string, search string) (*SettlementView, error) {
	today := s.d.today()
	view := &SettlementView{Year: today.Year(), Search: strings.TrimSpace(search)}
	if month == nil {
		view.Month = int(today.Month())
	} else if m := strings.TrimSpace(*month); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > 12 {
			return nil, domain.NewValidationError("search_month", m, "Nieprawidłowy miesiąc.")
		}
		view.Month = n
	}

	from := time.Date(view.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	if view.Month > 0 {
		from = time.Date(view.Year, time.Month(view.Month), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0)
	}
	trips, err := s.d.Store.Trips.ListActiveBetween(ctx, from, to, view.Search)
	if err != nil {
		return nil, err
	}
	view.Future, view.Past = []domain.Trip{}, []domain.Trip{}
	for _, t := range trips {
		if t.IsPast(today) {
			view.Past = append(view.Past, t)
		} else {
			view.Future = append(view.Future, t)
		}
	}
	return view, nil
}

var settlementFields = map[string]bool{
	"start_time": true, "departure_time": true, "spots": true,
	"work_start": true, "work_end": true, "km": true, "passenger": true,
}

type settlementEdit struct {
	field  string
	tripID uint
	value  string
}

// parseSettlementKey "field-tripId"；格式不对的键返回 false
func parseSettlementKey(key string) (string, uint, bool) {
	i := strings.LastIndexByte(key, '-')
	if i <= 0 || i == len(key)-1 {
		return "", 0, false
	}
	field := key[:i]
	if !settlementFields[field] {
		return "", 0, false
	}
	id, err := strconv.ParseUint(key[i+1:], 10, 64)
	if err != nil || id == 0 {
		return "", 0, false
	}
	return field, uint(id), true
}

func applySettlementField(t *domain.Trip, field, value string) error {
	var err error
	switch field {
	case "start_time":
		t.StartTime, err = parseClockField(field, value)
	case "departure_time":
		t.DepartureTime, err = parseClockField(field, value)
	case "work_start":
		t.WorkStartTime, err = parseClockField(field, value)
	case "work_end":
		t.WorkEndTime, err = parseClockField(field, value)
	case "spots":
		t.Spots, err = parseSpotsField(value)
	case "km":
		t.Kilometers, err = parseKilometers(value)
	case "passenger":
		t.ManagerWasPassenger = true
	}
	return err
}

// SaveSettlements 批量编辑，全部成功或全部回滚；返回更新的行程数
func (s *AdminService) SaveSettlements(ctx context.Context, form map[string]string) (int, error) {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var edits []settlementEdit
	ids := map[uint]struct{}{}
	for _, k := range keys {
		field, id, ok := parseSettlementKey(k)
		if !ok {
			continue
		}
		edits = append(edits, settlementEdit{field: field, tripID: id, value: form[k]})
		ids[id] = struct{}{}
	}
	if len(edits) == 0 {
		return 0, nil
	}
	idList := make([]uint, 0, len(ids))
	for id := range ids {
		idList = append(idList, id)
	}
	sort.Slice(idList, func(i, j int) bool { return idList[i] < idList[j] })

	today := s.d.today()
	updated := 0
	err := s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
		trips, err := tx.Trips.FindByIDs(ctx, idList)
		if err != nil {
			return err
		}
		for _, e := range edits {
			t, ok := trips[e.tripID]
			if !ok {
				continue
			}
			if err := applySettlementField(t, e.field, e.value); err != nil {
				return domain.NewValidationError(e.field, e.value,
					"Błąd formatu danych. Wprowadzono nieprawidłową wartość: "+e.value)
			}
		}
		// 过去的行程若本次未勾选 passenger，视为取消勾选
		for _, id := range idList {
			t, ok := trips[id]
			if !ok {
				continue
			}
			if _, checked := form[fmt.Sprintf("passenger-%d", id)]; !checked && t.IsPast(today) {
				t.ManagerWasPassenger = false
			}
			t.LastModified = s.d.now()
			if err := tx.Trips.Save(ctx, t); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.d.invalidateEvents(ctx)
	return updated, nil
}

// ---------- archive / clear ----------

func (s *AdminService) Archived(ctx context.Context) ([]domain.Trip, error) {
	return s.d.Store.Trips.ListArchived(ctx)
}

// Archive 把日期早于 today-180d 的未归档行程标记为归档
func (s *AdminService) Archive(ctx context.Context) (int64, error) {
	cutoff := s.d.today().AddDate(0, 0, -ArchiveAfterDays)
	n, err := s.d.Store.Trips.ArchiveBefore(ctx, cutoff, s.d.now())
	if err != nil {
		return 0, fmt.Errorf("archive trips: %w", err)
	}
	s.d.invalidateEvents(ctx)
	s.d.Log.Info("trips archived", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	return n, nil
}

// ClearMonth 硬删除指定年月的未归档行程（连同报名）
func (s *AdminService) ClearMonth(ctx context.Context, year, month int) (int64, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return 0, domain.NewValidationError("month", fmt.Sprintf("%d/%d", month, year), "Nieprawidłowy rok lub miesiąc.")
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	var n int64
	err := s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
		var err error
		n, err = tx.Trips.DeleteActiveBetween(ctx, from, from.AddDate(0, 1, 0))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear month %d/%d: %w", month, year, err)
	}
	s.d.invalidateEvents(ctx)
	s.d.Log.Info("month cleared", zap.Int("year", year), zap.Int("month", month), zap.Int64("count", n))
	return n, nil
}
