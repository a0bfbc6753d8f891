package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"grafik/internal/core/metrics"
	"grafik/internal/domain"
	"grafik/internal/repo"
	"grafik/internal/sheet"
)

// 标题含该关键字的行程按大单处理
const (
	bigTripKeyword = "dino"
	bigTripSpots   = 7
	smallTripSpots = 2
)

type SheetService struct{ d *Deps }

// ImportResult Warnings 为逐行错误提示
type ImportResult struct {
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Warnings       []string `json:"warnings,omitempty"`
	NotifyFailures int      `json:"notifyFailures"`
}

func (r ImportResult) Message() string {
	msg := fmt.Sprintf("Import zakończony. Utworzono %d nowych zleceń, zaktualizowano %d.", r.Created, r.Updated)
	if r.Skipped > 0 {
		msg += fmt.Sprintf(" Pomięto %d wierszy z powodu brakujących danych lub błędów.", r.Skipped)
	}
	return msg
}

func spotsForTitle(title string) int {
	if strings.Contains(strings.ToLower(title), bigTripKeyword) {
		return bigTripSpots
	}
	return smallTripSpots
}

// Import 按日期 upsert；单行失败只回滚该行（savepoint），新行程随后补报名并通知
func (s *SheetService) Import(ctx context.Context, importer *domain.User, rows []sheet.ImportRow) (ImportResult, error) {
	var res ImportResult
	var dates []time.Time
	for _, r := range rows {
		if r.DateOK {
			dates = append(dates, r.Date)
		}
	}
	if len(dates) == 0 {
		return res, domain.NewValidationError("file", "", "Nie znaleziono poprawnych dat w pierwszej kolumnie.")
	}

	var created []*domain.Trip
	err := s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
		existing, err := tx.Trips.ListByDates(ctx, dates)
		if err != nil {
			return err
		}
		byDate := make(map[time.Time]*domain.Trip, len(existing))
		for i := range existing {
			t := &existing[i]
			byDate[domain.DateOnly(t.TripDate)] = t
		}

		now := s.d.now()
		for _, r := range rows {
			if !r.DateOK || r.Title == "" {
				res.Skipped++
				metrics.ImportRows.WithLabelValues("skipped").Inc()
				continue
			}
			trip, isNew := byDate[r.Date], false
			err := tx.Transaction(ctx, func(row *repo.Store) error {
				if trip != nil {
					// 在副本上修改，该行回滚时内存里的行程保持原样
					upd := *trip
					upd.Title = r.Title
					upd.IsConfirmed = r.Confirmed
					upd.Spots = domain.IntPtr(spotsForTitle(r.Title))
					upd.LastModified = now
					if err := row.Trips.Save(ctx, &upd); err != nil {
						return err
					}
					*trip = upd
					return nil
				}
				nt := &domain.Trip{
					Title:        r.Title,
					TripDate:     r.Date,
					IsConfirmed:  r.Confirmed,
					Spots:        domain.IntPtr(spotsForTitle(r.Title)),
					LastModified: now,
				}
				if err := row.Trips.Create(ctx, nt); err != nil {
					return err
				}
				trip, isNew = nt, true
				return nil
			})
			if err != nil {
				res.Skipped++
				res.Warnings = append(res.Warnings, fmt.Sprintf("Błąd przetwarzania danych w wierszu %d: %v", r.Line, err))
				metrics.ImportRows.WithLabelValues("failed").Inc()
				s.d.Log.Warn("import row failed", zap.Int("line", r.Line), zap.Error(err))
				continue
			}
			if isNew {
				byDate[r.Date] = trip
				created = append(created, trip)
				metrics.ImportRows.WithLabelValues("created").Inc()
			} else {
				res.Updated++
				metrics.ImportRows.WithLabelValues("updated").Inc()
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import trips: %w", err)
	}
	res.Created = len(created)

	if len(created) > 0 {
		err = s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
			for _, t := range created {
				if err := tx.Signups.Create(ctx, &domain.Signup{TripID: t.ID, UserID: importer.ID, Status: domain.SignupConfirmed}); err != nil {
					return err
				}
				if _, err := enrollGolden(ctx, tx, t.ID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("enroll imported trips: %w", err)
		}
	}
	s.d.invalidateEvents(ctx)

	if len(created) > 0 {
		workers, err := s.d.Store.Users.ListByStatus(ctx, domain.StatusWorker, domain.StatusGoldenWorker)
		if err != nil {
			s.d.Log.Error("list workers for notification", zap.Error(err))
		} else {
			res.NotifyFailures = s.d.notifyAll(ctx, newTripMessages(created, workers, s.d.BaseURL, "Nowe zlecenie: "))
		}
	}
	s.d.Log.Info("import finished",
		zap.Uint("user_id", importer.ID),
		zap.Int("created", res.Created), zap.Int("updated", res.Updated), zap.Int("skipped", res.Skipped))
	return res, nil
}

// Export 调用者所有报名的行程；passenger 只对管理角色显示真实值
func (s *SheetService) Export(ctx context.Context, user *domain.User) ([]byte, string, error) {
	if !strings.EqualFold(string(user.Agency), string(domain.AgencyDPL)) {
		return nil, "", domain.ErrExportNotAllowed
	}
	rows, err := s.d.Store.Signups.ExportRows(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	out := make([]sheet.ExportRow, 0, len(rows))
	for _, r := range rows {
		er := sheet.ExportRow{
			Date:      r.TripDate.Format(domain.DateLayout),
			Title:     r.Title,
			WorkStart: clockHHMM(r.WorkStartTime),
			WorkEnd:   clockHHMM(r.WorkEndTime),
			Km:        r.Kilometers,
		}
		if user.CanManage() && r.ManagerWasPassenger {
			er.Passenger = 1
		}
		out = append(out, er)
	}
	b, err := sheet.WriteExport(out)
	if err != nil {
		return nil, "", fmt.Errorf("export for user %d: %w", user.ID, err)
	}
	return b, fmt.Sprintf("grafik_%s_%s.xlsx", user.Name, s.d.now().Format("20060102")), nil
}

func (s *SheetService) Sample() ([]byte, string, error) {
	b, err := sheet.Sample(s.d.today())
	return b, "przykladowy_grafik.xlsx", err
}

func clockHHMM(c *domain.Clock) string {
	if c == nil {
		return ""
	}
	return c.HHMM()
}
