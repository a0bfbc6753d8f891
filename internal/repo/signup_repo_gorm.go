package repo

import (
	"context"
	"time"

	"grafik/internal/core/database"
	"grafik/internal/domain"
)

type SignupRepo struct{ base }

// ExportRow 用户报名 join 行程，导出用
type ExportRow struct {
	TripDate            time.Time
	Title               string
	WorkStartTime       *domain.Clock
	WorkEndTime         *domain.Clock
	Kilometers          *float64
	ManagerWasPassenger bool
}

func (r *SignupRepo) Find(ctx context.Context, tripID, userID uint) (*domain.Signup, error) {
	var s domain.Signup
	err := r.DB(ctx).Where("trip_id = ? AND user_id = ?", tripID, userID).First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *SignupRepo) Create(ctx context.Context, s *domain.Signup) error {
	if err := r.DB(ctx).Create(s).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SignupRepo) CreateBatch(ctx context.Context, signups []domain.Signup) error {
	if len(signups) == 0 {
		return nil
	}
	if err := r.DB(ctx).Create(&signups).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SignupRepo) UpdateStatus(ctx context.Context, id uint, status domain.SignupStatus) error {
	return r.DB(ctx).Model(&domain.Signup{}).Where("id = ?", id).Update("status", status).Error
}

func (r *SignupRepo) Delete(ctx context.Context, id uint) error {
	return r.DB(ctx).Delete(&domain.Signup{}, id).Error
}

// ListByTrip 预加载 User，避免逐行查询
func (r *SignupRepo) ListByTrip(ctx context.Context, tripID uint, statuses ...domain.SignupStatus) ([]domain.Signup, error) {
	q := r.DB(ctx).Preload("User").Where("trip_id = ?", tripID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var out []domain.Signup
	err := q.Order("id ASC").Find(&out).Error
	return out, err
}

func (r *SignupRepo) CountOccupied(ctx context.Context, tripID uint) (int, error) {
	var n int64
	err := r.DB(ctx).Model(&domain.Signup{}).
		Where("trip_id = ? AND status IN ?", tripID, []domain.SignupStatus{domain.SignupConfirmed, domain.SignupTentative}).
		Count(&n).Error
	return int(n), err
}

// EnrolledUserIDs userIDs 中已报名该行程的子集
func (r *SignupRepo) EnrolledUserIDs(ctx context.Context, tripID uint, userIDs []uint) ([]uint, error) {
	var ids []uint
	if len(userIDs) == 0 {
		return ids, nil
	}
	err := r.DB(ctx).Model(&domain.Signup{}).
		Where("trip_id = ? AND user_id IN ?", tripID, userIDs).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *SignupRepo) ExportRows(ctx context.Context, userID uint) ([]ExportRow, error) {
	var rows []ExportRow
	err := r.DB(ctx).Table("signups").
		Select("trips.trip_date, trips.title, trips.work_start_time, trips.work_end_time, trips.kilometers, trips.manager_was_passenger").
		Joins("JOIN trips ON trips.id = signups.trip_id").
		Where("signups.user_id = ?", userID).
		Order("trips.trip_date ASC, trips.id ASC").
		Scan(&rows).Error
	return rows, err
}
