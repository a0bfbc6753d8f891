package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grafik/internal/domain"
)

type TripRepo struct{ base }

func (r *TripRepo) Create(ctx context.Context, t *domain.Trip) error {
	return r.DB(ctx).Create(t).Error
}

func (r *TripRepo) FindByID(ctx context.Context, id uint) (*domain.Trip, error) {
	var t domain.Trip
	if err := r.DB(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// LockByID SELECT ... FOR UPDATE；sqlite 写事务本身串行，不支持该语法
func (r *TripRepo) LockByID(ctx context.Context, id uint) (*domain.Trip, error) {
	q := r.DB(ctx)
	if q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var t domain.Trip
	if err := q.First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TripRepo) FindByIDs(ctx context.Context, ids []uint) (map[uint]*domain.Trip, error) {
	out := make(map[uint]*domain.Trip, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var trips []domain.Trip
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&trips).Error; err != nil {
		return nil, err
	}
	for i := range trips {
		out[trips[i].ID] = &trips[i]
	}
	return out, nil
}

// Save 全字段更新
func (r *TripRepo) Save(ctx context.Context, t *domain.Trip) error {
	return r.DB(ctx).Save(t).Error
}

// Delete 硬删除，报名一并删除
func (r *TripRepo) Delete(ctx context.Context, id uint) error {
	db := r.DB(ctx)
	if err := db.Where("trip_id = ?", id).Delete(&domain.Signup{}).Error; err != nil {
		return err
	}
	res := db.Delete(&domain.Trip{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByDates 导入对账：按日期找已有行程
func (r *TripRepo) ListByDates(ctx context.Context, dates []time.Time) ([]domain.Trip, error) {
	var trips []domain.Trip
	if len(dates) == 0 {
		return trips, nil
	}
	err := r.DB(ctx).Where("trip_date IN ?", dates).Order("id ASC").Find(&trips).Error
	return trips, err
}

func (r *TripRepo) ListActive(ctx context.Context) ([]domain.Trip, error) {
	var trips []domain.Trip
	err := r.DB(ctx).Where("is_archived = ?", false).Order("trip_date ASC, id ASC").Find(&trips).Error
	return trips, err
}

func (r *TripRepo) ListArchived(ctx context.Context) ([]domain.Trip, error) {
	var trips []domain.Trip
	err := r.DB(ctx).Preload("Manager").
		Where("is_archived = ?", true).
		Order("trip_date DESC, id DESC").
		Find(&trips).Error
	return trips, err
}

// ListActiveBetween 未归档、trip_date ∈ [from, to)，可按标题模糊过滤
func (r *TripRepo) ListActiveBetween(ctx context.Context, from, to time.Time, title string) ([]domain.Trip, error) {
	q := r.DB(ctx).Preload("Manager").
		Where("is_archived = ? AND trip_date >= ? AND trip_date < ?", false, from, to)
	if s := strings.TrimSpace(title); s != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	var trips []domain.Trip
	err := q.Order("trip_date ASC, id ASC").Find(&trips).Error
	return trips, err
}

// ArchiveBefore 集合更新，返回影响行数
func (r *TripRepo) ArchiveBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res := r.DB(ctx).Model(&domain.Trip{}).
		Where("trip_date < ? AND is_archived = ?", cutoff, false).
		Updates(map[string]any{"is_archived": true, "last_modified": now})
	return res.RowsAffected, res.Error
}

// DeleteActiveBetween 删除 [from, to) 内未归档的行程及其报名
func (r *TripRepo) DeleteActiveBetween(ctx context.Context, from, to time.Time) (int64, error) {
	db := r.DB(ctx)
	scope := func(q *gorm.DB) *gorm.DB {
		return q.Where("is_archived = ? AND trip_date >= ? AND trip_date < ?", false, from, to)
	}
	sub := db.Model(&domain.Trip{}).Select("id").Scopes(scope)
	if err := db.Where("trip_id IN (?)", sub).Delete(&domain.Signup{}).Error; err != nil {
		return 0, err
	}
	res := db.Scopes(scope).Delete(&domain.Trip{})
	return res.RowsAffected, res.Error
}
