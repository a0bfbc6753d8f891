package repo

import (
	"context"
	"strings"
	"time"

	"grafik/internal/core/database"
	"grafik/internal/domain"
)

type UserRepo struct{ base }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := r.DB(ctx).Create(u).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.DB(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// FindByEmail 邮箱按小写比较
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.DB(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&domain.User{}).Count(&n).Error
	return n, err
}

func (r *UserRepo) CountByStatus(ctx context.Context, status domain.UserStatus) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&domain.User{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// List 管理端用户列表，按姓名排序
func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.DB(ctx).Order("name ASC, surname ASC").Find(&users).Error
	return users, err
}

func (r *UserRepo) ListByStatus(ctx context.Context, statuses ...domain.UserStatus) ([]domain.User, error) {
	var users []domain.User
	err := r.DB(ctx).Where("status IN ?", statuses).Order("id ASC").Find(&users).Error
	return users, err
}

func (r *UserRepo) IDsByStatus(ctx context.Context, status domain.UserStatus) ([]uint, error) {
	var ids []uint
	err := r.DB(ctx).Model(&domain.User{}).Where("status = ?", status).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *UserRepo) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	res := r.DB(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Touch 更新 last_activity，不触发其他 hook
func (r *UserRepo) Touch(ctx context.Context, id uint, at time.Time) error {
	return r.DB(ctx).Model(&domain.User{}).Where("id = ?", id).UpdateColumn("last_activity", at).Error
}
