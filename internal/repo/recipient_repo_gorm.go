package repo

import (
	"context"

	"grafik/internal/domain"
)

type RecipientRepo struct{ base }

func (r *RecipientRepo) Create(ctx context.Context, rc *domain.Recipient) error {
	return r.DB(ctx).Create(rc).Error
}

func (r *RecipientRepo) ListByUser(ctx context.Context, userID uint) ([]domain.Recipient, error) {
	var out []domain.Recipient
	err := r.DB(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&out).Error
	return out, err
}

// DeleteOwned 只能删除自己的收件人；不属于自己的与不存在的一样返回 ErrNotFound
func (r *RecipientRepo) DeleteOwned(ctx context.Context, id, userID uint) error {
	res := r.DB(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Recipient{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
