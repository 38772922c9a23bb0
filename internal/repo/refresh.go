package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ostrikov/auth-service/internal/models"
)

func (r *GormRepo) FindRefreshByToken(ctx context.Context, token string) (*models.RefreshTokenInfo, error) {
	var info models.RefreshTokenInfo
	err := r.DB.WithContext(ctx).Where("token = ?", token).First(&info).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

func (r *GormRepo) FindRefreshByUser(ctx context.Context, userID uint) (*models.RefreshTokenInfo, error) {
	var info models.RefreshTokenInfo
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&info).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

func (r *GormRepo) CreateRefreshToken(ctx context.Context, userID uint, token string) error {
	info := models.RefreshTokenInfo{UserID: userID, Token: token}
	return r.DB.WithContext(ctx).Create(&info).Error
}

// UpdateRefreshToken rotates the token value in place. The per-user row
// must already exist.
func (r *GormRepo) UpdateRefreshToken(ctx context.Context, userID uint, token string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshTokenInfo{}).
		Where("user_id = ?", userID).
		Update("token", token).Error
}
