package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ostrikov/auth-service/internal/models"
)

func (r *GormRepo) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := r.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *GormRepo) FindRoleByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *GormRepo) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	role := models.Role{Name: name}
	if err := r.DB.WithContext(ctx).Create(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// AssignRole writes the one role a user ever gets. The unique index on
// user_roles.user_id rejects a second assignment.
func (r *GormRepo) AssignRole(ctx context.Context, userID, roleID uint) error {
	link := models.UserRole{UserID: userID, RoleID: roleID}
	return r.DB.WithContext(ctx).Create(&link).Error
}

func (r *GormRepo) FindUserRole(ctx context.Context, userID uint) (*models.UserRole, error) {
	var link models.UserRole
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}
