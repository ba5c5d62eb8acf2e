package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/99minutos/account-service/internal/core/domain"
)

// RoleRepository implements ports.RoleStore.
type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var rec roleModel
	if err := conn(ctx, r.db).Where("name = ?", name).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrResourceNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{ID: rec.RoleID.String(), Name: rec.Name}, nil
}

func (r *RoleRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&roleModel{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count roles: %w", err)
	}
	return n > 0, nil
}

func (r *RoleRepository) Save(ctx context.Context, role *domain.Role) error {
	id, err := uuid.Parse(role.ID)
	if err != nil {
		return fmt.Errorf("role id %q: %w", role.ID, domain.ErrBadRequest)
	}
	if err := conn(ctx, r.db).Create(&roleModel{RoleID: id, Name: role.Name}).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateResource
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}
