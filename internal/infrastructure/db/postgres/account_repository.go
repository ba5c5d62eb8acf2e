package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/99minutos/account-service/internal/core/domain"
)

// AccountRepository implements ports.UserStore over the accounts and
// account_roles tables.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.find(ctx, "email = ?", email)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrResourceNotFound
	}
	return r.find(ctx, "account_id = ?", parsed)
}

func (r *AccountRepository) find(ctx context.Context, query string, arg any) (*domain.Account, error) {
	db := conn(ctx, r.db)

	var rec accountModel
	if err := db.Where(query, arg).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrResourceNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	var roles []roleModel
	err := db.Table("roles").
		Select("roles.role_id, roles.name").
		Joins("JOIN account_roles ar ON ar.role_id = roles.role_id").
		Where("ar.account_id = ?", rec.AccountID).
		Order("ar.position").
		Scan(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("load account roles: %w", err)
	}
	return toDomainAccount(rec, roles), nil
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&accountModel{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count accounts by email: %w", err)
	}
	return n > 0, nil
}

// Save inserts a new account (Version 0) or updates the stored row when its
// version still matches, then rewrites the role links. The unique email
// constraint decides concurrent inserts.
func (r *AccountRepository) Save(ctx context.Context, a *domain.Account) error {
	rec, err := toAccountModel(a)
	if err != nil {
		return err
	}

	next := a.Version + 1
	err = conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if a.Version == 0 {
			rec.Version = next
			if err := tx.Create(&rec).Error; err != nil {
				if isUniqueViolation(err) {
					return domain.ErrDuplicateResource
				}
				return fmt.Errorf("insert account: %w", err)
			}
		} else {
			res := tx.Model(&accountModel{}).
				Where("account_id = ? AND version = ?", rec.AccountID, a.Version).
				Updates(map[string]any{
					"username":      rec.Username,
					"password_hash": rec.PasswordHash,
					"last_login_at": rec.LastLoginAt,
					"version":       next,
				})
			if res.Error != nil {
				return fmt.Errorf("update account: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return domain.ErrConcurrentModification
			}
			if err := tx.Where("account_id = ?", rec.AccountID).Delete(&accountRoleModel{}).Error; err != nil {
				return fmt.Errorf("clear account roles: %w", err)
			}
		}
		return r.linkRoles(tx, rec.AccountID, a.Roles)
	})
	if err != nil {
		return err
	}
	a.Version = next
	return nil
}

func (r *AccountRepository) linkRoles(tx *gorm.DB, accountID uuid.UUID, roles []domain.Role) error {
	if len(roles) == 0 {
		return nil
	}
	links := make([]accountRoleModel, 0, len(roles))
	for i, role := range roles {
		roleID, err := uuid.Parse(role.ID)
		if err != nil {
			return fmt.Errorf("role id %q: %w", role.ID, domain.ErrBadRequest)
		}
		links = append(links, accountRoleModel{AccountID: accountID, RoleID: roleID, Position: i})
	}
	if err := tx.Create(&links).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrBadRequest
		}
		return fmt.Errorf("link account roles: %w", err)
	}
	return nil
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&accountModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}
