package postgres

import (
	"time"

	"github.com/google/uuid"
)

type roleModel struct {
	RoleID uuid.UUID `gorm:"column:role_id;type:uuid;primaryKey"`
	Name   string    `gorm:"column:name"`
}

func (roleModel) TableName() string { return "roles" }

type accountModel struct {
	AccountID    uuid.UUID  `gorm:"column:account_id;type:uuid;primaryKey"`
	Username     string     `gorm:"column:username"`
	Email        string     `gorm:"column:email"`
	PasswordHash string     `gorm:"column:password_hash"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	Version      int64      `gorm:"column:version"`
}

func (accountModel) TableName() string { return "accounts" }

type accountRoleModel struct {
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;primaryKey"`
	RoleID    uuid.UUID `gorm:"column:role_id;type:uuid;primaryKey"`
	Position  int       `gorm:"column:position"`
}

func (accountRoleModel) TableName() string { return "account_roles" }

type auditModel struct {
	AuditID   uuid.UUID `gorm:"column:audit_id;type:uuid;primaryKey"`
	Action    string    `gorm:"column:action"`
	Actor     string    `gorm:"column:actor"`
	Target    *string   `gorm:"column:target"`
	Detail    *string   `gorm:"column:detail"`
	Timestamp time.Time `gorm:"column:timestamp"`
}

func (auditModel) TableName() string { return "audit_log" }
