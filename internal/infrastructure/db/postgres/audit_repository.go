package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/99minutos/account-service/internal/core/ports"
)

// AuditRepository is the append-only audit trail. It implements
// ports.AuditSink and ports.AuditReader.
type AuditRepository struct {
	db    *gorm.DB
	clock ports.Clock
}

func NewAuditRepository(db *gorm.DB, clock ports.Clock) *AuditRepository {
	return &AuditRepository{db: db, clock: clock}
}

func (r *AuditRepository) Append(ctx context.Context, action, actor, target, detail string) error {
	rec := auditModel{
		AuditID:   uuid.New(),
		Action:    action,
		Actor:     actor,
		Target:    nullableString(target),
		Detail:    nullableString(detail),
		Timestamp: r.clock.Now().UTC(),
	}
	if err := conn(ctx, r.db).Create(&rec).Error; err != nil {
		return fmt.Errorf("append audit %s: %w", action, err)
	}
	return nil
}

func (r *AuditRepository) LatestTimestamp(ctx context.Context, action string) (*time.Time, error) {
	var rec auditModel
	err := conn(ctx, r.db).
		Where("action = ?", action).
		Order("timestamp DESC").
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest audit %s: %w", action, err)
	}
	ts := rec.Timestamp.UTC()
	return &ts, nil
}
