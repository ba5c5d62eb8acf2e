package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// StatsService serves the admin dashboard summary.
type StatsService struct {
	users  ports.UserStore
	audit  ports.AuditReader
	logger zerolog.Logger
}

func NewStatsService(users ports.UserStore, audit ports.AuditReader, logger zerolog.Logger) *StatsService {
	return &StatsService{users: users, audit: audit, logger: logger}
}

// Stats returns the account count and the time of the latest login.
func (s *StatsService) Stats(ctx context.Context, caller *domain.Principal) (*ports.Stats, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: count accounts: %w", err)
	}
	last, err := s.audit.LatestTimestamp(ctx, domain.ActionUserLoggedIn)
	if err != nil {
		return nil, fmt.Errorf("stats: latest login: %w", err)
	}

	return &ports.Stats{TotalUsers: total, LastLoginAt: last}, nil
}
