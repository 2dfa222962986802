package service

import (
	"context"

	"github.com/spec-kit/order-service/internal/domain"
	"github.com/spec-kit/order-service/internal/observability"
	"github.com/spec-kit/order-service/internal/repository"
)

// SessionCounter reports in-flight conversation sessions.
type SessionCounter interface {
	LiveSessions() int
}

// Stats is the aggregate snapshot served to the admin dashboard.
type Stats struct {
	OrdersByStatus map[domain.OrderStatus]int64 `json:"orders_by_status"`
	TotalOrders    int64                        `json:"total_orders"`
	TotalUsers     int64                        `json:"total_users"`
	TotalReviews   int64                        `json:"total_reviews"`
	LiveSessions   int                          `json:"live_sessions"`
	Counters       observability.Snapshot       `json:"counters"`
}

// StatsService assembles operational statistics.
type StatsService struct {
	orders   repository.OrderRepository
	users    repository.UserRepository
	reviews  repository.ReviewRepository
	sessions SessionCounter
	metrics  *observability.Metrics
}

// StatsDependencies bundles collaborators for the stats service.
type StatsDependencies struct {
	OrderRepo  repository.OrderRepository
	UserRepo   repository.UserRepository
	ReviewRepo repository.ReviewRepository
	Sessions   SessionCounter
	Metrics    *observability.Metrics
}

// NewStatsService constructs the service.
func NewStatsService(deps StatsDependencies) *StatsService {
	return &StatsService{
		orders:   deps.OrderRepo,
		users:    deps.UserRepo,
		reviews:  deps.ReviewRepo,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
	}
}

// Collect gathers the current snapshot.
func (s *StatsService) Collect(ctx context.Context) (*Stats, error) {
	byStatus, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range byStatus {
		total += n
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		OrdersByStatus: byStatus,
		TotalOrders:    total,
		TotalUsers:     users,
		TotalReviews:   reviews,
		Counters:       s.metrics.SnapshotCounters(),
	}
	if s.sessions != nil {
		stats.LiveSessions = s.sessions.LiveSessions()
	}
	return stats, nil
}
