package service

import (
	"context"
	"testing"

	"github.com/spec-kit/order-service/internal/domain"
	"github.com/spec-kit/order-service/internal/observability"
)

type fixedSessions struct{ live int }

func (f fixedSessions) LiveSessions() int { return f.live }

func TestCollectAssemblesSnapshot(t *testing.T) {
	orders := newStubOrders(
		&domain.Order{ID: 1, Status: domain.OrderStatusNew},
		&domain.Order{ID: 2, Status: domain.OrderStatusNew},
		&domain.Order{ID: 3, Status: domain.OrderStatusCompleted},
	)
	users := &stubUsers{chatIDs: []int64{10, 11}}
	reviews := &stubReviews{reviews: []domain.Review{{ID: 1, Rating: 5}}}

	svc := NewStatsService(StatsDependencies{
		OrderRepo:  orders,
		UserRepo:   users,
		ReviewRepo: reviews,
		Sessions:   fixedSessions{live: 4},
		Metrics:    observability.NewMetrics(),
	})

	stats, err := svc.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if stats.TotalOrders != 3 || stats.OrdersByStatus[domain.OrderStatusNew] != 2 {
		t.Fatalf("order counts = %+v", stats)
	}
	if stats.TotalUsers != 2 || stats.TotalReviews != 1 || stats.LiveSessions != 4 {
		t.Fatalf("stats = %+v", stats)
	}
}
