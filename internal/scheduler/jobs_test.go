package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/order-service/internal/config"
	"github.com/spec-kit/order-service/internal/content"
	"github.com/spec-kit/order-service/internal/dispatch"
	"github.com/spec-kit/order-service/internal/domain"
)

type fakeEvictor struct{ evicted int }

func (f *fakeEvictor) EvictStale(context.Context) int { return f.evicted }

type fakePending struct {
	orders []domain.Order
	err    error
}

func (f *fakePending) ListPendingOlderThan(context.Context, time.Time, int) ([]domain.Order, error) {
	return f.orders, f.err
}

type fakeNotifier struct {
	mu      sync.Mutex
	intents []dispatch.Intent
}

func (f *fakeNotifier) Dispatch(intent dispatch.Intent) *dispatch.Future {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, intent)
	return nil
}

func newJobs(pending *fakePending, notifier *fakeNotifier) *Jobs {
	return New(config.JobsConfig{
		EvictionSpec:     "@every 1m",
		PendingDigest:    "0 9 * * *",
		PendingAgeHours:  48,
		DigestBatchLimit: 20,
	}, Dependencies{
		Sessions: &fakeEvictor{},
		Orders:   pending,
		Notifier: notifier,
		Catalog:  content.NewCatalog(),
		Admins:   []int64{900, 901},
		Logger:   zap.NewNop(),
	})
}

func TestPendingDigestNotifiesEveryAdmin(t *testing.T) {
	pending := &fakePending{orders: []domain.Order{
		{ID: 7, Category: "septic pumping", Status: domain.OrderStatusNew},
		{ID: 9, Category: "drain cleaning", Status: domain.OrderStatusNew},
	}}
	notifier := &fakeNotifier{}
	jobs := newJobs(pending, notifier)

	jobs.pendingDigest(context.Background())

	if len(notifier.intents) != 2 {
		t.Fatalf("sent %d digests, want 2", len(notifier.intents))
	}
	for _, intent := range notifier.intents {
		if !strings.Contains(intent.Text, "#0007") || !strings.Contains(intent.Text, "#0009") {
			t.Fatalf("digest text = %q", intent.Text)
		}
	}
}

func TestPendingDigestSkipsWhenNothingWaiting(t *testing.T) {
	notifier := &fakeNotifier{}
	jobs := newJobs(&fakePending{}, notifier)

	jobs.pendingDigest(context.Background())

	if len(notifier.intents) != 0 {
		t.Fatalf("expected no digest, got %d", len(notifier.intents))
	}
}

func TestPendingDigestSwallowsQueryFailure(t *testing.T) {
	notifier := &fakeNotifier{}
	jobs := newJobs(&fakePending{err: errors.New("db down")}, notifier)

	jobs.pendingDigest(context.Background())

	if len(notifier.intents) != 0 {
		t.Fatalf("expected no digest on failure, got %d", len(notifier.intents))
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	jobs := New(config.JobsConfig{EvictionSpec: "not a spec", PendingDigest: "0 9 * * *"}, Dependencies{
		Sessions: &fakeEvictor{},
		Orders:   &fakePending{},
		Notifier: &fakeNotifier{},
		Catalog:  content.NewCatalog(),
		Logger:   zap.NewNop(),
	})
	if err := jobs.Start(context.Background()); err == nil {
		t.Fatal("expected error for malformed cron spec")
	}
}
