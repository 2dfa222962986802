// Package scheduler runs the periodic background jobs: stale session
// eviction and the daily digest of orders nobody has picked up.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/order-service/internal/config"
	"github.com/spec-kit/order-service/internal/content"
	"github.com/spec-kit/order-service/internal/dispatch"
	"github.com/spec-kit/order-service/internal/domain"
)

// SessionEvictor expires idle conversation sessions.
type SessionEvictor interface {
	EvictStale(ctx context.Context) int
}

// PendingLister surfaces orders that have sat untouched past a cutoff.
type PendingLister interface {
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
}

// Notifier submits outbound intents without blocking the caller.
type Notifier interface {
	Dispatch(intent dispatch.Intent) *dispatch.Future
}

// Jobs owns the cron runner.
type Jobs struct {
	cfg      config.JobsConfig
	sessions SessionEvictor
	orders   PendingLister
	notifier Notifier
	catalog  *content.Catalog
	admins   []int64
	logger   *zap.Logger
	cron     *cron.Cron
}

// Dependencies bundles collaborators for the job runner.
type Dependencies struct {
	Sessions SessionEvictor
	Orders   PendingLister
	Notifier Notifier
	Catalog  *content.Catalog
	Admins   []int64
	Logger   *zap.Logger
}

// New constructs the job runner without starting it.
func New(cfg config.JobsConfig, deps Dependencies) *Jobs {
	return &Jobs{
		cfg:      cfg,
		sessions: deps.Sessions,
		orders:   deps.Orders,
		notifier: deps.Notifier,
		catalog:  deps.Catalog,
		admins:   deps.Admins,
		logger:   deps.Logger,
		cron:     cron.New(),
	}
}

// Start registers the schedules and launches the runner. The passed context
// bounds each job invocation, not the runner itself.
func (j *Jobs) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.cfg.EvictionSpec, func() { j.evictSessions(ctx) }); err != nil {
		return fmt.Errorf("register eviction job: %w", err)
	}
	if _, err := j.cron.AddFunc(j.cfg.PendingDigest, func() { j.pendingDigest(ctx) }); err != nil {
		return fmt.Errorf("register pending digest job: %w", err)
	}
	j.cron.Start()
	return nil
}

// Stop halts the runner and waits for in-flight jobs.
func (j *Jobs) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Jobs) evictSessions(ctx context.Context) {
	if evicted := j.sessions.EvictStale(ctx); evicted > 0 {
		j.logger.Info("stale sessions evicted", zap.Int("count", evicted))
	}
}

// pendingDigest reminds staff chats about orders still in "new" past the
// configured age.
func (j *Jobs) pendingDigest(ctx context.Context) {
	cutoff := time.Now().Add(-j.cfg.PendingAge())
	orders, err := j.orders.ListPendingOlderThan(ctx, cutoff, j.cfg.DigestBatchLimit)
	if err != nil {
		j.logger.Error("pending digest query failed", zap.Error(err))
		return
	}
	if len(orders) == 0 {
		return
	}

	lines := make([]string, 0, len(orders)+1)
	lines = append(lines, fmt.Sprintf("%d orders are still waiting for a dispatcher:", len(orders)))
	for _, order := range orders {
		lines = append(lines, j.catalog.StatusLine(order))
	}
	text := strings.Join(lines, "\n")

	for _, adminID := range j.admins {
		j.notifier.Dispatch(dispatch.Intent{
			ChatID:        adminID,
			Text:          text,
			CorrelationID: fmt.Sprintf("pending-digest-%s", time.Now().Format("2006-01-02")),
		})
	}
	j.logger.Info("pending digest sent", zap.Int("orders", len(orders)), zap.Int("admins", len(j.admins)))
}
