// Package intake drives the per-user order and review conversations. One
// live session exists per chat user; unrelated users progress concurrently
// while each user's messages are applied strictly in arrival order.
package intake

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/order-service/internal/content"
	"github.com/spec-kit/order-service/internal/dispatch"
	"github.com/spec-kit/order-service/internal/domain"
	"github.com/spec-kit/order-service/internal/observability"
	"github.com/spec-kit/order-service/internal/ratelimit"
)

// State identifies the intake step a session is waiting on.
type State string

const (
	StateSelectCategory State = "select_category"
	StateEnterDetails   State = "enter_details"
	StateCollectContact State = "collect_contact"
	StateConfirm        State = "confirm"
	StateReviewRating   State = "review_rating"
	StateReviewComment  State = "review_comment"
)

// UserStore is the slice of user persistence the manager needs.
type UserStore interface {
	Upsert(ctx context.Context, profile domain.Profile) (*domain.User, error)
	SetPhone(ctx context.Context, chatID int64, phone string) error
}

// OrderStore is the slice of order persistence the manager needs.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	ListByUser(ctx context.Context, chatID int64, limit, offset int) ([]domain.Order, error)
}

// ReviewStore is the slice of review persistence the manager needs.
type ReviewStore interface {
	Create(ctx context.Context, review *domain.Review) error
}

// Notifier submits outbound intents without blocking the caller.
type Notifier interface {
	Dispatch(intent dispatch.Intent) *dispatch.Future
}

// Config holds intake policy knobs.
type Config struct {
	SessionTTL         time.Duration
	RequireContact     bool
	SubmitLimitEnabled bool
}

// Deps bundles collaborators for the manager.
type Deps struct {
	Users        UserStore
	Orders       OrderStore
	Reviews      ReviewStore
	Limiter      ratelimit.Limiter
	Catalog      *content.Catalog
	Notifier     Notifier
	AdminChatIDs []int64
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

type session struct {
	mu        sync.Mutex
	state     State
	draft     Draft
	rating    int
	startedAt time.Time
	lastSeen  time.Time
	terminal  bool
}

// Manager owns the live-session map. Mutation of a given session happens
// only on the worker bound to that user; the map lock is never held while a
// session lock is held.
type Manager struct {
	cfg      Config
	users    UserStore
	orders   OrderStore
	reviews  ReviewStore
	limiter  ratelimit.Limiter
	catalog  *content.Catalog
	notifier Notifier
	admins   []int64
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	sessions map[int64]*session

	now func() time.Time
}

// NewManager constructs the session manager.
func NewManager(cfg Config, deps Deps) *Manager {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.Disabled{}
	}
	return &Manager{
		cfg:      cfg,
		users:    deps.Users,
		orders:   deps.Orders,
		reviews:  deps.Reviews,
		limiter:  limiter,
		catalog:  deps.Catalog,
		notifier: deps.Notifier,
		admins:   deps.AdminChatIDs,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		sessions: make(map[int64]*session),
		now:      time.Now,
	}
}

// Handle applies one decoded signal for the given user and returns the
// reply to send. Validation problems re-prompt without advancing state and
// never escape as errors.
func (m *Manager) Handle(ctx context.Context, profile domain.Profile, sig Signal) string {
	user, err := m.users.Upsert(ctx, profile)
	if err != nil {
		m.logger.Warn("user upsert failed", zap.Int64("chat_id", profile.ChatID), zap.Error(err))
	}

	switch sig.Kind {
	case SignalStart:
		m.cancelSilently(profile.ChatID)
		return m.catalog.Welcome()
	case SignalHelp:
		return m.catalog.Help()
	case SignalPrices:
		return m.catalog.Prices()
	case SignalFAQ:
		return m.catalog.FAQ()
	case SignalMyOrders:
		return m.myOrders(ctx, profile.ChatID)
	case SignalCancel:
		return m.cancel(profile.ChatID)
	case SignalNewOrder:
		return m.startOrder(ctx, profile.ChatID)
	case SignalReview:
		return m.startReview(profile.ChatID)
	}

	sess := m.lookup(profile.ChatID)
	if sess == nil {
		return m.catalog.Unrecognized()
	}
	return m.advance(ctx, user, profile.ChatID, sess, sig)
}

// Cancel discards the user's live session. Cancelling an already-terminal
// or absent session is a no-op.
func (m *Manager) Cancel(chatID int64) {
	m.cancelSilently(chatID)
}

// EvictStale removes sessions idle past the TTL and tells the affected
// users their draft expired. Safe to call repeatedly.
func (m *Manager) EvictStale(ctx context.Context) int {
	now := m.now()

	m.mu.Lock()
	snapshot := make(map[int64]*session, len(m.sessions))
	for chatID, sess := range m.sessions {
		snapshot[chatID] = sess
	}
	m.mu.Unlock()

	evicted := 0
	for chatID, sess := range snapshot {
		sess.mu.Lock()
		stale := !sess.terminal && now.Sub(sess.lastSeen) > m.cfg.SessionTTL
		if stale {
			sess.terminal = true
		}
		sess.mu.Unlock()
		if !stale {
			continue
		}
		m.remove(chatID, sess)
		m.metrics.RecordSessionOutcome("evicted")
		evicted++
		if m.notifier != nil {
			m.notifier.Dispatch(dispatch.Intent{
				ChatID:        chatID,
				Text:          m.catalog.SessionExpired(),
				CorrelationID: fmt.Sprintf("session-expired-%d", chatID),
			})
		}
	}
	return evicted
}

// LiveSessions reports how many sessions are currently in flight.
func (m *Manager) LiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) startOrder(ctx context.Context, chatID int64) string {
	if sess := m.lookup(chatID); sess != nil {
		if reply, live := m.resume(chatID, sess); live {
			return reply
		}
	}

	if m.cfg.SubmitLimitEnabled {
		allowed, err := m.limiter.Allow(ctx, chatID)
		if err != nil {
			m.logger.Warn("submission limiter unavailable", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		if !allowed {
			return m.catalog.SubmitLimited()
		}
	}

	now := m.now()
	sess := &session{state: StateSelectCategory, startedAt: now, lastSeen: now}
	m.mu.Lock()
	m.sessions[chatID] = sess
	m.mu.Unlock()
	return m.catalog.CategoryPrompt()
}

func (m *Manager) startReview(chatID int64) string {
	if sess := m.lookup(chatID); sess != nil {
		if reply, live := m.resume(chatID, sess); live {
			return reply
		}
	}
	now := m.now()
	sess := &session{state: StateReviewRating, startedAt: now, lastSeen: now}
	m.mu.Lock()
	m.sessions[chatID] = sess
	m.mu.Unlock()
	return m.catalog.ReviewPrompt()
}

// resume re-prompts an existing live session instead of creating a second
// one for the same user. Returns live=false when the session turned out to
// be stale or terminal.
func (m *Manager) resume(chatID int64, sess *session) (string, bool) {
	now := m.now()
	sess.mu.Lock()
	if sess.terminal {
		sess.mu.Unlock()
		m.remove(chatID, sess)
		return "", false
	}
	if now.Sub(sess.lastSeen) > m.cfg.SessionTTL {
		sess.terminal = true
		sess.mu.Unlock()
		m.remove(chatID, sess)
		m.metrics.RecordSessionOutcome("evicted")
		return "", false
	}
	sess.lastSeen = now
	reply := m.promptFor(sess.state, sess.draft)
	sess.mu.Unlock()
	return reply, true
}

func (m *Manager) advance(ctx context.Context, user *domain.User, chatID int64, sess *session, sig Signal) string {
	now := m.now()

	sess.mu.Lock()
	if sess.terminal {
		sess.mu.Unlock()
		m.remove(chatID, sess)
		return m.catalog.Unrecognized()
	}
	if now.Sub(sess.lastSeen) > m.cfg.SessionTTL {
		sess.terminal = true
		sess.mu.Unlock()
		m.remove(chatID, sess)
		m.metrics.RecordSessionOutcome("evicted")
		return m.catalog.SessionExpired()
	}
	sess.lastSeen = now
	reply, finished := m.step(ctx, user, chatID, sess, sig)
	if finished {
		sess.terminal = true
	}
	sess.mu.Unlock()

	if finished {
		m.remove(chatID, sess)
	}
	return reply
}

// step applies one signal to a live session. Caller holds the session lock.
func (m *Manager) step(ctx context.Context, user *domain.User, chatID int64, sess *session, sig Signal) (string, bool) {
	switch sess.state {
	case StateSelectCategory:
		if sig.Kind != SignalCategory {
			return m.catalog.CategoryPrompt(), false
		}
		category, ok := m.catalog.CategoryBySlug(sig.Value)
		if !ok {
			return m.catalog.CategoryPrompt(), false
		}
		sess.draft = sess.draft.WithCategory(category.Slug, category.Label)
		sess.state = StateEnterDetails
		return m.catalog.DetailsPrompt(category.Label), false

	case StateEnterDetails:
		if sig.Kind == SignalUrgency {
			sess.draft = sess.draft.WithUrgency(sig.Value)
			return m.catalog.DetailsPrompt(sess.draft.Category), false
		}
		if sig.Kind != SignalText {
			return m.catalog.DetailsPrompt(sess.draft.Category), false
		}
		draft := sess.draft.WithDetails(sig.Text, sig.PhotoRef)
		if !draft.HasDetails() {
			return m.catalog.DetailsPrompt(sess.draft.Category), false
		}
		sess.draft = draft
		return m.afterDetails(user, sess), false

	case StateCollectContact:
		if sig.Kind != SignalText {
			return m.catalog.ContactPrompt(), false
		}
		phone, address, ok := splitContact(sig.Text)
		if !ok {
			return m.catalog.ContactPrompt(), false
		}
		sess.draft = sess.draft.WithContact(phone, address)
		if err := m.users.SetPhone(ctx, chatID, phone); err != nil {
			m.logger.Warn("persisting contact failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		sess.state = StateConfirm
		return m.catalog.ConfirmPrompt(sess.draft.Summary()), false

	case StateConfirm:
		if sig.Kind != SignalConfirm {
			return m.catalog.ConfirmPrompt(sess.draft.Summary()), false
		}
		return m.commitOrder(ctx, chatID, sess)

	case StateReviewRating:
		rating, ok := ratingFrom(sig)
		if !ok {
			return m.catalog.ReviewPrompt(), false
		}
		sess.rating = rating
		sess.state = StateReviewComment
		return m.catalog.ReviewCommentPrompt(), false

	case StateReviewComment:
		if sig.Kind != SignalText {
			return m.catalog.ReviewCommentPrompt(), false
		}
		return m.commitReview(ctx, chatID, sess, sig.Text)
	}
	return m.catalog.Unrecognized(), false
}

// afterDetails decides whether the contact step can be skipped: a phone
// already on file is reused, and the RequireContact policy controls whether
// an order may reach confirmation without any contact at all.
func (m *Manager) afterDetails(user *domain.User, sess *session) string {
	if user != nil && user.Phone != nil && ValidPhone(*user.Phone) {
		sess.draft = sess.draft.WithContact(*user.Phone, sess.draft.Address)
		sess.state = StateConfirm
		return m.catalog.ConfirmPrompt(sess.draft.Summary())
	}
	if !m.cfg.RequireContact {
		sess.state = StateConfirm
		return m.catalog.ConfirmPrompt(sess.draft.Summary())
	}
	sess.state = StateCollectContact
	return m.catalog.ContactPrompt()
}

// commitOrder performs the atomic store write. On failure the session stays
// in the confirmation state with its data intact so the user can retry.
func (m *Manager) commitOrder(ctx context.Context, chatID int64, sess *session) (string, bool) {
	order := sess.draft.ToOrder(chatID)
	if err := m.orders.Create(ctx, order); err != nil {
		m.logger.Error("order commit failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return m.catalog.CommitRetry(), false
	}
	m.metrics.RecordSessionOutcome("committed")
	if m.cfg.SubmitLimitEnabled {
		if err := m.limiter.MarkSubmitted(ctx, chatID); err != nil {
			m.logger.Warn("marking submission failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	m.alertAdmins(*order)
	return m.catalog.OrderCommitted(order.ID), true
}

func (m *Manager) commitReview(ctx context.Context, chatID int64, sess *session, text string) (string, bool) {
	review := &domain.Review{UserChatID: chatID, Rating: sess.rating}
	if trimmed := strings.TrimSpace(text); trimmed != "" && !strings.EqualFold(trimmed, "skip") {
		review.Comment = &trimmed
	}
	if err := m.reviews.Create(ctx, review); err != nil {
		m.logger.Error("review commit failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return m.catalog.ReviewRetry(), false
	}
	m.metrics.RecordSessionOutcome("committed")
	return m.catalog.ReviewThanks(), true
}

// alertAdmins notifies staff chats about a fresh order. Delivery is
// best-effort; failures surface only in the dispatcher's own reporting.
func (m *Manager) alertAdmins(order domain.Order) {
	if m.notifier == nil {
		return
	}
	text := m.catalog.NewOrderAlert(order)
	for _, adminID := range m.admins {
		m.notifier.Dispatch(dispatch.Intent{
			ChatID:        adminID,
			Text:          text,
			CorrelationID: fmt.Sprintf("order-%d-created", order.ID),
		})
	}
}

func (m *Manager) myOrders(ctx context.Context, chatID int64) string {
	orders, err := m.orders.ListByUser(ctx, chatID, 5, 0)
	if err != nil {
		m.logger.Error("listing user orders failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return m.catalog.OrdersUnavailable()
	}
	if len(orders) == 0 {
		return m.catalog.NoOrdersYet()
	}
	lines := make([]string, 0, len(orders)+1)
	lines = append(lines, "Your orders:")
	for _, order := range orders {
		lines = append(lines, m.catalog.StatusLine(order))
	}
	return strings.Join(lines, "\n")
}

func (m *Manager) cancel(chatID int64) string {
	if m.cancelSilently(chatID) {
		return m.catalog.OrderCancelled()
	}
	return m.catalog.NothingToCancel()
}

func (m *Manager) cancelSilently(chatID int64) bool {
	sess := m.lookup(chatID)
	if sess == nil {
		return false
	}
	sess.mu.Lock()
	cancelled := !sess.terminal
	sess.terminal = true
	sess.mu.Unlock()
	m.remove(chatID, sess)
	if cancelled {
		m.metrics.RecordSessionOutcome("cancelled")
	}
	return cancelled
}

func (m *Manager) lookup(chatID int64) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[chatID]
}

func (m *Manager) remove(chatID int64, sess *session) {
	m.mu.Lock()
	if m.sessions[chatID] == sess {
		delete(m.sessions, chatID)
	}
	m.mu.Unlock()
}

func (m *Manager) promptFor(state State, draft Draft) string {
	switch state {
	case StateSelectCategory:
		return m.catalog.CategoryPrompt()
	case StateEnterDetails:
		return m.catalog.DetailsPrompt(draft.Category)
	case StateCollectContact:
		return m.catalog.ContactPrompt()
	case StateConfirm:
		return m.catalog.ConfirmPrompt(draft.Summary())
	case StateReviewRating:
		return m.catalog.ReviewPrompt()
	case StateReviewComment:
		return m.catalog.ReviewCommentPrompt()
	}
	return m.catalog.Unrecognized()
}

// splitContact parses "phone\naddress..." input: first line must satisfy
// the phone policy, remaining lines become the optional address.
func splitContact(text string) (phone, address string, ok bool) {
	lines := strings.SplitN(strings.TrimSpace(text), "\n", 2)
	phone, ok = NormalizePhone(lines[0])
	if !ok {
		return "", "", false
	}
	if len(lines) == 2 {
		address = strings.TrimSpace(lines[1])
	}
	return phone, address, true
}

func ratingFrom(sig Signal) (int, bool) {
	if sig.Kind == SignalRating && sig.Rating >= 1 && sig.Rating <= 5 {
		return sig.Rating, true
	}
	if sig.Kind == SignalText {
		if rating, err := strconv.Atoi(strings.TrimSpace(sig.Text)); err == nil && rating >= 1 && rating <= 5 {
			return rating, true
		}
	}
	return 0, false
}
