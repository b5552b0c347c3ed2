package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/skyward-amo/portal-shell/cache"
	"github.com/skyward-amo/portal-shell/client"
	logger "github.com/skyward-amo/portal-shell/logging"
	"github.com/skyward-amo/portal-shell/model"
	"github.com/skyward-amo/portal-shell/session"
	"github.com/skyward-amo/portal-shell/util"
)

// Poll reasons. Manual bypasses every cache read in the cycle.
const (
	ReasonManual  = "manual"
	ReasonInitial = "initial"
)

// SubscriptionFetcher fetches the live subscription snapshot.
type SubscriptionFetcher interface {
	Fetch(ctx context.Context, tenantID, subjectID string) (*model.SubscriptionSnapshot, error)
}

// OverviewFetcher fetches the billing/usage overview.
type OverviewFetcher interface {
	Fetch(ctx context.Context, tenantID string) (*model.OverviewSummary, error)
}

// UnreadRefresher is the notification aggregator's entry point.
type UnreadRefresher interface {
	RefreshUnread(ctx context.Context, sc *session.Context, force bool) (int, error)
}

// IPollService is what the shell controller drives.
type IPollService interface {
	Poll(ctx context.Context, sc *session.Context, reason string) error
}

// PollService coordinates one refresh cycle of subscription, notification,
// and overview state. Cycles are single-flight per session: a caller that
// finds one in flight returns immediately and is not queued.
type PollService struct {
	store         *cache.Store
	bus           *util.EventBus
	subscriptions SubscriptionFetcher
	notifications UnreadRefresher
	overview      OverviewFetcher
}

// NewPollService creates a new instance of PollService
func NewPollService(store *cache.Store, bus *util.EventBus, subscriptions SubscriptionFetcher, notifications UnreadRefresher, overview OverviewFetcher) *PollService {
	return &PollService{
		store:         store,
		bus:           bus,
		subscriptions: subscriptions,
		notifications: notifications,
		overview:      overview,
	}
}

// Poll runs one cycle. The order is fixed — subscription, then
// notifications, then overview — because the billing gate must see the
// freshest subscription before the cycle is considered complete. Each step
// catches its own failure so the others still run; the last failure wins the
// session's user-visible error slot, and a fully clean cycle clears it.
func (s *PollService) Poll(ctx context.Context, sc *session.Context, reason string) error {
	if sc == nil {
		// No authenticated subject, nothing to refresh.
		return nil
	}
	if sc.Monitor != nil {
		if state, _ := sc.Monitor.Snapshot(); state.Terminal() {
			// The session already ended and its cache was purged; fetching
			// now would repopulate entries for a dead session.
			logger.Debug("Poll ignored for terminated session",
				zap.String("tenantID", sc.TenantID),
				zap.String("subjectID", sc.SubjectID),
				zap.String("state", state.String()))
			return nil
		}
	}
	if !sc.BeginPoll() {
		logger.Debug("Poll cycle already in flight, ignoring",
			zap.String("tenantID", sc.TenantID),
			zap.String("subjectID", sc.SubjectID),
			zap.String("reason", reason))
		return nil
	}
	defer sc.EndPoll()

	force := reason == ReasonManual
	var lastErr error
	unauthorized := false

	if err := s.refreshSubscription(ctx, sc, force); err != nil {
		logger.Error("Subscription refresh failed", zap.Error(err),
			zap.String("tenantID", sc.TenantID))
		lastErr = err
		unauthorized = unauthorized || client.IsUnauthorized(err)
	}
	if _, err := s.notifications.RefreshUnread(ctx, sc, force); err != nil {
		logger.Error("Notification refresh failed", zap.Error(err),
			zap.String("tenantID", sc.TenantID))
		lastErr = err
		unauthorized = unauthorized || client.IsUnauthorized(err)
	}
	if err := s.refreshOverview(ctx, sc, force); err != nil {
		logger.Error("Overview refresh failed", zap.Error(err),
			zap.String("tenantID", sc.TenantID))
		lastErr = err
		unauthorized = unauthorized || client.IsUnauthorized(err)
	}

	sc.SetPollError(lastErr)

	// A 401 from any fetch means the server no longer recognizes the
	// session. Raise the expiry signal once; the manager preempts the idle
	// monitor and purges the session's cache before Publish returns.
	if unauthorized {
		s.bus.Publish(ctx, model.LifecycleEvent{
			Type:      model.EventExpired,
			TenantID:  sc.TenantID,
			SubjectID: sc.SubjectID,
			Reason:    "unauthorized",
			At:        time.Now(),
		})
	}
	return lastErr
}

func (s *PollService) refreshSubscription(ctx context.Context, sc *session.Context, force bool) error {
	key := cache.Key(sc.TenantID, sc.SubjectID, cache.ResourceSubscription)
	if !force {
		if _, ok := s.store.Read(ctx, key, sc.Profile.MaxAge, sc.Profile.UseEphemeralTier); ok {
			return nil
		}
	}

	snapshot, err := s.subscriptions.Fetch(ctx, sc.TenantID, sc.SubjectID)
	if err != nil {
		return err
	}
	if err := s.store.Write(ctx, key, snapshot, sc.Profile.UseEphemeralTier); err != nil {
		logger.Warn("Failed to cache subscription snapshot", zap.Error(err))
	}
	return nil
}

func (s *PollService) refreshOverview(ctx context.Context, sc *session.Context, force bool) error {
	key := cache.Key(sc.TenantID, sc.SubjectID, cache.ResourceOverview)
	if !force {
		if _, ok := s.store.Read(ctx, key, sc.Profile.MaxAge, sc.Profile.UseEphemeralTier); ok {
			return nil
		}
	}

	summary, err := s.overview.Fetch(ctx, sc.TenantID)
	if err != nil {
		return err
	}
	if err := s.store.Write(ctx, key, summary, sc.Profile.UseEphemeralTier); err != nil {
		logger.Warn("Failed to cache overview summary", zap.Error(err))
	}
	return nil
}
