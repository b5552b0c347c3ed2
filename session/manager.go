// session/manager.go
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/skyward-amo/portal-shell/cache"
	shell_errors "github.com/skyward-amo/portal-shell/errors"
	logger "github.com/skyward-amo/portal-shell/logging"
	"github.com/skyward-amo/portal-shell/model"
	"github.com/skyward-amo/portal-shell/util"
)

// ManagerConfig carries the session timings and per-profile cache TTLs.
type ManagerConfig struct {
	IdleTimeout      time.Duration
	WarningLead      time.Duration
	ActivityDebounce time.Duration
	FastTTL          time.Duration
	StandardTTL      time.Duration
}

// Manager owns the session lifecycle: it creates the session-scoped context
// at authentication, wires its idle monitor, purges the session's cache
// entries when the session ends, and bridges the lifecycle signal bus to the
// monitors.
type Manager struct {
	registry *Registry
	store    *cache.Store
	bus      *util.EventBus
	clock    Clock
	cfg      ManagerConfig
}

func NewManager(store *cache.Store, bus *util.EventBus, clock Clock, cfg ManagerConfig) *Manager {
	m := &Manager{
		registry: NewRegistry(),
		store:    store,
		bus:      bus,
		clock:    clock,
		cfg:      cfg,
	}

	// External signals drive the monitors: a server-declared expiry (e.g. a
	// 401 seen by any other request) preempts the idle path; activity resets
	// the timers.
	bus.Subscribe(model.EventExpired, m.handleExpired)
	bus.Subscribe(model.EventActivity, m.handleActivity)

	return m
}

// Begin creates (or replaces) the session context for a subject. The cache
// profile is selected here, once, from the signals the client reported; it
// stays fixed until the next Begin.
func (m *Manager) Begin(ctx context.Context, tenantID, subjectID string, sig model.EnvironmentSignals) (*Context, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	profile := cache.SelectProfile(sig, m.cfg.FastTTL, m.cfg.StandardTTL)
	sc := NewContext(tenantID, subjectID, profile)
	sc.Monitor = NewIdleMonitor(m.clock, m.cfg.IdleTimeout, m.cfg.WarningLead, m.cfg.ActivityDebounce,
		func(reason string) { m.onIdleLogout(sc, reason) })

	if old := m.registry.Put(sc); old != nil && old.Monitor != nil {
		old.Monitor.Shutdown()
	}
	sc.Monitor.Start()

	logger.Info("Session started",
		zap.String("tenantID", tenantID),
		zap.String("subjectID", subjectID),
		zap.Duration("cacheTTL", profile.MaxAge),
		zap.Bool("ephemeralTier", profile.UseEphemeralTier))
	return sc, nil
}

// Get returns the live context for a subject, or nil.
func (m *Manager) Get(tenantID, subjectID string) *Context {
	return m.registry.Get(tenantID, subjectID)
}

// Logout performs a manual sign-out: terminal monitor state, wholesale cache
// purge, context teardown, and a manual-logout signal on the bus.
func (m *Manager) Logout(ctx context.Context, tenantID, subjectID string) error {
	sc := m.registry.Get(tenantID, subjectID)
	if sc == nil {
		return shell_errors.ErrSessionNotFound
	}
	if sc.Monitor != nil {
		sc.Monitor.Shutdown()
	}
	m.purge(ctx, sc)
	m.registry.Remove(tenantID, subjectID)

	m.bus.Publish(ctx, model.LifecycleEvent{
		Type:      model.EventManualLogout,
		TenantID:  tenantID,
		SubjectID: subjectID,
		Reason:    "manual",
		At:        m.clock.Now(),
	})
	logger.Info("Session signed out",
		zap.String("tenantID", tenantID),
		zap.String("subjectID", subjectID))
	return nil
}

// onIdleLogout runs when a monitor exhausts its idle budget. The context
// stays in the registry in its terminal state so the shell can render the
// signed-out overlay; only a fresh Begin replaces it.
func (m *Manager) onIdleLogout(sc *Context, reason string) {
	ctx := context.Background()
	m.purge(ctx, sc)
	m.bus.Publish(ctx, model.LifecycleEvent{
		Type:      model.EventIdleLogout,
		TenantID:  sc.TenantID,
		SubjectID: sc.SubjectID,
		Reason:    reason,
		At:        m.clock.Now(),
	})
}

func (m *Manager) handleExpired(ctx context.Context, event model.LifecycleEvent) error {
	sc := m.registry.Get(event.TenantID, event.SubjectID)
	if sc == nil {
		return nil
	}
	if sc.Monitor != nil {
		sc.Monitor.Expire()
	}
	m.purge(ctx, sc)
	logger.Info("Session expired",
		zap.String("tenantID", event.TenantID),
		zap.String("subjectID", event.SubjectID))
	return nil
}

func (m *Manager) handleActivity(ctx context.Context, event model.LifecycleEvent) error {
	sc := m.registry.Get(event.TenantID, event.SubjectID)
	if sc == nil || sc.Monitor == nil {
		return nil
	}
	sc.Monitor.Touch()
	return nil
}

func (m *Manager) purge(ctx context.Context, sc *Context) {
	m.store.ClearByPrefix(ctx, cache.SessionPrefix(sc.TenantID, sc.SubjectID))
}
