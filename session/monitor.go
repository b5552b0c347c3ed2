// session/monitor.go
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	logger "github.com/skyward-amo/portal-shell/logging"
	"github.com/skyward-amo/portal-shell/model"
)

// TerminateFunc is invoked exactly once when the monitor logs the session out
// on its own (reason "idle"). It runs outside the monitor's lock.
type TerminateFunc func(reason string)

// IdleMonitor is the timer-driven idle state machine for one session.
//
// ACTIVE -> WARNING -> LOGGED_OUT on the idle path, or
// ACTIVE/WARNING -> EXPIRED when the server declares the session invalid.
// Both end states are terminal until a fresh Context replaces the monitor.
//
// A generation counter guards every timer callback: resetting the timers
// bumps the generation, so a callback from a cancelled schedule that already
// fired finds a stale generation and does nothing.
type IdleMonitor struct {
	clock     Clock
	total     time.Duration // idle budget
	warnLead  time.Duration // warning shows this long before logout
	debounce  time.Duration // min spacing between passive activity resets
	terminate TerminateFunc

	mu             sync.Mutex
	state          model.SessionState
	countdown      int // seconds remaining, valid only in WARNING
	lastActivityAt time.Time
	lastResetAt    time.Time
	gen            uint64
	warnTimer      Timer
	logoutTimer    Timer
	tickTimer      Timer
}

// NewIdleMonitor builds a monitor; warnLead must be shorter than total.
// Start must be called to arm the timers.
func NewIdleMonitor(clock Clock, total, warnLead, debounce time.Duration, terminate TerminateFunc) *IdleMonitor {
	if warnLead >= total {
		fallback := total / 10
		logger.Warn("Warning lead is not shorter than the idle budget, substituting fallback",
			zap.Duration("warningLead", warnLead),
			zap.Duration("idleBudget", total),
			zap.Duration("fallback", fallback))
		warnLead = fallback
	}
	return &IdleMonitor{
		clock:     clock,
		total:     total,
		warnLead:  warnLead,
		debounce:  debounce,
		terminate: terminate,
		state:     model.SessionActive,
		countdown: int(warnLead / time.Second),
	}
}

// Start arms the warning and logout timers for a fresh session.
func (m *IdleMonitor) Start() {
	m.reset(true)
}

// Touch handles a passive activity signal (pointer, keyboard, scroll, touch,
// focus, tab re-visibility). Debounced to one reset per debounce window so
// continuous interaction does not storm the timers.
func (m *IdleMonitor) Touch() {
	m.reset(false)
}

// Keepalive handles the explicit "stay signed in" action. Behaves like
// activity but always applies, even inside the debounce window.
func (m *IdleMonitor) Keepalive() {
	m.reset(true)
}

func (m *IdleMonitor) reset(bypassDebounce bool) {
	m.mu.Lock()
	if m.state.Terminal() {
		// No resurrection without re-authentication.
		m.mu.Unlock()
		return
	}

	now := m.clock.Now()
	if !bypassDebounce && !m.lastResetAt.IsZero() && now.Sub(m.lastResetAt) < m.debounce {
		m.lastActivityAt = now
		m.mu.Unlock()
		return
	}

	m.lastResetAt = now
	m.lastActivityAt = now
	m.gen++
	gen := m.gen
	m.stopTimersLocked()

	m.state = model.SessionActive
	m.countdown = int(m.warnLead / time.Second)
	m.warnTimer = m.clock.AfterFunc(m.total-m.warnLead, func() { m.onWarning(gen) })
	m.logoutTimer = m.clock.AfterFunc(m.total, func() { m.onLogout(gen) })
	m.mu.Unlock()
}

func (m *IdleMonitor) onWarning(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.state != model.SessionActive {
		return
	}
	m.state = model.SessionWarning
	logger.Info("Idle warning shown",
		zap.Int("countdownSeconds", m.countdown),
		zap.Duration("idleBudget", m.total))
	m.tickTimer = m.clock.AfterFunc(time.Second, func() { m.onTick(gen) })
}

// onTick decrements the visible countdown once per second, clamped at zero.
// The countdown is display only; the independently scheduled logout timer is
// what actually ends the session.
func (m *IdleMonitor) onTick(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.state != model.SessionWarning {
		return
	}
	if m.countdown > 0 {
		m.countdown--
	}
	if m.countdown > 0 {
		m.tickTimer = m.clock.AfterFunc(time.Second, func() { m.onTick(gen) })
	}
}

func (m *IdleMonitor) onLogout(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state.Terminal() {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.stopTimersLocked()
	m.state = model.SessionLoggedOut
	m.countdown = 0
	terminate := m.terminate
	m.mu.Unlock()

	logger.Info("Idle budget exhausted, logging session out")
	if terminate != nil {
		terminate("idle")
	}
}

// Expire handles a server-declared session expiry (e.g. a 401 on another
// in-flight request). Preempts the idle path even mid-warning.
func (m *IdleMonitor) Expire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() {
		return
	}
	m.gen++
	m.stopTimersLocked()
	m.state = model.SessionExpired
	m.countdown = 0
	logger.Info("Session expired by server signal")
}

// Shutdown cancels all timers and marks the session logged out without
// invoking the terminate callback. Used for manual sign-out, where the
// caller already owns the teardown.
func (m *IdleMonitor) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() {
		return
	}
	m.gen++
	m.stopTimersLocked()
	m.state = model.SessionLoggedOut
	m.countdown = 0
}

// Snapshot returns the current state and countdown seconds.
func (m *IdleMonitor) Snapshot() (model.SessionState, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.countdown
}

// LastActivityAt returns the time of the most recent activity signal.
func (m *IdleMonitor) LastActivityAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivityAt
}

// stopTimersLocked deterministically cancels every pending timer. Callers
// hold m.mu; stale callbacks that already fired are screened out by the
// generation check.
func (m *IdleMonitor) stopTimersLocked() {
	if m.warnTimer != nil {
		m.warnTimer.Stop()
		m.warnTimer = nil
	}
	if m.logoutTimer != nil {
		m.logoutTimer.Stop()
		m.logoutTimer = nil
	}
	if m.tickTimer != nil {
		m.tickTimer.Stop()
		m.tickTimer = nil
	}
}
