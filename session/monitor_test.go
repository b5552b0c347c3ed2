package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	logger "github.com/skyward-amo/portal-shell/logging"
	"github.com/skyward-amo/portal-shell/model"
	"github.com/skyward-amo/portal-shell/session"
)

const (
	testIdleBudget  = 1800 * time.Second
	testWarningLead = 180 * time.Second
	testDebounce    = time.Second
)

func newTestMonitor(t *testing.T, clock *fakeClock) (*session.IdleMonitor, *[]string) {
	t.Helper()
	logger.InitLogger(t.TempDir())

	var reasons []string
	monitor := session.NewIdleMonitor(clock, testIdleBudget, testWarningLead, testDebounce,
		func(reason string) { reasons = append(reasons, reason) })
	monitor.Start()
	return monitor, &reasons
}

func TestIdleWalkthrough(t *testing.T) {
	clock := newFakeClock()
	monitor, reasons := newTestMonitor(t, clock)

	state, _ := monitor.Snapshot()
	assert.Equal(t, model.SessionActive, state)

	// Just before the warning point nothing has happened.
	clock.Advance(testIdleBudget - testWarningLead - time.Second) // t=1619s
	state, _ = monitor.Snapshot()
	assert.Equal(t, model.SessionActive, state)

	// At T_total - T_warn the warning shows with a full countdown.
	clock.Advance(time.Second) // t=1620s
	state, countdown := monitor.Snapshot()
	assert.Equal(t, model.SessionWarning, state)
	assert.Equal(t, 180, countdown)

	// The countdown ticks down second by second.
	clock.Advance(30 * time.Second) // t=1650s
	_, countdown = monitor.Snapshot()
	assert.Equal(t, 150, countdown)

	// At T_total the logout timer fires with reason "idle".
	clock.Advance(150 * time.Second) // t=1800s
	state, countdown = monitor.Snapshot()
	assert.Equal(t, model.SessionLoggedOut, state)
	assert.Equal(t, 0, countdown)
	assert.Equal(t, []string{"idle"}, *reasons)

	// Terminal: no amount of further time fires anything else.
	clock.Advance(time.Hour)
	assert.Equal(t, []string{"idle"}, *reasons)
}

func TestActivityResetsTimers(t *testing.T) {
	clock := newFakeClock()
	monitor, reasons := newTestMonitor(t, clock)

	clock.Advance(testIdleBudget - 10*time.Second)
	monitor.Touch()

	// The old schedule is gone: crossing the original logout point changes
	// nothing.
	clock.Advance(20 * time.Second)
	state, _ := monitor.Snapshot()
	assert.Equal(t, model.SessionActive, state)
	assert.Empty(t, *reasons)

	// The new schedule runs from the activity time.
	clock.Advance(testIdleBudget - 20*time.Second)
	state, _ = monitor.Snapshot()
	assert.Equal(t, model.SessionLoggedOut, state)
	assert.Equal(t, []string{"idle"}, *reasons)
}

func TestActivityDebounce(t *testing.T) {
	clock := newFakeClock()
	monitor, _ := newTestMonitor(t, clock)

	clock.Advance(500 * time.Millisecond)
	monitor.Touch() // within 1000ms of Start's reset: swallowed

	// Warning still fires on the original schedule.
	clock.Advance(testIdleBudget - testWarningLead - 500*time.Millisecond)
	state, _ := monitor.Snapshot()
	assert.Equal(t, model.SessionWarning, state)
}

func TestKeepaliveBypassesDebounce(t *testing.T) {
	clock := newFakeClock()
	monitor, _ := newTestMonitor(t, clock)

	clock.Advance(500 * time.Millisecond)
	monitor.Keepalive() // "stay signed in" always applies

	clock.Advance(testIdleBudget - testWarningLead - 500*time.Millisecond)
	state, _ := monitor.Snapshot()
	assert.Equal(t, model.SessionActive, state, "keepalive must have pushed the warning out")
}

func TestWarningCancelledByActivity(t *testing.T) {
	clock := newFakeClock()
	monitor, _ := newTestMonitor(t, clock)

	clock.Advance(testIdleBudget - testWarningLead)
	state, _ := monitor.Snapshot()
	assert.Equal(t, model.SessionWarning, state)

	clock.Advance(10 * time.Second)
	monitor.Touch()
	state, countdown := monitor.Snapshot()
	assert.Equal(t, model.SessionActive, state)
	assert.Equal(t, 180, countdown, "countdown resets with the timers")
}

func TestExpiryPreemptsWarning(t *testing.T) {
	clock := newFakeClock()
	monitor, reasons := newTestMonitor(t, clock)

	clock.Advance(testIdleBudget - testWarningLead + 5*time.Second)
	state, _ := monitor.Snapshot()
	assert.Equal(t, model.SessionWarning, state)

	monitor.Expire()
	state, countdown := monitor.Snapshot()
	assert.Equal(t, model.SessionExpired, state)
	assert.Equal(t, 0, countdown)

	// The pending logout timer is dead; expiry is terminal.
	clock.Advance(testIdleBudget)
	state, _ = monitor.Snapshot()
	assert.Equal(t, model.SessionExpired, state)
	assert.Empty(t, *reasons)

	monitor.Touch()
	state, _ = monitor.Snapshot()
	assert.Equal(t, model.SessionExpired, state, "no resurrection without re-authentication")
}

func TestShutdownIsTerminalWithoutCallback(t *testing.T) {
	clock := newFakeClock()
	monitor, reasons := newTestMonitor(t, clock)

	monitor.Shutdown()
	state, _ := monitor.Snapshot()
	assert.Equal(t, model.SessionLoggedOut, state)

	clock.Advance(2 * testIdleBudget)
	assert.Empty(t, *reasons)
}

func TestWarningLeadFallback(t *testing.T) {
	clock := newFakeClock()
	logger.InitLogger(t.TempDir())

	// A warning lead that is not shorter than the idle budget is replaced
	// with a tenth of the budget.
	monitor := session.NewIdleMonitor(clock, 100*time.Second, 200*time.Second, testDebounce, nil)
	monitor.Start()

	clock.Advance(89 * time.Second)
	state, _ := monitor.Snapshot()
	assert.Equal(t, model.SessionActive, state)

	clock.Advance(time.Second) // t=90s, budget minus the 10s fallback
	state, countdown := monitor.Snapshot()
	assert.Equal(t, model.SessionWarning, state)
	assert.Equal(t, 10, countdown)
}
