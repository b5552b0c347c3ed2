// session/context.go
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/skyward-amo/portal-shell/model"
)

// Context is the session-scoped state created when a subject authenticates
// and torn down on logout. It carries everything the poll coordinator,
// notification aggregator, and subscription gate share for one session:
// the cache profile, the single-flight poll flag, the previous unread count,
// the user-visible poll error slot, and the gate's analytics dedup set.
type Context struct {
	TenantID  string
	SubjectID string
	Profile   model.CacheProfile
	CreatedAt time.Time

	Monitor *IdleMonitor

	inFlight   atomic.Bool
	prevUnread atomic.Int64

	mu          sync.Mutex
	pollErr     error
	blockedKeys map[string]struct{}
}

// NewContext creates a session context with the given immutable identity and
// cache profile.
func NewContext(tenantID, subjectID string, profile model.CacheProfile) *Context {
	return &Context{
		TenantID:    tenantID,
		SubjectID:   subjectID,
		Profile:     profile,
		CreatedAt:   time.Now(),
		blockedKeys: make(map[string]struct{}),
	}
}

// BeginPoll claims the single-flight slot. Returns false when a cycle is
// already in flight; the caller must then return without side effects.
func (c *Context) BeginPoll() bool {
	return c.inFlight.CompareAndSwap(false, true)
}

// EndPoll releases the single-flight slot. Deferred by the coordinator so
// the flag clears on every exit path.
func (c *Context) EndPoll() {
	c.inFlight.Store(false)
}

// Polling reports whether a poll cycle is currently in flight.
func (c *Context) Polling() bool {
	return c.inFlight.Load()
}

// SetPollError records the cycle's surfaced error; nil clears the slot.
func (c *Context) SetPollError(err error) {
	c.mu.Lock()
	c.pollErr = err
	c.mu.Unlock()
}

// PollError returns the last surfaced poll error, if any.
func (c *Context) PollError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollErr
}

// PrevUnread returns the unread count recorded after the last refresh.
func (c *Context) PrevUnread() int {
	return int(c.prevUnread.Load())
}

// SetPrevUnread records the unread count; called unconditionally after every
// refresh so a decrease does not re-alert on the next fetch.
func (c *Context) SetPrevUnread(n int) {
	c.prevUnread.Store(int64(n))
}

// MarkBlocked records a gate-blocked path+query key. Returns true the first
// time the key is seen for this session, false on repeats.
func (c *Context) MarkBlocked(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.blockedKeys[key]; seen {
		return false
	}
	c.blockedKeys[key] = struct{}{}
	return true
}

// Registry hands out at most one live Context per tenant:subject pair.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*Context
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Context)}
}

func registryKey(tenantID, subjectID string) string {
	return tenantID + ":" + subjectID
}

// Get returns the context for the subject, or nil when none exists.
func (r *Registry) Get(tenantID, subjectID string) *Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[registryKey(tenantID, subjectID)]
}

// Put installs a context, replacing any previous one for the same subject.
// The replaced context is returned so the caller can tear it down.
func (r *Registry) Put(c *Context) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey(c.TenantID, c.SubjectID)
	old := r.byID[key]
	r.byID[key] = c
	return old
}

// Remove drops the subject's context.
func (r *Registry) Remove(tenantID, subjectID string) {
	r.mu.Lock()
	delete(r.byID, registryKey(tenantID, subjectID))
	r.mu.Unlock()
}
