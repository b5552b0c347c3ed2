package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-amo/portal-shell/cache"
	"github.com/skyward-amo/portal-shell/controller"
	logger "github.com/skyward-amo/portal-shell/logging"
	"github.com/skyward-amo/portal-shell/middleware"
	"github.com/skyward-amo/portal-shell/model"
	"github.com/skyward-amo/portal-shell/service"
	"github.com/skyward-amo/portal-shell/session"
	"github.com/skyward-amo/portal-shell/util"
)

// fakePollService must be safe for concurrent use: session bootstrap kicks
// its initial poll on a background goroutine.
type fakePollService struct {
	mu      sync.Mutex
	calls   int
	lastErr error
	reasons []string
}

func (f *fakePollService) Poll(ctx context.Context, sc *session.Context, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.reasons = append(f.reasons, reason)
	return f.lastErr
}

func (f *fakePollService) setErr(err error) {
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
}

func (f *fakePollService) sawReason(reason string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reasons {
		if r == reason {
			return true
		}
	}
	return false
}

type fakeGateService struct {
	decision service.Decision
}

func (f *fakeGateService) Evaluate(ctx context.Context, sc *session.Context, path, query string) service.Decision {
	return f.decision
}

type shellFixture struct {
	router  *gin.Engine
	manager *session.Manager
	store   *cache.Store
	poller  *fakePollService
	gate    *fakeGateService
}

func newShellFixture(t *testing.T) *shellFixture {
	t.Helper()
	logger.InitLogger(t.TempDir())
	gin.SetMode(gin.TestMode)

	store := cache.NewStore(nil)
	bus := util.NewEventBus()
	clock := session.NewClock()
	manager := session.NewManager(store, bus, clock, session.ManagerConfig{
		IdleTimeout:      time.Hour,
		WarningLead:      3 * time.Minute,
		ActivityDebounce: time.Second,
		FastTTL:          10 * time.Minute,
		StandardTTL:      5 * time.Minute,
	})
	poller := &fakePollService{}
	gate := &fakeGateService{decision: service.Decision{Allowed: true}}

	shell := controller.NewShellController(manager, store, poller, gate, bus, clock)
	router := gin.New()
	api := router.Group("/", middleware.SessionAuth())
	shell.RegisterRoutes(api)

	return &shellFixture{router: router, manager: manager, store: store, poller: poller, gate: gate}
}

func (fx *shellFixture) do(method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("X-Tenant-ID", "amo-1")
	req.Header.Set("X-Subject-ID", "tech-1")
	req.Header.Set("Content-Type", "application/json")
	fx.router.ServeHTTP(w, req)
	return w
}

func (fx *shellFixture) startSession(t *testing.T) {
	t.Helper()
	w := fx.do("POST", "/shell/session", `{"deviceMemoryGb":8,"networkClass":"4g","durableAvailable":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestShellController(t *testing.T) {
	t.Run("MissingIdentity_Unauthorized", func(t *testing.T) {
		fx := newShellFixture(t)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/shell/session", nil)
		fx.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Missing session identity")
	})

	t.Run("StartSession_Success", func(t *testing.T) {
		fx := newShellFixture(t)
		w := fx.do("POST", "/shell/session", `{"deviceMemoryGb":8,"networkClass":"4g","durableAvailable":true}`)
		assert.Equal(t, http.StatusCreated, w.Code)

		var response struct {
			State   string `json:"state"`
			Profile struct {
				MaxAgeMs         int64 `json:"maxAgeMs"`
				UseEphemeralTier bool  `json:"useEphemeralTier"`
			} `json:"profile"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ACTIVE", response.State)
		assert.EqualValues(t, 600000, response.Profile.MaxAgeMs)
		assert.True(t, response.Profile.UseEphemeralTier)
	})

	t.Run("StartSession_InvalidSignals", func(t *testing.T) {
		fx := newShellFixture(t)
		w := fx.do("POST", "/shell/session", `{"deviceMemoryGb":-1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GetSession_Success", func(t *testing.T) {
		fx := newShellFixture(t)
		fx.startSession(t)

		w := fx.do("GET", "/shell/session", "")
		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ACTIVE", response["state"])
		assert.NotContains(t, response, "pollError")
	})

	t.Run("GetSession_NotFound", func(t *testing.T) {
		fx := newShellFixture(t)
		w := fx.do("GET", "/shell/session", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Poll_ManualBypassesCache", func(t *testing.T) {
		fx := newShellFixture(t)
		fx.startSession(t)

		w := fx.do("POST", "/shell/poll", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, fx.poller.sawReason(service.ReasonManual))
	})

	t.Run("Poll_UpstreamFailure", func(t *testing.T) {
		fx := newShellFixture(t)
		fx.startSession(t)
		fx.poller.setErr(assert.AnError)

		w := fx.do("POST", "/shell/poll", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("Activity_NoContent", func(t *testing.T) {
		fx := newShellFixture(t)
		fx.startSession(t)
		w := fx.do("POST", "/shell/activity", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Keepalive_NoContent", func(t *testing.T) {
		fx := newShellFixture(t)
		fx.startSession(t)
		w := fx.do("POST", "/shell/keepalive", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("EvaluateRoute_MissingPath", func(t *testing.T) {
		fx := newShellFixture(t)
		fx.startSession(t)
		w := fx.do("GET", "/shell/route", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("EvaluateRoute_Blocked", func(t *testing.T) {
		fx := newShellFixture(t)
		fx.startSession(t)
		fx.gate.decision = service.Decision{
			Allowed:  false,
			Redirect: "/billing/locked",
			Replace:  true,
			ReturnTo: "/work-orders",
		}

		w := fx.do("GET", "/shell/route?path=/work-orders", "")
		assert.Equal(t, http.StatusOK, w.Code)

		var decision service.Decision
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.False(t, decision.Allowed)
		assert.Equal(t, "/billing/locked", decision.Redirect)
		assert.True(t, decision.Replace)
	})

	t.Run("GetNotifications_EmptyBeforeFirstPoll", func(t *testing.T) {
		fx := newShellFixture(t)
		fx.startSession(t)

		w := fx.do("GET", "/shell/notifications", "")
		assert.Equal(t, http.StatusOK, w.Code)

		var snapshot model.NotificationSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
		assert.Zero(t, snapshot.UnreadCount)
		assert.Empty(t, snapshot.Items)
	})

	t.Run("GetNotifications_CachedSnapshot", func(t *testing.T) {
		fx := newShellFixture(t)
		fx.startSession(t)

		key := cache.Key("amo-1", "tech-1", cache.ResourceNotifications)
		snapshot := model.NotificationSnapshot{
			UnreadCount: 2,
			Items: []model.NotificationItem{
				{ID: "n1", Source: model.SourceTraining, Unread: true},
				{ID: "n2", Source: model.SourceTraining, Unread: true},
			},
		}
		require.NoError(t, fx.store.Write(context.Background(), key, snapshot, true))

		w := fx.do("GET", "/shell/notifications", "")
		assert.Equal(t, http.StatusOK, w.Code)

		var got model.NotificationSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 2, got.UnreadCount)
		assert.Len(t, got.Items, 2)
	})

	t.Run("Logout_Flow", func(t *testing.T) {
		fx := newShellFixture(t)
		fx.startSession(t)

		w := fx.do("POST", "/shell/logout", "")
		assert.Equal(t, http.StatusNoContent, w.Code)

		// The session is gone afterwards.
		w = fx.do("GET", "/shell/session", "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = fx.do("POST", "/shell/logout", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
