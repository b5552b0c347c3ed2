// controller/shell_controller.go
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skyward-amo/portal-shell/cache"
	shell_errors "github.com/skyward-amo/portal-shell/errors"
	"github.com/skyward-amo/portal-shell/model"
	"github.com/skyward-amo/portal-shell/service"
	"github.com/skyward-amo/portal-shell/session"
	"github.com/skyward-amo/portal-shell/util"
)

// ShellController exposes the session/cache/sync layer to the portal shell:
// session bootstrap and state, manual polling, activity signals, the
// subscription gate, and sign-out.
type ShellController struct {
	manager *session.Manager
	store   *cache.Store
	poller  service.IPollService
	gate    service.IGateService
	bus     *util.EventBus
	clock   session.Clock
}

func NewShellController(manager *session.Manager, store *cache.Store, poller service.IPollService, gate service.IGateService, bus *util.EventBus, clock session.Clock) *ShellController {
	return &ShellController{
		manager: manager,
		store:   store,
		poller:  poller,
		gate:    gate,
		bus:     bus,
		clock:   clock,
	}
}

// RegisterRoutes registers the API routes
func (sc *ShellController) RegisterRoutes(r *gin.RouterGroup) {
	shell := r.Group("/shell")
	{
		shell.POST("/session", sc.StartSession)
		shell.GET("/session", sc.GetSession)
		shell.POST("/poll", sc.Poll)
		shell.POST("/activity", sc.Activity)
		shell.POST("/keepalive", sc.Keepalive)
		shell.GET("/route", sc.EvaluateRoute)
		shell.GET("/notifications", sc.GetNotifications)
		shell.POST("/logout", sc.Logout)
	}
}

// StartSession endpoint: bootstraps the session-scoped context from the
// client's reported environment signals and kicks an initial poll.
func (sc *ShellController) StartSession(c *gin.Context) {
	tenantID, subjectID := util.SubjectFromContext(c)

	var signals model.EnvironmentSignals
	if err := c.ShouldBindJSON(&signals); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid environment signals", shell_errors.ErrInvalidSignals)
		return
	}

	ctxt, err := sc.manager.Begin(c, tenantID, subjectID, signals)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Failed to start session", err)
		return
	}

	// Initial fill; the shell renders from cache as results land.
	go sc.poller.Poll(context.Background(), ctxt, service.ReasonInitial)

	c.JSON(http.StatusCreated, gin.H{
		"state": model.SessionActive.String(),
		"profile": gin.H{
			"maxAgeMs":         ctxt.Profile.MaxAge.Milliseconds(),
			"useEphemeralTier": ctxt.Profile.UseEphemeralTier,
		},
	})
}

// GetSession endpoint: current idle state, countdown, and poll error slot.
func (sc *ShellController) GetSession(c *gin.Context) {
	tenantID, subjectID := util.SubjectFromContext(c)
	ctxt := sc.manager.Get(tenantID, subjectID)
	if ctxt == nil {
		util.RespondWithError(c, http.StatusNotFound, "Session not found", shell_errors.ErrSessionNotFound)
		return
	}

	state, countdown := ctxt.Monitor.Snapshot()
	response := gin.H{
		"state":            state.String(),
		"countdownSeconds": countdown,
		"lastActivityAt":   ctxt.Monitor.LastActivityAt(),
		"polling":          ctxt.Polling(),
	}
	if err := ctxt.PollError(); err != nil {
		response["pollError"] = err.Error()
	}
	c.JSON(http.StatusOK, response)
}

// Poll endpoint: a user-initiated refresh that bypasses the cache. A cycle
// already in flight is not queued; the caller gets 202 and the running cycle's
// results.
func (sc *ShellController) Poll(c *gin.Context) {
	tenantID, subjectID := util.SubjectFromContext(c)
	ctxt := sc.manager.Get(tenantID, subjectID)
	if ctxt == nil {
		util.RespondWithError(c, http.StatusNotFound, "Session not found", shell_errors.ErrSessionNotFound)
		return
	}

	if ctxt.Polling() {
		c.JSON(http.StatusAccepted, gin.H{"status": "in-flight"})
		return
	}

	if err := sc.poller.Poll(c, ctxt, service.ReasonManual); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Activity endpoint: a debounced user-activity signal, published on the
// lifecycle bus so every subscriber (the idle monitor included) sees it.
func (sc *ShellController) Activity(c *gin.Context) {
	tenantID, subjectID := util.SubjectFromContext(c)
	sc.bus.Publish(c, model.LifecycleEvent{
		Type:      model.EventActivity,
		TenantID:  tenantID,
		SubjectID: subjectID,
		At:        sc.clock.Now(),
	})
	c.Status(http.StatusNoContent)
}

// Keepalive endpoint: the explicit "stay signed in" action. Unlike passive
// activity it always resets the timers.
func (sc *ShellController) Keepalive(c *gin.Context) {
	tenantID, subjectID := util.SubjectFromContext(c)
	ctxt := sc.manager.Get(tenantID, subjectID)
	if ctxt == nil {
		util.RespondWithError(c, http.StatusNotFound, "Session not found", shell_errors.ErrSessionNotFound)
		return
	}
	ctxt.Monitor.Keepalive()
	c.Status(http.StatusNoContent)
}

// EvaluateRoute endpoint: the subscription gate's decision for a navigation.
func (sc *ShellController) EvaluateRoute(c *gin.Context) {
	tenantID, subjectID := util.SubjectFromContext(c)
	path := c.Query("path")
	if path == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Missing path", shell_errors.ErrInvalidPath)
		return
	}

	ctxt := sc.manager.Get(tenantID, subjectID)
	decision := sc.gate.Evaluate(c, ctxt, path, c.Query("q"))
	c.JSON(http.StatusOK, decision)
}

// GetNotifications endpoint: the cached aggregated snapshot. An absent entry
// means the poll has not landed yet; the shell gets an empty snapshot, not an
// error.
func (sc *ShellController) GetNotifications(c *gin.Context) {
	tenantID, subjectID := util.SubjectFromContext(c)
	ctxt := sc.manager.Get(tenantID, subjectID)
	if ctxt == nil {
		util.RespondWithError(c, http.StatusNotFound, "Session not found", shell_errors.ErrSessionNotFound)
		return
	}

	key := cache.Key(tenantID, subjectID, cache.ResourceNotifications)
	raw, ok := sc.store.Read(c, key, ctxt.Profile.MaxAge, ctxt.Profile.UseEphemeralTier)
	if !ok {
		c.JSON(http.StatusOK, model.NotificationSnapshot{Items: []model.NotificationItem{}})
		return
	}

	var snapshot model.NotificationSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to read notifications", shell_errors.ErrInternalServer)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Logout endpoint: manual sign-out.
func (sc *ShellController) Logout(c *gin.Context) {
	tenantID, subjectID := util.SubjectFromContext(c)
	if err := sc.manager.Logout(c, tenantID, subjectID); err != nil {
		if errors.Is(err, shell_errors.ErrSessionNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Session not found", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to sign out", err)
		return
	}
	c.Status(http.StatusNoContent)
}
