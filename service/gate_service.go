package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/skyward-amo/portal-shell/analytics"
	"github.com/skyward-amo/portal-shell/cache"
	logger "github.com/skyward-amo/portal-shell/logging"
	"github.com/skyward-amo/portal-shell/model"
	"github.com/skyward-amo/portal-shell/session"
)

// Decision is the gate's navigation instruction for one path evaluation.
// When Allowed is false the shell must navigate to Redirect, replacing (not
// pushing) the history entry, carrying ReturnTo as return-state.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
	Replace  bool   `json:"replace,omitempty"`
	ReturnTo string `json:"returnTo,omitempty"`
}

// IGateService is what the shell controller drives.
type IGateService interface {
	Evaluate(ctx context.Context, sc *session.Context, path, query string) Decision
}

// GateService redirects read-only subscriptions away from everything except
// the billing recovery screens, emitting one analytics event per blocked
// path+query per session.
type GateService struct {
	store           *cache.Store
	analyticsSvc    analytics.Service
	lockoutPath     string
	allowedPrefixes []string
}

// NewGateService creates a new instance of GateService
func NewGateService(store *cache.Store, analyticsSvc analytics.Service, lockoutPath string, allowedPrefixes []string) *GateService {
	return &GateService{
		store:           store,
		analyticsSvc:    analyticsSvc,
		lockoutPath:     lockoutPath,
		allowedPrefixes: allowedPrefixes,
	}
}

// Evaluate decides whether navigation to path is allowed under the cached
// subscription snapshot. A missing or unreadable snapshot allows: a cold
// cache must never lock a paying user out, and the next poll re-evaluates.
func (s *GateService) Evaluate(ctx context.Context, sc *session.Context, path, query string) Decision {
	allowed := Decision{Allowed: true}
	if sc == nil {
		return allowed
	}

	key := cache.Key(sc.TenantID, sc.SubjectID, cache.ResourceSubscription)
	raw, ok := s.store.Read(ctx, key, sc.Profile.MaxAge, sc.Profile.UseEphemeralTier)
	if !ok {
		return allowed
	}

	var snapshot model.SubscriptionSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		logger.Warn("Unreadable subscription snapshot at gate", zap.Error(err))
		return allowed
	}

	if !snapshot.IsReadOnly || s.pathAllowed(path) {
		return allowed
	}

	blockedKey := path
	if query != "" {
		blockedKey = path + "?" + query
	}
	if sc.MarkBlocked(blockedKey) {
		props := map[string]any{
			"tenantId":  sc.TenantID,
			"subjectId": sc.SubjectID,
			"path":      path,
			"query":     query,
			"status":    string(snapshot.Status),
		}
		if err := s.analyticsSvc.Track(ctx, "subscription_access_blocked", props); err != nil {
			logger.Warn("Failed to track blocked access", zap.Error(err),
				zap.String("path", path))
		}
	}

	return Decision{
		Allowed:  false,
		Redirect: s.lockoutPath,
		Replace:  true,
		ReturnTo: blockedKey,
	}
}

func (s *GateService) pathAllowed(path string) bool {
	if path == s.lockoutPath {
		return true
	}
	for _, prefix := range s.allowedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
