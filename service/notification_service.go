package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skyward-amo/portal-shell/alert"
	"github.com/skyward-amo/portal-shell/cache"
	"github.com/skyward-amo/portal-shell/client"
	logger "github.com/skyward-amo/portal-shell/logging"
	"github.com/skyward-amo/portal-shell/model"
	"github.com/skyward-amo/portal-shell/session"
)

// unreadPageSize bounds the training-notifications fetch.
const unreadPageSize = 50

type TrainingFetcher interface {
	FetchUnread(ctx context.Context, tenantID, subjectID string, limit int) ([]model.NotificationItem, error)
}

type QMSFetcher interface {
	FetchNotifications(ctx context.Context, tenantID, subjectID string) ([]model.NotificationItem, error)
}

type DocumentFetcher interface {
	FetchAlerts(ctx context.Context, tenantID, subjectID string) ([]model.NotificationItem, error)
}

// NotificationService aggregates unread notifications from the three
// independent backends. A source that answers 403 contributes zero items —
// it must not discard the other sources' results or surface to the user.
// Any other failure propagates to the poll coordinator.
type NotificationService struct {
	store     *cache.Store
	training  TrainingFetcher
	qms       QMSFetcher
	documents DocumentFetcher
	alerter   alert.Alerter
}

// NewNotificationService creates a new instance of NotificationService
func NewNotificationService(store *cache.Store, training TrainingFetcher, qms QMSFetcher, documents DocumentFetcher, alerter alert.Alerter) *NotificationService {
	return &NotificationService{
		store:     store,
		training:  training,
		qms:       qms,
		documents: documents,
		alerter:   alerter,
	}
}

// RefreshUnread returns the session's unread count, fetching all three
// sources in parallel on a cache miss or when forced. Only the training
// source feeds the numeric badge; QMS and document items are carried in the
// snapshot for their own surfaces. On a count increase it chirps and sends a
// best-effort desktop notification; the recorded previous count is updated
// unconditionally so a decrease never re-alerts on the next fetch.
func (s *NotificationService) RefreshUnread(ctx context.Context, sc *session.Context, force bool) (int, error) {
	countKey := cache.Key(sc.TenantID, sc.SubjectID, cache.ResourceUnreadCount)
	if !force {
		if raw, ok := s.store.Read(ctx, countKey, sc.Profile.MaxAge, sc.Profile.UseEphemeralTier); ok {
			var cached int
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var trainingItems, qmsItems, docItems []model.NotificationItem

	// The fetches run concurrently with no ordering among them; Wait joins
	// all three. 403s are converted to benign zero contributions inside each
	// goroutine, so only real failures reach the group error.
	var g errgroup.Group
	g.Go(func() error {
		items, err := s.training.FetchUnread(ctx, sc.TenantID, sc.SubjectID, unreadPageSize)
		if err != nil {
			if client.IsForbidden(err) {
				logger.Debug("Training notifications forbidden for subject",
					zap.String("subjectID", sc.SubjectID))
				return nil
			}
			return fmt.Errorf("training notifications: %w", err)
		}
		trainingItems = items
		return nil
	})
	g.Go(func() error {
		items, err := s.qms.FetchNotifications(ctx, sc.TenantID, sc.SubjectID)
		if err != nil {
			if client.IsForbidden(err) {
				logger.Debug("QMS notifications forbidden for subject",
					zap.String("subjectID", sc.SubjectID))
				return nil
			}
			return fmt.Errorf("qms notifications: %w", err)
		}
		qmsItems = items
		return nil
	})
	g.Go(func() error {
		items, err := s.documents.FetchAlerts(ctx, sc.TenantID, sc.SubjectID)
		if err != nil {
			if client.IsForbidden(err) {
				logger.Debug("Document alerts forbidden for subject",
					zap.String("subjectID", sc.SubjectID))
				return nil
			}
			return fmt.Errorf("document alerts: %w", err)
		}
		docItems = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}

	// Only training contributes to the numeric badge. QMS and document
	// counts are intentionally excluded; their items still ride along in the
	// snapshot for their own screens.
	unread := len(trainingItems)

	s.maybeAlert(ctx, sc, unread)
	sc.SetPrevUnread(unread)

	items := make([]model.NotificationItem, 0, len(trainingItems)+len(qmsItems)+len(docItems))
	items = append(items, trainingItems...)
	items = append(items, qmsItems...)
	items = append(items, docItems...)
	snapshot := model.NotificationSnapshot{UnreadCount: unread, Items: items}

	if err := s.store.Write(ctx, countKey, unread, sc.Profile.UseEphemeralTier); err != nil {
		logger.Warn("Failed to cache unread count", zap.Error(err))
	}
	snapKey := cache.Key(sc.TenantID, sc.SubjectID, cache.ResourceNotifications)
	if err := s.store.Write(ctx, snapKey, snapshot, sc.Profile.UseEphemeralTier); err != nil {
		logger.Warn("Failed to cache notification snapshot", zap.Error(err))
	}

	return unread, nil
}

// maybeAlert fires the audio/desktop side effects when the unread count
// grew. Pure comparison against the previous count; the effect itself is
// best-effort.
func (s *NotificationService) maybeAlert(ctx context.Context, sc *session.Context, unread int) {
	prev := sc.PrevUnread()
	if unread <= prev {
		return
	}
	delta := unread - prev
	s.alerter.Chirp(ctx)
	title := "New notifications"
	body := fmt.Sprintf("You have %d new notification(s)", delta)
	if err := s.alerter.Desktop(ctx, title, body); err != nil {
		logger.Warn("Desktop notification failed", zap.Error(err))
	}
}
