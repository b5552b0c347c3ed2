// analytics/service.go
package analytics

import (
	"context"
)

// Service is the analytics sink consumed by the subscription gate and the
// session lifecycle recorder.
type Service interface {
	Track(ctx context.Context, event string, props map[string]any) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Track(ctx context.Context, event string, props map[string]any) error {
	return s.repo.Index(ctx, event, props)
}
