// test/mock/analytics.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAnalyticsService is a mock implementation of analytics.Service
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Track(ctx context.Context, event string, props map[string]any) error {
	args := m.Called(ctx, event, props)
	return args.Error(0)
}
