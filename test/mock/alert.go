// test/mock/alert.go
package mock

import (
	"context"
	"sync"
)

// RecordingAlerter records chirps and desktop notifications for assertions.
type RecordingAlerter struct {
	mu       sync.Mutex
	Chirps   int
	Desktops []string
	Err      error
}

func (a *RecordingAlerter) Chirp(ctx context.Context) {
	a.mu.Lock()
	a.Chirps++
	a.mu.Unlock()
}

func (a *RecordingAlerter) Desktop(ctx context.Context, title, body string) error {
	a.mu.Lock()
	a.Desktops = append(a.Desktops, title+": "+body)
	a.mu.Unlock()
	return a.Err
}
