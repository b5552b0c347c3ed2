// alert/alerter.go
package alert

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/skyward-amo/portal-shell/logging"
)

// Alerter is the audio/desktop notification side channel. Best-effort: an
// unavailable or permission-denied channel must be swallowed, never
// propagated past Desktop's return value.
type Alerter interface {
	Chirp(ctx context.Context)
	Desktop(ctx context.Context, title, body string) error
}

// LogAlerter emits alerts as structured log records. The actual delivery to
// the user's browser is the shell client's job; this is the server-side
// stand-in and the default wiring.
type LogAlerter struct{}

func NewLogAlerter() *LogAlerter {
	return &LogAlerter{}
}

func (a *LogAlerter) Chirp(ctx context.Context) {
	logger.Info("ALERT: notification chirp")
}

func (a *LogAlerter) Desktop(ctx context.Context, title, body string) error {
	logger.Info("ALERT: desktop notification",
		zap.String("title", title),
		zap.String("body", body))
	return nil
}
