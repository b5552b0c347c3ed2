// model/cache.go
package model

import (
	"encoding/json"
	"time"
)

// CacheEntry is the durable-tier wire format: the cached value plus the
// timestamp it was saved at. Freshness is always judged against SavedAt,
// never against the storage medium's own expiry.
type CacheEntry struct {
	Value   json.RawMessage `json:"value"`
	SavedAt time.Time       `json:"savedAt"`
}

// CacheProfile is computed once per session and is immutable until the
// session is replaced.
type CacheProfile struct {
	MaxAge           time.Duration `json:"maxAgeMs"`
	UseEphemeralTier bool          `json:"useEphemeralTier"`
}

// Network classes as reported by the shell client. Anything not listed here
// is treated as fast.
const (
	NetworkSlow2G = "slow-2g"
	Network2G     = "2g"
	Network3G     = "3g"
	Network4G     = "4g"
)

// EnvironmentSignals is the device/network snapshot reported by the shell
// client when it opens a session. Zero values mean "unknown".
type EnvironmentSignals struct {
	DeviceMemoryGB   float64 `json:"deviceMemoryGb"`
	NetworkClass     string  `json:"networkClass"`
	DurableAvailable bool    `json:"durableAvailable"`
}

func (s EnvironmentSignals) Validate() error {
	if s.DeviceMemoryGB < 0 {
		return ErrNegativeDeviceMemory
	}
	return nil
}
