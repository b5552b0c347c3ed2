// cache/profile.go
package cache

import (
	"time"

	"github.com/skyward-amo/portal-shell/model"
)

const fastProfileMinMemoryGB = 8.0

// Memory and network defaults applied when the client could not report a
// signal.
const (
	defaultDeviceMemoryGB = 4.0
	defaultNetworkClass   = model.Network4G
)

// SelectProfile picks the cache profile for a session from the environment
// signals it reported. Pure: same signals and TTLs always yield the same
// profile. The result is computed once at session start and kept for the
// session's lifetime.
//
// High-memory clients on a fast network get the fast profile: a longer TTL
// and the ephemeral tier, trading slightly staler billing/admin data for
// zero-latency reads. Constrained clients get the standard profile and skip
// the in-process tier entirely.
func SelectProfile(sig model.EnvironmentSignals, fastTTL, standardTTL time.Duration) model.CacheProfile {
	if !sig.DurableAvailable {
		// Nothing to persist against; stay conservative.
		return model.CacheProfile{MaxAge: standardTTL, UseEphemeralTier: false}
	}

	memory := sig.DeviceMemoryGB
	if memory == 0 {
		memory = defaultDeviceMemoryGB
	}
	network := sig.NetworkClass
	if network == "" {
		network = defaultNetworkClass
	}

	if memory >= fastProfileMinMemoryGB && !degradedNetwork(network) {
		return model.CacheProfile{MaxAge: fastTTL, UseEphemeralTier: true}
	}
	return model.CacheProfile{MaxAge: standardTTL, UseEphemeralTier: false}
}

func degradedNetwork(class string) bool {
	switch class {
	case model.NetworkSlow2G, model.Network2G, model.Network3G:
		return true
	default:
		return false
	}
}
