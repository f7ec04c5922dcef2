package evt

import (
	"github.com/asaskevich/EventBus"
)

const (
	// ApplicationStarted fires on start of the application. Parameter: version, build time
	ApplicationStarted = "application:started"

	// ResolutionFinished fires after each processed resolution request.
	// Parameter: domain, mode, response type, duration in ms
	ResolutionFinished = "resolution:finished"

	// CachingResultCacheHit fires, if a domain was found in the result cache. Parameter: domain name
	CachingResultCacheHit = "caching:cacheHit"

	// CachingResultCacheMiss fires, if a domain was not found in the result cache. Parameter: domain name
	CachingResultCacheMiss = "caching:cacheMiss"

	// CachingResultCacheChanged fires, if the result cache was changed. Parameter: new cache size
	CachingResultCacheChanged = "caching:resultCacheChanged"

	// BlockingListChanged fires, if the denylist was changed. Parameter: new entry count
	BlockingListChanged = "blocking:listChanged"
)

// nolint:gochecknoglobals
var evtBus = EventBus.New()

// Bus returns the global event bus
func Bus() EventBus.Bus {
	return evtBus
}
