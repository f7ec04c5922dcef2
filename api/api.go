package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/dnstrail/dnstrail/cache/resultcache"
	"github.com/dnstrail/dnstrail/model"
)

const (
	PathResolve       = "/api/resolve"
	PathCacheList     = "/api/cache"
	PathCacheClear    = "/api/cache/clear"
	PathBlockingList  = "/api/blocking/list"
	PathBlockingBlock = "/api/blocking/block"
	PathBlockingUnblk = "/api/blocking/unblock"
	PathListsRefresh  = "/api/lists/refresh"
	PathHealth        = "/api/health"
)

// ResolveRequest is the request body of the resolve endpoint
type ResolveRequest struct {
	Domain string `json:"domain"`
	Mode   string `json:"mode"`
}

// BlockRequest is the request body of the block/unblock endpoints
type BlockRequest struct {
	Domain string `json:"domain"`
}

// CacheResponse lists the currently valid cache entries
type CacheResponse struct {
	Count   int                        `json:"count"`
	Entries []resultcache.EntrySummary `json:"entries"`
}

// ClearResponse reports how many entries a cache clear removed
type ClearResponse struct {
	Cleared int `json:"cleared"`
}

// BlockedListResponse lists all currently blocked domains
type BlockedListResponse struct {
	Count   int      `json:"count"`
	Domains []string `json:"domains"`
}

// HealthResponse is the response body of the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}

// ResolveControl processes resolution requests
type ResolveControl interface {
	Resolve(request *model.Request) (*model.Response, error)
}

// CacheControl interface to inspect and clear the result cache
type CacheControl interface {
	Snapshot() []resultcache.EntrySummary
	Clear() int
}

// BlockingControl interface to mutate and read the deny list
type BlockingControl interface {
	Block(domain string) error
	Unblock(domain string) error
	BlockedDomains() []string
}

// ListRefresher interface to control the list refresh
type ListRefresher interface {
	RefreshLists()
}

// RegisterEndpoint registers an implementation as HTTP endpoint
func RegisterEndpoint(router chi.Router, t interface{}) {
	if a, ok := t.(ResolveControl); ok {
		registerResolveEndpoints(router, a)
	}

	if a, ok := t.(CacheControl); ok {
		registerCacheEndpoints(router, a)
	}

	if a, ok := t.(BlockingControl); ok {
		registerBlockingEndpoints(router, a)
	}

	if a, ok := t.(ListRefresher); ok {
		registerListRefreshEndpoints(router, a)
	}
}
