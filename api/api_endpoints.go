package api

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dnstrail/dnstrail/log"
	"github.com/dnstrail/dnstrail/model"
	"github.com/dnstrail/dnstrail/util"
)

const (
	contentTypeHeader = "content-type"
	jsonContentType   = "application/json"
)

// ResolveEndpoint endpoint for resolution requests
type ResolveEndpoint struct {
	control ResolveControl
}

// CacheEndpoint endpoint for cache inspection
type CacheEndpoint struct {
	control CacheControl
}

// BlockingEndpoint endpoint for deny list mutations
type BlockingEndpoint struct {
	control BlockingControl
}

// ListRefreshEndpoint endpoint for list refresh
type ListRefreshEndpoint struct {
	refresher ListRefresher
}

func registerResolveEndpoints(router chi.Router, control ResolveControl) {
	e := &ResolveEndpoint{control}

	router.Post(PathResolve, e.apiResolve)
}

func registerCacheEndpoints(router chi.Router, control CacheControl) {
	e := &CacheEndpoint{control}

	router.Get(PathCacheList, e.apiCacheList)
	router.Post(PathCacheClear, e.apiCacheClear)
}

func registerBlockingEndpoints(router chi.Router, control BlockingControl) {
	e := &BlockingEndpoint{control}

	router.Get(PathBlockingList, e.apiBlockingList)
	router.Post(PathBlockingBlock, e.apiBlock)
	router.Post(PathBlockingUnblk, e.apiUnblock)
}

func registerListRefreshEndpoints(router chi.Router, refresher ListRefresher) {
	e := &ListRefreshEndpoint{refresher}

	router.Post(PathListsRefresh, e.apiListRefresh)
}

// apiResolve processes one resolution request. An invalid domain or an unknown
// mode is rejected with 400, a timed out resolution is answered with 504 and
// still carries the full trace in its body.
func (e *ResolveEndpoint) apiResolve(rw http.ResponseWriter, req *http.Request) {
	rw.Header().Set(contentTypeHeader, jsonContentType)

	var body ResolveRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(rw, http.StatusBadRequest, "wrong request structure: "+err.Error())

		return
	}

	domain, err := ValidateDomain(body.Domain)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())

		return
	}

	mode, err := model.ParseMode(body.Mode)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())

		return
	}

	request := &model.Request{
		Domain:    domain,
		Mode:      mode,
		ClientIP:  clientIP(req),
		RequestTS: time.Now(),
		Log: log.PrefixedLog("api").WithFields(map[string]interface{}{
			"req_id": uuid.New().String(),
			"domain": log.EscapeInput(domain),
		}),
	}

	response, err := e.control.Resolve(request)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())

		return
	}

	if response.RType == model.ResponseTypeTIMEOUT {
		rw.WriteHeader(http.StatusGatewayTimeout)
	}

	writeJSON(rw, response)
}

// apiCacheList returns all currently valid cache entries
func (e *CacheEndpoint) apiCacheList(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set(contentTypeHeader, jsonContentType)

	entries := e.control.Snapshot()

	writeJSON(rw, CacheResponse{
		Count:   len(entries),
		Entries: entries,
	})
}

// apiCacheClear drops all cache entries
func (e *CacheEndpoint) apiCacheClear(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set(contentTypeHeader, jsonContentType)

	cleared := e.control.Clear()
	log.Log().Infof("cache cleared, %d entries removed", cleared)

	writeJSON(rw, ClearResponse{Cleared: cleared})
}

// apiBlockingList returns all blocked domains
func (e *BlockingEndpoint) apiBlockingList(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set(contentTypeHeader, jsonContentType)

	domains := e.control.BlockedDomains()

	writeJSON(rw, BlockedListResponse{
		Count:   len(domains),
		Domains: domains,
	})
}

func (e *BlockingEndpoint) apiBlock(rw http.ResponseWriter, req *http.Request) {
	e.mutate(rw, req, e.control.Block)
}

func (e *BlockingEndpoint) apiUnblock(rw http.ResponseWriter, req *http.Request) {
	e.mutate(rw, req, e.control.Unblock)
}

func (e *BlockingEndpoint) mutate(rw http.ResponseWriter, req *http.Request, fn func(string) error) {
	rw.Header().Set(contentTypeHeader, jsonContentType)

	var body BlockRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(rw, http.StatusBadRequest, "wrong request structure: "+err.Error())

		return
	}

	domain, err := ValidateDomain(body.Domain)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())

		return
	}

	if err := fn(domain); err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())

		return
	}

	_, err = rw.Write([]byte("{}"))
	util.LogOnError("unable to write response ", err)
}

// apiListRefresh is the http endpoint to trigger the refresh of all lists
func (e *ListRefreshEndpoint) apiListRefresh(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set(contentTypeHeader, jsonContentType)
	e.refresher.RefreshLists()

	_, err := rw.Write([]byte("{}"))
	util.LogOnError("unable to write response ", err)
}

func clientIP(req *http.Request) net.IP {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}

	return net.ParseIP(host)
}

func writeJSON(rw http.ResponseWriter, data interface{}) {
	response, err := json.Marshal(data)
	util.LogOnError("unable to marshal response ", err)

	_, err = rw.Write(response)
	util.LogOnError("unable to write response ", err)
}

func writeError(rw http.ResponseWriter, code int, message string) {
	rw.WriteHeader(code)

	response, err := json.Marshal(map[string]string{"error": message})
	util.LogOnError("unable to marshal response ", err)

	_, err = rw.Write(response)
	util.LogOnError("unable to write response ", err)
}
