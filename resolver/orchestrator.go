package resolver

import (
	"fmt"
	"time"

	"github.com/dnstrail/dnstrail/cache/resultcache"
	"github.com/dnstrail/dnstrail/config"
	"github.com/dnstrail/dnstrail/evt"
	"github.com/dnstrail/dnstrail/lists"
	"github.com/dnstrail/dnstrail/model"
	"github.com/dnstrail/dnstrail/querylog"
	"github.com/dnstrail/dnstrail/trace"
)

// Orchestrator is the per-request state machine: access gate first (fail
// fast), then cache, then the mode specific query phase, then the
// write-through cache update. All modes share this prefix, only the query
// phase differs.
type Orchestrator struct {
	gate       *lists.Gate
	cache      *resultcache.ResultCache
	strategies map[model.Mode]strategy
	queryLog   querylog.Writer
}

// NewOrchestrator creates the orchestrator with all three mode strategies
func NewOrchestrator(cfg *config.Config, gate *lists.Gate, cache *resultcache.ResultCache,
	client RecordClient, queryLog querylog.Writer,
) *Orchestrator {
	defaultTTL := cfg.Caching.DefaultTTL.SecondsU32()

	return &Orchestrator{
		gate:  gate,
		cache: cache,
		strategies: map[model.Mode]strategy{
			model.ModeRecursive: &recursiveStrategy{client: client, defaultTTL: defaultTTL},
			model.ModeIterative: &iterativeStrategy{client: client, defaultTTL: defaultTTL},
			model.ModeMulti:     &multiStrategy{client: client, defaultTTL: defaultTTL},
		},
		queryLog: queryLog,
	}
}

// Resolve processes one request to its terminal state
func (o *Orchestrator) Resolve(request *model.Request) (*model.Response, error) {
	if request.Log == nil {
		request.Log = logger("orchestrator").WithField("domain", request.Domain)
	}

	strat, known := o.strategies[request.Mode]
	if !known {
		return nil, fmt.Errorf("no strategy for mode '%s'", request.Mode)
	}

	rec := trace.NewRecorder(request.Domain, request.Mode)

	response := &model.Response{
		Domain:  request.Domain,
		Mode:    request.Mode,
		Records: model.EmptyRecords(),
	}

	// a blocked domain never touches the cache and never produces a query
	started := time.Now()
	decision := o.gate.Check(request.Domain)
	rec.Timing(model.TimingClientToAccess, time.Since(started))

	if decision.Blocked {
		request.Log.WithField("reason", decision.Reason).Info("domain is blocked")
		rec.Step(model.StepAccessControl, model.StatusBlocked, decision.Reason)
		rec.Classify(model.ResponseTypeBLOCKED)

		response.Blocked = true
		response.Message = "domain is blocked: " + decision.Reason

		return o.finish(request, rec, response)
	}

	rec.Step(model.StepAccessControl, model.StatusAllowed, "")

	started = time.Now()
	entry, hit := o.cache.Lookup(request.Domain)
	rec.Timing(model.TimingAccessToCache, time.Since(started))

	if hit {
		rec.Step(model.StepCacheLookup, model.StatusHit, "")
		evt.Bus().Publish(evt.CachingResultCacheHit, request.Domain)

		response.Cached = true

		if entry.Negative {
			rec.Classify(model.ResponseTypeNXDOMAIN)
			response.Message = "domain does not exist (cached NXDOMAIN)"
		} else {
			rec.Classify(model.ResponseTypeCACHED)
			response.Records = model.NormalizeRecords(entry.Records)
			response.TTL = entry.TTL
		}

		return o.finish(request, rec, response)
	}

	rec.Step(model.StepCacheLookup, model.StatusMiss, "")
	evt.Bus().Publish(evt.CachingResultCacheMiss, request.Domain)

	result := strat.Query(request, rec)
	response.Multi = result.multi

	switch {
	case result.timedOut:
		// transient failure: never cached, never retried within this request
		rec.Classify(model.ResponseTypeTIMEOUT)
		response.Message = "DNS query timed out"
	case result.negative:
		o.cache.StoreNegative(request.Domain)
		rec.Step(model.StepCacheUpdate, model.StatusDone, "")
		rec.Classify(model.ResponseTypeNXDOMAIN)
		response.Message = "domain does not exist"
	default:
		o.cache.Store(request.Domain, result.records, result.ttl)
		rec.Step(model.StepCacheUpdate, model.StatusDone, "")
		rec.Classify(model.ResponseTypeRESOLVED)
		response.Records = model.NormalizeRecords(result.records)
		response.TTL = result.ttl
	}

	return o.finish(request, rec, response)
}

func (o *Orchestrator) finish(request *model.Request,
	rec *trace.Recorder, response *model.Response,
) (*model.Response, error) {
	steps, timings := rec.Assemble()

	response.Steps = steps
	response.Timings = timings
	response.RType = rec.Terminal()

	durationMs := timings[model.TimingTotal]

	evt.Bus().Publish(evt.ResolutionFinished,
		response.Domain, response.Mode.String(), response.RType.String(), durationMs)

	if o.queryLog != nil {
		o.queryLog.Write(&querylog.Entry{
			Start:        request.RequestTS,
			ClientIP:     clientIP(request),
			Domain:       response.Domain,
			Mode:         response.Mode.String(),
			ResponseType: response.RType.String(),
			DurationMs:   durationMs,
			Answer:       model.RecordsToString(response.Records),
		})
	}

	request.Log.WithField("response_type", response.RType.String()).
		Infof("resolution finished in %d ms", durationMs)

	return response, nil
}

func clientIP(request *model.Request) string {
	if request.ClientIP == nil {
		return ""
	}

	return request.ClientIP.String()
}

// Configuration returns the current orchestrator configuration
func (o *Orchestrator) Configuration() (result []string) {
	result = append(result, "modes:")
	for _, mode := range []model.Mode{model.ModeRecursive, model.ModeIterative, model.ModeMulti} {
		result = append(result, fmt.Sprintf("- %s", mode))
	}

	result = append(result, o.cache.Configuration()...)
	result = append(result, o.gate.Configuration()...)

	return
}
