package resolver

import (
	"time"

	"github.com/dnstrail/dnstrail/model"
	"github.com/dnstrail/dnstrail/trace"
)

// recursiveStrategy is the baseline query phase: the primary address family
// query establishes the TTL, the remaining record types follow in fixed order.
type recursiveStrategy struct {
	client     RecordClient
	defaultTTL uint32
}

func (s *recursiveStrategy) Mode() model.Mode {
	return model.ModeRecursive
}

func (s *recursiveStrategy) Query(request *model.Request, rec *trace.Recorder) *queryResult {
	started := time.Now()

	result, ok := fetchAllTypes(s.client, request, rec, s.defaultTTL)
	if !ok {
		return result
	}

	rec.Step(model.StepDNSQuery, model.StatusSuccess, "")
	rec.Timing(model.TimingDNSQuery, time.Since(started))

	return result
}

// fetchAllTypes queries the full record table. The primary query decides:
// NXDOMAIN short-circuits without issuing the remaining queries, a timeout
// anywhere ends the phase. Returns ok=false if the phase terminated early.
func fetchAllTypes(client RecordClient, request *model.Request,
	rec *trace.Recorder, defaultTTL uint32) (*queryResult, bool) {
	logger := withPrefix(request.Log, "recursive")
	records := model.EmptyRecords()

	primary := client.Query(request.Domain, model.RecordTypeA)

	switch primary.Kind {
	case OutcomeTimeout:
		rec.Step(model.StepDNSQuery, model.StatusTimeout, "")

		return &queryResult{timedOut: true}, false
	case OutcomeNameError:
		logger.Infof("NXDOMAIN for '%s'", request.Domain)
		rec.Step(model.StepDNSQuery, model.StatusNxDomain, "")

		return &queryResult{negative: true}, false
	case OutcomeSuccess:
		records[model.RecordTypeA] = primary.Values
	case OutcomeNoRecords:
		// not an error, the domain exists without A records
	}

	ttl := defaultTTL
	if primary.Kind == OutcomeSuccess && primary.TTL > 0 {
		ttl = primary.TTL
	}

	for _, rType := range model.RecordTypes[1:] {
		out := client.Query(request.Domain, rType)

		switch out.Kind {
		case OutcomeSuccess:
			records[rType] = out.Values
		case OutcomeTimeout:
			rec.Step(model.StepDNSQuery, model.StatusTimeout, "")

			return &queryResult{timedOut: true}, false
		case OutcomeNoRecords, OutcomeNameError:
			// absence of a type is an empty result, not an error
		}
	}

	logger.Debugf("resolved '%s' -> %s", request.Domain, model.RecordsToString(records))

	return &queryResult{records: records, ttl: ttl}, true
}
