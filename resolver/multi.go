package resolver

import (
	"time"

	"github.com/dnstrail/dnstrail/model"
	"github.com/dnstrail/dnstrail/trace"
)

// multiStrategy races the A and AAAA queries as independent concurrent
// operations, waits for both to settle and then performs the full multi-type
// fetch unless the aggregate outcome is negative.
type multiStrategy struct {
	client     RecordClient
	defaultTTL uint32
}

type familyOutcome struct {
	rType   model.RecordType
	outcome Outcome
	latency time.Duration
}

func (s *multiStrategy) Mode() model.Mode {
	return model.ModeMulti
}

func (s *multiStrategy) Query(request *model.Request, rec *trace.Recorder) *queryResult {
	logger := withPrefix(request.Log, "multi")

	ch := make(chan familyOutcome, 2)

	for _, rType := range []model.RecordType{model.RecordTypeA, model.RecordTypeAAAA} {
		go func(rType model.RecordType) {
			started := time.Now()
			out := s.client.Query(request.Domain, rType)
			ch <- familyOutcome{rType: rType, outcome: out, latency: time.Since(started)}
		}(rType)
	}

	// wait for both families to settle, a timeout on one does not cancel the other
	outcomes := make(map[model.RecordType]familyOutcome, 2)
	for i := 0; i < 2; i++ {
		fo := <-ch
		outcomes[fo.rType] = fo
	}

	a, aaaa := outcomes[model.RecordTypeA], outcomes[model.RecordTypeAAAA]

	report := &model.MultiReport{
		A:      valuesOrEmpty(a.outcome),
		AAAA:   valuesOrEmpty(aaaa.outcome),
		Faster: fasterFamily(a, aaaa),
		LatencyMs: map[string]int64{
			string(model.RecordTypeA):    a.latency.Round(time.Millisecond).Milliseconds(),
			string(model.RecordTypeAAAA): aaaa.latency.Round(time.Millisecond).Milliseconds(),
			"total":                      maxDuration(a.latency, aaaa.latency).Round(time.Millisecond).Milliseconds(),
		},
	}

	if a.outcome.Kind == OutcomeNameError && aaaa.outcome.Kind == OutcomeNameError {
		// both families negative: no full record fetch, no positive cache write
		logger.Infof("NXDOMAIN for '%s' on both address families", request.Domain)
		rec.Step(model.StepDNSQuery, model.StatusNxDomain, "")

		return &queryResult{negative: true, multi: report}
	}

	if a.outcome.Kind == OutcomeTimeout && aaaa.outcome.Kind == OutcomeTimeout {
		rec.Step(model.StepDNSQuery, model.StatusTimeout, "")

		return &queryResult{timedOut: true, multi: report}
	}

	// the race already settled both address families, only the remaining
	// record types are fetched
	started := time.Now()
	records := model.EmptyRecords()

	if len(report.A) > 0 {
		records[model.RecordTypeA] = report.A
	}

	if len(report.AAAA) > 0 {
		records[model.RecordTypeAAAA] = report.AAAA
	}

	for _, rType := range model.RecordTypes[2:] {
		out := s.client.Query(request.Domain, rType)

		switch out.Kind {
		case OutcomeSuccess:
			records[rType] = out.Values
		case OutcomeTimeout:
			rec.Step(model.StepDNSQuery, model.StatusTimeout, "")

			return &queryResult{timedOut: true, multi: report}
		case OutcomeNoRecords, OutcomeNameError:
		}
	}

	rec.Step(model.StepDNSQuery, model.StatusSuccess, "")
	rec.Timing(model.TimingDNSQuery, time.Since(started))

	logger.Debugf("resolved '%s' -> %s", request.Domain, model.RecordsToString(records))

	ttl := s.defaultTTL
	if a.outcome.Kind == OutcomeSuccess && a.outcome.TTL > 0 {
		ttl = a.outcome.TTL
	}

	return &queryResult{records: records, ttl: ttl, multi: report}
}

func valuesOrEmpty(out Outcome) []string {
	if out.Values == nil {
		return []string{}
	}

	return out.Values
}

// fasterFamily declares the winner among the succeeding families: the lower
// latency wins, a tie prefers A, a sole responder wins by default
func fasterFamily(a, aaaa familyOutcome) string {
	aOk := a.outcome.Kind == OutcomeSuccess && len(a.outcome.Values) > 0
	aaaaOk := aaaa.outcome.Kind == OutcomeSuccess && len(aaaa.outcome.Values) > 0

	switch {
	case aOk && aaaaOk:
		if a.latency <= aaaa.latency {
			return string(model.RecordTypeA)
		}

		return string(model.RecordTypeAAAA)
	case aOk:
		return string(model.RecordTypeA)
	case aaaaOk:
		return string(model.RecordTypeAAAA)
	}

	return ""
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}

	return b
}
