package resolver

import (
	"strings"
	"time"

	"github.com/dnstrail/dnstrail/model"
	"github.com/dnstrail/dnstrail/trace"
	"github.com/dnstrail/dnstrail/util"
)

// iterativeStrategy models the hierarchy traversal as three sequential named
// hops (root, TLD, authoritative), each with its own timing, followed by the
// final record fetch. The hops are display stages over the single opaque
// record client, not a literal multi-server walk.
type iterativeStrategy struct {
	client     RecordClient
	defaultTTL uint32
}

func (s *iterativeStrategy) Mode() model.Mode {
	return model.ModeIterative
}

func (s *iterativeStrategy) Query(request *model.Request, rec *trace.Recorder) *queryResult {
	logger := withPrefix(request.Log, "iterative")

	// root hop: nameservers of the TLD zone
	started := time.Now()
	rootOut := s.client.Query(util.ExtractTLD(request.Domain)+".", model.RecordTypeNS)
	rec.Timing(model.TimingCacheToRoot, time.Since(started))

	if rootOut.Kind == OutcomeTimeout {
		rec.Step(model.StepRootQuery, model.StatusTimeout, "")

		return &queryResult{timedOut: true}
	}

	rec.Step(model.StepRootQuery, model.StatusDone, strings.Join(rootOut.Values, ", "))

	// TLD hop: nameservers of the zone itself
	started = time.Now()
	tldOut := s.client.Query(request.Domain, model.RecordTypeNS)
	rec.Timing(model.TimingRootToTLD, time.Since(started))

	if tldOut.Kind == OutcomeTimeout {
		rec.Step(model.StepTLDQuery, model.StatusTimeout, "")

		return &queryResult{timedOut: true}
	}

	rec.Step(model.StepTLDQuery, model.StatusDone, strings.Join(tldOut.Values, ", "))

	// authoritative hop: the primary address family query decides
	started = time.Now()
	authOut := s.client.Query(request.Domain, model.RecordTypeA)
	rec.Timing(model.TimingTLDToAuth, time.Since(started))

	switch authOut.Kind {
	case OutcomeTimeout:
		rec.Step(model.StepAuthQuery, model.StatusTimeout, "")

		return &queryResult{timedOut: true}
	case OutcomeNameError:
		// stop immediately, no further hop is attempted
		logger.Infof("NXDOMAIN for '%s' at authoritative hop", request.Domain)
		rec.Step(model.StepAuthQuery, model.StatusNxDomain, "")

		return &queryResult{negative: true}
	case OutcomeSuccess, OutcomeNoRecords:
	}

	rec.Step(model.StepAuthQuery, model.StatusDone, "")

	// final fetch: the remaining record types
	started = time.Now()
	records := model.EmptyRecords()
	if len(authOut.Values) > 0 {
		records[model.RecordTypeA] = authOut.Values
	}

	if len(tldOut.Values) > 0 {
		records[model.RecordTypeNS] = tldOut.Values
	}

	for _, rType := range model.RecordTypes[1:] {
		if rType == model.RecordTypeNS {
			continue
		}

		out := s.client.Query(request.Domain, rType)

		switch out.Kind {
		case OutcomeSuccess:
			records[rType] = out.Values
		case OutcomeTimeout:
			rec.Step(model.StepDNSQuery, model.StatusTimeout, "")

			return &queryResult{timedOut: true}
		case OutcomeNoRecords, OutcomeNameError:
		}
	}

	rec.Timing(model.TimingAuthToIP, time.Since(started))
	rec.Step(model.StepDNSQuery, model.StatusSuccess, "")

	ttl := s.defaultTTL
	if authOut.Kind == OutcomeSuccess && authOut.TTL > 0 {
		ttl = authOut.TTL
	}

	return &queryResult{records: records, ttl: ttl}
}
