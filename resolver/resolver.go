// Package resolver contains the resolution orchestrator, the per-mode query
// strategies and the upstream record client.
package resolver

import (
	"github.com/sirupsen/logrus"

	"github.com/dnstrail/dnstrail/log"
	"github.com/dnstrail/dnstrail/model"
	"github.com/dnstrail/dnstrail/trace"
)

// Resolver processes one resolution request to its terminal state
type Resolver interface {
	Resolve(request *model.Request) (*model.Response, error)

	// Configuration returns current resolver configuration for startup logging
	Configuration() []string
}

// OutcomeKind is the typed result of one record query. No error string
// matching: the kind is derived from the response code and network errors.
type OutcomeKind int

const (
	// OutcomeSuccess the query returned values
	OutcomeSuccess OutcomeKind = iota

	// OutcomeNoRecords the name exists but has no records of the requested type
	OutcomeNoRecords

	// OutcomeNameError the name does not exist (NXDOMAIN)
	OutcomeNameError

	// OutcomeTimeout the upstream did not answer within the query timeout
	OutcomeTimeout
)

func (k OutcomeKind) String() string {
	names := [...]string{
		"SUCCESS",
		"NO_RECORDS",
		"NAME_ERROR",
		"TIMEOUT"}

	return names[k]
}

// Outcome is the result of one concrete record query
type Outcome struct {
	Kind   OutcomeKind
	Values []string
	TTL    uint32
}

// RecordClient performs one concrete query for one record type with a bounded
// timeout. A timeout is terminal for the request, it is never retried.
type RecordClient interface {
	Query(domain string, rType model.RecordType) Outcome
}

// queryResult is the internal outcome of a mode specific query phase
type queryResult struct {
	records  model.Records
	ttl      uint32
	negative bool
	timedOut bool
	multi    *model.MultiReport
}

// strategy is the mode specific query phase behind the shared
// access-then-cache prefix
type strategy interface {
	Mode() model.Mode
	Query(request *model.Request, rec *trace.Recorder) *queryResult
}

func logger(prefix string) *logrus.Entry {
	return log.PrefixedLog(prefix)
}

func withPrefix(entry *logrus.Entry, prefix string) *logrus.Entry {
	return entry.WithField("prefix", prefix)
}
