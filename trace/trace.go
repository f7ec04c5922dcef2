// Package trace turns orchestrator events into the externally visible
// step/timing structures consumed by the presentation layer.
package trace

import (
	"time"

	"github.com/dnstrail/dnstrail/model"
)

// Recorder accumulates steps and hop timings of one resolution request.
// It is owned by a single request and not safe for concurrent use.
type Recorder struct {
	domain   string
	mode     model.Mode
	start    time.Time
	steps    []model.Step
	timings  map[string]time.Duration
	terminal model.ResponseType
	now      func() time.Time
}

// NewRecorder starts a trace for one request
func NewRecorder(domain string, mode model.Mode) *Recorder {
	return newRecorder(domain, mode, time.Now)
}

func newRecorder(domain string, mode model.Mode, now func() time.Time) *Recorder {
	return &Recorder{
		domain:  domain,
		mode:    mode,
		start:   now(),
		timings: make(map[string]time.Duration),
		now:     now,
	}
}

// Step appends one step to the trace
func (r *Recorder) Step(name, status, info string) {
	r.steps = append(r.steps, model.Step{Name: name, Status: status, Info: info})
}

// Timing records the duration of one named hop
func (r *Recorder) Timing(name string, d time.Duration) {
	r.timings[name] = d
}

// Classify sets the terminal condition, exactly one of the response types
func (r *Recorder) Classify(t model.ResponseType) {
	r.terminal = t
}

// Terminal returns the recorded terminal condition
func (r *Recorder) Terminal() model.ResponseType {
	return r.terminal
}

// Steps returns the steps recorded so far
func (r *Recorder) Steps() []model.Step {
	return r.steps
}

// Assemble produces the final step sequence and millisecond timings:
// access_control stays first and cache_update last when present, all values
// are rounded to milliseconds and total_ms covers the whole request.
func (r *Recorder) Assemble() ([]model.Step, map[string]int64) {
	steps := make([]model.Step, 0, len(r.steps))

	for _, s := range r.steps {
		if s.Name == model.StepAccessControl {
			steps = append(steps, s)
		}
	}

	for _, s := range r.steps {
		if s.Name != model.StepAccessControl && s.Name != model.StepCacheUpdate {
			steps = append(steps, s)
		}
	}

	for _, s := range r.steps {
		if s.Name == model.StepCacheUpdate {
			steps = append(steps, s)
		}
	}

	timings := make(map[string]int64, len(r.timings)+1)
	for name, d := range r.timings {
		timings[name] = roundMs(d)
	}

	timings[model.TimingTotal] = roundMs(r.now().Sub(r.start))

	return steps, timings
}

func roundMs(d time.Duration) int64 {
	return d.Round(time.Millisecond).Milliseconds()
}
