package placement

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoResult marks a batch key the portal did not answer.
var ErrNoResult = errors.New("no result returned for batch item")

// Outcome is the result of one bind or unbind.
type Outcome struct {
	Key       string
	Placement string
	Handler   string
	Data      json.RawMessage
	Err       error
}

// OK reports whether the item succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report collects the outcomes of one install or remove.
type Report struct {
	HandlerURL string
	Warnings   []error
	Outcomes   []Outcome
}

// Succeeded returns the successful outcomes.
func (r *Report) Succeeded() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Failed returns the failed outcomes.
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Err joins the errors of all failed outcomes, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s (%s): %w", o.Placement, o.Key, o.Err))
	}
	return errors.Join(errs...)
}
