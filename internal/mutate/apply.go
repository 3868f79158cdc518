package mutate

import (
	"context"

	"taskbridge/internal/model"
)

// Mutator applies a single intent to the task identified by id.
type Mutator interface {
	Mutate(ctx context.Context, id model.Identifier, in Intent) error
}

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

type Step struct {
	Index   int     `json:"index"`
	Intent  Intent  `json:"intent"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

type ApplyResult struct {
	Steps []Step `json:"steps"`
}

// Changed reports whether at least one intent was applied.
func (r ApplyResult) Changed() bool {
	for _, s := range r.Steps {
		if s.Outcome == OutcomeSucceeded {
			return true
		}
	}
	return false
}

type applyConfig struct {
	onStep func(Step)
}

type ApplyOption func(*applyConfig)

// OnStep registers fn to observe every executed (succeeded or failed) step.
func OnStep(fn func(Step)) ApplyOption {
	return func(c *applyConfig) { c.onStep = fn }
}

// Apply issues intents one at a time, in order. It stops at the first failure;
// later intents are reported as skipped. A run of consecutive ContinueOnError
// intents is judged as a whole: it fails only when none of its members
// succeeded, and then stops the plan at the run's first failed intent. The
// failed members of a run that succeeded stay visible in Steps.
// On failure the returned *PlanError names the first failed intent.
// Nothing is rolled back or retried.
func Apply(ctx context.Context, m Mutator, id model.Identifier, intents []Intent, opts ...ApplyOption) (ApplyResult, error) {
	var cfg applyConfig
	for _, o := range opts {
		o(&cfg)
	}

	res := ApplyResult{Steps: make([]Step, 0, len(intents))}
	var first, runErr *PlanError
	runOK := false
	stopped := false
	settle := func() {
		if runErr != nil && !runOK && first == nil {
			first = runErr
			stopped = true
		}
		runErr, runOK = nil, false
	}
	for i, in := range intents {
		if !in.ContinueOnError {
			settle()
		}
		step := Step{Index: i, Intent: in}
		if stopped {
			step.Outcome = OutcomeSkipped
			res.Steps = append(res.Steps, step)
			continue
		}

		err := ctx.Err()
		if err == nil {
			err = m.Mutate(ctx, id, in)
		}
		switch {
		case err != nil:
			step.Outcome = OutcomeFailed
			step.Error = err.Error()
			pe := &PlanError{Index: i, Intent: in, Err: err}
			if in.ContinueOnError {
				if runErr == nil {
					runErr = pe
				}
			} else {
				first = pe
				stopped = true
			}
		default:
			step.Outcome = OutcomeSucceeded
			if in.ContinueOnError {
				runOK = true
			}
		}
		res.Steps = append(res.Steps, step)
		if cfg.onStep != nil {
			cfg.onStep(step)
		}
	}
	settle()
	if first != nil {
		return res, first
	}
	return res, nil
}
