// Package provisioner runs an ordered pipeline of idempotent steps. Every
// step checks its own precondition and is only applied when unsatisfied;
// re-running the whole pipeline is the recovery mechanism.
package provisioner

import (
	"context"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

type Status int

const (
	StatusSatisfied Status = iota
	StatusNeedsAction
)

func (s Status) String() string {
	switch s {
	case StatusSatisfied:
		return "satisfied"
	case StatusNeedsAction:
		return "needs-action"
	}
	return "unknown"
}

// Step is one idempotent unit of the pipeline. Check reports whether the
// resource is already in its desired state; Apply brings it there.
type Step interface {
	Name() string
	Check(ctx context.Context) (Status, error)
	Apply(ctx context.Context) error
}

// Guard is optionally implemented by steps that may not apply to this host
// at all, such as a service whose unit is not registered.
type Guard interface {
	ShouldRun(ctx context.Context) (bool, string)
}

// Result records what happened to one step.
type Result struct {
	Name    string
	Status  Status
	Applied bool
	Skipped bool
	Reason  string
	Err     error
}

// Runner executes steps strictly in order, never branching back. The
// default is fail-fast; KeepGoing collects step errors and continues.
type Runner struct {
	KeepGoing bool
}

func (r *Runner) Run(ctx context.Context, steps []Step) ([]Result, error) {
	var results []Result
	var errs *multierror.Error

	for _, step := range steps {
		result := r.runOne(ctx, step)
		results = append(results, result)

		if result.Err != nil {
			if !r.KeepGoing {
				return results, fmt.Errorf("step %s: %w", result.Name, result.Err)
			}
			errs = multierror.Append(errs, fmt.Errorf("step %s: %w", result.Name, result.Err))
		}
	}

	return results, errs.ErrorOrNil()
}

func (r *Runner) runOne(ctx context.Context, step Step) Result {
	result := Result{Name: step.Name()}
	stepLogger := logrus.WithField("step", step.Name())

	if guard, ok := step.(Guard); ok {
		shouldRun, reason := guard.ShouldRun(ctx)
		if !shouldRun {
			stepLogger.WithField("reason", reason).Warn("Step skipped")
			result.Skipped = true
			result.Reason = reason
			return result
		}
	}

	status, err := step.Check(ctx)
	if err != nil {
		stepLogger.WithError(err).Error("Step check failed")
		result.Err = err
		return result
	}
	result.Status = status

	if status == StatusSatisfied {
		stepLogger.Info("Already satisfied")
		return result
	}

	stepLogger.Info("Applying")
	if err := step.Apply(ctx); err != nil {
		stepLogger.WithError(err).Error("Step apply failed")
		result.Err = err
		return result
	}
	result.Applied = true
	return result
}
