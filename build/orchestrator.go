package build

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	MsgStart  = "Bundling runtime file"
	MsgFailed = "Bundling failed"
	MsgEnd    = "Bundling end"
)

// Outcome is the terminal state of a run.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
)

// ExitCode maps the outcome to the process exit status.
func (o Outcome) ExitCode() int {
	if o == Succeeded {
		return 0
	}
	return 1
}

func (o Outcome) String() string {
	if o == Succeeded {
		return "success"
	}
	return "failure"
}

// Orchestrator drives exactly one bundling pass and turns its result into an
// exit code.
type Orchestrator struct {
	Config Config
	Engine Engine
	Logger *logrus.Logger

	// Exit terminates the process. Defaults to os.Exit; tests replace it.
	Exit func(code int)

	// OnSuccess runs after the artifact is written and before the
	// completion notice.
	OnSuccess func(*Stats)
}

// Run submits the job, waits for it and reports. It calls Exit and, when
// Exit returns (tests), returns the outcome.
func (o *Orchestrator) Run(ctx context.Context) Outcome {
	log := o.logger()
	log.Info(MsgStart)

	if o.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Config.Timeout)
		defer cancel()
	}

	stats, err := o.Engine.Bundle(ctx, o.Config)
	if err == nil && stats != nil && !stats.HasErrors() {
		err = writeOutputs(o.Config, stats)
		if err == nil {
			if o.OnSuccess != nil {
				o.OnSuccess(stats)
			}
			log.Info(MsgEnd)
			return o.finish(Succeeded)
		}
	}

	log.Error(failureDetail(stats, err))
	if rmErr := removeStaleOutput(o.Config); rmErr != nil {
		log.Warn(rmErr)
	}
	log.Error(MsgFailed)
	return o.finish(Failed)
}

// finish is the only place the process is terminated from.
func (o *Orchestrator) finish(outcome Outcome) Outcome {
	exit := o.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(outcome.ExitCode())
	return outcome
}

func (o *Orchestrator) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

func failureDetail(stats *Stats, err error) string {
	switch {
	case stats != nil && stats.HasErrors():
		return stats.String()
	case err != nil:
		return err.Error()
	default:
		return "bundler returned no result"
	}
}
