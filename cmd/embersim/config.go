package main

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/emberkernel/ember/kernel"
)

// boardConfig is the set of tunables a real board would normally bake
// in at compile time via br_config.h; here they come from flags so one
// binary can stand in for many board profiles.
type boardConfig struct {
	maxTasks      uint8
	numPriorities uint8
	stackSize     int
	scenario      string
	logLevel      string
	hal           string
}

var knownScenarios = map[string]bool{
	"producer-consumer": true,
	"priority-inversion": true,
	"deletion-churn": true,
}

var knownHALs = map[string]bool{
	"sim":     true,
	"cortexm": true,
}

// Validate aggregates every invalid field into a single error instead of
// failing on the first one, so a misconfigured board profile reports
// everything wrong with it at once.
func (c boardConfig) Validate() error {
	var errs *multierror.Error

	if c.maxTasks == 0 {
		errs = multierror.Append(errs, fmt.Errorf("max-tasks must be at least 1"))
	}
	if c.numPriorities == 0 {
		errs = multierror.Append(errs, fmt.Errorf("num-priorities must be at least 1"))
	}
	if c.numPriorities < 2 {
		errs = multierror.Append(errs, fmt.Errorf("num-priorities must leave room for the idle task below every user priority"))
	}
	if c.stackSize < 64 {
		errs = multierror.Append(errs, fmt.Errorf("stack-size must be at least 64 bytes, got %d", c.stackSize))
	}
	if !knownScenarios[c.scenario] {
		errs = multierror.Append(errs, fmt.Errorf("unknown scenario %q", c.scenario))
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown log-level %q", c.logLevel))
	}
	if !knownHALs[c.hal] {
		errs = multierror.Append(errs, fmt.Errorf("unknown hal %q", c.hal))
	}

	return errs.ErrorOrNil()
}

func (c boardConfig) kernelConfig() kernel.Config {
	return kernel.Config{
		MaxTasks:         c.maxTasks,
		NumPriorities:    c.numPriorities,
		DefaultStackSize: c.stackSize,
	}
}
