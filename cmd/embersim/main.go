// Command embersim runs the ember scheduler against a hosted,
// goroutine-backed HAL so its scheduling and IPC behavior can be
// observed and demoed without target hardware.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/emberkernel/ember/hal/cortexm"
	"github.com/emberkernel/ember/hal/sim"
	"github.com/emberkernel/ember/kernel"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "embersim",
		Short: "Run the ember RTOS scheduler on a hosted simulation HAL",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kernel package version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), kernel.Version)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	cfg := boardConfig{
		maxTasks:      16,
		numPriorities: 8,
		stackSize:     1024,
		scenario:      "producer-consumer",
		logLevel:      "info",
		hal:           "sim",
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot the kernel and run a demo scenario forever",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cfg)
		},
	}

	flags := cmd.Flags()
	flags.Uint8Var(&cfg.maxTasks, "max-tasks", cfg.maxTasks, "maximum number of tasks in the TCB pool")
	flags.Uint8Var(&cfg.numPriorities, "num-priorities", cfg.numPriorities, "number of priority levels, 0 is highest")
	flags.IntVar(&cfg.stackSize, "stack-size", cfg.stackSize, "stack size in bytes handed to each task")
	flags.StringVar(&cfg.scenario, "scenario", cfg.scenario, "demo scenario: producer-consumer, priority-inversion, deletion-churn")
	flags.StringVar(&cfg.logLevel, "log-level", cfg.logLevel, "debug, info, warn, or error")
	flags.StringVar(&cfg.hal, "hal", cfg.hal, "HAL backend: sim (hosted goroutines) or cortexm (real hardware, not built here)")

	return cmd
}

func runScenario(cfg boardConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("booting ember kernel",
		zap.String("scenario", cfg.scenario),
		zap.String("hal", cfg.hal),
		zap.Uint8("max-tasks", cfg.maxTasks),
		zap.Uint8("num-priorities", cfg.numPriorities),
	)

	hal, err := newHAL(cfg.hal, log.Named("hal"))
	if err != nil {
		return err
	}

	k := kernel.NewKernel(hal, cfg.kernelConfig())
	if err := k.Init(); err != nil {
		return err
	}
	if err := installScenario(k, log.Named("scenario"), cfg); err != nil {
		return err
	}

	log.Info("starting scheduler, this call never returns")
	return k.Start()
}

// newHAL picks the HAL backend named by kind. cortexm is accepted as a
// named choice so a board profile can select it, but every one of its
// methods panics on first use; only sim actually runs.
func newHAL(kind string, log *zap.Logger) (kernel.HAL, error) {
	switch kind {
	case "sim":
		return sim.New(log), nil
	case "cortexm":
		return cortexm.New(), nil
	default:
		return nil, fmt.Errorf("unknown hal %q", kind)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
