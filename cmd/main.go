package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/fullsweep/fullsweep"
	"github.com/fullsweep/fullsweep/exitcodes"
	"github.com/fullsweep/fullsweep/flags"
	"github.com/fullsweep/fullsweep/logging"
	"github.com/fullsweep/fullsweep/service"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "fullsweep"
	app.Usage = "Workspace test runner CI step"
	app.Description = "fullsweep bounds the shared build cache, then runs the tests of every module under a workspace and aggregates the results into a single verdict"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), exitCodeForError(err)))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

// exitCodeForError maps the terminal error to the exit code contract: test
// failures and cancellations have dedicated codes, everything else is an
// infrastructure error.
func exitCodeForError(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case fullsweep.IsTestFailureError(err):
		return exitcodes.TestFailure
	case fullsweep.IsCancelledError(err):
		return exitcodes.Cancelled
	default:
		return exitcodes.RuntimeErr
	}
}

func run(cliCtx *cli.Context) error {
	logCfg := logging.ReadCLIConfig(cliCtx)
	logger, err := logging.NewLogger(os.Stdout, logCfg)
	if err != nil {
		return fullsweep.NewRuntimeError(fmt.Errorf("failed to create logger: %w", err))
	}
	log.SetDefault(logger)

	cfg, err := fullsweep.NewConfig(cliCtx, logger)
	if err != nil {
		return fullsweep.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	if cliCtx.Bool(flags.TracingEnabled.Name) {
		shutdown, err := otelconfig.ConfigureOpenTelemetry(
			otelconfig.WithServiceName("fullsweep"),
			otelconfig.WithServiceVersion(Version),
		)
		if err != nil {
			return fullsweep.NewRuntimeError(fmt.Errorf("failed to set up tracing: %w", err))
		}
		defer shutdown()
	}

	svc := service.New(service.ReadCLIConfig(cliCtx), Version)
	svc.Start(cliCtx.Context)
	defer svc.Shutdown()

	f, err := fullsweep.New(cliCtx.Context, cfg, Version)
	if err != nil {
		return fullsweep.NewRuntimeError(fmt.Errorf("failed to create fullsweep: %w", err))
	}

	startErr := f.Start(cliCtx.Context)
	if cfg.RunOnce {
		if err := f.Stop(context.Background()); err != nil {
			logger.Error("Failed to stop cleanly", "error", err)
		}
		return startErr
	}
	if startErr != nil {
		return startErr
	}

	// Continuous mode: block until the signal context is cancelled, then
	// shut down with a bounded grace period.
	<-cliCtx.Context.Done()
	logger.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := f.Stop(stopCtx); err != nil {
		logger.Error("Failed to stop cleanly", "error", err)
	}
	if err := f.WaitForShutdown(stopCtx); err != nil {
		return fullsweep.NewRuntimeError(fmt.Errorf("shutdown timed out: %w", err))
	}
	return nil
}
