package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/logging"
	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/usecase"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Execute runs the command line and returns the process exit code. Errors
// are printed to stderr as "kind: message".
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, newUsecase: pipeline.NewUsecase}
	return a.execute(ctx, args)
}

type app struct {
	stdout, stderr io.Writer

	configPath string
	root       string
	verbose    bool
	logFormat  string

	cfg *config.Config
	log *slog.Logger

	newUsecase func(pipeline.Config) usecase.Usecase
}

func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", errorKind(err), err)
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "reelcut",
		Short:         "Cut timestamp-driven highlight reels from local media",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfig(cmd) {
				return nil
			}
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Configuration file path")
	pf.StringVar(&a.root, "root", "", "Workspace root (jobs, database, lock)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: auto, text or json")

	root.AddCommand(
		a.splitCommand(),
		a.trimCommand(),
		a.transcriptCommand(),
		a.narrateCommand(),
		a.serveCommand(),
		a.jobsCommand(),
		a.cleanCommand(),
		a.configCommand(),
	)
	return root
}

func (a *app) loadConfig() error {
	cfg, _, err := config.Load(strings.TrimSpace(a.configPath))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.root != "" {
		if cfg.Paths.Root, err = config.ExpandPath(a.root); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	log, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Writer: a.stderr})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) usecase() usecase.Usecase {
	return a.newUsecase(pipeline.FromConfig(a.cfg, a.log))
}

func skipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skip-config"] == "true" {
			return true
		}
	}
	return false
}

// usageError marks bad invocations so they print as "usage: ...".
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func errorKind(err error) string {
	var ue usageError
	if errors.As(err, &ue) {
		return "usage"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return types.Kind(err)
}
