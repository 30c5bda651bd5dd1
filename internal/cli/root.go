// Package cli implements jabbctl, the command line front end of the
// JABBusiness dashboard.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jabbusiness-client-go/internal/bootstrap"
	"jabbusiness-client-go/internal/platform/logging"
)

// Set at build time with -ldflags "-X jabbusiness-client-go/internal/cli.version=...".
var version = "dev"

// annotationPublic marks commands that run without a stored token.
const annotationPublic = "public"

// Options are the process handles the CLI talks to.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Now is the clock used for relative date ranges.
	Now    func() time.Time
	DotEnv bool
}

// CLI holds the state of one invocation.
type CLI struct {
	opts Options

	configPath string
	verbose    bool

	app *bootstrap.App
	out *printer
}

func New(opts Options) *CLI {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CLI{opts: opts, out: newPrinter(opts.Stdout, opts.Stderr)}
}

// Command builds the command tree.
func (c *CLI) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "jabbctl",
		Short: "JABBusiness dashboard from the terminal",
		Long: `jabbctl talks to the JABBusiness API: KPI analytics, flash report
generation, sharing and download, and the Quick JABB feed.

Quick Start:
  jabbctl login -u you@company.com       # store a session
  jabbctl analytics --days 30            # KPI summary
  jabbctl reports generate --days 7      # new flash report
  jabbctl reports list                   # report history`,
		Version:           version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(c.opts.Stdin)
	root.SetOut(c.opts.Stdout)
	root.SetErr(c.opts.Stderr)
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Config file (default ~/.jabbusiness/config.yaml)")

	root.AddCommand(
		c.loginCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.analyticsCommand(),
		c.reportsCommand(),
		c.eventsCommand(),
		c.sessionCommand(),
	)
	return root
}

// setup bootstraps the app and enforces authentication on protected
// commands.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "help" || !cmd.Runnable() {
		return nil
	}

	app, err := bootstrap.New(cmd.Context(), bootstrap.Options{
		ConfigPath: c.configPath,
		UseDotEnv:  c.opts.DotEnv,
		Verbose:    c.verbose,
		Console:    c.opts.Stderr,
	})
	if err != nil {
		return err
	}
	c.app = app
	if err := c.out.attachToasts(app.Bus); err != nil {
		return err
	}
	app.Logger.DebugTag(logging.TagCLI, "running %s", cmd.CommandPath())

	if cmd.Annotations[annotationPublic] == "true" {
		return nil
	}
	if !app.Hooks.Auth().IsAuthenticated(cmd.Context()) {
		return errors.New("not logged in: run `jabbctl login` first")
	}
	return nil
}

// Run executes args, releases the app and prints the error if any.
func (c *CLI) Run(ctx context.Context, args []string) error {
	root := c.Command()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	if c.app != nil {
		if closeErr := c.app.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		c.app = nil
	}
	if err != nil {
		var shown *notifiedError
		if !errors.As(err, &shown) {
			c.out.failure(err)
		}
	}
	return err
}

// Execute runs jabbctl against the process handles and returns the exit code.
func Execute() int {
	c := New(Options{DotEnv: true})
	if err := c.Run(context.Background(), os.Args[1:]); err != nil {
		return 1
	}
	return 0
}

// notifiedError is an error whose message already reached the user as a
// toast.
type notifiedError struct {
	err error
}

func (e *notifiedError) Error() string { return e.err.Error() }
func (e *notifiedError) Unwrap() error { return e.err }

func notified(err error) error {
	if err == nil {
		return nil
	}
	return &notifiedError{err: err}
}

func exactArgs(n int, names string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%s expects %s", cmd.CommandPath(), names)
		}
		return nil
	}
}
