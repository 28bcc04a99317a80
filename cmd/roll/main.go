// Package main provides the roll command, which evaluates a dice expression
// given on the command line or runs a Lua macro script.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roll/internal/config"
	"github.com/cory-johannsen/roll/internal/dice"
	"github.com/cory-johannsen/roll/internal/observability"
	"github.com/cory-johannsen/roll/internal/render"
	"github.com/cory-johannsen/roll/internal/scripting"
)

const usageHeader = `Usage: roll [flags] [EXPRESSION...]

Rolls dice and does math. The words of EXPRESSION are joined with spaces.
Use -- before an expression that starts with '-'.

Examples:
  roll                  rolls 1d20
  roll 1d20             rolls one 20-sided die
  roll d20              the leading 1 is optional
  roll d%               rolls 1d100
  roll d8 + 3d6 + 5     rolls 1d8 and 3d6 and adds 5
  roll '(1d4)d6'        rolls 1d4 d6 dice
  roll 4d6K3            rolls 4d6 and keeps the highest 3
  roll 2d20k1           rolls 2d20 and keeps the lowest
  roll 4d6X1            rolls 4d6 and drops the highest
  roll 'sqrt(16) * 5!'  square root and factorial
  roll '2 ** 10 // 3'   power and floor division
  roll '1d20+5 >= 15'   comparisons evaluate to 1 or 0
  roll -s attack.lua 5  runs a Lua macro with arg[1] = "5"

Flags:
`

// options are the parsed command-line flags.
type options struct {
	verbose bool
	minimum bool
	maximum bool
	format  string
	config  string
	script  string
	help    bool
	words   []string
}

func newFlagSet(opts *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("roll", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "print every roll and operation before the total")
	fs.BoolVarP(&opts.minimum, "minimum", "m", false, "force every die to its lowest face")
	fs.BoolVarP(&opts.maximum, "maximum", "M", false, "force every die to its highest face")
	fs.StringVarP(&opts.format, "format", "f", "text", "output format: text, json or yaml")
	fs.StringVarP(&opts.config, "config", "c", "", "path to a YAML configuration file")
	fs.StringVarP(&opts.script, "script", "s", "", "run a Lua macro script; remaining words become its arg table")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.Int("max-dice", 0, "largest number of dice a single roll may produce")
	fs.BoolVarP(&opts.help, "help", "h", false, "show this help")
	return fs
}

func parseArgs(fs *pflag.FlagSet, opts *options, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.minimum && opts.maximum {
		return errors.New("--minimum and --maximum are mutually exclusive")
	}
	opts.words = fs.Args()
	return nil
}

func (o options) mode() dice.RollOption {
	switch {
	case o.minimum:
		return dice.Minimum
	case o.maximum:
		return dice.Maximum
	}
	return dice.Normal
}

// loadConfig reads the configuration file and environment and overlays any
// flags the user set explicitly.
func loadConfig(fs *pflag.FlagSet, path string) (config.Config, error) {
	v, err := config.New(path)
	if err != nil {
		return config.Config{}, err
	}
	// Warn-level console logging unless configured otherwise.
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")

	bindings := map[string]string{
		"logging.level": "log-level",
		"dice.max_dice": "max-dice",
	}
	for key, flag := range bindings {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
	}
	return config.LoadFromViper(v)
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := newFlagSet(&opts)
	fs.SetOutput(io.Discard)
	printUsage := func() {
		fmt.Fprint(stderr, usageHeader)
		fs.SetOutput(stderr)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
	}

	if err := parseArgs(fs, &opts, args); err != nil {
		fmt.Fprintf(stderr, "roll: %v\n", err)
		printUsage()
		return 2
	}
	if opts.help {
		fmt.Fprint(stdout, usageHeader)
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}

	if err := execute(ctx, fs, opts, stdout); err != nil {
		fmt.Fprintf(stderr, "roll: %v\n", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, fs *pflag.FlagSet, opts options, stdout io.Writer) error {
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(fs, opts.config)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	shutdown, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}()

	eval := dice.NewLoggedEvaluator(
		dice.NewEvaluator(dice.NewCryptoSource(),
			dice.WithLimits(cfg.Dice.Limits()),
			dice.WithDefaultExpression(cfg.Dice.DefaultExpression),
		),
		logger,
	)

	if opts.script != "" {
		mgr := scripting.NewManager(eval, logger, cfg.Scripting.InstructionLimit)
		defer mgr.Close()
		return mgr.RunFile(ctx, opts.script, opts.words, stdout)
	}

	res, err := eval.Evaluate(ctx, strings.Join(opts.words, " "), opts.mode())
	if err != nil {
		return err
	}
	return render.Write(stdout, res, format, opts.verbose)
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
