// Command seqscan counts a byte pattern across every record of a
// BGZF-compressed FASTA archive.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/meigma/seqscan"
)

const (
	modeIndexed = "indexed"
	modeStream  = "stream"
)

// usageError marks errors caused by bad invocation.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if err := execute(args, stdout, stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "seqscan: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

//nolint:gocognit,gocyclo // flag handling is linear but long
func execute(args []string, stdout, stderr io.Writer) error {
	var (
		mode       string
		configPath string
		pattern    string
		class      string
		workers    int
		backend    string
		skipErrors bool
		strict     bool
		logLevel   string
		perRecord  bool
	)

	flagSet := pflag.NewFlagSet("seqscan", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&mode, "mode", modeIndexed, "indexed (random access via .fai/.gzi) or stream (sequential baseline)")
	flagSet.StringVar(&configPath, "config", "", "YAML configuration file")
	flagSet.StringVar(&pattern, "pattern", "", "count overlapping occurrences of this sequence (default CAT)")
	flagSet.StringVar(&class, "class", "", "count bases belonging to this set, e.g. G or GC")
	flagSet.IntVarP(&workers, "workers", "j", 0, "number of workers (0 = all CPUs, negative = serial)")
	flagSet.StringVar(&backend, "backend", "pipeline", "scheduling backend: pipeline or partition")
	flagSet.BoolVar(&skipErrors, "skip-errors", false, "skip records that fail instead of aborting")
	flagSet.BoolVar(&strict, "strict-block-index", true, "reject block indexes with decreasing offsets")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flagSet.BoolVar(&perRecord, "per-record", false, "print name<TAB>count for every record before the total")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  seqscan [flags] ARCHIVE [FAI GZI]\n  seqscan --mode stream [flags] ARCHIVE\n\nFlags:\n%s", flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return &usageError{msg: err.Error()}
	}

	cfg := defaultConfig()
	if configPath != "" {
		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if flagSet.Changed("workers") {
		cfg.Workers = workers
	}
	if flagSet.Changed("backend") {
		cfg.Backend = backend
	}
	if flagSet.Changed("skip-errors") {
		cfg.FailurePolicy = "fail-fast"
		if skipErrors {
			cfg.FailurePolicy = "skip"
		}
	}
	if flagSet.Changed("strict-block-index") {
		cfg.StrictBlockIndex = strict
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	switch {
	case pattern != "" && class != "":
		return &usageError{msg: "--pattern and --class are mutually exclusive"}
	case pattern != "":
		cfg.Match = MatchConfig{Kind: "sequence", Expr: pattern}
	case class != "":
		cfg.Match = MatchConfig{Kind: "class", Expr: class}
	}

	level, err := cfg.logLevel()
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	matcher, err := seqscan.ParseMatcher(cfg.Match.Kind, cfg.Match.Expr)
	if err != nil {
		return &usageError{msg: err.Error()}
	}

	ctx := context.Background()
	positional := flagSet.Args()
	switch mode {
	case modeStream:
		if len(positional) != 1 {
			return &usageError{msg: "stream mode takes exactly one ARCHIVE argument"}
		}
		for _, name := range []string{"workers", "backend", "skip-errors"} {
			if flagSet.Changed(name) {
				return &usageError{msg: fmt.Sprintf("--%s applies to indexed mode only", name)}
			}
		}
		return runStream(ctx, positional[0], matcher, stdout)
	case modeIndexed:
		var archive, faiPath, gziPath string
		switch len(positional) {
		case 1:
			archive = positional[0]
			faiPath, gziPath = archive+".fai", archive+".gzi"
		case 3:
			archive, faiPath, gziPath = positional[0], positional[1], positional[2]
		default:
			return &usageError{msg: "indexed mode takes ARCHIVE or ARCHIVE FAI GZI"}
		}
		opts, err := cfg.archiveOptions(logger)
		if err != nil {
			return &usageError{msg: err.Error()}
		}
		return runIndexed(ctx, archive, faiPath, gziPath, matcher, opts, perRecord, stdout, stderr)
	default:
		return &usageError{msg: fmt.Sprintf("unknown mode %q", mode)}
	}
}

func runIndexed(
	ctx context.Context,
	archivePath, faiPath, gziPath string,
	m seqscan.Matcher,
	opts []seqscan.Option,
	perRecord bool,
	stdout, stderr io.Writer,
) error {
	if err := checkPath(archivePath, seqscan.ErrIO); err != nil {
		return err
	}
	if err := checkPath(faiPath, seqscan.ErrIndexNotFound); err != nil {
		return err
	}
	if err := checkPath(gziPath, seqscan.ErrIndexNotFound); err != nil {
		return err
	}

	archive, err := seqscan.OpenWithIndexes(archivePath, faiPath, gziPath, opts...)
	if err != nil {
		return err
	}
	res, err := archive.Count(ctx, m)
	if err != nil {
		return err
	}

	for _, skipped := range res.Skipped {
		fmt.Fprintf(stderr, "seqscan: skipped %v\n", skipped)
	}
	if perRecord {
		for i, rec := range archive.Records() {
			fmt.Fprintf(stdout, "%s\t%d\n", rec.Name, res.Counts[i])
		}
	}
	fmt.Fprintln(stdout, res.Total)
	return nil
}

func runStream(ctx context.Context, archivePath string, m seqscan.Matcher, stdout io.Writer) error {
	if err := checkPath(archivePath, seqscan.ErrIO); err != nil {
		return err
	}
	f, err := os.Open(archivePath) //nolint:gosec // path is operator supplied
	if err != nil {
		return fmt.Errorf("%w: %w", seqscan.ErrIO, err)
	}
	defer f.Close()

	total, err := seqscan.CountStream(ctx, f, m)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, total)
	return nil
}

// checkPath reports a missing path as missing, wrapped in sentinel.
func checkPath(path string, missing error) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: the specified path %q does not exist", missing, path)
		}
		return fmt.Errorf("%w: %w", seqscan.ErrIO, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %q is a directory", seqscan.ErrIO, path)
	}
	return nil
}
