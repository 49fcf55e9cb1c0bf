package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/raymyers/qualcheck/pkg/batch"
	"github.com/raymyers/qualcheck/pkg/parser"
	"github.com/raymyers/qualcheck/pkg/qualconv"
	"github.com/raymyers/qualcheck/pkg/report"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Global flags
var (
	outputFormat string
	debug        bool
)

// Batch flags
var workers int

// debugEnv enables debug logging when set to a non-empty value
const debugEnv = "QUALCHECK_DEBUG"

var (
	// ErrNotConvertible indicates the source cannot be converted to the target
	ErrNotConvertible = errors.New("not convertible")
	// ErrInvalidDeclarator indicates a declarator outside the supported grammar
	ErrInvalidDeclarator = errors.New("invalid declarator")
	// ErrIncompatibleShapes indicates two declarators have no combined type
	ErrIncompatibleShapes = errors.New("incompatible shapes")
	// ErrExpectationMismatch indicates a batch check disagreed with its expect value
	ErrExpectationMismatch = errors.New("expectation mismatch")
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qualcheck",
		Short: "qualcheck checks qualification conversions between C declarators",
		Long: `qualcheck decides whether a value of one pointer/array declarator
type may be implicitly converted to another by adding const, using the
qualification conversion rules of C++ [conv.qual].

Declarators follow the grammar
  ["const"] "char" {"*" ["const"] | "[]"}
where "[]" may only appear last.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := report.ParseFormat(outputFormat); err != nil {
				fmt.Fprintf(errOut, "qualcheck: %v\n", err)
				return err
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, yaml or cbor")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log debug tracing to stderr (also "+debugEnv+"=1)")

	rootCmd.AddCommand(newCheckCmd(out, errOut))
	rootCmd.AddCommand(newParseCmd(out, errOut))
	rootCmd.AddCommand(newCombineCmd(out, errOut))
	rootCmd.AddCommand(newBatchCmd(out, errOut))

	return rootCmd
}

// newLogger creates the debug logger. Timestamps and levels are left out so
// traces stay readable next to command output.
func newLogger(w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if debug || os.Getenv(debugEnv) != "" {
		logLevel = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func newEncoder(out io.Writer) (*report.Encoder, error) {
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return report.NewEncoder(out, format)
}

func newCheckCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check FROM TO",
		Short: "Check whether FROM converts to TO",
		Example: `  qualcheck check "char **" "const char *const *"
  qualcheck check -o yaml "char **" "const char **"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doCheck(args[0], args[1], out, errOut)
		},
	}
}

func doCheck(from, to string, out, errOut io.Writer) error {
	logger := newLogger(errOut)

	v := qualconv.Explain(from, to)
	logger.Debug("check",
		"from", v.Source.String(),
		"to", v.Target.String(),
		"combined", v.Combined.String(),
		"reason", v.Reason.String())

	enc, err := newEncoder(out)
	if err != nil {
		fmt.Fprintf(errOut, "qualcheck: %v\n", err)
		return err
	}
	if err := enc.Encode(report.NewVerdictDoc(from, to, v)); err != nil {
		fmt.Fprintf(errOut, "qualcheck: %v\n", err)
		return err
	}

	switch {
	case v.SourceErr != nil || v.TargetErr != nil:
		return ErrInvalidDeclarator
	case !v.Convertible:
		return ErrNotConvertible
	}
	return nil
}

func newParseCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "parse DECL...",
		Short:   "Decompose declarators into their qualifier/level shape",
		Example: `  qualcheck parse "const char *const *" "char *[]"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doParse(args, out, errOut)
		},
	}
}

func doParse(decls []string, out, errOut io.Writer) error {
	logger := newLogger(errOut)

	var docs report.ShapeList
	invalid := 0
	for _, decl := range decls {
		shape, err := parser.Decompose(decl)
		logger.Debug("decompose", "declarator", decl, "shape", shape.String())
		if err != nil {
			invalid++
		}
		docs = append(docs, report.NewShapeDoc(decl, shape, err))
	}

	enc, err := newEncoder(out)
	if err != nil {
		fmt.Fprintf(errOut, "qualcheck: %v\n", err)
		return err
	}
	if err := enc.Encode(docs); err != nil {
		fmt.Fprintf(errOut, "qualcheck: %v\n", err)
		return err
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalidDeclarator, invalid, len(decls))
	}
	return nil
}

func newCombineCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "combine FROM TO",
		Short:   "Print the qualification-combined type of FROM and TO",
		Example: `  qualcheck combine "char **" "const char **"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doCombine(args[0], args[1], out, errOut)
		},
	}
}

func doCombine(from, to string, out, errOut io.Writer) error {
	logger := newLogger(errOut)

	fromShape, err := parser.Decompose(from)
	if err != nil {
		fmt.Fprintf(errOut, "qualcheck: %s: %v\n", from, err)
		return fmt.Errorf("%w: %w", ErrInvalidDeclarator, err)
	}
	toShape, err := parser.Decompose(to)
	if err != nil {
		fmt.Fprintf(errOut, "qualcheck: %s: %v\n", to, err)
		return fmt.Errorf("%w: %w", ErrInvalidDeclarator, err)
	}

	combined := qualconv.Combine(fromShape, toShape)
	logger.Debug("combine", "from", fromShape.String(), "to", toShape.String(), "combined", combined.String())

	enc, err := newEncoder(out)
	if err != nil {
		fmt.Fprintf(errOut, "qualcheck: %v\n", err)
		return err
	}
	doc := report.CombineDoc{
		From:     report.NewShapeDoc(from, fromShape, nil),
		To:       report.NewShapeDoc(to, toShape, nil),
		Combined: report.NewShapeDoc(combined.Declarator(), combined, nil),
	}
	if err := enc.Encode(doc); err != nil {
		fmt.Fprintf(errOut, "qualcheck: %v\n", err)
		return err
	}

	if !combined.Valid() {
		return ErrIncompatibleShapes
	}
	return nil
}

func newBatchCmd(out, errOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Run the checks listed in a YAML batch file",
		Long: `Run the checks listed in a YAML batch file. Each check has a from and
to declarator, and optionally a name and an expected result:

  checks:
    - name: char** to const char**
      from: "char **"
      to: "const char **"
      expect: false

The command fails if any check disagrees with its expected result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doBatch(cmd, args[0], out, errOut)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Number of parallel workers (default: number of CPUs)")
	return cmd
}

func doBatch(cmd *cobra.Command, filename string, out, errOut io.Writer) error {
	logger := newLogger(errOut)

	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(errOut, "qualcheck: error reading %s: %v\n", filename, err)
		return err
	}
	defer f.Close()

	file, err := batch.Load(f)
	if err != nil {
		fmt.Fprintf(errOut, "qualcheck: %s: %v\n", filename, err)
		return err
	}

	runner := &batch.Runner{Workers: workers, Logger: logger}
	results, err := runner.Run(cmd.Context(), file.Checks)
	if err != nil {
		fmt.Fprintf(errOut, "qualcheck: %v\n", err)
		return err
	}

	doc := report.BatchDoc{Total: len(results)}
	for _, r := range results {
		vd := report.NewVerdictDoc(r.Check.From, r.Check.To, r.Verdict).WithExpectation(r.Check.Name, r.Check.Expect)
		if r.Mismatch() {
			doc.Mismatches++
		}
		doc.Checks = append(doc.Checks, vd)
	}

	enc, err := newEncoder(out)
	if err != nil {
		fmt.Fprintf(errOut, "qualcheck: %v\n", err)
		return err
	}
	if err := enc.Encode(doc); err != nil {
		fmt.Fprintf(errOut, "qualcheck: %v\n", err)
		return err
	}

	if doc.Mismatches > 0 {
		return fmt.Errorf("%w: %d of %d checks", ErrExpectationMismatch, doc.Mismatches, doc.Total)
	}
	return nil
}
