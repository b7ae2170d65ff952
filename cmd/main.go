package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transopt/internal/config"
	"transopt/internal/logging"
	"transopt/internal/service"
)

var (
	configPath string
	logLevel   string
	jobs       int
	asJSON     bool
	alignment  string
)

var rootCmd = &cobra.Command{
	Use:   "transopt",
	Short: "Build translation options for source sentences",
	Long: `transopt enumerates every source span of a sentence, looks it up in the
configured phrase and generation tables, adds fallback options for unknown
words, prunes and sorts the per-span lists and computes future costs.`,
	SilenceUsage: true,
}

var buildCmd = &cobra.Command{
	Use:   "build [file...]",
	Short: "Build options for every line of the given files (stdin if none)",
	RunE:  runBuild,
}

var phraseCmd = &cobra.Command{
	Use:   "phrase",
	Short: "Manage phrase pairs of Redis backed tables",
}

var phraseAddCmd = &cobra.Command{
	Use:   "add <table> <source> <target> <prob>...",
	Short: "Add or replace a phrase pair",
	Args:  cobra.MinimumNArgs(4),
	RunE:  runPhraseAdd,
}

var phraseRemoveCmd = &cobra.Command{
	Use:   "remove <table> <source> <target>",
	Short: "Remove a phrase pair",
	Args:  cobra.ExactArgs(3),
	RunE:  runPhraseRemove,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", getenv("TRANSOPT_CONFIG", "transopt.yaml"), "Configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides the config file)")
	buildCmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "Sentences built in parallel")
	buildCmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON document per sentence")
	phraseAddCmd.Flags().StringVar(&alignment, "alignment", "", `Word alignment, e.g. "0-0 1-1"`)

	phraseCmd.AddCommand(phraseAddCmd, phraseRemoveCmd)
	rootCmd.AddCommand(buildCmd, phraseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and everything it references.
func setup() (*config.Config, *config.Resources, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, nil, nil, err
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))
	res, err := cfg.Assemble(nil, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, res, logger, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, res, logger, err := setup()
	if err != nil {
		return err
	}
	defer res.Close()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reqs, err := readRequests(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	logger.Info("building translation options", zap.Int("sentences", len(reqs)), zap.Int("jobs", jobs))

	svc := service.New(res, cfg.Options(), logger)
	results, err := svc.TranslateAll(ctx, reqs, jobs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range results {
		printResult(out, r)
	}
	return nil
}

// readRequests reads one sentence per non-empty line.
func readRequests(stdin io.Reader, files []string) ([]service.Request, error) {
	var reqs []service.Request
	scan := func(r io.Reader) error {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			reqs = append(reqs, service.Request{ID: strconv.Itoa(len(reqs) + 1), Text: line})
		}
		return sc.Err()
	}
	if len(files) == 0 {
		return reqs, scan(stdin)
	}
	for _, f := range files {
		fh, err := os.Open(f)
		if err != nil {
			return nil, err
		}
		err = scan(fh)
		fh.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
	}
	return reqs, nil
}

func printResult(w io.Writer, r *service.Result) {
	fmt.Fprintf(w, "sentence %s: %s\n", r.ID, r.Source)
	for _, sp := range r.Spans {
		for _, o := range sp.Options {
			fmt.Fprintf(w, "  [%d..%d] %s -> %s c=%.3f\n", sp.Start, sp.End, sp.Source, o.Target, o.Score)
		}
	}
	for _, c := range r.FutureCosts {
		fmt.Fprintf(w, "  future cost from %d to %d is %.3f\n", c.Start, c.End, c.Cost)
	}
	if len(r.Unknown) > 0 {
		fmt.Fprintf(w, "  unknown: %s\n", strings.Join(r.Unknown, ", "))
	}
	fmt.Fprintf(w, "  options: %d created, %d pruned\n", r.Stats.Created, r.Stats.Pruned)
}

func runPhraseAdd(cmd *cobra.Command, args []string) error {
	_, res, logger, err := setup()
	if err != nil {
		return err
	}
	defer res.Close()

	st, err := service.New(res, nil, logger).Store(args[0])
	if err != nil {
		return err
	}
	probs := make([]float64, len(args)-3)
	for i, a := range args[3:] {
		if probs[i], err = strconv.ParseFloat(a, 64); err != nil {
			return fmt.Errorf("probability %q: %w", a, err)
		}
	}
	if err := st.Add(cmd.Context(), args[1], args[2], probs, alignment); err != nil {
		return err
	}
	logger.Info("phrase pair stored", zap.String("table", args[0]), zap.String("source", args[1]), zap.String("target", args[2]))
	return nil
}

func runPhraseRemove(cmd *cobra.Command, args []string) error {
	_, res, logger, err := setup()
	if err != nil {
		return err
	}
	defer res.Close()

	st, err := service.New(res, nil, logger).Store(args[0])
	if err != nil {
		return err
	}
	return st.Remove(cmd.Context(), args[1], args[2])
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
