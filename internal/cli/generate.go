package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/ingest"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/synth"
)

// PrimaryFileName is the name of the generated primary log.
const PrimaryFileName = "primary.csv"

// GenerateReport lists the files written by the generate command and the
// co-travelers planted in them.
type GenerateReport struct {
	Dir         string          `json:"dir" yaml:"dir"`
	Primary     string          `json:"primary" yaml:"primary"`
	Comparisons []string        `json:"comparisons" yaml:"comparisons"`
	Records     int             `json:"records" yaml:"records"`
	Planted     []synth.Planted `json:"planted" yaml:"planted"`
}

// NewGenerateCommand creates the generate subcommand.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	cfg := synth.DefaultConfig()
	var (
		outDir string
		start  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic crossing logs with planted co-travelers",
		Long: `Writes a primary crossing log and comparison logs as CSV in the configured
input format. Every comparison log carries co-travelers planted within
--max-gap minutes of a primary trip; the planted pairs are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := newFormatter(rootOpts, cmd)

			appCfg, err := loadConfig(ctx, rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if start != "" {
				t, err := time.Parse(time.DateOnly, start)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --start", err)
				}
				cfg.Start = t
			}
			reader, err := newReader(appCfg)
			if err != nil {
				return err
			}

			set, err := synth.Generate(ctx, cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "generate", err)
			}
			report, err := writeSet(reader, outDir, set)
			if err != nil {
				return WrapExitError(ExitFailure, "write logs", err)
			}
			out.VerboseLog("wrote %d records to %s", report.Records, outDir)

			return out.Render(report, func(w io.Writer) error { return writeGenerateText(w, report) })
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "directory to write the logs to")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "seed of the pseudo-random source")
	cmd.Flags().IntVar(&cfg.PrimaryPersons, "primary-persons", cfg.PrimaryPersons, "persons in the primary log")
	cmd.Flags().IntVar(&cfg.Trips, "trips", cfg.Trips, "trips per primary person")
	cmd.Flags().IntVar(&cfg.Comparisons, "comparisons", cfg.Comparisons, "number of comparison logs")
	cmd.Flags().IntVar(&cfg.Background, "background", cfg.Background, "unrelated persons per comparison log")
	cmd.Flags().IntVar(&cfg.Companions, "companions", cfg.Companions, "planted co-travelers per comparison log")
	cmd.Flags().IntVar(&cfg.Days, "days", cfg.Days, "length of the period in days")
	cmd.Flags().IntVar(&cfg.MaxGapMinutes, "max-gap", cfg.MaxGapMinutes, "largest planted gap in minutes")
	cmd.Flags().StringSliceVar(&cfg.Checkpoints, "checkpoints", cfg.Checkpoints, "checkpoint names")
	cmd.Flags().StringVar(&start, "start", "", "first day of the period (YYYY-MM-DD)")

	return cmd
}

func writeSet(reader *ingest.Reader, dir string, set synth.Set) (GenerateReport, error) {
	report := GenerateReport{Dir: dir, Primary: PrimaryFileName, Planted: set.Planted}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return report, fmt.Errorf("create %s: %w", dir, err)
	}
	if err := writeLog(reader, filepath.Join(dir, PrimaryFileName), set.Primary); err != nil {
		return report, err
	}
	report.Records = len(set.Primary)
	for _, ds := range set.Comparisons {
		if err := writeLog(reader, filepath.Join(dir, ds.Name()), ds.Items); err != nil {
			return report, err
		}
		report.Comparisons = append(report.Comparisons, ds.Name())
		report.Records += len(ds.Items)
	}
	return report, nil
}

func writeLog(reader *ingest.Reader, path string, recs []model.EventRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := reader.WriteCSV(f, recs); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeGenerateText(w io.Writer, r GenerateReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Wrote %d records to %s\n", r.Records, r.Dir)
	fmt.Fprintf(tw, "Primary: %s\n", r.Primary)
	for _, c := range r.Comparisons {
		fmt.Fprintf(tw, "Comparison: %s\n", c)
	}
	fmt.Fprintf(tw, "\nPLANTED (%d)\n", len(r.Planted))
	fmt.Fprintln(tw, "DATASET\tPRIMARY\tCOMPANION\tCHECKPOINT\tENTRY GAP\tEXIT GAP")
	for _, p := range r.Planted {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			p.Dataset, p.Primary, p.Companion, p.Checkpoint, p.EntryGap, p.ExitGap)
	}
	return tw.Flush()
}
