package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/ingest"
	service "github.com/ShahinHasanov90/TAGS-Matching/internal/app"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/config"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/correlate"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/filter"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/stats"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	Primary    string
	Compare    []string
	MaxMinutes int
	Workers    int
	Category   string
	Query      string
	Band       string
	Checkpoint string
	Recency    string
	Verify     bool
}

// FileCheck is the outcome of comparing the indexed correlator with the
// all-pairs reference on one comparison file.
type FileCheck struct {
	File   string `json:"file" yaml:"file"`
	Entry  int    `json:"entry" yaml:"entry"`
	Exit   int    `json:"exit" yaml:"exit"`
	Match  bool   `json:"match" yaml:"match"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// AnalyzeReport is the output of the analyze command.
type AnalyzeReport struct {
	RunID        string                 `json:"run_id" yaml:"run_id"`
	MaxMinutes   int                    `json:"max_minutes" yaml:"max_minutes"`
	Results      *model.ResultSet       `json:"results,omitempty" yaml:"results,omitempty"`
	Category     string                 `json:"category,omitempty" yaml:"category,omitempty"`
	Matches      []model.Match          `json:"matches,omitempty" yaml:"matches,omitempty"`
	Failures     []model.PerFileFailure `json:"failures" yaml:"failures"`
	Summary      stats.Summary          `json:"summary" yaml:"summary"`
	Verification []FileCheck            `json:"verification,omitempty" yaml:"verification,omitempty"`
}

// NewAnalyzeCommand creates the analyze subcommand.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze --primary FILE --compare FILE...",
		Short: "Find co-travelers of a primary crossing log",
		Long: `Correlates a primary crossing log with one or more comparison logs and
prints entry, exit and complete matches ranked by time gap.

Exit codes:
  0 - analysis completed
  1 - --verify found a mismatch
  2 - invalid flags, unreadable primary file or invalid configuration`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Primary, "primary", "", "primary crossing log (.csv or .json)")
	cmd.Flags().StringSliceVar(&opts.Compare, "compare", nil, "comparison crossing logs")
	cmd.Flags().IntVar(&opts.MaxMinutes, "max-minutes", 0, "matching tolerance in minutes (default from configuration)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "analysis workers (0 uses the configured count)")
	cmd.Flags().StringVar(&opts.Category, "category", "", "show one bucket only (entry|exit|complete)")
	cmd.Flags().StringVar(&opts.Query, "query", "", "free text filter on persons, checkpoint and date")
	cmd.Flags().StringVar(&opts.Band, "band", "", "time gap band (all|0-5|5-15|15+)")
	cmd.Flags().StringVar(&opts.Checkpoint, "checkpoint", "", "checkpoint filter")
	cmd.Flags().StringVar(&opts.Recency, "recency", "", "recency filter (all|today|3d|7d)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "cross-check every file against the all-pairs correlator")
	_ = cmd.MarkFlagRequired("primary")
	_ = cmd.MarkFlagRequired("compare")

	return cmd
}

func runAnalyze(cmd *cobra.Command, rootOpts *RootOptions, opts *AnalyzeOptions) error {
	ctx := cmd.Context()
	out := newFormatter(rootOpts, cmd)

	cfg, err := loadConfig(ctx, rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	maxMinutes := cfg.MaxMinutes
	if cmd.Flags().Changed("max-minutes") {
		maxMinutes = opts.MaxMinutes
	}
	if !config.ValidMaxMinutes(maxMinutes) {
		return WrapExitError(ExitCommandError, "invalid --max-minutes",
			fmt.Errorf("%w: %d not in [%d, %d]", service.ErrInvalidMaxMinutes,
				maxMinutes, config.MinAllowedMinutes, config.MaxAllowedMinutes))
	}
	query, category, err := opts.filter()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}
	workers := cfg.WorkerCount
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	reader, err := newReader(cfg)
	if err != nil {
		return err
	}
	primary, err := reader.ReadFile(ctx, opts.Primary)
	if err != nil {
		return WrapExitError(ExitCommandError, "read primary log", err)
	}
	out.VerboseLog("loaded %d primary records from %s", len(primary), opts.Primary)

	svc := service.New(
		service.WithLogger(logger.Named("service")),
		service.WithAnalyzer(service.NewAnalyzer(
			service.WithWorkers(workers),
			service.WithMaxSources(cfg.QueueSize),
			service.WithAnalyzerLogger(logger.Named("analyzer")),
		)),
	)
	start := time.Now()
	snap, err := svc.Run(ctx, primary, ingest.FileSources(opts.Compare, reader), maxMinutes)
	out.VerboseLog("analysed %d comparison files in %s", len(opts.Compare), elapsedSince(start))
	switch {
	case errors.Is(err, service.ErrTooManySources):
		return WrapExitError(ExitCommandError, "too many comparison files", err)
	case err != nil:
		return WrapExitError(ExitFailure, "analysis failed", err)
	}

	rs := snap.Results
	report := AnalyzeReport{
		RunID:      rs.RunID,
		MaxMinutes: rs.MaxMinutes,
		Failures:   snap.Failures,
		Summary:    stats.Summarize(rs),
	}
	if category == 0 && query.IsZero() {
		report.Results = &rs
	} else {
		cats := model.Categories
		if category != 0 {
			cats = []model.Category{category}
			report.Category = category.String()
		}
		for _, c := range cats {
			matches, err := svc.Query(c, query)
			if err != nil {
				return WrapExitError(ExitFailure, "query results", err)
			}
			report.Matches = append(report.Matches, matches...)
		}
	}

	if opts.Verify {
		report.Verification = verifyFiles(ctx, reader, primary, opts.Compare, maxMinutes)
	}

	if err := out.Render(report, func(w io.Writer) error { return writeAnalyzeText(w, report) }); err != nil {
		return WrapExitError(ExitFailure, "render report", err)
	}

	for _, chk := range report.Verification {
		if !chk.Match {
			return NewExitError(ExitFailure, fmt.Sprintf("verification failed for %s", chk.File))
		}
	}
	return nil
}

func (o *AnalyzeOptions) filter() (filter.Query, model.Category, error) {
	var (
		q   filter.Query
		c   model.Category
		err error
	)
	if o.Category != "" {
		if c, err = model.ParseCategory(o.Category); err != nil {
			return q, 0, err
		}
	}
	if q.Band, err = filter.ParseBand(o.Band); err != nil {
		return q, 0, err
	}
	if q.Recency, err = filter.ParseRecency(o.Recency); err != nil {
		return q, 0, err
	}
	q.Text = o.Query
	q.Checkpoint = o.Checkpoint
	return q, c, nil
}

// verifyFiles runs the indexed correlator and the all-pairs reference on
// every readable comparison file and reports whether they agree.
func verifyFiles(ctx context.Context, reader *ingest.Reader, primary []model.EventRecord, paths []string, maxMinutes int) []FileCheck {
	checks := make([]FileCheck, 0, len(paths))
	for _, path := range paths {
		src := ingest.NewFileSource(path, reader)
		chk := FileCheck{File: src.Name(), Match: true}
		recs, err := src.Records(ctx)
		if err != nil {
			// Unreadable files are already reported as failures.
			chk.Reason = err.Error()
			checks = append(checks, chk)
			continue
		}
		for _, dir := range []model.Direction{model.Entry, model.Exit} {
			fast := correlate.Correlate(primary, recs, dir, maxMinutes)
			slow := correlate.BruteForce(primary, recs, dir, maxMinutes)
			if !slices.Equal(fast, slow) {
				chk.Match = false
				chk.Reason = fmt.Sprintf("%s: %d indexed vs %d all-pairs", dir, len(fast), len(slow))
			}
			if dir == model.Entry {
				chk.Entry = len(fast)
			} else {
				chk.Exit = len(fast)
			}
		}
		checks = append(checks, chk)
	}
	return checks
}

func writeAnalyzeText(w io.Writer, r AnalyzeReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run %s (max %d minutes)\n", r.RunID, r.MaxMinutes)
	fmt.Fprintf(tw, "Entry: %d  Exit: %d  Complete: %d\n\n",
		r.Summary.Counts.Entry, r.Summary.Counts.Exit, r.Summary.Counts.Complete)

	if r.Results != nil {
		writeCorrelations(tw, "ENTRY", r.Results.Entry)
		writeCorrelations(tw, "EXIT", r.Results.Exit)
		writeComplete(tw, r.Results.Complete)
	} else {
		fmt.Fprintf(tw, "MATCHES (%d)\n", len(r.Matches))
		fmt.Fprintln(tw, "CATEGORY\tPERSON A\tPERSON B\tDATE\tMINUTES\tCHECKPOINT")
		for _, m := range r.Matches {
			a, b := m.Pair()
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				m.Category(), a, b, m.Day().Format(model.DateLayout), m.RankMinutes(), m.CheckpointID())
		}
		fmt.Fprintln(tw)
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(tw, "FAILURES")
		for _, f := range r.Failures {
			fmt.Fprintf(tw, "%s\t%s\n", f.File, f.Reason)
		}
		fmt.Fprintln(tw)
	}
	if len(r.Verification) > 0 {
		fmt.Fprintln(tw, "VERIFICATION")
		for _, c := range r.Verification {
			status := "ok"
			if !c.Match {
				status = "MISMATCH"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d entry\t%d exit\t%s\n", c.File, status, c.Entry, c.Exit, c.Reason)
		}
	}
	return tw.Flush()
}

func writeCorrelations(w io.Writer, title string, cs []model.Correlation) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(cs))
	fmt.Fprintln(w, "PERSON A\tPERSON B\tDATE\tWINDOW\tMINUTES\tCHECKPOINT")
	for _, c := range cs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			c.PersonA, c.PersonB, c.Date.Format(model.DateLayout), c.TimeWindow(), c.MinutesApart, c.Checkpoint)
	}
	fmt.Fprintln(w)
}

func writeComplete(w io.Writer, ms []model.CompleteMatch) {
	fmt.Fprintf(w, "COMPLETE (%d)\n", len(ms))
	fmt.Fprintln(w, "PERSON A\tPERSON B\tCHECKPOINT\tENTRY\tEXIT\tENTRY MIN\tEXIT MIN")
	for _, m := range ms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\t%s %s\t%d\t%d\n",
			m.PersonA, m.PersonB, m.Checkpoint,
			m.EntryDate.Format(model.DateLayout), m.EntryWindow,
			m.ExitDate.Format(model.DateLayout), m.ExitWindow,
			m.EntryMinutesApart, m.ExitMinutesApart)
	}
	fmt.Fprintln(w)
}

func elapsedSince(t time.Time) time.Duration { return time.Since(t).Round(time.Millisecond) }
