package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/archive"
	"github.com/Mouseminar/job-mcp/internal/crawler"
	localstorage "github.com/Mouseminar/job-mcp/internal/storage/local"
)

const (
	defaultOutput       = "jobs_result.json"
	defaultInternOutput = "interns_result.json"
	summaryJobs         = 10
)

type searchOptions struct {
	query  crawler.Query
	intern bool
	json   bool
	save   bool
	output string
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one aggregated job search",
		Example: `  jobmcp search -p "Go开发" -c 上海 --sources boss,liepin
  jobmcp search -p 数据分析 -c 北京 -e 3-5年 -d 本科 --json --save -o result.json
  jobmcp search --intern -p 产品 -c 北京 --duration 3个月 --days-per-week 4天 --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.query.Position, "position", "p", "", "job title or keyword (required)")
	f.StringVarP(&opts.query.City, "city", "c", "", "city name, e.g. 上海")
	f.StringVarP(&opts.query.Experience, "experience", "e", "", "experience bracket, e.g. 3-5年")
	f.StringVarP(&opts.query.Education, "education", "d", "", "education level, e.g. 本科")
	f.StringVarP(&opts.query.Salary, "salary", "s", "", "salary hint, e.g. 20-30K")
	f.IntVar(&opts.query.Page, "page", crawler.DefaultPage, "1-based result page")
	f.IntVar(&opts.query.PageSize, "page-size", crawler.DefaultPageSize, "results per page and source")
	f.StringSliceVar(&opts.query.Sources, "sources", nil, "sources to query (repeatable or comma separated); default all")
	f.BoolVar(&opts.intern, "intern", false, "search internship listings instead of jobs")
	f.StringVar(&opts.query.Duration, "duration", "", "internship duration, e.g. 3个月 (with --intern)")
	f.StringVar(&opts.query.DaysPerWeek, "days-per-week", "", "internship days per week, e.g. 4天 (with --intern)")
	f.BoolVar(&opts.json, "json", false, "print the report as JSON")
	f.BoolVar(&opts.save, "save", false, "write the report to --output")
	f.StringVarP(&opts.output, "output", "o", defaultOutput, "report file used with --save")
	return cmd
}

func runSearch(cmd *cobra.Command, opts *searchOptions) error {
	instance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := instance.Logger()

	search := instance.Search
	if opts.intern {
		search = instance.SearchInterns
	}
	report, err := search(cmd.Context(), opts.query)
	if err != nil {
		if errors.Is(err, crawler.ErrInvalidQuery) {
			return &exitError{code: 2, err: err}
		}
		return &exitError{code: 1, err: err}
	}

	out := cmd.OutOrStdout()
	if opts.json {
		data, err := archive.Encode(report)
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	} else if err := printSummary(out, report); err != nil {
		return err
	}

	if opts.save {
		output := outputPath(opts, cmd.Flags().Changed("output"))
		uri, err := saveReport(cmd, output, report)
		if err != nil {
			return &exitError{code: 1, err: err}
		}
		logger.Info("report saved", zap.String("uri", uri))
		if !opts.json {
			fmt.Fprintf(out, "\nSaved to %s\n", output)
		}
	}

	if !report.Success {
		return &exitError{code: 1, err: errors.New("every source failed")}
	}
	return nil
}

// outputPath picks the report file. Internship runs default to their own file
// unless -o was given.
func outputPath(opts *searchOptions, explicit bool) string {
	if opts.intern && !explicit {
		return defaultInternOutput
	}
	return opts.output
}

func saveReport(cmd *cobra.Command, output string, report crawler.Report) (string, error) {
	if strings.TrimSpace(output) == "" {
		output = defaultOutput
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	store, err := localstorage.New(localstorage.Config{BaseDir: filepath.Dir(abs)})
	if err != nil {
		return "", fmt.Errorf("open output directory: %w", err)
	}
	data, err := archive.Encode(report)
	if err != nil {
		return "", err
	}
	uri, err := store.PutObject(cmd.Context(), filepath.Base(abs), archive.ContentType, data)
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return uri, nil
}

// printSummary writes the per-source table, the failures, and the first jobs.
func printSummary(w io.Writer, report crawler.Report) error {
	q := report.Params
	fmt.Fprintf(w, "Search %q", q.Position)
	if q.City != "" {
		fmt.Fprintf(w, " in %s", q.City)
	}
	fmt.Fprintf(w, " (page %d, %d per source)\n\n", q.Page, q.PageSize)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tJOBS\tSTATUS")
	for _, name := range q.Sources {
		if detail, failed := report.Errors[name]; failed {
			fmt.Fprintf(tw, "%s\t-\t%s\n", name, detail)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\tok\n", name, report.Statistics.BySource[name])
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	fmt.Fprintf(w, "\nTotal: %d jobs\n", report.Statistics.Total)
	for i, job := range report.Jobs {
		if i == summaryJobs {
			fmt.Fprintf(w, "... %d more (use --json for all)\n", len(report.Jobs)-summaryJobs)
			break
		}
		fmt.Fprintf(w, "%2d. %s | %s | %s | %s [%s]\n",
			i+1, truncate(job.Title, 40), job.Company, orDash(job.SalaryRange), orDash(job.City), job.SourceName)
		if job.Duration != "" || job.DaysPerWeek != "" {
			fmt.Fprintf(w, "    %s / %s\n", orDash(job.Duration), orDash(job.DaysPerWeek))
		}
		if job.SourceURL != "" {
			fmt.Fprintf(w, "    %s\n", job.SourceURL)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
