package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/formacao/internal/client"
	"github.com/okian/formacao/internal/domain/ingest"
	"github.com/okian/formacao/internal/domain/model"
	"github.com/okian/formacao/internal/domain/report"
)

const (
	defaultServerURL = "http://localhost:8501"
	defaultTimeout   = 60 * time.Second
)

// errNeedConfirm guards the destructive clear command.
var errNeedConfirm = errors.New("refusing to delete every record without --yes")

type rootOptions struct {
	serverURL string
	apiKey    string
	timeout   time.Duration

	client *client.Client
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "formacaoctl",
		Short: "Manage training attendance data on a dashboard server",
		Long: `formacaoctl talks to the training dashboard HTTP API.

It can preview and import attendance spreadsheets, list and delete records,
print reports, export pivot tables as CSV and query the AI assistant.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.client = client.New(opts.serverURL,
				client.WithTimeout(opts.timeout),
				client.WithAPIKey(opts.apiKey),
			)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.serverURL, "url", envOr("FORMACAO_URL", defaultServerURL), "Dashboard server base URL (or set FORMACAO_URL)")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("GEMINI_API_KEY"), "Gemini API key sent with assistant requests (or set GEMINI_API_KEY)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "Request timeout")

	root.AddCommand(
		newPreviewCmd(opts),
		newImportCmd(opts),
		newRecordsCmd(opts),
		newDeleteCmd(opts),
		newClearCmd(opts),
		newSummaryCmd(opts),
		newTopCmd(opts),
		newDetailCmd(opts),
		newExportCmd(opts),
		newAskCmd(opts),
		newClassifyCmd(opts),
	)
	return root
}

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview FILE",
		Short: "Show the columns and first rows of a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			p, err := opts.client.Preview(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rows\n", p.Filename, p.TotalRows)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join(p.Headers, "\t"))
			for _, row := range p.Rows {
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}
			return tw.Flush()
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		m        ingest.Mapping
		date     string
		classify bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a spreadsheet using a column mapping",
		Long: `Import a spreadsheet. Person, organization, event and hours columns are
required, plus exactly one of --date-column or --date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				d, err := parseDateFlag(date)
				if err != nil {
					return err
				}
				m.ManualDate = d
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rep, err := opts.client.Ingest(cmd.Context(), args[0], f, m, classify)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d inserted, %d dropped, %d classified (ids %d-%d)\n",
				rep.BatchID, rep.Inserted, rep.Dropped, rep.Classified, rep.FirstID, rep.LastID)
			return nil
		},
	}
	cmd.Flags().StringVar(&m.Person, "person", "", "Column holding the teacher name")
	cmd.Flags().StringVar(&m.Organization, "organization", "", "Column holding the school")
	cmd.Flags().StringVar(&m.Event, "event", "", "Column holding the training event")
	cmd.Flags().StringVar(&m.Hours, "hours", "", "Column holding the workload in hours")
	cmd.Flags().StringVar(&m.DateColumn, "date-column", "", "Column holding the event date")
	cmd.Flags().StringVar(&date, "date", "", "Date applied to every row (YYYY-MM-DD or DD/MM/YYYY)")
	cmd.Flags().StringVar(&m.Category, "category", "", "Column holding the event category")
	cmd.Flags().BoolVar(&classify, "classify", false, "Ask the assistant to categorize events when no category column is given")
	for _, name := range []string{"person", "organization", "event", "hours"} {
		_ = cmd.MarkFlagRequired(name)
	}
	cmd.MarkFlagsMutuallyExclusive("date-column", "date")
	cmd.MarkFlagsOneRequired("date-column", "date")
	return cmd
}

func parseDateFlag(raw string) (model.NullDate, error) {
	if d, err := model.ParseISODate(raw); err == nil && d.Valid {
		return d, nil
	}
	if d := ingest.ParseDate(raw); d.Valid {
		return d, nil
	}
	return model.NullDate{}, fmt.Errorf("invalid date %q", raw)
}

func newRecordsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "List stored records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := opts.client.Records(cmd.Context())
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), recs)
		},
	}
}

func printRecords(w io.Writer, recs []model.TrainingRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROFESSOR\tESCOLA\tEVENTO\tCATEGORIA\tHORAS\tDATA")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.PersonName, r.Organization, r.EventName, r.Category, formatHours(r.Hours), r.EventDate)
	}
	return tw.Flush()
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid record id %q", args[0])
			}
			if err := opts.client.DeleteRecord(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "record %d deleted\n", id)
			return nil
		},
	}
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errNeedConfirm
			}
			n, err := opts.client.ClearRecords(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d records deleted\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting every record")
	return cmd
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print headline metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.client.Summary(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Registros\t%d\n", m.Records)
			fmt.Fprintf(tw, "Horas\t%s\n", formatHours(m.TotalHours))
			fmt.Fprintf(tw, "Professores\t%d\n", m.People)
			fmt.Fprintf(tw, "Escolas\t%d\n", m.Organizations)
			fmt.Fprintf(tw, "Eventos\t%d\n", m.Events)
			fmt.Fprintf(tw, "Média de horas\t%.2f\n", m.MeanHours)
			return tw.Flush()
		},
	}
}

func newTopCmd(opts *rootOptions) *cobra.Command {
	var (
		by      string
		measure string
		n       int
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank groups by hours or participation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := report.ParseDimension(by)
			if err != nil {
				return err
			}
			m, err := report.ParseMeasure(measure)
			if err != nil {
				return err
			}
			groups, err := opts.client.Top(cmd.Context(), d, m, n)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "%s\tHORAS\tREGISTROS\n", strings.ToUpper(string(d)))
			for _, g := range groups {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", g.Group, formatHours(g.Hours), g.Records)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&by, "by", string(report.ByOrganization), "Dimension: organization, event, category or person")
	cmd.Flags().StringVar(&measure, "measure", string(report.MeasureHours), "Ranking measure: hours or count")
	cmd.Flags().IntVarP(&n, "limit", "n", 5, "Number of groups; 0 lists all")
	return cmd
}

func newDetailCmd(opts *rootOptions) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "detail VALUE",
		Short: "Show every record of a teacher or school",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := report.ParseDimension(by)
			if err != nil {
				return err
			}
			det, err := opts.client.Detail(cmd.Context(), d, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s horas em %d registros\n", det.Value, formatHours(det.TotalHours), len(det.Rows))
			return printRecords(out, det.Rows)
		},
	}
	cmd.Flags().StringVar(&by, "by", string(report.ByPerson), "Dimension: person or organization")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		by     string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export total hours per group as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			d, err := report.ParseDimension(by)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, createErr := os.Create(output)
				if createErr != nil {
					return createErr
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}
			return opts.client.ExportCSV(cmd.Context(), w, d)
		},
	}
	cmd.Flags().StringVar(&by, "by", string(report.ByOrganization), "Dimension: organization, event, category or person")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func printAnswer(w io.Writer, a client.Answer) {
	fmt.Fprintln(w, a.Text)
	if a.Outcome != "ok" && a.Error != "" {
		fmt.Fprintf(w, "(%s: %s)\n", a.Outcome, a.Error)
	}
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask the assistant about the stored data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.client.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printAnswer(cmd.OutOrStdout(), a)
			return nil
		},
	}
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify EVENT...",
		Short: "Suggest a category for a training event name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.client.Classify(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printAnswer(cmd.OutOrStdout(), a)
			return nil
		},
	}
}
