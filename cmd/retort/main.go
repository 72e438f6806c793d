package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"retort/internal/bootstrap"
	lethalitydto "retort/internal/modules/lethality/dto"
	processinadapter "retort/internal/modules/process/adapter/in"
	processdto "retort/internal/modules/process/dto"
	"retort/internal/platform/config"
	"retort/internal/ui/theme"
)

const dateLayout = "2006-01-02"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	vaultPath string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "retort",
		Short:         "Retort batch records and F0 lethality",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.vaultPath, "vault", ".", "vault path holding retort.yaml, records and reports")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log_level from retort.yaml")

	root.AddCommand(newSessionCmd(g))
	root.AddCommand(newF0Cmd(g))
	root.AddCommand(newReportCmd(g))
	root.AddCommand(newPluginCmd(g))
	root.AddCommand(newWatchCmd(g))
	return root
}

func loadApp(ctx context.Context, g *globalFlags) (*bootstrap.App, error) {
	cfg, err := config.New(g.vaultPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return bootstrap.New(ctx, cfg)
}

func newSessionCmd(g *globalFlags) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Process session records"}

	var in processdto.CreateSessionInput
	var date string
	var baskets []int
	var entries []string
	create := &cobra.Command{
		Use:   "create --customer <name> --product <name> --operator <name>",
		Short: "Open a new process session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date != "" {
				d, err := time.Parse(dateLayout, date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				in.ProcessDate = d
			}
			if len(baskets) > 3 {
				return fmt.Errorf("--baskets takes at most three counts")
			}
			copy(in.Baskets[:], baskets)
			readings, err := processinadapter.ParseReadings(entries)
			if err != nil {
				return err
			}
			in.Readings = readings

			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SessionCLI.Create(ctx, in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session created: %s customer=%q product=%q readings=%d\n", out.ID, out.Customer, out.Product, out.ReadingCount)
			printWarnings(cmd, out.Warnings)
			return nil
		},
	}
	create.Flags().StringVar(&in.Customer, "customer", "", "customer name")
	create.Flags().StringVar(&in.Product, "product", "", "product name")
	create.Flags().StringVar(&in.Contact, "contact", "", "customer contact")
	create.Flags().StringVar(&date, "date", "", "process date YYYY-MM-DD (default today)")
	create.Flags().StringVar(&in.BatchLabel, "label", "", "batch label")
	create.Flags().StringVar(&in.Operator, "operator", "", "operator name")
	create.Flags().StringVar(&in.PressureUnit, "unit", "bar", "pressure unit: bar|psi|kgcm2")
	create.Flags().IntSliceVar(&baskets, "baskets", nil, "product count per basket, up to three")
	create.Flags().IntVar(&in.InitialCount, "initial", 0, "product count before processing")
	create.Flags().IntVar(&in.FinalCount, "final", 0, "product count after processing")
	create.Flags().StringArrayVar(&entries, "reading", nil, "reading index:temperature:pressure[:note], repeatable")

	var appendID string
	var appendEntries []string
	appendCmd := &cobra.Command{
		Use:   "append --session <id> --reading <idx:temp:pressure>...",
		Short: "Append readings to an open session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SessionCLI.Append(ctx, appendID, appendEntries)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "appended %d readings to %s (total %d)\n", out.Appended, out.SessionID, out.ReadingCount)
			printWarnings(cmd, out.Warnings)
			return nil
		},
	}
	appendCmd.Flags().StringVar(&appendID, "session", "", "session id")
	appendCmd.Flags().StringArrayVar(&appendEntries, "reading", nil, "reading index:temperature:pressure[:note], repeatable")

	var importID, importFormat string
	importCmd := &cobra.Command{
		Use:   "import --session <id> <file>",
		Short: "Import a CSV or JSON logger file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SessionCLI.Import(ctx, importID, args[0], importFormat)
			for _, rowErr := range out.Errors {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), theme.Warning(rowErr))
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d rows into %s (%d rejected)\n", out.Imported, out.Total, out.SessionID, out.Failed)
			printWarnings(cmd, out.Warnings)
			return nil
		},
	}
	importCmd.Flags().StringVar(&importID, "session", "", "session id")
	importCmd.Flags().StringVar(&importFormat, "format", "", "csv|json (default from extension)")

	var showID string
	show := &cobra.Command{
		Use:   "show --session <id>",
		Short: "Show a session with its readings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			s, err := app.SessionCLI.Show(ctx, showID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(w, theme.Title.Render("Sesi "+s.ID))
			_, _ = fmt.Fprintf(w, "date: %s\ncustomer: %s\nproduct: %s\ncontact: %s\nlabel: %s\noperator: %s\n", s.ProcessDate.Format(dateLayout), s.Customer, s.Product, s.Contact, s.BatchLabel, s.Operator)
			_, _ = fmt.Fprintf(w, "baskets: %d/%d/%d initial=%d final=%d unit=%s\n", s.Baskets[0], s.Baskets[1], s.Baskets[2], s.InitialCount, s.FinalCount, s.PressureUnit)
			if s.AmendsID != "" {
				_, _ = fmt.Fprintf(w, "amends: %s\n", s.AmendsID)
			}
			if s.SealedAt.IsZero() {
				_, _ = fmt.Fprintln(w, theme.Muted.Render("open"))
			} else {
				_, _ = fmt.Fprintf(w, "sealed: %s\n", s.SealedAt.Format(time.RFC3339))
			}
			if len(s.Readings) > 0 {
				rows := make([][]string, 0, len(s.Readings))
				for _, r := range s.Readings {
					rows = append(rows, []string{strconv.Itoa(r.SequenceIndex), formatFloat(r.TemperatureC), formatFloat(r.Pressure), r.Annotation})
				}
				_, _ = fmt.Fprintln(w, theme.Table([]string{"menit", "suhu °C", "tekanan", "keterangan"}, rows))
			}
			if s.Last != nil {
				_, _ = fmt.Fprintf(w, "last: F0=%.2f holding=%s params=%s at=%s\n", s.Last.TotalF0, theme.Verdict(s.Last.HoldingVerdict), s.Last.ParamsKey, s.Last.ComputedAt.Format(time.RFC3339))
			}
			printWarnings(cmd, s.Warnings)
			return nil
		},
	}
	show.Flags().StringVar(&showID, "session", "", "session id")

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			sessions, err := app.SessionCLI.List(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				state := "open"
				if !s.SealedAt.IsZero() {
					state = "sealed"
				}
				rows = append(rows, []string{s.ID, s.ProcessDate.Format(dateLayout), s.Customer, s.Product, s.Operator, strconv.Itoa(s.ReadingCount), state, strconv.Itoa(len(s.Warnings))})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Table([]string{"id", "date", "customer", "product", "operator", "readings", "state", "warnings"}, rows))
			return nil
		},
	}

	var amendID string
	amend := &cobra.Command{
		Use:   "amend --session <id>",
		Short: "Copy a sealed session into a new editable one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SessionCLI.Amend(ctx, amendID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session amended: %s amends=%s readings=%d\n", out.ID, out.AmendsID, out.ReadingCount)
			return nil
		},
	}
	amend.Flags().StringVar(&amendID, "session", "", "session id")

	session.AddCommand(create, appendCmd, importCmd, show, list, amend)
	return session
}

// paramFlags binds lethality overrides; only flags the user sets are applied.
type paramFlags struct {
	tref, z, threshold, interval, holdTemp, holdMinutes float64
}

func (p *paramFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&p.tref, "tref", 0, "reference temperature °C")
	cmd.Flags().Float64Var(&p.z, "z", 0, "z-value °C")
	cmd.Flags().Float64Var(&p.threshold, "threshold", 0, "activation threshold °C")
	cmd.Flags().Float64Var(&p.interval, "interval", 0, "minutes per reading")
	cmd.Flags().Float64Var(&p.holdTemp, "hold-temp", 0, "minimum holding temperature °C")
	cmd.Flags().Float64Var(&p.holdMinutes, "hold-minutes", 0, "minimum holding duration in minutes")
}

func (p *paramFlags) overrides(cmd *cobra.Command) lethalitydto.ParameterOverrides {
	pick := func(name string, v float64) *float64 {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return &v
	}
	return lethalitydto.ParameterOverrides{
		ReferenceTemperature:   pick("tref", p.tref),
		ZValue:                 pick("z", p.z),
		ActivationThreshold:    pick("threshold", p.threshold),
		IntervalMinutes:        pick("interval", p.interval),
		MinimumHoldTemperature: pick("hold-temp", p.holdTemp),
		MinimumHoldMinutes:     pick("hold-minutes", p.holdMinutes),
	}
}

func newF0Cmd(g *globalFlags) *cobra.Command {
	f0 := &cobra.Command{Use: "f0", Short: "Lethality computation"}

	var computeEntries []string
	var computeParams paramFlags
	compute := &cobra.Command{
		Use:   "compute --reading <idx:temp:pressure>...",
		Short: "Compute F0 for ad-hoc readings without storing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			readings, err := processinadapter.ParseReadings(computeEntries)
			if err != nil {
				return err
			}
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.LethalityCLI.Compute(ctx, readings, computeParams.overrides(cmd))
			if err != nil {
				return err
			}
			printResult(cmd, out)
			return nil
		},
	}
	compute.Flags().StringArrayVar(&computeEntries, "reading", nil, "reading index:temperature[:pressure], repeatable")
	computeParams.bind(compute)

	var verifyEntries []string
	var verifyParams paramFlags
	verify := &cobra.Command{
		Use:   "verify --reading <idx:temp:pressure>...",
		Short: "Check the holding time of ad-hoc readings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			readings, err := processinadapter.ParseReadings(verifyEntries)
			if err != nil {
				return err
			}
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.LethalityCLI.Verify(ctx, readings, verifyParams.overrides(cmd))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "holding: %s (needs %d consecutive readings >= %.1f °C)\n", theme.Verdict(out.Held), out.RequiredSamples, out.Parameters.MinimumHoldTemperature)
			return nil
		},
	}
	verify.Flags().StringArrayVar(&verifyEntries, "reading", nil, "reading index:temperature[:pressure], repeatable")
	verifyParams.bind(verify)

	var evalID string
	var evalParams paramFlags
	evaluate := &cobra.Command{
		Use:   "evaluate --session <id>",
		Short: "Evaluate a stored session and seal it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.LethalityCLI.Evaluate(ctx, evalID, evalParams.overrides(cmd))
			if err != nil {
				return err
			}
			printResult(cmd, out)
			if out.Cached {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Muted.Render("from cache"))
			}
			return nil
		},
	}
	evaluate.Flags().StringVar(&evalID, "session", "", "session id")
	evalParams.bind(evaluate)

	params := &cobra.Command{
		Use:   "params",
		Short: "Show configured lethality parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			p := app.LethalityCLI.Defaults(ctx)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tref=%.1f z=%.1f threshold=%.1f interval=%.2fmin hold=%.1f°C/%.1fmin key=%s\n",
				p.ReferenceTemperature, p.ZValue, p.ActivationThreshold, p.IntervalMinutes, p.MinimumHoldTemperature, p.MinimumHoldMinutes, p.Key)
			return nil
		},
	}

	f0.AddCommand(compute, verify, evaluate, params)
	return f0
}

func newReportCmd(g *globalFlags) *cobra.Command {
	report := &cobra.Command{Use: "report", Short: "Process reports"}

	var sessionID, format, outPath string
	var params paramFlags
	render := &cobra.Command{
		Use:   "render --session <id> --format <pdf|csv|prom|plugin format>",
		Short: "Evaluate a session and render its report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.ReportCLI.Render(ctx, sessionID, format, params.overrides(cmd))
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, out.Body, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report %s via %s: F0=%.2f holding=%s stored=%s\n", out.Format, out.Renderer, out.TotalF0, theme.Verdict(out.Holding), out.Location)
			return nil
		},
	}
	render.Flags().StringVar(&sessionID, "session", "", "session id")
	render.Flags().StringVar(&format, "format", "pdf", "report format")
	render.Flags().StringVar(&outPath, "out", "", "also write the report to this file")
	params.bind(render)

	formats := &cobra.Command{
		Use:   "formats",
		Short: "List report formats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			items, err := app.ReportCLI.Formats(ctx)
			if err != nil {
				return err
			}
			for _, f := range items {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", f.Format, f.Renderer)
			}
			return nil
		},
	}

	inspect := &cobra.Command{
		Use:   "inspect <pdf>",
		Short: "Read the total F0 and verdict back from a PDF report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.ReportCLI.Inspect(ctx, args[0])
			if err != nil {
				return err
			}
			if !out.HasTotal {
				return fmt.Errorf("%s: no total F0 found in %d pages", out.Path, out.Pages)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s pages=%d F0=%.2f holding=%s\n", out.Path, out.Pages, out.TotalF0, out.Verdict)
			return nil
		},
	}

	report.AddCommand(render, formats, inspect)
	return report
}

func newPluginCmd(g *globalFlags) *cobra.Command {
	plugin := &cobra.Command{Use: "plugin", Short: "Exporter plugins"}
	plugin.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List plugin manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			plugins, err := app.ReportCLI.ListPlugins(ctx)
			if err != nil {
				return err
			}
			if len(plugins) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, p := range plugins {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s enabled=%t formats=%s binary=%s\n", p.Name, p.Version, p.Enabled, strings.Join(p.Formats, ","), p.Binary)
			}
			return nil
		},
	})

	plugin.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Validate plugin versions, checksums and lifecycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			results, err := app.ReportCLI.Doctor(ctx)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, r := range results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s api=%t checksum=%t binary=%t lifecycle=%t", r.Name, r.APICompatible, r.ChecksumValid, r.BinaryReachable, r.LifecycleOK)
				if r.Error != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", r.Error)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	})
	return plugin
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	var once bool
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Import logger files dropped into <vault>/inbox/<session-id>/",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer app.Close()
			if once {
				n, err := app.Inbox.Sweep(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "handled %d files\n", n)
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Muted.Render("watching inbox, ctrl-c to stop"))
			return app.Inbox.Run(ctx)
		},
	}
	watch.Flags().BoolVar(&once, "once", false, "import waiting files and exit")
	return watch
}

func printResult(cmd *cobra.Command, out lethalitydto.ResultOutput) {
	w := cmd.OutOrStdout()
	rows := make([][]string, 0, len(out.Indexes))
	for i := range out.Indexes {
		rows = append(rows, []string{
			strconv.Itoa(out.Indexes[i]),
			formatFloat(out.Temperatures[i]),
			strconv.FormatFloat(out.PerSampleF0[i], 'f', 4, 64),
			strconv.FormatFloat(out.CumulativeF0[i], 'f', 4, 64),
		})
	}
	_, _ = fmt.Fprintln(w, theme.Table([]string{"menit", "suhu °C", "F0", "kumulatif"}, rows))
	_, _ = fmt.Fprintf(w, "Total F0: %.2f\nWaktu Tahan: %s\nparams: %s\n", out.TotalF0, theme.Verdict(out.HoldingVerdict), out.ParamsKey)
	if out.SessionID != "" && out.Sealed {
		_, _ = fmt.Fprintf(w, "session %s sealed\n", out.SessionID)
	}
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), theme.Warnings(warnings))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
