package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"orderdash/internal/config"
	"orderdash/internal/portal"
	"orderdash/internal/report"
)

func main() {
	// to get debug info use:  orderdash --debug
	// track logged data with: tail -f /tmp/orderdash_debug.log
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		debug    bool
		a        *app
		closeLog = func() {}
	)

	root := &cobra.Command{
		Use:           "orderdash",
		Short:         "Sync order exports from the sales portal and explore them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			closeLog = logInit(debug)
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintln(os.Stderr, redStyle.Render("configuration: "+err.Error()))
				return err
			}
			cfg.Debug = debug
			a = newApp(cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			m := newModel(a)
			p := tea.NewProgram(m, tea.WithAltScreen())
			m.ref.p = p
			if _, err := p.Run(); err != nil {
				slog.Error("Error running UI", "error", err)
				return err
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "write a debug log to the OS temp folder")

	root.AddCommand(
		newSyncCmd(func() *app { return a }),
		newReportCmd(func() *app { return a }),
		newVersionCmd(),
	)
	return root
}

func newSyncCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Download a fresh workbook for every account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			results, err := get().sync(ctx, func(e portal.Event) {
				if e.Stage == portal.StageDone || e.Stage == portal.StageFailed {
					return
				}
				fmt.Fprintf(out, "  %s %s\n", italicStyle.Render(e.Account.ID), e.Message)
			})
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), redStyle.Render(err.Error()))
				return err
			}
			for _, r := range results {
				line := fmt.Sprintf("%s (%s)", r.Short(), r.Elapsed.Round(time.Second))
				if r.OK() {
					fmt.Fprintln(out, "✓ "+line)
				} else {
					fmt.Fprintln(out, redStyle.Render("✗ "+line))
				}
			}
			return syncOutcome(results)
		},
	}
}

type reportFlags struct {
	origins   []string
	stores    []string
	statuses  []string
	shipments []string
	products  []string
	from, to  string
	top       int
	raw       bool
}

func (f reportFlags) filter() (report.Filter, error) {
	flt := report.NewFilter()
	flt.Select(report.FieldOrigin, f.origins...)
	flt.Select(report.FieldStore, f.stores...)
	flt.Select(report.FieldStatus, f.statuses...)
	flt.Select(report.FieldShipment, f.shipments...)
	flt.Select(report.FieldProduct, f.products...)
	for _, bound := range []struct {
		text string
		dst  *report.Date
	}{{f.from, &flt.From}, {f.to, &flt.To}} {
		if bound.text == "" {
			continue
		}
		d, ok := report.ParseDate(bound.text)
		if !ok {
			return flt, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", bound.text)
		}
		*bound.dst = d
	}
	return flt, nil
}

func newReportCmd(get func() *app) *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print KPIs and breakdowns of the downloaded orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			flt, err := flags.filter()
			if err != nil {
				return err
			}
			a := get()
			table, err := a.loadTable()
			if errors.Is(err, report.ErrNoData) {
				fmt.Fprintln(cmd.OutOrStdout(), "No data yet. Run `orderdash sync` first.")
				return nil
			}
			if err != nil {
				return err
			}
			if flags.raw {
				writeRaw(cmd.OutOrStdout(), table, flt)
				return nil
			}
			writeReport(cmd.OutOrStdout(), a.cfg.Report.Currency, table, flt, flags.top)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&flags.origins, "origin", nil, "only these origins (account names)")
	f.StringSliceVar(&flags.stores, "store", nil, "only these stores")
	f.StringSliceVar(&flags.statuses, "status", nil, "only these order statuses")
	f.StringSliceVar(&flags.shipments, "shipment", nil, "only these shipment statuses")
	f.StringSliceVar(&flags.products, "product", nil, "only these products")
	f.StringVar(&flags.from, "from", "", "first date, YYYY-MM-DD")
	f.StringVar(&flags.to, "to", "", "last date, YYYY-MM-DD")
	f.IntVar(&flags.top, "top", 10, "rows per breakdown")
	f.BoolVar(&flags.raw, "raw", false, "print the matching orders with every source column")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", boldStyle.Render("orderdash"), versionString())
		},
	}
}
