package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"orderdash/internal/config"
	"orderdash/internal/portal"
	"orderdash/internal/report"
)

// app wires configuration to the extraction driver and the report loader.
// The TUI and the CLI commands share it.
type app struct {
	cfg    *config.AppConfig
	driver *portal.Driver
}

func newApp(cfg *config.AppConfig) *app {
	browser := &portal.ChromeBrowser{Portal: cfg.Portal, Debug: cfg.Debug}
	return &app{
		cfg:    cfg,
		driver: portal.NewDriver(browser, cfg.Portal, cfg.Download),
	}
}

func (a *app) loadOptions() report.LoadOptions {
	opts := report.LoadOptions{HeaderRows: a.cfg.Report.HeaderRows}
	if a.cfg.Report.ReturnAmount != nil {
		opts.Returns = &report.ReturnRule{
			Marker: a.cfg.Report.ReturnMarker,
			Amount: *a.cfg.Report.ReturnAmount,
		}
	}
	return opts
}

// loadTable reads every finalized workbook in the download dir.
// report.ErrNoData means nothing was synced yet.
func (a *app) loadTable() (*report.Table, error) {
	sources, err := report.DiscoverSources(a.cfg.Download.Dir, a.cfg.Download.Prefix, a.cfg.AccountName)
	if err != nil {
		return nil, err
	}
	return report.Load(sources, a.loadOptions())
}

// sync runs one extraction cycle over every configured account.
func (a *app) sync(ctx context.Context, progress func(portal.Event)) ([]portal.Result, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Info("Sync started", "accounts", len(a.cfg.Accounts), "dir", a.cfg.Download.Dir)
	results := a.driver.Sync(ctx, a.cfg.Accounts, progress)
	return results, nil
}

func (a *app) money(d decimal.Decimal) string {
	return report.FormatMoney(a.cfg.Report.Currency, d)
}

var errAllFailed = errors.New("every account failed")

// syncOutcome summarizes results: nil when at least one account succeeded.
func syncOutcome(results []portal.Result) error {
	for _, r := range results {
		if r.OK() {
			return nil
		}
	}
	if len(results) == 0 {
		return nil
	}
	return errAllFailed
}
