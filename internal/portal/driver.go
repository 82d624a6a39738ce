// Package portal drives the back office through a headless browser: sign in,
// open the orders list, export it to Excel and collect the workbook.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"orderdash/internal/config"
	"orderdash/internal/download"
)

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrNavigation     = errors.New("navigation failed")
	ErrExport         = errors.New("export failed")
)

// Browser starts a browser session for one account. Downloads must land in dir.
type Browser interface {
	Open(ctx context.Context, acct config.Account, dir string) (Session, error)
}

// Session is one signed-in browser. Close must always be called.
type Session interface {
	SignIn(ctx context.Context) error
	OpenOrders(ctx context.Context) error
	Export(ctx context.Context) error
	SignOut(ctx context.Context) error
	Close()
}

// Stage names a step of an account run.
type Stage string

const (
	StageLaunch   Stage = "launch"
	StageSignIn   Stage = "sign-in"
	StageOrders   Stage = "orders"
	StageExport   Stage = "export"
	StageDownload Stage = "download"
	StageFinalize Stage = "finalize"
	StageSignOut  Stage = "sign-out"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// Event reports progress of an account run.
type Event struct {
	Account config.Account
	Stage   Stage
	Message string
}

// Result is the outcome of one account run.
type Result struct {
	Account config.Account
	Path    string
	Err     error
	Elapsed time.Duration
}

func (r Result) OK() bool { return r.Err == nil }

// Short is the one-line diagnostic shown to users.
func (r Result) Short() string {
	if r.Err == nil {
		return fmt.Sprintf("%s: downloaded", r.Account.Name)
	}
	return fmt.Sprintf("%s: %s", r.Account.Name, truncate(r.Err.Error(), 100))
}

// Driver runs accounts one after another, never in parallel: the portal
// allows one session per profile and concurrent downloads would race.
type Driver struct {
	Browser  Browser
	Portal   config.PortalConfig
	Download config.DownloadConfig

	limiter *rate.Limiter
}

// NewDriver builds a driver. Sign-ins are spaced at least Portal.Cooldown apart.
func NewDriver(b Browser, portal config.PortalConfig, dl config.DownloadConfig) *Driver {
	limit := rate.Inf
	if portal.Cooldown > 0 {
		limit = rate.Every(portal.Cooldown)
	}
	return &Driver{
		Browser:  b,
		Portal:   portal,
		Download: dl,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Sync extracts a fresh workbook for every account. A failing account is
// reported in its Result and never stops the others.
func (d *Driver) Sync(ctx context.Context, accounts []config.Account, progress func(Event)) []Result {
	if progress == nil {
		progress = func(Event) {}
	}
	if err := os.MkdirAll(d.Download.Dir, 0755); err != nil {
		slog.Error("Failed to create download dir", "dir", d.Download.Dir, "error", err)
	}
	if d.Download.CleanBeforeSync {
		if _, err := download.Clean(d.Download.Dir, d.Download.Prefix); err != nil {
			slog.Warn("Failed to clean previous workbooks", "error", err)
		}
	}

	results := make([]Result, 0, len(accounts))
	for _, acct := range accounts {
		if ctx.Err() != nil {
			results = append(results, Result{Account: acct, Err: ctx.Err()})
			continue
		}
		start := time.Now()
		path, err := d.runAccount(ctx, acct, progress)
		r := Result{Account: acct, Path: path, Err: err, Elapsed: time.Since(start)}
		if err != nil {
			slog.Error("Account sync failed", "account", acct.ID, "error", err)
			progress(Event{Account: acct, Stage: StageFailed, Message: r.Short()})
		} else {
			slog.Info("Account sync done", "account", acct.ID, "path", path, "elapsed", r.Elapsed)
			progress(Event{Account: acct, Stage: StageDone, Message: r.Short()})
		}
		results = append(results, r)
	}
	return results
}

func (d *Driver) runAccount(ctx context.Context, acct config.Account, progress func(Event)) (string, error) {
	step := func(s Stage, msg string) {
		slog.Debug("Sync step", "account", acct.ID, "stage", s)
		progress(Event{Account: acct, Stage: s, Message: msg})
	}

	// a private download dir per run: no other writer can be mistaken for our file
	staging, err := os.MkdirTemp(d.Download.Dir, ".orderdash-"+acct.ID+"-")
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageLaunch, err)
	}
	defer os.RemoveAll(staging)

	step(StageLaunch, "starting browser")
	sess, err := d.Browser.Open(ctx, acct, staging)
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageLaunch, err)
	}
	defer sess.Close()

	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", StageSignIn, err)
	}

	step(StageSignIn, "signing in")
	if err := sess.SignIn(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", StageSignIn, err)
	}

	step(StageOrders, "opening orders")
	if err := sess.OpenOrders(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", StageOrders, err)
	}

	ignore := download.Snapshot(staging)
	step(StageExport, "generating Excel")
	if err := sess.Export(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", StageExport, err)
	}

	step(StageDownload, "waiting for download")
	file, err := download.Await(ctx, staging, download.AwaitOptions{
		Prefix:   d.Download.Prefix,
		Ignore:   ignore,
		Interval: d.Download.Interval,
		Timeout:  d.Download.Timeout,
		Settle:   d.Download.Settle,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageDownload, err)
	}

	step(StageFinalize, "saving workbook")
	dst := download.Path(d.Download.Dir, d.Download.Prefix, acct.ID)
	if err := download.Finalize(file, dst); err != nil {
		return "", fmt.Errorf("%s: %w", StageFinalize, err)
	}

	if d.Portal.Logout {
		step(StageSignOut, "signing out")
		if err := sess.SignOut(ctx); err != nil {
			// the workbook is already safe; a fresh profile isolates the next account anyway
			slog.Warn("Sign-out failed", "account", acct.ID, "error", err)
		}
	}
	return dst, nil
}
