package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sethvargo/go-retry"

	"orderdash/internal/config"
)

// Selectors prefer semantic attributes over page structure, which drifts.
const (
	emailInput    = `input[type="email"]`
	passwordInput = `input[type="password"]`
	submitButton  = `button[type="submit"]`

	exportXPath = `//button[contains(., 'Excel')] | //app-excel-export-button//button`
	menuXPath   = `//button[contains(@class, 'user') or contains(@class, 'avatar') or contains(@aria-label, 'user') or contains(@aria-label, 'cuenta')]`
	logoutXPath = `//*[self::a or self::button or self::li][contains(., 'Cerrar sesión') or contains(., 'Logout') or contains(., 'Salir')]`
)

var errNotReady = errors.New("page not ready")

// ChromeBrowser opens one isolated headless Chrome per account.
type ChromeBrowser struct {
	Portal config.PortalConfig
	Debug  bool

	// PollBase is the first delay of the page condition polls.
	PollBase time.Duration
}

// Open launches Chrome with a fresh profile that saves downloads into dir.
func (b *ChromeBrowser) Open(ctx context.Context, acct config.Account, dir string) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if path := FindChrome(b.Portal.ChromePath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
		slog.Info("Using Chrome/Chromium executable", "path", path)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	s := &chromeSession{
		ctx:     tabCtx,
		account: acct,
		portal:  b.Portal,
		debug:   b.Debug,
		poll:    b.PollBase,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}
	if s.poll <= 0 {
		s.poll = 250 * time.Millisecond
	}
	if s.portal.StepTimeout <= 0 {
		s.portal.StepTimeout = 40 * time.Second
	}

	// first Run starts the browser
	err := chromedp.Run(tabCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return s, nil
}

type chromeSession struct {
	ctx     context.Context
	cancel  context.CancelFunc
	account config.Account
	portal  config.PortalConfig
	debug   bool
	poll    time.Duration
}

// ctxFor ties the tab context to the caller's cancellation.
func (s *chromeSession) ctxFor(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(s.ctx, s.portal.StepTimeout)
	stop := context.AfterFunc(parent, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) SignIn(ctx context.Context) error {
	stepCtx, cancel := s.ctxFor(ctx)
	defer cancel()

	err := chromedp.Run(stepCtx,
		chromedp.Navigate(s.portal.SignInURL),
		chromedp.WaitVisible(emailInput, chromedp.ByQuery),
		chromedp.Clear(emailInput, chromedp.ByQuery),
		chromedp.SendKeys(emailInput, s.account.Username, chromedp.ByQuery),
		chromedp.WaitVisible(passwordInput, chromedp.ByQuery),
		chromedp.Clear(passwordInput, chromedp.ByQuery),
		chromedp.SendKeys(passwordInput, s.account.Password, chromedp.ByQuery),
		scriptedClick(submitButton),
	)
	if err != nil {
		s.dump(ctx, "signin")
		return fmt.Errorf("%w: sign-in form: %v", ErrAuthentication, err)
	}

	st, err := s.waitPage(ctx, func(st pageState) bool { return !st.SignInForm })
	if err != nil {
		s.dump(ctx, "signin")
		if st.Alert != "" {
			return fmt.Errorf("%w: %s", ErrAuthentication, st.Alert)
		}
		return fmt.Errorf("%w: still on sign-in page: %v", ErrAuthentication, err)
	}
	slog.Info("Signed in", "account", s.account.ID)
	return nil
}

func (s *chromeSession) OpenOrders(ctx context.Context) error {
	hasExport := func(st pageState) bool { return st.ExportControl }

	if s.portal.OrdersURL != "" {
		stepCtx, cancel := s.ctxFor(ctx)
		err := chromedp.Run(stepCtx, chromedp.Navigate(s.portal.OrdersURL))
		cancel()
		if err == nil {
			if _, err = s.waitPage(ctx, hasExport); err == nil {
				return nil
			}
		}
		slog.Warn("Direct navigation to orders failed", "account", s.account.ID, "error", err)
	}

	if s.portal.OrdersLabel == "" {
		s.dump(ctx, "orders")
		return fmt.Errorf("%w: orders list not reachable", ErrNavigation)
	}
	// fall back to the navigation menu entry
	label := fmt.Sprintf(`//*[self::a or self::button or self::span][contains(normalize-space(.), %s)]`, xpathLiteral(s.portal.OrdersLabel))
	stepCtx, cancel := s.ctxFor(ctx)
	err := chromedp.Run(stepCtx, scriptedClickXPath(label))
	cancel()
	if err == nil {
		_, err = s.waitPage(ctx, hasExport)
	}
	if err != nil {
		s.dump(ctx, "orders")
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	return nil
}

func (s *chromeSession) Export(ctx context.Context) error {
	stepCtx, cancel := s.ctxFor(ctx)
	defer cancel()
	if err := chromedp.Run(stepCtx,
		chromedp.WaitReady(exportXPath, chromedp.BySearch),
		scriptedClickXPath(exportXPath),
	); err != nil {
		s.dump(ctx, "export")
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	slog.Info("Export triggered", "account", s.account.ID)
	return nil
}

// SignOut uses the user menu; if that fails it drops every cookie and goes
// back to the sign-in page.
func (s *chromeSession) SignOut(ctx context.Context) error {
	return s.signOutSteps(ctx, s.menuSignOut, func(ctx context.Context) error {
		return chromedp.Run(ctx,
			network.ClearBrowserCookies(),
			chromedp.Navigate(s.portal.SignInURL),
		)
	})
}

// signOutSteps runs menu and then, on failure, fallback. Each gets its own
// step context: a menu attempt that used up its timeout leaves the fallback
// a full one.
func (s *chromeSession) signOutSteps(ctx context.Context, menu, fallback func(context.Context) error) error {
	menuCtx, cancel := s.ctxFor(ctx)
	err := menu(menuCtx)
	cancel()
	if err == nil {
		slog.Info("Signed out", "account", s.account.ID)
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("sign-out failed: %w", ctx.Err())
	}

	slog.Warn("Menu sign-out failed, clearing cookies", "account", s.account.ID, "error", err)
	fallbackCtx, cancel := s.ctxFor(ctx)
	defer cancel()
	if ferr := fallback(fallbackCtx); ferr != nil {
		return fmt.Errorf("sign-out failed: %w", errors.Join(err, ferr))
	}
	return nil
}

func (s *chromeSession) menuSignOut(ctx context.Context) error {
	if err := chromedp.Run(ctx,
		scriptedClickXPath(menuXPath),
		chromedp.WaitReady(logoutXPath, chromedp.BySearch),
		scriptedClickXPath(logoutXPath),
	); err != nil {
		return err
	}
	_, err := s.waitPage(ctx, func(st pageState) bool { return st.SignInForm })
	return err
}

func (s *chromeSession) Close() {
	s.cancel()
}

// waitPage polls the page with backoff until ready holds or StepTimeout runs out.
func (s *chromeSession) waitPage(ctx context.Context, ready func(pageState) bool) (pageState, error) {
	var last pageState
	backoff := retry.WithMaxDuration(s.portal.StepTimeout,
		retry.WithCappedDuration(2*time.Second, retry.NewExponential(s.poll)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		probeCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
		defer cancel()
		var html string
		if err := chromedp.Run(probeCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
			return retry.RetryableError(err)
		}
		st, err := inspectPage(html)
		if err != nil {
			return retry.RetryableError(err)
		}
		last = st
		if ready(st) {
			return nil
		}
		return retry.RetryableError(errNotReady)
	})
	return last, err
}

func (s *chromeSession) dump(ctx context.Context, stage string) {
	if !s.debug || ctx.Err() != nil {
		return
	}
	probeCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	var html string
	if err := chromedp.Run(probeCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return
	}
	dumpPage(s.account.ID, stage, html)
}

// scriptedClick clicks through JavaScript, which overlays cannot intercept.
func scriptedClick(selector string) chromedp.Action {
	js := fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (!el) return false; el.click(); return true; })()`, selector)
	return clickScript(selector, js)
}

func scriptedClickXPath(xpath string) chromedp.Action {
	js := fmt.Sprintf(`(() => { const el = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue; if (!el) return false; el.click(); return true; })()`, xpath)
	return clickScript(xpath, js)
}

func clickScript(what, js string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var ok bool
		if err := chromedp.Evaluate(js, &ok).Do(ctx); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("element not found: %s", what)
		}
		return nil
	})
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.ContainsRune(s, '\'') {
		return "'" + s + "'"
	}
	if !strings.ContainsRune(s, '"') {
		return `"` + s + `"`
	}
	// both quote kinds: concat('a', "'", 'b')
	out := "concat("
	part := ""
	for _, r := range s {
		if r == '\'' {
			out += "'" + part + "', \"'\", "
			part = ""
			continue
		}
		part += string(r)
	}
	return out + "'" + part + "')"
}
