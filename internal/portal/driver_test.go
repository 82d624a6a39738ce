package portal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orderdash/internal/config"
	"orderdash/internal/download"
)

// fakeBrowser simulates the portal: Export drops a workbook into the
// session's download dir unless the account is set up to fail.
type fakeBrowser struct {
	failAt   map[string]Stage
	noFile   map[string]bool
	opened   []string
	closed   []string
	signOuts int
	signIns  []time.Time
	active   int
	maxLive  int
}

func (b *fakeBrowser) Open(_ context.Context, acct config.Account, dir string) (Session, error) {
	if b.failAt[acct.ID] == StageLaunch {
		return nil, errors.New("chrome not found")
	}
	b.opened = append(b.opened, acct.ID)
	b.active++
	if b.active > b.maxLive {
		b.maxLive = b.active
	}
	return &fakeSession{b: b, acct: acct, dir: dir}, nil
}

type fakeSession struct {
	b    *fakeBrowser
	acct config.Account
	dir  string
}

func (s *fakeSession) fail(stage Stage, err error) error {
	if s.b.failAt[s.acct.ID] == stage {
		return err
	}
	return nil
}

func (s *fakeSession) SignIn(context.Context) error {
	s.b.signIns = append(s.b.signIns, time.Now())
	return s.fail(StageSignIn, ErrAuthentication)
}

func (s *fakeSession) OpenOrders(context.Context) error {
	return s.fail(StageOrders, ErrNavigation)
}

func (s *fakeSession) Export(context.Context) error {
	if err := s.fail(StageExport, ErrExport); err != nil {
		return err
	}
	if s.b.noFile[s.acct.ID] {
		return nil
	}
	return os.WriteFile(filepath.Join(s.dir, "Pedidos "+s.acct.ID+".xlsx"), []byte("workbook "+s.acct.ID), 0644)
}

func (s *fakeSession) SignOut(context.Context) error {
	s.b.signOuts++
	return errors.New("menu not found")
}

func (s *fakeSession) Close() {
	s.b.closed = append(s.b.closed, s.acct.ID)
	s.b.active--
}

var accounts = []config.Account{
	{ID: "HN", Name: "Honduras", Username: "hn@example.com", Password: "x"},
	{ID: "SV", Name: "El Salvador", Username: "sv@example.com", Password: "y"},
	{ID: "GT", Name: "Guatemala", Username: "gt@example.com", Password: "z"},
}

func testDriver(b Browser, dir string) *Driver {
	return NewDriver(b, config.PortalConfig{}, config.DownloadConfig{
		Dir:      dir,
		Prefix:   "DATO_",
		Interval: 10 * time.Millisecond,
		Timeout:  200 * time.Millisecond,
		Settle:   time.Millisecond,
	})
}

func TestSyncAllAccounts(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBrowser{}
	var events []Event

	results := testDriver(b, dir).Sync(context.Background(), accounts, func(e Event) {
		events = append(events, e)
	})

	require.Len(t, results, 3)
	for i, r := range results {
		require.NoError(t, r.Err)
		require.Equal(t, download.Path(dir, "DATO_", accounts[i].ID), r.Path)
		data, err := os.ReadFile(r.Path)
		require.NoError(t, err)
		require.Equal(t, "workbook "+accounts[i].ID, string(data))
	}
	require.Equal(t, []string{"HN", "SV", "GT"}, b.opened)
	require.Equal(t, []string{"HN", "SV", "GT"}, b.closed)
	require.Equal(t, 1, b.maxLive)
	require.Zero(t, b.signOuts)

	require.Equal(t, StageLaunch, events[0].Stage)
	require.Equal(t, StageDone, events[len(events)-1].Stage)

	// staging dirs are gone, only finalized workbooks remain
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestSyncFailureDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBrowser{
		failAt: map[string]Stage{"HN": StageSignIn, "GT": StageExport},
		noFile: map[string]bool{},
	}
	results := testDriver(b, dir).Sync(context.Background(), accounts, nil)

	require.ErrorIs(t, results[0].Err, ErrAuthentication)
	require.True(t, strings.HasPrefix(results[0].Short(), "Honduras: sign-in"))
	require.True(t, results[1].OK())
	require.ErrorIs(t, results[2].Err, ErrExport)

	// every session was torn down, failed ones included
	require.Equal(t, []string{"HN", "SV", "GT"}, b.closed)

	files, err := download.Discover(dir, "DATO_")
	require.NoError(t, err)
	require.Equal(t, []string{download.Path(dir, "DATO_", "SV")}, files)
}

func TestSyncDownloadTimeout(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBrowser{noFile: map[string]bool{"SV": true}}
	d := testDriver(b, dir)

	results := d.Sync(context.Background(), accounts[:2], nil)
	require.True(t, results[0].OK())
	require.ErrorIs(t, results[1].Err, download.ErrTimeout)
	require.Empty(t, results[1].Path)
}

func TestSyncLaunchFailure(t *testing.T) {
	b := &fakeBrowser{failAt: map[string]Stage{"HN": StageLaunch}}
	results := testDriver(b, t.TempDir()).Sync(context.Background(), accounts[:2], nil)
	require.Error(t, results[0].Err)
	require.True(t, results[1].OK())
	require.Equal(t, []string{"SV"}, b.opened)
}

func TestSyncSpacesSignIns(t *testing.T) {
	const cooldown = 50 * time.Millisecond
	b := &fakeBrowser{}
	d := NewDriver(b, config.PortalConfig{Cooldown: cooldown}, testDriver(b, t.TempDir()).Download)

	results := d.Sync(context.Background(), accounts[:2], nil)
	require.True(t, results[0].OK())
	require.True(t, results[1].OK())
	require.Len(t, b.signIns, 2)
	// the first token is taken slightly before the first sign-in is recorded
	require.GreaterOrEqual(t, b.signIns[1].Sub(b.signIns[0]), cooldown-5*time.Millisecond)
}

func TestSyncSignOutFailureKeepsWorkbook(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBrowser{}
	d := testDriver(b, dir)
	d.Portal.Logout = true

	results := d.Sync(context.Background(), accounts[:1], nil)
	require.True(t, results[0].OK())
	require.Equal(t, 1, b.signOuts)
}

func TestSyncCleansBeforeCycle(t *testing.T) {
	dir := t.TempDir()
	stale := download.Path(dir, "DATO_", "HN")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	b := &fakeBrowser{failAt: map[string]Stage{"HN": StageSignIn}}
	d := testDriver(b, dir)
	d.Download.CleanBeforeSync = true
	d.Sync(context.Background(), accounts[:1], nil)

	_, err := os.Stat(stale)
	require.True(t, os.IsNotExist(err))
}

func TestSyncCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &fakeBrowser{}
	results := testDriver(b, t.TempDir()).Sync(ctx, accounts, nil)
	require.Len(t, results, 3)
	for _, r := range results {
		require.ErrorIs(t, r.Err, context.Canceled)
	}
	require.Empty(t, b.opened)
}

func TestResultShortTruncates(t *testing.T) {
	r := Result{Account: accounts[0], Err: errors.New(strings.Repeat("x", 300))}
	require.LessOrEqual(t, len([]rune(r.Short())), len("Honduras: ")+101)
}
