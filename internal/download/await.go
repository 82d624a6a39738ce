package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrTimeout means no new workbook appeared within the polling budget.
var ErrTimeout = errors.New("timed out waiting for download")

var errNotYet = errors.New("no complete download yet")

// partial download suffixes written by Chrome and friends
var partialSuffixes = []string{".crdownload", ".part", ".tmp", ".download"}

// AwaitOptions bounds a wait for a new download.
type AwaitOptions struct {
	// Prefix marks finalized files, which are never returned.
	Prefix string
	// Ignore holds file names present before the export was triggered.
	Ignore map[string]bool

	Interval time.Duration
	Timeout  time.Duration
	// Settle is how long a file must keep the same size before it counts.
	Settle time.Duration
}

func (o AwaitOptions) withDefaults() AwaitOptions {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Settle < 0 {
		o.Settle = 0
	}
	return o
}

// Snapshot records the file names currently in dir, for AwaitOptions.Ignore.
func Snapshot(dir string) map[string]bool {
	seen := map[string]bool{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return seen
	}
	for _, e := range entries {
		seen[e.Name()] = true
	}
	return seen
}

// Await polls dir until a new, fully written workbook appears and returns its
// path. It returns ErrTimeout when nothing shows up in time and never touches
// finalized files.
func Await(ctx context.Context, dir string, opts AwaitOptions) (string, error) {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	backoff := retry.WithMaxDuration(opts.Timeout, retry.NewConstant(opts.Interval))

	var found string
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		candidate, size, err := newestCandidate(dir, opts)
		if err != nil {
			return err
		}
		if candidate == "" {
			return retry.RetryableError(errNotYet)
		}

		slog.Debug("Download spotted, waiting for it to settle", "path", candidate, "size", size)
		if err := sleep(ctx, opts.Settle); err != nil {
			return err
		}
		info, err := os.Stat(candidate)
		if err != nil || info.Size() != size || info.Size() == 0 {
			// still being written, or renamed under us
			return retry.RetryableError(errNotYet)
		}
		found = candidate
		return nil
	})

	switch {
	case err == nil:
		slog.Info("Download complete", "path", found, "attempts", attempts)
		return found, nil
	case errors.Is(err, errNotYet):
		return "", fmt.Errorf("%w after %s in %s", ErrTimeout, opts.Timeout, dir)
	default:
		return "", err
	}
}

// newestCandidate returns the most recently modified non-finalized workbook.
func newestCandidate(dir string, opts AwaitOptions) (string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var (
		best     string
		bestSize int64
		bestTime time.Time
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isCandidate(name, opts) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(dir, name)
			bestSize = info.Size()
			bestTime = info.ModTime()
		}
	}
	return best, bestSize, nil
}

func isCandidate(name string, opts AwaitOptions) bool {
	lower := strings.ToLower(name)
	for _, s := range partialSuffixes {
		if strings.HasSuffix(lower, s) {
			return false
		}
	}
	if !strings.HasSuffix(lower, DefaultExtension) || strings.HasPrefix(name, "~$") {
		return false
	}
	if IsFinalized(name, opts.Prefix) {
		return false
	}
	return !opts.Ignore[name]
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
