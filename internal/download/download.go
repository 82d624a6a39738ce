// Package download tracks the workbooks a browser drops on disk and gives
// each account exactly one finalized file: <dir>/<prefix><account id><ext>.
package download

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtension is the spreadsheet extension the portal exports.
const DefaultExtension = ".xlsx"

// Path returns the finalized location of an account's workbook.
func Path(dir, prefix, accountID string) string {
	return filepath.Join(dir, prefix+accountID+DefaultExtension)
}

// IsFinalized reports whether a file name follows the finalized naming
// convention, so it is never mistaken for a fresh download.
func IsFinalized(name, prefix string) bool {
	base := filepath.Base(name)
	return prefix != "" && strings.HasPrefix(base, prefix) && strings.EqualFold(filepath.Ext(base), DefaultExtension)
}

// AccountID extracts the account id from a finalized file name.
func AccountID(name, prefix string) string {
	base := filepath.Base(name)
	base = strings.TrimPrefix(base, prefix)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Discover lists finalized workbooks in dir, sorted by name.
func Discover(dir, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*"+DefaultExtension))
	if err != nil {
		return nil, fmt.Errorf("failed to search for workbooks: %w", err)
	}
	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// Clean removes every finalized workbook in dir and returns how many went.
func Clean(dir, prefix string) (int, error) {
	files, err := Discover(dir, prefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	slog.Info("Removed finalized workbooks", "dir", dir, "count", removed)
	return removed, errors.Join(errs...)
}

// Finalize moves src to dst, replacing whatever already sits at dst.
func Finalize(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		// rename fails across devices; fall back to copy + remove
		if cerr := copyFile(src, dst); cerr != nil {
			return fmt.Errorf("failed to move %s to %s: %w", src, dst, errors.Join(err, cerr))
		}
		if rerr := os.Remove(src); rerr != nil {
			slog.Warn("Failed to remove download after copy", "path", src, "error", rerr)
		}
	}
	slog.Info("Workbook finalized", "from", src, "to", dst)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
