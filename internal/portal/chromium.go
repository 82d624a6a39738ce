package portal

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// FindChrome returns the Chrome/Chromium executable to drive, or "" to let
// chromedp fall back to its own lookup. An explicit path always wins.
func FindChrome(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		slog.Warn("Configured Chrome path not found, searching", "path", explicit)
	}
	if path := findInPath(); path != "" {
		return path
	}
	if path := findCommonLocation(); path != "" {
		return path
	}
	if path := findUserCopy(); path != "" {
		return path
	}
	slog.Warn("No Chrome/Chromium browser found in PATH or common locations")
	return ""
}

func findInPath() string {
	candidates := []string{"chrome", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome.exe", "chromium.exe"}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			slog.Info("Found Chrome/Chromium browser executable in PATH", "path", path)
			return path
		}
	}
	return ""
}

func findCommonLocation() string {
	var common []string
	switch runtime.GOOS {
	case "windows":
		common = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Chromium\Application\chrome.exe`,
			`C:\Program Files (x86)\Chromium\Application\chrome.exe`,
		}
	case "darwin":
		common = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	}
	for _, p := range common {
		if _, err := os.Stat(p); err == nil {
			slog.Info("Found Chrome/Chromium browser executable in common location", "path", p)
			return p
		}
	}
	return ""
}

// findUserCopy looks for a portable Chromium unpacked under the user config
// dir: ~/.config/orderdash/chromium on Linux, %AppData%\orderdash\chromium on Windows.
func findUserCopy() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	chromiumDir := filepath.Join(configDir, "orderdash", "chromium")
	var exe string
	switch runtime.GOOS {
	case "windows":
		exe = filepath.Join(chromiumDir, "chrome-win", "chrome.exe")
	case "linux":
		exe = filepath.Join(chromiumDir, "chrome-linux", "chrome")
	default:
		return ""
	}
	if _, err := os.Stat(exe); err != nil {
		return ""
	}
	slog.Info("Using user Chromium copy", "path", exe)
	return exe
}
