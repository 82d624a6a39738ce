package main

import (
	"debug/buildinfo"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// set at build time: go build -ldflags "-X main.version=v0.3.0"
var version string

var ldflagsVersionRe = regexp.MustCompile(`main\.version=(v?\d+\.\d+\.\d+)`)

// parses a version string like "v1.2.3" and returns major, minor, patch.
func parseVersion(ver string) (int, int, int, error) {
	ver = strings.TrimSpace(ver)
	ver = strings.TrimPrefix(ver, "v")
	parts := strings.Split(ver, ".")
	if len(parts) != 3 {
		return 0, 0, 0, errors.New("invalid version format")
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	patch, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, errors.New("invalid version number")
	}
	return major, minor, patch, nil
}

// ReadLocalVersion returns the version linked into this binary. When the
// variable was not set it falls back to the -ldflags recorded in the build info.
func ReadLocalVersion() (int, int, int, error) {
	if version != "" {
		return parseVersion(version)
	}
	exePath, err := os.Executable()
	if err != nil {
		return 0, 0, 0, err
	}
	info, err := buildinfo.ReadFile(exePath)
	if err != nil {
		slog.Debug("No build info in executable", "error", err)
		return 0, 0, 0, err
	}
	for _, setting := range info.Settings {
		if setting.Key != "-ldflags" {
			continue
		}
		if match := ldflagsVersionRe.FindStringSubmatch(setting.Value); len(match) > 1 {
			return parseVersion(match[1])
		}
	}
	return 0, 0, 0, errors.New("version not found in binary file")
}

func versionString() string {
	major, minor, patch, err := ReadLocalVersion()
	if err != nil {
		return "dev"
	}
	return fmt.Sprintf("v%d.%d.%d", major, minor, patch)
}
