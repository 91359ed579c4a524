// Package buildinfo exposes version metadata for the /api/version
// endpoint, log banners, and outbound User-Agent headers.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at release build time via -ldflags; dev builds fall back to the
// module's VCS stamp when available.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

var startTime = time.Now()

func init() {
	if GitCommit != "" {
		return
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			GitCommit = s.Value
		case "vcs.time":
			BuildTime = s.Value
		}
	}
}

// Info returns build and runtime metadata as a map for JSON responses.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"commit":     shortCommit(),
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     Uptime().String(),
	}
}

// Uptime returns the duration since process start.
func Uptime() time.Duration {
	return time.Since(startTime).Truncate(time.Second)
}

// String returns a one-line summary for log banners.
func String() string {
	return fmt.Sprintf("Joule %s (%s)", Version, shortCommit())
}

// UserAgent identifies outbound HTTP requests.
func UserAgent() string {
	return fmt.Sprintf("joule-agent/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

func shortCommit() string {
	if len(GitCommit) > 12 {
		return GitCommit[:12]
	}
	if GitCommit == "" {
		return "unknown"
	}
	return GitCommit
}
