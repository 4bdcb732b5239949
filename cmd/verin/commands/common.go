package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
)

// LogLevelEnv overrides the log level when set (debug, info, warn, error).
const LogLevelEnv = "VERIN_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build              BuildCmd              `cmd:"" help:"Build the site from a posts directory"`
	Watch              WatchCmd              `cmd:"" help:"Build in debug mode and rebuild on every change"`
	StartRefreshServer StartRefreshServerCmd `cmd:"" name:"start-refresh-server" help:"Run the live-reload server until interrupted"`
	TriggerRefresh     TriggerRefreshCmd     `cmd:"" name:"trigger-refresh" help:"Ask the live-reload server to reload every open page"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)})))
	return nil
}

// parseLogLevel picks debug for -v, otherwise the level named by
// VERIN_LOG_LEVEL, otherwise info.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	var level slog.Level
	if v := strings.TrimSpace(os.Getenv(LogLevelEnv)); v != "" {
		if err := level.UnmarshalText([]byte(v)); err == nil {
			return level
		}
	}
	return slog.LevelInfo
}
