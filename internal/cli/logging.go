package cli

import (
	"log/slog"
	"os"
)

// setupLogging installs the process-wide logger. The token libraries log
// each request at debug level; everything stays on stderr so stdout only
// ever carries the token.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
