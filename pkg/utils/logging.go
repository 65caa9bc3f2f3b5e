package utils

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// SetupLogger installs a tint handler on stderr as the default slog logger
// and returns the level variable so callers can change it later.
func SetupLogger(level string) (*slog.LevelVar, error) {
	ll := &slog.LevelVar{}
	if err := SetLevel(ll, level); err != nil {
		return nil, err
	}

	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if d, ok := a.Value.Any().(time.Duration); ok {
				return slog.String(a.Key, d.Round(time.Microsecond).String())
			}
			return a
		},
	}))
	slog.SetDefault(logger)
	return ll, nil
}

func SetLevel(ll *slog.LevelVar, level string) error {
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "", "info":
		ll.Set(slog.LevelInfo)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", level)
	}
	return nil
}
