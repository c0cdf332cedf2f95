package util

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// DefaultLogger writes to stderr so stdout only carries the hosted URLs
var DefaultLogger = log.NewWithOptions(os.Stderr, log.Options{
	Level: log.InfoLevel,
})

// InitLogger switches the shared logger to debug output
func InitLogger(debug bool) {
	if debug {
		DefaultLogger.SetLevel(log.DebugLevel)
		DefaultLogger.SetReportTimestamp(true)
		DefaultLogger.SetTimeFormat("2006-01-02 15:04:05")
	}
}

type ctxKeyDebug struct{}

// WithDebug marks ctx so lower layers log raw protocol data
func WithDebug(ctx context.Context, debug bool) context.Context {
	return context.WithValue(ctx, ctxKeyDebug{}, debug)
}

func Debug(ctx context.Context) bool {
	b, _ := ctx.Value(ctxKeyDebug{}).(bool)
	return b
}

// BaseDir returns ~/.go-to-ptpimg, where the config file lives
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".go-to-ptpimg"), nil
}
