// Package obslog builds the zap loggers used throughout actorkit, choosing
// between a human-readable console encoder and a JSON encoder the same way
// the teacher's cmd/zmux-server/main.go does for its own request logger:
// colorized, caller-free console output on an interactive terminal, plain
// structured JSON otherwise (container logs, CI, piped output).
package obslog

import (
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a named root logger appropriate for the current stderr.
func New(name string) *zap.Logger {
	var cfg zap.Config
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = ""
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true

	log := zap.Must(cfg.Build())
	if name != "" {
		log = log.Named(name)
	}
	return log
}

// Nop returns a logger that discards everything, used as the default when a
// caller does not supply one.
func Nop() *zap.Logger { return zap.NewNop() }
