// Package logging builds the zerolog logger shared by the commands and by
// gnark's circuit compiler and prover.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	gnarklog "github.com/consensys/gnark/logger"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to out at the given level. The console
// format is colored only when out is a terminal.
func New(level, format string, out io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	switch format {
	case FormatJSON:
	case FormatConsole, "":
		out = consoleWriter(out)
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want %s or %s", format, FormatConsole, FormatJSON)
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	w := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: true}
	if f, ok := out.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		w.Out = colorable.NewColorable(f)
		w.NoColor = false
	}
	return w
}

// Install routes gnark's own logging through l. Below debug level gnark is
// silenced, since it logs every constraint system compilation.
func Install(l zerolog.Logger) {
	if l.GetLevel() > zerolog.DebugLevel {
		gnarklog.Disable()
		return
	}
	gnarklog.Set(l.With().Str("component", "gnark").Logger())
}
