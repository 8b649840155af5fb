package seeder

import (
	"io"

	"github.com/fatih/color"
)

type logger struct {
	out io.Writer
}

func newLogger(out io.Writer) *logger {
	if out == nil {
		out = color.Output
	}
	return &logger{out: out}
}

func (l *logger) info(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(l.out, format+"\n", args...)
}

func (l *logger) success(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(l.out, format+"\n", args...)
}

func (l *logger) warn(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(l.out, "⚠️  "+format+"\n", args...)
}

func (l *logger) fail(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(l.out, "❌ "+format+"\n", args...)
}
