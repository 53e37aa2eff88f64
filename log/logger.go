package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// componentField names the subsystem that wrote a log entry.
const componentField = "component"

type LoggerType uint8

const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

var (
	Root      = zerolog.Nop()
	Documents = zerolog.Nop()
	Tables    = zerolog.Nop()
	Lobby     = zerolog.Nop()
)

// Options for Logger
type Options struct {
	// LogLevel is the minimum level written, default Info
	LogLevel zerolog.Level
	Type     LoggerType
	// Out is the destination, default os.Stdout
	Out io.Writer
}

func ParseLogLevel(loglevel string) (zerolog.Level, error) {
	return zerolog.ParseLevel(loglevel)
}

func ParseLoggerType(name string) (LoggerType, error) {
	switch strings.ToLower(name) {
	case "", "console":
		return ConsoleLogger, nil
	case "json":
		return JSONLogger, nil
	default:
		return 0, fmt.Errorf("unknown logger type %q", name)
	}
}

func Init(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	switch opts.Type {
	case ConsoleLogger:
		Root = zerolog.New(newConsoleWriter(out)).Level(opts.LogLevel).
			With().Timestamp().Logger()
	default:
		Root = zerolog.New(out).Level(opts.LogLevel).
			With().Timestamp().Logger()
	}
	Documents = Root.With().Str(componentField, "documents").Logger()
	Tables = Root.With().Str(componentField, "tables").Logger()
	Lobby = Root.With().Str(componentField, "lobby").Logger()
}

// consoleFieldsOrder puts the fields that identify what a message is about first.
var consoleFieldsOrder = []string{"key", "lobby", "game", "table", "backend"}

// newConsoleWriter writes lines shaped like
//
//	15:04:05.000 WARN  [documents] listener failed key=doc:game_lobbies/l1 error="listener panic: boom"
func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{
		Out:           out,
		NoColor:       true,
		TimeFormat:    "15:04:05.000",
		PartsOrder:    []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, componentField, zerolog.MessageFieldName},
		FieldsOrder:   consoleFieldsOrder,
		FieldsExclude: []string{componentField},
	}

	cw.FormatLevel = func(i interface{}) string {
		return fmt.Sprintf("%-5s", strings.ToUpper(fmt.Sprint(i)))
	}

	cw.FormatPartValueByName = func(i interface{}, name string) string {
		if i == nil {
			return ""
		}
		if name == componentField {
			return fmt.Sprintf("[%s]", i)
		}
		return fmt.Sprint(i)
	}

	cw.FormatMessage = func(i interface{}) string {
		if i == nil {
			return ""
		}
		return fmt.Sprint(i)
	}

	cw.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s=", i)
	}

	cw.FormatFieldValue = func(i interface{}) string {
		return fmt.Sprint(i)
	}

	cw.FormatErrFieldName = cw.FormatFieldName
	cw.FormatErrFieldValue = cw.FormatFieldValue
	return cw
}
