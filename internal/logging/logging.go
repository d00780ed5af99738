// Package logging builds the zap logger shared by every boidsweb command.
//
// Human-readable records go to the console; when a log directory is set,
// every record down to debug is also written as JSON to a rotating file.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FilePrefix names the rotating log files.
const FilePrefix = "build"

// Options configures New.
type Options struct {
	Level   zapcore.Level
	Console io.Writer
	LogDir  string
}

// LevelFromFlags maps the --verbose and --quiet flags to a console level.
func LevelFromFlags(verbose, quiet bool) zapcore.Level {
	switch {
	case verbose:
		return zapcore.DebugLevel
	case quiet:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// New returns a logger and a cleanup function that flushes and closes it.
func New(opts Options) (*zap.Logger, func(), error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleCfg.CallerKey = zapcore.OmitKey
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), opts.Level),
	}

	var file *RotatingFile
	if opts.LogDir != "" {
		var err error
		file, err = NewRotatingFile(opts.LogDir, FilePrefix)
		if err != nil {
			return nil, nil, err
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), file, zapcore.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	cleanup := func() {
		_ = logger.Sync()
		if file != nil {
			file.Close()
		}
	}
	return logger, cleanup, nil
}
