// Package zerolog adapts github.com/rs/zerolog to logger.Logger.
package zerolog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

type LogBuild struct {
	writer io.Writer
	path   string
	level  zerolog.Level
}

type LogData struct {
	LogFile *os.File
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{writer: os.Stdout, level: zerolog.InfoLevel}
}

func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

func (build *LogBuild) Level(level zerolog.Level) *LogBuild {
	build.level = level
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = new(LogData)
	writer := build.writer
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		writer = zerolog.SyncWriter(logData.LogFile)
	}
	logData.Logger = zerolog.New(writer).Level(build.level).With().Timestamp().Logger()
	return
}

// Close releases the log file, if any.
func (logData *LogData) Close() error {
	if logData.LogFile == nil {
		return nil
	}
	return logData.LogFile.Close()
}

func (logData *LogData) Error(msg string, args ...any) {
	logData.Logger.Error().Fields(args).Msg(msg)
}

func (logData *LogData) Warn(msg string, args ...any) {
	logData.Logger.Warn().Fields(args).Msg(msg)
}

func (logData *LogData) Info(msg string, args ...any) {
	logData.Logger.Info().Fields(args).Msg(msg)
}

func (logData *LogData) Debug(msg string, args ...any) {
	logData.Logger.Debug().Fields(args).Msg(msg)
}
